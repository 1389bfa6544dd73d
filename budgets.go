package florin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-florin/core"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetsService works the remote budget collection.
type BudgetsService struct {
	client *Client
}

// List fetches one page of budgets.
func (s *BudgetsService) List(ctx context.Context) (core.BudgetPage, error) {
	envelope, err := s.client.Send(ctx, core.Request{
		Method: http.MethodGet,
		Path:   "/budgets",
	})
	if err != nil {
		return core.BudgetPage{}, err
	}
	items, err := core.DecodeData[[]core.Budget](envelope)
	if err != nil {
		return core.BudgetPage{}, err
	}
	return core.BudgetPage{Items: items, Pagination: envelope.Pagination}, nil
}

// Get fetches a single budget by ID.
func (s *BudgetsService) Get(ctx context.Context, budgetID string) (core.Budget, error) {
	budgetID = strings.TrimSpace(budgetID)
	if budgetID == "" {
		return core.Budget{}, core.ErrResourceIDRequired
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method: http.MethodGet,
		Path:   "/budgets/" + url.PathEscape(budgetID),
	})
	if err != nil {
		return core.Budget{}, err
	}
	return core.DecodeData[core.Budget](envelope)
}

// Create opens a spending cap for a category.
func (s *BudgetsService) Create(ctx context.Context, input core.CreateBudgetInput) (core.Budget, error) {
	if err := input.Validate(); err != nil {
		return core.Budget{}, err
	}
	body, err := json.Marshal(input)
	if err != nil {
		return core.Budget{}, err
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method:      http.MethodPost,
		Path:        "/budgets",
		Body:        body,
		Idempotency: uuid.NewString(),
	})
	if err != nil {
		return core.Budget{}, err
	}
	return core.DecodeData[core.Budget](envelope)
}

// Update adjusts a budget's limit, period, or category.
func (s *BudgetsService) Update(ctx context.Context, input core.UpdateBudgetInput) (core.Budget, error) {
	if err := input.Validate(); err != nil {
		return core.Budget{}, err
	}
	payload := struct {
		Limit    *decimal.Decimal   `json:"limit,omitempty"`
		Period   *core.BudgetPeriod `json:"period,omitempty"`
		Category *string            `json:"category,omitempty"`
	}{Limit: input.Limit, Period: input.Period, Category: input.Category}
	body, err := json.Marshal(payload)
	if err != nil {
		return core.Budget{}, err
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method:      http.MethodPatch,
		Path:        "/budgets/" + url.PathEscape(input.BudgetID),
		Body:        body,
		Idempotency: uuid.NewString(),
	})
	if err != nil {
		return core.Budget{}, err
	}
	return core.DecodeData[core.Budget](envelope)
}

// Delete removes a budget.
func (s *BudgetsService) Delete(ctx context.Context, budgetID string) error {
	budgetID = strings.TrimSpace(budgetID)
	if budgetID == "" {
		return core.ErrResourceIDRequired
	}

	_, err := s.client.Send(ctx, core.Request{
		Method:      http.MethodDelete,
		Path:        "/budgets/" + url.PathEscape(budgetID),
		Idempotency: uuid.NewString(),
	})
	return err
}

// GetBudget fetches a single budget through the budget accessor.
func (c *Client) GetBudget(ctx context.Context, budgetID string) (core.Budget, error) {
	return c.budgets.Get(ctx, budgetID)
}

// UpdateBudget adjusts a budget through the budget accessor.
func (c *Client) UpdateBudget(ctx context.Context, input core.UpdateBudgetInput) (core.Budget, error) {
	return c.budgets.Update(ctx, input)
}
