package florin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-florin/core"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IncomePlansService works the remote income plan collection.
type IncomePlansService struct {
	client *Client
}

// List fetches one page of income plans.
func (s *IncomePlansService) List(ctx context.Context) (core.IncomePlanPage, error) {
	envelope, err := s.client.Send(ctx, core.Request{
		Method: http.MethodGet,
		Path:   "/income-plans",
	})
	if err != nil {
		return core.IncomePlanPage{}, err
	}
	items, err := core.DecodeData[[]core.IncomePlan](envelope)
	if err != nil {
		return core.IncomePlanPage{}, err
	}
	return core.IncomePlanPage{Items: items, Pagination: envelope.Pagination}, nil
}

// Get fetches a single income plan by ID.
func (s *IncomePlansService) Get(ctx context.Context, planID string) (core.IncomePlan, error) {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return core.IncomePlan{}, core.ErrResourceIDRequired
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method: http.MethodGet,
		Path:   "/income-plans/" + url.PathEscape(planID),
	})
	if err != nil {
		return core.IncomePlan{}, err
	}
	return core.DecodeData[core.IncomePlan](envelope)
}

// Create registers an expected income stream.
func (s *IncomePlansService) Create(ctx context.Context, input core.CreateIncomePlanInput) (core.IncomePlan, error) {
	if err := input.Validate(); err != nil {
		return core.IncomePlan{}, err
	}
	body, err := json.Marshal(input)
	if err != nil {
		return core.IncomePlan{}, err
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method:      http.MethodPost,
		Path:        "/income-plans",
		Body:        body,
		Idempotency: uuid.NewString(),
	})
	if err != nil {
		return core.IncomePlan{}, err
	}
	return core.DecodeData[core.IncomePlan](envelope)
}

// Update adjusts an income plan's name, amount, or schedule.
func (s *IncomePlansService) Update(ctx context.Context, input core.UpdateIncomePlanInput) (core.IncomePlan, error) {
	if err := input.Validate(); err != nil {
		return core.IncomePlan{}, err
	}
	payload := struct {
		Name     *string           `json:"name,omitempty"`
		Amount   *decimal.Decimal  `json:"amount,omitempty"`
		Schedule *core.PaySchedule `json:"schedule,omitempty"`
	}{Name: input.Name, Amount: input.Amount, Schedule: input.Schedule}
	body, err := json.Marshal(payload)
	if err != nil {
		return core.IncomePlan{}, err
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method:      http.MethodPatch,
		Path:        "/income-plans/" + url.PathEscape(input.PlanID),
		Body:        body,
		Idempotency: uuid.NewString(),
	})
	if err != nil {
		return core.IncomePlan{}, err
	}
	return core.DecodeData[core.IncomePlan](envelope)
}

// Deactivate stops projecting a plan's income without deleting it.
func (s *IncomePlansService) Deactivate(ctx context.Context, planID string) (core.IncomePlan, error) {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return core.IncomePlan{}, core.ErrResourceIDRequired
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method:      http.MethodPost,
		Path:        "/income-plans/" + url.PathEscape(planID) + "/deactivate",
		Idempotency: uuid.NewString(),
	})
	if err != nil {
		return core.IncomePlan{}, err
	}
	return core.DecodeData[core.IncomePlan](envelope)
}

// NextPayDates fetches a plan and projects its next pay dates from the
// given time. Projection happens locally from the plan's schedule.
func (s *IncomePlansService) NextPayDates(ctx context.Context, planID string, from time.Time, count int) ([]time.Time, error) {
	plan, err := s.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	return NextPayDates(plan.Schedule, from, count)
}

// GetIncomePlan fetches a single income plan through the income plan
// accessor.
func (c *Client) GetIncomePlan(ctx context.Context, planID string) (core.IncomePlan, error) {
	return c.incomePlans.Get(ctx, planID)
}
