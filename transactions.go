package florin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-florin/core"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionsService works the remote transaction ledger.
type TransactionsService struct {
	client *Client
}

// List fetches one page of transactions matching the filter.
func (s *TransactionsService) List(ctx context.Context, input core.ListTransactionsInput) (core.TransactionPage, error) {
	query := map[string]string{}
	if trimmed := strings.TrimSpace(input.AccountID); trimmed != "" {
		query["accountId"] = trimmed
	}
	if trimmed := strings.TrimSpace(input.Category); trimmed != "" {
		query["category"] = trimmed
	}
	if input.From != nil {
		query["from"] = input.From.UTC().Format(time.RFC3339)
	}
	if input.To != nil {
		query["to"] = input.To.UTC().Format(time.RFC3339)
	}
	if input.Page > 0 {
		query["page"] = strconv.Itoa(input.Page)
	}
	if input.PageSize > 0 {
		query["pageSize"] = strconv.Itoa(input.PageSize)
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method: http.MethodGet,
		Path:   "/transactions",
		Query:  query,
	})
	if err != nil {
		return core.TransactionPage{}, err
	}
	items, err := core.DecodeData[[]core.Transaction](envelope)
	if err != nil {
		return core.TransactionPage{}, err
	}
	return core.TransactionPage{Items: items, Pagination: envelope.Pagination}, nil
}

// Get fetches a single transaction by ID.
func (s *TransactionsService) Get(ctx context.Context, transactionID string) (core.Transaction, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return core.Transaction{}, core.ErrResourceIDRequired
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method: http.MethodGet,
		Path:   "/transactions/" + url.PathEscape(transactionID),
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return core.DecodeData[core.Transaction](envelope)
}

// Create records a new ledger entry. When the client carries local
// categorization rules and the input has no category, the matching rule
// fills it in before the request goes out.
func (s *TransactionsService) Create(ctx context.Context, input core.CreateTransactionInput) (core.Transaction, error) {
	if strings.TrimSpace(input.Category) == "" && s.client.categorizer != nil {
		if category, ok := s.client.categorizer.Match(input.Description, input.Merchant); ok {
			input.Category = category
		}
	}
	if err := input.Validate(); err != nil {
		return core.Transaction{}, err
	}
	body, err := json.Marshal(input)
	if err != nil {
		return core.Transaction{}, err
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method:      http.MethodPost,
		Path:        "/transactions",
		Body:        body,
		Idempotency: uuid.NewString(),
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return core.DecodeData[core.Transaction](envelope)
}

// Update corrects an existing ledger entry.
func (s *TransactionsService) Update(ctx context.Context, input core.UpdateTransactionInput) (core.Transaction, error) {
	if err := input.Validate(); err != nil {
		return core.Transaction{}, err
	}
	payload := struct {
		Amount      *decimal.Decimal `json:"amount,omitempty"`
		Category    *string          `json:"category,omitempty"`
		Merchant    *string          `json:"merchant,omitempty"`
		Description *string          `json:"description,omitempty"`
		OccurredAt  *time.Time       `json:"occurredAt,omitempty"`
	}{
		Amount:      input.Amount,
		Category:    input.Category,
		Merchant:    input.Merchant,
		Description: input.Description,
		OccurredAt:  input.OccurredAt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return core.Transaction{}, err
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method:      http.MethodPatch,
		Path:        "/transactions/" + url.PathEscape(input.TransactionID),
		Body:        body,
		Idempotency: uuid.NewString(),
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return core.DecodeData[core.Transaction](envelope)
}

// Delete removes a ledger entry.
func (s *TransactionsService) Delete(ctx context.Context, transactionID string) error {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return core.ErrResourceIDRequired
	}

	_, err := s.client.Send(ctx, core.Request{
		Method:      http.MethodDelete,
		Path:        "/transactions/" + url.PathEscape(transactionID),
		Idempotency: uuid.NewString(),
	})
	return err
}

// Categorize assigns a category to an existing transaction.
func (s *TransactionsService) Categorize(ctx context.Context, transactionID string, category string) (core.Transaction, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return core.Transaction{}, core.ErrResourceIDRequired
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return core.Transaction{}, core.ErrCategoryRequired
	}
	body, err := json.Marshal(struct {
		Category string `json:"category"`
	}{Category: category})
	if err != nil {
		return core.Transaction{}, err
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method:      http.MethodPost,
		Path:        "/transactions/" + url.PathEscape(transactionID) + "/categorize",
		Body:        body,
		Idempotency: uuid.NewString(),
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return core.DecodeData[core.Transaction](envelope)
}

// ListTransactions fetches one page of transactions through the transaction
// accessor.
func (c *Client) ListTransactions(ctx context.Context, input core.ListTransactionsInput) (core.TransactionPage, error) {
	return c.transactions.List(ctx, input)
}

// CreateTransaction records a new ledger entry through the transaction
// accessor.
func (c *Client) CreateTransaction(ctx context.Context, input core.CreateTransactionInput) (core.Transaction, error) {
	return c.transactions.Create(ctx, input)
}
