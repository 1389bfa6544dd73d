package florin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-florin/core"
	"github.com/google/uuid"
)

// AccountsService works the remote account collection. List responses keep
// the server's page window; writes carry generated idempotency keys so the
// caller can safely opt in to retries.
type AccountsService struct {
	client *Client
}

// List fetches one page of accounts matching the filter.
func (s *AccountsService) List(ctx context.Context, input core.ListAccountsInput) (core.AccountPage, error) {
	query := map[string]string{}
	if input.Type != "" {
		query["type"] = string(input.Type)
	}
	if input.IncludeArchived {
		query["includeArchived"] = "true"
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method: http.MethodGet,
		Path:   "/accounts",
		Query:  query,
	})
	if err != nil {
		return core.AccountPage{}, err
	}
	items, err := core.DecodeData[[]core.Account](envelope)
	if err != nil {
		return core.AccountPage{}, err
	}
	return core.AccountPage{Items: items, Pagination: envelope.Pagination}, nil
}

// Get fetches a single account by ID.
func (s *AccountsService) Get(ctx context.Context, accountID string) (core.Account, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return core.Account{}, core.ErrResourceIDRequired
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method: http.MethodGet,
		Path:   "/accounts/" + url.PathEscape(accountID),
	})
	if err != nil {
		return core.Account{}, err
	}
	return core.DecodeData[core.Account](envelope)
}

// Create opens a new account.
func (s *AccountsService) Create(ctx context.Context, input core.CreateAccountInput) (core.Account, error) {
	if err := input.Validate(); err != nil {
		return core.Account{}, err
	}
	body, err := json.Marshal(input)
	if err != nil {
		return core.Account{}, err
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method:      http.MethodPost,
		Path:        "/accounts",
		Body:        body,
		Idempotency: uuid.NewString(),
	})
	if err != nil {
		return core.Account{}, err
	}
	return core.DecodeData[core.Account](envelope)
}

// Update renames or retypes an account.
func (s *AccountsService) Update(ctx context.Context, input core.UpdateAccountInput) (core.Account, error) {
	if err := input.Validate(); err != nil {
		return core.Account{}, err
	}
	payload := struct {
		Name *string           `json:"name,omitempty"`
		Type *core.AccountType `json:"type,omitempty"`
	}{Name: input.Name, Type: input.Type}
	body, err := json.Marshal(payload)
	if err != nil {
		return core.Account{}, err
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method:      http.MethodPatch,
		Path:        "/accounts/" + url.PathEscape(input.AccountID),
		Body:        body,
		Idempotency: uuid.NewString(),
	})
	if err != nil {
		return core.Account{}, err
	}
	return core.DecodeData[core.Account](envelope)
}

// Archive hides an account from default listings without deleting its
// transaction history.
func (s *AccountsService) Archive(ctx context.Context, accountID string) (core.Account, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return core.Account{}, core.ErrResourceIDRequired
	}

	envelope, err := s.client.Send(ctx, core.Request{
		Method:      http.MethodPost,
		Path:        "/accounts/" + url.PathEscape(accountID) + "/archive",
		Idempotency: uuid.NewString(),
	})
	if err != nil {
		return core.Account{}, err
	}
	return core.DecodeData[core.Account](envelope)
}

// ListAccounts fetches one page of accounts through the account accessor.
func (c *Client) ListAccounts(ctx context.Context, input core.ListAccountsInput) (core.AccountPage, error) {
	return c.accounts.List(ctx, input)
}

// GetAccount fetches a single account through the account accessor.
func (c *Client) GetAccount(ctx context.Context, accountID string) (core.Account, error) {
	return c.accounts.Get(ctx, accountID)
}
