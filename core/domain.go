package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrResourceIDRequired      = errors.New("core: resource id is required")
	ErrAccountNameRequired     = errors.New("core: account name is required")
	ErrAmountRequired          = errors.New("core: amount is required")
	ErrCategoryRequired        = errors.New("core: category is required")
	ErrCurrencyRequired        = errors.New("core: currency is required")
	ErrInvalidStatusTransition = errors.New("core: status transition not allowed")
	ErrSyncJobNotFound         = errors.New("core: sync job not found")
)

// AccountType enumerates the account kinds the service tracks.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCredit     AccountType = "credit"
	AccountTypeCash       AccountType = "cash"
	AccountTypeInvestment AccountType = "investment"
)

// Account is a money container: a bank account, card, or cash envelope.
type Account struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Archived  bool            `json:"archived"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// TransactionType separates money in, money out, and internal moves.
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// Transaction is a single ledger entry on an account.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Merchant    string          `json:"merchant,omitempty"`
	Description string          `json:"description,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
}

// BudgetPeriod is the window a budget limit applies to.
type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// Budget caps spending for a category over a period.
type Budget struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Period    BudgetPeriod    `json:"period"`
	Limit     decimal.Decimal `json:"limit"`
	Spent     decimal.Decimal `json:"spent"`
	Currency  string          `json:"currency"`
	StartsOn  time.Time       `json:"startsOn"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Remaining is the budget headroom; negative when overspent.
func (b Budget) Remaining() decimal.Decimal {
	return b.Limit.Sub(b.Spent)
}

// PayFrequency enumerates supported salary schedules.
type PayFrequency string

const (
	PayFrequencyWeekly      PayFrequency = "weekly"
	PayFrequencyBiweekly    PayFrequency = "biweekly"
	PayFrequencySemimonthly PayFrequency = "semimonthly"
	PayFrequencyMonthly     PayFrequency = "monthly"
)

// PaySchedule anchors a recurring payday. Days is used by semimonthly
// schedules (for example the 1st and the 15th).
type PaySchedule struct {
	Frequency PayFrequency `json:"frequency"`
	Anchor    time.Time    `json:"anchor"`
	Days      []int        `json:"days,omitempty"`
}

// IncomePlan models an expected recurring income stream.
type IncomePlan struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Schedule  PaySchedule     `json:"schedule"`
	AccountID string          `json:"accountId,omitempty"`
	Active    bool            `json:"active"`
	NextPayAt time.Time       `json:"nextPayAt"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CategoryTotal is one slice of an analytics breakdown.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Share    float64         `json:"share"`
}

// AnalyticsSummary aggregates activity over a reporting window.
type AnalyticsSummary struct {
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Income     decimal.Decimal `json:"income"`
	Expenses   decimal.Decimal `json:"expenses"`
	Net        decimal.Decimal `json:"net"`
	ByCategory []CategoryTotal `json:"byCategory,omitempty"`
}

// CategoryRule matches transaction text to a category. Lower priority wins
// when several rules match.
type CategoryRule struct {
	ID       string `json:"id"`
	Field    string `json:"field"`
	Pattern  string `json:"pattern"`
	Category string `json:"category"`
	Priority int    `json:"priority"`
}

// ChannelMessage is one inbound frame from the duplex channel.
type ChannelMessage struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// ChannelState is the duplex channel lifecycle. Closed is terminal: only a
// fresh connect starts a new lifecycle.
type ChannelState string

const (
	ChannelDisconnected ChannelState = "disconnected"
	ChannelConnecting   ChannelState = "connecting"
	ChannelOpen         ChannelState = "open"
	ChannelClosed       ChannelState = "closed"
)

var channelTransitionAllowed = map[ChannelState]map[ChannelState]struct{}{
	ChannelDisconnected: {
		ChannelConnecting: {},
		ChannelClosed:     {},
	},
	ChannelConnecting: {
		ChannelOpen:         {},
		ChannelDisconnected: {},
		ChannelClosed:       {},
	},
	ChannelOpen: {
		ChannelDisconnected: {},
		ChannelClosed:       {},
	},
	ChannelClosed: {},
}

// ChannelTransitionAllowed reports whether the channel lifecycle permits
// moving from current to next.
func ChannelTransitionAllowed(current, next ChannelState) bool {
	allowed, ok := channelTransitionAllowed[current]
	if !ok {
		return false
	}
	_, ok = allowed[next]
	return ok
}

// SyncMode selects how a sync run walks the remote collection.
type SyncMode string

const (
	SyncModeBootstrap   SyncMode = "bootstrap"
	SyncModeIncremental SyncMode = "incremental"
	SyncModeBackfill    SyncMode = "backfill"
)

// SyncStatus is the cursor-level state of a resource collection.
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusError   SyncStatus = "error"
)

// SyncCursor records how far a resource collection has been pulled down.
type SyncCursor struct {
	Resource     string         `json:"resource"`
	Cursor       string         `json:"cursor"`
	Status       SyncStatus     `json:"status"`
	LastSyncedAt *time.Time     `json:"lastSyncedAt,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// SyncJobStatus is the lifecycle of one sync run.
type SyncJobStatus string

const (
	SyncJobQueued    SyncJobStatus = "queued"
	SyncJobRunning   SyncJobStatus = "running"
	SyncJobCompleted SyncJobStatus = "completed"
	SyncJobFailed    SyncJobStatus = "failed"
)

var syncJobTransitionAllowed = map[SyncJobStatus]map[SyncJobStatus]struct{}{
	SyncJobQueued: {
		SyncJobRunning: {},
		SyncJobFailed:  {},
	},
	SyncJobRunning: {
		SyncJobCompleted: {},
		SyncJobFailed:    {},
	},
	SyncJobFailed: {
		SyncJobQueued: {},
	},
	SyncJobCompleted: {},
}

// SyncJob is one queued or running sync execution.
type SyncJob struct {
	ID          string         `json:"id"`
	Resource    string         `json:"resource"`
	Mode        SyncMode       `json:"mode"`
	Status      SyncJobStatus  `json:"status"`
	Error       string         `json:"error,omitempty"`
	EnqueuedAt  time.Time      `json:"enqueuedAt"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// TransitionTo moves the job to the next lifecycle status, stamping the
// matching timestamp. Disallowed transitions fail without mutating the job.
func (j *SyncJob) TransitionTo(status SyncJobStatus, now time.Time) error {
	if j == nil {
		return errors.New("core: sync job is nil")
	}
	allowed, ok := syncJobTransitionAllowed[j.Status]
	if !ok {
		return ErrInvalidStatusTransition
	}
	if _, ok := allowed[status]; !ok {
		return ErrInvalidStatusTransition
	}
	j.Status = status
	switch status {
	case SyncJobRunning:
		at := now
		j.StartedAt = &at
	case SyncJobCompleted, SyncJobFailed:
		at := now
		j.CompletedAt = &at
	case SyncJobQueued:
		j.StartedAt = nil
		j.CompletedAt = nil
		j.Error = ""
	}
	return nil
}

// CreateTransactionInput is the payload for recording a new transaction.
type CreateTransactionInput struct {
	AccountID   string          `json:"accountId"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Merchant    string          `json:"merchant,omitempty"`
	Description string          `json:"description,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
}

func (in CreateTransactionInput) Validate() error {
	if strings.TrimSpace(in.AccountID) == "" {
		return ErrResourceIDRequired
	}
	if in.Amount.IsZero() {
		return ErrAmountRequired
	}
	if strings.TrimSpace(in.Currency) == "" {
		return ErrCurrencyRequired
	}
	switch in.Type {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
	default:
		return errors.New("core: transaction type must be income, expense, or transfer")
	}
	return nil
}

// UpdateBudgetInput adjusts a budget's limit or period.
type UpdateBudgetInput struct {
	BudgetID string           `json:"budgetId"`
	Limit    *decimal.Decimal `json:"limit,omitempty"`
	Period   *BudgetPeriod    `json:"period,omitempty"`
	Category *string          `json:"category,omitempty"`
}

func (in UpdateBudgetInput) Validate() error {
	if strings.TrimSpace(in.BudgetID) == "" {
		return ErrResourceIDRequired
	}
	if in.Limit == nil && in.Period == nil && in.Category == nil {
		return errors.New("core: update requires at least one field")
	}
	if in.Period != nil {
		switch *in.Period {
		case BudgetPeriodWeekly, BudgetPeriodMonthly, BudgetPeriodYearly:
		default:
			return errors.New("core: budget period must be weekly, monthly, or yearly")
		}
	}
	return nil
}

// CreateAccountInput opens a new account.
type CreateAccountInput struct {
	Name     string          `json:"name"`
	Type     AccountType     `json:"type"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

func (in CreateAccountInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrAccountNameRequired
	}
	if strings.TrimSpace(in.Currency) == "" {
		return ErrCurrencyRequired
	}
	return nil
}

// ListTransactionsInput filters and paginates the transaction list.
type ListTransactionsInput struct {
	AccountID string     `json:"accountId,omitempty"`
	Category  string     `json:"category,omitempty"`
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`
	Page      int        `json:"page,omitempty"`
	PageSize  int        `json:"pageSize,omitempty"`
}

// AnalyticsQueryInput bounds an analytics summary request.
type AnalyticsQueryInput struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (in AnalyticsQueryInput) Validate() error {
	if in.From.IsZero() || in.To.IsZero() {
		return errors.New("core: analytics window requires from and to")
	}
	if in.To.Before(in.From) {
		return errors.New("core: analytics window end precedes start")
	}
	return nil
}

// CashflowPoint is one bucket of a cashflow series.
type CashflowPoint struct {
	Period   string          `json:"period"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// ListAccountsInput filters the account list.
type ListAccountsInput struct {
	Type            AccountType `json:"type,omitempty"`
	IncludeArchived bool        `json:"includeArchived,omitempty"`
}

// UpdateAccountInput renames or retypes an account.
type UpdateAccountInput struct {
	AccountID string       `json:"accountId"`
	Name      *string      `json:"name,omitempty"`
	Type      *AccountType `json:"type,omitempty"`
}

func (in UpdateAccountInput) Validate() error {
	if strings.TrimSpace(in.AccountID) == "" {
		return ErrResourceIDRequired
	}
	if in.Name == nil && in.Type == nil {
		return errors.New("core: update requires at least one field")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return ErrAccountNameRequired
	}
	return nil
}

// UpdateTransactionInput corrects an existing ledger entry.
type UpdateTransactionInput struct {
	TransactionID string           `json:"transactionId"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Merchant      *string          `json:"merchant,omitempty"`
	Description   *string          `json:"description,omitempty"`
	OccurredAt    *time.Time       `json:"occurredAt,omitempty"`
}

func (in UpdateTransactionInput) Validate() error {
	if strings.TrimSpace(in.TransactionID) == "" {
		return ErrResourceIDRequired
	}
	if in.Amount == nil && in.Category == nil && in.Merchant == nil && in.Description == nil && in.OccurredAt == nil {
		return errors.New("core: update requires at least one field")
	}
	if in.Category != nil && strings.TrimSpace(*in.Category) == "" {
		return ErrCategoryRequired
	}
	return nil
}

// CreateBudgetInput opens a spending cap for a category.
type CreateBudgetInput struct {
	Category string          `json:"category"`
	Period   BudgetPeriod    `json:"period"`
	Limit    decimal.Decimal `json:"limit"`
	Currency string          `json:"currency"`
	StartsOn time.Time       `json:"startsOn"`
}

func (in CreateBudgetInput) Validate() error {
	if strings.TrimSpace(in.Category) == "" {
		return ErrCategoryRequired
	}
	switch in.Period {
	case BudgetPeriodWeekly, BudgetPeriodMonthly, BudgetPeriodYearly:
	default:
		return errors.New("core: budget period must be weekly, monthly, or yearly")
	}
	if in.Limit.IsZero() || in.Limit.IsNegative() {
		return errors.New("core: budget limit must be positive")
	}
	if strings.TrimSpace(in.Currency) == "" {
		return ErrCurrencyRequired
	}
	return nil
}

// Validate rejects schedules with an unknown frequency or no anchor.
func (s PaySchedule) Validate() error {
	switch s.Frequency {
	case PayFrequencyWeekly, PayFrequencyBiweekly, PayFrequencySemimonthly, PayFrequencyMonthly:
	default:
		return errors.New("core: pay frequency must be weekly, biweekly, semimonthly, or monthly")
	}
	if s.Anchor.IsZero() {
		return errors.New("core: pay schedule anchor is required")
	}
	for _, day := range s.Days {
		if day < 1 || day > 31 {
			return errors.New("core: pay schedule days must be between 1 and 31")
		}
	}
	return nil
}

// CreateIncomePlanInput registers an expected income stream.
type CreateIncomePlanInput struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Schedule  PaySchedule     `json:"schedule"`
	AccountID string          `json:"accountId,omitempty"`
}

func (in CreateIncomePlanInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("core: income plan name is required")
	}
	if in.Amount.IsZero() {
		return ErrAmountRequired
	}
	if strings.TrimSpace(in.Currency) == "" {
		return ErrCurrencyRequired
	}
	return in.Schedule.Validate()
}

// UpdateIncomePlanInput adjusts an income plan.
type UpdateIncomePlanInput struct {
	PlanID   string           `json:"planId"`
	Name     *string          `json:"name,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Schedule *PaySchedule     `json:"schedule,omitempty"`
}

func (in UpdateIncomePlanInput) Validate() error {
	if strings.TrimSpace(in.PlanID) == "" {
		return ErrResourceIDRequired
	}
	if in.Name == nil && in.Amount == nil && in.Schedule == nil {
		return errors.New("core: update requires at least one field")
	}
	if in.Schedule != nil {
		return in.Schedule.Validate()
	}
	return nil
}

// StartSyncInput asks for a sync run over one resource collection. An
// empty mode starts an incremental run.
type StartSyncInput struct {
	Resource       string     `json:"resource"`
	Mode           SyncMode   `json:"mode,omitempty"`
	IdempotencyKey string     `json:"idempotencyKey,omitempty"`
	From           *time.Time `json:"from,omitempty"`
	To             *time.Time `json:"to,omitempty"`
}

func (in StartSyncInput) Validate() error {
	if strings.TrimSpace(in.Resource) == "" {
		return ErrSyncResourceRequired
	}
	switch in.Mode {
	case "", SyncModeBootstrap, SyncModeIncremental, SyncModeBackfill:
	default:
		return errors.New("core: sync mode must be bootstrap, incremental, or backfill")
	}
	return nil
}

// AccountPage is one page of the account list plus the window the server
// reported for it.
type AccountPage struct {
	Items      []Account   `json:"items"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// TransactionPage is one page of the transaction list.
type TransactionPage struct {
	Items      []Transaction `json:"items"`
	Pagination *Pagination   `json:"pagination,omitempty"`
}

// BudgetPage is one page of the budget list.
type BudgetPage struct {
	Items      []Budget    `json:"items"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// IncomePlanPage is one page of the income plan list.
type IncomePlanPage struct {
	Items      []IncomePlan `json:"items"`
	Pagination *Pagination  `json:"pagination,omitempty"`
}
