package query

import (
	"strings"

	"github.com/goliatone/go-florin/core"
)

const (
	TypeGetAccount       = "florin.query.account.get"
	TypeListAccounts     = "florin.query.account.list"
	TypeListTransactions = "florin.query.transaction.list"
	TypeGetBudget        = "florin.query.budget.get"
	TypeAnalyticsSummary = "florin.query.analytics.summary"
	TypeGetIncomePlan    = "florin.query.income_plan.get"
	TypeSessionStatus    = "florin.query.session.status"
)

type GetAccountMessage struct {
	AccountID string
}

func (GetAccountMessage) Type() string { return TypeGetAccount }

func (m GetAccountMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return queryValidationError("account_id", "account id is required")
	}
	return nil
}

type ListAccountsMessage struct {
	Input core.ListAccountsInput
}

func (ListAccountsMessage) Type() string { return TypeListAccounts }

func (m ListAccountsMessage) Validate() error {
	switch m.Input.Type {
	case "", core.AccountTypeChecking, core.AccountTypeSavings, core.AccountTypeCredit, core.AccountTypeCash, core.AccountTypeInvestment:
		return nil
	default:
		return queryInvalidInputError("query: unknown account type filter")
	}
}

type ListTransactionsMessage struct {
	Input core.ListTransactionsInput
}

func (ListTransactionsMessage) Type() string { return TypeListTransactions }

func (m ListTransactionsMessage) Validate() error {
	if m.Input.Page < 0 {
		return queryInvalidInputError("query: page must be >= 0")
	}
	if m.Input.PageSize < 0 {
		return queryInvalidInputError("query: page size must be >= 0")
	}
	if m.Input.From != nil && m.Input.To != nil && m.Input.To.Before(*m.Input.From) {
		return queryInvalidInputError("query: window end precedes start")
	}
	return nil
}

type GetBudgetMessage struct {
	BudgetID string
}

func (GetBudgetMessage) Type() string { return TypeGetBudget }

func (m GetBudgetMessage) Validate() error {
	if strings.TrimSpace(m.BudgetID) == "" {
		return queryValidationError("budget_id", "budget id is required")
	}
	return nil
}

type AnalyticsSummaryMessage struct {
	Input core.AnalyticsQueryInput
}

func (AnalyticsSummaryMessage) Type() string { return TypeAnalyticsSummary }

func (m AnalyticsSummaryMessage) Validate() error {
	return queryWrapValidation(m.Input.Validate(), "query: invalid analytics window")
}

type GetIncomePlanMessage struct {
	PlanID string
}

func (GetIncomePlanMessage) Type() string { return TypeGetIncomePlan }

func (m GetIncomePlanMessage) Validate() error {
	if strings.TrimSpace(m.PlanID) == "" {
		return queryValidationError("plan_id", "income plan id is required")
	}
	return nil
}

type SessionStatusMessage struct{}

func (SessionStatusMessage) Type() string { return TypeSessionStatus }

func (SessionStatusMessage) Validate() error { return nil }
