package query

import (
	"context"

	"github.com/goliatone/go-florin/core"
)

type AccountReader interface {
	GetAccount(ctx context.Context, accountID string) (core.Account, error)
	ListAccounts(ctx context.Context, input core.ListAccountsInput) (core.AccountPage, error)
}

type TransactionReader interface {
	ListTransactions(ctx context.Context, input core.ListTransactionsInput) (core.TransactionPage, error)
}

type BudgetReader interface {
	GetBudget(ctx context.Context, budgetID string) (core.Budget, error)
}

type AnalyticsReader interface {
	AnalyticsSummary(ctx context.Context, input core.AnalyticsQueryInput) (core.AnalyticsSummary, error)
}

type IncomePlanReader interface {
	GetIncomePlan(ctx context.Context, planID string) (core.IncomePlan, error)
}

type SessionReader interface {
	SessionStatus(ctx context.Context) (core.SessionStatus, error)
}

type GetAccountQuery struct {
	reader AccountReader
}

func NewGetAccountQuery(reader AccountReader) *GetAccountQuery {
	return &GetAccountQuery{reader: reader}
}

func (q *GetAccountQuery) Query(ctx context.Context, msg GetAccountMessage) (core.Account, error) {
	if q == nil || q.reader == nil {
		return core.Account{}, queryDependencyError("query: account reader is required")
	}
	return q.reader.GetAccount(ctx, msg.AccountID)
}

type ListAccountsQuery struct {
	reader AccountReader
}

func NewListAccountsQuery(reader AccountReader) *ListAccountsQuery {
	return &ListAccountsQuery{reader: reader}
}

func (q *ListAccountsQuery) Query(ctx context.Context, msg ListAccountsMessage) (core.AccountPage, error) {
	if q == nil || q.reader == nil {
		return core.AccountPage{}, queryDependencyError("query: account reader is required")
	}
	return q.reader.ListAccounts(ctx, msg.Input)
}

type ListTransactionsQuery struct {
	reader TransactionReader
}

func NewListTransactionsQuery(reader TransactionReader) *ListTransactionsQuery {
	return &ListTransactionsQuery{reader: reader}
}

func (q *ListTransactionsQuery) Query(
	ctx context.Context,
	msg ListTransactionsMessage,
) (core.TransactionPage, error) {
	if q == nil || q.reader == nil {
		return core.TransactionPage{}, queryDependencyError("query: transaction reader is required")
	}
	return q.reader.ListTransactions(ctx, msg.Input)
}

type GetBudgetQuery struct {
	reader BudgetReader
}

func NewGetBudgetQuery(reader BudgetReader) *GetBudgetQuery {
	return &GetBudgetQuery{reader: reader}
}

func (q *GetBudgetQuery) Query(ctx context.Context, msg GetBudgetMessage) (core.Budget, error) {
	if q == nil || q.reader == nil {
		return core.Budget{}, queryDependencyError("query: budget reader is required")
	}
	return q.reader.GetBudget(ctx, msg.BudgetID)
}

type AnalyticsSummaryQuery struct {
	reader AnalyticsReader
}

func NewAnalyticsSummaryQuery(reader AnalyticsReader) *AnalyticsSummaryQuery {
	return &AnalyticsSummaryQuery{reader: reader}
}

func (q *AnalyticsSummaryQuery) Query(
	ctx context.Context,
	msg AnalyticsSummaryMessage,
) (core.AnalyticsSummary, error) {
	if q == nil || q.reader == nil {
		return core.AnalyticsSummary{}, queryDependencyError("query: analytics reader is required")
	}
	return q.reader.AnalyticsSummary(ctx, msg.Input)
}

type GetIncomePlanQuery struct {
	reader IncomePlanReader
}

func NewGetIncomePlanQuery(reader IncomePlanReader) *GetIncomePlanQuery {
	return &GetIncomePlanQuery{reader: reader}
}

func (q *GetIncomePlanQuery) Query(ctx context.Context, msg GetIncomePlanMessage) (core.IncomePlan, error) {
	if q == nil || q.reader == nil {
		return core.IncomePlan{}, queryDependencyError("query: income plan reader is required")
	}
	return q.reader.GetIncomePlan(ctx, msg.PlanID)
}

type SessionStatusQuery struct {
	reader SessionReader
}

func NewSessionStatusQuery(reader SessionReader) *SessionStatusQuery {
	return &SessionStatusQuery{reader: reader}
}

func (q *SessionStatusQuery) Query(ctx context.Context, msg SessionStatusMessage) (core.SessionStatus, error) {
	if q == nil || q.reader == nil {
		return core.SessionStatus{}, queryDependencyError("query: session reader is required")
	}
	return q.reader.SessionStatus(ctx)
}
