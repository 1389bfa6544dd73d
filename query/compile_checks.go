package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-florin/core"
)

var (
	_ gocmd.Querier[GetAccountMessage, core.Account]                = (*GetAccountQuery)(nil)
	_ gocmd.Querier[ListAccountsMessage, core.AccountPage]          = (*ListAccountsQuery)(nil)
	_ gocmd.Querier[ListTransactionsMessage, core.TransactionPage]  = (*ListTransactionsQuery)(nil)
	_ gocmd.Querier[GetBudgetMessage, core.Budget]                  = (*GetBudgetQuery)(nil)
	_ gocmd.Querier[AnalyticsSummaryMessage, core.AnalyticsSummary] = (*AnalyticsSummaryQuery)(nil)
	_ gocmd.Querier[GetIncomePlanMessage, core.IncomePlan]          = (*GetIncomePlanQuery)(nil)
	_ gocmd.Querier[SessionStatusMessage, core.SessionStatus]       = (*SessionStatusQuery)(nil)
)
