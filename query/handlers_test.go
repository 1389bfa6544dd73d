package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-florin/core"
	"github.com/shopspring/decimal"
)

func TestGetAccountQuery_QueryDelegates(t *testing.T) {
	expected := core.Account{
		ID:       "acc_1",
		Name:     "Everyday Checking",
		Type:     core.AccountTypeChecking,
		Currency: "USD",
	}
	called := false
	reader := stubAccountReader{
		getFn: func(_ context.Context, accountID string) (core.Account, error) {
			called = true
			if accountID != "acc_1" {
				t.Fatalf("unexpected account id %q", accountID)
			}
			return expected, nil
		},
	}

	qry := NewGetAccountQuery(reader)
	result, err := qry.Query(context.Background(), GetAccountMessage{AccountID: "acc_1"})
	if err != nil {
		t.Fatalf("query account: %v", err)
	}
	if !called {
		t.Fatalf("expected account reader invocation")
	}
	if result.Name != expected.Name {
		t.Fatalf("unexpected account result: %#v", result)
	}
}

func TestListAccountsQuery_QueryDelegates(t *testing.T) {
	expected := core.AccountPage{
		Items:      []core.Account{{ID: "acc_1", Name: "Savings", Type: core.AccountTypeSavings}},
		Pagination: &core.Pagination{Page: 1, PageSize: 20, TotalItems: 1, TotalPages: 1},
	}
	called := false
	reader := stubAccountReader{
		listFn: func(_ context.Context, input core.ListAccountsInput) (core.AccountPage, error) {
			called = true
			if input.Type != core.AccountTypeSavings || !input.IncludeArchived {
				t.Fatalf("unexpected list input: %#v", input)
			}
			return expected, nil
		},
	}

	qry := NewListAccountsQuery(reader)
	result, err := qry.Query(context.Background(), ListAccountsMessage{
		Input: core.ListAccountsInput{Type: core.AccountTypeSavings, IncludeArchived: true},
	})
	if err != nil {
		t.Fatalf("query accounts: %v", err)
	}
	if !called {
		t.Fatalf("expected account reader invocation")
	}
	if len(result.Items) != 1 || result.Pagination == nil {
		t.Fatalf("unexpected account page result: %#v", result)
	}
}

func TestListTransactionsQuery_QueryDelegates(t *testing.T) {
	expected := core.TransactionPage{
		Items: []core.Transaction{{ID: "txn_1", AccountID: "acc_1", Category: "groceries"}},
	}
	called := false
	reader := stubTransactionReader{
		listFn: func(_ context.Context, input core.ListTransactionsInput) (core.TransactionPage, error) {
			called = true
			if input.AccountID != "acc_1" || input.Category != "groceries" {
				t.Fatalf("unexpected list input: %#v", input)
			}
			return expected, nil
		},
	}

	qry := NewListTransactionsQuery(reader)
	result, err := qry.Query(context.Background(), ListTransactionsMessage{
		Input: core.ListTransactionsInput{AccountID: "acc_1", Category: "groceries", Page: 1, PageSize: 50},
	})
	if err != nil {
		t.Fatalf("query transactions: %v", err)
	}
	if !called {
		t.Fatalf("expected transaction reader invocation")
	}
	if len(result.Items) != 1 {
		t.Fatalf("unexpected transaction page result: %#v", result)
	}
}

func TestAnalyticsAndBudgetQueries_Delegate(t *testing.T) {
	calledBudget := false
	calledSummary := false
	calledPlan := false

	budgetReader := stubBudgetReader{
		getFn: func(_ context.Context, budgetID string) (core.Budget, error) {
			calledBudget = true
			if budgetID != "bud_1" {
				t.Fatalf("unexpected budget id %q", budgetID)
			}
			return core.Budget{ID: budgetID, Category: "dining", Limit: decimal.NewFromInt(300)}, nil
		},
	}
	analyticsReader := stubAnalyticsReader{
		summaryFn: func(_ context.Context, input core.AnalyticsQueryInput) (core.AnalyticsSummary, error) {
			calledSummary = true
			if input.From.IsZero() || input.To.IsZero() {
				t.Fatalf("expected bounded analytics window")
			}
			return core.AnalyticsSummary{From: input.From, To: input.To}, nil
		},
	}
	planReader := stubIncomePlanReader{
		getFn: func(_ context.Context, planID string) (core.IncomePlan, error) {
			calledPlan = true
			if planID != "plan_1" {
				t.Fatalf("unexpected plan id %q", planID)
			}
			return core.IncomePlan{ID: planID, Name: "Salary"}, nil
		},
	}

	budget, err := NewGetBudgetQuery(budgetReader).Query(context.Background(), GetBudgetMessage{BudgetID: "bud_1"})
	if err != nil {
		t.Fatalf("query budget: %v", err)
	}
	if !calledBudget || budget.Category != "dining" {
		t.Fatalf("expected budget delegation")
	}

	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	summary, err := NewAnalyticsSummaryQuery(analyticsReader).Query(context.Background(), AnalyticsSummaryMessage{
		Input: core.AnalyticsQueryInput{From: from, To: to},
	})
	if err != nil {
		t.Fatalf("query analytics summary: %v", err)
	}
	if !calledSummary || !summary.From.Equal(from) {
		t.Fatalf("expected analytics delegation")
	}

	plan, err := NewGetIncomePlanQuery(planReader).Query(context.Background(), GetIncomePlanMessage{PlanID: "plan_1"})
	if err != nil {
		t.Fatalf("query income plan: %v", err)
	}
	if !calledPlan || plan.Name != "Salary" {
		t.Fatalf("expected income plan delegation")
	}
}

func TestSessionStatusQuery_QueryDelegates(t *testing.T) {
	called := false
	reader := stubSessionReader{
		statusFn: func(_ context.Context) (core.SessionStatus, error) {
			called = true
			return core.SessionStatus{Authenticated: true, CheckedAt: time.Now()}, nil
		},
	}

	result, err := NewSessionStatusQuery(reader).Query(context.Background(), SessionStatusMessage{})
	if err != nil {
		t.Fatalf("query session status: %v", err)
	}
	if !called {
		t.Fatalf("expected session reader invocation")
	}
	if !result.Authenticated {
		t.Fatalf("unexpected session status result: %#v", result)
	}
}

func TestQueryMessageValidation(t *testing.T) {
	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	earlier := from.AddDate(0, 0, -7)

	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{
			name:    "get account valid",
			msg:     GetAccountMessage{AccountID: "acc_1"},
			wantErr: false,
		},
		{
			name:    "get account missing id",
			msg:     GetAccountMessage{},
			wantErr: true,
		},
		{
			name:    "list accounts valid filter",
			msg:     ListAccountsMessage{Input: core.ListAccountsInput{Type: core.AccountTypeCash}},
			wantErr: false,
		},
		{
			name:    "list accounts unknown type",
			msg:     ListAccountsMessage{Input: core.ListAccountsInput{Type: "offshore"}},
			wantErr: true,
		},
		{
			name:    "list transactions valid",
			msg:     ListTransactionsMessage{Input: core.ListTransactionsInput{Page: 1, PageSize: 25}},
			wantErr: false,
		},
		{
			name:    "list transactions negative page",
			msg:     ListTransactionsMessage{Input: core.ListTransactionsInput{Page: -1}},
			wantErr: true,
		},
		{
			name:    "list transactions inverted window",
			msg:     ListTransactionsMessage{Input: core.ListTransactionsInput{From: &from, To: &earlier}},
			wantErr: true,
		},
		{
			name:    "get budget missing id",
			msg:     GetBudgetMessage{},
			wantErr: true,
		},
		{
			name:    "analytics summary missing window",
			msg:     AnalyticsSummaryMessage{},
			wantErr: true,
		},
		{
			name:    "analytics summary valid",
			msg:     AnalyticsSummaryMessage{Input: core.AnalyticsQueryInput{From: earlier, To: from}},
			wantErr: false,
		},
		{
			name:    "get income plan missing id",
			msg:     GetIncomePlanMessage{},
			wantErr: true,
		},
		{
			name:    "session status always valid",
			msg:     SessionStatusMessage{},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type stubAccountReader struct {
	getFn  func(ctx context.Context, accountID string) (core.Account, error)
	listFn func(ctx context.Context, input core.ListAccountsInput) (core.AccountPage, error)
}

func (s stubAccountReader) GetAccount(ctx context.Context, accountID string) (core.Account, error) {
	if s.getFn == nil {
		return core.Account{}, fmt.Errorf("get account not configured")
	}
	return s.getFn(ctx, accountID)
}

func (s stubAccountReader) ListAccounts(ctx context.Context, input core.ListAccountsInput) (core.AccountPage, error) {
	if s.listFn == nil {
		return core.AccountPage{}, fmt.Errorf("list accounts not configured")
	}
	return s.listFn(ctx, input)
}

type stubTransactionReader struct {
	listFn func(ctx context.Context, input core.ListTransactionsInput) (core.TransactionPage, error)
}

func (s stubTransactionReader) ListTransactions(
	ctx context.Context,
	input core.ListTransactionsInput,
) (core.TransactionPage, error) {
	if s.listFn == nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions not configured")
	}
	return s.listFn(ctx, input)
}

type stubBudgetReader struct {
	getFn func(ctx context.Context, budgetID string) (core.Budget, error)
}

func (s stubBudgetReader) GetBudget(ctx context.Context, budgetID string) (core.Budget, error) {
	if s.getFn == nil {
		return core.Budget{}, fmt.Errorf("get budget not configured")
	}
	return s.getFn(ctx, budgetID)
}

type stubAnalyticsReader struct {
	summaryFn func(ctx context.Context, input core.AnalyticsQueryInput) (core.AnalyticsSummary, error)
}

func (s stubAnalyticsReader) AnalyticsSummary(
	ctx context.Context,
	input core.AnalyticsQueryInput,
) (core.AnalyticsSummary, error) {
	if s.summaryFn == nil {
		return core.AnalyticsSummary{}, fmt.Errorf("analytics summary not configured")
	}
	return s.summaryFn(ctx, input)
}

type stubIncomePlanReader struct {
	getFn func(ctx context.Context, planID string) (core.IncomePlan, error)
}

func (s stubIncomePlanReader) GetIncomePlan(ctx context.Context, planID string) (core.IncomePlan, error) {
	if s.getFn == nil {
		return core.IncomePlan{}, fmt.Errorf("get income plan not configured")
	}
	return s.getFn(ctx, planID)
}

type stubSessionReader struct {
	statusFn func(ctx context.Context) (core.SessionStatus, error)
}

func (s stubSessionReader) SessionStatus(ctx context.Context) (core.SessionStatus, error) {
	if s.statusFn == nil {
		return core.SessionStatus{}, fmt.Errorf("session status not configured")
	}
	return s.statusFn(ctx)
}

var (
	_ AccountReader     = stubAccountReader{}
	_ TransactionReader = stubTransactionReader{}
	_ BudgetReader      = stubBudgetReader{}
	_ AnalyticsReader   = stubAnalyticsReader{}
	_ IncomePlanReader  = stubIncomePlanReader{}
	_ SessionReader     = stubSessionReader{}
)
