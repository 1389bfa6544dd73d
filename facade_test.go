package florin

import (
	"context"
	"testing"
	"time"

	florincommand "github.com/goliatone/go-florin/command"
	"github.com/goliatone/go-florin/core"
	florinquery "github.com/goliatone/go-florin/query"
	"github.com/shopspring/decimal"
)

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	svc := &stubFacadeService{}
	analyticsReader := &stubFacadeAnalyticsReader{}

	facade, err := NewFacade(svc, WithAnalyticsReader(analyticsReader))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.Login == nil || commands.CreateTransaction == nil || commands.StartSync == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.GetAccount == nil || queries.AnalyticsSummary == nil || queries.SessionStatus == nil {
		t.Fatalf("expected query handlers to be wired")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	svc := &stubFacadeService{}
	analyticsReader := &stubFacadeAnalyticsReader{}

	facade, err := NewFacade(svc, WithAnalyticsReader(analyticsReader))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	if err := facade.Commands().CreateTransaction.Execute(context.Background(), florincommand.CreateTransactionMessage{
		Input: core.CreateTransactionInput{
			AccountID: "acc_1",
			Type:      core.TransactionTypeExpense,
			Amount:    decimal.NewFromInt(18),
			Currency:  "USD",
			Category:  "coffee",
		},
	}); err != nil {
		t.Fatalf("execute create transaction command: %v", err)
	}
	if svc.lastCreateAccountID != "acc_1" {
		t.Fatalf("unexpected create transaction delegation payload")
	}

	account, err := facade.Queries().GetAccount.Query(context.Background(), florinquery.GetAccountMessage{
		AccountID: "acc_1",
	})
	if err != nil {
		t.Fatalf("query get account: %v", err)
	}
	if account.ID != "acc_1" || account.Name != "Everyday Checking" {
		t.Fatalf("unexpected account query result: %#v", account)
	}

	from := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	summary, err := facade.Queries().AnalyticsSummary.Query(context.Background(), florinquery.AnalyticsSummaryMessage{
		Input: core.AnalyticsQueryInput{From: from, To: from.AddDate(0, 1, 0)},
	})
	if err != nil {
		t.Fatalf("query analytics summary: %v", err)
	}
	if !summary.Income.Equal(decimal.NewFromInt(4200)) {
		t.Fatalf("unexpected analytics summary result: %#v", summary)
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}

type stubFacadeService struct {
	lastCreateAccountID string
}

func (s *stubFacadeService) Login(context.Context, string, string) (core.CredentialPair, error) {
	return core.CredentialPair{Access: "access", Refresh: "refresh"}, nil
}

func (s *stubFacadeService) Logout(context.Context) error {
	return nil
}

func (s *stubFacadeService) RefreshCredentials(context.Context) (core.CredentialPair, error) {
	return core.CredentialPair{Access: "access_2", Refresh: "refresh_2"}, nil
}

func (s *stubFacadeService) ConnectChannel(context.Context) error {
	return nil
}

func (s *stubFacadeService) DisconnectChannel() error {
	return nil
}

func (s *stubFacadeService) PublishChannel(context.Context, core.ChannelMessage) error {
	return nil
}

func (s *stubFacadeService) CreateTransaction(_ context.Context, input core.CreateTransactionInput) (core.Transaction, error) {
	s.lastCreateAccountID = input.AccountID
	return core.Transaction{ID: "txn_1", AccountID: input.AccountID}, nil
}

func (s *stubFacadeService) UpdateBudget(context.Context, core.UpdateBudgetInput) (core.Budget, error) {
	return core.Budget{ID: "bud_1"}, nil
}

func (s *stubFacadeService) StartSync(context.Context, core.StartSyncInput) (core.SyncJob, error) {
	return core.SyncJob{ID: "job_1", Status: core.SyncJobQueued}, nil
}

func (s *stubFacadeService) GetAccount(context.Context, string) (core.Account, error) {
	return core.Account{ID: "acc_1", Name: "Everyday Checking", Type: core.AccountTypeChecking}, nil
}

func (s *stubFacadeService) ListAccounts(context.Context, core.ListAccountsInput) (core.AccountPage, error) {
	return core.AccountPage{Items: []core.Account{{ID: "acc_1"}}}, nil
}

func (s *stubFacadeService) ListTransactions(context.Context, core.ListTransactionsInput) (core.TransactionPage, error) {
	return core.TransactionPage{Items: []core.Transaction{{ID: "txn_1"}}}, nil
}

func (s *stubFacadeService) GetBudget(context.Context, string) (core.Budget, error) {
	return core.Budget{ID: "bud_1", Category: "dining"}, nil
}

func (s *stubFacadeService) GetIncomePlan(context.Context, string) (core.IncomePlan, error) {
	return core.IncomePlan{ID: "plan_1", Name: "Salary"}, nil
}

func (s *stubFacadeService) SessionStatus(context.Context) (core.SessionStatus, error) {
	return core.SessionStatus{Authenticated: true}, nil
}

type stubFacadeAnalyticsReader struct{}

func (s *stubFacadeAnalyticsReader) AnalyticsSummary(_ context.Context, input core.AnalyticsQueryInput) (core.AnalyticsSummary, error) {
	return core.AnalyticsSummary{
		From:   input.From,
		To:     input.To,
		Income: decimal.NewFromInt(4200),
	}, nil
}

var _ CommandQueryService = (*stubFacadeService)(nil)
