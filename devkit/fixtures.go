package devkit

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-florin/core"
	"github.com/shopspring/decimal"
)

// FixtureTime anchors generated fixtures to a stable clock so scripted
// bodies and assertions stay deterministic.
var FixtureTime = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

// SeededCredentialStore returns an in-memory store already holding a pair,
// the state most client tests start from.
func SeededCredentialStore(access, refresh string) *core.MemoryCredentialStore {
	store := core.NewMemoryCredentialStore()
	if err := store.SetPair(context.Background(), core.CredentialPair{Access: access, Refresh: refresh}); err != nil {
		panic(fmt.Sprintf("devkit: seed credential store: %v", err))
	}
	return store
}

func AccountFixture(id string) core.Account {
	return core.Account{
		ID:        id,
		Name:      "Everyday Checking",
		Type:      core.AccountTypeChecking,
		Currency:  "USD",
		Balance:   decimal.New(248961, -2),
		CreatedAt: FixtureTime,
		UpdatedAt: FixtureTime,
	}
}

func TransactionFixture(id, accountID string) core.Transaction {
	return core.Transaction{
		ID:         id,
		AccountID:  accountID,
		Type:       core.TransactionTypeExpense,
		Amount:     decimal.New(4250, -2),
		Currency:   "USD",
		Category:   "groceries",
		Merchant:   "Safeway",
		OccurredAt: FixtureTime,
		CreatedAt:  FixtureTime,
		UpdatedAt:  FixtureTime,
	}
}

func BudgetFixture(id string) core.Budget {
	return core.Budget{
		ID:        id,
		Category:  "groceries",
		Period:    core.BudgetPeriodMonthly,
		Limit:     decimal.NewFromInt(600),
		Spent:     decimal.New(12035, -2),
		Currency:  "USD",
		StartsOn:  FixtureTime,
		CreatedAt: FixtureTime,
		UpdatedAt: FixtureTime,
	}
}

func IncomePlanFixture(id string) core.IncomePlan {
	return core.IncomePlan{
		ID:       id,
		Name:     "Salary",
		Amount:   decimal.NewFromInt(5000),
		Currency: "USD",
		Schedule: core.PaySchedule{
			Frequency: core.PayFrequencyMonthly,
			Anchor:    FixtureTime,
		},
		Active:    true,
		CreatedAt: FixtureTime,
		UpdatedAt: FixtureTime,
	}
}

func SyncJobFixture(id, resource string, mode core.SyncMode) core.SyncJob {
	return core.SyncJob{
		ID:         id,
		Resource:   resource,
		Mode:       mode,
		Status:     core.SyncJobQueued,
		EnqueuedAt: FixtureTime,
	}
}
