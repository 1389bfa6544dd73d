package florin_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	florin "github.com/goliatone/go-florin"
	"github.com/goliatone/go-florin/core"
	"github.com/goliatone/go-florin/devkit"
	"github.com/shopspring/decimal"
)

func TestTransactionsService_ListSendsWindowAndPaging(t *testing.T) {
	adapter := devkit.NewFakeTransportAdapter("scripted",
		devkit.ScriptPagedEnvelope(200,
			[]core.Transaction{devkit.TransactionFixture("tx_1", "acc_1")},
			core.Pagination{Page: 2, PageSize: 25, TotalItems: 40, TotalPages: 2},
		),
	)
	client := newScriptedClient(t, adapter)

	from := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	page, err := client.Transactions().List(context.Background(), core.ListTransactionsInput{
		AccountID: "acc_1",
		Category:  "groceries",
		From:      &from,
		To:        &to,
		Page:      2,
		PageSize:  25,
	})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Merchant != "Safeway" {
		t.Fatalf("expected decoded transactions, got %#v", page.Items)
	}

	req := adapter.Requests()[0]
	if req.URL != "https://api.florin.test/transactions" {
		t.Fatalf("unexpected URL %q", req.URL)
	}
	want := map[string]string{
		"accountId": "acc_1",
		"category":  "groceries",
		"from":      "2026-02-01T00:00:00Z",
		"to":        "2026-03-01T00:00:00Z",
		"page":      "2",
		"pageSize":  "25",
	}
	for key, value := range want {
		if req.Query[key] != value {
			t.Fatalf("expected query %s=%q, got %#v", key, value, req.Query)
		}
	}
}

func TestTransactionsService_CreateAppliesLocalRules(t *testing.T) {
	adapter := devkit.NewFakeTransportAdapter("scripted",
		devkit.ScriptEnvelope(201, devkit.TransactionFixture("tx_1", "acc_1")),
	)
	client := newScriptedClient(t, adapter, florin.WithCategoryRules(core.CategoryRule{
		ID:       "coffee_merchants",
		Field:    florin.RuleFieldMerchant,
		Pattern:  "starbucks",
		Category: "coffee",
	}))

	_, err := client.Transactions().Create(context.Background(), core.CreateTransactionInput{
		AccountID:  "acc_1",
		Type:       core.TransactionTypeExpense,
		Amount:     decimal.New(575, -2),
		Currency:   "USD",
		Merchant:   "Starbucks #204",
		OccurredAt: devkit.FixtureTime,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(adapter.Requests()[0].Body, &body); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if body["category"] != "coffee" {
		t.Fatalf("expected local rule to fill the category, got %#v", body)
	}
}

func TestTransactionsService_CreateKeepsExplicitCategory(t *testing.T) {
	adapter := devkit.NewFakeTransportAdapter("scripted",
		devkit.ScriptEnvelope(201, devkit.TransactionFixture("tx_1", "acc_1")),
	)
	client := newScriptedClient(t, adapter, florin.WithCategoryRules(core.CategoryRule{
		ID:       "coffee_merchants",
		Field:    florin.RuleFieldMerchant,
		Pattern:  "starbucks",
		Category: "coffee",
	}))

	_, err := client.Transactions().Create(context.Background(), core.CreateTransactionInput{
		AccountID:  "acc_1",
		Type:       core.TransactionTypeExpense,
		Amount:     decimal.New(575, -2),
		Currency:   "USD",
		Category:   "gifts",
		Merchant:   "Starbucks #204",
		OccurredAt: devkit.FixtureTime,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(adapter.Requests()[0].Body, &body); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if body["category"] != "gifts" {
		t.Fatalf("expected explicit category to win, got %#v", body)
	}
}

func TestTransactionsService_CreateValidatesInput(t *testing.T) {
	adapter := devkit.NewFakeTransportAdapter("scripted")
	client := newScriptedClient(t, adapter)

	cases := []core.CreateTransactionInput{
		{Type: core.TransactionTypeExpense, Amount: decimal.NewFromInt(5), Currency: "USD"},
		{AccountID: "acc_1", Type: core.TransactionTypeExpense, Currency: "USD"},
		{AccountID: "acc_1", Type: core.TransactionTypeExpense, Amount: decimal.NewFromInt(5)},
		{AccountID: "acc_1", Type: "refund", Amount: decimal.NewFromInt(5), Currency: "USD"},
	}
	for i, input := range cases {
		if _, err := client.Transactions().Create(context.Background(), input); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if len(adapter.Requests()) != 0 {
		t.Fatalf("expected no transport calls for invalid input")
	}
}

func TestTransactionsService_CategorizeRoutesAndValidates(t *testing.T) {
	adapter := devkit.NewFakeTransportAdapter("scripted",
		devkit.ScriptEnvelope(200, devkit.TransactionFixture("tx_1", "acc_1")),
	)
	client := newScriptedClient(t, adapter)
	ctx := context.Background()

	if _, err := client.Transactions().Categorize(ctx, "", "coffee"); !errors.Is(err, core.ErrResourceIDRequired) {
		t.Fatalf("expected id requirement, got %v", err)
	}
	if _, err := client.Transactions().Categorize(ctx, "tx_1", "  "); !errors.Is(err, core.ErrCategoryRequired) {
		t.Fatalf("expected category requirement, got %v", err)
	}

	if _, err := client.Transactions().Categorize(ctx, "tx_1", "coffee"); err != nil {
		t.Fatalf("categorize: %v", err)
	}
	req := adapter.Requests()[0]
	if req.Method != http.MethodPost || req.URL != "https://api.florin.test/transactions/tx_1/categorize" {
		t.Fatalf("unexpected route %s %s", req.Method, req.URL)
	}
	if string(req.Body) != `{"category":"coffee"}` {
		t.Fatalf("unexpected body %s", req.Body)
	}
}

func TestTransactionsService_DeleteSendsDelete(t *testing.T) {
	adapter := devkit.NewFakeTransportAdapter("scripted",
		devkit.ScriptEnvelope(200, nil),
	)
	client := newScriptedClient(t, adapter)

	if err := client.Transactions().Delete(context.Background(), "tx_1"); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	req := adapter.Requests()[0]
	if req.Method != http.MethodDelete || req.URL != "https://api.florin.test/transactions/tx_1" {
		t.Fatalf("unexpected route %s %s", req.Method, req.URL)
	}
	if req.Idempotency == "" {
		t.Fatalf("expected idempotency key on delete")
	}
}
