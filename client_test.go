package florin_test

import (
	"context"
	"errors"
	"testing"
	"time"

	florin "github.com/goliatone/go-florin"
	"github.com/goliatone/go-florin/core"
	"github.com/goliatone/go-florin/devkit"
	florinsync "github.com/goliatone/go-florin/sync"
)

func newScriptedClient(t *testing.T, adapter *devkit.FakeTransportAdapter, options ...florin.ClientOption) *florin.Client {
	t.Helper()
	options = append([]florin.ClientOption{
		florin.WithServiceOptions(
			core.WithTransportAdapter(adapter),
			core.WithCredentialStore(devkit.SeededCredentialStore("access_1", "refresh_1")),
		),
	}, options...)
	client, err := florin.NewClient(core.Config{BaseURL: "https://api.florin.test"}, options...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClient_ChannelAssemblyFollowsStreamURL(t *testing.T) {
	plain := newScriptedClient(t, devkit.NewFakeTransportAdapter("scripted"))
	if plain.Channel() != nil || plain.ChannelDispatcher() != nil {
		t.Fatalf("expected no channel without a stream url")
	}
	if plain.ChannelState() != core.ChannelDisconnected {
		t.Fatalf("expected disconnected state, got %v", plain.ChannelState())
	}
	if err := plain.ConnectChannel(context.Background()); !errors.Is(err, florin.ErrChannelNotConfigured) {
		t.Fatalf("expected channel-not-configured error, got %v", err)
	}
	if err := plain.DisconnectChannel(); !errors.Is(err, florin.ErrChannelNotConfigured) {
		t.Fatalf("expected channel-not-configured error, got %v", err)
	}
	if err := plain.PublishChannel(context.Background(), core.ChannelMessage{Type: "ping"}); !errors.Is(err, florin.ErrChannelNotConfigured) {
		t.Fatalf("expected channel-not-configured error, got %v", err)
	}

	streaming, err := florin.NewClient(core.Config{
		BaseURL: "https://api.florin.test",
		Channel: core.ChannelConfig{StreamURL: "wss://stream.florin.test/ws"},
	}, florin.WithServiceOptions(
		core.WithTransportAdapter(devkit.NewFakeTransportAdapter("scripted")),
		core.WithCredentialStore(devkit.SeededCredentialStore("access_1", "refresh_1")),
	))
	if err != nil {
		t.Fatalf("new streaming client: %v", err)
	}
	if streaming.Channel() == nil || streaming.ChannelDispatcher() == nil {
		t.Fatalf("expected channel assembly with a stream url")
	}
	if streaming.ChannelState() != core.ChannelDisconnected {
		t.Fatalf("expected disconnected state before connect, got %v", streaming.ChannelState())
	}

	suppressed, err := florin.NewClient(core.Config{
		BaseURL: "https://api.florin.test",
		Channel: core.ChannelConfig{StreamURL: "wss://stream.florin.test/ws"},
	},
		florin.WithServiceOptions(
			core.WithTransportAdapter(devkit.NewFakeTransportAdapter("scripted")),
			core.WithCredentialStore(devkit.SeededCredentialStore("access_1", "refresh_1")),
		),
		florin.WithoutChannel(),
	)
	if err != nil {
		t.Fatalf("new suppressed client: %v", err)
	}
	if suppressed.Channel() != nil {
		t.Fatalf("expected channel suppression to win over the stream url")
	}
}

func TestClient_StartSyncDispatchesByMode(t *testing.T) {
	client := newScriptedClient(t, devkit.NewFakeTransportAdapter("scripted"))
	ctx := context.Background()

	incremental, err := client.StartSync(ctx, core.StartSyncInput{Resource: "transactions"})
	if err != nil {
		t.Fatalf("start incremental: %v", err)
	}
	if incremental.Mode != core.SyncModeIncremental || incremental.Status != core.SyncJobQueued {
		t.Fatalf("expected queued incremental job, got %#v", incremental)
	}

	bootstrap, err := client.StartSync(ctx, core.StartSyncInput{
		Resource: "accounts",
		Mode:     core.SyncModeBootstrap,
	})
	if err != nil {
		t.Fatalf("start bootstrap: %v", err)
	}
	if bootstrap.Mode != core.SyncModeBootstrap {
		t.Fatalf("expected bootstrap job, got %#v", bootstrap)
	}

	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	backfill, err := client.StartSync(ctx, core.StartSyncInput{
		Resource: "transactions",
		Mode:     core.SyncModeBackfill,
		From:     &from,
		To:       &to,
	})
	if err != nil {
		t.Fatalf("start backfill: %v", err)
	}
	if backfill.Mode != core.SyncModeBackfill {
		t.Fatalf("expected backfill job, got %#v", backfill)
	}

	if _, err := client.StartSync(ctx, core.StartSyncInput{}); err == nil {
		t.Fatalf("expected resource validation error")
	}
	if _, err := client.StartSync(ctx, core.StartSyncInput{Resource: "accounts", Mode: "weekly"}); err == nil {
		t.Fatalf("expected mode validation error")
	}
}

func TestClient_FetchPageQueriesSyncEndpoint(t *testing.T) {
	adapter := devkit.NewFakeTransportAdapter("scripted",
		devkit.ScriptEnvelope(200, map[string]any{
			"items":      []any{map[string]string{"id": "t_1"}, map[string]string{"id": "t_2"}},
			"nextCursor": "cur_2",
			"hasMore":    true,
		}),
	)
	client := newScriptedClient(t, adapter)

	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	page, err := client.FetchPage(context.Background(), florinsync.PageRequest{
		Resource: "transactions",
		Cursor:   "cur_1",
		Limit:    25,
		From:     &from,
	})
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor != "cur_2" || !page.HasMore {
		t.Fatalf("expected decoded page, got %#v", page)
	}

	requests := adapter.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected one transport call, got %d", len(requests))
	}
	req := requests[0]
	if req.URL != "https://api.florin.test/sync/transactions" {
		t.Fatalf("unexpected URL %q", req.URL)
	}
	if req.Query["cursor"] != "cur_1" || req.Query["limit"] != "25" {
		t.Fatalf("expected cursor and limit in query, got %#v", req.Query)
	}
	if req.Query["from"] != "2026-03-01T00:00:00Z" {
		t.Fatalf("expected window start in query, got %#v", req.Query)
	}

	if _, err := client.FetchPage(context.Background(), florinsync.PageRequest{}); !errors.Is(err, core.ErrSyncResourceRequired) {
		t.Fatalf("expected resource requirement, got %v", err)
	}
}

func TestClient_RunSyncAppliesPagesAndAdvancesCursor(t *testing.T) {
	adapter := devkit.NewFakeTransportAdapter("scripted",
		devkit.ScriptEnvelope(200, map[string]any{
			"items":      []any{map[string]string{"id": "t_1"}, map[string]string{"id": "t_2"}},
			"nextCursor": "cur_2",
			"hasMore":    true,
		}),
		devkit.ScriptEnvelope(200, map[string]any{
			"items":      []any{map[string]string{"id": "t_3"}},
			"nextCursor": "cur_3",
			"hasMore":    false,
		}),
	)

	var applied int
	var appliedResource string
	client := newScriptedClient(t, adapter, florin.WithSyncApplier(
		florinsync.ApplierFunc(func(_ context.Context, resource string, page florinsync.Page) error {
			appliedResource = resource
			applied += len(page.Items)
			return nil
		}),
	))

	ctx := context.Background()
	job, err := client.StartSync(ctx, core.StartSyncInput{Resource: "transactions"})
	if err != nil {
		t.Fatalf("start sync: %v", err)
	}
	done, err := client.RunSync(ctx, job.ID)
	if err != nil {
		t.Fatalf("run sync: %v", err)
	}
	if done.Status != core.SyncJobCompleted {
		t.Fatalf("expected completed job, got %q (%s)", done.Status, done.Error)
	}
	if applied != 3 || appliedResource != "transactions" {
		t.Fatalf("expected 3 applied items for transactions, got %d for %q", applied, appliedResource)
	}

	requests := adapter.Requests()
	if len(requests) != 2 {
		t.Fatalf("expected two page fetches, got %d", len(requests))
	}
	if cursor, ok := requests[0].Query["cursor"]; ok {
		t.Fatalf("expected first incremental walk to start without a cursor, got %q", cursor)
	}
	if requests[1].Query["cursor"] != "cur_2" {
		t.Fatalf("expected second fetch to resume from page cursor, got %#v", requests[1].Query)
	}

	stored, err := client.Sync().Cursors.Get(ctx, "transactions")
	if err != nil {
		t.Fatalf("read committed cursor: %v", err)
	}
	if stored.Cursor != "cur_3" || stored.Status != core.SyncStatusIdle {
		t.Fatalf("expected idle cursor at cur_3, got %#v", stored)
	}
}

func TestNewClient_CategoryRulesWireCategorizer(t *testing.T) {
	client := newScriptedClient(t, devkit.NewFakeTransportAdapter("scripted"),
		florin.WithCategoryRules(core.CategoryRule{
			ID:       "grocer",
			Pattern:  "safeway",
			Category: "groceries",
		}),
	)
	categorizer := client.Categorizer()
	if categorizer == nil {
		t.Fatalf("expected categorizer with registered rules")
	}
	if category, ok := categorizer.Match("SAFEWAY #42", ""); !ok || category != "groceries" {
		t.Fatalf("expected rule match, got %q (%v)", category, ok)
	}

	bare := newScriptedClient(t, devkit.NewFakeTransportAdapter("scripted"))
	if bare.Categorizer() != nil {
		t.Fatalf("expected no categorizer without rules")
	}

	_, err := florin.NewClient(core.Config{BaseURL: "https://api.florin.test"},
		florin.WithServiceOptions(
			core.WithTransportAdapter(devkit.NewFakeTransportAdapter("scripted")),
			core.WithCredentialStore(devkit.SeededCredentialStore("access_1", "refresh_1")),
		),
		florin.WithCategoryRules(core.CategoryRule{ID: "bad", Pattern: "[", Category: "x"}),
	)
	if err == nil {
		t.Fatalf("expected rule compilation error")
	}
}
