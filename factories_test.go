package florin

import (
	"context"
	"testing"

	"github.com/goliatone/go-florin/auth"
	"github.com/goliatone/go-florin/core"
	"github.com/goliatone/go-florin/ratelimit"
	"github.com/goliatone/go-florin/transport"

	job "github.com/goliatone/go-job"
)

func TestImplementationFactories(t *testing.T) {
	t.Run("rest transport", func(t *testing.T) {
		adapter := RESTTransportAdapter(nil)
		if adapter == nil {
			t.Fatalf("expected transport adapter")
		}
		if adapter.Kind() != transport.KindREST {
			t.Fatalf("expected %q kind, got %q", transport.KindREST, adapter.Kind())
		}
	})

	t.Run("default transport registry", func(t *testing.T) {
		registry := DefaultTransportRegistry()
		if _, ok := registry.Get(transport.KindREST); !ok {
			t.Fatalf("expected rest adapter in default registry")
		}
		reserved, err := registry.Build(transport.KindStream, nil)
		if err != nil {
			t.Fatalf("build reserved stream kind: %v", err)
		}
		if _, doErr := reserved.Do(context.Background(), core.TransportRequest{URL: "wss://api.florin.test/stream"}); doErr == nil {
			t.Fatalf("expected stream kind to reject pipeline exchanges")
		}
	})

	t.Run("auth exchange client", func(t *testing.T) {
		client, err := AuthExchangeClient(auth.ExchangeClientConfig{BaseURL: "https://api.florin.test"})
		if err != nil {
			t.Fatalf("factory error: %v", err)
		}
		if client == nil {
			t.Fatalf("expected auth client")
		}
		if _, err := AuthExchangeClient(auth.ExchangeClientConfig{}); err == nil {
			t.Fatalf("expected error without base url")
		}
	})

	t.Run("sql stores require a handle", func(t *testing.T) {
		if _, err := SQLCredentialStore(nil); err == nil {
			t.Fatalf("expected error without bun db")
		}
		if _, err := SQLSyncCursorStore(nil); err == nil {
			t.Fatalf("expected error without bun db")
		}
		if _, err := SQLSyncJobStore(nil); err == nil {
			t.Fatalf("expected error without bun db")
		}
		if _, err := SQLRepositoryFactory(nil); err == nil {
			t.Fatalf("expected error without bun db")
		}
	})

	t.Run("adaptive rate limit policy", func(t *testing.T) {
		policy := AdaptiveRateLimitPolicy(ratelimit.NewMemoryStateStore())
		if policy == nil {
			t.Fatalf("expected rate limit policy")
		}
		key := core.RateLimitKey{Group: "accounts", Method: "GET"}
		if err := policy.BeforeCall(context.Background(), key); err != nil {
			t.Fatalf("expected fresh bucket to admit the call: %v", err)
		}
	})

	t.Run("queue sync enqueuer", func(t *testing.T) {
		probe := &recordingQueueEnqueuer{}
		enqueuer := QueueSyncEnqueuer(probe)
		if enqueuer == nil {
			t.Fatalf("expected sync enqueuer")
		}
		err := enqueuer.Enqueue(context.Background(), core.SyncJob{
			ID:       "job_1",
			Resource: "transactions",
			Mode:     core.SyncModeIncremental,
			Status:   core.SyncJobQueued,
		})
		if err != nil {
			t.Fatalf("enqueue through factory-built adapter: %v", err)
		}
		if probe.last == nil || probe.last.JobID == "" {
			t.Fatalf("expected queue execution message")
		}
	})
}

type recordingQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (e *recordingQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	e.last = msg
	return nil
}
