package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-florin/core"
)

func TestOrchestrator_StartIncrementalQueuesAndHandsOff(t *testing.T) {
	jobs := NewMemoryJobStore()
	enqueuer := &stubEnqueuer{}
	orchestrator := NewOrchestrator(jobs, core.NewMemorySyncCursorStore(), nil, nil)
	orchestrator.Enqueuer = enqueuer

	job, err := orchestrator.StartIncremental(context.Background(), IncrementalRequest{
		Resource: " Transactions ",
		Metadata: map[string]any{"reason": "scheduled"},
	})
	if err != nil {
		t.Fatalf("start incremental: %v", err)
	}
	if job.Resource != "transactions" {
		t.Fatalf("expected normalized resource, got %q", job.Resource)
	}
	if job.Mode != core.SyncModeIncremental {
		t.Fatalf("expected incremental mode, got %q", job.Mode)
	}
	if job.Status != core.SyncJobQueued {
		t.Fatalf("expected queued status, got %q", job.Status)
	}
	if job.Metadata["reason"] != "scheduled" {
		t.Fatalf("expected request metadata to persist")
	}
	if len(enqueuer.jobs) != 1 || enqueuer.jobs[0].ID != job.ID {
		t.Fatalf("expected the queued job to reach the enqueuer")
	}
}

func TestOrchestrator_StartRequiresResource(t *testing.T) {
	orchestrator := NewOrchestrator(NewMemoryJobStore(), core.NewMemorySyncCursorStore(), nil, nil)

	if _, err := orchestrator.StartBootstrap(context.Background(), BootstrapRequest{Resource: "  "}); !errors.Is(err, core.ErrSyncResourceRequired) {
		t.Fatalf("expected ErrSyncResourceRequired, got %v", err)
	}
}

func TestOrchestrator_StartEnqueueFailureMarksJobFailed(t *testing.T) {
	jobs := NewMemoryJobStore()
	orchestrator := NewOrchestrator(jobs, core.NewMemorySyncCursorStore(), nil, nil)
	orchestrator.Enqueuer = &stubEnqueuer{err: errors.New("queue down")}

	_, err := orchestrator.StartBootstrap(context.Background(), BootstrapRequest{Resource: "accounts"})
	if err == nil || !strings.Contains(err.Error(), "queue down") {
		t.Fatalf("expected enqueue failure, got %v", err)
	}

	listed, listErr := jobs.ListByStatus(context.Background(), core.SyncJobFailed, 10)
	if listErr != nil {
		t.Fatalf("list failed jobs: %v", listErr)
	}
	if len(listed) != 1 || listed[0].Error == "" {
		t.Fatalf("expected one failed job carrying the enqueue error, got %+v", listed)
	}
}

func TestOrchestrator_StartIdempotencyKeyReturnsExistingJob(t *testing.T) {
	jobs := NewMemoryJobStore()
	enqueuer := &stubEnqueuer{}
	orchestrator := NewOrchestrator(jobs, core.NewMemorySyncCursorStore(), nil, nil)
	orchestrator.Enqueuer = enqueuer

	first, err := orchestrator.StartIncremental(context.Background(), IncrementalRequest{
		Resource:       "transactions",
		IdempotencyKey: "nightly-2026-02-01",
	})
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := orchestrator.StartIncremental(context.Background(), IncrementalRequest{
		Resource:       "transactions",
		IdempotencyKey: "nightly-2026-02-01",
	})
	if err != nil {
		t.Fatalf("replayed start: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the replay to return the original job, got %s and %s", first.ID, second.ID)
	}
	if len(enqueuer.jobs) != 1 {
		t.Fatalf("expected a single queue handoff, got %d", len(enqueuer.jobs))
	}
}

func TestOrchestrator_RunBootstrapAdvancesCursorPerCommittedPage(t *testing.T) {
	jobs := NewMemoryJobStore()
	cursors := core.NewMemorySyncCursorStore()

	pages := []Page{
		{Items: rawItems(`{"id":"t_1"}`, `{"id":"t_2"}`), NextCursor: "c1", HasMore: true},
		{Items: rawItems(`{"id":"t_3"}`), NextCursor: "c2"},
	}
	var requests []PageRequest
	fetcher := FetcherFunc(func(_ context.Context, req PageRequest) (Page, error) {
		requests = append(requests, req)
		if len(requests) > len(pages) {
			return Page{}, fmt.Errorf("unexpected fetch %d", len(requests))
		}
		return pages[len(requests)-1], nil
	})

	var seenAtApply []string
	applier := ApplierFunc(func(ctx context.Context, resource string, _ Page) error {
		stored, err := cursors.Get(ctx, resource)
		if err != nil {
			return err
		}
		seenAtApply = append(seenAtApply, stored.Cursor)
		return nil
	})

	orchestrator := NewOrchestrator(jobs, cursors, fetcher, applier)
	job, err := orchestrator.StartBootstrap(context.Background(), BootstrapRequest{Resource: "transactions"})
	if err != nil {
		t.Fatalf("start bootstrap: %v", err)
	}

	done, err := orchestrator.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("run bootstrap: %v", err)
	}
	if done.Status != core.SyncJobCompleted {
		t.Fatalf("expected completed job, got %q", done.Status)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Fatalf("expected run timestamps on the job")
	}
	if done.Metadata["pages"] != 2 || done.Metadata["items"] != 3 {
		t.Fatalf("expected page accounting in metadata, got %+v", done.Metadata)
	}

	if len(requests) != 2 {
		t.Fatalf("expected two fetches, got %d", len(requests))
	}
	if requests[0].Cursor != "" || requests[1].Cursor != "c1" {
		t.Fatalf("expected the walk to chain cursors, got %+v", requests)
	}
	if requests[0].Mode != core.SyncModeBootstrap {
		t.Fatalf("expected bootstrap mode on page requests")
	}

	// The stored cursor at apply time must still be the pre-page position.
	if len(seenAtApply) != 2 || seenAtApply[0] != "" || seenAtApply[1] != "c1" {
		t.Fatalf("expected cursor to advance only after apply, saw %v", seenAtApply)
	}

	final, err := cursors.Get(context.Background(), "transactions")
	if err != nil {
		t.Fatalf("load final cursor: %v", err)
	}
	if final.Cursor != "c2" {
		t.Fatalf("expected final cursor c2, got %q", final.Cursor)
	}
	if final.Status != core.SyncStatusIdle {
		t.Fatalf("expected idle cursor after the run, got %q", final.Status)
	}
	if final.LastSyncedAt == nil {
		t.Fatalf("expected LastSyncedAt to be stamped")
	}
}

func TestOrchestrator_RunIncrementalResumesFromStoredCursor(t *testing.T) {
	jobs := NewMemoryJobStore()
	cursors := core.NewMemorySyncCursorStore()
	if _, err := cursors.Upsert(context.Background(), core.UpsertSyncCursorInput{
		Resource: "transactions",
		Cursor:   "c5",
		Status:   string(core.SyncStatusIdle),
	}); err != nil {
		t.Fatalf("seed cursor: %v", err)
	}

	var first PageRequest
	fetcher := FetcherFunc(func(_ context.Context, req PageRequest) (Page, error) {
		if first.Resource == "" {
			first = req
		}
		return Page{NextCursor: "c6"}, nil
	})
	orchestrator := NewOrchestrator(jobs, cursors, fetcher, noopApplier())
	orchestrator.PageSize = 25

	job, err := orchestrator.StartIncremental(context.Background(), IncrementalRequest{Resource: "transactions"})
	if err != nil {
		t.Fatalf("start incremental: %v", err)
	}
	if _, err := orchestrator.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run incremental: %v", err)
	}

	if first.Cursor != "c5" {
		t.Fatalf("expected the walk to resume from c5, got %q", first.Cursor)
	}
	if first.Limit != 25 {
		t.Fatalf("expected the configured page size, got %d", first.Limit)
	}

	final, err := cursors.Get(context.Background(), "transactions")
	if err != nil {
		t.Fatalf("load final cursor: %v", err)
	}
	if final.Cursor != "c6" || final.Status != core.SyncStatusIdle {
		t.Fatalf("expected cursor c6 idle, got %q %q", final.Cursor, final.Status)
	}
}

func TestOrchestrator_RunFailedApplyKeepsCommittedCursor(t *testing.T) {
	jobs := NewMemoryJobStore()
	cursors := core.NewMemorySyncCursorStore()

	pages := []Page{
		{Items: rawItems(`{"id":"t_1"}`), NextCursor: "c1", HasMore: true},
		{Items: rawItems(`{"id":"t_2"}`), NextCursor: "c2"},
	}
	calls := 0
	fetcher := FetcherFunc(func(_ context.Context, _ PageRequest) (Page, error) {
		calls++
		return pages[calls-1], nil
	})
	applier := ApplierFunc(func(_ context.Context, _ string, page Page) error {
		if string(page.Items[0]) == `{"id":"t_2"}` {
			return errors.New("ledger rejected the page")
		}
		return nil
	})

	orchestrator := NewOrchestrator(jobs, cursors, fetcher, applier)
	job, err := orchestrator.StartBootstrap(context.Background(), BootstrapRequest{Resource: "transactions"})
	if err != nil {
		t.Fatalf("start bootstrap: %v", err)
	}

	failed, err := orchestrator.Run(context.Background(), job.ID)
	if err == nil {
		t.Fatalf("expected the run to fail")
	}
	if failed.Status != core.SyncJobFailed {
		t.Fatalf("expected failed job, got %q", failed.Status)
	}
	if !strings.Contains(failed.Error, "ledger rejected") {
		t.Fatalf("expected the cause on the job, got %q", failed.Error)
	}
	if failed.Metadata["pages"] != 1 {
		t.Fatalf("expected one committed page, got %+v", failed.Metadata)
	}

	stored, err := cursors.Get(context.Background(), "transactions")
	if err != nil {
		t.Fatalf("load cursor: %v", err)
	}
	if stored.Cursor != "c1" {
		t.Fatalf("expected cursor held at the last committed page, got %q", stored.Cursor)
	}
	if stored.Status != core.SyncStatusError {
		t.Fatalf("expected error status on the cursor, got %q", stored.Status)
	}
}

func TestOrchestrator_RunBackfillLeavesStoredCursorAlone(t *testing.T) {
	jobs := NewMemoryJobStore()
	cursors := core.NewMemorySyncCursorStore()
	if _, err := cursors.Upsert(context.Background(), core.UpsertSyncCursorInput{
		Resource: "transactions",
		Cursor:   "c9",
		Status:   string(core.SyncStatusIdle),
	}); err != nil {
		t.Fatalf("seed cursor: %v", err)
	}

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	var seen PageRequest
	fetcher := FetcherFunc(func(_ context.Context, req PageRequest) (Page, error) {
		seen = req
		return Page{Items: rawItems(`{"id":"t_old"}`)}, nil
	})

	orchestrator := NewOrchestrator(jobs, cursors, fetcher, noopApplier())
	job, err := orchestrator.StartBackfill(context.Background(), BackfillRequest{
		Resource: "transactions",
		From:     &from,
		To:       &to,
	})
	if err != nil {
		t.Fatalf("start backfill: %v", err)
	}
	done, err := orchestrator.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("run backfill: %v", err)
	}
	if done.Status != core.SyncJobCompleted {
		t.Fatalf("expected completed backfill, got %q", done.Status)
	}

	if seen.Mode != core.SyncModeBackfill {
		t.Fatalf("expected backfill mode, got %q", seen.Mode)
	}
	if seen.From == nil || !seen.From.Equal(from) {
		t.Fatalf("expected window start %v, got %v", from, seen.From)
	}
	if seen.To == nil || !seen.To.Equal(to) {
		t.Fatalf("expected window end %v, got %v", to, seen.To)
	}

	stored, err := cursors.Get(context.Background(), "transactions")
	if err != nil {
		t.Fatalf("load cursor: %v", err)
	}
	if stored.Cursor != "c9" || stored.Status != core.SyncStatusIdle {
		t.Fatalf("expected untouched cursor, got %q %q", stored.Cursor, stored.Status)
	}
}

func TestOrchestrator_RunRejectsCompletedJob(t *testing.T) {
	jobs := NewMemoryJobStore()
	cursors := core.NewMemorySyncCursorStore()
	fetcher := FetcherFunc(func(_ context.Context, _ PageRequest) (Page, error) {
		return Page{}, nil
	})

	orchestrator := NewOrchestrator(jobs, cursors, fetcher, noopApplier())
	job, err := orchestrator.StartBootstrap(context.Background(), BootstrapRequest{Resource: "budgets"})
	if err != nil {
		t.Fatalf("start bootstrap: %v", err)
	}
	if _, err := orchestrator.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := orchestrator.Run(context.Background(), job.ID); !errors.Is(err, core.ErrInvalidStatusTransition) {
		t.Fatalf("expected a rejected second run, got %v", err)
	}
}

func TestOrchestrator_RequeueFailedJobClearsRunState(t *testing.T) {
	jobs := NewMemoryJobStore()
	cursors := core.NewMemorySyncCursorStore()
	fetcher := FetcherFunc(func(_ context.Context, _ PageRequest) (Page, error) {
		return Page{}, errors.New("remote unavailable")
	})

	enqueuer := &stubEnqueuer{}
	orchestrator := NewOrchestrator(jobs, cursors, fetcher, noopApplier())
	job, err := orchestrator.StartIncremental(context.Background(), IncrementalRequest{Resource: "accounts"})
	if err != nil {
		t.Fatalf("start incremental: %v", err)
	}
	if _, err := orchestrator.Run(context.Background(), job.ID); err == nil {
		t.Fatalf("expected the run to fail")
	}

	orchestrator.Enqueuer = enqueuer
	requeued, err := orchestrator.Requeue(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if requeued.Status != core.SyncJobQueued {
		t.Fatalf("expected queued status, got %q", requeued.Status)
	}
	if requeued.Error != "" || requeued.StartedAt != nil || requeued.CompletedAt != nil {
		t.Fatalf("expected run state to be cleared, got %+v", requeued)
	}
	if len(enqueuer.jobs) != 1 {
		t.Fatalf("expected the requeued job to reach the enqueuer")
	}
}

type stubEnqueuer struct {
	jobs []core.SyncJob
	err  error
}

func (s *stubEnqueuer) Enqueue(_ context.Context, job core.SyncJob) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func noopApplier() Applier {
	return ApplierFunc(func(context.Context, string, Page) error {
		return nil
	})
}

func rawItems(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		out = append(out, json.RawMessage(item))
	}
	return out
}

