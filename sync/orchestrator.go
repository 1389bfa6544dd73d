package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-florin/core"
	"github.com/google/uuid"
)

// JobStore persists sync job lifecycle records.
type JobStore interface {
	Create(ctx context.Context, job core.SyncJob) (core.SyncJob, error)
	Get(ctx context.Context, id string) (core.SyncJob, error)
	Update(ctx context.Context, job core.SyncJob) (core.SyncJob, error)
}

// IdempotentJobStore is an optional JobStore upgrade. CreateIdempotent
// returns the existing job and created=false when the key was seen before.
type IdempotentJobStore interface {
	JobStore
	CreateIdempotent(ctx context.Context, job core.SyncJob, idempotencyKey string) (core.SyncJob, bool, error)
}

// JobEnqueuer hands a queued job to a background queue for execution.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job core.SyncJob) error
}

// PageRequest identifies the next chunk a fetcher should pull. From and To
// bound backfill windows and stay nil for bootstrap and incremental runs.
type PageRequest struct {
	Resource string
	Mode     core.SyncMode
	Cursor   string
	Limit    int
	From     *time.Time
	To       *time.Time
}

// Page is one fetched chunk of a resource collection. NextCursor is the
// position after this page; HasMore signals another page follows.
type Page struct {
	Items      []json.RawMessage
	NextCursor string
	HasMore    bool
}

// Fetcher pulls pages of a resource collection from the remote API.
type Fetcher interface {
	FetchPage(ctx context.Context, req PageRequest) (Page, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req PageRequest) (Page, error)

func (f FetcherFunc) FetchPage(ctx context.Context, req PageRequest) (Page, error) {
	return f(ctx, req)
}

// Applier commits one fetched page into the host application. The stored
// cursor advances only after ApplyPage returns nil.
type Applier interface {
	ApplyPage(ctx context.Context, resource string, page Page) error
}

// ApplierFunc adapts a function to the Applier interface.
type ApplierFunc func(ctx context.Context, resource string, page Page) error

func (f ApplierFunc) ApplyPage(ctx context.Context, resource string, page Page) error {
	return f(ctx, resource, page)
}

// BootstrapRequest asks for a full walk of a resource collection from the
// start, rebuilding the stored cursor as pages commit.
type BootstrapRequest struct {
	Resource       string
	IdempotencyKey string
	Metadata       map[string]any
}

// IncrementalRequest resumes a resource collection from its stored cursor.
type IncrementalRequest struct {
	Resource       string
	IdempotencyKey string
	Metadata       map[string]any
}

// BackfillRequest replays a bounded window of a resource collection without
// moving the stored incremental cursor.
type BackfillRequest struct {
	Resource       string
	From           *time.Time
	To             *time.Time
	IdempotencyKey string
	Metadata       map[string]any
}

const defaultPageSize = 100

// Orchestrator drives sync runs: it records job rows, walks remote pages
// through the Fetcher, commits them through the Applier, and advances the
// durable cursor after each committed page.
type Orchestrator struct {
	Jobs    JobStore
	Cursors core.SyncCursorStore
	Fetcher Fetcher
	Applier Applier

	// Enqueuer is optional. When set, Start* hands the queued job to the
	// background queue; otherwise callers invoke Run themselves.
	Enqueuer JobEnqueuer

	// PageSize caps items per fetched page. Zero means defaultPageSize.
	PageSize int

	Now func() time.Time
}

func NewOrchestrator(jobs JobStore, cursors core.SyncCursorStore, fetcher Fetcher, applier Applier) *Orchestrator {
	return &Orchestrator{
		Jobs:    jobs,
		Cursors: cursors,
		Fetcher: fetcher,
		Applier: applier,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (o *Orchestrator) StartBootstrap(ctx context.Context, req BootstrapRequest) (core.SyncJob, error) {
	return o.start(ctx, core.SyncJob{
		Resource: req.Resource,
		Mode:     core.SyncModeBootstrap,
	}, req.IdempotencyKey, req.Metadata)
}

func (o *Orchestrator) StartIncremental(ctx context.Context, req IncrementalRequest) (core.SyncJob, error) {
	return o.start(ctx, core.SyncJob{
		Resource: req.Resource,
		Mode:     core.SyncModeIncremental,
	}, req.IdempotencyKey, req.Metadata)
}

func (o *Orchestrator) StartBackfill(ctx context.Context, req BackfillRequest) (core.SyncJob, error) {
	metadata := map[string]any{}
	if req.From != nil {
		metadata[metadataKeyFrom] = req.From.UTC().Format(time.RFC3339Nano)
	}
	if req.To != nil {
		metadata[metadataKeyTo] = req.To.UTC().Format(time.RFC3339Nano)
	}
	return o.start(ctx, core.SyncJob{
		Resource: req.Resource,
		Mode:     core.SyncModeBackfill,
		Metadata: metadata,
	}, req.IdempotencyKey, req.Metadata)
}

// Run executes a queued job to completion: queued -> running, then the page
// walk, then completed or failed. The failed job records the cause in Error.
func (o *Orchestrator) Run(ctx context.Context, jobID string) (core.SyncJob, error) {
	if o == nil || o.Jobs == nil {
		return core.SyncJob{}, fmt.Errorf("sync: orchestrator requires a job store")
	}
	if o.Fetcher == nil || o.Applier == nil {
		return core.SyncJob{}, fmt.Errorf("sync: orchestrator requires a fetcher and an applier")
	}
	job, err := o.Jobs.Get(ctx, strings.TrimSpace(jobID))
	if err != nil {
		return core.SyncJob{}, err
	}
	from := job.Status
	if err := job.TransitionTo(core.SyncJobRunning, o.now()); err != nil {
		return core.SyncJob{}, fmt.Errorf("sync: job %s cannot start from status %q: %w", job.ID, from, err)
	}
	job, err = o.Jobs.Update(ctx, job)
	if err != nil {
		return core.SyncJob{}, err
	}

	progress, walkErr := o.walk(ctx, job)
	job.Metadata = mergeAnyMap(job.Metadata, progress.metadata())
	if walkErr != nil {
		job.Error = walkErr.Error()
		if err := job.TransitionTo(core.SyncJobFailed, o.now()); err != nil {
			return core.SyncJob{}, err
		}
		if updated, err := o.Jobs.Update(ctx, job); err == nil {
			job = updated
		}
		o.markCursorError(ctx, job, progress)
		return job, walkErr
	}

	if err := job.TransitionTo(core.SyncJobCompleted, o.now()); err != nil {
		return core.SyncJob{}, err
	}
	return o.Jobs.Update(ctx, job)
}

// Requeue returns a failed job to the queue. Completed jobs are left alone;
// queued jobs are only re-handed to the enqueuer.
func (o *Orchestrator) Requeue(ctx context.Context, jobID string) (core.SyncJob, error) {
	if o == nil || o.Jobs == nil {
		return core.SyncJob{}, fmt.Errorf("sync: orchestrator requires a job store")
	}
	job, err := o.Jobs.Get(ctx, strings.TrimSpace(jobID))
	if err != nil {
		return core.SyncJob{}, err
	}
	switch job.Status {
	case core.SyncJobCompleted:
		return job, nil
	case core.SyncJobQueued:
	case core.SyncJobFailed:
		if err := job.TransitionTo(core.SyncJobQueued, o.now()); err != nil {
			return core.SyncJob{}, err
		}
		job, err = o.Jobs.Update(ctx, job)
		if err != nil {
			return core.SyncJob{}, err
		}
	default:
		return core.SyncJob{}, fmt.Errorf("sync: job %s is %s and cannot be requeued", job.ID, job.Status)
	}
	if o.Enqueuer != nil {
		if err := o.Enqueuer.Enqueue(ctx, job); err != nil {
			return core.SyncJob{}, fmt.Errorf("sync: enqueue job %s: %w", job.ID, err)
		}
	}
	return job, nil
}

func (o *Orchestrator) start(
	ctx context.Context,
	job core.SyncJob,
	idempotencyKey string,
	metadata map[string]any,
) (core.SyncJob, error) {
	if o == nil || o.Jobs == nil {
		return core.SyncJob{}, fmt.Errorf("sync: orchestrator requires a job store")
	}
	job.Resource = strings.ToLower(strings.TrimSpace(job.Resource))
	if job.Resource == "" {
		return core.SyncJob{}, core.ErrSyncResourceRequired
	}

	job.ID = uuid.NewString()
	job.Status = core.SyncJobQueued
	job.EnqueuedAt = o.now()
	job.Metadata = mergeAnyMap(job.Metadata, metadata)

	var created core.SyncJob
	var err error
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if store, ok := o.Jobs.(IdempotentJobStore); ok && idempotencyKey != "" {
		var fresh bool
		created, fresh, err = store.CreateIdempotent(ctx, job, idempotencyKey)
		if err != nil {
			return core.SyncJob{}, err
		}
		if !fresh {
			// Replayed enqueue: the earlier job already owns the key.
			return created, nil
		}
	} else {
		created, err = o.Jobs.Create(ctx, job)
		if err != nil {
			return core.SyncJob{}, err
		}
	}

	if o.Enqueuer != nil {
		if err := o.Enqueuer.Enqueue(ctx, created); err != nil {
			enqueueErr := fmt.Errorf("sync: enqueue job %s: %w", created.ID, err)
			created.Error = enqueueErr.Error()
			if terr := created.TransitionTo(core.SyncJobFailed, o.now()); terr == nil {
				if _, uerr := o.Jobs.Update(ctx, created); uerr != nil {
					return core.SyncJob{}, errors.Join(enqueueErr, uerr)
				}
			}
			return core.SyncJob{}, enqueueErr
		}
	}
	return created, nil
}

type walkProgress struct {
	pages  int
	items  int
	cursor string
}

func (p walkProgress) metadata() map[string]any {
	return map[string]any{
		"pages": p.pages,
		"items": p.items,
	}
}

func (o *Orchestrator) walk(ctx context.Context, job core.SyncJob) (walkProgress, error) {
	var progress walkProgress

	// Backfill replays a window and leaves the incremental cursor alone.
	advancing := job.Mode != core.SyncModeBackfill
	if advancing && o.Cursors == nil {
		return progress, fmt.Errorf("sync: orchestrator requires a cursor store for %s runs", job.Mode)
	}

	cursor := ""
	if job.Mode == core.SyncModeIncremental {
		stored, err := o.Cursors.Get(ctx, job.Resource)
		switch {
		case err == nil:
			cursor = stored.Cursor
		case errors.Is(err, core.ErrSyncCursorNotFound):
			// First incremental run walks from the start.
		default:
			return progress, err
		}
	}
	progress.cursor = cursor

	if advancing {
		if _, err := o.Cursors.Upsert(ctx, core.UpsertSyncCursorInput{
			Resource: job.Resource,
			Cursor:   cursor,
			Status:   string(core.SyncStatusSyncing),
		}); err != nil {
			return progress, err
		}
	}

	from := parseWindowTime(job.Metadata, metadataKeyFrom)
	to := parseWindowTime(job.Metadata, metadataKeyTo)

	for {
		if err := ctx.Err(); err != nil {
			return progress, err
		}
		page, err := o.Fetcher.FetchPage(ctx, PageRequest{
			Resource: job.Resource,
			Mode:     job.Mode,
			Cursor:   cursor,
			Limit:    o.pageSize(),
			From:     from,
			To:       to,
		})
		if err != nil {
			return progress, err
		}
		if err := o.Applier.ApplyPage(ctx, job.Resource, page); err != nil {
			return progress, err
		}
		progress.pages++
		progress.items += len(page.Items)

		if advancing {
			now := o.now()
			if _, err := o.Cursors.Advance(ctx, core.AdvanceSyncCursorInput{
				Resource:       job.Resource,
				ExpectedCursor: cursor,
				Cursor:         page.NextCursor,
				Status:         string(core.SyncStatusSyncing),
				LastSyncedAt:   &now,
			}); err != nil {
				return progress, err
			}
		}
		cursor = page.NextCursor
		progress.cursor = cursor

		if !page.HasMore {
			break
		}
	}

	if advancing {
		now := o.now()
		if _, err := o.Cursors.Upsert(ctx, core.UpsertSyncCursorInput{
			Resource:     job.Resource,
			Cursor:       cursor,
			Status:       string(core.SyncStatusIdle),
			LastSyncedAt: &now,
		}); err != nil {
			return progress, err
		}
	}
	return progress, nil
}

// markCursorError flags the collection without moving the committed cursor.
func (o *Orchestrator) markCursorError(ctx context.Context, job core.SyncJob, progress walkProgress) {
	if o.Cursors == nil || job.Mode == core.SyncModeBackfill {
		return
	}
	_, _ = o.Cursors.Upsert(ctx, core.UpsertSyncCursorInput{
		Resource: job.Resource,
		Cursor:   progress.cursor,
		Status:   string(core.SyncStatusError),
	})
}

func (o *Orchestrator) pageSize() int {
	if o != nil && o.PageSize > 0 {
		return o.PageSize
	}
	return defaultPageSize
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

const (
	metadataKeyFrom = "from"
	metadataKeyTo   = "to"
)

func parseWindowTime(metadata map[string]any, key string) *time.Time {
	raw, ok := metadata[key]
	if !ok {
		return nil
	}
	switch value := raw.(type) {
	case time.Time:
		utc := value.UTC()
		return &utc
	case *time.Time:
		if value == nil {
			return nil
		}
		utc := value.UTC()
		return &utc
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
		if err != nil {
			return nil
		}
		utc := parsed.UTC()
		return &utc
	}
	return nil
}

func mergeAnyMap(left map[string]any, right map[string]any) map[string]any {
	if len(left) == 0 && len(right) == 0 {
		return map[string]any{}
	}
	merged := map[string]any{}
	for key, value := range left {
		merged[key] = value
	}
	for key, value := range right {
		merged[key] = value
	}
	return merged
}
