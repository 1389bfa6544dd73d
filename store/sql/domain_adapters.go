package sqlstore

import (
	"time"

	"github.com/goliatone/go-florin/core"
)

func (r *syncCursorRecord) toDomain() core.SyncCursor {
	if r == nil {
		return core.SyncCursor{}
	}
	cursor := core.SyncCursor{
		Resource:  r.Resource,
		Cursor:    r.Cursor,
		Status:    core.SyncStatus(r.Status),
		Metadata:  copyAnyMap(r.Metadata),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.LastSyncedAt != nil {
		value := *r.LastSyncedAt
		cursor.LastSyncedAt = &value
	}
	return cursor
}

func newSyncCursorRecord(in core.UpsertSyncCursorInput, now time.Time) *syncCursorRecord {
	record := &syncCursorRecord{
		Resource:  in.Resource,
		Cursor:    in.Cursor,
		Status:    in.Status,
		Metadata:  copyAnyMap(in.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.LastSyncedAt != nil {
		value := *in.LastSyncedAt
		record.LastSyncedAt = &value
	}
	return record
}

func (r *syncJobRecord) toDomain() core.SyncJob {
	if r == nil {
		return core.SyncJob{}
	}
	job := core.SyncJob{
		ID:         r.ID,
		Resource:   r.Resource,
		Mode:       core.SyncMode(r.Mode),
		Status:     core.SyncJobStatus(r.Status),
		Error:      r.Error,
		EnqueuedAt: r.EnqueuedAt,
		Metadata:   copyAnyMap(r.Metadata),
	}
	if r.StartedAt != nil {
		value := *r.StartedAt
		job.StartedAt = &value
	}
	if r.CompletedAt != nil {
		value := *r.CompletedAt
		job.CompletedAt = &value
	}
	return job
}

func newSyncJobRecord(job core.SyncJob, now time.Time) *syncJobRecord {
	record := &syncJobRecord{
		ID:         job.ID,
		Resource:   job.Resource,
		Mode:       string(job.Mode),
		Status:     string(job.Status),
		Error:      job.Error,
		EnqueuedAt: job.EnqueuedAt,
		Metadata:   RedactMetadata(job.Metadata),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if job.StartedAt != nil {
		value := *job.StartedAt
		record.StartedAt = &value
	}
	if job.CompletedAt != nil {
		value := *job.CompletedAt
		record.CompletedAt = &value
	}
	return record
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
