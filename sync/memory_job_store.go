package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	stdsync "sync"
	"time"

	"github.com/goliatone/go-florin/core"
	"github.com/google/uuid"
)

// MemoryJobStore keeps sync jobs in process memory. It backs tests and
// clients assembled without a durable store.
type MemoryJobStore struct {
	mu   stdsync.RWMutex
	jobs map[string]core.SyncJob
	keys map[string]string
	now  func() time.Time
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]core.SyncJob),
		keys: make(map[string]string),
		now:  time.Now,
	}
}

func (s *MemoryJobStore) Create(ctx context.Context, job core.SyncJob) (core.SyncJob, error) {
	if s == nil {
		return core.SyncJob{}, errors.New("sync: job store not initialized")
	}
	if err := ctx.Err(); err != nil {
		return core.SyncJob{}, err
	}
	normalized, err := s.normalize(job)
	if err != nil {
		return core.SyncJob{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[normalized.ID] = cloneSyncJob(normalized)
	return normalized, nil
}

// CreateIdempotent enqueues once per (resource, mode, key); a repeat returns
// the job the key already bound with created=false.
func (s *MemoryJobStore) CreateIdempotent(ctx context.Context, job core.SyncJob, idempotencyKey string) (core.SyncJob, bool, error) {
	if s == nil {
		return core.SyncJob{}, false, errors.New("sync: job store not initialized")
	}
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" {
		created, err := s.Create(ctx, job)
		return created, err == nil, err
	}
	if err := ctx.Err(); err != nil {
		return core.SyncJob{}, false, err
	}
	normalized, err := s.normalize(job)
	if err != nil {
		return core.SyncJob{}, false, err
	}

	binding := idempotencyBinding(normalized.Resource, normalized.Mode, idempotencyKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existingID, ok := s.keys[binding]; ok {
		existing, found := s.jobs[existingID]
		if !found {
			return core.SyncJob{}, false, fmt.Errorf("%w: id %q", core.ErrSyncJobNotFound, existingID)
		}
		return cloneSyncJob(existing), false, nil
	}
	s.jobs[normalized.ID] = cloneSyncJob(normalized)
	s.keys[binding] = normalized.ID
	return normalized, true, nil
}

func (s *MemoryJobStore) Get(ctx context.Context, id string) (core.SyncJob, error) {
	if s == nil {
		return core.SyncJob{}, errors.New("sync: job store not initialized")
	}
	if err := ctx.Err(); err != nil {
		return core.SyncJob{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.SyncJob{}, fmt.Errorf("sync: job id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return core.SyncJob{}, fmt.Errorf("%w: id %q", core.ErrSyncJobNotFound, id)
	}
	return cloneSyncJob(job), nil
}

func (s *MemoryJobStore) Update(ctx context.Context, job core.SyncJob) (core.SyncJob, error) {
	if s == nil {
		return core.SyncJob{}, errors.New("sync: job store not initialized")
	}
	if err := ctx.Err(); err != nil {
		return core.SyncJob{}, err
	}
	id := strings.TrimSpace(job.ID)
	if id == "" {
		return core.SyncJob{}, fmt.Errorf("sync: job id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.jobs[id]
	if !ok {
		return core.SyncJob{}, fmt.Errorf("%w: id %q", core.ErrSyncJobNotFound, id)
	}
	existing.Status = job.Status
	existing.Error = job.Error
	existing.StartedAt = copyTime(job.StartedAt)
	existing.CompletedAt = copyTime(job.CompletedAt)
	existing.Metadata = cloneAnyMap(job.Metadata)
	s.jobs[id] = existing
	return cloneSyncJob(existing), nil
}

func (s *MemoryJobStore) ListByStatus(ctx context.Context, status core.SyncJobStatus, limit int) ([]core.SyncJob, error) {
	if s == nil {
		return nil, errors.New("sync: job store not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]core.SyncJob, 0, limit)
	for _, job := range s.jobs {
		if job.Status == status {
			matched = append(matched, cloneSyncJob(job))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].EnqueuedAt.Equal(matched[j].EnqueuedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].EnqueuedAt.Before(matched[j].EnqueuedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryJobStore) normalize(job core.SyncJob) (core.SyncJob, error) {
	job.Resource = strings.ToLower(strings.TrimSpace(job.Resource))
	if job.Resource == "" {
		return core.SyncJob{}, core.ErrSyncResourceRequired
	}
	if strings.TrimSpace(job.ID) == "" {
		job.ID = uuid.NewString()
	}
	if job.Mode == "" {
		job.Mode = core.SyncModeIncremental
	}
	if job.Status == "" {
		job.Status = core.SyncJobQueued
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = s.now().UTC()
	}
	job.Metadata = cloneAnyMap(job.Metadata)
	return job, nil
}

func idempotencyBinding(resource string, mode core.SyncMode, key string) string {
	return resource + "|" + string(mode) + "|" + key
}

func cloneSyncJob(job core.SyncJob) core.SyncJob {
	out := job
	out.StartedAt = copyTime(job.StartedAt)
	out.CompletedAt = copyTime(job.CompletedAt)
	out.Metadata = cloneAnyMap(job.Metadata)
	return out
}

func copyTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	at := *value
	return &at
}

func cloneAnyMap(source map[string]any) map[string]any {
	if source == nil {
		return nil
	}
	out := make(map[string]any, len(source))
	for key, value := range source {
		out[key] = value
	}
	return out
}

var _ IdempotentJobStore = (*MemoryJobStore)(nil)
