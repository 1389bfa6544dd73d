package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-florin/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SyncJobStore persists sync job rows and replays idempotent enqueues.
type SyncJobStore struct {
	db   *bun.DB
	repo repository.Repository[*syncJobRecord]
}

var errSyncJobIdempotencyReplay = errors.New("sqlstore: sync job idempotency replay")

func NewSyncJobStore(db *bun.DB) (*SyncJobStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*syncJobRecord](db, syncJobHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid sync job repository wiring: %w", err)
		}
	}
	return &SyncJobStore{
		db:   db,
		repo: repo,
	}, nil
}

// Create inserts a new job row, filling defaults for id, mode, status, and
// the enqueue timestamp.
func (s *SyncJobStore) Create(ctx context.Context, job core.SyncJob) (core.SyncJob, error) {
	if s == nil || s.db == nil {
		return core.SyncJob{}, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	job, err := normalizeSyncJob(job)
	if err != nil {
		return core.SyncJob{}, err
	}

	now := time.Now().UTC()
	record := newSyncJobRecord(job, now)
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.SyncJob{}, err
	}
	return record.toDomain(), nil
}

// CreateIdempotent inserts the job under an idempotency key. When another
// job already holds the same (resource, mode, key) tuple, the stored job is
// returned and the boolean reports false.
func (s *SyncJobStore) CreateIdempotent(ctx context.Context, job core.SyncJob, idempotencyKey string) (core.SyncJob, bool, error) {
	if s == nil || s.db == nil {
		return core.SyncJob{}, false, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" {
		created, err := s.Create(ctx, job)
		if err != nil {
			return core.SyncJob{}, false, err
		}
		return created, true, nil
	}
	job, err := normalizeSyncJob(job)
	if err != nil {
		return core.SyncJob{}, false, err
	}

	var created core.SyncJob
	txErr := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()
		record := newSyncJobRecord(job, now)
		record.IdempotencyKey = idempotencyKey
		if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
			if isUniqueViolation(insertErr) {
				return errSyncJobIdempotencyReplay
			}
			return insertErr
		}
		created = record.toDomain()
		return nil
	})
	if txErr == nil {
		return created, true, nil
	}
	if !errors.Is(txErr, errSyncJobIdempotencyReplay) {
		return core.SyncJob{}, false, txErr
	}

	existing, lookupErr := s.findByIdempotencyKey(ctx, job.Resource, job.Mode, idempotencyKey)
	if lookupErr != nil {
		return core.SyncJob{}, false, lookupErr
	}
	return existing, false, nil
}

// Get returns the job with the given id.
func (s *SyncJobStore) Get(ctx context.Context, id string) (core.SyncJob, error) {
	if s == nil || s.db == nil {
		return core.SyncJob{}, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	record := &syncJobRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.SyncJob{}, fmt.Errorf("%w: id %q", core.ErrSyncJobNotFound, id)
		}
		return core.SyncJob{}, err
	}
	return record.toDomain(), nil
}

// Update persists lifecycle changes made on the job (status, error text,
// started/completed timestamps, metadata). The row keeps its idempotency key.
func (s *SyncJobStore) Update(ctx context.Context, job core.SyncJob) (core.SyncJob, error) {
	if s == nil || s.db == nil {
		return core.SyncJob{}, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	job.ID = strings.TrimSpace(job.ID)
	if job.ID == "" {
		return core.SyncJob{}, fmt.Errorf("sqlstore: job id is required")
	}

	var out core.SyncJob
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &syncJobRecord{}
		if selErr := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", job.ID).
			Limit(1).
			Scan(ctx); selErr != nil {
			if selErr == sql.ErrNoRows {
				return fmt.Errorf("%w: id %q", core.ErrSyncJobNotFound, job.ID)
			}
			return selErr
		}

		record.Status = string(job.Status)
		record.Error = job.Error
		record.StartedAt = copyTimePointer(job.StartedAt)
		record.CompletedAt = copyTimePointer(job.CompletedAt)
		record.Metadata = RedactMetadata(job.Metadata)
		record.UpdatedAt = time.Now().UTC()
		if _, updErr := tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx); updErr != nil {
			return updErr
		}
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.SyncJob{}, err
	}
	return out, nil
}

// ListByStatus returns jobs in the given status ordered by enqueue time,
// oldest first. A non-positive limit falls back to 50.
func (s *SyncJobStore) ListByStatus(ctx context.Context, status core.SyncJobStatus, limit int) ([]core.SyncJob, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	records := []*syncJobRecord{}
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.status = ?", string(status)).
		OrderExpr("?TableAlias.enqueued_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	jobs := make([]core.SyncJob, 0, len(records))
	for _, record := range records {
		jobs = append(jobs, record.toDomain())
	}
	return jobs, nil
}

func (s *SyncJobStore) findByIdempotencyKey(ctx context.Context, resource string, mode core.SyncMode, key string) (core.SyncJob, error) {
	record := &syncJobRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.resource = ?", resource).
		Where("?TableAlias.mode = ?", string(mode)).
		Where("?TableAlias.idempotency_key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.SyncJob{}, fmt.Errorf("%w: idempotency key %q", core.ErrSyncJobNotFound, key)
		}
		return core.SyncJob{}, err
	}
	return record.toDomain(), nil
}

func normalizeSyncJob(job core.SyncJob) (core.SyncJob, error) {
	job.Resource = strings.TrimSpace(strings.ToLower(job.Resource))
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
		job.EnqueuedAt = time.Now().UTC()
	}
	return job, nil
}
