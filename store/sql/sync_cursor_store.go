package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-florin/core"
)

type SyncCursorStore struct {
	db   *bun.DB
	repo repository.Repository[*syncCursorRecord]
}

func NewSyncCursorStore(db *bun.DB) (*SyncCursorStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*syncCursorRecord](db, syncCursorHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid sync cursor repository wiring: %w", err)
		}
	}
	return &SyncCursorStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *SyncCursorStore) Get(ctx context.Context, resource string) (core.SyncCursor, error) {
	if s == nil || s.db == nil {
		return core.SyncCursor{}, fmt.Errorf("sqlstore: sync cursor store is not configured")
	}
	resource = strings.TrimSpace(resource)
	if resource == "" {
		return core.SyncCursor{}, core.ErrSyncResourceRequired
	}

	record := &syncCursorRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.resource = ?", resource).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.SyncCursor{}, core.ErrSyncCursorNotFound
		}
		return core.SyncCursor{}, err
	}
	return record.toDomain(), nil
}

func (s *SyncCursorStore) Upsert(ctx context.Context, in core.UpsertSyncCursorInput) (core.SyncCursor, error) {
	if s == nil || s.db == nil {
		return core.SyncCursor{}, fmt.Errorf("sqlstore: sync cursor store is not configured")
	}
	in.Resource = strings.TrimSpace(in.Resource)
	in.Cursor = strings.TrimSpace(in.Cursor)
	in.Status = strings.TrimSpace(in.Status)
	if in.Resource == "" {
		return core.SyncCursor{}, core.ErrSyncResourceRequired
	}
	now := time.Now().UTC()

	var out core.SyncCursor
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findSyncCursorTx(ctx, tx, in.Resource)
		if err != nil {
			return err
		}
		if record == nil {
			fresh := in
			if fresh.Status == "" {
				fresh.Status = string(core.SyncStatusIdle)
			}
			record = newSyncCursorRecord(fresh, now)
			record.ID = uuid.NewString()
			if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
				if isUniqueViolation(insertErr) {
					record, err = findSyncCursorTx(ctx, tx, in.Resource)
					if err != nil {
						return err
					}
					if record == nil {
						return insertErr
					}
				} else {
					return insertErr
				}
			}
			out = record.toDomain()
			return nil
		}

		record.Cursor = in.Cursor
		if in.Status != "" {
			record.Status = in.Status
		}
		if in.Metadata != nil {
			record.Metadata = copyAnyMap(in.Metadata)
		}
		if in.LastSyncedAt != nil {
			value := *in.LastSyncedAt
			record.LastSyncedAt = &value
		}
		record.UpdatedAt = now
		if _, updateErr := tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx); updateErr != nil {
			return updateErr
		}
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.SyncCursor{}, err
	}
	return out, nil
}

func (s *SyncCursorStore) Advance(ctx context.Context, in core.AdvanceSyncCursorInput) (core.SyncCursor, error) {
	if s == nil || s.db == nil {
		return core.SyncCursor{}, fmt.Errorf("sqlstore: sync cursor store is not configured")
	}
	resource := strings.TrimSpace(in.Resource)
	nextCursor := strings.TrimSpace(in.Cursor)
	status := strings.TrimSpace(in.Status)
	if resource == "" {
		return core.SyncCursor{}, core.ErrSyncResourceRequired
	}

	var out core.SyncCursor
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findSyncCursorTx(ctx, tx, resource)
		if err != nil {
			return err
		}
		if record == nil {
			return core.ErrSyncCursorNotFound
		}
		if record.Cursor != in.ExpectedCursor {
			return core.ErrSyncCursorConflict
		}

		record.Cursor = nextCursor
		if status != "" {
			record.Status = status
		}
		if in.Metadata != nil {
			record.Metadata = copyAnyMap(in.Metadata)
		}
		if in.LastSyncedAt != nil {
			value := *in.LastSyncedAt
			record.LastSyncedAt = &value
		}
		record.UpdatedAt = time.Now().UTC()
		if _, updateErr := tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx); updateErr != nil {
			return updateErr
		}
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.SyncCursor{}, err
	}
	return out, nil
}

func findSyncCursorTx(ctx context.Context, tx bun.Tx, resource string) (*syncCursorRecord, error) {
	record := &syncCursorRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.resource = ?", strings.TrimSpace(resource)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
