package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrSyncResourceRequired = errors.New("core: sync resource is required")
	ErrSyncCursorNotFound   = errors.New("core: sync cursor not found")
	ErrSyncCursorConflict   = errors.New("core: sync cursor changed since it was read")
)

// MemorySyncCursorStore keeps cursors in process memory. It backs tests and
// clients assembled without a durable store.
type MemorySyncCursorStore struct {
	mu      sync.RWMutex
	cursors map[string]SyncCursor
	now     func() time.Time
}

func NewMemorySyncCursorStore() *MemorySyncCursorStore {
	return &MemorySyncCursorStore{
		cursors: make(map[string]SyncCursor),
		now:     time.Now,
	}
}

func (s *MemorySyncCursorStore) Get(ctx context.Context, resource string) (SyncCursor, error) {
	if s == nil {
		return SyncCursor{}, errors.New("core: sync cursor store not initialized")
	}
	if err := ctx.Err(); err != nil {
		return SyncCursor{}, err
	}
	resource = strings.TrimSpace(resource)
	if resource == "" {
		return SyncCursor{}, ErrSyncResourceRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	cursor, ok := s.cursors[resource]
	if !ok {
		return SyncCursor{}, ErrSyncCursorNotFound
	}
	return cloneSyncCursor(cursor), nil
}

func (s *MemorySyncCursorStore) Upsert(ctx context.Context, in UpsertSyncCursorInput) (SyncCursor, error) {
	if s == nil {
		return SyncCursor{}, errors.New("core: sync cursor store not initialized")
	}
	if err := ctx.Err(); err != nil {
		return SyncCursor{}, err
	}
	resource := strings.TrimSpace(in.Resource)
	if resource == "" {
		return SyncCursor{}, ErrSyncResourceRequired
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	cursor, ok := s.cursors[resource]
	if !ok {
		cursor = SyncCursor{
			Resource:  resource,
			Status:    SyncStatusIdle,
			CreatedAt: now,
		}
	}
	applySyncCursorChange(&cursor, in.Cursor, in.Status, in.LastSyncedAt, in.Metadata, now)
	s.cursors[resource] = cursor
	return cloneSyncCursor(cursor), nil
}

func (s *MemorySyncCursorStore) Advance(ctx context.Context, in AdvanceSyncCursorInput) (SyncCursor, error) {
	if s == nil {
		return SyncCursor{}, errors.New("core: sync cursor store not initialized")
	}
	if err := ctx.Err(); err != nil {
		return SyncCursor{}, err
	}
	resource := strings.TrimSpace(in.Resource)
	if resource == "" {
		return SyncCursor{}, ErrSyncResourceRequired
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	cursor, ok := s.cursors[resource]
	if !ok {
		return SyncCursor{}, ErrSyncCursorNotFound
	}
	if cursor.Cursor != in.ExpectedCursor {
		return SyncCursor{}, ErrSyncCursorConflict
	}
	applySyncCursorChange(&cursor, in.Cursor, in.Status, in.LastSyncedAt, in.Metadata, now)
	s.cursors[resource] = cursor
	return cloneSyncCursor(cursor), nil
}

func applySyncCursorChange(cursor *SyncCursor, next string, status string, syncedAt *time.Time, metadata map[string]any, now time.Time) {
	cursor.Cursor = next
	if trimmed := strings.TrimSpace(status); trimmed != "" {
		cursor.Status = SyncStatus(trimmed)
	}
	if syncedAt != nil {
		at := *syncedAt
		cursor.LastSyncedAt = &at
	}
	if metadata != nil {
		cursor.Metadata = cloneAnyMap(metadata)
	}
	cursor.UpdatedAt = now
}

func cloneSyncCursor(cursor SyncCursor) SyncCursor {
	out := cursor
	if cursor.LastSyncedAt != nil {
		at := *cursor.LastSyncedAt
		out.LastSyncedAt = &at
	}
	out.Metadata = cloneAnyMap(cursor.Metadata)
	return out
}

var _ SyncCursorStore = (*MemorySyncCursorStore)(nil)
