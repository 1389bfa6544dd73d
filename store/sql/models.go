package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type credentialRecord struct {
	bun.BaseModel `bun:"table:florin_credentials,alias:fc"`

	ID                string    `bun:"id,pk"`
	Version           int       `bun:"version,notnull"`
	AccessCredential  string    `bun:"access_credential,notnull"`
	RefreshCredential string    `bun:"refresh_credential,notnull"`
	Status            string    `bun:"status,notnull"`
	RevocationReason  string    `bun:"revocation_reason,notnull"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type syncCursorRecord struct {
	bun.BaseModel `bun:"table:florin_sync_cursors,alias:fsc"`

	ID           string         `bun:"id,pk"`
	Resource     string         `bun:"resource,notnull"`
	Cursor       string         `bun:"cursor,notnull"`
	Status       string         `bun:"status,notnull"`
	LastSyncedAt *time.Time     `bun:"last_synced_at,nullzero"`
	Metadata     map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt    time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type syncJobRecord struct {
	bun.BaseModel `bun:"table:florin_sync_jobs,alias:fsj"`

	ID             string         `bun:"id,pk"`
	Resource       string         `bun:"resource,notnull"`
	Mode           string         `bun:"mode,notnull"`
	Status         string         `bun:"status,notnull"`
	Error          string         `bun:"error,notnull"`
	IdempotencyKey string         `bun:"idempotency_key,notnull"`
	EnqueuedAt     time.Time      `bun:"enqueued_at,notnull"`
	StartedAt      *time.Time     `bun:"started_at,nullzero"`
	CompletedAt    *time.Time     `bun:"completed_at,nullzero"`
	Metadata       map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt      time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type rateLimitStateRecord struct {
	bun.BaseModel `bun:"table:florin_rate_limit_states,alias:frl"`

	ID         string         `bun:"id,pk"`
	GroupKey   string         `bun:"group_key,notnull"`
	Method     string         `bun:"method,notnull"`
	Limit      int            `bun:"limit_total,notnull"`
	Remaining  int            `bun:"remaining,notnull"`
	ResetAt    *time.Time     `bun:"reset_at,nullzero"`
	RetryAfter *int           `bun:"retry_after_seconds,nullzero"`
	Metadata   map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
