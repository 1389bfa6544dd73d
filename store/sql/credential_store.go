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

const (
	credentialStatusActive  = "active"
	credentialStatusRevoked = "revoked"
)

// CredentialStore persists the credential pair as versioned rows: each
// SetPair revokes the active row and inserts the next version, so the pair
// is always written and cleared as one unit and rotation history survives
// restarts.
type CredentialStore struct {
	db   *bun.DB
	repo repository.Repository[*credentialRecord]
}

func NewCredentialStore(db *bun.DB) (*CredentialStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*credentialRecord](db, credentialHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid credential repository wiring: %w", err)
		}
	}
	return &CredentialStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *CredentialStore) Pair(ctx context.Context) (core.CredentialPair, error) {
	if s == nil || s.db == nil {
		return core.CredentialPair{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	record := &credentialRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.status = ?", credentialStatusActive).
		OrderExpr("?TableAlias.version DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.CredentialPair{}, core.ErrNoCredentials
		}
		return core.CredentialPair{}, err
	}
	return core.CredentialPair{
		Access:  record.AccessCredential,
		Refresh: record.RefreshCredential,
	}, nil
}

func (s *CredentialStore) SetPair(ctx context.Context, pair core.CredentialPair) error {
	if s == nil || s.db == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	if err := core.ValidateCredentialPair(pair); err != nil {
		return err
	}
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		nextVersion, err := s.nextVersion(ctx, tx)
		if err != nil {
			return err
		}

		if _, err := tx.NewUpdate().
			Model((*credentialRecord)(nil)).
			Set("status = ?", credentialStatusRevoked).
			Set("revocation_reason = ?", "rotated").
			Set("updated_at = ?", now).
			Where("status = ?", credentialStatusActive).
			Exec(ctx); err != nil {
			return err
		}

		record := &credentialRecord{
			ID:                uuid.NewString(),
			Version:           nextVersion,
			AccessCredential:  pair.Access,
			RefreshCredential: pair.Refresh,
			Status:            credentialStatusActive,
			RevocationReason:  "",
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if _, err := s.repo.CreateTx(ctx, tx, record); err != nil {
			return err
		}
		return nil
	})
}

// Clear revokes every active row. Clearing an empty store is a no-op; the
// revoked rows keep the rotation history.
func (s *CredentialStore) Clear(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	_, err := s.db.NewUpdate().
		Model((*credentialRecord)(nil)).
		Set("status = ?", credentialStatusRevoked).
		Set("revocation_reason = ?", "cleared").
		Set("updated_at = ?", time.Now().UTC()).
		Where("status = ?", credentialStatusActive).
		Exec(ctx)
	return err
}

// Version reports the newest stored version, revoked rows included. Zero
// means no pair was ever written.
func (s *CredentialStore) Version(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: credential store is not configured")
	}
	var maxVersion int
	if err := s.db.NewSelect().
		Model((*credentialRecord)(nil)).
		ColumnExpr("COALESCE(MAX(version), 0)").
		Scan(ctx, &maxVersion); err != nil {
		return 0, err
	}
	return maxVersion, nil
}

func (s *CredentialStore) nextVersion(ctx context.Context, tx bun.Tx) (int, error) {
	var maxVersion int
	if err := tx.NewSelect().
		Model((*credentialRecord)(nil)).
		ColumnExpr("COALESCE(MAX(version), 0)").
		Scan(ctx, &maxVersion); err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
