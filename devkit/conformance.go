package devkit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-florin/core"
)

func ValidateTransportAdapterConformance(
	ctx context.Context,
	adapter core.TransportAdapter,
	request core.TransportRequest,
) error {
	if adapter == nil {
		return fmt.Errorf("devkit: transport adapter is required")
	}
	if strings.TrimSpace(adapter.Kind()) == "" {
		return fmt.Errorf("devkit: transport adapter kind is required")
	}
	_, err := adapter.Do(ctx, request)
	return err
}

// ValidateCredentialStoreConformance drives a store through the paired
// credential lifecycle: partial writes rejected, both values stored and
// read together, and a clear that leaves the store reporting
// ErrNoCredentials. Run it against any custom keychain or file-backed
// implementation before handing it to a client.
func ValidateCredentialStoreConformance(ctx context.Context, store core.CredentialStore) error {
	if store == nil {
		return fmt.Errorf("devkit: credential store is required")
	}

	if err := store.SetPair(ctx, core.CredentialPair{Access: "access_only"}); err == nil {
		return fmt.Errorf("devkit: partial pair write should be rejected")
	}

	pair := core.CredentialPair{Access: "access_1", Refresh: "refresh_1"}
	if err := store.SetPair(ctx, pair); err != nil {
		return fmt.Errorf("devkit: set pair: %w", err)
	}
	loaded, err := store.Pair(ctx)
	if err != nil {
		return fmt.Errorf("devkit: load pair: %w", err)
	}
	if loaded.Access != pair.Access || loaded.Refresh != pair.Refresh {
		return fmt.Errorf("devkit: stored pair does not round-trip")
	}

	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("devkit: clear pair: %w", err)
	}
	if _, err := store.Pair(ctx); !errors.Is(err, core.ErrNoCredentials) {
		return fmt.Errorf("devkit: cleared store should report ErrNoCredentials, got %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("devkit: clearing an empty store should be a no-op, got %v", err)
	}
	return nil
}

// ValidateSyncCursorStoreConformance checks a cursor store honors the
// optimistic advance contract for the given resource. The resource must not
// already hold a cursor.
func ValidateSyncCursorStoreConformance(ctx context.Context, store core.SyncCursorStore, resource string) error {
	if store == nil {
		return fmt.Errorf("devkit: sync cursor store is required")
	}
	resource = strings.TrimSpace(resource)
	if resource == "" {
		return fmt.Errorf("devkit: conformance resource is required")
	}

	if _, err := store.Get(ctx, resource); !errors.Is(err, core.ErrSyncCursorNotFound) {
		return fmt.Errorf("devkit: missing cursor should report ErrSyncCursorNotFound, got %v", err)
	}

	if _, err := store.Upsert(ctx, core.UpsertSyncCursorInput{Resource: resource, Cursor: "c1"}); err != nil {
		return fmt.Errorf("devkit: upsert cursor: %w", err)
	}
	cursor, err := store.Get(ctx, resource)
	if err != nil {
		return fmt.Errorf("devkit: load cursor: %w", err)
	}
	if cursor.Cursor != "c1" {
		return fmt.Errorf("devkit: cursor does not round-trip, got %q", cursor.Cursor)
	}

	if _, err := store.Advance(ctx, core.AdvanceSyncCursorInput{
		Resource:       resource,
		ExpectedCursor: "c1",
		Cursor:         "c2",
	}); err != nil {
		return fmt.Errorf("devkit: advance cursor: %w", err)
	}
	if _, err := store.Advance(ctx, core.AdvanceSyncCursorInput{
		Resource:       resource,
		ExpectedCursor: "c1",
		Cursor:         "c3",
	}); !errors.Is(err, core.ErrSyncCursorConflict) {
		return fmt.Errorf("devkit: stale advance should report ErrSyncCursorConflict, got %v", err)
	}

	cursor, err = store.Get(ctx, resource)
	if err != nil {
		return fmt.Errorf("devkit: reload cursor: %w", err)
	}
	if cursor.Cursor != "c2" {
		return fmt.Errorf("devkit: conflict should leave the stored cursor untouched, got %q", cursor.Cursor)
	}
	return nil
}
