package core

import (
	"context"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SessionStatus reports whether the client currently holds a credential
// pair. The credentials themselves stay inside the store.
type SessionStatus struct {
	Authenticated bool      `json:"authenticated"`
	CheckedAt     time.Time `json:"checkedAt"`
}

// Login exchanges user credentials for an access and refresh pair and
// stores both atomically.
func (s *Service) Login(ctx context.Context, email string, password string) (pair CredentialPair, err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "login", err, nil)
	}()

	if s == nil {
		return CredentialPair{}, goerrors.New("client not initialized", goerrors.CategoryInternal)
	}
	if strings.TrimSpace(email) == "" {
		err = s.errorFactory("Email is required", goerrors.CategoryBadInput).
			WithTextCode(ClientErrorBadInput).
			WithMetadata(map[string]any{"field": "email"})
		return CredentialPair{}, err
	}
	if password == "" {
		err = s.errorFactory("Password is required", goerrors.CategoryBadInput).
			WithTextCode(ClientErrorBadInput).
			WithMetadata(map[string]any{"field": "password"})
		return CredentialPair{}, err
	}
	if s.authClient == nil {
		err = s.mapError(ErrAuthClientRequired)
		return CredentialPair{}, err
	}

	pair, err = s.authClient.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		err = s.mapError(err)
		return CredentialPair{}, err
	}
	if err = s.credentialStore.SetPair(ctx, pair); err != nil {
		err = s.mapError(err)
		return CredentialPair{}, err
	}

	s.logger.Info("session established")
	return pair, nil
}

// Logout revokes the refresh credential server side when possible and
// always clears the local pair. Revocation failures are reported to the
// logger but never block the local sign out.
func (s *Service) Logout(ctx context.Context) (err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "logout", err, nil)
	}()

	if s == nil {
		return goerrors.New("client not initialized", goerrors.CategoryInternal)
	}

	pair, loadErr := s.credentialStore.Pair(ctx)
	if loadErr == nil && s.authClient != nil && strings.TrimSpace(pair.Refresh) != "" {
		if revokeErr := s.authClient.Revoke(ctx, pair.Refresh); revokeErr != nil {
			s.logger.Warn("credential revocation failed", "error", revokeErr)
		}
	}

	cleanupCtx := context.WithoutCancel(ctx)
	if clearErr := s.credentialStore.Clear(cleanupCtx); clearErr != nil {
		err = s.mapError(clearErr)
		return err
	}
	if s.sessionTerminator != nil {
		s.sessionTerminator(cleanupCtx)
	}

	s.logger.Info("session terminated")
	return nil
}

// SessionStatus reports whether a credential pair is currently stored.
func (s *Service) SessionStatus(ctx context.Context) (status SessionStatus, err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "session_status", err, nil)
	}()

	if s == nil {
		return SessionStatus{}, goerrors.New("client not initialized", goerrors.CategoryInternal)
	}

	status = SessionStatus{CheckedAt: time.Now()}
	_, loadErr := s.credentialStore.Pair(ctx)
	switch {
	case loadErr == nil:
		status.Authenticated = true
	case errors.Is(loadErr, ErrNoCredentials):
		status.Authenticated = false
	default:
		err = s.mapError(loadErr)
		return SessionStatus{}, err
	}
	return status, nil
}

// RefreshCredentials forces a refresh cycle through the coordinator,
// sharing any cycle already in flight.
func (s *Service) RefreshCredentials(ctx context.Context) (pair CredentialPair, err error) {
	startedAt := time.Now()
	defer func() {
		s.observeOperation(ctx, startedAt, "refresh_credentials", err, nil)
	}()

	if s == nil {
		return CredentialPair{}, goerrors.New("client not initialized", goerrors.CategoryInternal)
	}
	if s.refresher == nil {
		err = s.mapError(ErrAuthClientRequired)
		return CredentialPair{}, err
	}

	pair, err = s.refresher.Refresh(ctx)
	if err != nil {
		err = s.mapError(err)
		return CredentialPair{}, err
	}
	return pair, nil
}
