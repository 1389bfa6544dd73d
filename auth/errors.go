package auth

import (
	"errors"
	"fmt"
	"strings"
)

var ErrExchangeFailed = errors.New("auth: credential exchange failed")

// ExchangeError describes a failed login, refresh, or revocation exchange.
// Server rejections carry the normalized response error as Cause so the
// client error taxonomy survives unwrapping.
type ExchangeError struct {
	StatusCode int
	Operation  string
	Message    string
	Cause      error
}

func (e *ExchangeError) Error() string {
	if e == nil {
		return ErrExchangeFailed.Error()
	}
	base := ErrExchangeFailed.Error()
	if strings.TrimSpace(e.Operation) != "" {
		base += ": " + strings.TrimSpace(e.Operation)
	}
	if strings.TrimSpace(e.Message) != "" {
		base += ": " + strings.TrimSpace(e.Message)
	}
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (status=%d)", e.StatusCode)
	}
	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}
	return base
}

func (e *ExchangeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
