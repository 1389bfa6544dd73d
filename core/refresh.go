package core

import (
	"context"
	"errors"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
)

type refreshOutcome struct {
	pair CredentialPair
	err  error
}

// RefreshCoordinator serializes credential refresh so that at most one
// exchange is in flight per process. The first caller that finds the
// coordinator idle becomes the winner and performs the exchange; callers
// arriving while a refresh runs join a waiter queue and receive the
// winner's outcome in arrival order. A failed cycle clears the stored pair
// and notifies the session terminator exactly once before any waiter
// resumes.
type RefreshCoordinator struct {
	store     CredentialStore
	exchanger RefreshExchanger
	terminate SessionTerminator
	logger    Logger

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshOutcome
}

// RefreshCoordinatorOption customizes a coordinator.
type RefreshCoordinatorOption func(*RefreshCoordinator)

// WithRefreshLogger sets the coordinator logger.
func WithRefreshLogger(logger Logger) RefreshCoordinatorOption {
	return func(c *RefreshCoordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewRefreshCoordinator wires a coordinator over the credential store and
// the refresh exchange endpoint. terminate may be nil when the host
// application has no session teardown to run.
func NewRefreshCoordinator(store CredentialStore, exchanger RefreshExchanger, terminate SessionTerminator, options ...RefreshCoordinatorOption) (*RefreshCoordinator, error) {
	if store == nil {
		return nil, errors.New("core: refresh coordinator requires a credential store")
	}
	if exchanger == nil {
		return nil, errors.New("core: refresh coordinator requires a refresh exchanger")
	}
	coordinator := &RefreshCoordinator{
		store:     store,
		exchanger: exchanger,
		terminate: terminate,
		logger:    glog.Nop,
	}
	for _, option := range options {
		if option != nil {
			option(coordinator)
		}
	}
	coordinator.logger = glog.Ensure(coordinator.logger)
	return coordinator, nil
}

// Refresh returns a usable credential pair, running the exchange itself or
// waiting on the in-flight exchange. Every caller of the same cycle sees
// the identical outcome.
func (c *RefreshCoordinator) Refresh(ctx context.Context) (CredentialPair, error) {
	if c == nil {
		return CredentialPair{}, errors.New("core: refresh coordinator not initialized")
	}

	c.mu.Lock()
	if c.refreshing {
		waiter := make(chan refreshOutcome, 1)
		c.waiters = append(c.waiters, waiter)
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return CredentialPair{}, ctx.Err()
		case outcome := <-waiter:
			return outcome.pair, outcome.err
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	outcome := c.performRefresh(ctx)

	c.mu.Lock()
	c.refreshing = false
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	// Waiter channels are buffered so resuming them never blocks the
	// winner, and the queue order is the arrival order.
	for _, waiter := range waiters {
		waiter <- outcome
	}
	return outcome.pair, outcome.err
}

func (c *RefreshCoordinator) performRefresh(ctx context.Context) refreshOutcome {
	current, err := c.store.Pair(ctx)
	if err != nil && !errors.Is(err, ErrNoCredentials) {
		return c.fail(ctx, NewRefreshError(err, "Reading stored credentials failed"))
	}
	if strings.TrimSpace(current.Refresh) == "" {
		return c.fail(ctx, NewRefreshError(ErrNoCredentials, "No refresh credential available"))
	}

	next, err := c.exchanger.ExchangeRefresh(ctx, current.Refresh)
	if err != nil {
		return c.fail(ctx, NewRefreshError(err, ""))
	}
	if strings.TrimSpace(next.Access) == "" {
		return c.fail(ctx, NewRefreshError(nil, "Refresh exchange returned no access credential"))
	}
	// Servers that do not rotate the refresh credential omit it from the
	// exchange response; the stored one stays valid and the pair is still
	// written in a single atomic update.
	if strings.TrimSpace(next.Refresh) == "" {
		next.Refresh = current.Refresh
	}
	if err := c.store.SetPair(ctx, next); err != nil {
		return c.fail(ctx, NewRefreshError(err, "Persisting refreshed credentials failed"))
	}

	c.logger.Debug("credential refresh completed")
	return refreshOutcome{pair: next}
}

// fail runs the terminal branch of a refresh cycle: both credentials are
// cleared and the session terminator fires, once, before the outcome fans
// out to the waiter queue.
func (c *RefreshCoordinator) fail(ctx context.Context, refreshErr error) refreshOutcome {
	cleanupCtx := context.WithoutCancel(ctx)
	if err := c.store.Clear(cleanupCtx); err != nil {
		c.logger.Error("clearing credentials after failed refresh", "error", err)
	}
	if c.terminate != nil {
		c.terminate(cleanupCtx)
	}
	c.logger.Error("credential refresh failed", "error", refreshErr)
	return refreshOutcome{err: refreshErr}
}
