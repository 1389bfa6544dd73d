package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-florin/core"
	glog "github.com/goliatone/go-logger/glog"
)

// Conn is one open duplex connection.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(payload []byte) error
	Close() error
}

// Dialer opens duplex connections. Production uses the WebSocket dialer;
// tests inject a fake.
type Dialer interface {
	DialContext(ctx context.Context, rawURL string) (Conn, error)
}

const defaultMaxReconnects = 5

// Manager runs the duplex channel lifecycle:
// disconnected -> connecting -> open -> disconnected (retry) | closed.
// An unexpected close reconnects with exponential backoff up to the
// configured cap, re-reading the credential store before every dial; at the
// cap the channel closes for good and the consumer receives a terminal
// failure. Caller-initiated Disconnect always lands on closed.
type Manager struct {
	config      core.ChannelConfig
	credentials core.CredentialStore
	dialer      Dialer
	scheduler   core.BackoffScheduler
	logger      core.Logger

	dispatcher *Dispatcher
	onMessage  func(core.ChannelMessage)
	onError    func(error)

	sleep func(ctx context.Context, delay time.Duration) error

	mu       sync.Mutex
	writeMu  sync.Mutex
	state    core.ChannelState
	conn     Conn
	attempts int
	closing  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option customizes a Manager.
type Option func(*Manager)

// WithDialer replaces the WebSocket dialer, usually with a test fake.
func WithDialer(dialer Dialer) Option {
	return func(m *Manager) {
		if dialer != nil {
			m.dialer = dialer
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(logger core.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDispatcher routes inbound frames through a typed dispatcher instead
// of the raw OnMessage callback.
func WithDispatcher(dispatcher *Dispatcher) Option {
	return func(m *Manager) {
		m.dispatcher = dispatcher
	}
}

// WithOnMessage sets the raw inbound callback used when no dispatcher is
// attached.
func WithOnMessage(fn func(core.ChannelMessage)) Option {
	return func(m *Manager) {
		m.onMessage = fn
	}
}

// WithOnError sets the consumer callback for terminal channel failures.
func WithOnError(fn func(error)) Option {
	return func(m *Manager) {
		m.onError = fn
	}
}

// WithBackoffScheduler replaces the reconnect delay schedule.
func WithBackoffScheduler(scheduler core.BackoffScheduler) Option {
	return func(m *Manager) {
		if scheduler != nil {
			m.scheduler = scheduler
		}
	}
}

// WithSleep replaces the reconnect wait primitive, injectable for tests.
func WithSleep(fn func(ctx context.Context, delay time.Duration) error) Option {
	return func(m *Manager) {
		if fn != nil {
			m.sleep = fn
		}
	}
}

func NewManager(config core.ChannelConfig, credentials core.CredentialStore, options ...Option) (*Manager, error) {
	if credentials == nil {
		return nil, errors.New("stream: channel manager requires a credential store")
	}
	if strings.TrimSpace(config.StreamURL) == "" {
		return nil, errors.New("stream: stream url is required")
	}
	if config.MaxReconnects <= 0 {
		config.MaxReconnects = defaultMaxReconnects
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}

	manager := &Manager{
		config:      config,
		credentials: credentials,
		dialer:      NewWebSocketDialer(),
		scheduler:   core.ExponentialBackoffScheduler{Base: config.BaseDelay, Max: config.MaxDelay},
		logger:      glog.Nop,
		sleep:       sleepContext,
		state:       core.ChannelDisconnected,
	}
	for _, option := range options {
		if option != nil {
			option(manager)
		}
	}
	manager.logger = glog.Ensure(manager.logger)
	return manager, nil
}

// State reports the current lifecycle state.
func (m *Manager) State() core.ChannelState {
	if m == nil {
		return core.ChannelClosed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect opens the channel. It requires a stored credential and embeds it
// in the handshake as a query parameter. Connecting an open channel is a
// no-op; connecting a closed one starts a fresh lifecycle.
func (m *Manager) Connect(ctx context.Context) error {
	if m == nil {
		return errors.New("stream: channel manager not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	pair, err := m.credentials.Pair(ctx)
	if err != nil || strings.TrimSpace(pair.Access) == "" {
		if err == nil {
			err = core.ErrNoCredentials
		}
		return core.NewUnauthorizedError(err)
	}

	m.mu.Lock()
	switch m.state {
	case core.ChannelOpen, core.ChannelConnecting:
		m.mu.Unlock()
		return nil
	case core.ChannelClosed:
		// A fresh connect starts a new lifecycle.
		m.state = core.ChannelDisconnected
		m.attempts = 0
		m.closing = false
	}
	m.transitionLocked(core.ChannelConnecting)
	m.mu.Unlock()

	rawURL, err := m.handshakeURL(pair.Access)
	if err != nil {
		m.failConnect()
		return core.NewChannelError(err, "Channel handshake URL invalid")
	}
	conn, err := m.dialer.DialContext(ctx, rawURL)
	if err != nil {
		m.failConnect()
		return core.NewChannelError(err, "Channel connect failed")
	}

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		conn.Close()
		return core.NewChannelError(nil, "Channel closed while connecting")
	}
	m.conn = conn
	m.attempts = 0
	m.transitionLocked(core.ChannelOpen)
	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	m.logger.Info("channel open", "url", m.config.StreamURL)
	go m.readLoop(loopCtx, conn, done)
	return nil
}

// Send writes one message over the open channel. Sending on any other
// state is a channel misuse failure.
func (m *Manager) Send(ctx context.Context, msg core.ChannelMessage) error {
	if m == nil {
		return errors.New("stream: channel manager not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.state != core.ChannelOpen || m.conn == nil {
		state := m.state
		m.mu.Unlock()
		return core.NewChannelError(nil, fmt.Sprintf("Channel is %s; connect before sending", state))
	}
	conn := m.conn
	m.mu.Unlock()

	payload, err := json.Marshal(msg)
	if err != nil {
		return core.NewChannelError(err, "Channel message encode failed")
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.WriteMessage(payload); err != nil {
		return core.NewChannelError(err, "Channel send failed")
	}
	return nil
}

// Disconnect closes the channel and suppresses any pending reconnect.
// The channel lands on closed regardless of the state it was in.
func (m *Manager) Disconnect() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	if m.state == core.ChannelClosed {
		m.mu.Unlock()
		return nil
	}
	m.closing = true
	m.transitionLocked(core.ChannelClosed)
	conn := m.conn
	m.conn = nil
	cancel := m.cancel
	m.cancel = nil
	done := m.done
	m.done = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var closeErr error
	if conn != nil {
		closeErr = conn.Close()
	}
	if done != nil {
		<-done
	}

	m.mu.Lock()
	m.closing = false
	m.mu.Unlock()
	m.logger.Info("channel disconnected")
	return closeErr
}

func (m *Manager) readLoop(ctx context.Context, conn Conn, done chan struct{}) {
	defer close(done)
	current := conn
	for {
		payload, err := current.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || m.isClosing() {
				return
			}
			m.mu.Lock()
			m.transitionLocked(core.ChannelDisconnected)
			m.conn = nil
			m.mu.Unlock()
			m.logger.Warn("channel connection lost", "error", err)

			next, reconnectErr := m.reconnect(ctx, err)
			if ctx.Err() != nil || m.isClosing() {
				if next != nil {
					next.Close()
				}
				return
			}
			if reconnectErr != nil {
				m.surfaceTerminal(reconnectErr)
				return
			}
			current = next
			continue
		}
		m.deliver(ctx, payload)
	}
}

// reconnect redials with exponential backoff, re-reading the credential
// store before every attempt. It returns the fresh connection, or the
// terminal failure once the attempt cap is hit.
func (m *Manager) reconnect(ctx context.Context, cause error) (Conn, error) {
	for {
		m.mu.Lock()
		attempt := m.attempts
		if attempt >= m.config.MaxReconnects {
			m.mu.Unlock()
			return nil, core.NewChannelError(cause, "Reconnect attempts exhausted")
		}
		m.attempts++
		m.mu.Unlock()

		if err := m.sleep(ctx, m.scheduler.NextDelay(attempt)); err != nil {
			return nil, nil
		}

		pair, err := m.credentials.Pair(ctx)
		if err != nil || strings.TrimSpace(pair.Access) == "" {
			if err == nil {
				err = core.ErrNoCredentials
			}
			return nil, core.NewUnauthorizedError(err)
		}

		m.mu.Lock()
		if !m.transitionLocked(core.ChannelConnecting) {
			m.mu.Unlock()
			return nil, nil
		}
		m.mu.Unlock()

		rawURL, err := m.handshakeURL(pair.Access)
		if err != nil {
			return nil, core.NewChannelError(err, "Channel handshake URL invalid")
		}
		conn, dialErr := m.dialer.DialContext(ctx, rawURL)
		if dialErr != nil {
			cause = dialErr
			m.mu.Lock()
			m.transitionLocked(core.ChannelDisconnected)
			m.mu.Unlock()
			m.logger.Warn("channel reconnect failed", "attempt", attempt+1, "error", dialErr)
			continue
		}

		m.mu.Lock()
		if m.closing {
			m.mu.Unlock()
			conn.Close()
			return nil, nil
		}
		m.conn = conn
		m.attempts = 0
		m.transitionLocked(core.ChannelOpen)
		m.mu.Unlock()
		m.logger.Info("channel reconnected", "attempts_used", attempt+1)
		return conn, nil
	}
}

// deliver routes one inbound frame. With a dispatcher attached the raw
// payload goes straight to it; otherwise the manager decodes and invokes
// the raw callback. Frames that fail to decode are dropped, never fatal.
func (m *Manager) deliver(ctx context.Context, payload []byte) {
	if m.dispatcher != nil {
		if err := m.dispatcher.DispatchRaw(ctx, payload); err != nil {
			m.logger.Warn("channel message handler failed", "error", err)
		}
		return
	}

	var msg core.ChannelMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		m.logger.Warn("dropping unparseable channel message", "error", err, "bytes", len(payload))
		return
	}
	if strings.TrimSpace(msg.Type) == "" {
		m.logger.Warn("dropping channel message without type", "bytes", len(payload))
		return
	}
	if m.onMessage != nil {
		m.onMessage(msg)
	}
}

func (m *Manager) surfaceTerminal(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.transitionLocked(core.ChannelClosed)
	m.conn = nil
	m.mu.Unlock()
	m.logger.Error("channel closed", "error", err)
	if m.onError != nil {
		m.onError(err)
	}
}

func (m *Manager) failConnect() {
	m.mu.Lock()
	m.transitionLocked(core.ChannelDisconnected)
	m.mu.Unlock()
}

func (m *Manager) isClosing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closing
}

// transitionLocked applies a lifecycle transition when the state machine
// allows it. Callers hold m.mu.
func (m *Manager) transitionLocked(next core.ChannelState) bool {
	if !core.ChannelTransitionAllowed(m.state, next) {
		return false
	}
	m.state = next
	return true
}

// handshakeURL builds <streamURL>/ws?token=<credential>. Duplex handshakes
// cannot carry custom headers from browsers, so the credential rides as a
// query parameter.
func (m *Manager) handshakeURL(credential string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(m.config.StreamURL))
	if err != nil {
		return "", err
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("stream: unsupported stream url scheme %q", base.Scheme)
	}
	base.Path = strings.TrimRight(base.Path, "/") + "/ws"
	query := base.Query()
	query.Set("token", credential)
	base.RawQuery = query.Encode()
	return base.String(), nil
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
