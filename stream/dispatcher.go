package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-florin/core"
	glog "github.com/goliatone/go-logger/glog"
)

// Handler consumes one inbound channel message.
type Handler func(ctx context.Context, msg core.ChannelMessage) error

// HandlerFunc adapts a closure that ignores the context.
func HandlerFunc(fn func(msg core.ChannelMessage) error) Handler {
	return func(_ context.Context, msg core.ChannelMessage) error {
		return fn(msg)
	}
}

// Dispatcher routes inbound channel messages to handlers registered by
// message type. Messages are processed one at a time in arrival order.
// Unknown and unparseable messages are dropped with a diagnostic log and
// counted; a drop never fails the read loop.
type Dispatcher struct {
	logger core.Logger
	burst  *BurstController

	mu         sync.RWMutex
	handlers   map[string]Handler
	dropped    int64
	suppressed int64
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(logger core.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithBurstController applies burst control before handlers run.
func WithBurstController(controller *BurstController) DispatcherOption {
	return func(d *Dispatcher) {
		d.burst = controller
	}
}

func NewDispatcher(options ...DispatcherOption) *Dispatcher {
	dispatcher := &Dispatcher{
		logger:   glog.Nop,
		handlers: map[string]Handler{},
	}
	for _, option := range options {
		if option != nil {
			option(dispatcher)
		}
	}
	dispatcher.logger = glog.Ensure(dispatcher.logger)
	return dispatcher
}

// Register binds a handler to a message type. A type holds one handler;
// registering a second is a conflict.
func (d *Dispatcher) Register(messageType string, handler Handler) error {
	if d == nil {
		return errors.New("stream: dispatcher not initialized")
	}
	normalized := normalizeMessageType(messageType)
	if normalized == "" {
		return errors.New("stream: message type is required")
	}
	if handler == nil {
		return fmt.Errorf("stream: handler for %q is required", normalized)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[normalized]; exists {
		return fmt.Errorf("stream: handler already registered for %q", normalized)
	}
	d.handlers[normalized] = handler
	return nil
}

// DispatchRaw decodes one wire frame and dispatches it. Frames that are
// not valid messages are dropped and counted.
func (d *Dispatcher) DispatchRaw(ctx context.Context, payload []byte) error {
	if d == nil {
		return errors.New("stream: dispatcher not initialized")
	}
	var msg core.ChannelMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		d.drop()
		d.logger.Warn("dropping unparseable channel message", "error", err, "bytes", len(payload))
		return nil
	}
	return d.Dispatch(ctx, msg)
}

// Dispatch routes one decoded message to its handler. Handler errors are
// returned to the caller; routing failures only drop the message.
func (d *Dispatcher) Dispatch(ctx context.Context, msg core.ChannelMessage) error {
	if d == nil {
		return errors.New("stream: dispatcher not initialized")
	}
	normalized := normalizeMessageType(msg.Type)
	if normalized == "" {
		d.drop()
		d.logger.Warn("dropping channel message without type")
		return nil
	}

	d.mu.RLock()
	handler := d.handlers[normalized]
	d.mu.RUnlock()
	if handler == nil {
		d.drop()
		d.logger.Debug("dropping channel message with no handler", "type", normalized)
		return nil
	}

	if d.burst != nil {
		decision := d.burst.Allow(msg)
		if !decision.Allow {
			d.mu.Lock()
			d.suppressed++
			d.mu.Unlock()
			d.logger.Debug("suppressing channel message burst", "type", normalized, "key", decision.Key)
			return nil
		}
	}

	if err := handler(ctx, msg); err != nil {
		return fmt.Errorf("stream: handler for %q: %w", normalized, err)
	}
	return nil
}

// Dropped reports how many messages were discarded for being unparseable,
// untyped, or unhandled.
func (d *Dispatcher) Dropped() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dropped
}

// Suppressed reports how many messages burst control swallowed.
func (d *Dispatcher) Suppressed() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.suppressed
}

func (d *Dispatcher) drop() {
	d.mu.Lock()
	d.dropped++
	d.mu.Unlock()
}

func normalizeMessageType(messageType string) string {
	return strings.ToLower(strings.TrimSpace(messageType))
}
