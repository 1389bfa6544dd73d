package stream

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-florin/core"
)

// BurstMode selects how rapid repeats of the same event are admitted.
type BurstMode string

const (
	// BurstModeNone admits everything.
	BurstModeNone BurstMode = "none"
	// BurstModeCoalesce admits the first event of a window and suppresses
	// the repeats that land inside it.
	BurstModeCoalesce BurstMode = "coalesce"
	// BurstModeDebounce admits an event only after the window elapses
	// without another arrival for the same key.
	BurstModeDebounce BurstMode = "debounce"
)

const (
	defaultBurstWindow     = 2 * time.Second
	defaultBurstMaxEntries = 4096
)

// BurstDecision reports whether a message passed burst control.
type BurstDecision struct {
	Allow    bool
	Key      string
	Metadata map[string]any
}

// BurstKeyFunc derives the suppression key for a message. Returning false
// exempts the message from burst control.
type BurstKeyFunc func(msg core.ChannelMessage) (string, bool)

// BurstOptions configures a BurstController.
type BurstOptions struct {
	Mode       BurstMode
	Window     time.Duration
	MaxEntries int
	ExtractKey BurstKeyFunc
	Now        func() time.Time
}

// BurstController decides, per suppression key, whether an event burst is
// collapsed. The entry table is bounded so a hostile stream of distinct
// keys cannot grow it without limit.
type BurstController struct {
	mode       BurstMode
	window     time.Duration
	maxEntries int
	extractKey BurstKeyFunc
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

func NewBurstController(opts BurstOptions) *BurstController {
	controller := &BurstController{
		mode:       normalizeBurstMode(opts.Mode),
		window:     opts.Window,
		maxEntries: opts.MaxEntries,
		extractKey: opts.ExtractKey,
		now:        opts.Now,
		entries:    map[string]time.Time{},
	}
	if controller.window <= 0 {
		controller.window = defaultBurstWindow
	}
	if controller.maxEntries <= 0 {
		controller.maxEntries = defaultBurstMaxEntries
	}
	if controller.extractKey == nil {
		controller.extractKey = DefaultBurstKey
	}
	if controller.now == nil {
		controller.now = time.Now
	}
	return controller
}

// Allow decides whether the message runs or is swallowed as part of a
// burst.
func (c *BurstController) Allow(msg core.ChannelMessage) BurstDecision {
	if c == nil || c.mode == BurstModeNone {
		return BurstDecision{Allow: true}
	}
	key, ok := c.extractKey(msg)
	if !ok || key == "" {
		return BurstDecision{Allow: true}
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanup(now)

	last, seen := c.entries[key]
	if !seen || now.Sub(last) >= c.window {
		c.entries[key] = now
		return BurstDecision{Allow: true, Key: key}
	}
	if c.mode == BurstModeDebounce {
		// Every arrival restarts the quiet window.
		c.entries[key] = now
	}

	verb := "coalesced"
	if c.mode == BurstModeDebounce {
		verb = "debounced"
	}
	return BurstDecision{
		Allow: false,
		Key:   key,
		Metadata: map[string]any{
			"burst_mode":      string(c.mode),
			"burst_key":       key,
			"burst_window_ms": c.window.Milliseconds(),
			verb:              true,
		},
	}
}

// cleanup runs under c.mu. Entries idle for four windows are forgotten,
// and the table is trimmed oldest-first when it outgrows the bound.
func (c *BurstController) cleanup(now time.Time) {
	horizon := c.window * 4
	for key, seen := range c.entries {
		if now.Sub(seen) > horizon {
			delete(c.entries, key)
		}
	}
	if len(c.entries) <= c.maxEntries {
		return
	}

	type aged struct {
		key  string
		seen time.Time
	}
	oldest := make([]aged, 0, len(c.entries))
	for key, seen := range c.entries {
		oldest = append(oldest, aged{key: key, seen: seen})
	}
	sort.Slice(oldest, func(i, j int) bool {
		return oldest[i].seen.Before(oldest[j].seen)
	})
	for _, entry := range oldest[:len(c.entries)-c.maxEntries] {
		delete(c.entries, entry.key)
	}
}

// DefaultBurstKey keys burst control on message type plus the entity id
// carried in the payload. Messages without an identifiable entity are
// exempt.
func DefaultBurstKey(msg core.ChannelMessage) (string, bool) {
	entity := entityID(msg.Data)
	if entity == "" {
		return "", false
	}
	messageType := normalizeMessageType(msg.Type)
	if messageType == "" {
		return "", false
	}
	return messageType + ":" + entity, true
}

func entityID(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var fields struct {
		ID            string `json:"id"`
		EntityID      string `json:"entityId"`
		AccountID     string `json:"accountId"`
		TransactionID string `json:"transactionId"`
		BudgetID      string `json:"budgetId"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return ""
	}
	for _, candidate := range []string{fields.ID, fields.EntityID, fields.AccountID, fields.TransactionID, fields.BudgetID} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func normalizeBurstMode(mode BurstMode) BurstMode {
	switch BurstMode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case BurstModeCoalesce:
		return BurstModeCoalesce
	case BurstModeDebounce:
		return BurstModeDebounce
	default:
		return BurstModeNone
	}
}
