package florin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-florin/core"
	"github.com/goliatone/go-florin/stream"
	florinsync "github.com/goliatone/go-florin/sync"
)

// ErrChannelNotConfigured reports a channel operation on a client whose
// config carries no stream URL.
var ErrChannelNotConfigured = errors.New("florin: channel is not configured")

// Client is the assembled Florin API client: the authenticated request
// pipeline from core, typed resource accessors on top of it, the duplex
// channel when a stream URL is configured, and the sync orchestrator.
//
// The embedded service contributes the session operations (Login, Logout,
// SessionStatus, RefreshCredentials) and raw Send access; everything else
// lives on the client.
type Client struct {
	*core.Service

	accounts     *AccountsService
	transactions *TransactionsService
	budgets      *BudgetsService
	analytics    *AnalyticsService
	incomePlans  *IncomePlansService

	categorizer  *Categorizer
	channel      *stream.Manager
	dispatcher   *stream.Dispatcher
	orchestrator *florinsync.Orchestrator
}

// ClientOption adjusts client assembly.
type ClientOption func(*clientOptions)

type clientOptions struct {
	serviceOptions    []core.Option
	channelOptions    []stream.Option
	dispatcherOptions []stream.DispatcherOption
	syncJobs          florinsync.JobStore
	syncApplier       florinsync.Applier
	syncEnqueuer      florinsync.JobEnqueuer
	categoryRules     []core.CategoryRule
	channelDisabled   bool
}

// WithServiceOptions forwards options to the underlying core service
// builder.
func WithServiceOptions(options ...core.Option) ClientOption {
	return func(o *clientOptions) {
		o.serviceOptions = append(o.serviceOptions, options...)
	}
}

// WithChannelOptions forwards options to the duplex channel manager when
// one is assembled.
func WithChannelOptions(options ...stream.Option) ClientOption {
	return func(o *clientOptions) {
		o.channelOptions = append(o.channelOptions, options...)
	}
}

// WithDispatcherOptions forwards options to the inbound channel message
// dispatcher.
func WithDispatcherOptions(options ...stream.DispatcherOption) ClientOption {
	return func(o *clientOptions) {
		o.dispatcherOptions = append(o.dispatcherOptions, options...)
	}
}

// WithSyncJobStore overrides the in-memory sync job store.
func WithSyncJobStore(store florinsync.JobStore) ClientOption {
	return func(o *clientOptions) {
		if store != nil {
			o.syncJobs = store
		}
	}
}

// WithSyncApplier registers the callback that commits fetched sync pages
// into the host application. Sync runs fail until one is registered.
func WithSyncApplier(applier florinsync.Applier) ClientOption {
	return func(o *clientOptions) {
		if applier != nil {
			o.syncApplier = applier
		}
	}
}

// WithSyncEnqueuer hands queued sync jobs to a background queue instead of
// waiting for an explicit RunSync call.
func WithSyncEnqueuer(enqueuer florinsync.JobEnqueuer) ClientOption {
	return func(o *clientOptions) {
		if enqueuer != nil {
			o.syncEnqueuer = enqueuer
		}
	}
}

// WithCategoryRules installs local categorization rules, evaluated in
// priority order by the client's Categorizer.
func WithCategoryRules(rules ...core.CategoryRule) ClientOption {
	return func(o *clientOptions) {
		o.categoryRules = append(o.categoryRules, rules...)
	}
}

// WithoutChannel skips channel assembly even when the config carries a
// stream URL.
func WithoutChannel() ClientOption {
	return func(o *clientOptions) {
		o.channelDisabled = true
	}
}

// NewClient assembles a Florin client from configuration. The transport
// adapter requirement and store defaults follow the core service builder;
// the channel manager is assembled only when the resolved config carries a
// stream URL.
func NewClient(cfg core.Config, options ...ClientOption) (*Client, error) {
	opts := &clientOptions{}
	for _, option := range options {
		if option != nil {
			option(opts)
		}
	}

	service, err := core.NewService(cfg, opts.serviceOptions...)
	if err != nil {
		return nil, err
	}

	client := &Client{Service: service}
	client.accounts = &AccountsService{client: client}
	client.transactions = &TransactionsService{client: client}
	client.budgets = &BudgetsService{client: client}
	client.analytics = &AnalyticsService{client: client}
	client.incomePlans = &IncomePlansService{client: client}

	if len(opts.categoryRules) > 0 {
		categorizer, err := NewCategorizer(opts.categoryRules)
		if err != nil {
			return nil, err
		}
		client.categorizer = categorizer
	}

	deps := service.Dependencies()
	resolved := service.Config()

	if streamURL := strings.TrimSpace(resolved.Channel.StreamURL); streamURL != "" && !opts.channelDisabled {
		dispatcherOptions := append(
			[]stream.DispatcherOption{stream.WithDispatcherLogger(deps.Logger)},
			opts.dispatcherOptions...,
		)
		client.dispatcher = stream.NewDispatcher(dispatcherOptions...)

		channelOptions := append(
			[]stream.Option{
				stream.WithLogger(deps.Logger),
				stream.WithDispatcher(client.dispatcher),
			},
			opts.channelOptions...,
		)
		channel, err := stream.NewManager(resolved.Channel, deps.CredentialStore, channelOptions...)
		if err != nil {
			return nil, err
		}
		client.channel = channel
	}

	cursors, err := service.SyncCursors()
	if err != nil {
		cursors = core.NewMemorySyncCursorStore()
	}
	jobs := opts.syncJobs
	if jobs == nil {
		jobs = florinsync.NewMemoryJobStore()
	}
	orchestrator := florinsync.NewOrchestrator(jobs, cursors, client, opts.syncApplier)
	orchestrator.Enqueuer = opts.syncEnqueuer
	if resolved.Sync.PageSize > 0 {
		orchestrator.PageSize = resolved.Sync.PageSize
	}
	client.orchestrator = orchestrator

	return client, nil
}

// Accounts returns the account resource accessor.
func (c *Client) Accounts() *AccountsService { return c.accounts }

// Transactions returns the transaction resource accessor.
func (c *Client) Transactions() *TransactionsService { return c.transactions }

// Budgets returns the budget resource accessor.
func (c *Client) Budgets() *BudgetsService { return c.budgets }

// Analytics returns the analytics resource accessor.
func (c *Client) Analytics() *AnalyticsService { return c.analytics }

// IncomePlans returns the income plan resource accessor.
func (c *Client) IncomePlans() *IncomePlansService { return c.incomePlans }

// Categorizer returns the local categorization rule engine, or nil when no
// rules were registered.
func (c *Client) Categorizer() *Categorizer {
	if c == nil {
		return nil
	}
	return c.categorizer
}

// Channel returns the duplex channel manager, or nil when no stream URL is
// configured.
func (c *Client) Channel() *stream.Manager {
	if c == nil {
		return nil
	}
	return c.channel
}

// ChannelDispatcher returns the inbound channel message dispatcher, or nil
// when the channel is not configured.
func (c *Client) ChannelDispatcher() *stream.Dispatcher {
	if c == nil {
		return nil
	}
	return c.dispatcher
}

// ChannelState reports the current channel lifecycle state. A client
// without a configured channel reports disconnected.
func (c *Client) ChannelState() core.ChannelState {
	if c == nil || c.channel == nil {
		return core.ChannelDisconnected
	}
	return c.channel.State()
}

// ConnectChannel opens the duplex channel using the stored credential.
func (c *Client) ConnectChannel(ctx context.Context) error {
	if c == nil || c.channel == nil {
		return ErrChannelNotConfigured
	}
	return c.channel.Connect(ctx)
}

// DisconnectChannel closes the duplex channel and waits for its read loop
// to stop.
func (c *Client) DisconnectChannel() error {
	if c == nil || c.channel == nil {
		return ErrChannelNotConfigured
	}
	return c.channel.Disconnect()
}

// PublishChannel sends a message over the open duplex channel.
func (c *Client) PublishChannel(ctx context.Context, msg core.ChannelMessage) error {
	if c == nil || c.channel == nil {
		return ErrChannelNotConfigured
	}
	return c.channel.Send(ctx, msg)
}

// Sync returns the sync orchestrator.
func (c *Client) Sync() *florinsync.Orchestrator {
	if c == nil {
		return nil
	}
	return c.orchestrator
}

// StartSync records a sync job for one resource collection. An empty mode
// starts an incremental run.
func (c *Client) StartSync(ctx context.Context, input core.StartSyncInput) (core.SyncJob, error) {
	if err := input.Validate(); err != nil {
		return core.SyncJob{}, err
	}
	switch input.Mode {
	case core.SyncModeBootstrap:
		return c.orchestrator.StartBootstrap(ctx, florinsync.BootstrapRequest{
			Resource:       input.Resource,
			IdempotencyKey: input.IdempotencyKey,
		})
	case core.SyncModeBackfill:
		return c.orchestrator.StartBackfill(ctx, florinsync.BackfillRequest{
			Resource:       input.Resource,
			From:           input.From,
			To:             input.To,
			IdempotencyKey: input.IdempotencyKey,
		})
	default:
		return c.orchestrator.StartIncremental(ctx, florinsync.IncrementalRequest{
			Resource:       input.Resource,
			IdempotencyKey: input.IdempotencyKey,
		})
	}
}

// RunSync executes a recorded sync job to completion.
func (c *Client) RunSync(ctx context.Context, jobID string) (core.SyncJob, error) {
	return c.orchestrator.Run(ctx, jobID)
}

// RequeueSync puts a failed sync job back in the queue for another run.
func (c *Client) RequeueSync(ctx context.Context, jobID string) (core.SyncJob, error) {
	return c.orchestrator.Requeue(ctx, jobID)
}

type syncPagePayload struct {
	Items      []json.RawMessage `json:"items"`
	NextCursor string            `json:"nextCursor"`
	HasMore    bool              `json:"hasMore"`
}

// FetchPage pulls one page of a resource collection from the remote sync
// endpoint, satisfying the orchestrator's fetcher contract.
func (c *Client) FetchPage(ctx context.Context, req florinsync.PageRequest) (florinsync.Page, error) {
	resource := strings.TrimSpace(req.Resource)
	if resource == "" {
		return florinsync.Page{}, core.ErrSyncResourceRequired
	}

	query := map[string]string{}
	if req.Cursor != "" {
		query["cursor"] = req.Cursor
	}
	if req.Limit > 0 {
		query["limit"] = strconv.Itoa(req.Limit)
	}
	if req.From != nil {
		query["from"] = req.From.UTC().Format(time.RFC3339)
	}
	if req.To != nil {
		query["to"] = req.To.UTC().Format(time.RFC3339)
	}

	envelope, err := c.Send(ctx, core.Request{
		Method: http.MethodGet,
		Path:   "/sync/" + url.PathEscape(resource),
		Query:  query,
	})
	if err != nil {
		return florinsync.Page{}, err
	}
	payload, err := core.DecodeData[syncPagePayload](envelope)
	if err != nil {
		return florinsync.Page{}, err
	}
	return florinsync.Page{
		Items:      payload.Items,
		NextCursor: payload.NextCursor,
		HasMore:    payload.HasMore,
	}, nil
}
