package core

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

const (
	// DefaultRequestTimeout bounds a single exchange when neither the
	// pipeline nor the caller overrides it.
	DefaultRequestTimeout = 10 * time.Second

	headerRequestID   = "X-Request-ID"
	headerIdempotency = "Idempotency-Key"
)

// CredentialRefresher yields a usable credential pair after an
// authorization failure. RefreshCoordinator is the canonical
// implementation.
type CredentialRefresher interface {
	Refresh(ctx context.Context) (CredentialPair, error)
}

var _ CredentialRefresher = (*RefreshCoordinator)(nil)

// Pipeline turns logical requests into authenticated exchanges: it signs
// with the stored access credential, sends through the transport adapter,
// normalizes every failure, retries per policy, and re-authenticates once
// per request after a 401 by going through the refresh coordinator.
type Pipeline struct {
	baseURL     string
	adapter     TransportAdapter
	credentials CredentialStore
	refresher   CredentialRefresher
	signer      Signer
	retry       RetryPolicy
	rateLimit   RateLimitPolicy

	requestHooks  []RequestHook
	responseHooks []ResponseHook

	timeout   time.Duration
	logger    Logger
	metrics   MetricsRecorder
	requestID func() string
}

// PipelineOption customizes a pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the pipeline logger.
func WithPipelineLogger(logger Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPipelineMetrics sets the telemetry sink.
func WithPipelineMetrics(metrics MetricsRecorder) PipelineOption {
	return func(p *Pipeline) {
		if metrics != nil {
			p.metrics = metrics
		}
	}
}

// WithPipelineSigner replaces the default bearer signer.
func WithPipelineSigner(signer Signer) PipelineOption {
	return func(p *Pipeline) {
		if signer != nil {
			p.signer = signer
		}
	}
}

// WithPipelineRetryPolicy replaces the default retry policy.
func WithPipelineRetryPolicy(policy RetryPolicy) PipelineOption {
	return func(p *Pipeline) {
		p.retry = policy
	}
}

// WithPipelineRateLimit gates outbound exchanges through a client-side
// throttle.
func WithPipelineRateLimit(policy RateLimitPolicy) PipelineOption {
	return func(p *Pipeline) {
		p.rateLimit = policy
	}
}

// WithPipelineRequestHook appends a hook run against every outgoing exchange.
func WithPipelineRequestHook(hook RequestHook) PipelineOption {
	return func(p *Pipeline) {
		if hook != nil {
			p.requestHooks = append(p.requestHooks, hook)
		}
	}
}

// WithPipelineResponseHook appends an observer for every completed exchange.
func WithPipelineResponseHook(hook ResponseHook) PipelineOption {
	return func(p *Pipeline) {
		if hook != nil {
			p.responseHooks = append(p.responseHooks, hook)
		}
	}
}

// WithPipelineTimeout overrides the per-exchange timeout.
func WithPipelineTimeout(timeout time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithRequestIDFactory overrides request id generation, mainly for tests.
func WithRequestIDFactory(factory func() string) PipelineOption {
	return func(p *Pipeline) {
		if factory != nil {
			p.requestID = factory
		}
	}
}

// NewPipeline wires a request pipeline over the transport adapter and
// credential store. The refresher may be nil for unauthenticated clients;
// 401 responses then normalize without a refresh attempt.
func NewPipeline(baseURL string, adapter TransportAdapter, credentials CredentialStore, refresher CredentialRefresher, options ...PipelineOption) (*Pipeline, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("core: pipeline requires a base URL")
	}
	if adapter == nil {
		return nil, errors.New("core: pipeline requires a transport adapter")
	}
	if credentials == nil {
		return nil, errors.New("core: pipeline requires a credential store")
	}

	pipeline := &Pipeline{
		baseURL:     baseURL,
		adapter:     adapter,
		credentials: credentials,
		refresher:   refresher,
		signer:      BearerCredentialSigner{},
		retry:       DefaultRetryPolicy(),
		timeout:     DefaultRequestTimeout,
		logger:      glog.Nop,
		metrics:     NopMetricsRecorder{},
		requestID:   uuid.NewString,
	}
	for _, option := range options {
		if option != nil {
			option(pipeline)
		}
	}
	pipeline.logger = glog.Ensure(pipeline.logger)
	return pipeline, nil
}

type sendOverrides struct {
	retryEnabled   *bool
	maxRetries     *int
	timeout        *time.Duration
	rateLimitGroup string
}

// SendOption tunes a single Send call.
type SendOption func(*sendOverrides)

// WithRetry enables or disables retry for this call regardless of the
// method default. Writes opt in with WithRetry(true).
func WithRetry(enabled bool) SendOption {
	return func(o *sendOverrides) {
		o.retryEnabled = &enabled
	}
}

// WithMaxRetries overrides the extra-attempt budget for this call. It takes
// effect only when retry is enabled for the call.
func WithMaxRetries(maxRetries int) SendOption {
	return func(o *sendOverrides) {
		if maxRetries >= 0 {
			o.maxRetries = &maxRetries
		}
	}
}

// WithSendTimeout overrides the exchange timeout for this call.
func WithSendTimeout(timeout time.Duration) SendOption {
	return func(o *sendOverrides) {
		if timeout > 0 {
			o.timeout = &timeout
		}
	}
}

// WithRateLimitGroup overrides the throttle bucket for this call; the
// default bucket is the first path segment.
func WithRateLimitGroup(group string) SendOption {
	return func(o *sendOverrides) {
		o.rateLimitGroup = strings.TrimSpace(group)
	}
}

type sendSettings struct {
	maxRetries     int
	timeout        time.Duration
	rateLimitGroup string
}

// Send performs one logical request: sign, exchange, normalize, retry per
// policy, and a single refresh-and-reissue cycle on 401. The returned
// envelope is the decoded uniform response wrapper.
func (p *Pipeline) Send(ctx context.Context, req Request, options ...SendOption) (Envelope, error) {
	if p == nil {
		return Envelope{}, errors.New("core: pipeline not initialized")
	}
	start := time.Now()

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	envelope, err := p.send(ctx, method, req, p.resolveSendSettings(method, req, options...))
	if err != nil {
		err = clientErrorMapper(err)
	}

	observeOperation(ctx, p.logger, p.metrics, "request", start, err, map[string]any{
		"method": method,
		"path":   req.Path,
	})
	return envelope, err
}

func (p *Pipeline) resolveSendSettings(method string, req Request, options ...SendOption) sendSettings {
	overrides := &sendOverrides{}
	for _, option := range options {
		if option != nil {
			option(overrides)
		}
	}

	retryEnabled := MethodRetryDefault(method)
	if overrides.retryEnabled != nil {
		retryEnabled = *overrides.retryEnabled
	}
	maxRetries := 0
	if retryEnabled {
		maxRetries = p.retry.MaxRetries
		if overrides.maxRetries != nil {
			maxRetries = *overrides.maxRetries
		}
	}

	timeout := p.timeout
	if overrides.timeout != nil {
		timeout = *overrides.timeout
	}

	group := overrides.rateLimitGroup
	if group == "" {
		group = rateLimitGroupForPath(req.Path)
	}

	return sendSettings{
		maxRetries:     maxRetries,
		timeout:        timeout,
		rateLimitGroup: group,
	}
}

func (p *Pipeline) send(ctx context.Context, method string, req Request, settings sendSettings) (Envelope, error) {
	if strings.TrimSpace(req.Path) == "" {
		return Envelope{}, goerrors.New("request path is required", goerrors.CategoryBadInput).
			WithTextCode(ClientErrorBadInput)
	}

	key := RateLimitKey{Group: settings.rateLimitGroup, Method: method}

	// The auth-retry mark spans the whole logical request: one refresh and
	// reissue cycle total, not one per retry attempt.
	authRetried := false
	var envelope Envelope

	policy := p.retry
	policy.MaxRetries = settings.maxRetries
	err := policy.Run(ctx, func(ctx context.Context, attempt int) error {
		result, err := p.exchangeOnce(ctx, method, req, settings, key, &authRetried)
		if err != nil {
			return err
		}
		envelope = result
		return nil
	})
	if err != nil {
		return Envelope{}, err
	}
	return envelope, nil
}

// exchangeOnce performs a single attempt: one signed exchange, plus at most
// one refresh-and-reissue when the server answers 401 and the request has
// not yet been retried for auth.
func (p *Pipeline) exchangeOnce(ctx context.Context, method string, req Request, settings sendSettings, key RateLimitKey, authRetried *bool) (Envelope, error) {
	if p.rateLimit != nil {
		if err := p.rateLimit.BeforeCall(ctx, key); err != nil {
			return Envelope{}, err
		}
	}

	// An empty store is not an error here: the request goes out unsigned
	// and the server decides whether the endpoint needs credentials.
	pair, err := p.credentials.Pair(ctx)
	if err != nil && !errors.Is(err, ErrNoCredentials) {
		return Envelope{}, goerrors.Wrap(err, goerrors.CategoryInternal, "reading stored credentials failed")
	}

	res, err := p.dispatch(ctx, method, req, settings, key, pair.Access)
	if err != nil {
		return Envelope{}, err
	}

	if res.StatusCode == http.StatusUnauthorized && !*authRetried && p.refresher != nil {
		*authRetried = true
		refreshed, refreshErr := p.refresher.Refresh(ctx)
		if refreshErr != nil {
			// The coordinator already cleared the pair and notified the
			// session terminator; all that is left is the terminal error.
			return Envelope{}, NewUnauthorizedError(refreshErr)
		}
		res, err = p.dispatch(ctx, method, req, settings, key, refreshed.Access)
		if err != nil {
			return Envelope{}, err
		}
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return DecodeEnvelope(res.Body)
	}
	return Envelope{}, NormalizeResponse(res)
}

// dispatch builds a fresh transport request, signs it, runs the hooks, and
// performs exactly one exchange. Transport failures come back already
// normalized.
func (p *Pipeline) dispatch(ctx context.Context, method string, req Request, settings sendSettings, key RateLimitKey, accessCredential string) (TransportResponse, error) {
	transportReq := p.buildTransportRequest(method, req, settings)
	if p.signer != nil {
		if err := p.signer.Sign(ctx, &transportReq, accessCredential); err != nil {
			return TransportResponse{}, goerrors.Wrap(err, goerrors.CategoryInternal, "signing request failed")
		}
	}
	for _, hook := range p.requestHooks {
		if err := hook(ctx, &transportReq); err != nil {
			return TransportResponse{}, goerrors.Wrap(err, goerrors.CategoryOperation, "request hook rejected the exchange")
		}
	}

	res, err := p.adapter.Do(ctx, transportReq)
	if err != nil {
		return TransportResponse{}, NormalizeTransportFailure(err)
	}

	for _, hook := range p.responseHooks {
		hook(ctx, transportReq, res)
	}
	if p.rateLimit != nil {
		if err := p.rateLimit.AfterCall(ctx, key, responseMetaFrom(res)); err != nil {
			p.logger.Warn("rate limit state update failed", "error", err)
		}
	}
	return res, nil
}

// buildTransportRequest materializes the outgoing exchange with fresh
// header and query maps, so retries and the auth reissue never see state
// mutated by a previous attempt.
func (p *Pipeline) buildTransportRequest(method string, req Request, settings sendSettings) TransportRequest {
	headers := make(map[string]string, len(req.Headers)+4)
	headers["Accept"] = "application/json"
	if len(req.Body) > 0 {
		headers["Content-Type"] = "application/json"
	}
	headers[headerRequestID] = p.requestID()
	if strings.TrimSpace(req.Idempotency) != "" {
		headers[headerIdempotency] = strings.TrimSpace(req.Idempotency)
	}
	for key, value := range req.Headers {
		headers[key] = value
	}

	return TransportRequest{
		Method:      method,
		URL:         joinURL(p.baseURL, req.Path),
		Headers:     headers,
		Query:       cloneStringMap(req.Query),
		Body:        req.Body,
		Metadata:    cloneAnyMap(req.Metadata),
		Timeout:     settings.timeout,
		Idempotency: strings.TrimSpace(req.Idempotency),
	}
}

func responseMetaFrom(res TransportResponse) ResponseMeta {
	meta := ResponseMeta{
		StatusCode: res.StatusCode,
		Headers:    res.Headers,
		Metadata:   res.Metadata,
	}
	raw := strings.TrimSpace(headerValue(res.Headers, "Retry-After"))
	if raw == "" {
		return meta
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds >= 0 {
		wait := time.Duration(seconds) * time.Second
		meta.RetryAfter = &wait
		return meta
	}
	if at, err := http.ParseTime(raw); err == nil {
		wait := time.Until(at)
		if wait < 0 {
			wait = 0
		}
		meta.RetryAfter = &wait
	}
	return meta
}

func headerValue(headers map[string]string, name string) string {
	if len(headers) == 0 {
		return ""
	}
	if value, ok := headers[name]; ok {
		return value
	}
	for key, value := range headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

func rateLimitGroupForPath(path string) string {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	if path == "" {
		return "default"
	}
	if idx := strings.IndexAny(path, "/?"); idx > 0 {
		path = path[:idx]
	}
	return strings.ToLower(path)
}

func joinURL(base string, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func cloneStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func cloneAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
