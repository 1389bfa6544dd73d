package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Request is the logical request resource callers hand to the pipeline.
// Path is joined to the configured base URL; Query and Headers are merged
// into the outgoing exchange.
type Request struct {
	Method      string
	Path        string
	Query       map[string]string
	Headers     map[string]string
	Body        []byte
	Idempotency string
	Metadata    map[string]any
}

// TransportRequest is the single-exchange contract handed to a transport
// adapter. URL is absolute by the time it reaches the adapter.
type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	Idempotency          string
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// TransportAdapter performs exactly one HTTP exchange. It returns an error
// only when no response was received; non-2xx responses come back as
// TransportResponse values for the normalizer to classify.
type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// CredentialPair is the two-entry credential state the client owns: the
// short-lived access credential attached to requests and the longer-lived
// refresh credential used only by the refresh exchange. Both values are
// opaque; the client never inspects their structure.
type CredentialPair struct {
	Access  string
	Refresh string
}

func (p CredentialPair) Empty() bool {
	return p.Access == "" && p.Refresh == ""
}

// CredentialStore holds exactly the credential pair. SetPair and Clear act on
// both entries together so the pair is always consistent or both absent;
// there is no single-entry mutation.
type CredentialStore interface {
	Pair(ctx context.Context) (CredentialPair, error)
	SetPair(ctx context.Context, pair CredentialPair) error
	Clear(ctx context.Context) error
}

// RefreshExchanger performs the dedicated credential refresh exchange:
// the stored refresh credential goes out, a new pair comes back. The
// exchange is never retried and never queued by the implementation; the
// coordinator owns all scheduling around it.
type RefreshExchanger interface {
	ExchangeRefresh(ctx context.Context, refreshCredential string) (CredentialPair, error)
}

// SessionTerminator is invoked, with no payload, when an authorization
// failure is unrecoverable (the refresh exchange itself failed). The host
// application owns whatever follows: redirect, re-login prompt, shutdown.
type SessionTerminator func(ctx context.Context)

// AuthClient performs the credential exchanges against the auth endpoints.
// Login yields the initial pair, ExchangeRefresh rotates it, Revoke
// invalidates the refresh credential server-side.
type AuthClient interface {
	RefreshExchanger
	Login(ctx context.Context, email string, password string) (CredentialPair, error)
	Revoke(ctx context.Context, refreshCredential string) error
}

// SessionClient is the session surface of the assembled client.
type SessionClient interface {
	Login(ctx context.Context, email string, password string) (CredentialPair, error)
	Logout(ctx context.Context) error
	SessionStatus(ctx context.Context) (SessionStatus, error)
	RefreshCredentials(ctx context.Context) (CredentialPair, error)
	Send(ctx context.Context, req Request, options ...SendOption) (Envelope, error)
}

// RequestHook may mutate an outgoing transport request before it is sent,
// for example to stamp tracing headers. Returning an error aborts the send.
type RequestHook func(ctx context.Context, req *TransportRequest) error

// ResponseHook observes each completed exchange, including non-2xx ones.
type ResponseHook func(ctx context.Context, req TransportRequest, res TransportResponse)

// RateLimitKey identifies a client-side throttle bucket: the endpoint group
// (accounts, transactions, auth, ...) plus the HTTP method.
type RateLimitKey struct {
	Group  string
	Method string
}

// ResponseMeta carries the rate-limit relevant parts of a response to the
// policy's AfterCall.
type ResponseMeta struct {
	StatusCode int
	Headers    map[string]string
	RetryAfter *time.Duration
	Metadata   map[string]any
}

// RateLimitPolicy gates outbound calls. BeforeCall fails when the bucket is
// throttled; AfterCall feeds observed response headers back into the policy.
type RateLimitPolicy interface {
	BeforeCall(ctx context.Context, key RateLimitKey) error
	AfterCall(ctx context.Context, key RateLimitKey, res ResponseMeta) error
}

type UpsertSyncCursorInput struct {
	Resource     string
	Cursor       string
	LastSyncedAt *time.Time
	Status       string
	Metadata     map[string]any
}

type AdvanceSyncCursorInput struct {
	Resource       string
	ExpectedCursor string
	Cursor         string
	LastSyncedAt   *time.Time
	Status         string
	Metadata       map[string]any
}

// SyncCursorStore tracks incremental sync positions per resource collection.
// Advance is optimistic: it fails when the stored cursor no longer matches
// ExpectedCursor.
type SyncCursorStore interface {
	Get(ctx context.Context, resource string) (SyncCursor, error)
	Upsert(ctx context.Context, in UpsertSyncCursorInput) (SyncCursor, error)
	Advance(ctx context.Context, in AdvanceSyncCursorInput) (SyncCursor, error)
}

// StoreProvider exposes the durable stores a repository factory builds.
type StoreProvider interface {
	CredentialStore() CredentialStore
	SyncCursorStore() SyncCursorStore
}

// RepositoryStoreFactory builds stores from a persistence client. The
// argument stays `any` so core does not depend on the storage stack.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// Signer attaches the access credential to an outgoing transport request.
type Signer interface {
	Sign(ctx context.Context, req *TransportRequest, credential string) error
}
