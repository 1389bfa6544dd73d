package florin

import "github.com/goliatone/go-florin/core"

type Config = core.Config

type RetryConfig = core.RetryConfig
type ChannelConfig = core.ChannelConfig
type SyncConfig = core.SyncConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type CredentialStore = core.CredentialStore
type CredentialPair = core.CredentialPair
type TransportAdapter = core.TransportAdapter
type TransportRequest = core.TransportRequest
type TransportResponse = core.TransportResponse
type SyncCursorStore = core.SyncCursorStore
type AuthClient = core.AuthClient
type Signer = core.Signer
type RateLimitPolicy = core.RateLimitPolicy
type SessionTerminator = core.SessionTerminator
type BackoffScheduler = core.BackoffScheduler

type Request = core.Request
type SendOption = core.SendOption

type Envelope = core.Envelope
type Pagination = core.Pagination

type ChannelMessage = core.ChannelMessage
type ChannelState = core.ChannelState

type SessionStatus = core.SessionStatus

var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithErrorFactory        = core.WithErrorFactory
	WithErrorMapper         = core.WithErrorMapper
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithPersistenceClient   = core.WithPersistenceClient
	WithRepositoryFactory   = core.WithRepositoryFactory
	WithTransportAdapter    = core.WithTransportAdapter
	WithCredentialStore     = core.WithCredentialStore
	WithSyncCursorStore     = core.WithSyncCursorStore
	WithAuthClient          = core.WithAuthClient
	WithCredentialRefresher = core.WithCredentialRefresher
	WithSigner              = core.WithSigner
	WithRateLimitPolicy     = core.WithRateLimitPolicy
	WithSessionTerminator   = core.WithSessionTerminator
	WithRequestHook         = core.WithRequestHook
	WithResponseHook        = core.WithResponseHook
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewService assembles the core service alone, without resource accessors,
// channel, or sync wiring. Most hosts want NewClient.
func NewService(cfg Config, options ...Option) (*Service, error) {
	return core.NewService(cfg, options...)
}

// Setup assembles a full client. Convenience alias for NewClient.
func Setup(cfg Config, options ...ClientOption) (*Client, error) {
	return NewClient(cfg, options...)
}
