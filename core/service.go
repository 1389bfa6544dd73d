package core

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

var (
	ErrTransportRequired  = errors.New("core: transport adapter is required")
	ErrAuthClientRequired = errors.New("core: auth client is required")
	ErrSyncStoreRequired  = errors.New("core: sync cursor store is required")
)

// Service is the assembled Florin client: configuration, the authenticated
// request pipeline, the refresh coordinator, and the session operations.
// Resource accessors and the duplex channel build on top of it.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	persistenceClient any
	repositoryFactory any
	transportAdapter  TransportAdapter
	credentialStore   CredentialStore
	syncCursorStore   SyncCursorStore
	authClient        AuthClient
	refresher         CredentialRefresher
	signer            Signer
	rateLimitPolicy   RateLimitPolicy
	sessionTerminator SessionTerminator
	pipeline          *Pipeline
}

// ServiceDependencies exposes the assembled collaborators so adjacent
// packages (stream, sync, commands) can build on the same instances.
type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	PersistenceClient any
	RepositoryFactory any
	TransportAdapter  TransportAdapter
	CredentialStore   CredentialStore
	SyncCursorStore   SyncCursorStore
	AuthClient        AuthClient
	Refresher         CredentialRefresher
	Signer            Signer
	RateLimitPolicy   RateLimitPolicy
	SessionTerminator SessionTerminator
	Pipeline          *Pipeline
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, option := range options {
		if option == nil {
			continue
		}
		option(&builder)
	}

	provider, logger := glog.Resolve("florin", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("florin"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.signer == nil {
		builder.signer = BearerCredentialSigner{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if (builder.credentialStore == nil || builder.syncCursorStore == nil) && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				if builder.credentialStore == nil {
					builder.credentialStore = storeProvider.CredentialStore()
				}
				if builder.syncCursorStore == nil {
					builder.syncCursorStore = storeProvider.SyncCursorStore()
				}
			}
		} else if storeProvider, ok := builder.repositoryFactory.(StoreProvider); ok {
			if builder.credentialStore == nil {
				builder.credentialStore = storeProvider.CredentialStore()
			}
			if builder.syncCursorStore == nil {
				builder.syncCursorStore = storeProvider.SyncCursorStore()
			}
		}
	}
	if builder.credentialStore == nil {
		builder.credentialStore = NewMemoryCredentialStore()
	}

	if builder.transportAdapter == nil {
		return nil, mapBuildError(builder.errorMapper, ErrTransportRequired)
	}

	if builder.refresher == nil && builder.authClient != nil {
		coordinator, coordErr := NewRefreshCoordinator(
			builder.credentialStore,
			builder.authClient,
			builder.sessionTerminator,
			WithRefreshLogger(logger),
		)
		if coordErr != nil {
			return nil, mapBuildError(builder.errorMapper, coordErr)
		}
		builder.refresher = coordinator
	}

	pipelineOptions := []PipelineOption{
		WithPipelineLogger(logger),
		WithPipelineMetrics(builder.metricsRecorder),
		WithPipelineSigner(builder.signer),
		WithPipelineTimeout(finalConfig.Timeout),
		WithPipelineRetryPolicy(RetryPolicy{
			MaxRetries: finalConfig.Retry.MaxRetries,
			Scheduler: ExponentialBackoffScheduler{
				Base: finalConfig.Retry.BaseDelay,
				Max:  finalConfig.Retry.MaxDelay,
			},
		}),
	}
	if builder.rateLimitPolicy != nil {
		pipelineOptions = append(pipelineOptions, WithPipelineRateLimit(builder.rateLimitPolicy))
	}
	for _, hook := range builder.requestHooks {
		pipelineOptions = append(pipelineOptions, WithPipelineRequestHook(hook))
	}
	for _, hook := range builder.responseHooks {
		pipelineOptions = append(pipelineOptions, WithPipelineResponseHook(hook))
	}

	pipeline, err := NewPipeline(
		finalConfig.BaseURL,
		builder.transportAdapter,
		builder.credentialStore,
		builder.refresher,
		pipelineOptions...,
	)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		transportAdapter:  builder.transportAdapter,
		credentialStore:   builder.credentialStore,
		syncCursorStore:   builder.syncCursorStore,
		authClient:        builder.authClient,
		refresher:         builder.refresher,
		signer:            builder.signer,
		rateLimitPolicy:   builder.rateLimitPolicy,
		sessionTerminator: builder.sessionTerminator,
		pipeline:          pipeline,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		TransportAdapter:  s.transportAdapter,
		CredentialStore:   s.credentialStore,
		SyncCursorStore:   s.syncCursorStore,
		AuthClient:        s.authClient,
		Refresher:         s.refresher,
		Signer:            s.signer,
		RateLimitPolicy:   s.rateLimitPolicy,
		SessionTerminator: s.sessionTerminator,
		Pipeline:          s.pipeline,
	}
}

// Pipeline exposes the authenticated request pipeline for resource
// accessors built outside this package.
func (s *Service) Pipeline() *Pipeline {
	if s == nil {
		return nil
	}
	return s.pipeline
}

// Send routes a logical request through the authenticated pipeline.
func (s *Service) Send(ctx context.Context, req Request, options ...SendOption) (Envelope, error) {
	if s == nil || s.pipeline == nil {
		return Envelope{}, errors.New("core: service not initialized")
	}
	return s.pipeline.Send(ctx, req, options...)
}

// SyncCursors returns the durable sync position store, or an error when the
// service was assembled without one.
func (s *Service) SyncCursors() (SyncCursorStore, error) {
	if s == nil || s.syncCursorStore == nil {
		return nil, ErrSyncStoreRequired
	}
	return s.syncCursorStore, nil
}

func (s *Service) observeOperation(ctx context.Context, startedAt time.Time, operation string, err error, fields map[string]any) {
	if s == nil {
		return
	}
	observeOperation(ctx, s.logger, s.metricsRecorder, operation, startedAt, err, fields)
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
