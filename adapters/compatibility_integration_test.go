package adapters_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-florin/adapters/gocommand"
	"github.com/goliatone/go-florin/adapters/gojob"
	"github.com/goliatone/go-florin/adapters/gologger"
	florincommand "github.com/goliatone/go-florin/command"
	"github.com/goliatone/go-florin/core"
	"github.com/goliatone/go-florin/stream"
)

func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	logger := &compatLogger{}
	provider := &compatProvider{logger: logger}

	_, _, jobProvider, jobLogger := gologger.ResolveForJob("florin", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	enqueueProbe := &compatEnqueuer{}
	enqueueAdapter := gojob.NewEnqueuerAdapter(enqueueProbe)
	if err := enqueueAdapter.Enqueue(ctx, &core.JobExecutionMessage{
		JobID:          gojob.JobIDSyncIncremental,
		Resource:       "transactions",
		Mode:           "incremental",
		IdempotencyKey: "idem_1",
		DedupPolicy:    "drop",
	}); err != nil {
		t.Fatalf("enqueue via gojob adapter: %v", err)
	}
	if enqueueProbe.last == nil || enqueueProbe.last.JobID != gojob.JobIDSyncIncremental {
		t.Fatalf("expected go-job message mapping through enqueuer adapter")
	}

	queueRegistry := jobqueuecommand.NewRegistry()
	commandAdapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := commandAdapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := commandAdapter.RegisterCommand(command.CommandFunc[compatMessage](func(context.Context, compatMessage) error {
		return nil
	})); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := commandAdapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get("florin.compat.command"); !ok {
		t.Fatalf("expected command resolver hook to mirror command into go-job queue registry")
	}
}

func TestRuntimeCompatibility_ChannelMessagesDispatchCommandsThroughWrappers(t *testing.T) {
	svc := &compatMutatingService{}
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())

	syncSub, err := gocommand.RegisterAndSubscribe(adapter, florincommand.NewStartSyncCommand(svc))
	if err != nil {
		t.Fatalf("register start sync wrapper: %v", err)
	}
	defer syncSub.Unsubscribe()

	logoutSub, err := gocommand.RegisterAndSubscribe(adapter, florincommand.NewLogoutCommand(svc))
	if err != nil {
		t.Fatalf("register logout wrapper: %v", err)
	}
	defer logoutSub.Unsubscribe()

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize adapter: %v", err)
	}

	dispatcher := stream.NewDispatcher()
	if err := dispatcher.Register("sync.requested", func(ctx context.Context, msg core.ChannelMessage) error {
		var payload struct {
			Resource string `json:"resource"`
			Mode     string `json:"mode"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return err
		}
		return gocommand.DispatchMessage(ctx, florincommand.StartSyncMessage{
			Input: core.StartSyncInput{
				Resource: payload.Resource,
				Mode:     core.SyncMode(payload.Mode),
			},
		})
	}); err != nil {
		t.Fatalf("register sync channel handler: %v", err)
	}
	if err := dispatcher.Register("session.revoked", func(ctx context.Context, _ core.ChannelMessage) error {
		return gocommand.DispatchMessage(ctx, florincommand.LogoutMessage{})
	}); err != nil {
		t.Fatalf("register session channel handler: %v", err)
	}

	if err := dispatcher.Dispatch(context.Background(), core.ChannelMessage{
		Type: "sync.requested",
		Data: json.RawMessage(`{"resource":"transactions","mode":"incremental"}`),
	}); err != nil {
		t.Fatalf("dispatch sync channel message: %v", err)
	}
	if svc.startSyncCalls != 1 || svc.lastSyncResource != "transactions" {
		t.Fatalf("expected start sync wrapper invocation through channel dispatch")
	}

	if err := dispatcher.Dispatch(context.Background(), core.ChannelMessage{
		Type: "session.revoked",
	}); err != nil {
		t.Fatalf("dispatch session channel message: %v", err)
	}
	if svc.logoutCalls != 1 {
		t.Fatalf("expected logout wrapper invocation through channel dispatch")
	}
}

type compatMessage struct{}

func (compatMessage) Type() string { return "florin.compat.command" }

type compatEnqueuer struct {
	last *job.ExecutionMessage
}

func (e *compatEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	e.last = msg
	return nil
}

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }

type compatMutatingService struct {
	startSyncCalls   int
	lastSyncResource string
	logoutCalls      int
}

func (s *compatMutatingService) Login(context.Context, string, string) (core.CredentialPair, error) {
	return core.CredentialPair{}, nil
}

func (s *compatMutatingService) Logout(context.Context) error {
	s.logoutCalls++
	return nil
}

func (s *compatMutatingService) RefreshCredentials(context.Context) (core.CredentialPair, error) {
	return core.CredentialPair{}, nil
}

func (s *compatMutatingService) ConnectChannel(context.Context) error {
	return nil
}

func (s *compatMutatingService) DisconnectChannel() error {
	return nil
}

func (s *compatMutatingService) PublishChannel(context.Context, core.ChannelMessage) error {
	return nil
}

func (s *compatMutatingService) CreateTransaction(context.Context, core.CreateTransactionInput) (core.Transaction, error) {
	return core.Transaction{}, nil
}

func (s *compatMutatingService) UpdateBudget(context.Context, core.UpdateBudgetInput) (core.Budget, error) {
	return core.Budget{}, nil
}

func (s *compatMutatingService) StartSync(_ context.Context, input core.StartSyncInput) (core.SyncJob, error) {
	s.startSyncCalls++
	s.lastSyncResource = input.Resource
	return core.SyncJob{ID: "job_1", Resource: input.Resource, Status: core.SyncJobQueued}, nil
}
