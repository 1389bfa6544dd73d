package florin

import (
	"fmt"
	"reflect"

	florincommand "github.com/goliatone/go-florin/command"
	"github.com/goliatone/go-florin/core"
	florinquery "github.com/goliatone/go-florin/query"
)

type CommandQueryService interface {
	florincommand.MutatingService
	florinquery.AccountReader
	florinquery.TransactionReader
	florinquery.BudgetReader
	florinquery.IncomePlanReader
	florinquery.SessionReader
}

type Commands struct {
	Login             *florincommand.LoginCommand
	Logout            *florincommand.LogoutCommand
	Refresh           *florincommand.RefreshCommand
	ConnectChannel    *florincommand.ConnectChannelCommand
	DisconnectChannel *florincommand.DisconnectChannelCommand
	PublishChannel    *florincommand.PublishChannelCommand
	CreateTransaction *florincommand.CreateTransactionCommand
	UpdateBudget      *florincommand.UpdateBudgetCommand
	StartSync         *florincommand.StartSyncCommand
}

type Queries struct {
	GetAccount       *florinquery.GetAccountQuery
	ListAccounts     *florinquery.ListAccountsQuery
	ListTransactions *florinquery.ListTransactionsQuery
	GetBudget        *florinquery.GetBudgetQuery
	AnalyticsSummary *florinquery.AnalyticsSummaryQuery
	GetIncomePlan    *florinquery.GetIncomePlanQuery
	SessionStatus    *florinquery.SessionStatusQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	analyticsReader florinquery.AnalyticsReader
}

func WithAnalyticsReader(reader florinquery.AnalyticsReader) FacadeOption {
	return func(options *facadeOptions) {
		options.analyticsReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("florin: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.analyticsReader
	if reader == nil {
		reader = resolveAnalyticsReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Login:             florincommand.NewLoginCommand(service),
		Logout:            florincommand.NewLogoutCommand(service),
		Refresh:           florincommand.NewRefreshCommand(service),
		ConnectChannel:    florincommand.NewConnectChannelCommand(service),
		DisconnectChannel: florincommand.NewDisconnectChannelCommand(service),
		PublishChannel:    florincommand.NewPublishChannelCommand(service),
		CreateTransaction: florincommand.NewCreateTransactionCommand(service),
		UpdateBudget:      florincommand.NewUpdateBudgetCommand(service),
		StartSync:         florincommand.NewStartSyncCommand(service),
	}
	facade.queries = Queries{
		GetAccount:       florinquery.NewGetAccountQuery(service),
		ListAccounts:     florinquery.NewListAccountsQuery(service),
		ListTransactions: florinquery.NewListTransactionsQuery(service),
		GetBudget:        florinquery.NewGetBudgetQuery(service),
		AnalyticsSummary: florinquery.NewAnalyticsSummaryQuery(reader),
		GetIncomePlan:    florinquery.NewGetIncomePlanQuery(service),
		SessionStatus:    florinquery.NewSessionStatusQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveAnalyticsReader(service CommandQueryService) florinquery.AnalyticsReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(florinquery.AnalyticsReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return nil
	}
	deps := provider.Dependencies()
	if deps.RepositoryFactory == nil {
		return nil
	}

	factoryValue := reflect.ValueOf(deps.RepositoryFactory)
	if !factoryValue.IsValid() {
		return nil
	}
	if factoryValue.Kind() == reflect.Ptr && factoryValue.IsNil() {
		return nil
	}
	method := factoryValue.MethodByName("AnalyticsStore")
	if !method.IsValid() || method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return nil
	}

	results, ok := safeReflectCall(method)
	if !ok {
		return nil
	}
	if len(results) != 1 {
		return nil
	}
	candidate := results[0]
	if !candidate.IsValid() {
		return nil
	}
	if candidate.Kind() == reflect.Ptr && candidate.IsNil() {
		return nil
	}
	reader, ok := candidate.Interface().(florinquery.AnalyticsReader)
	if !ok {
		return nil
	}
	return reader
}

func safeReflectCall(method reflect.Value) (_ []reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return method.Call(nil), true
}
