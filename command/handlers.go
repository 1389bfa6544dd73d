package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-florin/core"
)

type MutatingService interface {
	Login(ctx context.Context, email string, password string) (core.CredentialPair, error)
	Logout(ctx context.Context) error
	RefreshCredentials(ctx context.Context) (core.CredentialPair, error)
	ConnectChannel(ctx context.Context) error
	DisconnectChannel() error
	PublishChannel(ctx context.Context, msg core.ChannelMessage) error
	CreateTransaction(ctx context.Context, input core.CreateTransactionInput) (core.Transaction, error)
	UpdateBudget(ctx context.Context, input core.UpdateBudgetInput) (core.Budget, error)
	StartSync(ctx context.Context, input core.StartSyncInput) (core.SyncJob, error)
}

type LoginCommand struct {
	service MutatingService
}

func NewLoginCommand(service MutatingService) *LoginCommand {
	return &LoginCommand{service: service}
}

func (c *LoginCommand) Execute(ctx context.Context, msg LoginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	out, err := c.service.Login(ctx, msg.Email, msg.Password)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type LogoutCommand struct {
	service MutatingService
}

func NewLogoutCommand(service MutatingService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, msg LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: logout service is required")
	}
	return c.service.Logout(ctx)
}

type RefreshCommand struct {
	service MutatingService
}

func NewRefreshCommand(service MutatingService) *RefreshCommand {
	return &RefreshCommand{service: service}
}

func (c *RefreshCommand) Execute(ctx context.Context, msg RefreshMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refresh service is required")
	}
	out, err := c.service.RefreshCredentials(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ConnectChannelCommand struct {
	service MutatingService
}

func NewConnectChannelCommand(service MutatingService) *ConnectChannelCommand {
	return &ConnectChannelCommand{service: service}
}

func (c *ConnectChannelCommand) Execute(ctx context.Context, msg ConnectChannelMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: channel service is required")
	}
	return c.service.ConnectChannel(ctx)
}

type DisconnectChannelCommand struct {
	service MutatingService
}

func NewDisconnectChannelCommand(service MutatingService) *DisconnectChannelCommand {
	return &DisconnectChannelCommand{service: service}
}

func (c *DisconnectChannelCommand) Execute(ctx context.Context, msg DisconnectChannelMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: channel service is required")
	}
	return c.service.DisconnectChannel()
}

type PublishChannelCommand struct {
	service MutatingService
}

func NewPublishChannelCommand(service MutatingService) *PublishChannelCommand {
	return &PublishChannelCommand{service: service}
}

func (c *PublishChannelCommand) Execute(ctx context.Context, msg PublishChannelMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: channel service is required")
	}
	return c.service.PublishChannel(ctx, msg.Message)
}

type CreateTransactionCommand struct {
	service MutatingService
}

func NewCreateTransactionCommand(service MutatingService) *CreateTransactionCommand {
	return &CreateTransactionCommand{service: service}
}

func (c *CreateTransactionCommand) Execute(ctx context.Context, msg CreateTransactionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: transaction service is required")
	}
	out, err := c.service.CreateTransaction(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateBudgetCommand struct {
	service MutatingService
}

func NewUpdateBudgetCommand(service MutatingService) *UpdateBudgetCommand {
	return &UpdateBudgetCommand{service: service}
}

func (c *UpdateBudgetCommand) Execute(ctx context.Context, msg UpdateBudgetMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: budget service is required")
	}
	out, err := c.service.UpdateBudget(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type StartSyncCommand struct {
	service MutatingService
}

func NewStartSyncCommand(service MutatingService) *StartSyncCommand {
	return &StartSyncCommand{service: service}
}

func (c *StartSyncCommand) Execute(ctx context.Context, msg StartSyncMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	out, err := c.service.StartSync(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
