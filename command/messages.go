package command

import (
	"strings"

	"github.com/goliatone/go-florin/core"
)

const (
	TypeLogin             = "florin.command.login"
	TypeLogout            = "florin.command.logout"
	TypeRefresh           = "florin.command.refresh"
	TypeConnectChannel    = "florin.command.channel.connect"
	TypeDisconnectChannel = "florin.command.channel.disconnect"
	TypePublishChannel    = "florin.command.channel.publish"
	TypeCreateTransaction = "florin.command.transaction.create"
	TypeUpdateBudget      = "florin.command.budget.update"
	TypeStartSync         = "florin.command.sync.start"
)

type LoginMessage struct {
	Email    string
	Password string
}

func (LoginMessage) Type() string { return TypeLogin }

func (m LoginMessage) Validate() error {
	if strings.TrimSpace(m.Email) == "" {
		return commandValidationError("email", "email is required")
	}
	if m.Password == "" {
		return commandValidationError("password", "password is required")
	}
	return nil
}

type LogoutMessage struct{}

func (LogoutMessage) Type() string { return TypeLogout }

func (LogoutMessage) Validate() error { return nil }

type RefreshMessage struct{}

func (RefreshMessage) Type() string { return TypeRefresh }

func (RefreshMessage) Validate() error { return nil }

type ConnectChannelMessage struct{}

func (ConnectChannelMessage) Type() string { return TypeConnectChannel }

func (ConnectChannelMessage) Validate() error { return nil }

type DisconnectChannelMessage struct{}

func (DisconnectChannelMessage) Type() string { return TypeDisconnectChannel }

func (DisconnectChannelMessage) Validate() error { return nil }

type PublishChannelMessage struct {
	Message core.ChannelMessage
}

func (PublishChannelMessage) Type() string { return TypePublishChannel }

func (m PublishChannelMessage) Validate() error {
	if strings.TrimSpace(m.Message.Type) == "" {
		return commandValidationError("type", "channel message type is required")
	}
	return nil
}

type CreateTransactionMessage struct {
	Input core.CreateTransactionInput
}

func (CreateTransactionMessage) Type() string { return TypeCreateTransaction }

func (m CreateTransactionMessage) Validate() error {
	return commandWrapValidation(m.Input.Validate(), "command: invalid transaction input")
}

type UpdateBudgetMessage struct {
	Input core.UpdateBudgetInput
}

func (UpdateBudgetMessage) Type() string { return TypeUpdateBudget }

func (m UpdateBudgetMessage) Validate() error {
	return commandWrapValidation(m.Input.Validate(), "command: invalid budget update")
}

type StartSyncMessage struct {
	Input core.StartSyncInput
}

func (StartSyncMessage) Type() string { return TypeStartSync }

func (m StartSyncMessage) Validate() error {
	return commandWrapValidation(m.Input.Validate(), "command: invalid sync request")
}
