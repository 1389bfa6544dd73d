package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[LoginMessage]             = (*LoginCommand)(nil)
	_ gocmd.Commander[LogoutMessage]            = (*LogoutCommand)(nil)
	_ gocmd.Commander[RefreshMessage]           = (*RefreshCommand)(nil)
	_ gocmd.Commander[ConnectChannelMessage]    = (*ConnectChannelCommand)(nil)
	_ gocmd.Commander[DisconnectChannelMessage] = (*DisconnectChannelCommand)(nil)
	_ gocmd.Commander[PublishChannelMessage]    = (*PublishChannelCommand)(nil)
	_ gocmd.Commander[CreateTransactionMessage] = (*CreateTransactionCommand)(nil)
	_ gocmd.Commander[UpdateBudgetMessage]      = (*UpdateBudgetCommand)(nil)
	_ gocmd.Commander[StartSyncMessage]         = (*StartSyncCommand)(nil)
)
