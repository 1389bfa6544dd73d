package sqlstore

import "github.com/goliatone/go-florin/core"

var (
	_ core.CredentialStore        = (*CredentialStore)(nil)
	_ core.SyncCursorStore        = (*SyncCursorStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
