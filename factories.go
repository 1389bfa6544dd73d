package florin

import (
	"github.com/goliatone/go-job/queue"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-florin/adapters/gojob"
	"github.com/goliatone/go-florin/auth"
	"github.com/goliatone/go-florin/core"
	"github.com/goliatone/go-florin/ratelimit"
	sqlstore "github.com/goliatone/go-florin/store/sql"
	florinsync "github.com/goliatone/go-florin/sync"
	"github.com/goliatone/go-florin/transport"
)

func RESTTransportAdapter(client transport.HTTPDoer) core.TransportAdapter {
	return transport.NewRESTAdapter(client)
}

// DefaultTransportRegistry carries the rest adapter and reserves the
// stream kind for the duplex channel manager.
func DefaultTransportRegistry() *transport.Registry {
	return transport.NewDefaultRegistry()
}

func AuthExchangeClient(cfg auth.ExchangeClientConfig) (core.AuthClient, error) {
	return auth.NewExchangeClient(cfg)
}

func SQLRepositoryFactory(db *bun.DB) (*sqlstore.RepositoryFactory, error) {
	return sqlstore.NewRepositoryFactoryFromDB(db)
}

func SQLRepositoryFactoryFromPersistence(client *persistence.Client) (*sqlstore.RepositoryFactory, error) {
	return sqlstore.NewRepositoryFactoryFromPersistence(client)
}

func SQLCredentialStore(db *bun.DB) (core.CredentialStore, error) {
	return sqlstore.NewCredentialStore(db)
}

func SQLSyncCursorStore(db *bun.DB) (core.SyncCursorStore, error) {
	return sqlstore.NewSyncCursorStore(db)
}

func SQLSyncJobStore(db *bun.DB) (florinsync.JobStore, error) {
	return sqlstore.NewSyncJobStore(db)
}

func AdaptiveRateLimitPolicy(store ratelimit.StateStore) core.RateLimitPolicy {
	return ratelimit.NewAdaptivePolicy(store)
}

func QueueSyncEnqueuer(enqueuer queue.Enqueuer) florinsync.JobEnqueuer {
	return gojob.NewSyncEnqueuerAdapter(enqueuer)
}
