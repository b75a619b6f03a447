package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-service/internal/api/http/handlers"
	"github.com/supportdesk/helpdesk-service/internal/config"
	"github.com/supportdesk/helpdesk-service/internal/persistence"
	"github.com/supportdesk/helpdesk-service/internal/repository"
)

// stores holds the repositories for the configured driver and the readiness
// checks of whatever backs them.
type stores struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	checks  map[string]handlers.Pinger
	close   func()
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		pool := pg.PoolHandle()
		return &stores{
			tickets: repository.NewTicketRepository(pool),
			users:   repository.NewUserRepository(pool),
			checks:  map[string]handlers.Pinger{"postgres": pg},
			close:   pg.Close,
		}, nil

	case config.StoreDriverMongo:
		m, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		return &stores{
			tickets: repository.NewMongoTicketRepository(m.DB),
			users:   repository.NewMongoUserRepository(m.DB),
			checks:  map[string]handlers.Pinger{"mongo": m},
			close:   func() { m.Close(context.Background()) },
		}, nil

	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return &stores{
			tickets: repository.NewMemoryTicketRepository(nil),
			users:   repository.NewMemoryUserRepository(nil),
			checks:  map[string]handlers.Pinger{},
			close:   func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
