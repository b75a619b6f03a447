// Command createadmin provisions the first administrator account.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-service/internal/config"
	"github.com/supportdesk/helpdesk-service/internal/observability"
	"github.com/supportdesk/helpdesk-service/internal/persistence"
	"github.com/supportdesk/helpdesk-service/internal/repository"
	"github.com/supportdesk/helpdesk-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	input := service.CreateUserInput{
		Name:     getEnv("ADMIN_NAME", "Administrator"),
		Email:    os.Getenv("ADMIN_EMAIL"),
		Password: os.Getenv("ADMIN_PASSWORD"),
		Team:     getEnv("ADMIN_TEAM", "admin"),
	}
	if input.Email == "" || input.Password == "" {
		logger.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users, closeStore, err := openUserRepository(ctx, *cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()

	userService := service.NewUserService(*cfg, service.UserDependencies{UserRepo: users})
	admin, created, err := userService.EnsureAdmin(ctx, input)
	if err != nil {
		logger.Fatal("failed to create admin", zap.Error(err))
	}
	if !created {
		logger.Info("admin already exists", zap.String("email", admin.Email))
		return
	}
	logger.Info("admin created", zap.String("id", admin.ID), zap.String("email", admin.Email))
}

func openUserRepository(ctx context.Context, cfg config.Config, logger *zap.Logger) (repository.UserRepository, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMongo:
		m, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewMongoUserRepository(m.DB), func() { m.Close(context.Background()) }, nil
	case config.StoreDriverMemory:
		logger.Warn("memory store selected; the admin only lives for this process")
		return repository.NewMemoryUserRepository(nil), func() {}, nil
	default:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, nil, err
			}
		}
		return repository.NewUserRepository(pg.PoolHandle()), pg.Close, nil
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
