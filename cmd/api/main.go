package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/supportdesk/helpdesk-service/internal/api/http"
	"github.com/supportdesk/helpdesk-service/internal/api/http/handlers"
	"github.com/supportdesk/helpdesk-service/internal/auth"
	"github.com/supportdesk/helpdesk-service/internal/cache"
	"github.com/supportdesk/helpdesk-service/internal/config"
	"github.com/supportdesk/helpdesk-service/internal/events"
	"github.com/supportdesk/helpdesk-service/internal/live"
	"github.com/supportdesk/helpdesk-service/internal/mailer"
	"github.com/supportdesk/helpdesk-service/internal/observability"
	"github.com/supportdesk/helpdesk-service/internal/persistence"
	"github.com/supportdesk/helpdesk-service/internal/service"
	"github.com/supportdesk/helpdesk-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := openStores(ctx, *cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer stores.close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	if redis.Available() {
		stores.checks["redis"] = redis
	}

	var summaryCache cache.Cache = cache.Nop{}
	if redis.Available() {
		summaryCache = cache.NewRedisCache(redis.Client, cfg.App.Name+":")
	}

	hub := live.NewHub(logger)
	go hub.Run(ctx)

	// With redis every instance relays the shared channel to its own clients;
	// without it frames go straight to the local hub.
	var broadcasters live.Multi
	relayDone := worker.StartLiveRelay(ctx, redis.Client, cfg.Live.RedisChannel, hub, logger)
	if redis.Available() {
		broadcasters = append(broadcasters, live.NewRedisBroadcaster(redis.Client, cfg.Live.RedisChannel))
	} else {
		broadcasters = append(broadcasters, hub)
	}
	if cfg.Live.AMQPURL != "" {
		amqpBroadcaster, err := live.NewAMQPBroadcaster(cfg.Live.AMQPURL, cfg.Live.AMQPExchange)
		if err != nil {
			logger.Warn("amqp broadcaster unavailable", zap.Error(err))
		} else {
			defer amqpBroadcaster.Close() //nolint:errcheck
			broadcasters = append(broadcasters, amqpBroadcaster)
		}
	}

	dispatcher := events.NewAsyncDispatcher(logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: stores.tickets,
		Dispatcher: dispatcher,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: stores.users})
	userService := service.NewUserService(*cfg, service.UserDependencies{UserRepo: stores.users})
	analyticsService := service.NewAnalyticsService(service.AnalyticsDependencies{
		TicketRepo: stores.tickets,
		UserRepo:   stores.users,
		Cache:      summaryCache,
		CacheTTL:   cfg.Analytics.CacheTTL(),
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  dispatcher,
		Mailer:      mailer.New(cfg.Mail, logger),
		Templates:   mailer.Templates{Product: cfg.Mail.ProductName},
		Broadcaster: broadcasters,
		Logger:      logger,
	})

	worker.StartNotificationWorker(notificationService)
	worker.StartAnalyticsWorker(analyticsService, dispatcher)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), stores.users)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, stores.checks),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Users:          handlers.NewUsersHandler(authService),
		Admin:          handlers.NewAdminHandler(userService),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService),
		AuthMiddleware: authMiddleware,
		CORSOrigins:    cfg.App.CORSOrigins,
		IntakeMax:      cfg.RateLimit.Max,
		IntakeWindow:   cfg.RateLimit.Window(),
	})

	liveServer := live.NewServer(cfg.Live.Addr(), hub)
	go func() {
		logger.Info("live listener starting", zap.String("addr", liveServer.Addr))
		if err := liveServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("live listen", zap.Error(err))
		}
	}()

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	if err := liveServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("live listener shutdown", zap.Error(err))
	}
	if err := dispatcher.Drain(shutdownCtx); err != nil {
		logger.Warn("dispatcher drain incomplete", zap.Error(err))
	}
	cancel()
	<-relayDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
