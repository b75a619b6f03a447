// Package worker attaches background consumers to the event dispatcher and the
// live relay.
package worker

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-service/internal/events"
	"github.com/supportdesk/helpdesk-service/internal/live"
	"github.com/supportdesk/helpdesk-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartAnalyticsWorker keeps the cached summary in step with ticket changes.
func StartAnalyticsWorker(analyticsService *service.AnalyticsService, dispatcher events.Dispatcher) {
	if analyticsService == nil {
		return
	}
	analyticsService.RegisterHandlers(dispatcher)
}

// StartLiveRelay forwards frames published on the redis channel to this
// instance's websocket clients until ctx is cancelled. The returned channel is
// closed once the relay has stopped.
func StartLiveRelay(ctx context.Context, client *redis.Client, channel string, hub *live.Hub, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if client == nil || hub == nil {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		live.RunRedisRelay(ctx, client, channel, hub, logger)
	}()
	return done
}
