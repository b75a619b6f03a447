package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-service/internal/events"
	"github.com/supportdesk/helpdesk-service/internal/live"
	"github.com/supportdesk/helpdesk-service/internal/mailer"
)

// NotificationService turns ticket events into customer email and live
// broadcasts. Both sinks are best effort: failures are logged and dropped.
type NotificationService struct {
	dispatcher  events.Dispatcher
	mailer      mailer.Mailer
	templates   mailer.Templates
	broadcaster live.Broadcaster
	logger      *zap.Logger
	now         func() time.Time
}

// NotificationDependencies bundles notification sinks.
type NotificationDependencies struct {
	Dispatcher  events.Dispatcher
	Mailer      mailer.Mailer
	Templates   mailer.Templates
	Broadcaster live.Broadcaster
	Logger      *zap.Logger
	Clock       func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &NotificationService{
		dispatcher:  deps.Dispatcher,
		mailer:      deps.Mailer,
		templates:   deps.Templates,
		broadcaster: deps.Broadcaster,
		logger:      logger,
		now:         clock,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	ticket := payload.Ticket
	n.logger.Info("TicketCreated",
		zap.String("ticket_id", ticket.ID),
		zap.String("category", string(ticket.Category)),
		zap.String("priority", string(ticket.Priority)))

	if ticket.CustomerEmail != "" {
		msg, err := n.templates.Acknowledgement(ticket)
		n.send(ctx, event, "acknowledgement", msg, err)
	}
	n.broadcast(ctx, event, live.NewTicketCreated(ticket, n.now()))
	return nil
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	ticket := payload.Current
	n.logger.Info("TicketUpdated",
		zap.String("ticket_id", ticket.ID),
		zap.String("actor", event.Actor.Name),
		zap.String("notice", string(payload.Notice)))

	if ticket.CustomerEmail != "" {
		switch payload.Notice {
		case events.NoticeResolution:
			msg, err := n.templates.Resolution(ticket)
			n.send(ctx, event, "resolution", msg, err)
		case events.NoticeUpdate:
			msg, err := n.templates.Update(ticket, payload.StatusMessage)
			n.send(ctx, event, "update", msg, err)
		}
	}
	n.broadcast(ctx, event, live.NewTicketUpdated(ticket, n.now()))
	return nil
}

func (n *NotificationService) send(ctx context.Context, event events.Event, kind string, msg mailer.Message, renderErr error) {
	if renderErr != nil {
		n.logger.Error("render email failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("kind", kind),
			zap.Error(renderErr))
		return
	}
	if n.mailer == nil {
		return
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		n.logger.Warn("send email failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("kind", kind),
			zap.String("to", msg.To),
			zap.Error(err))
	}
}

func (n *NotificationService) broadcast(ctx context.Context, event events.Event, env live.Envelope) {
	if n.broadcaster == nil {
		return
	}
	if err := n.broadcaster.Emit(ctx, env); err != nil {
		n.logger.Warn("live broadcast failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("event", env.Event),
			zap.Error(err))
	}
}
