package events

import (
	"time"

	"github.com/supportdesk/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketUpdated EventType = "ticket_updated"
	EventTicketDeleted EventType = "ticket_deleted"
)

// Actor identifies who caused an event. Public submissions have no actor.
type Actor struct {
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CustomerNotice selects which email, if any, an update triggers.
type CustomerNotice string

const (
	NoticeNone       CustomerNotice = ""
	NoticeUpdate     CustomerNotice = "update"
	NoticeResolution CustomerNotice = "resolution"
)

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket domain.Ticket `json:"ticket"`
}

// TicketUpdatedPayload carries both snapshots of an atomic update and the
// notification decided from them. StatusMessage is set for NoticeUpdate.
type TicketUpdatedPayload struct {
	Previous      domain.Ticket  `json:"previous"`
	Current       domain.Ticket  `json:"current"`
	Notice        CustomerNotice `json:"notice,omitempty"`
	StatusMessage string         `json:"status_message,omitempty"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	TicketID string `json:"ticket_id"`
}
