// Package live pushes ticket events to connected dashboards.
package live

import (
	"context"
	"errors"
	"time"

	"github.com/supportdesk/helpdesk-service/internal/domain"
)

// Event names and envelope types understood by dashboard clients.
const (
	EventNewTicket     = "newTicket"
	EventTicketUpdated = "ticketUpdated"

	TypeNewTicket     = "NEW_TICKET"
	TypeTicketUpdated = "TICKET_UPDATED"
)

// Envelope is the frame every client receives.
type Envelope struct {
	Event     string     `json:"event"`
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	Ticket    TicketView `json:"ticket"`
	Timestamp time.Time  `json:"timestamp"`
}

// HistoryView is the wire form of a history entry.
type HistoryView struct {
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// TicketView is the wire form of a ticket pushed to dashboards.
type TicketView struct {
	ID            string        `json:"id"`
	Message       string        `json:"message"`
	Channel       string        `json:"channel"`
	Category      string        `json:"category"`
	Priority      string        `json:"priority"`
	Status        string        `json:"status"`
	AssignedTo    string        `json:"assignedTo"`
	CustomerEmail string        `json:"customerEmail,omitempty"`
	CustomerName  string        `json:"customerName,omitempty"`
	History       []HistoryView `json:"history"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// NewTicketView maps a domain ticket to its wire form.
func NewTicketView(t domain.Ticket) TicketView {
	history := make([]HistoryView, 0, len(t.History))
	for _, h := range t.History {
		history = append(history, HistoryView{Action: h.Action, User: h.User, Timestamp: h.Timestamp})
	}
	return TicketView{
		ID:            t.ID,
		Message:       t.Message,
		Channel:       string(t.Channel),
		Category:      string(t.Category),
		Priority:      string(t.Priority),
		Status:        string(t.Status),
		AssignedTo:    t.AssignedTo,
		CustomerEmail: t.CustomerEmail,
		CustomerName:  t.CustomerName,
		History:       history,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// NewTicketCreated builds the envelope announcing a new ticket.
func NewTicketCreated(t domain.Ticket, at time.Time) Envelope {
	return Envelope{
		Event:     EventNewTicket,
		Type:      TypeNewTicket,
		Message:   "New " + string(t.Category) + " received via " + string(t.Channel),
		Ticket:    NewTicketView(t),
		Timestamp: at.UTC(),
	}
}

// NewTicketUpdated builds the envelope announcing a ticket change.
func NewTicketUpdated(t domain.Ticket, at time.Time) Envelope {
	return Envelope{
		Event:     EventTicketUpdated,
		Type:      TypeTicketUpdated,
		Message:   "Ticket #" + t.ShortRef() + " updated",
		Ticket:    NewTicketView(t),
		Timestamp: at.UTC(),
	}
}

// Broadcaster delivers an envelope to live listeners. Delivery is best effort.
type Broadcaster interface {
	Emit(ctx context.Context, env Envelope) error
}

// Multi fans out to several broadcasters. Every sink is tried; errors are joined.
type Multi []Broadcaster

func (m Multi) Emit(ctx context.Context, env Envelope) error {
	var errs []error
	for _, b := range m {
		if b == nil {
			continue
		}
		if err := b.Emit(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
