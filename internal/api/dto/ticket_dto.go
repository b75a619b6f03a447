package dto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/supportdesk/helpdesk-service/internal/domain"
	"github.com/supportdesk/helpdesk-service/internal/live"
	"github.com/supportdesk/helpdesk-service/internal/service"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Message       string `json:"message" validate:"required"`
	Channel       string `json:"channel" validate:"required,oneof=email social chat community"`
	Category      string `json:"category" validate:"omitempty,oneof=question request complaint feedback"`
	Priority      string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	CustomerEmail string `json:"customerEmail" validate:"omitempty,email"`
	CustomerName  string `json:"customerName"`
}

// ToInput maps the request to the service input.
func (r CreateTicketRequest) ToInput() service.TicketCreateInput {
	return service.TicketCreateInput{
		Message:       r.Message,
		Channel:       domain.TicketChannel(r.Channel),
		Category:      domain.TicketCategory(r.Category),
		Priority:      domain.TicketPriority(r.Priority),
		CustomerEmail: r.CustomerEmail,
		CustomerName:  r.CustomerName,
	}
}

// UpdateTicketRequest payload. Absent keys are left untouched.
type UpdateTicketRequest struct {
	Status        *string `json:"status" validate:"omitempty,oneof=new assigned in-progress resolved"`
	Priority      *string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category      *string `json:"category" validate:"omitempty,oneof=question request complaint feedback"`
	AssignedTo    *string `json:"assignedTo"`
	CustomerEmail *string `json:"customerEmail" validate:"omitempty,email"`
	CustomerName  *string `json:"customerName"`
}

// ToPatch maps the request to a patch; fields is the order the keys arrived in.
func (r UpdateTicketRequest) ToPatch(fields []string) service.TicketPatch {
	patch := service.TicketPatch{
		AssignedTo:    r.AssignedTo,
		CustomerEmail: r.CustomerEmail,
		CustomerName:  r.CustomerName,
		Fields:        fields,
	}
	if r.Status != nil {
		s := domain.TicketStatus(*r.Status)
		patch.Status = &s
	}
	if r.Priority != nil {
		p := domain.TicketPriority(*r.Priority)
		patch.Priority = &p
	}
	if r.Category != nil {
		c := domain.TicketCategory(*r.Category)
		patch.Category = &c
	}
	return patch
}

// TopLevelKeys returns the keys of a JSON object in document order.
func TopLevelKeys(body []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// TicketResponse is the wire form of a ticket, shared with live dashboards.
type TicketResponse = live.TicketView

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return live.NewTicketView(*t)
}

// NewTicketList maps a slice of tickets.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, live.NewTicketView(tickets[i]))
	}
	return items
}
