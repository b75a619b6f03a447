package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/supportdesk/helpdesk-service/internal/classification"
	"github.com/supportdesk/helpdesk-service/internal/domain"
	"github.com/supportdesk/helpdesk-service/internal/events"
	"github.com/supportdesk/helpdesk-service/internal/repository"
	apperrors "github.com/supportdesk/helpdesk-service/pkg/util/errorutil"
)

// Patchable ticket field names, as they appear in requests and history.
const (
	FieldStatus        = "status"
	FieldPriority      = "priority"
	FieldCategory      = "category"
	FieldAssignedTo    = "assignedTo"
	FieldCustomerEmail = "customerEmail"
	FieldCustomerName  = "customerName"
)

var patchFieldOrder = []string{FieldStatus, FieldPriority, FieldCategory, FieldAssignedTo, FieldCustomerEmail, FieldCustomerName}

// Actor is the authenticated caller performing a change.
type Actor struct {
	UserID string
	Name   string
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Clock      func() time.Time
}

// TicketCreateInput describes an inbound customer query.
type TicketCreateInput struct {
	Message       string
	Channel       domain.TicketChannel
	Category      domain.TicketCategory
	Priority      domain.TicketPriority
	CustomerEmail string
	CustomerName  string
}

// CreateOptions controls classification. With AutoClassify the rules always
// decide category and priority; without it caller values win and only missing
// ones are classified.
type CreateOptions struct {
	AutoClassify bool
}

// TicketPatch lists the fields to change. Fields keeps the order in which the
// caller supplied them and drives the history text; when empty the canonical
// field order is used.
type TicketPatch struct {
	Status        *domain.TicketStatus
	Priority      *domain.TicketPriority
	Category      *domain.TicketCategory
	AssignedTo    *string
	CustomerEmail *string
	CustomerName  *string
	Fields        []string
}

// TicketListFilter narrows ListTickets by exact match.
type TicketListFilter struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	Category *domain.TicketCategory
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		now:        clock,
	}
}

// CreateTicket classifies and persists a new query, then announces it.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput, opts CreateOptions) (*domain.Ticket, error) {
	message := strings.TrimSpace(input.Message)
	details := map[string]any{}
	if message == "" {
		details["message"] = "required"
	}
	if input.Channel == "" {
		details["channel"] = "required"
	} else if !input.Channel.Valid() {
		details["channel"] = "must be one of email, social, chat, community"
	}
	if input.Category != "" && !input.Category.Valid() {
		details["category"] = "must be one of question, request, complaint, feedback"
	}
	if input.Priority != "" && !input.Priority.Valid() {
		details["priority"] = "must be one of low, medium, high, urgent"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	category, priority := input.Category, input.Priority
	if opts.AutoClassify || category == "" {
		category = classification.Category(message)
	}
	if opts.AutoClassify || priority == "" {
		priority = classification.Priority(message, category)
	}

	ticket := &domain.Ticket{
		Message:       message,
		Channel:       input.Channel,
		Category:      category,
		Priority:      priority,
		Status:        domain.TicketStatusNew,
		CustomerEmail: strings.TrimSpace(input.CustomerEmail),
		CustomerName:  strings.TrimSpace(input.CustomerName),
		History: []domain.HistoryEntry{
			{Action: domain.ActionReceived, User: domain.SystemActor},
		},
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, mapRepoError(err, "ticket")
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload:  events.TicketCreatedPayload{Ticket: *ticket.Clone()},
	})
	return ticket, nil
}

// UpdateTicket applies the patch atomically and appends one history entry
// attributed to the actor.
func (s *TicketService) UpdateTicket(ctx context.Context, actor Actor, ticketID string, patch TicketPatch) (*domain.Ticket, error) {
	fields, err := validatePatch(patch)
	if err != nil {
		return nil, err
	}

	actorName := strings.TrimSpace(actor.Name)
	if actorName == "" {
		actorName = domain.DefaultActor
	}

	prev, next, err := s.tickets.Update(ctx, ticketID, func(t *domain.Ticket) (domain.HistoryEntry, error) {
		applyPatch(t, patch)
		return domain.HistoryEntry{Action: domain.UpdatedAction(fields), User: actorName}, nil
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}

	notice, statusMessage := decideNotice(prev, next)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: next.ID,
		Actor:    events.Actor{UserID: actor.UserID, Name: actorName},
		Payload: events.TicketUpdatedPayload{
			Previous:      *prev,
			Current:       *next.Clone(),
			Notice:        notice,
			StatusMessage: statusMessage,
		},
	})
	return next, nil
}

// DeleteTicket removes a ticket and its history.
func (s *TicketService) DeleteTicket(ctx context.Context, actor Actor, ticketID string) error {
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return mapRepoError(err, "ticket")
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		Actor:    events.Actor{UserID: actor.UserID, Name: actor.Name},
		Payload:  events.TicketDeletedPayload{TicketID: ticketID},
	})
	return nil
}

// GetTicket fetches one ticket with its history.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}
	return ticket, nil
}

// ListTickets returns matching tickets, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	details := map[string]any{}
	if filter.Status != nil && !filter.Status.Valid() {
		details["status"] = "unknown status"
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		details["priority"] = "unknown priority"
	}
	if filter.Category != nil && !filter.Category.Valid() {
		details["category"] = "unknown category"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid filter", details)
	}

	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Status:   filter.Status,
		Priority: filter.Priority,
		Category: filter.Category,
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket")
	}
	return tickets, nil
}

// validatePatch checks enum values and returns the field names for history.
func validatePatch(patch TicketPatch) ([]string, error) {
	details := map[string]any{}
	if patch.Status != nil && !patch.Status.Valid() {
		details[FieldStatus] = "must be one of new, assigned, in-progress, resolved"
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		details[FieldPriority] = "must be one of low, medium, high, urgent"
	}
	if patch.Category != nil && !patch.Category.Valid() {
		details[FieldCategory] = "must be one of question, request, complaint, feedback"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket update", details)
	}

	present := map[string]bool{
		FieldStatus:        patch.Status != nil,
		FieldPriority:      patch.Priority != nil,
		FieldCategory:      patch.Category != nil,
		FieldAssignedTo:    patch.AssignedTo != nil,
		FieldCustomerEmail: patch.CustomerEmail != nil,
		FieldCustomerName:  patch.CustomerName != nil,
	}

	var fields []string
	seen := map[string]bool{}
	for _, f := range patch.Fields {
		if present[f] && !seen[f] {
			fields = append(fields, f)
			seen[f] = true
		}
	}
	for _, f := range patchFieldOrder {
		if present[f] && !seen[f] {
			fields = append(fields, f)
			seen[f] = true
		}
	}
	if len(fields) == 0 {
		return nil, apperrors.NewValidationError("no updatable fields supplied", nil)
	}
	return fields, nil
}

func applyPatch(t *domain.Ticket, patch TicketPatch) {
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.AssignedTo != nil {
		t.AssignedTo = strings.TrimSpace(*patch.AssignedTo)
	}
	if patch.CustomerEmail != nil {
		t.CustomerEmail = strings.TrimSpace(*patch.CustomerEmail)
	}
	if patch.CustomerName != nil {
		t.CustomerName = strings.TrimSpace(*patch.CustomerName)
	}
}

// decideNotice picks at most one customer email for an update. Resolution wins
// over a status change, which wins over a new assignee.
func decideNotice(prev, next *domain.Ticket) (events.CustomerNotice, string) {
	switch {
	case next.Resolved() && !prev.Resolved():
		return events.NoticeResolution, ""
	case next.Status != prev.Status:
		return events.NoticeUpdate, "Status changed to " + string(next.Status)
	case next.AssignedTo != prev.AssignedTo && next.AssignedTo != "":
		return events.NoticeUpdate, "Assigned to " + next.AssignedTo
	}
	return events.NoticeNone, ""
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
