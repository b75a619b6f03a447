package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/supportdesk/helpdesk-service/internal/domain"
)

// Clock returns the current time. Memory repositories accept one so tests can
// control timestamps.
type Clock func() time.Time

type memoryTicketRepository struct {
	mu      sync.Mutex
	now     Clock
	tickets map[string]*domain.Ticket
}

// NewMemoryTicketRepository returns a process-local repository. A nil clock
// falls back to time.Now.
func NewMemoryTicketRepository(clock Clock) TicketRepository {
	if clock == nil {
		clock = time.Now
	}
	return &memoryTicketRepository{now: clock, tickets: make(map[string]*domain.Ticket)}
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	for i := range ticket.History {
		ticket.History[i].Timestamp = now
	}
	r.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ticket.Clone(), nil
}

func (r *memoryTicketRepository) Update(_ context.Context, id string, mutate TicketMutator) (*domain.Ticket, *domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tickets[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	prev := stored.Clone()
	next := stored.Clone()
	entry, err := mutate(next)
	if err != nil {
		return nil, nil, err
	}

	now := r.now().UTC()
	if now.Before(next.CreatedAt) {
		now = next.CreatedAt
	}
	// Fields fixed at creation are not writable through Update.
	next.ID = prev.ID
	next.Message = prev.Message
	next.Channel = prev.Channel
	next.CreatedAt = prev.CreatedAt
	next.UpdatedAt = now
	entry.Timestamp = now
	next.History = append(prev.History, entry)

	r.tickets[id] = next.Clone()
	return prev, next, nil
}

func (r *memoryTicketRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[id]; !ok {
		return ErrNotFound
	}
	delete(r.tickets, id)
	return nil
}

func (r *memoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := []domain.Ticket{}
	for _, ticket := range r.tickets {
		if filter.Matches(ticket) {
			result = append(result, *ticket.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Matches evaluates the filter against one ticket.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	if f.AssignedTo != nil && t.AssignedTo != *f.AssignedTo {
		return false
	}
	if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && t.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}
