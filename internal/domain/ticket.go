package domain

import "time"

// TicketChannel enumerates intake channels.
type TicketChannel string

const (
	ChannelEmail     TicketChannel = "email"
	ChannelSocial    TicketChannel = "social"
	ChannelChat      TicketChannel = "chat"
	ChannelCommunity TicketChannel = "community"
)

// TicketCategory enumerates triage categories.
type TicketCategory string

const (
	CategoryQuestion  TicketCategory = "question"
	CategoryRequest   TicketCategory = "request"
	CategoryComplaint TicketCategory = "complaint"
	CategoryFeedback  TicketCategory = "feedback"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusResolved   TicketStatus = "resolved"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

var (
	Channels   = []TicketChannel{ChannelEmail, ChannelSocial, ChannelChat, ChannelCommunity}
	Categories = []TicketCategory{CategoryQuestion, CategoryRequest, CategoryComplaint, CategoryFeedback}
	Statuses   = []TicketStatus{TicketStatusNew, TicketStatusAssigned, TicketStatusInProgress, TicketStatusResolved}
	Priorities = []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent}
)

// Valid reports whether c is a known channel.
func (c TicketChannel) Valid() bool {
	for _, v := range Channels {
		if v == c {
			return true
		}
	}
	return false
}

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            string
	Message       string
	Channel       TicketChannel
	Category      TicketCategory
	Priority      TicketPriority
	Status        TicketStatus
	AssignedTo    string
	CustomerEmail string
	CustomerName  string
	History       []HistoryEntry
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Resolved reports whether the ticket is in the resolved state.
func (t *Ticket) Resolved() bool {
	return t.Status == TicketStatusResolved
}

// ResolutionTime is updatedAt-createdAt; only meaningful for resolved tickets.
func (t *Ticket) ResolutionTime() time.Duration {
	return t.UpdatedAt.Sub(t.CreatedAt)
}

// ShortRef returns the customer-facing ticket reference.
func (t *Ticket) ShortRef() string {
	if len(t.ID) <= 6 {
		return t.ID
	}
	return t.ID[len(t.ID)-6:]
}

// Clone returns a deep copy so callers can keep snapshots.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.History = append([]HistoryEntry(nil), t.History...)
	return &cp
}
