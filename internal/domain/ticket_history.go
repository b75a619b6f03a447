package domain

import (
	"strings"
	"time"
)

const (
	// SystemActor authors entries not caused by a staff member.
	SystemActor = "System"
	// DefaultActor is recorded when an update arrives without an authenticated identity.
	DefaultActor = "Admin"

	ActionReceived = "Query received"
)

// HistoryEntry is an immutable audit trail entry.
type HistoryEntry struct {
	Action    string
	User      string
	Timestamp time.Time
}

// UpdatedAction renders the action text for a field update.
func UpdatedAction(fields []string) string {
	return "Updated: " + strings.Join(fields, ", ")
}
