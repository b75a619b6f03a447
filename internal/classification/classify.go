// Package classification assigns a category and priority to an incoming message
// using fixed keyword rules.
package classification

import (
	"strings"

	"github.com/supportdesk/helpdesk-service/internal/domain"
)

type categoryRule struct {
	category domain.TicketCategory
	keywords []string
}

// Evaluated in order; first match wins.
var categoryRules = []categoryRule{
	{domain.CategoryComplaint, []string{"complaint", "issue", "problem", "broken"}},
	{domain.CategoryRequest, []string{"request", "need", "want", "require"}},
	{domain.CategoryFeedback, []string{"feedback", "review", "rating"}},
}

var (
	highKeywords   = []string{"urgent", "emergency", "critical"}
	mediumKeywords = []string{"asap", "important", "priority"}
)

// Classify returns the category and priority for message.
func Classify(message string) (domain.TicketCategory, domain.TicketPriority) {
	category := Category(message)
	return category, Priority(message, category)
}

// Category matches message against the category keyword sets.
func Category(message string) domain.TicketCategory {
	msg := strings.ToLower(message)
	for _, rule := range categoryRules {
		if containsAny(msg, rule.keywords) {
			return rule.category
		}
	}
	return domain.CategoryQuestion
}

// Priority derives urgency from message keywords and the already computed category.
// Complaints are always high.
func Priority(message string, category domain.TicketCategory) domain.TicketPriority {
	msg := strings.ToLower(message)
	switch {
	case category == domain.CategoryComplaint || containsAny(msg, highKeywords):
		return domain.TicketPriorityHigh
	case containsAny(msg, mediumKeywords):
		return domain.TicketPriorityMedium
	default:
		return domain.TicketPriorityLow
	}
}

func containsAny(msg string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
