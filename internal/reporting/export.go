package reporting

import (
	"encoding/csv"
	"io"
	"sort"

	"github.com/supportdesk/helpdesk-service/internal/domain"
)

const (
	isoLayout = "2006-01-02T15:04:05.000Z07:00"

	unassigned  = "Unassigned"
	notResolved = "Not resolved"
)

var exportHeader = []string{
	"ID",
	"Customer Name",
	"Customer Email",
	"Channel",
	"Category",
	"Priority",
	"Status",
	"Assigned To",
	"Created At",
	"Resolved At",
	"Message",
}

// WriteCSV writes every ticket, newest first, with a header row.
func WriteCSV(w io.Writer, tickets []domain.Ticket) error {
	rows := make([]domain.Ticket, len(tickets))
	copy(rows, tickets)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for i := range rows {
		if err := cw.Write(exportRow(&rows[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRow(t *domain.Ticket) []string {
	assigned := t.AssignedTo
	if assigned == "" {
		assigned = unassigned
	}
	resolvedAt := notResolved
	if t.Resolved() {
		resolvedAt = t.UpdatedAt.UTC().Format(isoLayout)
	}
	return []string{
		t.ID,
		t.CustomerName,
		t.CustomerEmail,
		string(t.Channel),
		string(t.Category),
		string(t.Priority),
		string(t.Status),
		assigned,
		t.CreatedAt.UTC().Format(isoLayout),
		resolvedAt,
		t.Message,
	}
}
