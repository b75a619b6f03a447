package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/helpdesk-service/internal/domain"
)

// TicketFilter is a conjunction of optional exact-match predicates.
// CreatedFrom and CreatedTo are inclusive.
type TicketFilter struct {
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	Category    *domain.TicketCategory
	AssignedTo  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// TicketMutator changes the current ticket in place and returns the history
// entry describing the change. Returning an error aborts the update.
type TicketMutator func(ticket *domain.Ticket) (domain.HistoryEntry, error)

// TicketRepository encapsulates ticket persistence.
//
// Update reads, mutates and writes one ticket atomically: prev is the state the
// mutator saw, next the state that was persisted.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, id string, mutate TicketMutator) (prev, next *domain.Ticket, err error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id::text, message, channel, category, priority, status, assigned_to,
               customer_email, customer_name, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
        INSERT INTO tickets (message, channel, category, priority, status, assigned_to, customer_email, customer_name)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id::text, created_at, updated_at`
		if err := tx.QueryRow(ctx, query,
			ticket.Message,
			ticket.Channel,
			ticket.Category,
			ticket.Priority,
			ticket.Status,
			ticket.AssignedTo,
			ticket.CustomerEmail,
			ticket.CustomerName,
		).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
			return err
		}
		for i := range ticket.History {
			entry := &ticket.History[i]
			if err := insertHistory(ctx, tx, ticket.ID, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if ticket.History, err = loadHistory(ctx, r.pool, ticket.ID); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, id string, mutate TicketMutator) (*domain.Ticket, *domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, ErrNotFound
	}
	var prev, next *domain.Ticket
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
		current, err := scanTicket(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}
		if current.History, err = loadHistory(ctx, tx, current.ID); err != nil {
			return err
		}
		prev = current.Clone()

		entry, err := mutate(current)
		if err != nil {
			return err
		}

		const update = `
        UPDATE tickets SET category=$1, priority=$2, status=$3, assigned_to=$4,
            customer_email=$5, customer_name=$6, updated_at=GREATEST(NOW(), created_at)
        WHERE id=$7
        RETURNING updated_at`
		if err := tx.QueryRow(ctx, update,
			current.Category,
			current.Priority,
			current.Status,
			current.AssignedTo,
			current.CustomerEmail,
			current.CustomerName,
			current.ID,
		).Scan(&current.UpdatedAt); err != nil {
			return err
		}
		if err := insertHistory(ctx, tx, current.ID, &entry); err != nil {
			return err
		}
		current.History = append(current.History, entry)
		next = current
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return prev, next, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachHistory(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) attachHistory(ctx context.Context, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]string, len(tickets))
	index := make(map[string]int, len(tickets))
	for i := range tickets {
		ids[i] = tickets[i].ID
		index[tickets[i].ID] = i
	}
	const query = `
        SELECT ticket_id::text, action, actor, created_at
        FROM ticket_history WHERE ticket_id::text = ANY($1) ORDER BY ticket_id, id`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ticketID string
		var entry domain.HistoryEntry
		if err := rows.Scan(&ticketID, &entry.Action, &entry.User, &entry.Timestamp); err != nil {
			return err
		}
		if i, ok := index[ticketID]; ok {
			tickets[i].History = append(tickets[i].History, entry)
		}
	}
	return rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadHistory(ctx context.Context, q querier, ticketID string) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT action, actor, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY id ASC`
	rows, err := q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(&entry.Action, &entry.User, &entry.Timestamp); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func insertHistory(ctx context.Context, tx pgx.Tx, ticketID string, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, action, actor)
        VALUES ($1,$2,$3)
        RETURNING created_at`
	return tx.QueryRow(ctx, query, ticketID, entry.Action, entry.User).Scan(&entry.Timestamp)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Message,
		&ticket.Channel,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssignedTo,
		&ticket.CustomerEmail,
		&ticket.CustomerName,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
