package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/supportdesk/helpdesk-service/internal/domain"
)

type historyDocument struct {
	Action    string    `bson:"action"`
	User      string    `bson:"user"`
	Timestamp time.Time `bson:"timestamp"`
}

type ticketDocument struct {
	ID            string            `bson:"_id"`
	Message       string            `bson:"message"`
	Channel       string            `bson:"channel"`
	Category      string            `bson:"category"`
	Priority      string            `bson:"priority"`
	Status        string            `bson:"status"`
	AssignedTo    string            `bson:"assigned_to"`
	CustomerEmail string            `bson:"customer_email"`
	CustomerName  string            `bson:"customer_name"`
	History       []historyDocument `bson:"history"`
	CreatedAt     time.Time         `bson:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at"`
	Version       int64             `bson:"version"`
}

type mongoTicketRepository struct {
	col *mongo.Collection
}

// NewMongoTicketRepository stores tickets as documents with embedded history.
func NewMongoTicketRepository(db *mongo.Database) TicketRepository {
	return &mongoTicketRepository{col: db.Collection("tickets")}
}

// mongoNow truncates to the millisecond precision BSON dates keep, so a value
// read back compares equal to the one written.
func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (r *mongoTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	now := mongoNow()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	for i := range ticket.History {
		ticket.History[i].Timestamp = now
	}
	doc := toTicketDocument(ticket)
	doc.Version = 1
	_, err := r.col.InsertOne(ctx, doc)
	return err
}

func (r *mongoTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	doc, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *mongoTicketRepository) find(ctx context.Context, id string) (*ticketDocument, error) {
	var doc ticketDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *mongoTicketRepository) Update(ctx context.Context, id string, mutate TicketMutator) (*domain.Ticket, *domain.Ticket, error) {
	doc, err := r.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	current := doc.toDomain()
	prev := current.Clone()
	entry, err := mutate(current)
	if err != nil {
		return nil, nil, err
	}

	now := mongoNow()
	if now.Before(prev.CreatedAt) {
		now = prev.CreatedAt
	}
	entry.Timestamp = now

	filter := casFilter(id, doc.Version)
	update := casUpdate(current, entry, now)
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, nil, err
	}
	if res.MatchedCount == 0 {
		return nil, nil, ErrConflict
	}

	next := current
	next.ID = prev.ID
	next.Message = prev.Message
	next.Channel = prev.Channel
	next.CreatedAt = prev.CreatedAt
	next.UpdatedAt = now
	next.History = append(prev.History, entry)
	return prev, next, nil
}

// casFilter matches the document only while it still carries the version
// that was read. Documents written before versioning match on a missing field.
func casFilter(id string, version int64) bson.M {
	if version == 0 {
		return bson.M{"_id": id, "version": bson.M{"$exists": false}}
	}
	return bson.M{"_id": id, "version": version}
}

func casUpdate(t *domain.Ticket, entry domain.HistoryEntry, now time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"category":       t.Category,
			"priority":       t.Priority,
			"status":         t.Status,
			"assigned_to":    t.AssignedTo,
			"customer_email": t.CustomerEmail,
			"customer_name":  t.CustomerName,
			"updated_at":     now,
		},
		"$inc":  bson.M{"version": 1},
		"$push": bson.M{"history": historyDocument{Action: entry.Action, User: entry.User, Timestamp: now}},
	}
}

func (r *mongoTicketRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	if filter.Priority != nil {
		query["priority"] = *filter.Priority
	}
	if filter.Category != nil {
		query["category"] = *filter.Category
	}
	if filter.AssignedTo != nil {
		query["assigned_to"] = *filter.AssignedTo
	}
	if filter.CreatedFrom != nil || filter.CreatedTo != nil {
		created := bson.M{}
		if filter.CreatedFrom != nil {
			created["$gte"] = *filter.CreatedFrom
		}
		if filter.CreatedTo != nil {
			created["$lte"] = *filter.CreatedTo
		}
		query["created_at"] = created
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var docs []ticketDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.Ticket, 0, len(docs))
	for i := range docs {
		result = append(result, *docs[i].toDomain())
	}
	return result, nil
}

func toTicketDocument(t *domain.Ticket) ticketDocument {
	history := make([]historyDocument, 0, len(t.History))
	for _, h := range t.History {
		history = append(history, historyDocument{Action: h.Action, User: h.User, Timestamp: h.Timestamp})
	}
	return ticketDocument{
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

func (d *ticketDocument) toDomain() *domain.Ticket {
	history := make([]domain.HistoryEntry, 0, len(d.History))
	for _, h := range d.History {
		history = append(history, domain.HistoryEntry{Action: h.Action, User: h.User, Timestamp: h.Timestamp.UTC()})
	}
	return &domain.Ticket{
		ID:            d.ID,
		Message:       d.Message,
		Channel:       domain.TicketChannel(d.Channel),
		Category:      domain.TicketCategory(d.Category),
		Priority:      domain.TicketPriority(d.Priority),
		Status:        domain.TicketStatus(d.Status),
		AssignedTo:    d.AssignedTo,
		CustomerEmail: d.CustomerEmail,
		CustomerName:  d.CustomerName,
		History:       history,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}
