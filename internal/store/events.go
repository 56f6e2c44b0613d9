package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// DomainEvent is a persisted record of something that happened to a document.
type DomainEvent struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	AggregateID string    `json:"aggregate_id"`
	Payload     []byte    `json:"payload"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// InsertDomainEvent persists an event and returns the stored row.
func (s *Store) InsertDomainEvent(ctx context.Context, topic, aggregateID string, payload []byte) (DomainEvent, error) {
	ev := DomainEvent{
		ID:          uuid.NewString(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  s.now(),
	}
	id, err := uuidValue(ev.ID)
	if err != nil {
		return DomainEvent{}, err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, ev.Topic, ev.AggregateID, ev.Payload, ev.OccurredAt)
	if err != nil {
		return DomainEvent{}, mapErr(err)
	}
	return ev, nil
}

// ListDomainEvents returns the most recent events for an aggregate.
func (s *Store) ListDomainEvents(ctx context.Context, aggregateID string, limit int) ([]DomainEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, topic, aggregate_id, payload, occurred_at
		FROM domain_events
		WHERE aggregate_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`, aggregateID, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	events := make([]DomainEvent, 0)
	for rows.Next() {
		var ev DomainEvent
		var id pgtype.UUID
		if err := rows.Scan(&id, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt); err != nil {
			return nil, mapErr(err)
		}
		ev.ID = uuidString(id)
		events = append(events, ev)
	}
	return events, mapErr(rows.Err())
}
