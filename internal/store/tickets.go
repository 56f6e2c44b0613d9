package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Ticket is a client support request.
type Ticket struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body,omitempty"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const ticketColumns = "id, client_id, subject, body, priority, status, created_at, updated_at"

// CreateTicket inserts a ticket.
func (s *Store) CreateTicket(ctx context.Context, t Ticket) (Ticket, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	id, err := uuidValue(t.ID)
	if err != nil {
		return Ticket{}, fmt.Errorf("store: ticket id: %w", err)
	}
	clientID, err := uuidValue(t.ClientID)
	if err != nil {
		return Ticket{}, fmt.Errorf("store: client id: %w", err)
	}
	if t.Status == "" {
		t.Status = "open"
	}
	if t.Priority == "" {
		t.Priority = "normal"
	}
	now := s.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO tickets (id, client_id, subject, body, priority, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, clientID, t.Subject, t.Body, t.Priority, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return Ticket{}, mapErr(err)
	}
	return t, nil
}

// GetTicket fetches one ticket by id. A malformed id reads as not found.
func (s *Store) GetTicket(ctx context.Context, id string) (Ticket, error) {
	uid, err := uuidValue(id)
	if err != nil {
		return Ticket{}, ErrNotFound
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, uid)
	return scanTicket(row)
}

// ListTickets returns tickets filtered by client and/or status.
func (s *Store) ListTickets(ctx context.Context, f ListFilter) ([]Ticket, int, error) {
	clientID, err := optionalUUID(f.ClientID)
	if err != nil {
		// An unparseable client filter matches nothing.
		return []Ticket{}, 0, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE ($1::uuid IS NULL OR client_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		clientID, f.Status, f.limit(), f.offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	tickets := make([]Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapErr(err)
	}

	var total int
	err = s.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE ($1::uuid IS NULL OR client_id = $1) AND ($2 = '' OR status = $2)`,
		clientID, f.Status).Scan(&total)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return tickets, total, nil
}

// UpdateTicket persists mutable ticket fields.
func (s *Store) UpdateTicket(ctx context.Context, t Ticket) (Ticket, error) {
	id, err := uuidValue(t.ID)
	if err != nil {
		return Ticket{}, ErrNotFound
	}
	t.UpdatedAt = s.now()
	tag, err := s.Pool.Exec(ctx, `
		UPDATE tickets
		SET subject = $2, body = $3, priority = $4, status = $5, updated_at = $6
		WHERE id = $1`,
		id, t.Subject, t.Body, t.Priority, t.Status, t.UpdatedAt)
	if err != nil {
		return Ticket{}, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return Ticket{}, ErrNotFound
	}
	return s.GetTicket(ctx, t.ID)
}

// DeleteTicket removes a ticket.
func (s *Store) DeleteTicket(ctx context.Context, id string) error {
	uid, err := uuidValue(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, uid)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTicket(row rowScanner) (Ticket, error) {
	var t Ticket
	var id, clientID pgtype.UUID
	err := row.Scan(&id, &clientID, &t.Subject, &t.Body, &t.Priority, &t.Status,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Ticket{}, mapErr(err)
	}
	t.ID = uuidString(id)
	t.ClientID = uuidString(clientID)
	return t, nil
}
