package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Client is an agency customer owning documents, subscriptions and tickets.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const clientColumns = "id, name, company, email, phone, status, created_at, updated_at"

// CreateClient inserts a new client.
func (s *Store) CreateClient(ctx context.Context, c Client) (Client, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	id, err := uuidValue(c.ID)
	if err != nil {
		return Client{}, fmt.Errorf("store: client id: %w", err)
	}
	if c.Status == "" {
		c.Status = "active"
	}
	now := s.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO clients (id, name, company, email, phone, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, c.Name, c.Company, c.Email, c.Phone, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return Client{}, mapErr(err)
	}
	return c, nil
}

// GetClient fetches one client by id. A malformed id reads as not found.
func (s *Store) GetClient(ctx context.Context, id string) (Client, error) {
	uid, err := uuidValue(id)
	if err != nil {
		return Client{}, ErrNotFound
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, uid)
	return scanClient(row)
}

// ListClients returns clients ordered by creation time, newest first.
func (s *Store) ListClients(ctx context.Context, f ListFilter) ([]Client, int, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+clientColumns+` FROM clients
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		f.Status, f.limit(), f.offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	clients := make([]Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapErr(err)
	}

	var total int
	err = s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients WHERE ($1 = '' OR status = $1)`, f.Status).Scan(&total)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return clients, total, nil
}

// UpdateClient persists mutable client fields.
func (s *Store) UpdateClient(ctx context.Context, c Client) (Client, error) {
	id, err := uuidValue(c.ID)
	if err != nil {
		return Client{}, ErrNotFound
	}
	c.UpdatedAt = s.now()
	tag, err := s.Pool.Exec(ctx, `
		UPDATE clients
		SET name = $2, company = $3, email = $4, phone = $5, status = $6, updated_at = $7
		WHERE id = $1`,
		id, c.Name, c.Company, c.Email, c.Phone, c.Status, c.UpdatedAt)
	if err != nil {
		return Client{}, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return Client{}, ErrNotFound
	}
	return s.GetClient(ctx, c.ID)
}

// DeleteClient removes a client. Owned documents cascade at the schema level.
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	uid, err := uuidValue(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, uid)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanClient(row rowScanner) (Client, error) {
	var c Client
	var id pgtype.UUID
	err := row.Scan(&id, &c.Name, &c.Company, &c.Email, &c.Phone, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Client{}, mapErr(err)
	}
	c.ID = uuidString(id)
	return c, nil
}
