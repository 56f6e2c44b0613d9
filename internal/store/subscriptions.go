package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Subscription is a managed recurring service sold to a client (website
// hosting, chatbot runtime, analytics reporting).
type Subscription struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"`
	Kind         string    `json:"kind"`
	Plan         string    `json:"plan"`
	MonthlyPrice float64   `json:"monthly_price"`
	Status       string    `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const subscriptionColumns = "id, client_id, kind, plan, monthly_price, status, started_at, created_at, updated_at"

// CreateSubscription inserts a subscription.
func (s *Store) CreateSubscription(ctx context.Context, sub Subscription) (Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	id, err := uuidValue(sub.ID)
	if err != nil {
		return Subscription{}, fmt.Errorf("store: subscription id: %w", err)
	}
	clientID, err := uuidValue(sub.ClientID)
	if err != nil {
		return Subscription{}, fmt.Errorf("store: client id: %w", err)
	}
	if sub.Status == "" {
		sub.Status = "active"
	}
	now := s.now()
	if sub.StartedAt.IsZero() {
		sub.StartedAt = now
	}
	sub.CreatedAt = now
	sub.UpdatedAt = now
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO subscriptions (id, client_id, kind, plan, monthly_price, status, started_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, clientID, sub.Kind, sub.Plan, sub.MonthlyPrice, sub.Status, sub.StartedAt, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return Subscription{}, mapErr(err)
	}
	return sub, nil
}

// GetSubscription fetches one subscription by id. A malformed id reads as not
// found.
func (s *Store) GetSubscription(ctx context.Context, id string) (Subscription, error) {
	uid, err := uuidValue(id)
	if err != nil {
		return Subscription{}, ErrNotFound
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, uid)
	return scanSubscription(row)
}

// ListSubscriptions returns subscriptions filtered by client and/or status.
func (s *Store) ListSubscriptions(ctx context.Context, f ListFilter) ([]Subscription, int, error) {
	clientID, err := optionalUUID(f.ClientID)
	if err != nil {
		// An unparseable client filter matches nothing.
		return []Subscription{}, 0, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE ($1::uuid IS NULL OR client_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		clientID, f.Status, f.limit(), f.offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	subs := make([]Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapErr(err)
	}

	var total int
	err = s.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE ($1::uuid IS NULL OR client_id = $1) AND ($2 = '' OR status = $2)`,
		clientID, f.Status).Scan(&total)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return subs, total, nil
}

// UpdateSubscription persists mutable subscription fields.
func (s *Store) UpdateSubscription(ctx context.Context, sub Subscription) (Subscription, error) {
	id, err := uuidValue(sub.ID)
	if err != nil {
		return Subscription{}, ErrNotFound
	}
	sub.UpdatedAt = s.now()
	tag, err := s.Pool.Exec(ctx, `
		UPDATE subscriptions
		SET kind = $2, plan = $3, monthly_price = $4, status = $5, updated_at = $6
		WHERE id = $1`,
		id, sub.Kind, sub.Plan, sub.MonthlyPrice, sub.Status, sub.UpdatedAt)
	if err != nil {
		return Subscription{}, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return Subscription{}, ErrNotFound
	}
	return s.GetSubscription(ctx, sub.ID)
}

// DeleteSubscription removes a subscription.
func (s *Store) DeleteSubscription(ctx context.Context, id string) error {
	uid, err := uuidValue(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, uid)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSubscription(row rowScanner) (Subscription, error) {
	var sub Subscription
	var id, clientID pgtype.UUID
	err := row.Scan(&id, &clientID, &sub.Kind, &sub.Plan, &sub.MonthlyPrice, &sub.Status,
		&sub.StartedAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return Subscription{}, mapErr(err)
	}
	sub.ID = uuidString(id)
	sub.ClientID = uuidString(clientID)
	return sub, nil
}
