package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-agency/internal/pricing"
)

// Quote is a pre-sale proposal document. Totals are always recomputed by the
// quote service before a write; the store never derives them.
type Quote struct {
	ID                 string             `json:"id"`
	Number             string             `json:"number"`
	ClientID           string             `json:"client_id"`
	Status             string             `json:"status"`
	Items              []pricing.LineItem `json:"items"`
	TaxRate            float64            `json:"tax_rate"`
	Subtotal           float64            `json:"subtotal"`
	Tax                float64            `json:"tax"`
	Total              float64            `json:"total"`
	OneTimeAmount      float64            `json:"one_time_amount"`
	MonthlyAmount      float64            `json:"monthly_amount"`
	ValidUntil         time.Time          `json:"valid_until"`
	ConvertedInvoiceID string             `json:"converted_invoice_id,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

const quoteColumns = `id, number, client_id, status, items, tax_rate, subtotal, tax, total,
	one_time_amount, monthly_amount, valid_until, converted_invoice_id, created_at, updated_at`

// CreateQuote inserts a quote. A colliding quote number yields ErrDuplicate.
func (s *Store) CreateQuote(ctx context.Context, q Quote) (Quote, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	id, err := uuidValue(q.ID)
	if err != nil {
		return Quote{}, fmt.Errorf("store: quote id: %w", err)
	}
	clientID, err := uuidValue(q.ClientID)
	if err != nil {
		return Quote{}, fmt.Errorf("store: client id: %w", err)
	}
	converted, err := optionalUUID(q.ConvertedInvoiceID)
	if err != nil {
		return Quote{}, fmt.Errorf("store: converted invoice id: %w", err)
	}
	now := s.now()
	q.CreatedAt = now
	q.UpdatedAt = now
	items, err := json.Marshal(q.Items)
	if err != nil {
		return Quote{}, err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO quotes (id, number, client_id, status, items, tax_rate, subtotal, tax, total,
			one_time_amount, monthly_amount, valid_until, converted_invoice_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		id, q.Number, clientID, q.Status, items, q.TaxRate, q.Subtotal, q.Tax, q.Total,
		q.OneTimeAmount, q.MonthlyAmount, q.ValidUntil, converted, q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return Quote{}, mapErr(err)
	}
	return q, nil
}

// GetQuote fetches one quote by id. A malformed id can never match a row, so
// it reads as not found rather than a driver error.
func (s *Store) GetQuote(ctx context.Context, id string) (Quote, error) {
	uid, err := uuidValue(id)
	if err != nil {
		return Quote{}, ErrNotFound
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, uid)
	return scanQuote(row)
}

// ListQuotes returns quotes filtered by client and/or status, newest first.
func (s *Store) ListQuotes(ctx context.Context, f ListFilter) ([]Quote, int, error) {
	clientID, err := optionalUUID(f.ClientID)
	if err != nil {
		// An unparseable client filter matches nothing.
		return []Quote{}, 0, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+quoteColumns+` FROM quotes
		WHERE ($1::uuid IS NULL OR client_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		clientID, f.Status, f.limit(), f.offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	quotes := make([]Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapErr(err)
	}

	var total int
	err = s.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quotes WHERE ($1::uuid IS NULL OR client_id = $1) AND ($2 = '' OR status = $2)`,
		clientID, f.Status).Scan(&total)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return quotes, total, nil
}

// UpdateQuote persists the full mutable state of a quote.
func (s *Store) UpdateQuote(ctx context.Context, q Quote) (Quote, error) {
	id, err := uuidValue(q.ID)
	if err != nil {
		return Quote{}, ErrNotFound
	}
	converted, err := optionalUUID(q.ConvertedInvoiceID)
	if err != nil {
		return Quote{}, fmt.Errorf("store: converted invoice id: %w", err)
	}
	q.UpdatedAt = s.now()
	items, err := json.Marshal(q.Items)
	if err != nil {
		return Quote{}, err
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE quotes
		SET status = $2, items = $3, tax_rate = $4, subtotal = $5, tax = $6, total = $7,
			one_time_amount = $8, monthly_amount = $9, valid_until = $10,
			converted_invoice_id = $11, updated_at = $12
		WHERE id = $1`,
		id, q.Status, items, q.TaxRate, q.Subtotal, q.Tax, q.Total,
		q.OneTimeAmount, q.MonthlyAmount, q.ValidUntil, converted, q.UpdatedAt)
	if err != nil {
		return Quote{}, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return Quote{}, ErrNotFound
	}
	return s.GetQuote(ctx, q.ID)
}

// DeleteQuote removes a quote.
func (s *Store) DeleteQuote(ctx context.Context, id string) error {
	uid, err := uuidValue(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, uid)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListQuotesDueForExpiry returns sent quotes whose validity window has passed.
func (s *Store) ListQuotesDueForExpiry(ctx context.Context, cutoff time.Time) ([]Quote, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+quoteColumns+` FROM quotes
		WHERE status = 'sent' AND valid_until < $1
		ORDER BY valid_until`, cutoff)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	quotes := make([]Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, mapErr(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (Quote, error) {
	var q Quote
	var id, clientID, converted pgtype.UUID
	var items []byte
	err := row.Scan(&id, &q.Number, &clientID, &q.Status, &items, &q.TaxRate, &q.Subtotal,
		&q.Tax, &q.Total, &q.OneTimeAmount, &q.MonthlyAmount, &q.ValidUntil,
		&converted, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return Quote{}, mapErr(err)
	}
	q.ID = uuidString(id)
	q.ClientID = uuidString(clientID)
	q.ConvertedInvoiceID = uuidString(converted)
	if len(items) > 0 {
		if err := json.Unmarshal(items, &q.Items); err != nil {
			return Quote{}, err
		}
	}
	return q, nil
}
