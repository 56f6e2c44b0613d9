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

// Invoice is a billing document. Totals are recomputed by the invoice service
// before every write.
type Invoice struct {
	ID        string             `json:"id"`
	Number    string             `json:"number"`
	ClientID  string             `json:"client_id"`
	Status    string             `json:"status"`
	Items     []pricing.LineItem `json:"items"`
	TaxRate   float64            `json:"tax_rate"`
	Subtotal  float64            `json:"subtotal"`
	Tax       float64            `json:"tax"`
	Total     float64            `json:"total"`
	DueDate   time.Time          `json:"due_date"`
	QuoteID   string             `json:"quote_id,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

const invoiceColumns = `id, number, client_id, status, items, tax_rate, subtotal, tax, total,
	due_date, quote_id, created_at, updated_at`

// CreateInvoice inserts an invoice. A colliding invoice number yields
// ErrDuplicate.
func (s *Store) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	id, err := uuidValue(inv.ID)
	if err != nil {
		return Invoice{}, fmt.Errorf("store: invoice id: %w", err)
	}
	clientID, err := uuidValue(inv.ClientID)
	if err != nil {
		return Invoice{}, fmt.Errorf("store: client id: %w", err)
	}
	quoteID, err := optionalUUID(inv.QuoteID)
	if err != nil {
		return Invoice{}, fmt.Errorf("store: quote id: %w", err)
	}
	now := s.now()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return Invoice{}, err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO invoices (id, number, client_id, status, items, tax_rate, subtotal, tax, total,
			due_date, quote_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, inv.Number, clientID, inv.Status, items, inv.TaxRate, inv.Subtotal, inv.Tax,
		inv.Total, inv.DueDate, quoteID, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return Invoice{}, mapErr(err)
	}
	return inv, nil
}

// GetInvoice fetches one invoice by id. A malformed id reads as not found.
func (s *Store) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	uid, err := uuidValue(id)
	if err != nil {
		return Invoice{}, ErrNotFound
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, uid)
	return scanInvoice(row)
}

// ListInvoices returns invoices filtered by client and/or status, newest
// first.
func (s *Store) ListInvoices(ctx context.Context, f ListFilter) ([]Invoice, int, error) {
	clientID, err := optionalUUID(f.ClientID)
	if err != nil {
		// An unparseable client filter matches nothing.
		return []Invoice{}, 0, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE ($1::uuid IS NULL OR client_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		clientID, f.Status, f.limit(), f.offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	invoices := make([]Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapErr(err)
	}

	var total int
	err = s.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE ($1::uuid IS NULL OR client_id = $1) AND ($2 = '' OR status = $2)`,
		clientID, f.Status).Scan(&total)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return invoices, total, nil
}

// UpdateInvoice persists the full mutable state of an invoice.
func (s *Store) UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	id, err := uuidValue(inv.ID)
	if err != nil {
		return Invoice{}, ErrNotFound
	}
	inv.UpdatedAt = s.now()
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return Invoice{}, err
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE invoices
		SET status = $2, items = $3, tax_rate = $4, subtotal = $5, tax = $6, total = $7,
			due_date = $8, updated_at = $9
		WHERE id = $1`,
		id, inv.Status, items, inv.TaxRate, inv.Subtotal, inv.Tax, inv.Total,
		inv.DueDate, inv.UpdatedAt)
	if err != nil {
		return Invoice{}, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return Invoice{}, ErrNotFound
	}
	return s.GetInvoice(ctx, inv.ID)
}

// DeleteInvoice removes an invoice.
func (s *Store) DeleteInvoice(ctx context.Context, id string) error {
	uid, err := uuidValue(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, uid)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListInvoicesPastDue returns sent invoices whose due date has passed.
func (s *Store) ListInvoicesPastDue(ctx context.Context, cutoff time.Time) ([]Invoice, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE status = 'sent' AND due_date < $1
		ORDER BY due_date`, cutoff)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	invoices := make([]Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, mapErr(rows.Err())
}

func scanInvoice(row rowScanner) (Invoice, error) {
	var inv Invoice
	var id, clientID, quoteID pgtype.UUID
	var items []byte
	err := row.Scan(&id, &inv.Number, &clientID, &inv.Status, &items, &inv.TaxRate,
		&inv.Subtotal, &inv.Tax, &inv.Total, &inv.DueDate, &quoteID,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, mapErr(err)
	}
	inv.ID = uuidString(id)
	inv.ClientID = uuidString(clientID)
	inv.QuoteID = uuidString(quoteID)
	if len(items) > 0 {
		if err := json.Unmarshal(items, &inv.Items); err != nil {
			return Invoice{}, err
		}
	}
	return inv, nil
}
