package quote

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/document"
	"github.com/noah-isme/backend-agency/internal/events"
	"github.com/noah-isme/backend-agency/internal/obs"
	"github.com/noah-isme/backend-agency/internal/pricing"
	"github.com/noah-isme/backend-agency/internal/store"
)

// Store defines the persistence operations used by the quote service.
type Store interface {
	CreateQuote(ctx context.Context, q store.Quote) (store.Quote, error)
	GetQuote(ctx context.Context, id string) (store.Quote, error)
	ListQuotes(ctx context.Context, f store.ListFilter) ([]store.Quote, int, error)
	UpdateQuote(ctx context.Context, q store.Quote) (store.Quote, error)
	DeleteQuote(ctx context.Context, id string) error
	ListQuotesDueForExpiry(ctx context.Context, cutoff time.Time) ([]store.Quote, error)
}

// InvoiceStore is the narrow slice of invoice persistence needed for
// quote-to-invoice conversion.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv store.Invoice) (store.Invoice, error)
}

// ClientStore resolves the client behind a quote so lifecycle events carry a
// notification recipient.
type ClientStore interface {
	GetClient(ctx context.Context, id string) (store.Client, error)
}

// ItemInput captures one requested line item.
type ItemInput struct {
	ProductID       string   `json:"product_id"`
	Description     string   `json:"description"`
	Quantity        int      `json:"quantity"`
	CustomUnitPrice *float64 `json:"custom_unit_price"`
	DiscountPercent float64  `json:"discount_percent"`
}

// CreateInput captures the payload for building a quote.
type CreateInput struct {
	ClientID   string
	Items      []ItemInput
	TaxRate    float64
	ValidUntil *time.Time
}

// UpdateInput captures a partial quote edit. Nil fields are left unchanged;
// any change to items or tax rate triggers a full totals recomputation.
type UpdateInput struct {
	Items      *[]ItemInput
	TaxRate    *float64
	ValidUntil *time.Time
}

// Service orchestrates quote CRUD, pricing and lifecycle.
type Service struct {
	Store          Store
	Invoices       InvoiceStore
	Clients        ClientStore
	Pricer         pricing.Pricer
	Machine        *document.Machine
	Events         *events.Bus
	ValidityDays   int
	InvoiceDueDays int
	Now            func() time.Time
	NumberSuffix   func() int
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) machine() *document.Machine {
	if s.Machine != nil {
		return s.Machine
	}
	return document.QuoteMachine()
}

func (s *Service) suffix() int {
	if s.NumberSuffix != nil {
		return s.NumberSuffix()
	}
	return rand.Intn(1000)
}

// Create builds and persists a new draft quote with recomputed totals.
func (s *Service) Create(ctx context.Context, input CreateInput) (store.Quote, error) {
	if strings.TrimSpace(input.ClientID) == "" {
		return store.Quote{}, common.NewAppError("VALIDATION_ERROR", "client_id is required", http.StatusBadRequest, nil)
	}
	now := s.now()
	validUntil := now.AddDate(0, 0, s.validityDays())
	if input.ValidUntil != nil {
		validUntil = *input.ValidUntil
	}
	q := store.Quote{
		Number:     document.QuoteNumber(now),
		ClientID:   input.ClientID,
		Status:     string(document.StatusDraft),
		Items:      toLineItems(input.Items),
		TaxRate:    input.TaxRate,
		ValidUntil: validUntil,
	}
	s.reprice(&q)
	created, err := s.Store.CreateQuote(ctx, q)
	if err != nil {
		return store.Quote{}, mapStoreErr(err, "quote")
	}
	return created, nil
}

// Get fetches a quote by id.
func (s *Service) Get(ctx context.Context, id string) (store.Quote, error) {
	q, err := s.Store.GetQuote(ctx, id)
	if err != nil {
		return store.Quote{}, mapStoreErr(err, "quote")
	}
	return q, nil
}

// List returns quotes matching the filter.
func (s *Service) List(ctx context.Context, f store.ListFilter) ([]store.Quote, int, error) {
	return s.Store.ListQuotes(ctx, f)
}

// Update edits a draft quote and recomputes its totals. Edits to non-draft
// quotes are rejected.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (store.Quote, error) {
	q, err := s.Store.GetQuote(ctx, id)
	if err != nil {
		return store.Quote{}, mapStoreErr(err, "quote")
	}
	if q.Status != string(document.StatusDraft) {
		return store.Quote{}, common.NewAppError("CONFLICT", "only draft quotes can be edited", http.StatusConflict, nil)
	}
	if input.Items != nil {
		q.Items = toLineItems(*input.Items)
	}
	if input.TaxRate != nil {
		q.TaxRate = *input.TaxRate
	}
	if input.ValidUntil != nil {
		q.ValidUntil = *input.ValidUntil
	}
	s.reprice(&q)
	updated, err := s.Store.UpdateQuote(ctx, q)
	if err != nil {
		return store.Quote{}, mapStoreErr(err, "quote")
	}
	return updated, nil
}

// Delete removes a quote.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Store.DeleteQuote(ctx, id); err != nil {
		return mapStoreErr(err, "quote")
	}
	return nil
}

// Send transitions a quote from draft to sent.
func (s *Service) Send(ctx context.Context, id string) (store.Quote, error) {
	return s.transition(ctx, id, document.StatusSent)
}

// SetStatus applies an externally triggered status change (accepted,
// rejected, expired).
func (s *Service) SetStatus(ctx context.Context, id string, to document.Status) (store.Quote, error) {
	return s.transition(ctx, id, to)
}

func (s *Service) transition(ctx context.Context, id string, to document.Status) (store.Quote, error) {
	q, err := s.Store.GetQuote(ctx, id)
	if err != nil {
		return store.Quote{}, mapStoreErr(err, "quote")
	}
	if err := s.machine().Transition(document.Status(q.Status), to); err != nil {
		return store.Quote{}, common.NewAppError("INVALID_STATUS", err.Error(), http.StatusUnprocessableEntity, err)
	}
	q.Status = string(to)
	updated, err := s.Store.UpdateQuote(ctx, q)
	if err != nil {
		return store.Quote{}, mapStoreErr(err, "quote")
	}
	obs.CountDocumentTransition("quote", string(to))
	s.emit(ctx, topicFor(to), updated)
	return updated, nil
}

// Convert builds a new draft invoice from the quote's items. The quote's own
// items and totals are untouched; its status moves to converted and the new
// invoice id is recorded on it.
func (s *Service) Convert(ctx context.Context, id string) (store.Invoice, error) {
	if s.Invoices == nil {
		return store.Invoice{}, common.NewAppError("INTERNAL", "invoice store not configured", http.StatusInternalServerError, nil)
	}
	q, err := s.Store.GetQuote(ctx, id)
	if err != nil {
		return store.Invoice{}, mapStoreErr(err, "quote")
	}
	if err := s.machine().Transition(document.Status(q.Status), document.StatusConverted); err != nil {
		return store.Invoice{}, common.NewAppError("INVALID_STATUS", err.Error(), http.StatusUnprocessableEntity, err)
	}

	now := s.now()
	items := make([]pricing.LineItem, len(q.Items))
	copy(items, q.Items)
	totals := s.Pricer.Totals(items, q.TaxRate)
	inv := store.Invoice{
		Number:   document.InvoiceNumber(now, s.suffix()),
		ClientID: q.ClientID,
		Status:   string(document.StatusDraft),
		Items:    items,
		TaxRate:  q.TaxRate,
		Subtotal: totals.Subtotal,
		Tax:      totals.Tax,
		Total:    totals.Total,
		DueDate:  now.AddDate(0, 0, s.invoiceDueDays()),
		QuoteID:  q.ID,
	}
	created, err := s.Invoices.CreateInvoice(ctx, inv)
	if err != nil {
		return store.Invoice{}, mapStoreErr(err, "invoice")
	}

	q.Status = string(document.StatusConverted)
	q.ConvertedInvoiceID = created.ID
	if _, err := s.Store.UpdateQuote(ctx, q); err != nil {
		return store.Invoice{}, mapStoreErr(err, "quote")
	}
	obs.CountQuoteConversion()
	s.emit(ctx, events.TopicQuoteConverted, q)
	return created, nil
}

// ExpireStale marks sent quotes past their validity window as expired and
// returns how many were transitioned.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	due, err := s.Store.ListQuotesDueForExpiry(ctx, s.now())
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, q := range due {
		q.Status = string(document.StatusExpired)
		if _, err := s.Store.UpdateQuote(ctx, q); err != nil {
			return expired, err
		}
		obs.CountDocumentTransition("quote", string(document.StatusExpired))
		s.emit(ctx, events.TopicQuoteExpired, q)
		expired++
	}
	return expired, nil
}

// reprice recomputes subtotal, tax, total and the one-time/monthly split from
// the current items. Stored totals are never trusted.
func (s *Service) reprice(q *store.Quote) {
	totals := s.Pricer.Totals(q.Items, q.TaxRate)
	split := s.Pricer.Split(q.Items)
	q.Subtotal = totals.Subtotal
	q.Tax = totals.Tax
	q.Total = totals.Total
	q.OneTimeAmount = split.OneTime
	q.MonthlyAmount = split.Monthly
}

func (s *Service) emit(ctx context.Context, topic string, q store.Quote) {
	if s.Events == nil || topic == "" {
		return
	}
	payload := map[string]any{
		"number":   q.Number,
		"clientId": q.ClientID,
		"status":   q.Status,
		"total":    q.Total,
	}
	if s.Clients != nil {
		if c, err := s.Clients.GetClient(ctx, q.ClientID); err == nil && c.Email != "" {
			payload["clientEmail"] = c.Email
		}
	}
	_, _ = s.Events.Emit(ctx, topic, q.ID, payload)
}

func (s *Service) validityDays() int {
	if s.ValidityDays > 0 {
		return s.ValidityDays
	}
	return 30
}

func (s *Service) invoiceDueDays() int {
	if s.InvoiceDueDays > 0 {
		return s.InvoiceDueDays
	}
	return 14
}

func topicFor(to document.Status) string {
	switch to {
	case document.StatusSent:
		return events.TopicQuoteSent
	case document.StatusAccepted:
		return events.TopicQuoteAccepted
	case document.StatusRejected:
		return events.TopicQuoteRejected
	case document.StatusExpired:
		return events.TopicQuoteExpired
	case document.StatusConverted:
		return events.TopicQuoteConverted
	default:
		return ""
	}
}

func toLineItems(inputs []ItemInput) []pricing.LineItem {
	items := make([]pricing.LineItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, pricing.LineItem{
			ProductID:       strings.TrimSpace(in.ProductID),
			Description:     strings.TrimSpace(in.Description),
			Quantity:        in.Quantity,
			CustomUnitPrice: in.CustomUnitPrice,
			DiscountPercent: in.DiscountPercent,
		})
	}
	return items
}

func mapStoreErr(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return common.NewAppError("NOT_FOUND", entity+" not found", http.StatusNotFound, err)
	case errors.Is(err, store.ErrDuplicate):
		return common.NewAppError("CONFLICT", "document number already exists", http.StatusConflict, err)
	default:
		return err
	}
}
