package invoice

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

// Store defines the persistence operations used by the invoice service.
type Store interface {
	CreateInvoice(ctx context.Context, inv store.Invoice) (store.Invoice, error)
	GetInvoice(ctx context.Context, id string) (store.Invoice, error)
	ListInvoices(ctx context.Context, f store.ListFilter) ([]store.Invoice, int, error)
	UpdateInvoice(ctx context.Context, inv store.Invoice) (store.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
	ListInvoicesPastDue(ctx context.Context, cutoff time.Time) ([]store.Invoice, error)
}

// ClientStore resolves the client behind an invoice so lifecycle events carry
// a notification recipient.
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

// CreateInput captures the payload for building an invoice.
type CreateInput struct {
	ClientID string
	Items    []ItemInput
	TaxRate  float64
	DueDate  *time.Time
}

// UpdateInput captures a partial invoice edit. Any change to items or tax
// rate triggers a full totals recomputation.
type UpdateInput struct {
	Items   *[]ItemInput
	TaxRate *float64
	DueDate *time.Time
}

// Service orchestrates invoice CRUD, pricing and lifecycle.
type Service struct {
	Store        Store
	Clients      ClientStore
	Pricer       pricing.Pricer
	Machine      *document.Machine
	Events       *events.Bus
	DueDays      int
	Now          func() time.Time
	NumberSuffix func() int
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
	return document.InvoiceMachine()
}

func (s *Service) suffix() int {
	if s.NumberSuffix != nil {
		return s.NumberSuffix()
	}
	return rand.Intn(1000)
}

// Create builds and persists a new draft invoice with recomputed totals.
func (s *Service) Create(ctx context.Context, input CreateInput) (store.Invoice, error) {
	if strings.TrimSpace(input.ClientID) == "" {
		return store.Invoice{}, common.NewAppError("VALIDATION_ERROR", "client_id is required", http.StatusBadRequest, nil)
	}
	now := s.now()
	dueDate := now.AddDate(0, 0, s.dueDays())
	if input.DueDate != nil {
		dueDate = *input.DueDate
	}
	inv := store.Invoice{
		Number:   document.InvoiceNumber(now, s.suffix()),
		ClientID: input.ClientID,
		Status:   string(document.StatusDraft),
		Items:    toLineItems(input.Items),
		TaxRate:  input.TaxRate,
		DueDate:  dueDate,
	}
	s.reprice(&inv)
	created, err := s.Store.CreateInvoice(ctx, inv)
	if err != nil {
		return store.Invoice{}, mapStoreErr(err)
	}
	return created, nil
}

// Get fetches an invoice by id.
func (s *Service) Get(ctx context.Context, id string) (store.Invoice, error) {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return store.Invoice{}, mapStoreErr(err)
	}
	return inv, nil
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, f store.ListFilter) ([]store.Invoice, int, error) {
	return s.Store.ListInvoices(ctx, f)
}

// Update edits a draft invoice and recomputes totals from the patched item
// set.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (store.Invoice, error) {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return store.Invoice{}, mapStoreErr(err)
	}
	if inv.Status != string(document.StatusDraft) {
		return store.Invoice{}, common.NewAppError("CONFLICT", "only draft invoices can be edited", http.StatusConflict, nil)
	}
	if input.Items != nil {
		inv.Items = toLineItems(*input.Items)
	}
	if input.TaxRate != nil {
		inv.TaxRate = *input.TaxRate
	}
	if input.DueDate != nil {
		inv.DueDate = *input.DueDate
	}
	s.reprice(&inv)
	updated, err := s.Store.UpdateInvoice(ctx, inv)
	if err != nil {
		return store.Invoice{}, mapStoreErr(err)
	}
	return updated, nil
}

// Delete removes an invoice.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Store.DeleteInvoice(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

// Send transitions an invoice from draft to sent.
func (s *Service) Send(ctx context.Context, id string) (store.Invoice, error) {
	return s.transition(ctx, id, document.StatusSent)
}

// SetStatus applies an externally triggered status change (paid, overdue,
// cancelled).
func (s *Service) SetStatus(ctx context.Context, id string, to document.Status) (store.Invoice, error) {
	return s.transition(ctx, id, to)
}

func (s *Service) transition(ctx context.Context, id string, to document.Status) (store.Invoice, error) {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return store.Invoice{}, mapStoreErr(err)
	}
	if err := s.machine().Transition(document.Status(inv.Status), to); err != nil {
		return store.Invoice{}, common.NewAppError("INVALID_STATUS", err.Error(), http.StatusUnprocessableEntity, err)
	}
	inv.Status = string(to)
	updated, err := s.Store.UpdateInvoice(ctx, inv)
	if err != nil {
		return store.Invoice{}, mapStoreErr(err)
	}
	obs.CountDocumentTransition("invoice", string(to))
	s.emit(ctx, topicFor(to), updated)
	return updated, nil
}

// MarkOverdue flags sent invoices past their due date and returns how many
// were transitioned.
func (s *Service) MarkOverdue(ctx context.Context) (int, error) {
	due, err := s.Store.ListInvoicesPastDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	marked := 0
	for _, inv := range due {
		inv.Status = string(document.StatusOverdue)
		if _, err := s.Store.UpdateInvoice(ctx, inv); err != nil {
			return marked, err
		}
		obs.CountDocumentTransition("invoice", string(document.StatusOverdue))
		s.emit(ctx, events.TopicInvoiceOverdue, inv)
		marked++
	}
	return marked, nil
}

// reprice recomputes subtotal, tax and total from the current items.
func (s *Service) reprice(inv *store.Invoice) {
	totals := s.Pricer.Totals(inv.Items, inv.TaxRate)
	inv.Subtotal = totals.Subtotal
	inv.Tax = totals.Tax
	inv.Total = totals.Total
}

func (s *Service) emit(ctx context.Context, topic string, inv store.Invoice) {
	if s.Events == nil || topic == "" {
		return
	}
	payload := map[string]any{
		"number":   inv.Number,
		"clientId": inv.ClientID,
		"status":   inv.Status,
		"total":    inv.Total,
	}
	if s.Clients != nil {
		if c, err := s.Clients.GetClient(ctx, inv.ClientID); err == nil && c.Email != "" {
			payload["clientEmail"] = c.Email
		}
	}
	_, _ = s.Events.Emit(ctx, topic, inv.ID, payload)
}

func (s *Service) dueDays() int {
	if s.DueDays > 0 {
		return s.DueDays
	}
	return 14
}

func topicFor(to document.Status) string {
	switch to {
	case document.StatusSent:
		return events.TopicInvoiceSent
	case document.StatusPaid:
		return events.TopicInvoicePaid
	case document.StatusOverdue:
		return events.TopicInvoiceOverdue
	case document.StatusCancelled:
		return events.TopicInvoiceCancelled
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

func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return common.NewAppError("NOT_FOUND", "invoice not found", http.StatusNotFound, err)
	case errors.Is(err, store.ErrDuplicate):
		return common.NewAppError("CONFLICT", "document number already exists", http.StatusConflict, err)
	default:
		return err
	}
}
