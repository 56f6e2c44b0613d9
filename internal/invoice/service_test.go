package invoice_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-agency/internal/catalog"
	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/document"
	"github.com/noah-isme/backend-agency/internal/events"
	"github.com/noah-isme/backend-agency/internal/invoice"
	"github.com/noah-isme/backend-agency/internal/notify"
	"github.com/noah-isme/backend-agency/internal/pricing"
	"github.com/noah-isme/backend-agency/internal/store"
)

type fakeStore struct {
	invoices map[string]store.Invoice
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{invoices: map[string]store.Invoice{}}
}

func (f *fakeStore) CreateInvoice(_ context.Context, inv store.Invoice) (store.Invoice, error) {
	for _, existing := range f.invoices {
		if existing.Number == inv.Number {
			return store.Invoice{}, store.ErrDuplicate
		}
	}
	f.seq++
	inv.ID = fmt.Sprintf("inv-%d", f.seq)
	f.invoices[inv.ID] = inv
	return inv, nil
}

func (f *fakeStore) GetInvoice(_ context.Context, id string) (store.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return store.Invoice{}, store.ErrNotFound
	}
	return inv, nil
}

func (f *fakeStore) ListInvoices(_ context.Context, _ store.ListFilter) ([]store.Invoice, int, error) {
	out := make([]store.Invoice, 0, len(f.invoices))
	for _, inv := range f.invoices {
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (f *fakeStore) UpdateInvoice(_ context.Context, inv store.Invoice) (store.Invoice, error) {
	if _, ok := f.invoices[inv.ID]; !ok {
		return store.Invoice{}, store.ErrNotFound
	}
	f.invoices[inv.ID] = inv
	return inv, nil
}

func (f *fakeStore) DeleteInvoice(_ context.Context, id string) error {
	if _, ok := f.invoices[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.invoices, id)
	return nil
}

func (f *fakeStore) ListInvoicesPastDue(_ context.Context, cutoff time.Time) ([]store.Invoice, error) {
	out := []store.Invoice{}
	for _, inv := range f.invoices {
		if inv.Status == "sent" && inv.DueDate.Before(cutoff) {
			out = append(out, inv)
		}
	}
	return out, nil
}

type fakeEventStore struct {
	topics []string
}

func (f *fakeEventStore) InsertDomainEvent(_ context.Context, topic, aggregateID string, payload []byte) (store.DomainEvent, error) {
	f.topics = append(f.topics, topic)
	return store.DomainEvent{Topic: topic, AggregateID: aggregateID, Payload: payload}, nil
}

func newService(fs *fakeStore, evts *fakeEventStore) *invoice.Service {
	svc := &invoice.Service{
		Store:        fs,
		Pricer:       pricing.Pricer{Lookup: catalog.Default()},
		Machine:      document.InvoiceMachine(),
		Now:          func() time.Time { return time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC) },
		NumberSuffix: func() int { return 7 },
	}
	if evts != nil {
		svc.Events = &events.Bus{Store: evts}
	}
	return svc
}

func TestCreateNumbersAndPricesInvoice(t *testing.T) {
	svc := newService(newFakeStore(), nil)
	inv, err := svc.Create(context.Background(), invoice.CreateInput{
		ClientID: "client-1",
		TaxRate:  8.5,
		Items:    []invoice.ItemInput{{ProductID: "website-template", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, "INV-202604-007", inv.Number)
	require.Equal(t, "draft", inv.Status)
	require.Equal(t, 1500.0, inv.Subtotal)
	require.InDelta(t, 127.5, inv.Tax, 1e-9)
	require.InDelta(t, 1627.5, inv.Total, 1e-9)
	require.Equal(t, time.Date(2026, time.April, 15, 9, 0, 0, 0, time.UTC), inv.DueDate)
}

func TestCreateDuplicateNumberConflicts(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, nil)
	_, err := svc.Create(context.Background(), invoice.CreateInput{ClientID: "client-1"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), invoice.CreateInput{ClientID: "client-2"})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFLICT", appErr.Code)
}

func TestUpdateRecomputesTotals(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, nil)
	inv, err := svc.Create(context.Background(), invoice.CreateInput{
		ClientID: "client-1",
		Items:    []invoice.ItemInput{{ProductID: "chatbot-basic", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, 900.0, inv.Total)

	rate := 10.0
	updated, err := svc.Update(context.Background(), inv.ID, invoice.UpdateInput{TaxRate: &rate})
	require.NoError(t, err)
	require.InDelta(t, 90.0, updated.Tax, 1e-9)
	require.InDelta(t, 990.0, updated.Total, 1e-9)
}

func TestUpdateRejectedAfterSend(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, nil)
	inv, err := svc.Create(context.Background(), invoice.CreateInput{ClientID: "client-1"})
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), inv.ID)
	require.NoError(t, err)

	rate := 5.0
	_, err = svc.Update(context.Background(), inv.ID, invoice.UpdateInput{TaxRate: &rate})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFLICT", appErr.Code)
}

func TestSendAndPayEmitEvents(t *testing.T) {
	fs := newFakeStore()
	evts := &fakeEventStore{}
	svc := newService(fs, evts)
	inv, err := svc.Create(context.Background(), invoice.CreateInput{ClientID: "client-1"})
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), inv.ID)
	require.NoError(t, err)
	paid, err := svc.SetStatus(context.Background(), inv.ID, document.StatusPaid)
	require.NoError(t, err)
	require.Equal(t, "paid", paid.Status)
	require.Equal(t, []string{events.TopicInvoiceSent, events.TopicInvoicePaid}, evts.topics)
}

func TestMarkOverdue(t *testing.T) {
	fs := newFakeStore()
	evts := &fakeEventStore{}
	svc := newService(fs, evts)

	past := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	late, err := svc.Create(context.Background(), invoice.CreateInput{ClientID: "client-1", DueDate: &past})
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), late.ID)
	require.NoError(t, err)

	n, err := svc.MarkOverdue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := svc.Get(context.Background(), late.ID)
	require.NoError(t, err)
	require.Equal(t, "overdue", got.Status)
	require.Contains(t, evts.topics, events.TopicInvoiceOverdue)

	// Paying an overdue invoice is still a legal move.
	paid, err := svc.SetStatus(context.Background(), late.ID, document.StatusPaid)
	require.NoError(t, err)
	require.Equal(t, "paid", paid.Status)
}

type fakeClients struct {
	clients map[string]store.Client
}

func (f *fakeClients) GetClient(_ context.Context, id string) (store.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return store.Client{}, store.ErrNotFound
	}
	return c, nil
}

func TestSendEmailsClient(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, &fakeEventStore{})
	outbox := &common.InMemoryEmail{}
	svc.Events.Notifiers = []events.Notifier{notify.EmailNotifier{
		Mail:    outbox,
		Enabled: true,
		From:    "billing@agency.test",
	}}
	svc.Clients = &fakeClients{clients: map[string]store.Client{
		"client-1": {ID: "client-1", Email: "mikkel@fjordoutfitters.test"},
	}}

	inv, err := svc.Create(context.Background(), invoice.CreateInput{
		ClientID: "client-1",
		TaxRate:  8.5,
		Items:    []invoice.ItemInput{{ProductID: "website-template", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), inv.ID)
	require.NoError(t, err)

	require.Len(t, outbox.Outbox, 1)
	require.Equal(t, "mikkel@fjordoutfitters.test", outbox.Outbox[0].To)
	require.Equal(t, "New invoice", outbox.Outbox[0].Subject)
	require.Contains(t, outbox.Outbox[0].HTML, inv.Number)
}
