package quote_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-agency/internal/catalog"
	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/document"
	"github.com/noah-isme/backend-agency/internal/events"
	"github.com/noah-isme/backend-agency/internal/notify"
	"github.com/noah-isme/backend-agency/internal/pricing"
	"github.com/noah-isme/backend-agency/internal/quote"
	"github.com/noah-isme/backend-agency/internal/store"
)

type fakeStore struct {
	quotes   map[string]store.Quote
	invoices map[string]store.Invoice
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		quotes:   map[string]store.Quote{},
		invoices: map[string]store.Invoice{},
	}
}

func (f *fakeStore) CreateQuote(_ context.Context, q store.Quote) (store.Quote, error) {
	f.seq++
	q.ID = time.Now().Format("20060102") + "-q-" + string(rune('a'+f.seq))
	f.quotes[q.ID] = q
	return q, nil
}

func (f *fakeStore) GetQuote(_ context.Context, id string) (store.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return store.Quote{}, store.ErrNotFound
	}
	return q, nil
}

func (f *fakeStore) ListQuotes(_ context.Context, _ store.ListFilter) ([]store.Quote, int, error) {
	out := make([]store.Quote, 0, len(f.quotes))
	for _, q := range f.quotes {
		out = append(out, q)
	}
	return out, len(out), nil
}

func (f *fakeStore) UpdateQuote(_ context.Context, q store.Quote) (store.Quote, error) {
	if _, ok := f.quotes[q.ID]; !ok {
		return store.Quote{}, store.ErrNotFound
	}
	f.quotes[q.ID] = q
	return q, nil
}

func (f *fakeStore) DeleteQuote(_ context.Context, id string) error {
	if _, ok := f.quotes[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.quotes, id)
	return nil
}

func (f *fakeStore) ListQuotesDueForExpiry(_ context.Context, cutoff time.Time) ([]store.Quote, error) {
	out := []store.Quote{}
	for _, q := range f.quotes {
		if q.Status == "sent" && q.ValidUntil.Before(cutoff) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateInvoice(_ context.Context, inv store.Invoice) (store.Invoice, error) {
	f.seq++
	inv.ID = "inv-" + string(rune('a'+f.seq))
	f.invoices[inv.ID] = inv
	return inv, nil
}

type fakeEventStore struct {
	topics []string
}

func (f *fakeEventStore) InsertDomainEvent(_ context.Context, topic, aggregateID string, payload []byte) (store.DomainEvent, error) {
	f.topics = append(f.topics, topic)
	return store.DomainEvent{Topic: topic, AggregateID: aggregateID, Payload: payload}, nil
}

func newService(fs *fakeStore, evts *fakeEventStore) *quote.Service {
	svc := &quote.Service{
		Store:        fs,
		Invoices:     fs,
		Pricer:       pricing.Pricer{Lookup: catalog.Default()},
		Machine:      document.QuoteMachine(),
		Now:          func() time.Time { return time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC) },
		NumberSuffix: func() int { return 42 },
	}
	if evts != nil {
		svc.Events = &events.Bus{Store: evts}
	}
	return svc
}

func TestCreateComputesTotalsAndSplit(t *testing.T) {
	svc := newService(newFakeStore(), nil)
	custom := 250.0
	q, err := svc.Create(context.Background(), quote.CreateInput{
		ClientID: "client-1",
		TaxRate:  8.5,
		Items: []quote.ItemInput{
			{ProductID: "website-template", Quantity: 1},
			{ProductID: "website-maintenance", Quantity: 1},
			{Description: "Photography", Quantity: 1, CustomUnitPrice: &custom},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "draft", q.Status)
	require.InDelta(t, 1849.0, q.Subtotal, 1e-9)
	require.InDelta(t, 1849.0*8.5/100, q.Tax, 1e-9)
	require.InDelta(t, 1849.0*1.085, q.Total, 1e-9)
	require.Equal(t, 1500.0, q.OneTimeAmount)
	require.Equal(t, 99.0, q.MonthlyAmount)
	require.Equal(t, time.Date(2026, time.March, 31, 9, 0, 0, 0, time.UTC), q.ValidUntil)
}

func TestUpdateRecomputesTotals(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, nil)
	q, err := svc.Create(context.Background(), quote.CreateInput{
		ClientID: "client-1",
		Items:    []quote.ItemInput{{ProductID: "website-template", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, 1500.0, q.Total)

	items := []quote.ItemInput{{ProductID: "website-template", Quantity: 1, DiscountPercent: 50}}
	updated, err := svc.Update(context.Background(), q.ID, quote.UpdateInput{Items: &items})
	require.NoError(t, err)
	require.Equal(t, 750.0, updated.Subtotal)
	require.Equal(t, 750.0, updated.Total)
}

func TestUpdateRejectedAfterDraft(t *testing.T) {
	fs := newFakeStore()
	evts := &fakeEventStore{}
	svc := newService(fs, evts)
	q, err := svc.Create(context.Background(), quote.CreateInput{
		ClientID: "client-1",
		Items:    []quote.ItemInput{{ProductID: "website-template", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), q.ID)
	require.NoError(t, err)

	rate := 10.0
	_, err = svc.Update(context.Background(), q.ID, quote.UpdateInput{TaxRate: &rate})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFLICT", appErr.Code)
}

func TestSendEmitsEvent(t *testing.T) {
	fs := newFakeStore()
	evts := &fakeEventStore{}
	svc := newService(fs, evts)
	q, err := svc.Create(context.Background(), quote.CreateInput{
		ClientID: "client-1",
		Items:    []quote.ItemInput{{ProductID: "seo-audit", Quantity: 1}},
	})
	require.NoError(t, err)

	sent, err := svc.Send(context.Background(), q.ID)
	require.NoError(t, err)
	require.Equal(t, "sent", sent.Status)
	require.Equal(t, []string{events.TopicQuoteSent}, evts.topics)
}

func TestSetStatusUnknownRejected(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, nil)
	q, err := svc.Create(context.Background(), quote.CreateInput{
		ClientID: "client-1",
		Items:    []quote.ItemInput{{ProductID: "seo-audit", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), q.ID, document.Status("archived"))
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INVALID_STATUS", appErr.Code)
}

func TestConvertPreservesQuoteAndBuildsInvoice(t *testing.T) {
	fs := newFakeStore()
	evts := &fakeEventStore{}
	svc := newService(fs, evts)
	custom := 250.0
	q, err := svc.Create(context.Background(), quote.CreateInput{
		ClientID: "client-1",
		TaxRate:  8.5,
		Items: []quote.ItemInput{
			{ProductID: "website-template", Quantity: 1},
			{Description: "Photography", Quantity: 1, CustomUnitPrice: &custom},
		},
	})
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), q.ID)
	require.NoError(t, err)
	_, err = svc.SetStatus(context.Background(), q.ID, document.StatusAccepted)
	require.NoError(t, err)

	inv, err := svc.Convert(context.Background(), q.ID)
	require.NoError(t, err)
	require.Equal(t, "draft", inv.Status)
	require.Equal(t, "INV-202603-042", inv.Number)
	require.Equal(t, q.ClientID, inv.ClientID)
	require.Equal(t, q.ID, inv.QuoteID)
	require.Len(t, inv.Items, 2)
	require.InDelta(t, q.Subtotal, inv.Subtotal, 1e-9)
	require.InDelta(t, q.Total, inv.Total, 1e-9)
	require.Equal(t, time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC), inv.DueDate)

	converted, err := svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	require.Equal(t, "converted", converted.Status)
	require.Equal(t, inv.ID, converted.ConvertedInvoiceID)
	require.Len(t, converted.Items, 2)
	require.Contains(t, evts.topics, events.TopicQuoteConverted)
}

func TestExpireStale(t *testing.T) {
	fs := newFakeStore()
	evts := &fakeEventStore{}
	svc := newService(fs, evts)

	fresh, err := svc.Create(context.Background(), quote.CreateInput{
		ClientID: "client-1",
		Items:    []quote.ItemInput{{ProductID: "seo-audit", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), fresh.ID)
	require.NoError(t, err)

	past := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	stale, err := svc.Create(context.Background(), quote.CreateInput{
		ClientID:   "client-1",
		Items:      []quote.ItemInput{{ProductID: "seo-audit", Quantity: 1}},
		ValidUntil: &past,
	})
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), stale.ID)
	require.NoError(t, err)

	n, err := svc.ExpireStale(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	expired, err := svc.Get(context.Background(), stale.ID)
	require.NoError(t, err)
	require.Equal(t, "expired", expired.Status)

	kept, err := svc.Get(context.Background(), fresh.ID)
	require.NoError(t, err)
	require.Equal(t, "sent", kept.Status)
	require.Contains(t, evts.topics, events.TopicQuoteExpired)
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
		"client-1": {ID: "client-1", Email: "ada@brightsidebakery.test"},
	}}

	q, err := svc.Create(context.Background(), quote.CreateInput{
		ClientID: "client-1",
		TaxRate:  8.5,
		Items:    []quote.ItemInput{{ProductID: "website-template", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), q.ID)
	require.NoError(t, err)

	require.Len(t, outbox.Outbox, 1)
	require.Equal(t, "ada@brightsidebakery.test", outbox.Outbox[0].To)
	require.Equal(t, "Your quote is ready", outbox.Outbox[0].Subject)
	require.Contains(t, outbox.Outbox[0].HTML, q.Number)
}

func TestSendWithoutClientDirectoryStillSucceeds(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, &fakeEventStore{})
	outbox := &common.InMemoryEmail{}
	svc.Events.Notifiers = []events.Notifier{notify.EmailNotifier{
		Mail:    outbox,
		Enabled: true,
	}}

	q, err := svc.Create(context.Background(), quote.CreateInput{
		ClientID: "client-1",
		Items:    []quote.ItemInput{{ProductID: "seo-audit", Quantity: 1}},
	})
	require.NoError(t, err)

	sent, err := svc.Send(context.Background(), q.ID)
	require.NoError(t, err)
	require.Equal(t, "sent", sent.Status)
	require.Empty(t, outbox.Outbox)
}

func TestCreateRequiresClient(t *testing.T) {
	svc := newService(newFakeStore(), nil)
	_, err := svc.Create(context.Background(), quote.CreateInput{})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}
