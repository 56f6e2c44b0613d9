package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-agency/internal/events"
	"github.com/noah-isme/backend-agency/internal/store"
)

type memStore struct {
	inserted []store.DomainEvent
	err      error
}

func (m *memStore) InsertDomainEvent(_ context.Context, topic, aggregateID string, payload []byte) (store.DomainEvent, error) {
	if m.err != nil {
		return store.DomainEvent{}, m.err
	}
	ev := store.DomainEvent{ID: "ev-1", Topic: topic, AggregateID: aggregateID, Payload: payload}
	m.inserted = append(m.inserted, ev)
	return ev, nil
}

type recordingNotifier struct {
	events []store.DomainEvent
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, event store.DomainEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	ms := &memStore{}
	notifier := &recordingNotifier{}
	bus := &events.Bus{Store: ms, Notifiers: []events.Notifier{notifier}}

	ev, err := bus.Emit(context.Background(), events.TopicQuoteSent, "quote-1", map[string]any{"total": 1500.0})
	require.NoError(t, err)
	require.Equal(t, events.TopicQuoteSent, ev.Topic)
	require.Len(t, ms.inserted, 1)
	require.Len(t, notifier.events, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	require.Equal(t, 1500.0, payload["total"])
}

func TestEmitValidatesInput(t *testing.T) {
	bus := &events.Bus{Store: &memStore{}}

	_, err := bus.Emit(context.Background(), "  ", "quote-1", nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), events.TopicQuoteSent, "", nil)
	require.Error(t, err)

	var nilBus *events.Bus
	_, err = nilBus.Emit(context.Background(), events.TopicQuoteSent, "quote-1", nil)
	require.Error(t, err)
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	bus := &events.Bus{Store: &memStore{}}
	_, err := bus.Emit(context.Background(), events.TopicQuoteSent, "quote-1", []byte("{not json"))
	require.Error(t, err)
}

func TestEmitNilPayloadDefaultsToEmptyObject(t *testing.T) {
	ms := &memStore{}
	bus := &events.Bus{Store: ms}
	ev, err := bus.Emit(context.Background(), events.TopicInvoicePaid, "inv-1", nil)
	require.NoError(t, err)
	require.JSONEq(t, "{}", string(ev.Payload))
}

func TestEmitNotifierFailureDoesNotLoseEvent(t *testing.T) {
	ms := &memStore{}
	failing := &recordingNotifier{err: errors.New("smtp down")}
	ok := &recordingNotifier{}
	bus := &events.Bus{Store: ms, Notifiers: []events.Notifier{failing, ok}}

	ev, err := bus.Emit(context.Background(), events.TopicInvoiceOverdue, "inv-2", nil)
	require.Error(t, err)
	require.Equal(t, "inv-2", ev.AggregateID)
	require.Len(t, ms.inserted, 1)
	require.Len(t, ok.events, 1)
}
