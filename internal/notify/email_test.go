package notify_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/events"
	"github.com/noah-isme/backend-agency/internal/notify"
	"github.com/noah-isme/backend-agency/internal/store"
)

func event(t *testing.T, topic string, payload map[string]any) store.DomainEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return store.DomainEvent{ID: "ev-1", Topic: topic, AggregateID: "doc-1", Payload: raw}
}

func TestNotifySendsEmail(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	n := notify.EmailNotifier{Mail: outbox, Enabled: true}

	err := n.Notify(context.Background(), event(t, events.TopicInvoiceSent, map[string]any{
		"email":  "ada@brightsidebakery.test",
		"number": "INV-202604-007",
		"total":  1627.5,
	}))
	require.NoError(t, err)
	require.Len(t, outbox.Outbox, 1)
	require.Equal(t, "ada@brightsidebakery.test", outbox.Outbox[0].To)
	require.Equal(t, "New invoice", outbox.Outbox[0].Subject)
	require.Contains(t, outbox.Outbox[0].HTML, "INV-202604-007")
	require.Contains(t, outbox.Outbox[0].HTML, "1627.50")
}

func TestNotifyDisabled(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	n := notify.EmailNotifier{Mail: outbox, Enabled: false}

	err := n.Notify(context.Background(), event(t, events.TopicQuoteSent, map[string]any{"email": "x@y.test"}))
	require.NoError(t, err)
	require.Empty(t, outbox.Outbox)
}

func TestNotifyTopicToggleSuppresses(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	n := notify.EmailNotifier{
		Mail:         outbox,
		Enabled:      true,
		TopicToggles: map[string]bool{events.TopicQuoteExpired: false},
	}

	err := n.Notify(context.Background(), event(t, events.TopicQuoteExpired, map[string]any{"email": "x@y.test"}))
	require.NoError(t, err)
	require.Empty(t, outbox.Outbox)
}

func TestNotifyNoRecipientIsNoop(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	n := notify.EmailNotifier{Mail: outbox, Enabled: true}

	err := n.Notify(context.Background(), event(t, events.TopicQuoteSent, map[string]any{"number": "Q-000123"}))
	require.NoError(t, err)
	require.Empty(t, outbox.Outbox)
}
