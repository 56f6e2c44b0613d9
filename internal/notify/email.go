package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/events"
	"github.com/noah-isme/backend-agency/internal/store"
)

// EmailNotifier sends transactional emails for selected document topics.
type EmailNotifier struct {
	Mail         common.EmailSender
	Enabled      bool
	From         string
	TopicToggles map[string]bool
}

// Notify implements the events.Notifier interface.
func (n EmailNotifier) Notify(_ context.Context, event store.DomainEvent) error {
	if !n.Enabled || n.Mail == nil {
		return nil
	}
	if n.TopicToggles != nil {
		if enabled, ok := n.TopicToggles[event.Topic]; ok && !enabled {
			return nil
		}
	}
	payload := map[string]any{}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("email notify: decode payload: %w", err)
		}
	}
	to := extractRecipient(payload)
	if to == "" {
		return nil
	}
	subject := subjectFor(event.Topic)
	body := bodyFor(event.Topic, payload, event.OccurredAt)
	return n.Mail.Send(to, subject, body)
}

func extractRecipient(payload map[string]any) string {
	keys := []string{"email", "recipient", "clientEmail"}
	for _, key := range keys {
		if val, ok := payload[key]; ok {
			if s, ok := val.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func subjectFor(topic string) string {
	switch topic {
	case events.TopicQuoteSent:
		return "Your quote is ready"
	case events.TopicQuoteAccepted:
		return "Quote accepted"
	case events.TopicQuoteRejected:
		return "Quote declined"
	case events.TopicQuoteExpired:
		return "Quote expired"
	case events.TopicQuoteConverted:
		return "Quote converted to invoice"
	case events.TopicInvoiceSent:
		return "New invoice"
	case events.TopicInvoicePaid:
		return "Payment received"
	case events.TopicInvoiceOverdue:
		return "Invoice overdue"
	case events.TopicInvoiceCancelled:
		return "Invoice cancelled"
	default:
		return fmt.Sprintf("Notification %s", topic)
	}
}

func bodyFor(topic string, payload map[string]any, occurred time.Time) string {
	summary := fmt.Sprintf("Event %s occurred at %s.", topic, occurred.Format(time.RFC3339))
	if number, ok := payload["number"].(string); ok && number != "" {
		summary += fmt.Sprintf("\nDocument: %s", number)
	}
	if total, ok := payload["total"].(float64); ok {
		summary += fmt.Sprintf("\nTotal: %.2f", total)
	}
	if note, ok := payload["message"].(string); ok && note != "" {
		summary += "\n" + note
	}
	return summary
}
