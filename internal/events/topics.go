package events

// Topic constants for document lifecycle events emitted by the platform.
const (
	TopicQuoteSent        = "quote.sent"
	TopicQuoteAccepted    = "quote.accepted"
	TopicQuoteRejected    = "quote.rejected"
	TopicQuoteExpired     = "quote.expired"
	TopicQuoteConverted   = "quote.converted"
	TopicInvoiceSent      = "invoice.sent"
	TopicInvoicePaid      = "invoice.paid"
	TopicInvoiceOverdue   = "invoice.overdue"
	TopicInvoiceCancelled = "invoice.cancelled"
)

// DefaultTopics returns the canonical list of topics that support
// notifications.
func DefaultTopics() []string {
	return []string{
		TopicQuoteSent,
		TopicQuoteAccepted,
		TopicQuoteRejected,
		TopicQuoteExpired,
		TopicQuoteConverted,
		TopicInvoiceSent,
		TopicInvoicePaid,
		TopicInvoiceOverdue,
		TopicInvoiceCancelled,
	}
}
