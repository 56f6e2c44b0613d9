package common

// EmailSender abstracts outbound mail so document lifecycle notifications
// can be swapped between a real provider, a no-op, and an in-memory capture.
type EmailSender interface {
	Send(to, subject, html string) error
}

// InMemoryEmail records sent messages. Tests assert against Outbox to verify
// that quote and invoice events reach the client.
type InMemoryEmail struct {
	Outbox []Email
}

// Email represents a single email message captured by InMemoryEmail.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(to, subject, html string) error {
	if m == nil {
		return nil
	}
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, HTML: html})
	return nil
}

// NopEmailSender implements EmailSender without performing any action.
type NopEmailSender struct{}

// Send implements EmailSender.
func (NopEmailSender) Send(string, string, string) error { return nil }
