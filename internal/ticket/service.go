package ticket

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/store"
)

var (
	priorities = map[string]bool{"low": true, "normal": true, "high": true, "urgent": true}
	statuses   = map[string]bool{"open": true, "in_progress": true, "resolved": true, "closed": true}
)

// Store defines the persistence operations used by the ticket service.
type Store interface {
	CreateTicket(ctx context.Context, t store.Ticket) (store.Ticket, error)
	GetTicket(ctx context.Context, id string) (store.Ticket, error)
	ListTickets(ctx context.Context, f store.ListFilter) ([]store.Ticket, int, error)
	UpdateTicket(ctx context.Context, t store.Ticket) (store.Ticket, error)
	DeleteTicket(ctx context.Context, id string) error
}

// Input captures the payload for creating or updating a support ticket.
type Input struct {
	ClientID string
	Subject  string
	Body     string
	Priority string
}

// Service orchestrates support ticket CRUD.
type Service struct {
	Store Store
}

// Create opens a new ticket. New tickets always start open.
func (s *Service) Create(ctx context.Context, input Input) (store.Ticket, error) {
	if strings.TrimSpace(input.ClientID) == "" {
		return store.Ticket{}, common.NewAppError("VALIDATION_ERROR", "client_id is required", http.StatusBadRequest, nil)
	}
	if strings.TrimSpace(input.Subject) == "" {
		return store.Ticket{}, common.NewAppError("VALIDATION_ERROR", "subject is required", http.StatusBadRequest, nil)
	}
	priority := strings.ToLower(strings.TrimSpace(input.Priority))
	if priority == "" {
		priority = "normal"
	}
	if !priorities[priority] {
		return store.Ticket{}, common.NewAppError("VALIDATION_ERROR", "priority must be low, normal, high or urgent", http.StatusBadRequest, nil)
	}
	t, err := s.Store.CreateTicket(ctx, store.Ticket{
		ClientID: input.ClientID,
		Subject:  strings.TrimSpace(input.Subject),
		Body:     input.Body,
		Priority: priority,
		Status:   "open",
	})
	if err != nil {
		return store.Ticket{}, mapStoreErr(err)
	}
	return t, nil
}

// Get fetches a ticket by id.
func (s *Service) Get(ctx context.Context, id string) (store.Ticket, error) {
	t, err := s.Store.GetTicket(ctx, id)
	if err != nil {
		return store.Ticket{}, mapStoreErr(err)
	}
	return t, nil
}

// List returns tickets matching the filter.
func (s *Service) List(ctx context.Context, f store.ListFilter) ([]store.Ticket, int, error) {
	return s.Store.ListTickets(ctx, f)
}

// Update edits ticket fields.
func (s *Service) Update(ctx context.Context, id string, input Input) (store.Ticket, error) {
	t, err := s.Store.GetTicket(ctx, id)
	if err != nil {
		return store.Ticket{}, mapStoreErr(err)
	}
	if subject := strings.TrimSpace(input.Subject); subject != "" {
		t.Subject = subject
	}
	if input.Body != "" {
		t.Body = input.Body
	}
	if priority := strings.ToLower(strings.TrimSpace(input.Priority)); priority != "" {
		if !priorities[priority] {
			return store.Ticket{}, common.NewAppError("VALIDATION_ERROR", "priority must be low, normal, high or urgent", http.StatusBadRequest, nil)
		}
		t.Priority = priority
	}
	updated, err := s.Store.UpdateTicket(ctx, t)
	if err != nil {
		return store.Ticket{}, mapStoreErr(err)
	}
	return updated, nil
}

// SetStatus moves a ticket through its workflow (open, in_progress, resolved, closed).
func (s *Service) SetStatus(ctx context.Context, id, status string) (store.Ticket, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !statuses[status] {
		return store.Ticket{}, common.NewAppError("VALIDATION_ERROR", "status must be open, in_progress, resolved or closed", http.StatusBadRequest, nil)
	}
	t, err := s.Store.GetTicket(ctx, id)
	if err != nil {
		return store.Ticket{}, mapStoreErr(err)
	}
	t.Status = status
	updated, err := s.Store.UpdateTicket(ctx, t)
	if err != nil {
		return store.Ticket{}, mapStoreErr(err)
	}
	return updated, nil
}

// Delete removes a ticket.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Store.DeleteTicket(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return common.NewAppError("NOT_FOUND", "ticket not found", http.StatusNotFound, err)
	}
	return err
}
