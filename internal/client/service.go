package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/store"
)

// Store defines the persistence operations used by the client service.
type Store interface {
	CreateClient(ctx context.Context, c store.Client) (store.Client, error)
	GetClient(ctx context.Context, id string) (store.Client, error)
	ListClients(ctx context.Context, f store.ListFilter) ([]store.Client, int, error)
	UpdateClient(ctx context.Context, c store.Client) (store.Client, error)
	DeleteClient(ctx context.Context, id string) error
}

// Input captures the payload for creating or updating a client.
type Input struct {
	Name    string
	Company string
	Email   string
	Phone   string
	Status  string
}

// Service orchestrates client CRUD.
type Service struct {
	Store Store
}

// Create inserts a new client.
func (s *Service) Create(ctx context.Context, input Input) (store.Client, error) {
	if strings.TrimSpace(input.Name) == "" {
		return store.Client{}, common.NewAppError("VALIDATION_ERROR", "name is required", http.StatusBadRequest, nil)
	}
	if strings.TrimSpace(input.Email) == "" {
		return store.Client{}, common.NewAppError("VALIDATION_ERROR", "email is required", http.StatusBadRequest, nil)
	}
	c, err := s.Store.CreateClient(ctx, store.Client{
		Name:    strings.TrimSpace(input.Name),
		Company: strings.TrimSpace(input.Company),
		Email:   strings.TrimSpace(input.Email),
		Phone:   strings.TrimSpace(input.Phone),
		Status:  normalizeStatus(input.Status),
	})
	if err != nil {
		return store.Client{}, mapStoreErr(err)
	}
	return c, nil
}

// Get fetches a client by id.
func (s *Service) Get(ctx context.Context, id string) (store.Client, error) {
	c, err := s.Store.GetClient(ctx, id)
	if err != nil {
		return store.Client{}, mapStoreErr(err)
	}
	return c, nil
}

// List returns clients matching the filter.
func (s *Service) List(ctx context.Context, f store.ListFilter) ([]store.Client, int, error) {
	return s.Store.ListClients(ctx, f)
}

// Update edits a client.
func (s *Service) Update(ctx context.Context, id string, input Input) (store.Client, error) {
	c, err := s.Store.GetClient(ctx, id)
	if err != nil {
		return store.Client{}, mapStoreErr(err)
	}
	if strings.TrimSpace(input.Name) != "" {
		c.Name = strings.TrimSpace(input.Name)
	}
	if strings.TrimSpace(input.Email) != "" {
		c.Email = strings.TrimSpace(input.Email)
	}
	c.Company = strings.TrimSpace(input.Company)
	c.Phone = strings.TrimSpace(input.Phone)
	if strings.TrimSpace(input.Status) != "" {
		c.Status = normalizeStatus(input.Status)
	}
	updated, err := s.Store.UpdateClient(ctx, c)
	if err != nil {
		return store.Client{}, mapStoreErr(err)
	}
	return updated, nil
}

// Delete removes a client.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Store.DeleteClient(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

func normalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "inactive":
		return "inactive"
	default:
		return "active"
	}
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return common.NewAppError("NOT_FOUND", "client not found", http.StatusNotFound, err)
	}
	return err
}
