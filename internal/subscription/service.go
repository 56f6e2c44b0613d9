package subscription

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/store"
)

// Known subscription kinds and statuses.
var (
	kinds    = map[string]bool{"website": true, "chatbot": true, "analytics": true}
	statuses = map[string]bool{"active": true, "paused": true, "cancelled": true}
)

// Store defines the persistence operations used by the subscription service.
type Store interface {
	CreateSubscription(ctx context.Context, sub store.Subscription) (store.Subscription, error)
	GetSubscription(ctx context.Context, id string) (store.Subscription, error)
	ListSubscriptions(ctx context.Context, f store.ListFilter) ([]store.Subscription, int, error)
	UpdateSubscription(ctx context.Context, sub store.Subscription) (store.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
}

// Input captures the payload for creating or updating a subscription.
type Input struct {
	ClientID     string
	Kind         string
	Plan         string
	MonthlyPrice float64
	Status       string
}

// Service orchestrates subscription CRUD.
type Service struct {
	Store Store
}

// Create inserts a new managed service subscription.
func (s *Service) Create(ctx context.Context, input Input) (store.Subscription, error) {
	if strings.TrimSpace(input.ClientID) == "" {
		return store.Subscription{}, common.NewAppError("VALIDATION_ERROR", "client_id is required", http.StatusBadRequest, nil)
	}
	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	if !kinds[kind] {
		return store.Subscription{}, common.NewAppError("VALIDATION_ERROR", "kind must be website, chatbot or analytics", http.StatusBadRequest, nil)
	}
	sub, err := s.Store.CreateSubscription(ctx, store.Subscription{
		ClientID:     input.ClientID,
		Kind:         kind,
		Plan:         strings.TrimSpace(input.Plan),
		MonthlyPrice: input.MonthlyPrice,
		Status:       "active",
	})
	if err != nil {
		return store.Subscription{}, mapStoreErr(err)
	}
	return sub, nil
}

// Get fetches a subscription by id.
func (s *Service) Get(ctx context.Context, id string) (store.Subscription, error) {
	sub, err := s.Store.GetSubscription(ctx, id)
	if err != nil {
		return store.Subscription{}, mapStoreErr(err)
	}
	return sub, nil
}

// List returns subscriptions matching the filter.
func (s *Service) List(ctx context.Context, f store.ListFilter) ([]store.Subscription, int, error) {
	return s.Store.ListSubscriptions(ctx, f)
}

// Update edits a subscription.
func (s *Service) Update(ctx context.Context, id string, input Input) (store.Subscription, error) {
	sub, err := s.Store.GetSubscription(ctx, id)
	if err != nil {
		return store.Subscription{}, mapStoreErr(err)
	}
	if kind := strings.ToLower(strings.TrimSpace(input.Kind)); kind != "" {
		if !kinds[kind] {
			return store.Subscription{}, common.NewAppError("VALIDATION_ERROR", "kind must be website, chatbot or analytics", http.StatusBadRequest, nil)
		}
		sub.Kind = kind
	}
	if plan := strings.TrimSpace(input.Plan); plan != "" {
		sub.Plan = plan
	}
	if input.MonthlyPrice != 0 {
		sub.MonthlyPrice = input.MonthlyPrice
	}
	updated, err := s.Store.UpdateSubscription(ctx, sub)
	if err != nil {
		return store.Subscription{}, mapStoreErr(err)
	}
	return updated, nil
}

// SetStatus applies a status change (active, paused, cancelled).
func (s *Service) SetStatus(ctx context.Context, id, status string) (store.Subscription, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !statuses[status] {
		return store.Subscription{}, common.NewAppError("VALIDATION_ERROR", "status must be active, paused or cancelled", http.StatusBadRequest, nil)
	}
	sub, err := s.Store.GetSubscription(ctx, id)
	if err != nil {
		return store.Subscription{}, mapStoreErr(err)
	}
	sub.Status = status
	updated, err := s.Store.UpdateSubscription(ctx, sub)
	if err != nil {
		return store.Subscription{}, mapStoreErr(err)
	}
	return updated, nil
}

// Delete removes a subscription.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Store.DeleteSubscription(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return common.NewAppError("NOT_FOUND", "subscription not found", http.StatusNotFound, err)
	}
	return err
}
