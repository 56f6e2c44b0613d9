package events

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/store"
)

// EventLister reads back persisted events for one aggregate.
type EventLister interface {
	ListDomainEvents(ctx context.Context, aggregateID string, limit int) ([]store.DomainEvent, error)
}

// Handler exposes the event audit trail.
type Handler struct {
	Store EventLister
}

// List handles GET /api/v1/events?aggregate_id=...
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "event store not configured", nil)
		return
	}
	aggregateID := strings.TrimSpace(r.URL.Query().Get("aggregate_id"))
	if aggregateID == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "aggregate_id is required", nil)
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 50)
	evts, err := h.Store.ListDomainEvents(r.Context(), aggregateID, limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "list events", nil)
		return
	}
	out := make([]map[string]any, 0, len(evts))
	for _, ev := range evts {
		entry := map[string]any{
			"id":           ev.ID,
			"topic":        ev.Topic,
			"aggregate_id": ev.AggregateID,
			"occurred_at":  ev.OccurredAt,
		}
		var payload any
		if len(ev.Payload) > 0 && json.Unmarshal(ev.Payload, &payload) == nil {
			entry["payload"] = payload
		}
		out = append(out, entry)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}
