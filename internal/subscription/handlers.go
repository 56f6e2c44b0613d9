package subscription

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/store"
)

var validate = validator.New()

// Handler exposes REST endpoints for managed service subscriptions.
type Handler struct {
	Svc *Service
}

type subscriptionRequest struct {
	ClientID     string  `json:"client_id" validate:"required"`
	Kind         string  `json:"kind" validate:"required"`
	Plan         string  `json:"plan"`
	MonthlyPrice float64 `json:"monthly_price"`
}

type patchRequest struct {
	Kind         string  `json:"kind"`
	Plan         string  `json:"plan"`
	MonthlyPrice float64 `json:"monthly_price"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Create handles POST /api/v1/subscriptions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "subscription service not configured", nil)
		return
	}
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	sub, err := h.Svc.Create(r.Context(), Input{
		ClientID:     req.ClientID,
		Kind:         req.Kind,
		Plan:         req.Plan,
		MonthlyPrice: req.MonthlyPrice,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": sub})
}

// List handles GET /api/v1/subscriptions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "subscription service not configured", nil)
		return
	}
	page, limit := common.ParsePagination(r, 20)
	subs, total, err := h.Svc.List(r.Context(), store.ListFilter{
		ClientID: strings.TrimSpace(r.URL.Query().Get("client_id")),
		Status:   strings.TrimSpace(r.URL.Query().Get("status")),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       subs,
		"pagination": common.Pagination{Page: page, PerPage: limit, TotalItems: total},
	})
}

// Get handles GET /api/v1/subscriptions/{subscriptionID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Svc.Get(r.Context(), chi.URLParam(r, "subscriptionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sub})
}

// Update handles PATCH /api/v1/subscriptions/{subscriptionID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	sub, err := h.Svc.Update(r.Context(), chi.URLParam(r, "subscriptionID"), Input{
		Kind:         req.Kind,
		Plan:         req.Plan,
		MonthlyPrice: req.MonthlyPrice,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sub})
}

// PatchStatus handles PATCH /api/v1/subscriptions/{subscriptionID}/status.
func (h *Handler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	sub, err := h.Svc.SetStatus(r.Context(), chi.URLParam(r, "subscriptionID"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sub})
}

// Delete handles DELETE /api/v1/subscriptions/{subscriptionID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "subscriptionID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
