package invoice

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/document"
	"github.com/noah-isme/backend-agency/internal/store"
)

var validate = validator.New()

// Handler exposes REST endpoints for invoices.
type Handler struct {
	Svc *Service
}

type createRequest struct {
	ClientID string      `json:"client_id" validate:"required"`
	Items    []ItemInput `json:"items"`
	TaxRate  float64     `json:"tax_rate"`
	DueDate  *time.Time  `json:"due_date"`
}

type updateRequest struct {
	Items   *[]ItemInput `json:"items"`
	TaxRate *float64     `json:"tax_rate"`
	DueDate *time.Time   `json:"due_date"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Create handles POST /api/v1/invoices.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	inv, err := h.Svc.Create(r.Context(), CreateInput{
		ClientID: req.ClientID,
		Items:    req.Items,
		TaxRate:  req.TaxRate,
		DueDate:  req.DueDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": inv})
}

// List handles GET /api/v1/invoices.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	page, limit := common.ParsePagination(r, 20)
	invoices, total, err := h.Svc.List(r.Context(), store.ListFilter{
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
		"data":       invoices,
		"pagination": common.Pagination{Page: page, PerPage: limit, TotalItems: total},
	})
}

// Get handles GET /api/v1/invoices/{invoiceID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Svc.Get(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

// Update handles PUT /api/v1/invoices/{invoiceID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	inv, err := h.Svc.Update(r.Context(), chi.URLParam(r, "invoiceID"), UpdateInput{
		Items:   req.Items,
		TaxRate: req.TaxRate,
		DueDate: req.DueDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

// Delete handles DELETE /api/v1/invoices/{invoiceID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "invoiceID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Send handles POST /api/v1/invoices/{invoiceID}/send.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Svc.Send(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

// PatchStatus handles PATCH /api/v1/invoices/{invoiceID}/status.
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
	inv, err := h.Svc.SetStatus(r.Context(), chi.URLParam(r, "invoiceID"), document.Status(strings.TrimSpace(req.Status)))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
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
