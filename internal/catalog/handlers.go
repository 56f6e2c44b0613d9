package catalog

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-agency/internal/common"
)

// Handler exposes read-only catalog endpoints.
type Handler struct {
	Catalog *Catalog
}

// Products handles GET /api/v1/catalog/products with an optional category
// filter.
func (h Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	var products []Product
	if category == "" {
		products = h.Catalog.Products()
	} else {
		switch Category(category) {
		case CategoryCore, CategoryMonthly, CategoryAddon:
			products = h.Catalog.ProductsByCategory(Category(category))
		default:
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown category", map[string]any{"category": category})
			return
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": products})
}

// ProductDetail handles GET /api/v1/catalog/products/{productID}.
func (h Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	id := chi.URLParam(r, "productID")
	product, ok := h.Catalog.ProductByID(id)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}
