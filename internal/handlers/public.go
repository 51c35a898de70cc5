package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkadri-dev/autocare-backend/internal/catalog"
)

// PublicHandler exposes the unauthenticated read-only directory endpoints.
type PublicHandler struct {
	catalog *catalog.Service
}

// NewPublicHandler creates a new public handler.
func NewPublicHandler(catalogService *catalog.Service) *PublicHandler {
	return &PublicHandler{catalog: catalogService}
}

// Suppliers lists the supplier directory with their stocked parts.
func (h *PublicHandler) Suppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.catalog.ListSuppliers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suppliers)
}

// Supplier returns one supplier with its stocked parts.
func (h *PublicHandler) Supplier(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.catalog.GetSupplier(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, supplier)
}

// Technicians lists the technician directory.
func (h *PublicHandler) Technicians(w http.ResponseWriter, r *http.Request) {
	technicians, err := h.catalog.ListTechnicians(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, technicians)
}

// Technician returns one technician.
func (h *PublicHandler) Technician(w http.ResponseWriter, r *http.Request) {
	technician, err := h.catalog.GetTechnician(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, technician)
}
