package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkadri-dev/autocare-backend/internal/apperr"
	"github.com/mkadri-dev/autocare-backend/internal/catalog"
	"github.com/mkadri-dev/autocare-backend/internal/garage"
)

// AdminHandler exposes the admin console endpoints. Routing guarantees the
// requester is an authenticated admin before any of these run.
type AdminHandler struct {
	catalog *catalog.Service
	garage  *garage.Service
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(catalogService *catalog.Service, garageService *garage.Service) *AdminHandler {
	return &AdminHandler{
		catalog: catalogService,
		garage:  garageService,
	}
}

//
// Users
//

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.catalog.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req catalog.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.catalog.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req catalog.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.catalog.UpdateUser(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "user deleted"})
}

//
// Spare parts
//

func (h *AdminHandler) ListParts(w http.ResponseWriter, r *http.Request) {
	parts, err := h.catalog.ListParts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parts)
}

func (h *AdminHandler) GetPart(w http.ResponseWriter, r *http.Request) {
	part, err := h.catalog.GetPart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, part)
}

func (h *AdminHandler) CreatePart(w http.ResponseWriter, r *http.Request) {
	var req catalog.PartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	part, err := h.catalog.CreatePart(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, part)
}

func (h *AdminHandler) UpdatePart(w http.ResponseWriter, r *http.Request) {
	var req catalog.UpdatePartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	part, err := h.catalog.UpdatePart(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, part)
}

func (h *AdminHandler) DeletePart(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeletePart(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "spare part deleted"})
}

//
// Suppliers
//

func (h *AdminHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.catalog.ListSuppliers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suppliers)
}

func (h *AdminHandler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.catalog.GetSupplier(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, supplier)
}

func (h *AdminHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req catalog.SupplierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	supplier, err := h.catalog.CreateSupplier(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, supplier)
}

func (h *AdminHandler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var req catalog.UpdateSupplierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	supplier, err := h.catalog.UpdateSupplier(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, supplier)
}

func (h *AdminHandler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteSupplier(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "supplier deleted"})
}

//
// Technicians
//

func (h *AdminHandler) ListTechnicians(w http.ResponseWriter, r *http.Request) {
	technicians, err := h.catalog.ListTechnicians(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, technicians)
}

func (h *AdminHandler) GetTechnician(w http.ResponseWriter, r *http.Request) {
	technician, err := h.catalog.GetTechnician(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, technician)
}

func (h *AdminHandler) CreateTechnician(w http.ResponseWriter, r *http.Request) {
	var req catalog.TechnicianRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	technician, err := h.catalog.CreateTechnician(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, technician)
}

func (h *AdminHandler) UpdateTechnician(w http.ResponseWriter, r *http.Request) {
	var req catalog.UpdateTechnicianRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	technician, err := h.catalog.UpdateTechnician(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, technician)
}

func (h *AdminHandler) DeleteTechnician(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteTechnician(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "technician deleted"})
}

//
// Cars (fleet-wide)
//

func (h *AdminHandler) ListCars(w http.ResponseWriter, r *http.Request) {
	cars, err := h.garage.AdminListCars(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (h *AdminHandler) GetCar(w http.ResponseWriter, r *http.Request) {
	detail, err := h.garage.AdminGetCar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *AdminHandler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	if err := h.garage.AdminDeleteCar(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "car deleted"})
}

// UploadImage stores a standalone image and returns its reference path for
// use in a later part or supplier write.
func (h *AdminHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, apperr.Validation("invalid multipart form"))
		return
	}
	image, err := formImage(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if image == nil {
		writeError(w, apperr.Validation("no image file uploaded"))
		return
	}
	ref, err := h.catalog.UploadImage(image.Data, image.Ext)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"image": ref})
}
