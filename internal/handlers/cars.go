package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkadri-dev/autocare-backend/internal/apperr"
	"github.com/mkadri-dev/autocare-backend/internal/garage"
	"github.com/mkadri-dev/autocare-backend/internal/middleware"
	"github.com/mkadri-dev/autocare-backend/internal/models"
)

// maxUploadSize caps multipart bodies carrying an image.
const maxUploadSize = 10 << 20

// CarHandler exposes the owner-facing car endpoints. Create and update
// accept either JSON or multipart form data; the multipart variant carries
// the installation list as a JSON string in the spare_parts field, matching
// how browser clients submit the car form with an image.
type CarHandler struct {
	garage *garage.Service
}

// NewCarHandler creates a new car handler.
func NewCarHandler(garageService *garage.Service) *CarHandler {
	return &CarHandler{garage: garageService}
}

// List returns the requester's cars.
func (h *CarHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("identity not resolved"))
		return
	}
	cars, err := h.garage.ListCars(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

// Get returns the full detail projection for one of the requester's cars.
func (h *CarHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("identity not resolved"))
		return
	}
	detail, err := h.garage.GetCar(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Create registers a new car for the requester.
func (h *CarHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("identity not resolved"))
		return
	}

	req, image, err := decodeRegisterCar(r)
	if err != nil {
		writeError(w, err)
		return
	}

	car, err := h.garage.RegisterCar(r.Context(), identity, req, image)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, car)
}

// Update applies a partial update to one of the requester's cars.
func (h *CarHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("identity not resolved"))
		return
	}

	req, image, err := decodeUpdateCar(r)
	if err != nil {
		writeError(w, err)
		return
	}

	car, err := h.garage.UpdateCar(r.Context(), identity, chi.URLParam(r, "id"), req, image)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

// Delete removes one of the requester's cars.
func (h *CarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("identity not resolved"))
		return
	}
	if err := h.garage.DeleteCar(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "car deleted"})
}

// AvailableParts returns the spare-part catalog for the car form picker.
func (h *CarHandler) AvailableParts(w http.ResponseWriter, r *http.Request) {
	parts, err := h.garage.ListAvailableParts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parts)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func decodeRegisterCar(r *http.Request) (garage.RegisterCarRequest, *garage.ImageUpload, error) {
	var req garage.RegisterCarRequest

	if !isMultipart(r) {
		var body struct {
			Brand       string                `json:"brand"`
			Model       string                `json:"model"`
			Year        int                   `json:"year"`
			Kilometrage *float64              `json:"kilometrage"`
			FuelType    models.FuelType       `json:"fuel_type"`
			SpareParts  []models.Installation `json:"spare_parts"`
		}
		if err := decodeJSON(r, &body); err != nil {
			return req, nil, err
		}
		req = garage.RegisterCarRequest{
			Brand:         body.Brand,
			Model:         body.Model,
			Year:          body.Year,
			Kilometrage:   body.Kilometrage,
			FuelType:      body.FuelType,
			Installations: body.SpareParts,
		}
		return req, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return req, nil, apperr.Validation("invalid multipart form")
	}

	req.Brand = r.FormValue("brand")
	req.Model = r.FormValue("model")
	req.FuelType = models.FuelType(r.FormValue("fuel_type"))
	if raw := r.FormValue("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return req, nil, apperr.Validation("invalid year")
		}
		req.Year = year
	}
	if raw := r.FormValue("kilometrage"); raw != "" {
		km, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, nil, apperr.Validation("invalid kilometrage")
		}
		req.Kilometrage = &km
	}
	if raw := r.FormValue("spare_parts"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Installations); err != nil {
			return req, nil, apperr.Validation("invalid spare_parts payload")
		}
	}

	image, err := formImage(r)
	if err != nil {
		return req, nil, err
	}
	return req, image, nil
}

func decodeUpdateCar(r *http.Request) (garage.UpdateCarRequest, *garage.ImageUpload, error) {
	var req garage.UpdateCarRequest

	if !isMultipart(r) {
		var body struct {
			Brand       *string                `json:"brand"`
			Model       *string                `json:"model"`
			Year        *int                   `json:"year"`
			Kilometrage *float64               `json:"kilometrage"`
			FuelType    *models.FuelType       `json:"fuel_type"`
			SpareParts  *[]models.Installation `json:"spare_parts"`
			DeleteImage bool                   `json:"delete_image"`
		}
		if err := decodeJSON(r, &body); err != nil {
			return req, nil, err
		}
		req = garage.UpdateCarRequest{
			Brand:         body.Brand,
			Model:         body.Model,
			Year:          body.Year,
			Kilometrage:   body.Kilometrage,
			FuelType:      body.FuelType,
			Installations: body.SpareParts,
			DeleteImage:   body.DeleteImage,
		}
		return req, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return req, nil, apperr.Validation("invalid multipart form")
	}

	// A form field only updates the record when it is present; absent fields
	// keep their stored value.
	if v, ok := formValue(r, "brand"); ok {
		req.Brand = &v
	}
	if v, ok := formValue(r, "model"); ok {
		req.Model = &v
	}
	if v, ok := formValue(r, "fuel_type"); ok {
		fuel := models.FuelType(v)
		req.FuelType = &fuel
	}
	if v, ok := formValue(r, "year"); ok {
		year, err := strconv.Atoi(v)
		if err != nil {
			return req, nil, apperr.Validation("invalid year")
		}
		req.Year = &year
	}
	if v, ok := formValue(r, "kilometrage"); ok {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, nil, apperr.Validation("invalid kilometrage")
		}
		req.Kilometrage = &km
	}
	if v, ok := formValue(r, "spare_parts"); ok {
		var installations []models.Installation
		if err := json.Unmarshal([]byte(v), &installations); err != nil {
			return req, nil, apperr.Validation("invalid spare_parts payload")
		}
		req.Installations = &installations
	}
	if v, ok := formValue(r, "delete_image"); ok {
		req.DeleteImage = v == "true" || v == "1"
	}

	image, err := formImage(r)
	if err != nil {
		return req, nil, err
	}
	return req, image, nil
}

func formValue(r *http.Request, field string) (string, bool) {
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// formImage reads the optional image file from a multipart form.
func formImage(r *http.Request) (*garage.ImageUpload, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation("invalid image upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.Internal("failed to read image upload", err)
	}
	if len(data) == 0 {
		return nil, apperr.Validation("uploaded image is empty")
	}
	return &garage.ImageUpload{
		Data: data,
		Ext:  strings.ToLower(filepath.Ext(header.Filename)),
	}, nil
}
