package handlers

import (
	"net/http"

	"github.com/diewo77/go-submittals/httpx"
	"github.com/diewo77/go-submittals/internal/services"
)

type ManufacturerHandler struct {
	catalog *services.CatalogService
}

func NewManufacturerHandler(catalog *services.CatalogService) *ManufacturerHandler {
	return &ManufacturerHandler{catalog: catalog}
}

func (h *ManufacturerHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.ListManufacturers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *ManufacturerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, DefaultMaxBody, &req) {
		return
	}
	m, err := h.catalog.CreateManufacturer(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}
