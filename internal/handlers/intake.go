package handlers

import (
	"net/http"

	"github.com/diewo77/go-submittals/httpx"
	"github.com/diewo77/go-submittals/internal/services"
)

// IntakeHandler receives quote requests from the public website.
type IntakeHandler struct {
	svc     *services.IntakeService
	maxBody int64
}

func NewIntakeHandler(svc *services.IntakeService, maxBody int64) *IntakeHandler {
	return &IntakeHandler{svc: svc, maxBody: maxBody}
}

func (h *IntakeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in services.WebSubmittal
	if !decode(w, r, h.maxBody, &in) {
		return
	}
	sub, err := h.svc.Submit(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success":      true,
		"id":           sub.ID,
		"quote_number": sub.QuoteNumber,
	})
}
