package handlers

import (
	"net/http"

	"github.com/diewo77/go-submittals/httpx"
	"github.com/diewo77/go-submittals/internal/services"
)

type JobHandler struct {
	jobs    *services.JobService
	maxBody int64
}

func NewJobHandler(jobs *services.JobService, maxBody int64) *JobHandler {
	return &JobHandler{jobs: jobs, maxBody: maxBody}
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.jobs.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

// UpdateFinancials edits estimated and actual cost. The sale amount is not
// accepted here.
func (h *JobHandler) UpdateFinancials(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.FinancialsInput
	if !decode(w, r, h.maxBody, &in) {
		return
	}
	job, err := h.jobs.UpdateFinancials(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *JobHandler) AddAddOn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.AddOnInput
	if !decode(w, r, h.maxBody, &in) {
		return
	}
	addOn, err := h.jobs.AddAddOn(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, addOn)
}
