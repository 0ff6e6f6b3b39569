package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-submittals/httpx"
	"github.com/diewo77/go-submittals/internal/models"
	"github.com/diewo77/go-submittals/internal/proposal"
	"github.com/diewo77/go-submittals/internal/services"
	"github.com/diewo77/go-submittals/internal/storage"
	"github.com/diewo77/go-submittals/internal/workflow"
	"github.com/diewo77/go-submittals/validation"
)

// Engine is the subset of workflow.Engine used over HTTP.
type Engine interface {
	CreateSubmittal(ctx context.Context, in workflow.SubmittalInput) (*models.Submittal, error)
	AddQuoteOption(ctx context.Context, submittalID uint, in workflow.OptionInput) (*models.QuoteOption, error)
	SelectWinner(ctx context.Context, in workflow.WinnerInput) (*models.Job, error)
	RevertWinner(ctx context.Context, submittalID uint) error
	DeleteSubmittal(ctx context.Context, submittalID uint) error
	DeleteQuoteOption(ctx context.Context, optionID uint) error
	AttachDocument(ctx context.Context, submittalID uint, url string) error
	LinkCustomer(ctx context.Context, submittalID, customerID uint) (*models.Submittal, error)
}

const pageSize = 20

// SubmittalHandler serves the staff submittal API.
type SubmittalHandler struct {
	engine        Engine
	submittals    *services.SubmittalService
	intake        *services.IntakeService
	renderer      proposal.Renderer
	defaultSuffix string
	maxBody       int64
}

func NewSubmittalHandler(engine Engine, submittals *services.SubmittalService, intake *services.IntakeService, renderer proposal.Renderer, defaultSuffix string, maxBody int64) *SubmittalHandler {
	return &SubmittalHandler{
		engine:        engine,
		submittals:    submittals,
		intake:        intake,
		renderer:      renderer,
		defaultSuffix: defaultSuffix,
		maxBody:       maxBody,
	}
}

type createSubmittalRequest struct {
	workflow.CustomerInput
	JobName  string `json:"job_name"`
	Notes    string `json:"notes"`
	NameCode string `json:"name_code"`
}

// Create registers a submittal entered by staff. name_code becomes the
// quote number suffix.
func (h *SubmittalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSubmittalRequest
	if !decode(w, r, h.maxBody, &req) {
		return
	}
	suffix := req.NameCode
	if strings.TrimSpace(suffix) == "" {
		suffix = h.defaultSuffix
	}
	sub, err := h.engine.CreateSubmittal(r.Context(), workflow.SubmittalInput{
		Customer: req.CustomerInput,
		JobName:  req.JobName,
		Notes:    req.Notes,
		Suffix:   suffix,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sub)
}

func (h *SubmittalHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	filter := services.SubmittalFilter{
		Query:  q.Get("q"),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	switch strings.ToLower(q.Get("status")) {
	case "pending":
		filter.Status = models.SubmittalStatusPending
	case "won":
		filter.Status = models.SubmittalStatusWon
	}

	items, total, err := h.submittals.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
		"page":  page,
		"limit": pageSize,
	})
}

func (h *SubmittalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sub, err := h.submittals.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sub)
}

func (h *SubmittalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.engine.DeleteSubmittal(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─────────────────────────────────────────────────────────────────────────
// Options and winner
// ─────────────────────────────────────────────────────────────────────────

func (h *SubmittalHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in workflow.OptionInput
	if !decode(w, r, h.maxBody, &in) {
		return
	}
	opt, err := h.engine.AddQuoteOption(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, opt)
}

func (h *SubmittalHandler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.engine.DeleteQuoteOption(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectWinnerRequest struct {
	OptionID      uint     `json:"option_id"`
	EstimatedCost *float64 `json:"estimated_cost"`
}

func (h *SubmittalHandler) SelectWinner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req selectWinnerRequest
	if !decode(w, r, h.maxBody, &req) {
		return
	}
	job, err := h.engine.SelectWinner(r.Context(), workflow.WinnerInput{
		SubmittalID:   id,
		OptionID:      req.OptionID,
		EstimatedCost: req.EstimatedCost,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *SubmittalHandler) RevertWinner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.engine.RevertWinner(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─────────────────────────────────────────────────────────────────────────
// Customer, documents and proposals
// ─────────────────────────────────────────────────────────────────────────

func (h *SubmittalHandler) LinkCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		CustomerID uint `json:"customer_id"`
	}
	if !decode(w, r, h.maxBody, &req) {
		return
	}
	sub, err := h.engine.LinkCustomer(r.Context(), id, req.CustomerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sub)
}

// UploadDocument replaces the submittal's request document.
func (h *SubmittalHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		PDFBase64 string `json:"pdf_base64"`
	}
	if !decode(w, r, h.maxBody, &req) {
		return
	}
	sub, err := h.submittals.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	url, err := h.intake.Attach(r.Context(), sub, req.PDFBase64)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		writeCode(w, r, http.StatusServiceUnavailable, "storage_not_available")
		return
	case errors.Is(err, services.ErrInvalidPDF):
		writeError(w, r, &workflow.Error{
			Kind:    workflow.ErrValidation,
			Op:      "upload_document",
			Message: "invalid input",
			Fields:  validation.Violations{"pdf_base64": "invalid_pdf"},
		})
		return
	case err != nil:
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"pdf_url": url})
}

// Proposal renders the chosen options as a PDF download.
func (h *SubmittalHandler) Proposal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		OptionIDs []uint `json:"option_ids"`
	}
	if !decode(w, r, h.maxBody, &req) {
		return
	}
	if len(req.OptionIDs) == 0 {
		writeError(w, r, &workflow.Error{
			Kind:    workflow.ErrValidation,
			Op:      "proposal",
			Message: "invalid input",
			Fields:  validation.Violations{"option_ids": "required"},
		})
		return
	}

	sub, err := h.submittals.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	options, err := h.submittals.SelectedOptions(r.Context(), sub, req.OptionIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := proposal.Proposal{Submittal: *sub, Options: options, Date: time.Now()}
	if sub.Customer != nil {
		p.Customer = *sub.Customer
	}
	body, err := h.renderer.Generate(p)
	if err != nil {
		log.Printf("[proposal] %s: %v", sub.QuoteNumber, err)
		writeCode(w, r, http.StatusInternalServerError, "try_again")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+p.FileName())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
