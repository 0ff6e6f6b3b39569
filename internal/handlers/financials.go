package handlers

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/diewo77/go-submittals/httpx"
	"github.com/diewo77/go-submittals/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type FinancialsHandler struct {
	reports *services.ReportService
}

func NewFinancialsHandler(reports *services.ReportService) *FinancialsHandler {
	return &FinancialsHandler{reports: reports}
}

func (h *FinancialsHandler) report(r *http.Request) (*services.FinancialReport, error) {
	q := r.URL.Query()
	from, to, err := h.reports.ParseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		return nil, err
	}
	return h.reports.Financials(r.Context(), from, to)
}

func (h *FinancialsHandler) Report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.report(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

// Export streams the report as an XLSX workbook.
func (h *FinancialsHandler) Export(w http.ResponseWriter, r *http.Request) {
	rep, err := h.report(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.reports.WriteXLSX(rep, &buf); err != nil {
		log.Printf("[financials] export: %v", err)
		writeCode(w, r, http.StatusInternalServerError, "try_again")
		return
	}
	name := fmt.Sprintf("financials_%s_%s.xlsx", rep.Start, rep.End)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
