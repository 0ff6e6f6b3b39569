package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/go-submittals/internal/db"
	"github.com/diewo77/go-submittals/internal/models"
	"github.com/diewo77/go-submittals/internal/notify"
	"github.com/diewo77/go-submittals/internal/proposal"
	"github.com/diewo77/go-submittals/internal/services"
	"github.com/diewo77/go-submittals/internal/store"
	"github.com/diewo77/go-submittals/internal/workflow"
	"gorm.io/gorm"
)

type memFiles struct{ keys []string }

func (m *memFiles) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	m.keys = append(m.keys, key)
	return "https://files.test/" + key, nil
}

type testServer struct {
	mux *http.ServeMux
	db  *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.Migrate(gdb, "quote_number_seq", 1000); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	events := notify.NewEventLog(gdb)
	engine := workflow.New(store.NewGormStore(gdb), store.NewTableSequence(gdb, "quote_number_seq", 1000), events)
	subs := services.NewSubmittalService(gdb)
	intake := services.NewIntakeService(engine, &memFiles{}, "WEB")

	sh := NewSubmittalHandler(engine, subs, intake, proposal.New("Acme Louvers"), "XX", 0)
	ih := NewIntakeHandler(intake, 0)
	jh := NewJobHandler(services.NewJobService(gdb), 0)
	ch := NewCustomerHandler(services.NewCustomerService(gdb))
	mh := NewManufacturerHandler(services.NewCatalogService(gdb))
	fh := NewFinancialsHandler(services.NewReportService(gdb))
	ah := NewActivityHandler(subs, events, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/web-submittal", ih.Submit)
	mux.HandleFunc("POST /api/submittals", sh.Create)
	mux.HandleFunc("GET /api/submittals", sh.List)
	mux.HandleFunc("GET /api/submittals/{id}", sh.Get)
	mux.HandleFunc("DELETE /api/submittals/{id}", sh.Delete)
	mux.HandleFunc("POST /api/submittals/{id}/options", sh.AddOption)
	mux.HandleFunc("DELETE /api/options/{id}", sh.DeleteOption)
	mux.HandleFunc("POST /api/submittals/{id}/winner", sh.SelectWinner)
	mux.HandleFunc("DELETE /api/submittals/{id}/winner", sh.RevertWinner)
	mux.HandleFunc("PUT /api/submittals/{id}/customer", sh.LinkCustomer)
	mux.HandleFunc("POST /api/submittals/{id}/document", sh.UploadDocument)
	mux.HandleFunc("POST /api/submittals/{id}/proposal", sh.Proposal)
	mux.HandleFunc("GET /api/jobs", jh.List)
	mux.HandleFunc("PATCH /api/jobs/{id}/financials", jh.UpdateFinancials)
	mux.HandleFunc("POST /api/jobs/{id}/add-ons", jh.AddAddOn)
	mux.HandleFunc("GET /api/customers", ch.Search)
	mux.HandleFunc("GET /api/customers/{id}", ch.Get)
	mux.HandleFunc("GET /api/manufacturers", mh.List)
	mux.HandleFunc("POST /api/manufacturers", mh.Create)
	mux.HandleFunc("GET /api/financials", fh.Report)
	mux.HandleFunc("GET /api/financials/export", fh.Export)
	mux.HandleFunc("GET /api/activity", ah.Recent)
	mux.HandleFunc("GET /api/activity/stream", ah.Stream)
	return &testServer{mux: mux, db: gdb}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Details struct {
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"details"`
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) errorBody {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	var body errorBody
	decodeBody(t, rr, &body)
	if body.Error != code {
		t.Fatalf("error = %q, want %q", body.Error, code)
	}
	return body
}

const staffBody = `{"first_name":"Ana","last_name":"Ruiz","email":"ana@example.com","phone":"555-010-2030","job_name":"Harbor Tower","name_code":"JD"}`

func createSubmittal(t *testing.T, s *testServer) models.Submittal {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/submittals", staffBody)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	var sub models.Submittal
	decodeBody(t, rr, &sub)
	return sub
}

func addOption(t *testing.T, s *testServer, subID uint, material string, price float64) models.QuoteOption {
	t.Helper()
	body := fmt.Sprintf(`{"material":%q,"quantity":2,"price":%v}`, material, price)
	rr := s.do(t, http.MethodPost, fmt.Sprintf("/api/submittals/%d/options", subID), body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add option: %d %s", rr.Code, rr.Body.String())
	}
	var opt models.QuoteOption
	decodeBody(t, rr, &opt)
	return opt
}

func TestWebSubmittal(t *testing.T) {
	s := newTestServer(t)
	pdf := "JVBERi0xLjQK" // "%PDF-1.4\n"
	rr := s.do(t, http.MethodPost, "/api/web-submittal",
		`{"first_name":"Ana","phone":"(555) 010-2030","additional_notes":"rush","pdf_base64":"`+pdf+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Success     bool   `json:"success"`
		ID          uint   `json:"id"`
		QuoteNumber string `json:"quote_number"`
	}
	decodeBody(t, rr, &body)
	if !body.Success || body.QuoteNumber != "1000WEB" || body.ID == 0 {
		t.Fatalf("unexpected body %+v", body)
	}

	var sub models.Submittal
	s.db.First(&sub, body.ID)
	if sub.PDFURL != "https://files.test/1000WEB_request.pdf" || sub.Notes != "rush" {
		t.Fatalf("stored submittal %+v", sub)
	}
}

func TestCreateSubmittal_ValidationIsTranslated(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/api/submittals", `{"phone":"555"}`, "Accept-Language", "es-MX,es;q=0.9")
	body := expectError(t, rr, http.StatusUnprocessableEntity, "validation_failed")
	if body.Details.Fields["phone"] != "Faltan dígitos" {
		t.Fatalf("fields = %v", body.Details.Fields)
	}

	rr = s.do(t, http.MethodPost, "/api/submittals", `{"phone":`)
	expectError(t, rr, http.StatusBadRequest, "invalid_json")
}

func TestSubmittalLifecycle(t *testing.T) {
	s := newTestServer(t)
	sub := createSubmittal(t, s)
	if sub.QuoteNumber != "1000JD" || sub.Status != models.SubmittalStatusPending {
		t.Fatalf("created %+v", sub)
	}
	a := addOption(t, s, sub.ID, "Louver", 1200)
	b := addOption(t, s, sub.ID, "Grille", 900)

	rr := s.do(t, http.MethodPost, fmt.Sprintf("/api/submittals/%d/winner", sub.ID), fmt.Sprintf(`{"option_id":%d,"estimated_cost":700}`, a.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("winner: %d %s", rr.Code, rr.Body.String())
	}
	var job models.Job
	decodeBody(t, rr, &job)
	if job.SaleAmount != 1200 || job.EstimatedCost != 700 {
		t.Fatalf("job %+v", job)
	}

	rr = s.do(t, http.MethodDelete, fmt.Sprintf("/api/options/%d", a.ID), "")
	body := expectError(t, rr, http.StatusConflict, "conflict")
	if body.Details.Message != workflow.MessageWinnerLocked {
		t.Fatalf("message = %q", body.Details.Message)
	}

	rr = s.do(t, http.MethodPost, fmt.Sprintf("/api/submittals/%d/winner", sub.ID), fmt.Sprintf(`{"option_id":%d}`, b.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("change winner: %d %s", rr.Code, rr.Body.String())
	}
	if rr := s.do(t, http.MethodDelete, fmt.Sprintf("/api/options/%d", a.ID), ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete old winner option: %d %s", rr.Code, rr.Body.String())
	}

	rr = s.do(t, http.MethodPatch, fmt.Sprintf("/api/jobs/%d/financials", job.ID), `{"actual_cost":650}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("financials: %d %s", rr.Code, rr.Body.String())
	}
	rr = s.do(t, http.MethodPost, fmt.Sprintf("/api/jobs/%d/add-ons", job.ID), `{"material":"Trim","quantity":1,"price":40}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add-on: %d %s", rr.Code, rr.Body.String())
	}

	rr = s.do(t, http.MethodGet, fmt.Sprintf("/api/submittals/%d", sub.ID), "")
	var detail models.Submittal
	decodeBody(t, rr, &detail)
	if detail.Status != models.SubmittalStatusWon || detail.Job == nil || len(detail.Job.AddOns) != 1 || len(detail.Options) != 1 {
		t.Fatalf("detail %+v", detail)
	}

	if rr := s.do(t, http.MethodDelete, fmt.Sprintf("/api/submittals/%d/winner", sub.ID), ""); rr.Code != http.StatusNoContent {
		t.Fatalf("revert: %d %s", rr.Code, rr.Body.String())
	}
	expectError(t, s.do(t, http.MethodDelete, fmt.Sprintf("/api/submittals/%d/winner", sub.ID), ""), http.StatusNotFound, "not_found")

	if rr := s.do(t, http.MethodDelete, fmt.Sprintf("/api/submittals/%d", sub.ID), ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rr.Code, rr.Body.String())
	}
	expectError(t, s.do(t, http.MethodGet, fmt.Sprintf("/api/submittals/%d", sub.ID), ""), http.StatusNotFound, "not_found")
}

func TestSelectWinner_ForeignOption(t *testing.T) {
	s := newTestServer(t)
	one := createSubmittal(t, s)
	two := createSubmittal(t, s)
	opt := addOption(t, s, two.ID, "Louver", 100)

	rr := s.do(t, http.MethodPost, fmt.Sprintf("/api/submittals/%d/winner", one.ID), fmt.Sprintf(`{"option_id":%d}`, opt.ID))
	expectError(t, rr, http.StatusUnprocessableEntity, "invalid_reference")

	expectError(t, s.do(t, http.MethodPost, "/api/submittals/abc/winner", `{}`), http.StatusBadRequest, "invalid_id")
}

func TestProposal(t *testing.T) {
	s := newTestServer(t)
	sub := createSubmittal(t, s)
	a := addOption(t, s, sub.ID, "Louver", 1200)
	other := createSubmittal(t, s)
	foreign := addOption(t, s, other.ID, "Grille", 50)

	rr := s.do(t, http.MethodPost, fmt.Sprintf("/api/submittals/%d/proposal", sub.ID), fmt.Sprintf(`{"option_ids":[%d]}`, a.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("proposal: %d %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != "attachment; filename=Proposal_1000JD.pdf" {
		t.Fatalf("disposition = %q", cd)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")) {
		t.Fatal("body is not a PDF")
	}

	rr = s.do(t, http.MethodPost, fmt.Sprintf("/api/submittals/%d/proposal", sub.ID), `{"option_ids":[]}`)
	expectError(t, rr, http.StatusUnprocessableEntity, "validation_failed")

	rr = s.do(t, http.MethodPost, fmt.Sprintf("/api/submittals/%d/proposal", sub.ID), fmt.Sprintf(`{"option_ids":[%d]}`, foreign.ID))
	expectError(t, rr, http.StatusUnprocessableEntity, "invalid_reference")
}

func TestUploadDocument(t *testing.T) {
	s := newTestServer(t)
	sub := createSubmittal(t, s)

	rr := s.do(t, http.MethodPost, fmt.Sprintf("/api/submittals/%d/document", sub.ID), `{"pdf_base64":"aGVsbG8="}`)
	body := expectError(t, rr, http.StatusUnprocessableEntity, "validation_failed")
	if body.Details.Fields["pdf_base64"] == "" {
		t.Fatalf("fields = %v", body.Details.Fields)
	}

	rr = s.do(t, http.MethodPost, fmt.Sprintf("/api/submittals/%d/document", sub.ID), `{"pdf_base64":"JVBERi0xLjQK"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rr.Code, rr.Body.String())
	}
	var out map[string]string
	decodeBody(t, rr, &out)
	if out["pdf_url"] != "https://files.test/1000JD_request.pdf" {
		t.Fatalf("pdf_url = %q", out["pdf_url"])
	}
}

func TestCustomersAndLinking(t *testing.T) {
	s := newTestServer(t)
	sub := createSubmittal(t, s)
	other := models.Customer{FirstName: "Luis", LastName: "Mora", Phone: "5559990000"}
	s.db.Create(&other)

	rr := s.do(t, http.MethodGet, "/api/customers?q=mora", "")
	var found []models.Customer
	decodeBody(t, rr, &found)
	if len(found) != 1 || found[0].ID != other.ID {
		t.Fatalf("search = %+v", found)
	}

	rr = s.do(t, http.MethodPut, fmt.Sprintf("/api/submittals/%d/customer", sub.ID), fmt.Sprintf(`{"customer_id":%d}`, other.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("link: %d %s", rr.Code, rr.Body.String())
	}
	expectError(t, s.do(t, http.MethodPut, fmt.Sprintf("/api/submittals/%d/customer", sub.ID), `{"customer_id":999}`), http.StatusNotFound, "not_found")

	rr = s.do(t, http.MethodGet, fmt.Sprintf("/api/customers/%d", other.ID), "")
	var history services.CustomerHistory
	decodeBody(t, rr, &history)
	if len(history.OpenQuotes) != 1 || len(history.WonJobs) != 0 {
		t.Fatalf("history %+v", history)
	}
}

func TestManufacturers(t *testing.T) {
	s := newTestServer(t)
	if rr := s.do(t, http.MethodPost, "/api/manufacturers", `{"name":"Ruskin"}`); rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	expectError(t, s.do(t, http.MethodPost, "/api/manufacturers", `{"name":"ruskin"}`), http.StatusConflict, "conflict")

	var list []models.Manufacturer
	decodeBody(t, s.do(t, http.MethodGet, "/api/manufacturers", ""), &list)
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}
}

func TestFinancialsAndActivity(t *testing.T) {
	s := newTestServer(t)
	sub := createSubmittal(t, s)
	opt := addOption(t, s, sub.ID, "Louver", 1000)
	createSubmittal(t, s)
	s.do(t, http.MethodPost, fmt.Sprintf("/api/submittals/%d/winner", sub.ID), fmt.Sprintf(`{"option_id":%d}`, opt.ID))

	rr := s.do(t, http.MethodGet, "/api/financials", "")
	var rep services.FinancialReport
	decodeBody(t, rr, &rep)
	if rep.TotalQuotes != 2 || rep.WonCount != 1 || rep.Revenue != 1000 || rep.ConversionRate != 50 {
		t.Fatalf("report %+v", rep)
	}

	expectError(t, s.do(t, http.MethodGet, "/api/financials?start=2024-05-02&end=2024-05-01", ""), http.StatusUnprocessableEntity, "validation_failed")

	rr = s.do(t, http.MethodGet, "/api/financials/export", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("export: %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}

	rr = s.do(t, http.MethodGet, "/api/activity", "")
	var feed struct {
		Pending []models.Submittal `json:"pending"`
		Events  []models.Event     `json:"events"`
	}
	decodeBody(t, rr, &feed)
	if len(feed.Pending) != 1 {
		t.Fatalf("pending = %d", len(feed.Pending))
	}
	if len(feed.Events) != 3 || feed.Events[0].Name != workflow.EventSubmittalWon {
		t.Fatalf("events = %+v", feed.Events)
	}

	expectError(t, s.do(t, http.MethodGet, "/api/activity/stream", ""), http.StatusNotImplemented, "stream_unavailable")
}
