package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/diewo77/go-submittals/internal/db"
	"github.com/diewo77/go-submittals/internal/models"
	"github.com/diewo77/go-submittals/internal/store"
	"github.com/diewo77/go-submittals/internal/workflow"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
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
	return gdb
}

func newEngine(gdb *gorm.DB) *workflow.Engine {
	return workflow.New(store.NewGormStore(gdb), store.NewTableSequence(gdb, "quote_number_seq", 1000), nil)
}

// wonSubmittal creates a submittal with two options and selects the first.
func wonSubmittal(t *testing.T, e *workflow.Engine, jobName, phone string, price float64) (*models.Submittal, *models.Job) {
	t.Helper()
	ctx := context.Background()
	sub, err := e.CreateSubmittal(ctx, workflow.SubmittalInput{
		Customer: workflow.CustomerInput{FirstName: "Ana", LastName: "Ruiz", Phone: phone},
		JobName:  jobName,
		Suffix:   "XX",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	opt, err := e.AddQuoteOption(ctx, sub.ID, workflow.OptionInput{Material: "Louver", Quantity: 2, Price: price})
	if err != nil {
		t.Fatalf("option: %v", err)
	}
	if _, err := e.AddQuoteOption(ctx, sub.ID, workflow.OptionInput{Material: "Grille", Quantity: 2, Price: price + 100}); err != nil {
		t.Fatalf("option: %v", err)
	}
	job, err := e.SelectWinner(ctx, workflow.WinnerInput{SubmittalID: sub.ID, OptionID: opt.ID})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	return sub, job
}

func pendingSubmittal(t *testing.T, e *workflow.Engine, jobName, phone string) *models.Submittal {
	t.Helper()
	sub, err := e.CreateSubmittal(context.Background(), workflow.SubmittalInput{
		Customer: workflow.CustomerInput{FirstName: "Luis", LastName: "Mora", Phone: phone},
		JobName:  jobName,
		Suffix:   "WEB",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return sub
}

func isKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

func TestSubmittalService_ListAndGet(t *testing.T) {
	gdb := openTestDB(t)
	e := newEngine(gdb)
	svc := NewSubmittalService(gdb)
	ctx := context.Background()

	won, _ := wonSubmittal(t, e, "Harbor Tower", "5550000001", 1000)
	pendingSubmittal(t, e, "Lobby Refit", "5550000002")
	pendingSubmittal(t, e, "Parking Deck", "5550000003")

	all, total, err := svc.List(ctx, SubmittalFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("total=%d len=%d", total, len(all))
	}

	pending, total, err := svc.List(ctx, SubmittalFilter{Status: models.SubmittalStatusPending})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if total != 2 || len(pending) != 2 {
		t.Fatalf("pending total=%d len=%d", total, len(pending))
	}

	found, total, err := svc.List(ctx, SubmittalFilter{Query: "harbor"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || found[0].ID != won.ID {
		t.Fatalf("search returned %+v", found)
	}

	page, total, err := svc.List(ctx, SubmittalFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if total != 3 || len(page) != 1 {
		t.Fatalf("page total=%d len=%d", total, len(page))
	}

	got, err := svc.Get(ctx, won.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Customer == nil || len(got.Options) != 2 || got.Job == nil {
		t.Fatalf("associations not loaded: %+v", got)
	}
	if got.Options[0].ID > got.Options[1].ID {
		t.Fatal("options not ordered by id")
	}

	_, err = svc.Get(ctx, 9999)
	isKind(t, err, workflow.ErrNotFound)

	recent, err := svc.RecentPending(ctx, 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent = %d, want 2", len(recent))
	}
}

func TestSubmittalService_SelectedOptions(t *testing.T) {
	gdb := openTestDB(t)
	e := newEngine(gdb)
	svc := NewSubmittalService(gdb)
	ctx := context.Background()

	sub, _ := wonSubmittal(t, e, "Harbor Tower", "5550000001", 1000)
	full, err := svc.Get(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	a, b := full.Options[0].ID, full.Options[1].ID

	got, err := svc.SelectedOptions(ctx, full, []uint{b, a, b})
	if err != nil {
		t.Fatalf("selected: %v", err)
	}
	if len(got) != 2 || got[0].ID != b || got[1].ID != a {
		t.Fatalf("unexpected selection %+v", got)
	}

	_, err = svc.SelectedOptions(ctx, full, []uint{a, 9999})
	isKind(t, err, workflow.ErrInvalidReference)
}

func TestJobService_FinancialsAndAddOns(t *testing.T) {
	gdb := openTestDB(t)
	e := newEngine(gdb)
	svc := NewJobService(gdb)
	ctx := context.Background()

	_, job := wonSubmittal(t, e, "Harbor Tower", "5550000001", 1000)

	est, actual := 600.0, 655.557
	updated, err := svc.UpdateFinancials(ctx, job.ID, FinancialsInput{EstimatedCost: &est, ActualCost: &actual})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.EstimatedCost != 600 || updated.ActualCost != 655.56 {
		t.Fatalf("costs not saved: %+v", updated)
	}
	if updated.SaleAmount != 1000 {
		t.Fatalf("sale amount changed: %v", updated.SaleAmount)
	}

	neg := -1.0
	_, err = svc.UpdateFinancials(ctx, job.ID, FinancialsInput{EstimatedCost: &neg})
	isKind(t, err, workflow.ErrValidation)
	_, err = svc.UpdateFinancials(ctx, job.ID, FinancialsInput{})
	isKind(t, err, workflow.ErrValidation)
	_, err = svc.UpdateFinancials(ctx, 9999, FinancialsInput{EstimatedCost: &est})
	isKind(t, err, workflow.ErrNotFound)

	addOn, err := svc.AddAddOn(ctx, job.ID, AddOnInput{Material: " End caps ", Quantity: 4, Price: 45.5, Reason: "site change"})
	if err != nil {
		t.Fatalf("add-on: %v", err)
	}
	if addOn.Material != "End caps" || addOn.Color != models.DefaultColor {
		t.Fatalf("unexpected add-on %+v", addOn)
	}
	_, err = svc.AddAddOn(ctx, job.ID, AddOnInput{Price: 1})
	isKind(t, err, workflow.ErrValidation)
	_, err = svc.AddAddOn(ctx, 9999, AddOnInput{Material: "x"})
	isKind(t, err, workflow.ErrNotFound)

	rows, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	row := rows[0]
	if row.CustomerName != "Ana Ruiz" || row.JobName != "Harbor Tower" {
		t.Fatalf("row = %+v", row)
	}
	if row.AcceptedOption == nil || row.AcceptedOption.ID != job.AcceptedOptionID {
		t.Fatalf("accepted option missing: %+v", row.AcceptedOption)
	}
	if row.AddOnTotal != 45.5 || row.Markup != 0.4 {
		t.Fatalf("markup=%v addOns=%v", row.Markup, row.AddOnTotal)
	}
}

func TestCustomerService_SearchAndHistory(t *testing.T) {
	gdb := openTestDB(t)
	e := newEngine(gdb)
	svc := NewCustomerService(gdb)
	ctx := context.Background()

	won, _ := wonSubmittal(t, e, "Harbor Tower", "5550000001", 1000)
	// Same phone: same customer, second quote still open.
	if _, err := e.CreateSubmittal(ctx, workflow.SubmittalInput{
		Customer: workflow.CustomerInput{Phone: "(555) 000-0001"},
		Suffix:   "XX",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	pendingSubmittal(t, e, "Lobby", "5550000002")

	byName, err := svc.Search(ctx, "ruiz", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(byName) != 1 || byName[0].ID != won.CustomerID {
		t.Fatalf("search by name = %+v", byName)
	}
	byPhone, err := svc.Search(ctx, "555-000-0002", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(byPhone) != 1 || byPhone[0].LastName != "Mora" {
		t.Fatalf("search by phone = %+v", byPhone)
	}
	for _, wildcard := range []string{"%", "_", "a_a"} {
		got, err := svc.Search(ctx, wildcard, 0)
		if err != nil {
			t.Fatalf("search %q: %v", wildcard, err)
		}
		if len(got) != 0 {
			t.Fatalf("search %q matched %d customers", wildcard, len(got))
		}
	}
	everyone, err := svc.Search(ctx, "", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(everyone) != 2 {
		t.Fatalf("all customers = %d", len(everyone))
	}

	h, err := svc.History(ctx, won.CustomerID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(h.WonJobs) != 1 || len(h.OpenQuotes) != 1 {
		t.Fatalf("won=%d open=%d", len(h.WonJobs), len(h.OpenQuotes))
	}
	_, err = svc.History(ctx, 9999)
	isKind(t, err, workflow.ErrNotFound)
}

func TestCatalogService(t *testing.T) {
	gdb := openTestDB(t)
	svc := NewCatalogService(gdb)
	ctx := context.Background()

	m, err := svc.CreateManufacturer(ctx, "  Acme   Louvers ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Name != "Acme Louvers" {
		t.Fatalf("name = %q", m.Name)
	}
	_, err = svc.CreateManufacturer(ctx, "ACME LOUVERS")
	isKind(t, err, workflow.ErrConflict)
	_, err = svc.CreateManufacturer(ctx, "   ")
	isKind(t, err, workflow.ErrValidation)

	list, err := svc.ListManufacturers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}
}

type fakeFiles struct {
	keys []string
	err  error
}

func (f *fakeFiles) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://files.example.com/" + key, nil
}

func TestIntakeService_Submit(t *testing.T) {
	gdb := openTestDB(t)
	e := newEngine(gdb)
	files := &fakeFiles{}
	svc := NewIntakeService(e, files, "WEB")
	ctx := context.Background()

	pdf := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 test"))
	sub, err := svc.Submit(ctx, WebSubmittal{
		FirstName:       "Ana",
		LastName:        "Ruiz",
		Email:           "ana@example.com",
		Phone:           "555-010-2030",
		AdditionalNotes: "Need by June",
		PDFBase64:       "data:application/pdf;base64," + pdf,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.QuoteNumber != "1000WEB" || sub.JobName != models.DefaultJobName || sub.Notes != "Need by June" {
		t.Fatalf("unexpected submittal %+v", sub)
	}
	if len(files.keys) != 1 || files.keys[0] != "1000WEB_request.pdf" {
		t.Fatalf("uploaded keys = %v", files.keys)
	}
	var stored models.Submittal
	gdb.First(&stored, sub.ID)
	if stored.PDFURL != "https://files.example.com/1000WEB_request.pdf" {
		t.Fatalf("pdf url = %q", stored.PDFURL)
	}

	// A broken attachment never fails the request.
	bad, err := svc.Submit(ctx, WebSubmittal{Phone: "5550102030", PDFBase64: base64.StdEncoding.EncodeToString([]byte("hello"))})
	if err != nil {
		t.Fatalf("submit with bad pdf: %v", err)
	}
	if bad.PDFURL != "" || len(files.keys) != 1 {
		t.Fatalf("bad attachment stored: %+v", bad)
	}

	files.err = errors.New("bucket gone")
	if _, err := svc.Submit(ctx, WebSubmittal{Phone: "5550102030", PDFBase64: pdf}); err != nil {
		t.Fatalf("submit with upload failure: %v", err)
	}

	_, err = svc.Submit(ctx, WebSubmittal{Phone: "123"})
	isKind(t, err, workflow.ErrValidation)
}

func TestDecodePDF(t *testing.T) {
	raw := []byte("%PDF-1.7\n")
	enc := base64.StdEncoding.EncodeToString(raw)
	for _, in := range []string{enc, " " + enc + "\n", "data:application/pdf;base64," + enc} {
		got, err := DecodePDF(in)
		if err != nil {
			t.Fatalf("DecodePDF(%q): %v", in, err)
		}
		if !bytes.Equal(got, raw) {
			t.Fatalf("DecodePDF(%q) = %q", in, got)
		}
	}
	if _, err := DecodePDF("!!!"); !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("expected ErrInvalidPDF for bad base64, got %v", err)
	}
	if _, err := DecodePDF(base64.StdEncoding.EncodeToString([]byte("GIF89a"))); !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("expected ErrInvalidPDF, got %v", err)
	}
}

func TestReportService_Financials(t *testing.T) {
	gdb := openTestDB(t)
	e := newEngine(gdb)
	svc := NewReportService(gdb)
	ctx := context.Background()

	_, j1 := wonSubmittal(t, e, "Harbor Tower", "5550000001", 1000)
	_, j2 := wonSubmittal(t, e, "Pier 9", "5550000002", 500)
	pendingSubmittal(t, e, "Lobby", "5550000003")
	old := pendingSubmittal(t, e, "Old", "5550000004")
	gdb.Model(&models.Submittal{}).Where("id = ?", old.ID).Update("created_at", time.Now().AddDate(-1, 0, 0))

	gdb.Model(&models.Job{}).Where("id = ?", j1.ID).Update("estimated_cost", 600)
	gdb.Model(&models.Job{}).Where("id = ?", j2.ID).Update("estimated_cost", 400)

	today := time.Now().Format("2006-01-02")
	from, to, err := svc.ParseRange(today, today)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	r, err := svc.Financials(ctx, from, to)
	if err != nil {
		t.Fatalf("financials: %v", err)
	}
	if r.TotalQuotes != 3 || r.WonCount != 2 {
		t.Fatalf("quotes=%d won=%d", r.TotalQuotes, r.WonCount)
	}
	if r.Revenue != 1500 || r.TotalEstimatedCost != 1000 {
		t.Fatalf("revenue=%v cost=%v", r.Revenue, r.TotalEstimatedCost)
	}
	if r.ConversionRate < 66.6 || r.ConversionRate > 66.7 {
		t.Fatalf("conversion = %v", r.ConversionRate)
	}
	// (0.4 + 0.2) / 2
	if r.AverageMarkup < 0.2999 || r.AverageMarkup > 0.3001 {
		t.Fatalf("average markup = %v", r.AverageMarkup)
	}
	if len(r.Jobs) != 2 || r.Start != today || r.End != today {
		t.Fatalf("report = %+v", r)
	}

	var buf bytes.Buffer
	if err := svc.WriteXLSX(r, &buf); err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 2 || sheets[0] != "Summary" || sheets[1] != "Jobs" {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows("Jobs")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "Quote #" {
		t.Fatalf("jobs sheet = %v", rows)
	}
	quotes, err := f.GetCellValue("Summary", "B2")
	if err != nil || quotes != "3" {
		t.Fatalf("summary total = %q, %v", quotes, err)
	}
}

func TestReportService_ParseRange(t *testing.T) {
	svc := NewReportService(nil)

	from, to, err := svc.ParseRange("2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if from.Day() != 1 || from.Month() != time.March {
		t.Fatalf("from = %v", from)
	}
	if to.Day() != 1 || to.Month() != time.April {
		t.Fatalf("end should be exclusive next day, got %v", to)
	}

	_, _, err = svc.ParseRange("2024-04-01", "2024-03-01")
	isKind(t, err, workflow.ErrValidation)
	_, _, err = svc.ParseRange("yesterday", "")
	isKind(t, err, workflow.ErrValidation)

	from, _, err = svc.ParseRange("", "")
	if err != nil || from.Day() != 1 {
		t.Fatalf("default range from=%v err=%v", from, err)
	}
}
