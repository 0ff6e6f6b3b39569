package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/diewo77/go-submittals/internal/models"
	"github.com/diewo77/go-submittals/validation"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// ReportService computes sales figures over a date range.
type ReportService struct {
	DB  *gorm.DB
	Loc *time.Location
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{DB: db, Loc: time.Local}
}

// FinancialReport summarizes submittals created within [Start, End].
type FinancialReport struct {
	Start              string   `json:"start"`
	End                string   `json:"end"`
	TotalQuotes        int64    `json:"total_quotes"`
	WonCount           int64    `json:"won_count"`
	Revenue            float64  `json:"revenue"`
	TotalEstimatedCost float64  `json:"total_estimated_cost"`
	ConversionRate     float64  `json:"conversion_rate"`
	AverageMarkup      float64  `json:"average_markup"`
	Jobs               []JobRow `json:"jobs"`
}

// ParseRange turns two YYYY-MM-DD strings into a half-open interval
// covering both days. Blank start means the first of the current month,
// blank end means today.
func (s *ReportService) ParseRange(start, end string) (time.Time, time.Time, error) {
	now := time.Now().In(s.Loc)
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.Loc)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.Loc)

	v := make(validation.Violations)
	if start != "" {
		t, err := time.ParseInLocation(dateLayout, start, s.Loc)
		if err != nil {
			v["start"] = "invalid_date"
		}
		from = t
	}
	if end != "" {
		t, err := time.ParseInLocation(dateLayout, end, s.Loc)
		if err != nil {
			v["end"] = "invalid_date"
		}
		to = t
	}
	if v.Empty() {
		validation.DateRange("start", from, to, v)
	}
	if !v.Empty() {
		return time.Time{}, time.Time{}, invalid("financial_report", v)
	}
	return from, to.AddDate(0, 0, 1), nil
}

// Financials builds the report for submittals created in [from, to).
// Revenue is the sum of job sale amounts.
func (s *ReportService) Financials(ctx context.Context, from, to time.Time) (*FinancialReport, error) {
	const op = "financial_report"
	db := s.DB.WithContext(ctx)
	inRange := func() *gorm.DB {
		return db.Model(&models.Submittal{}).Where("created_at >= ? AND created_at < ?", from, to)
	}

	r := &FinancialReport{
		Start: from.Format(dateLayout),
		End:   to.AddDate(0, 0, -1).Format(dateLayout),
		Jobs:  []JobRow{},
	}
	if err := inRange().Count(&r.TotalQuotes).Error; err != nil {
		return nil, storeFailure(op, err)
	}
	if err := inRange().Where("status = ?", models.SubmittalStatusWon).Count(&r.WonCount).Error; err != nil {
		return nil, storeFailure(op, err)
	}

	var jobs []models.Job
	err := db.
		Joins("JOIN submittals ON submittals.id = jobs.submittal_id").
		Where("submittals.created_at >= ? AND submittals.created_at < ?", from, to).
		Preload("Submittal.Customer").
		Preload("Submittal.Options").
		Preload("AddOns").
		Order("jobs.created_at DESC, jobs.id DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, storeFailure(op, err)
	}

	var markupSum float64
	for _, j := range jobs {
		r.Revenue += j.SaleAmount
		r.TotalEstimatedCost += j.EstimatedCost
		markupSum += j.Markup()
		r.Jobs = append(r.Jobs, newJobRow(j))
	}
	r.Revenue = models.RoundCents(r.Revenue)
	r.TotalEstimatedCost = models.RoundCents(r.TotalEstimatedCost)
	if len(jobs) > 0 {
		r.AverageMarkup = markupSum / float64(len(jobs))
	}
	if r.TotalQuotes > 0 {
		r.ConversionRate = float64(r.WonCount) / float64(r.TotalQuotes) * 100
	}
	return r, nil
}

const (
	summarySheet = "Summary"
	jobsSheet    = "Jobs"
)

// WriteXLSX renders the report as a workbook with a summary and a jobs sheet.
func (s *ReportService) WriteXLSX(r *FinancialReport, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	summary := [][]any{
		{"Period", fmt.Sprintf("%s to %s", r.Start, r.End)},
		{"Total quotes", r.TotalQuotes},
		{"Won", r.WonCount},
		{"Conversion %", models.RoundCents(r.ConversionRate)},
		{"Revenue", r.Revenue},
		{"Estimated cost", r.TotalEstimatedCost},
		{"Average markup %", models.RoundCents(r.AverageMarkup * 100)},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(jobsSheet); err != nil {
		return err
	}
	header := []any{"Quote #", "Job name", "Customer", "Sale amount", "Estimated cost", "Actual cost", "Markup %", "Add-ons", "Won at"}
	if err := f.SetSheetRow(jobsSheet, "A1", &header); err != nil {
		return err
	}
	for i, j := range r.Jobs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			j.QuoteNumber,
			j.JobName,
			j.CustomerName,
			j.SaleAmount,
			j.EstimatedCost,
			j.ActualCost,
			models.RoundCents(j.Markup * 100),
			j.AddOnTotal,
			j.CreatedAt.Format(dateLayout),
		}
		if err := f.SetSheetRow(jobsSheet, cell, &row); err != nil {
			return err
		}
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}
	if len(r.Jobs) > 0 {
		last := fmt.Sprintf("F%d", len(r.Jobs)+1)
		if err := f.SetCellStyle(jobsSheet, "D2", last, money); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "B5", "B6", money); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	_, err = f.WriteTo(w)
	return err
}
