package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/diewo77/go-submittals/internal/models"
	"github.com/diewo77/go-submittals/validation"
	"gorm.io/gorm"
)

// JobService manages post-sale data: cost tracking and add-on materials.
// The sale amount is owned by the workflow and never edited here.
type JobService struct {
	DB *gorm.DB
}

func NewJobService(db *gorm.DB) *JobService {
	return &JobService{DB: db}
}

// JobRow is a job joined with what the jobs table shows.
type JobRow struct {
	models.Job
	QuoteNumber    string              `json:"quote_number"`
	JobName        string              `json:"job_name"`
	CustomerName   string              `json:"customer_name"`
	AcceptedOption *models.QuoteOption `json:"accepted_option,omitempty"`
	Markup         float64             `json:"markup"`
	AddOnTotal     float64             `json:"add_on_total"`
}

func newJobRow(j models.Job) JobRow {
	row := JobRow{Job: j, Markup: j.Markup(), AddOnTotal: j.AddOnTotal()}
	if sub := j.Submittal; sub != nil {
		row.QuoteNumber = sub.QuoteNumber
		row.JobName = sub.JobName
		if sub.Customer != nil {
			row.CustomerName = sub.Customer.FullName()
		}
		for i := range sub.Options {
			if sub.Options[i].ID == j.AcceptedOptionID {
				opt := sub.Options[i]
				row.AcceptedOption = &opt
				break
			}
		}
		row.Job.Submittal = nil
	}
	return row
}

// List returns every job, newest first.
func (s *JobService) List(ctx context.Context) ([]JobRow, error) {
	var jobs []models.Job
	err := s.DB.WithContext(ctx).
		Preload("Submittal.Customer").
		Preload("Submittal.Options").
		Preload("AddOns").
		Order("created_at DESC, id DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, storeFailure("list_jobs", err)
	}
	rows := make([]JobRow, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, newJobRow(j))
	}
	return rows, nil
}

// FinancialsInput carries cost edits; nil fields are left as they are.
type FinancialsInput struct {
	EstimatedCost *float64 `json:"estimated_cost"`
	ActualCost    *float64 `json:"actual_cost"`
}

// UpdateFinancials sets a job's estimated and/or actual cost.
func (s *JobService) UpdateFinancials(ctx context.Context, jobID uint, in FinancialsInput) (*models.Job, error) {
	const op = "update_job_financials"

	v := make(validation.Violations)
	updates := map[string]any{}
	if in.EstimatedCost != nil {
		validation.NonNegativeFloat("estimated_cost", *in.EstimatedCost, v)
		updates["estimated_cost"] = models.RoundCents(*in.EstimatedCost)
	}
	if in.ActualCost != nil {
		validation.NonNegativeFloat("actual_cost", *in.ActualCost, v)
		updates["actual_cost"] = models.RoundCents(*in.ActualCost)
	}
	if len(updates) == 0 {
		v["estimated_cost"] = "required"
	}
	if !v.Empty() {
		return nil, invalid(op, v)
	}

	var job models.Job
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&job, jobID).Error; err != nil {
			return err
		}
		updates["updated_at"] = time.Now()
		if err := tx.Model(&job).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&job, jobID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(op, "job")
	}
	if err != nil {
		return nil, storeFailure(op, err)
	}
	return &job, nil
}

// AddOnInput is extra material recorded against a job.
type AddOnInput struct {
	Material      string  `json:"material"`
	MountingStyle string  `json:"mounting_style"`
	Quantity      int     `json:"quantity"`
	Manufacturer  string  `json:"manufacturer"`
	Color         string  `json:"color"`
	Price         float64 `json:"price"`
	ShippingArea  string  `json:"shipping_area"`
	Reason        string  `json:"reason"`
}

// AddAddOn records post-sale material on a job.
func (s *JobService) AddAddOn(ctx context.Context, jobID uint, in AddOnInput) (*models.AddOn, error) {
	const op = "add_add_on"

	v := make(validation.Violations)
	validation.Required("material", in.Material, v)
	validation.NonNegativeFloat("price", in.Price, v)
	validation.NonNegativeInt("quantity", in.Quantity, v)
	if !v.Empty() {
		return nil, invalid(op, v)
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Job{}).Where("id = ?", jobID).Count(&count).Error; err != nil {
		return nil, storeFailure(op, err)
	}
	if count == 0 {
		return nil, notFound(op, "job")
	}

	addOn := models.AddOn{
		JobID:         jobID,
		Material:      strings.TrimSpace(in.Material),
		MountingStyle: strings.TrimSpace(in.MountingStyle),
		Quantity:      in.Quantity,
		Manufacturer:  strings.TrimSpace(in.Manufacturer),
		Color:         strings.TrimSpace(in.Color),
		Price:         models.RoundCents(in.Price),
		ShippingArea:  strings.TrimSpace(in.ShippingArea),
		Reason:        strings.TrimSpace(in.Reason),
	}
	if addOn.Color == "" {
		addOn.Color = models.DefaultColor
	}
	if err := s.DB.WithContext(ctx).Create(&addOn).Error; err != nil {
		return nil, storeFailure(op, err)
	}
	return &addOn, nil
}
