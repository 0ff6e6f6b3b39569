package services

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/go-submittals/internal/models"
	"gorm.io/gorm"
)

// SubmittalService answers read-side questions about submittals.
// Writes go through workflow.Engine.
type SubmittalService struct {
	DB *gorm.DB
}

func NewSubmittalService(db *gorm.DB) *SubmittalService {
	return &SubmittalService{DB: db}
}

// SubmittalFilter narrows List. Zero values mean "no filter".
type SubmittalFilter struct {
	Status models.SubmittalStatus
	Query  string
	Limit  int
	Offset int
}

// List returns a page of submittals, newest first, with the total match count.
func (s *SubmittalService) List(ctx context.Context, f SubmittalFilter) ([]models.Submittal, int64, error) {
	const op = "list_submittals"
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	term := strings.ToLower(strings.TrimSpace(f.Query))
	filtered := func() *gorm.DB {
		q := s.DB.WithContext(ctx).Model(&models.Submittal{})
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if term != "" {
			like := "%" + term + "%"
			q = q.Where("LOWER(job_name) LIKE ? OR LOWER(quote_number) LIKE ?", like, like)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, storeFailure(op, err)
	}
	var items []models.Submittal
	err := filtered().Preload("Customer").Preload("Job").
		Order("created_at DESC, id DESC").
		Limit(f.Limit).Offset(f.Offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, storeFailure(op, err)
	}
	return items, total, nil
}

// Get loads a submittal with its customer, options, job and add-ons.
func (s *SubmittalService) Get(ctx context.Context, id uint) (*models.Submittal, error) {
	const op = "get_submittal"
	var sub models.Submittal
	err := s.DB.WithContext(ctx).
		Preload("Customer").
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Job.AddOns").
		First(&sub, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(op, "submittal")
	}
	if err != nil {
		return nil, storeFailure(op, err)
	}
	return &sub, nil
}

// RecentPending returns the newest submittals still waiting on a winner.
func (s *SubmittalService) RecentPending(ctx context.Context, limit int) ([]models.Submittal, error) {
	var items []models.Submittal
	err := s.DB.WithContext(ctx).
		Preload("Customer").
		Where("status = ?", models.SubmittalStatusPending).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, storeFailure("recent_pending", err)
	}
	return items, nil
}

// SelectedOptions returns the submittal's options with the given ids, in
// the order requested. Every id must belong to the submittal.
func (s *SubmittalService) SelectedOptions(ctx context.Context, sub *models.Submittal, ids []uint) ([]models.QuoteOption, error) {
	const op = "selected_options"
	byID := make(map[uint]models.QuoteOption, len(sub.Options))
	for _, o := range sub.Options {
		byID[o.ID] = o
	}
	out := make([]models.QuoteOption, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		o, ok := byID[id]
		if !ok {
			return nil, invalidReference(op, "option does not belong to this submittal")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, o)
	}
	return out, nil
}
