// Package store implements the workflow persistence contract on gorm.
package store

import (
	"context"
	"time"

	"github.com/diewo77/go-submittals/internal/models"
	"github.com/diewo77/go-submittals/internal/workflow"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is a workflow.Store and workflow.Transactor backed by gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var (
	_ workflow.Store      = (*GormStore)(nil)
	_ workflow.Transactor = (*GormStore)(nil)
)

// Transaction runs fn against a store bound to a single database transaction.
func (s *GormStore) Transaction(ctx context.Context, fn func(workflow.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// first loads a single row. A miss is (false, nil) and is not logged by gorm.
func first(q *gorm.DB, dest any) (bool, error) {
	res := q.Limit(1).Find(dest)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ─────────────────────────────────────────────────────────────────────────
// Customers
// ─────────────────────────────────────────────────────────────────────────

func (s *GormStore) FindCustomer(ctx context.Context, email, phone string) (*models.Customer, error) {
	q := s.db.WithContext(ctx).Order("id ASC")
	if email != "" {
		q = q.Where("email = ? OR phone = ?", email, phone)
	} else {
		q = q.Where("phone = ?", phone)
	}
	var c models.Customer
	ok, err := first(q, &c)
	if !ok {
		return nil, err
	}
	return &c, nil
}

func (s *GormStore) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	ok, err := first(s.db.WithContext(ctx).Where("id = ?", id), &c)
	if !ok {
		return nil, err
	}
	return &c, nil
}

func (s *GormStore) InsertCustomer(ctx context.Context, c *models.Customer) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

// ─────────────────────────────────────────────────────────────────────────
// Submittals
// ─────────────────────────────────────────────────────────────────────────

func (s *GormStore) FindSubmittal(ctx context.Context, id uint) (*models.Submittal, error) {
	var sub models.Submittal
	ok, err := first(s.db.WithContext(ctx).Where("id = ?", id), &sub)
	if !ok {
		return nil, err
	}
	return &sub, nil
}

func (s *GormStore) InsertSubmittal(ctx context.Context, sub *models.Submittal) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(sub).Error
}

func (s *GormStore) UpdateSubmittal(ctx context.Context, id uint, patch workflow.SubmittalPatch) error {
	updates := map[string]any{}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.PDFURL != nil {
		updates["pdf_url"] = *patch.PDFURL
	}
	if patch.CustomerID != nil {
		updates["customer_id"] = *patch.CustomerID
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return s.db.WithContext(ctx).Model(&models.Submittal{}).Where("id = ?", id).Updates(updates).Error
}

func (s *GormStore) DeleteSubmittal(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Submittal{}).Error
}

// ─────────────────────────────────────────────────────────────────────────
// Quote options
// ─────────────────────────────────────────────────────────────────────────

func (s *GormStore) FindOption(ctx context.Context, id uint) (*models.QuoteOption, error) {
	var o models.QuoteOption
	ok, err := first(s.db.WithContext(ctx).Where("id = ?", id), &o)
	if !ok {
		return nil, err
	}
	return &o, nil
}

func (s *GormStore) InsertOption(ctx context.Context, o *models.QuoteOption) error {
	return s.db.WithContext(ctx).Create(o).Error
}

func (s *GormStore) DeleteOption(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.QuoteOption{}).Error
}

func (s *GormStore) DeleteOptions(ctx context.Context, submittalID uint) error {
	return s.db.WithContext(ctx).Where("submittal_id = ?", submittalID).Delete(&models.QuoteOption{}).Error
}

// ─────────────────────────────────────────────────────────────────────────
// Jobs
// ─────────────────────────────────────────────────────────────────────────

func (s *GormStore) FindJob(ctx context.Context, submittalID uint) (*models.Job, error) {
	var j models.Job
	ok, err := first(s.db.WithContext(ctx).Where("submittal_id = ?", submittalID), &j)
	if !ok {
		return nil, err
	}
	return &j, nil
}

// UpsertJob updates by primary key when the job already has one, otherwise
// inserts with an ON CONFLICT (submittal_id) update.
func (s *GormStore) UpsertJob(ctx context.Context, j *models.Job) error {
	db := s.db.WithContext(ctx)
	now := time.Now()
	if j.ID != 0 {
		res := db.Model(&models.Job{}).Where("id = ?", j.ID).Updates(map[string]any{
			"accepted_option_id": j.AcceptedOptionID,
			"sale_amount":        j.SaleAmount,
			"estimated_cost":     j.EstimatedCost,
			"actual_cost":        j.ActualCost,
			"updated_at":         now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			j.UpdatedAt = now
			return nil
		}
		j.ID = 0
	}
	return db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submittal_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"accepted_option_id", "sale_amount", "estimated_cost", "actual_cost", "updated_at"}),
	}).Create(j).Error
}

func (s *GormStore) DeleteJob(ctx context.Context, submittalID uint) error {
	db := s.db.WithContext(ctx)
	jobIDs := db.Model(&models.Job{}).Select("id").Where("submittal_id = ?", submittalID)
	if err := db.Where("job_id IN (?)", jobIDs).Delete(&models.AddOn{}).Error; err != nil {
		return err
	}
	return db.Where("submittal_id = ?", submittalID).Delete(&models.Job{}).Error
}
