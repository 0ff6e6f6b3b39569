package services

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/go-submittals/internal/models"
	"github.com/diewo77/go-submittals/internal/workflow"
	"gorm.io/gorm"
)

type CustomerService struct {
	DB *gorm.DB
}

func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{DB: db}
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Search matches q as a substring of name or email, or of the phone digits.
// Results are ordered by last name; there is no relevance ranking.
func (s *CustomerService) Search(ctx context.Context, q string, limit int) ([]models.Customer, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	db := s.DB.WithContext(ctx).Order("last_name ASC, first_name ASC, id ASC").Limit(limit)

	term := strings.ToLower(strings.TrimSpace(q))
	if term != "" {
		like := "%" + likeEscaper.Replace(term) + "%"
		cond := `LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`
		args := []any{like, like, like}
		if digits := workflow.NormalizePhone(term); digits != "" {
			cond += " OR phone LIKE ?"
			args = append(args, "%"+digits+"%")
		}
		db = db.Where(cond, args...)
	}

	var customers []models.Customer
	if err := db.Find(&customers).Error; err != nil {
		return nil, storeFailure("search_customers", err)
	}
	return customers, nil
}

// CustomerHistory splits a customer's submittals by outcome.
type CustomerHistory struct {
	Customer   models.Customer    `json:"customer"`
	OpenQuotes []models.Submittal `json:"open_quotes"`
	WonJobs    []models.Submittal `json:"won_jobs"`
}

func (s *CustomerService) History(ctx context.Context, id uint) (*CustomerHistory, error) {
	const op = "customer_history"
	var c models.Customer
	err := s.DB.WithContext(ctx).
		Preload("Submittals", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") }).
		Preload("Submittals.Job").
		First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(op, "customer")
	}
	if err != nil {
		return nil, storeFailure(op, err)
	}

	h := &CustomerHistory{OpenQuotes: []models.Submittal{}, WonJobs: []models.Submittal{}}
	for _, sub := range c.Submittals {
		if sub.Job != nil {
			h.WonJobs = append(h.WonJobs, sub)
		} else {
			h.OpenQuotes = append(h.OpenQuotes, sub)
		}
	}
	c.Submittals = nil
	h.Customer = c
	return h, nil
}
