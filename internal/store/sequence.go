package store

import (
	"context"
	"sync"

	"github.com/diewo77/go-submittals/internal/models"
	"gorm.io/gorm"
)

// TableSequence is a counter kept in the quote_sequences table, for
// databases without native sequences (sqlite in development and tests).
type TableSequence struct {
	db    *gorm.DB
	name  string
	start int64

	mu sync.Mutex
}

// NewTableSequence returns a counter whose first value is start.
func NewTableSequence(db *gorm.DB, name string, start int64) *TableSequence {
	return &TableSequence{db: db, name: name, start: start}
}

// Next increments and returns the counter.
func (q *TableSequence) Next(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var value int64
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.QuoteSequence{}).
			Where("name = ?", q.name).
			UpdateColumn("value", gorm.Expr("value + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			value = q.start
			return tx.Create(&models.QuoteSequence{Name: q.name, Value: q.start}).Error
		}
		var row models.QuoteSequence
		if err := tx.Where("name = ?", q.name).First(&row).Error; err != nil {
			return err
		}
		value = row.Value
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}
