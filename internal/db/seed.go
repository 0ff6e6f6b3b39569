package db

import (
	"errors"

	"github.com/diewo77/go-submittals/internal/models"
	"gorm.io/gorm"
)

// DefaultManufacturers is the baseline manufacturer list.
var DefaultManufacturers = []string{
	"ASI Global Partitions",
	"Bobrick",
	"Bradley",
	"General Partitions",
	"Hadrian",
	"Scranton Products",
}

// Seed inserts reference data. It is safe to run repeatedly.
func Seed(db *gorm.DB) error {
	for _, name := range DefaultManufacturers {
		var existing models.Manufacturer
		err := db.Where("name = ?", name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&models.Manufacturer{Name: name}).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
