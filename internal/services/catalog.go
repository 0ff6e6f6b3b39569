package services

import (
	"context"
	"strings"

	"github.com/diewo77/go-submittals/internal/models"
	"github.com/diewo77/go-submittals/validation"
	"gorm.io/gorm"
)

// CatalogService manages the manufacturer list.
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

func (s *CatalogService) ListManufacturers(ctx context.Context) ([]models.Manufacturer, error) {
	var list []models.Manufacturer
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, storeFailure("list_manufacturers", err)
	}
	return list, nil
}

// CreateManufacturer adds a manufacturer; names are unique ignoring case.
func (s *CatalogService) CreateManufacturer(ctx context.Context, name string) (*models.Manufacturer, error) {
	const op = "create_manufacturer"
	name = strings.Join(strings.Fields(name), " ")

	v := make(validation.Violations)
	validation.Required("name", name, v)
	if !v.Empty() {
		return nil, invalid(op, v)
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Manufacturer{}).Where("LOWER(name) = ?", strings.ToLower(name)).Count(&count).Error; err != nil {
		return nil, storeFailure(op, err)
	}
	if count > 0 {
		return nil, conflict(op, "manufacturer already exists")
	}
	m := models.Manufacturer{Name: name}
	if err := s.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, storeFailure(op, err)
	}
	return &m, nil
}
