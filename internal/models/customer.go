package models

import (
	"strings"
	"time"
)

// Customer is the identity record behind one or more submittals.
// Customers are looked up by email or digits-only phone and never deleted by the workflow.
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FirstName string `gorm:"size:100" json:"first_name"`
	LastName  string `gorm:"size:100" json:"last_name"`
	Email     string `gorm:"size:255;index" json:"email,omitempty"`
	// Phone holds digits only.
	Phone string `gorm:"size:20;index" json:"phone"`

	Submittals []Submittal `gorm:"foreignKey:CustomerID" json:"submittals,omitempty"`
}

// FullName joins first and last name, skipping blanks.
func (c *Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}
