package models

import (
	"math"
	"time"
)

// SubmittalStatus represents where a submittal sits in the quoting lifecycle.
type SubmittalStatus string

const (
	SubmittalStatusPending SubmittalStatus = "Pending"
	SubmittalStatusWon     SubmittalStatus = "Won"
)

// Default values applied to incoming data.
const (
	DefaultJobName      = "Online Request"
	DefaultColor        = "TBD"
	DefaultShippingArea = "Includes Shipping"
)

// Submittal is a customer's quote request.
type Submittal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	JobName     string          `gorm:"size:255;not null" json:"job_name"`
	QuoteNumber string          `gorm:"size:50;uniqueIndex;not null" json:"quote_number"`
	Status      SubmittalStatus `gorm:"size:20;not null;default:'Pending';index" json:"status"`
	PDFURL      string          `gorm:"size:1024" json:"pdf_url,omitempty"`
	Notes       string          `gorm:"type:text" json:"notes,omitempty"`

	CustomerID uint      `gorm:"index;not null" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	Options []QuoteOption `gorm:"foreignKey:SubmittalID" json:"options,omitempty"`
	Job     *Job          `gorm:"foreignKey:SubmittalID" json:"job,omitempty"`
}

// IsWon reports whether a winning option has been selected.
func (s *Submittal) IsWon() bool {
	return s.Status == SubmittalStatusWon
}

// QuoteOption is one priced material alternative under a submittal.
type QuoteOption struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SubmittalID uint `gorm:"index;not null" json:"submittal_id"`

	Material      string  `gorm:"size:255" json:"material"`
	MountingStyle string  `gorm:"size:255" json:"mounting_style,omitempty"`
	Quantity      int     `gorm:"not null;default:0" json:"quantity"`
	Manufacturer  string  `gorm:"size:255" json:"manufacturer,omitempty"`
	Color         string  `gorm:"size:100" json:"color,omitempty"`
	Price         float64 `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	ShippingArea  string  `gorm:"size:255" json:"shipping_area,omitempty"`
}

// ApplyDefaults fills blank descriptive fields and rounds the price to cents.
func (o *QuoteOption) ApplyDefaults() {
	if o.Color == "" {
		o.Color = DefaultColor
	}
	if o.ShippingArea == "" {
		o.ShippingArea = DefaultShippingArea
	}
	o.Price = RoundCents(o.Price)
}

// RoundCents rounds a currency amount to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
