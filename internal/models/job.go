package models

import "time"

// Job is the realized sale created when a quote option wins.
type Job struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// SubmittalID is unique: a submittal has at most one job.
	SubmittalID uint       `gorm:"uniqueIndex;not null" json:"submittal_id"`
	Submittal   *Submittal `gorm:"foreignKey:SubmittalID" json:"submittal,omitempty"`

	// AcceptedOptionID carries no database constraint; the workflow keeps it
	// pointing at an option of the same submittal.
	AcceptedOptionID uint `gorm:"index;not null" json:"accepted_option_id"`

	SaleAmount    float64 `gorm:"type:decimal(12,2);not null;default:0" json:"sale_amount"`
	EstimatedCost float64 `gorm:"type:decimal(12,2);not null;default:0" json:"estimated_cost"`
	ActualCost    float64 `gorm:"type:decimal(12,2);not null;default:0" json:"actual_cost"`

	AddOns []AddOn `gorm:"foreignKey:JobID" json:"add_ons,omitempty"`
}

// Markup returns (sale - estimated cost) / sale, or 0 when there is no sale amount.
func (j *Job) Markup() float64 {
	if j.SaleAmount == 0 {
		return 0
	}
	return (j.SaleAmount - j.EstimatedCost) / j.SaleAmount
}

// Margin returns the absolute difference between sale amount and estimated cost.
func (j *Job) Margin() float64 {
	return RoundCents(j.SaleAmount - j.EstimatedCost)
}

// AddOnTotal sums the price of every add-on recorded against the job.
func (j *Job) AddOnTotal() float64 {
	var total float64
	for _, a := range j.AddOns {
		total += a.Price
	}
	return RoundCents(total)
}

// AddOn is extra material recorded against a job after the sale.
type AddOn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	JobID uint `gorm:"index;not null" json:"job_id"`

	Material      string  `gorm:"size:255;not null" json:"material"`
	MountingStyle string  `gorm:"size:255" json:"mounting_style,omitempty"`
	Quantity      int     `gorm:"not null;default:0" json:"quantity"`
	Manufacturer  string  `gorm:"size:255" json:"manufacturer,omitempty"`
	Color         string  `gorm:"size:100" json:"color,omitempty"`
	Price         float64 `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	ShippingArea  string  `gorm:"size:255" json:"shipping_area,omitempty"`
	Reason        string  `gorm:"type:text" json:"reason,omitempty"`
}
