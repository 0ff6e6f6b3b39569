package workflow

import (
	"context"

	"github.com/diewo77/go-submittals/internal/models"
)

// Store is the persistence contract the engine relies on.
// Find methods return (nil, nil) when the record does not exist.
type Store interface {
	FindCustomer(ctx context.Context, email, phone string) (*models.Customer, error)
	GetCustomer(ctx context.Context, id uint) (*models.Customer, error)
	InsertCustomer(ctx context.Context, c *models.Customer) error

	FindSubmittal(ctx context.Context, id uint) (*models.Submittal, error)
	InsertSubmittal(ctx context.Context, s *models.Submittal) error
	UpdateSubmittal(ctx context.Context, id uint, patch SubmittalPatch) error
	DeleteSubmittal(ctx context.Context, id uint) error

	FindOption(ctx context.Context, id uint) (*models.QuoteOption, error)
	InsertOption(ctx context.Context, o *models.QuoteOption) error
	DeleteOption(ctx context.Context, id uint) error
	DeleteOptions(ctx context.Context, submittalID uint) error

	// FindJob looks a job up by its submittal.
	FindJob(ctx context.Context, submittalID uint) (*models.Job, error)
	// UpsertJob inserts or updates the job keyed on submittal_id.
	UpsertJob(ctx context.Context, j *models.Job) error
	// DeleteJob removes the submittal's job together with its add-ons.
	DeleteJob(ctx context.Context, submittalID uint) error
}

// Transactor is implemented by stores that can run several writes atomically.
// fn receives a Store bound to the transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(s Store) error) error
}

// SubmittalPatch lists the mutable submittal columns; nil fields are left untouched.
type SubmittalPatch struct {
	Status     *models.SubmittalStatus
	PDFURL     *string
	CustomerID *uint
}

// Sequencer issues distinct, increasing quote sequence values. Gaps are allowed.
type Sequencer interface {
	Next(ctx context.Context) (int64, error)
}

// Notifier receives workflow events after they are committed.
type Notifier interface {
	Publish(ctx context.Context, event string, payload any) error
}

// Event names.
const (
	EventSubmittalCreated = "submittal.created"
	EventSubmittalWon     = "submittal.won"
	EventWinnerChanged    = "submittal.winner_changed"
	EventSubmittalDeleted = "submittal.deleted"
	EventWinnerReverted   = "submittal.reverted"
)

// EventPayload is what the engine hands to the Notifier.
type EventPayload struct {
	SubmittalID  uint                   `json:"submittal_id"`
	QuoteNumber  string                 `json:"quote_number,omitempty"`
	JobName      string                 `json:"job_name,omitempty"`
	Status       models.SubmittalStatus `json:"status,omitempty"`
	CustomerName string                 `json:"customer_name,omitempty"`
	JobID        uint                   `json:"job_id,omitempty"`
	OptionID     uint                   `json:"option_id,omitempty"`
	SaleAmount   float64                `json:"sale_amount,omitempty"`
}

// EntityID lets event sinks index the payload by submittal.
func (p EventPayload) EntityID() uint { return p.SubmittalID }

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, string, any) error { return nil }
