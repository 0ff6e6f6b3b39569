// Package workflow owns the submittal lifecycle: intake, quote options,
// winner selection into a job, and cascading deletion.
//
// The engine guarantees:
//   - a submittal has at most one job;
//   - a job's accepted option belongs to the job's submittal;
//   - a submittal is Won exactly when it has a job;
//   - a quote number is assigned once, at creation, from the Sequencer.
package workflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/diewo77/go-submittals/internal/models"
	"github.com/diewo77/go-submittals/validation"
)

// MessageWinnerLocked is returned when deleting the accepted option.
const MessageWinnerLocked = "cannot delete the selected winner without first selecting a new winner or deleting the job"

// Engine runs workflow operations against injected collaborators.
type Engine struct {
	store    Store
	seq      Sequencer
	notifier Notifier
}

// New builds an Engine. A nil notifier discards events.
func New(store Store, seq Sequencer, notifier Notifier) *Engine {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Engine{store: store, seq: seq, notifier: notifier}
}

// CustomerInput identifies the person behind a submittal.
type CustomerInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// SubmittalInput is the payload for CreateSubmittal.
// Suffix is appended to the sequence value to form the quote number.
type SubmittalInput struct {
	Customer CustomerInput
	JobName  string
	Notes    string
	Suffix   string
}

// OptionInput is the payload for AddQuoteOption.
type OptionInput struct {
	Material      string  `json:"material"`
	MountingStyle string  `json:"mounting_style"`
	Quantity      int     `json:"quantity"`
	Manufacturer  string  `json:"manufacturer"`
	Color         string  `json:"color"`
	Price         float64 `json:"price"`
	ShippingArea  string  `json:"shipping_area"`
}

// WinnerInput is the payload for SelectWinner.
// EstimatedCost only applies when a job is first created; it defaults to 0.
type WinnerInput struct {
	SubmittalID   uint
	OptionID      uint
	EstimatedCost *float64
}

// CreateSubmittal registers a new quote request in Pending status,
// reusing an existing customer matched by email or phone.
func (e *Engine) CreateSubmittal(ctx context.Context, in SubmittalInput) (*models.Submittal, error) {
	const op = "create_submittal"

	phone := NormalizePhone(in.Customer.Phone)
	email := strings.TrimSpace(in.Customer.Email)
	suffix := strings.TrimSpace(in.Suffix)

	v := make(validation.Violations)
	validation.MinDigits("phone", phone, MinPhoneDigits, v)
	validation.Required("suffix", suffix, v)
	if !v.Empty() {
		return nil, validationError(op, v)
	}

	jobName := strings.TrimSpace(in.JobName)
	if jobName == "" {
		jobName = models.DefaultJobName
	}

	// The sequence is drawn outside the unit of work so a rolled back
	// transaction only leaves a gap, never a reused number.
	seq, err := e.seq.Next(ctx)
	if err != nil {
		return nil, sequenceError(op, err)
	}

	sub := &models.Submittal{
		JobName:     jobName,
		QuoteNumber: fmt.Sprintf("%d%s", seq, suffix),
		Status:      models.SubmittalStatusPending,
		Notes:       strings.TrimSpace(in.Notes),
	}
	var customer *models.Customer

	err = e.unit(ctx, func(s Store, _ bool) error {
		c, err := s.FindCustomer(ctx, email, phone)
		if err != nil {
			return storeError(op, err)
		}
		if c == nil {
			c = &models.Customer{
				FirstName: strings.TrimSpace(in.Customer.FirstName),
				LastName:  strings.TrimSpace(in.Customer.LastName),
				Email:     email,
				Phone:     phone,
			}
			if err := s.InsertCustomer(ctx, c); err != nil {
				return storeError(op, err)
			}
		}
		customer = c
		sub.CustomerID = c.ID
		if err := s.InsertSubmittal(ctx, sub); err != nil {
			return storeError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, asError(op, err)
	}
	sub.Customer = customer

	e.publish(ctx, EventSubmittalCreated, EventPayload{
		SubmittalID:  sub.ID,
		QuoteNumber:  sub.QuoteNumber,
		JobName:      sub.JobName,
		Status:       sub.Status,
		CustomerName: customer.FullName(),
	})
	return sub, nil
}

// AddQuoteOption attaches a priced alternative to a submittal. There is no
// limit on the number of options.
func (e *Engine) AddQuoteOption(ctx context.Context, submittalID uint, in OptionInput) (*models.QuoteOption, error) {
	const op = "add_quote_option"

	v := make(validation.Violations)
	validation.NonNegativeFloat("price", in.Price, v)
	validation.NonNegativeInt("quantity", in.Quantity, v)
	if !v.Empty() {
		return nil, validationError(op, v)
	}

	sub, err := e.store.FindSubmittal(ctx, submittalID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if sub == nil {
		return nil, notFound(op, "submittal")
	}

	opt := &models.QuoteOption{
		SubmittalID:   sub.ID,
		Material:      strings.TrimSpace(in.Material),
		MountingStyle: strings.TrimSpace(in.MountingStyle),
		Quantity:      in.Quantity,
		Manufacturer:  strings.TrimSpace(in.Manufacturer),
		Color:         strings.TrimSpace(in.Color),
		Price:         in.Price,
		ShippingArea:  strings.TrimSpace(in.ShippingArea),
	}
	opt.ApplyDefaults()
	if err := e.store.InsertOption(ctx, opt); err != nil {
		return nil, storeError(op, err)
	}
	return opt, nil
}

// SelectWinner converts the given option into the submittal's job, or moves
// an existing job onto it. Re-selecting the current winner changes nothing.
func (e *Engine) SelectWinner(ctx context.Context, in WinnerInput) (*models.Job, error) {
	const op = "select_winner"

	if in.EstimatedCost != nil {
		v := make(validation.Violations)
		validation.NonNegativeFloat("estimated_cost", *in.EstimatedCost, v)
		if !v.Empty() {
			return nil, validationError(op, v)
		}
	}

	var (
		job     *models.Job
		sub     *models.Submittal
		event   string
		changed bool
	)
	err := e.unit(ctx, func(s Store, atomic bool) error {
		var err error
		sub, err = s.FindSubmittal(ctx, in.SubmittalID)
		if err != nil {
			return storeError(op, err)
		}
		if sub == nil {
			return notFound(op, "submittal")
		}
		opt, err := s.FindOption(ctx, in.OptionID)
		if err != nil {
			return storeError(op, err)
		}
		if opt == nil || opt.SubmittalID != sub.ID {
			return invalidReference(op, "option does not belong to this submittal")
		}

		prev, err := s.FindJob(ctx, sub.ID)
		if err != nil {
			return storeError(op, err)
		}
		if prev != nil && prev.AcceptedOptionID == opt.ID {
			job = prev
			if !sub.IsWon() {
				// Status drifted from the job; bring it back in line.
				return setStatus(ctx, s, op, sub.ID, models.SubmittalStatusWon)
			}
			return nil
		}

		next := &models.Job{
			SubmittalID:      sub.ID,
			AcceptedOptionID: opt.ID,
			SaleAmount:       models.RoundCents(opt.Price),
		}
		event = EventSubmittalWon
		if prev != nil {
			next.ID = prev.ID
			next.CreatedAt = prev.CreatedAt
			next.EstimatedCost = prev.EstimatedCost
			next.ActualCost = prev.ActualCost
			event = EventWinnerChanged
		} else if in.EstimatedCost != nil {
			next.EstimatedCost = models.RoundCents(*in.EstimatedCost)
		}

		if err := s.UpsertJob(ctx, next); err != nil {
			return storeError(op, err)
		}
		if err := setStatus(ctx, s, op, sub.ID, models.SubmittalStatusWon); err != nil {
			if !atomic {
				e.compensateJob(ctx, s, prev, next)
			}
			return err
		}
		job = next
		changed = true
		return nil
	})
	if err != nil {
		return nil, asError(op, err)
	}

	if changed {
		e.publish(ctx, event, EventPayload{
			SubmittalID: sub.ID,
			QuoteNumber: sub.QuoteNumber,
			JobName:     sub.JobName,
			Status:      models.SubmittalStatusWon,
			JobID:       job.ID,
			OptionID:    job.AcceptedOptionID,
			SaleAmount:  job.SaleAmount,
		})
	}
	return job, nil
}

// compensateJob undoes a job write whose status update failed on a store
// without transactions. prev is nil when the job was newly created.
func (e *Engine) compensateJob(ctx context.Context, s Store, prev, written *models.Job) {
	var err error
	if prev == nil {
		err = s.DeleteJob(ctx, written.SubmittalID)
	} else {
		err = s.UpsertJob(ctx, prev)
	}
	if err != nil {
		log.Printf("[workflow] compensation failed for submittal %d: %v", written.SubmittalID, err)
	}
}

// RevertWinner deletes the submittal's job and returns it to Pending.
func (e *Engine) RevertWinner(ctx context.Context, submittalID uint) error {
	const op = "revert_winner"

	var sub *models.Submittal
	err := e.unit(ctx, func(s Store, atomic bool) error {
		var err error
		sub, err = s.FindSubmittal(ctx, submittalID)
		if err != nil {
			return storeError(op, err)
		}
		if sub == nil {
			return notFound(op, "submittal")
		}
		job, err := s.FindJob(ctx, sub.ID)
		if err != nil {
			return storeError(op, err)
		}
		if job == nil {
			return notFound(op, "job")
		}

		// Status goes first: if the job delete fails afterwards, the status is
		// restored and nothing was lost.
		if err := setStatus(ctx, s, op, sub.ID, models.SubmittalStatusPending); err != nil {
			return err
		}
		if err := s.DeleteJob(ctx, sub.ID); err != nil {
			if !atomic {
				if rerr := setStatus(ctx, s, op, sub.ID, models.SubmittalStatusWon); rerr != nil {
					log.Printf("[workflow] compensation failed for submittal %d: %v", sub.ID, rerr)
				}
			}
			return storeError(op, err)
		}
		return nil
	})
	if err != nil {
		return asError(op, err)
	}

	e.publish(ctx, EventWinnerReverted, EventPayload{
		SubmittalID: sub.ID,
		QuoteNumber: sub.QuoteNumber,
		Status:      models.SubmittalStatusPending,
	})
	return nil
}

// DeleteSubmittal removes a submittal with its options and job.
func (e *Engine) DeleteSubmittal(ctx context.Context, submittalID uint) error {
	const op = "delete_submittal"

	var sub *models.Submittal
	err := e.unit(ctx, func(s Store, _ bool) error {
		var err error
		sub, err = s.FindSubmittal(ctx, submittalID)
		if err != nil {
			return storeError(op, err)
		}
		if sub == nil {
			return notFound(op, "submittal")
		}
		if err := s.DeleteOptions(ctx, sub.ID); err != nil {
			return storeError(op, err)
		}
		if err := s.DeleteJob(ctx, sub.ID); err != nil {
			return storeError(op, err)
		}
		if err := s.DeleteSubmittal(ctx, sub.ID); err != nil {
			return storeError(op, err)
		}
		return nil
	})
	if err != nil {
		return asError(op, err)
	}

	e.publish(ctx, EventSubmittalDeleted, EventPayload{SubmittalID: sub.ID, QuoteNumber: sub.QuoteNumber})
	return nil
}

// DeleteQuoteOption removes an option unless it is the accepted winner.
func (e *Engine) DeleteQuoteOption(ctx context.Context, optionID uint) error {
	const op = "delete_quote_option"

	err := e.unit(ctx, func(s Store, _ bool) error {
		opt, err := s.FindOption(ctx, optionID)
		if err != nil {
			return storeError(op, err)
		}
		if opt == nil {
			return notFound(op, "option")
		}
		job, err := s.FindJob(ctx, opt.SubmittalID)
		if err != nil {
			return storeError(op, err)
		}
		if job != nil && job.AcceptedOptionID == opt.ID {
			return conflict(op, MessageWinnerLocked)
		}
		if err := s.DeleteOption(ctx, opt.ID); err != nil {
			return storeError(op, err)
		}
		return nil
	})
	if err != nil {
		return asError(op, err)
	}
	return nil
}

// AttachDocument records the URL of an uploaded request document.
func (e *Engine) AttachDocument(ctx context.Context, submittalID uint, url string) error {
	const op = "attach_document"

	sub, err := e.store.FindSubmittal(ctx, submittalID)
	if err != nil {
		return storeError(op, err)
	}
	if sub == nil {
		return notFound(op, "submittal")
	}
	if err := e.store.UpdateSubmittal(ctx, sub.ID, SubmittalPatch{PDFURL: &url}); err != nil {
		return storeError(op, err)
	}
	return nil
}

// LinkCustomer points a submittal at another existing customer.
func (e *Engine) LinkCustomer(ctx context.Context, submittalID, customerID uint) (*models.Submittal, error) {
	const op = "link_customer"

	sub, err := e.store.FindSubmittal(ctx, submittalID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if sub == nil {
		return nil, notFound(op, "submittal")
	}
	c, err := e.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if c == nil {
		return nil, notFound(op, "customer")
	}
	if err := e.store.UpdateSubmittal(ctx, sub.ID, SubmittalPatch{CustomerID: &c.ID}); err != nil {
		return nil, storeError(op, err)
	}
	sub.CustomerID = c.ID
	sub.Customer = c
	return sub, nil
}

// unit runs fn inside a transaction when the store supports one.
// atomic tells fn whether it must compensate its own partial writes.
func (e *Engine) unit(ctx context.Context, fn func(s Store, atomic bool) error) error {
	if tx, ok := e.store.(Transactor); ok {
		return tx.Transaction(ctx, func(s Store) error { return fn(s, true) })
	}
	return fn(e.store, false)
}

func setStatus(ctx context.Context, s Store, op string, id uint, status models.SubmittalStatus) error {
	if err := s.UpdateSubmittal(ctx, id, SubmittalPatch{Status: &status}); err != nil {
		return storeError(op, err)
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, event string, payload EventPayload) {
	if err := e.notifier.Publish(ctx, event, payload); err != nil {
		log.Printf("[workflow] publish %s for submittal %d failed: %v", event, payload.SubmittalID, err)
	}
}
