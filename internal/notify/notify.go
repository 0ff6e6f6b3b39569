// Package notify delivers workflow events to the configured sinks.
package notify

import (
	"context"
	"errors"
	"log"
)

// Publisher is satisfied by every sink in this package.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event string, payload any) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes events to the standard logger.
type Log struct{}

func (Log) Publish(_ context.Context, event string, payload any) error {
	log.Printf("[event] %s %+v", event, payload)
	return nil
}

// entityIDer is implemented by payloads that identify their subject.
type entityIDer interface {
	EntityID() uint
}

func entityID(payload any) uint {
	if e, ok := payload.(entityIDer); ok {
		return e.EntityID()
	}
	return 0
}
