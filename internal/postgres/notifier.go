package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// maxNotifyPayload is postgres' NOTIFY payload limit, minus headroom.
const maxNotifyPayload = 7900

// Notifier publishes events on a postgres NOTIFY channel so that
// listeners (dashboards, realtime bridges) see them immediately.
type Notifier struct {
	pool    *pgxpool.Pool
	channel string
}

// NewNotifier publishes on channel.
func NewNotifier(pool *pgxpool.Pool, channel string) *Notifier {
	return &Notifier{pool: pool, channel: channel}
}

type notification struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Publish sends {"event":..., "payload":...} through pg_notify.
func (n *Notifier) Publish(ctx context.Context, event string, payload any) error {
	body, err := json.Marshal(notification{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if len(body) > maxNotifyPayload {
		return fmt.Errorf("notification %s too large (%d bytes)", event, len(body))
	}
	if _, err := n.pool.Exec(ctx, "SELECT pg_notify($1, $2)", n.channel, string(body)); err != nil {
		return fmt.Errorf("pg_notify %s: %w", n.channel, err)
	}
	return nil
}

// Listen blocks, delivering every notification on the channel to fn until
// ctx is cancelled.
func (n *Notifier) Listen(ctx context.Context, fn func(event string, payload json.RawMessage)) error {
	conn, err := n.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+quoteIdent(n.channel)); err != nil {
		return fmt.Errorf("listen %s: %w", n.channel, err)
	}
	for {
		msg, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var note struct {
			Event   string          `json:"event"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &note); err != nil {
			continue
		}
		fn(note.Event, note.Payload)
	}
}

func quoteIdent(s string) string {
	out := []byte{'"'}
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, s[i])
	}
	return string(append(out, '"'))
}
