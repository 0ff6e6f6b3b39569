package postgres

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
)

var identRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Sequence draws quote numbers from a native postgres sequence.
// nextval never hands the same value to two callers, even across processes.
type Sequence struct {
	pool *pgxpool.Pool
	name string
}

// NewSequence binds to an existing sequence.
func NewSequence(pool *pgxpool.Pool, name string) (*Sequence, error) {
	if !identRegex.MatchString(name) {
		return nil, fmt.Errorf("invalid sequence name %q", name)
	}
	return &Sequence{pool: pool, name: name}, nil
}

// Next returns nextval of the sequence.
func (s *Sequence) Next(ctx context.Context) (int64, error) {
	var v int64
	if err := s.pool.QueryRow(ctx, "SELECT nextval($1::regclass)", s.name).Scan(&v); err != nil {
		return 0, fmt.Errorf("nextval %s: %w", s.name, err)
	}
	return v, nil
}
