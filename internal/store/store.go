package store

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned when a unique constraint rejects a write, e.g. a
// colliding document number.
var ErrDuplicate = errors.New("store: duplicate key")

const uniqueViolation = "23505"

// Store provides PostgreSQL-backed persistence for all aggregates.
type Store struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

// New constructs a Store around the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool, Now: time.Now}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// mapErr converts driver-level errors into store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

// ListFilter carries common list parameters.
type ListFilter struct {
	ClientID string
	Status   string
	Limit    int
	Offset   int
}

func (f ListFilter) limit() int {
	if f.Limit <= 0 {
		return 20
	}
	return f.Limit
}

func (f ListFilter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}
