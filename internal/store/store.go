// Package store is the metadata store for the ingestion pipeline: documents,
// processing jobs, pending approvals, and scan records, backed by Postgres.
// It is the single source of truth for "is this already being handled".
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert violates a uniqueness guarantee,
	// e.g. a second open approval for the same document or a second running scan.
	ErrConflict = errors.New("conflict")
)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}
