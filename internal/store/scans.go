package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scopeworks/kbingest/internal/models"
)

const scanColumns = `id, status, stats, COALESCE(error, ''), started_at, completed_at`

// ClaimScan inserts a new running scan row. The partial unique index on
// status='running' makes the claim atomic across processes; a concurrent
// claim surfaces as ErrConflict.
func (s *Store) ClaimScan(ctx context.Context) (*models.Scan, error) {
	id := uuid.New()
	row := s.db.QueryRow(ctx,
		`INSERT INTO scans (id, status) VALUES ($1, 'running') RETURNING `+scanColumns, id)
	scan, err := scanScan(row)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("claim scan: %w", err)
	}
	return scan, nil
}

// UpdateScanStats persists partial progress so an operator can tell how far a
// scan got even after an abort.
func (s *Store) UpdateScanStats(ctx context.Context, id uuid.UUID, stats models.ScanStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode scan stats: %w", err)
	}
	_, err = s.db.Exec(ctx, `UPDATE scans SET stats = $2 WHERE id = $1`, id, data)
	if err != nil {
		return fmt.Errorf("update scan stats: %w", err)
	}
	return nil
}

func (s *Store) FinishScan(ctx context.Context, id uuid.UUID, stats models.ScanStats, scanErr error) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode scan stats: %w", err)
	}
	status := models.ScanStatusCompleted
	msg := ""
	if scanErr != nil {
		status = models.ScanStatusFailed
		msg = scanErr.Error()
	}
	_, err = s.db.Exec(ctx,
		`UPDATE scans SET status = $2, stats = $3, error = NULLIF($4, ''), completed_at = now() WHERE id = $1`,
		id, status, data, msg,
	)
	if err != nil {
		return fmt.Errorf("finish scan: %w", err)
	}
	return nil
}

// RunningScan returns the currently running scan, or ErrNotFound.
func (s *Store) RunningScan(ctx context.Context) (*models.Scan, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE status = 'running'`)
	scan, err := scanScan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get running scan: %w", err)
	}
	return scan, nil
}

// LatestScan returns the most recently started scan, running or terminal.
func (s *Store) LatestScan(ctx context.Context) (*models.Scan, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+scanColumns+` FROM scans ORDER BY started_at DESC LIMIT 1`)
	scan, err := scanScan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest scan: %w", err)
	}
	return scan, nil
}

func scanScan(row pgx.Row) (*models.Scan, error) {
	var sc models.Scan
	var stats []byte
	err := row.Scan(&sc.ID, &sc.Status, &stats, &sc.Error, &sc.StartedAt, &sc.CompletedAt)
	if err != nil {
		return nil, err
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &sc.Stats); err != nil {
			return nil, fmt.Errorf("decode scan stats: %w", err)
		}
	}
	return &sc, nil
}
