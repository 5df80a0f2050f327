package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scopeworks/kbingest/internal/models"
)

const jobColumns = `id, document_id, status, chunks_processed, vectors_created,
	COALESCE(error_message, ''), created_at, started_at, completed_at`

// StartJob creates a processing job already in the processing state.
func (s *Store) StartJob(ctx context.Context, documentID uuid.UUID) (*models.ProcessingJob, error) {
	id := uuid.New()
	row := s.db.QueryRow(ctx,
		`INSERT INTO processing_jobs (id, document_id, status, started_at)
		 VALUES ($1, $2, 'processing', now())
		 RETURNING `+jobColumns,
		id, documentID,
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("start job: %w", err)
	}
	return job, nil
}

func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID, chunks, vectors int) error {
	_, err := s.db.Exec(ctx,
		`UPDATE processing_jobs
		 SET status = 'completed', chunks_processed = $2, vectors_created = $3, completed_at = now()
		 WHERE id = $1`,
		id, chunks, vectors,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

func (s *Store) FailJob(ctx context.Context, id uuid.UUID, chunks int, message string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE processing_jobs
		 SET status = 'failed', chunks_processed = $2, error_message = $3, completed_at = now()
		 WHERE id = $1`,
		id, chunks, message,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*models.ProcessingJob, error) {
	row := s.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM processing_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *Store) ListJobs(ctx context.Context, status string, limit, offset int) ([]models.ProcessingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM processing_jobs`
	args := []any{limit, offset}
	if status != "" {
		query += ` WHERE status = $3`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.ProcessingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (s *Store) CountJobsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT status, COUNT(*) FROM processing_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{
		models.JobStatusPending:    0,
		models.JobStatusProcessing: 0,
		models.JobStatusCompleted:  0,
		models.JobStatusFailed:     0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanJob(row pgx.Row) (*models.ProcessingJob, error) {
	var j models.ProcessingJob
	err := row.Scan(&j.ID, &j.DocumentID, &j.Status, &j.ChunksProcessed, &j.VectorsCreated,
		&j.ErrorMessage, &j.CreatedAt, &j.StartedAt, &j.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
