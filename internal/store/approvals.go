package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scopeworks/kbingest/internal/models"
)

const approvalColumns = `id, document_id, related_documents, update_type,
	COALESCE(similarity_score, 0), COALESCE(reason, ''), status,
	reviewed_by, reviewed_at, COALESCE(reviewer_note, ''), created_at`

func (s *Store) CreateApproval(ctx context.Context, a *models.PendingApproval) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	related, err := json.Marshal(a.Related)
	if err != nil {
		return fmt.Errorf("encode related documents: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO pending_approvals (id, document_id, related_documents, update_type, similarity_score, reason, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'pending')`,
		a.ID, a.DocumentID, related, a.UpdateType, a.Score, a.Reason,
	)
	if isUniqueViolation(err) {
		// Partial unique index: one open approval per document.
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

func (s *Store) GetApproval(ctx context.Context, id uuid.UUID) (*models.PendingApproval, error) {
	row := s.db.QueryRow(ctx, `SELECT `+approvalColumns+` FROM pending_approvals WHERE id = $1`, id)
	a, err := scanApproval(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get approval: %w", err)
	}
	return a, nil
}

// LatestApprovalStatus returns the status of the most recent approval for the
// document, or "" when none exists. The scan loop uses it to honor a rejected
// review (permanent skip while the fingerprint is unchanged) and to avoid
// piling a second review onto an open one.
func (s *Store) LatestApprovalStatus(ctx context.Context, documentID uuid.UUID) (string, error) {
	var status string
	err := s.db.QueryRow(ctx,
		`SELECT status FROM pending_approvals
		 WHERE document_id = $1 ORDER BY created_at DESC LIMIT 1`,
		documentID,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest approval status: %w", err)
	}
	return status, nil
}

// DeleteOpenApproval drops any open approval for the document. Called when a
// document's content changes: the pending review refers to content that no
// longer exists, and it would block a fresh review of the new content.
func (s *Store) DeleteOpenApproval(ctx context.Context, documentID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM pending_approvals WHERE document_id = $1 AND status = 'pending'`,
		documentID,
	)
	if err != nil {
		return fmt.Errorf("delete open approval: %w", err)
	}
	return nil
}

// ResolveApproval transitions a pending approval to approved or rejected.
// The WHERE status='pending' clause makes the transition atomic; a zero row
// count on an existing id means the record was already resolved.
func (s *Store) ResolveApproval(ctx context.Context, id uuid.UUID, status string, reviewerID uuid.UUID, note string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE pending_approvals
		 SET status = $2, reviewed_by = $3, reviewed_at = now(), reviewer_note = $4
		 WHERE id = $1 AND status = 'pending'`,
		id, status, reviewerID, note,
	)
	if err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetApproval(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

func (s *Store) ListApprovals(ctx context.Context, status string, limit, offset int) ([]models.PendingApproval, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+approvalColumns+` FROM pending_approvals
		 WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		status, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var approvals []models.PendingApproval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		approvals = append(approvals, *a)
	}
	return approvals, rows.Err()
}

func (s *Store) CountOpenApprovals(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM pending_approvals WHERE status = 'pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open approvals: %w", err)
	}
	return n, nil
}

func scanApproval(row pgx.Row) (*models.PendingApproval, error) {
	var a models.PendingApproval
	var related []byte
	err := row.Scan(&a.ID, &a.DocumentID, &related, &a.UpdateType, &a.Score, &a.Reason,
		&a.Status, &a.ReviewedBy, &a.ReviewedAt, &a.ReviewerNote, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(related) > 0 {
		if err := json.Unmarshal(related, &a.Related); err != nil {
			return nil, fmt.Errorf("decode related documents: %w", err)
		}
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
