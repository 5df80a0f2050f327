package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scopeworks/kbingest/internal/models"
)

const documentColumns = `id, file_name, blob_path, file_hash, file_size, category, case_study,
	is_vectorized, vector_count, vector_ids, uploaded_at, vectorized_at, last_checked`

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	var caseStudy, vectorIDs []byte
	err := row.Scan(&d.ID, &d.FileName, &d.BlobPath, &d.FileHash, &d.FileSize, &d.Category,
		&caseStudy, &d.IsVectorized, &d.VectorCount, &vectorIDs, &d.UploadedAt, &d.VectorizedAt, &d.LastChecked)
	if err != nil {
		return nil, err
	}
	if len(caseStudy) > 0 {
		if err := json.Unmarshal(caseStudy, &d.CaseStudy); err != nil {
			return nil, fmt.Errorf("decode case study: %w", err)
		}
	}
	if len(vectorIDs) > 0 {
		if err := json.Unmarshal(vectorIDs, &d.VectorIDs); err != nil {
			return nil, fmt.Errorf("decode vector ids: %w", err)
		}
	}
	return &d, nil
}

func (s *Store) CreateDocument(ctx context.Context, d *models.Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	caseStudy, err := marshalNullable(d.CaseStudy)
	if err != nil {
		return fmt.Errorf("encode case study: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO kb_documents (id, file_name, blob_path, file_hash, file_size, category, case_study, is_vectorized)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.FileName, d.BlobPath, d.FileHash, d.FileSize, d.Category, caseStudy, d.IsVectorized,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM kb_documents WHERE id = $1`, id)
	d, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (s *Store) GetDocumentByPath(ctx context.Context, blobPath string) (*models.Document, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM kb_documents WHERE blob_path = $1`, blobPath)
	d, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document by path: %w", err)
	}
	return d, nil
}

// ListDocumentRecords returns the record family of one source file: the row
// stored at the path itself plus any synthetic "#record_N" rows derived from
// it. The match is exact-or-suffixed, never a bare prefix, so a sibling path
// that merely starts with the file's path is not part of the family. LIKE
// metacharacters in the path are escaped; an underscore in a folder name must
// not act as a wildcard.
func (s *Store) ListDocumentRecords(ctx context.Context, basePath string) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+documentColumns+` FROM kb_documents
		 WHERE blob_path = $1 OR blob_path LIKE $2 ESCAPE '\'
		 ORDER BY blob_path`,
		basePath, escapeLike(basePath)+`#%`)
	if err != nil {
		return nil, fmt.Errorf("list document records: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Store) ListDocuments(ctx context.Context, vectorized *bool, limit, offset int) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM kb_documents`
	args := []any{limit, offset}
	if vectorized != nil {
		query += ` WHERE is_vectorized = $3`
		args = append(args, *vectorized)
	}
	query += ` ORDER BY uploaded_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// MarkChanged records a new fingerprint for a document and resets its
// vectorization state so the next processing pass re-admits it.
func (s *Store) MarkChanged(ctx context.Context, id uuid.UUID, fileHash string, fileSize int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE kb_documents
		 SET file_hash = $2, file_size = $3, is_vectorized = FALSE, vector_count = 0,
		     vector_ids = NULL, vectorized_at = NULL, last_checked = now()
		 WHERE id = $1`,
		id, fileHash, fileSize,
	)
	if err != nil {
		return fmt.Errorf("mark document changed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) TouchDocument(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `UPDATE kb_documents SET last_checked = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch document: %w", err)
	}
	return nil
}

func (s *Store) SetCaseStudy(ctx context.Context, id uuid.UUID, cs *models.CaseStudy) error {
	data, err := marshalNullable(cs)
	if err != nil {
		return fmt.Errorf("encode case study: %w", err)
	}
	_, err = s.db.Exec(ctx, `UPDATE kb_documents SET case_study = $2 WHERE id = $1`, id, data)
	if err != nil {
		return fmt.Errorf("set case study: %w", err)
	}
	return nil
}

// MarkVectorized records a completed vectorization pass: count, the
// deterministic vector id set, and the timestamp.
func (s *Store) MarkVectorized(ctx context.Context, id uuid.UUID, vectorIDs []string) error {
	ids, err := json.Marshal(vectorIDs)
	if err != nil {
		return fmt.Errorf("encode vector ids: %w", err)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE kb_documents
		 SET is_vectorized = TRUE, vector_count = $2, vector_ids = $3, vectorized_at = now(), last_checked = now()
		 WHERE id = $1`,
		id, len(vectorIDs), ids,
	)
	if err != nil {
		return fmt.Errorf("mark document vectorized: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetVectorization clears vectorization state so the next scan reprocesses
// the document. Used by the failed-document recovery operation.
func (s *Store) ResetVectorization(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`UPDATE kb_documents
		 SET is_vectorized = FALSE, vector_count = 0, vector_ids = NULL, vectorized_at = NULL
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("reset vectorization: %w", err)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM kb_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountDocuments returns total and vectorized document counts for the stats
// surface.
func (s *Store) CountDocuments(ctx context.Context) (total, vectorized int, err error) {
	err = s.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_vectorized) FROM kb_documents`,
	).Scan(&total, &vectorized)
	if err != nil {
		return 0, 0, fmt.Errorf("count documents: %w", err)
	}
	return total, vectorized, nil
}

// DocumentsWithFailedJobs returns documents whose most recent processing job
// failed. These are the targets of the reset-failed recovery pass.
func (s *Store) DocumentsWithFailedJobs(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+documentColumns+` FROM kb_documents d
		 WHERE (SELECT j.status FROM processing_jobs j
		        WHERE j.document_id = d.id
		        ORDER BY j.created_at DESC LIMIT 1) = 'failed'`,
	)
	if err != nil {
		return nil, fmt.Errorf("list failed documents: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

func collectDocuments(rows pgx.Rows) ([]models.Document, error) {
	var docs []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func marshalNullable(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case *models.CaseStudy:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
