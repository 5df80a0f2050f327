package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Per-operation deadlines so a stalled connection cannot hang a scan worker.
// Upserts write a whole document's chunks and get the longer bound.
const (
	opTimeout     = 30 * time.Second
	upsertTimeout = 2 * time.Minute
)

// PgIndex stores vectors in a pgvector-backed table. The collection column
// partitions the table into the logical collections.
type PgIndex struct {
	db *pgxpool.Pool
}

func NewPgIndex(db *pgxpool.Pool) *PgIndex {
	return &PgIndex{db: db}
}

func (s *PgIndex) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, upsertTimeout)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range points {
		common := p.Payload.Common()
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("encode payload for chunk %d: %w", common.ChunkIndex, err)
		}

		embedding := pgvector.NewVector(p.Vector)

		_, err = tx.Exec(ctx,
			`INSERT INTO vector_points (id, collection, document_id, chunk_index, category, payload, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (id) DO UPDATE SET payload = $6, embedding = $7`,
			p.ID, collection, common.DocumentID, common.ChunkIndex, common.Category, payload, embedding,
		)
		if err != nil {
			return fmt.Errorf("upsert point %d: %w", common.ChunkIndex, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgIndex) Search(ctx context.Context, collection string, vector []float32, k int, scoreThreshold float64) ([]SearchResult, error) {
	if k <= 0 {
		k = 10
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	embedding := pgvector.NewVector(vector)

	rows, err := s.db.Query(ctx,
		`SELECT id, document_id, chunk_index, category,
		        1 - (embedding <=> $1) AS score
		 FROM vector_points
		 WHERE collection = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		embedding, collection, k,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.ChunkIndex, &r.Category, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if scoreThreshold > 0 && r.Score < scoreThreshold {
			continue
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PgIndex) DeleteByDocument(ctx context.Context, collection string, documentID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.db.Exec(ctx,
		`DELETE FROM vector_points WHERE collection = $1 AND document_id = $2`,
		collection, documentID,
	)
	if err != nil {
		return fmt.Errorf("delete vectors for document: %w", err)
	}
	return nil
}
