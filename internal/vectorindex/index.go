// Package vectorindex wraps the searchable vector index. Two logical
// collections exist (general knowledge and case studies); they are never
// queried together.
package vectorindex

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/scopeworks/kbingest/internal/models"
)

// PayloadCommon is the minimum every stored vector carries so that orphan
// cleanup and collection routing work without consulting the metadata store.
type PayloadCommon struct {
	DocumentID uuid.UUID       `json:"document_id"`
	ChunkIndex int             `json:"chunk_index"`
	Category   models.Category `json:"category"`
	FileName   string          `json:"file_name"`
	BlobPath   string          `json:"blob_path"`
	Content    string          `json:"content"` // leading excerpt of the chunk
}

// Payload is the tagged per-category payload variant. Using distinct types
// instead of a free-form map keeps case-study fields out of general vectors.
type Payload interface {
	Common() PayloadCommon
}

type GeneralPayload struct {
	PayloadCommon
}

func (p GeneralPayload) Common() PayloadCommon { return p.PayloadCommon }

type CaseStudyPayload struct {
	PayloadCommon
	CaseStudy models.CaseStudy `json:"case_study"`
}

func (p CaseStudyPayload) Common() PayloadCommon { return p.PayloadCommon }

// Point is one entry to upsert.
type Point struct {
	ID      uuid.UUID
	Vector  []float32
	Payload Payload
}

// SearchResult is one neighbor returned by a similarity search.
type SearchResult struct {
	ID         uuid.UUID
	Score      float64
	DocumentID uuid.UUID
	ChunkIndex int
	Category   models.Category
}

type Index interface {
	Upsert(ctx context.Context, collection string, points []Point) error
	Search(ctx context.Context, collection string, vector []float32, k int, scoreThreshold float64) ([]SearchResult, error)
	DeleteByDocument(ctx context.Context, collection string, documentID uuid.UUID) error
}

// PointID derives the stable vector id for one chunk of a document. The same
// document and chunk index always map to the same id, so re-vectorizing
// overwrites instead of duplicating.
func PointID(documentID uuid.UUID, chunkIndex int) uuid.UUID {
	return uuid.NewSHA1(documentID, []byte(fmt.Sprintf("chunk:%d", chunkIndex)))
}
