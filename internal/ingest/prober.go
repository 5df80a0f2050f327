package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/scopeworks/kbingest/internal/models"
)

// probeResult is what the similarity probe learned about a candidate.
type probeResult struct {
	BestScore float64
	Related   []models.RelatedDocument
}

// findSimilar embeds a leading sample of the candidate text and searches the
// category's own collection for existing neighbors above the similarity
// threshold. Chunks belonging to the candidate itself are excluded, so a
// reprocessed document never flags itself as a duplicate.
//
// The probe is advisory. If the embedding call fails or yields no usable
// vector, the result is "no neighbors" rather than an error; admission then
// proceeds as if the content were novel.
func (p *Pipeline) findSimilar(ctx context.Context, documentID uuid.UUID, category models.Category, text string) (*probeResult, error) {
	sample := text
	if runes := []rune(sample); len(runes) > p.cfg.ProbeSampleChars {
		sample = string(runes[:p.cfg.ProbeSampleChars])
	}

	vector, err := p.embedder.EmbedSingle(ctx, sample)
	if err != nil {
		slog.Warn("similarity probe embedding failed, treating as novel",
			"document_id", documentID, "error", err)
		return &probeResult{}, nil
	}
	if vector == nil {
		slog.Warn("similarity probe produced no vector, treating as novel",
			"document_id", documentID)
		return &probeResult{}, nil
	}

	collection := p.collectionFor(category)
	hits, err := p.index.Search(ctx, collection, vector, p.cfg.ProbeTopK, p.cfg.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("search %s collection: %w", collection, err)
	}

	result := &probeResult{}
	seen := make(map[uuid.UUID]bool)
	for _, hit := range hits {
		if hit.DocumentID == documentID {
			continue
		}
		if hit.Score > result.BestScore {
			result.BestScore = hit.Score
		}
		if seen[hit.DocumentID] {
			continue
		}
		seen[hit.DocumentID] = true

		related := models.RelatedDocument{DocumentID: hit.DocumentID, Score: hit.Score}
		if doc, err := p.store.GetDocument(ctx, hit.DocumentID); err == nil {
			related.FileName = doc.FileName
			related.BlobPath = doc.BlobPath
		}
		result.Related = append(result.Related, related)
	}

	return result, nil
}
