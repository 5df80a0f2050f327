package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/scopeworks/kbingest/internal/metrics"
	"github.com/scopeworks/kbingest/internal/models"
	"github.com/scopeworks/kbingest/internal/vectorindex"
	"github.com/scopeworks/kbingest/pkg/chunker"
)

// payloadExcerptChars bounds the chunk text copied into the vector payload.
const payloadExcerptChars = 500

// Vectorize chunks the text, embeds every chunk, and upserts the vectors into
// the document's collection under deterministic point ids. The whole pass is
// recorded as a processing job; on any failure the job is marked failed and
// the document stays unvectorized so a later scan retries it.
func (p *Pipeline) Vectorize(ctx context.Context, doc *models.Document, text string) error {
	job, err := p.store.StartJob(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("start processing job: %w", err)
	}

	chunks, vectorIDs, err := p.vectorizeChunks(ctx, doc, text)
	if err != nil {
		if failErr := p.store.FailJob(ctx, job.ID, chunks, err.Error()); failErr != nil {
			slog.Error("mark job failed", "job_id", job.ID, "error", failErr)
		}
		metrics.DocumentsProcessed.WithLabelValues("failed").Inc()
		return err
	}

	if err := p.store.MarkVectorized(ctx, doc.ID, vectorIDs); err != nil {
		return fmt.Errorf("mark document vectorized: %w", err)
	}
	if err := p.store.CompleteJob(ctx, job.ID, chunks, len(vectorIDs)); err != nil {
		return fmt.Errorf("complete processing job: %w", err)
	}

	slog.Info("document vectorized",
		"document_id", doc.ID,
		"blob_path", doc.BlobPath,
		"chunks", chunks,
		"vectors", len(vectorIDs))
	return nil
}

func (p *Pipeline) vectorizeChunks(ctx context.Context, doc *models.Document, text string) (int, []string, error) {
	start := time.Now()
	defer func() {
		metrics.VectorizeDuration.Observe(time.Since(start).Seconds())
	}()

	chunks := chunker.Split(text, chunker.Options{
		Size:    p.cfg.ChunkSize,
		Overlap: p.cfg.ChunkOverlap,
	})
	if len(chunks) == 0 {
		return 0, nil, fmt.Errorf("no chunks produced for %s", doc.BlobPath)
	}

	vectors, err := p.embedder.Embed(ctx, chunker.Texts(chunks))
	if err != nil {
		return len(chunks), nil, fmt.Errorf("embed chunks: %w", err)
	}

	points := make([]vectorindex.Point, len(chunks))
	vectorIDs := make([]string, len(chunks))
	for i, chunk := range chunks {
		id := vectorindex.PointID(doc.ID, chunk.Index)
		vectorIDs[i] = id.String()
		points[i] = vectorindex.Point{
			ID:      id,
			Vector:  vectors[i],
			Payload: p.buildPayload(doc, chunk),
		}
	}

	collection := p.collectionFor(doc.Category)
	if err := p.index.Upsert(ctx, collection, points); err != nil {
		return len(chunks), nil, fmt.Errorf("upsert %d points into %s: %w", len(points), collection, err)
	}

	metrics.VectorsCreated.Add(float64(len(points)))
	return len(chunks), vectorIDs, nil
}

func (p *Pipeline) buildPayload(doc *models.Document, chunk chunker.Chunk) vectorindex.Payload {
	common := vectorindex.PayloadCommon{
		DocumentID: doc.ID,
		ChunkIndex: chunk.Index,
		Category:   doc.Category,
		FileName:   doc.FileName,
		BlobPath:   doc.BlobPath,
		Content:    excerpt(chunk.Content, payloadExcerptChars),
	}

	if doc.Category == models.CategoryCaseStudy && doc.CaseStudy != nil {
		return vectorindex.CaseStudyPayload{PayloadCommon: common, CaseStudy: *doc.CaseStudy}
	}
	return vectorindex.GeneralPayload{PayloadCommon: common}
}

func excerpt(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
