package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/scopeworks/kbingest/internal/models"
)

// recordPath builds the blob path key for record n (1-based) of a
// multi-record source file. The first record keeps the plain path so single-
// record files need no synthetic suffix.
func recordPath(basePath string, n int) string {
	if n <= 1 {
		return basePath
	}
	return fmt.Sprintf("%s#record_%d", basePath, n)
}

// expectedRecordPaths enumerates the paths a source file with count records
// occupies in the metadata store.
func expectedRecordPaths(basePath string, count int) []string {
	paths := make([]string, count)
	for i := range paths {
		paths[i] = recordPath(basePath, i+1)
	}
	return paths
}

// orphanRecords diffs the stored documents of one source file against the
// record paths the current parse produced. Anything stored under a path no
// longer in the expected set is an orphan.
func orphanRecords(stored []models.Document, expected []string) []models.Document {
	want := make(map[string]bool, len(expected))
	for _, path := range expected {
		want[path] = true
	}

	var orphans []models.Document
	for _, doc := range stored {
		if !want[doc.BlobPath] {
			orphans = append(orphans, doc)
		}
	}
	return orphans
}

// DeleteDocument removes one document and its vectors, vectors first so a
// partial failure never leaves unreachable index entries behind.
func (p *Pipeline) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	doc, err := p.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	unlock := p.docLocks.lock(doc.BlobPath)
	defer unlock()

	if err := p.index.DeleteByDocument(ctx, p.collectionFor(doc.Category), doc.ID); err != nil {
		return fmt.Errorf("delete vectors for %s: %w", doc.BlobPath, err)
	}
	if err := p.store.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}

	slog.Info("document deleted", "document_id", doc.ID, "blob_path", doc.BlobPath)
	return nil
}

// reconcileRecords removes documents for records that vanished from a re-parsed
// multi-record file. Vectors go first: if the index delete fails, the metadata
// row survives so a later scan retries the cleanup instead of stranding
// unreachable vectors.
func (p *Pipeline) reconcileRecords(ctx context.Context, basePath string, category models.Category, expected []string) error {
	stored, err := p.store.ListDocumentRecords(ctx, basePath)
	if err != nil {
		return fmt.Errorf("list records for %s: %w", basePath, err)
	}

	orphans := orphanRecords(stored, expected)
	collection := p.collectionFor(category)

	for _, orphan := range orphans {
		if err := p.index.DeleteByDocument(ctx, collection, orphan.ID); err != nil {
			return fmt.Errorf("delete vectors for orphan %s: %w", orphan.BlobPath, err)
		}
		if err := p.store.DeleteDocument(ctx, orphan.ID); err != nil {
			return fmt.Errorf("delete orphan record %s: %w", orphan.BlobPath, err)
		}
		slog.Info("removed orphaned record", "blob_path", orphan.BlobPath, "document_id", orphan.ID)
	}
	return nil
}
