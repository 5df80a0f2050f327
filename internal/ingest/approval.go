package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/scopeworks/kbingest/internal/metrics"
	"github.com/scopeworks/kbingest/internal/models"
	"github.com/scopeworks/kbingest/internal/store"
	"github.com/scopeworks/kbingest/pkg/textextract"
)

// Approve resolves a pending approval and admits the candidate document into
// the vector index. The status transition commits first; if the vectorize pass
// then fails, the approval stays approved and the next scan retries the
// vectorization without asking the operator again.
func (p *Pipeline) Approve(ctx context.Context, approvalID, reviewerID uuid.UUID, note string) error {
	approval, err := p.store.GetApproval(ctx, approvalID)
	if err != nil {
		return mapApprovalErr(err)
	}

	if err := p.store.ResolveApproval(ctx, approvalID, models.ApprovalStatusApproved, reviewerID, note); err != nil {
		return mapApprovalErr(err)
	}
	metrics.ApprovalsResolved.WithLabelValues("approved").Inc()

	doc, err := p.store.GetDocument(ctx, approval.DocumentID)
	if err != nil {
		return fmt.Errorf("load approved document: %w", err)
	}

	// Serialize against a scan goroutine working on the same document.
	unlock := p.docLocks.lock(doc.BlobPath)
	defer unlock()

	text, err := p.documentText(ctx, doc)
	if err != nil {
		return fmt.Errorf("re-extract approved document %s: %w", doc.BlobPath, err)
	}

	slog.Info("approval accepted, vectorizing",
		"approval_id", approvalID,
		"document_id", doc.ID,
		"blob_path", doc.BlobPath)
	return p.Vectorize(ctx, doc, text)
}

// Reject resolves a pending approval without admitting the document. The
// decision is terminal for this content: the document stays unvectorized and
// later scans skip it until its fingerprint changes.
func (p *Pipeline) Reject(ctx context.Context, approvalID, reviewerID uuid.UUID, note string) error {
	if err := p.store.ResolveApproval(ctx, approvalID, models.ApprovalStatusRejected, reviewerID, note); err != nil {
		return mapApprovalErr(err)
	}
	metrics.ApprovalsResolved.WithLabelValues("rejected").Inc()

	slog.Info("approval rejected", "approval_id", approvalID)
	return nil
}

func mapApprovalErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrApprovalNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrNotPending
	default:
		return err
	}
}

// documentText rebuilds the text that represents a document for embedding.
// Structured case-study records embed their canonical field rendering; plain
// documents are downloaded and re-extracted from the object store.
func (p *Pipeline) documentText(ctx context.Context, doc *models.Document) (string, error) {
	if doc.CaseStudy != nil {
		return doc.CaseStudy.FullText(), nil
	}

	data, err := p.blobs.Get(ctx, baseBlobPath(doc.BlobPath))
	if err != nil {
		return "", fmt.Errorf("download blob: %w", err)
	}

	result, err := textextract.Extract(data, doc.FileName)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if len(strings.TrimSpace(result.Content)) < p.cfg.MinTextChars {
		return "", fmt.Errorf("extracted text below %d chars", p.cfg.MinTextChars)
	}
	return result.Content, nil
}

// baseBlobPath strips the synthetic "#record_N" suffix so multi-record
// documents resolve to the real object.
func baseBlobPath(blobPath string) string {
	base, _, _ := strings.Cut(blobPath, "#")
	return base
}
