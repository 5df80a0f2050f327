package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/scopeworks/kbingest/internal/blobstore"
	"github.com/scopeworks/kbingest/internal/casestudy"
	"github.com/scopeworks/kbingest/internal/metrics"
	"github.com/scopeworks/kbingest/internal/models"
	"github.com/scopeworks/kbingest/internal/store"
	"github.com/scopeworks/kbingest/pkg/textextract"
)

// statsFlushEvery controls how often partial scan counts are persisted, so
// scan status reports progress even if the process dies mid-scan.
const statsFlushEvery = 10

// candidate is one admission unit: a whole file, or one structured record of
// a multi-record file under its synthetic path.
type candidate struct {
	path      string
	fileName  string
	fileHash  string
	fileSize  int64
	category  models.Category
	caseStudy *models.CaseStudy
	text      string
}

// Scan walks the object store prefix and admits every document through the
// deduplication pipeline. Exactly one scan runs at a time; a second trigger
// gets ErrScanInProgress. Per-document failures are counted and skipped; only
// a failure to list the store aborts the scan.
func (p *Pipeline) Scan(ctx context.Context) (*models.Scan, error) {
	if p.lock != nil {
		ok, err := p.lock.TryLock(ctx)
		if err != nil {
			slog.Warn("scan lock unavailable, relying on scan record", "error", err)
		} else if !ok {
			return nil, ErrScanInProgress
		} else {
			defer func() {
				if err := p.lock.Unlock(context.WithoutCancel(ctx)); err != nil {
					slog.Warn("release scan lock", "error", err)
				}
			}()
		}
	}

	scan, err := p.store.ClaimScan(ctx)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrScanInProgress
		}
		return nil, fmt.Errorf("claim scan: %w", err)
	}
	metrics.ScansTotal.WithLabelValues("started").Inc()
	slog.Info("scan started", "scan_id", scan.ID, "prefix", p.cfg.ScanPrefix)

	objects, err := p.blobs.List(ctx, p.cfg.ScanPrefix)
	if err != nil {
		// Scan-fatal: nothing was touched, surface the error.
		listErr := fmt.Errorf("list object store: %w", err)
		p.finishScan(ctx, scan, models.ScanStats{}, listErr)
		return scan, listErr
	}

	rec := &scanRecorder{store: p.store, scanID: scan.ID}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.ScanConcurrency)
	for _, obj := range objects {
		if skipObject(obj) {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			p.processObject(gctx, obj, rec)
			return nil
		})
	}
	_ = g.Wait() // workers report per-document failures via the recorder

	p.finishScan(ctx, scan, rec.snapshot(), ctx.Err())
	slog.Info("scan finished", "scan_id", scan.ID, "stats", scan.Stats)
	return scan, ctx.Err()
}

func (p *Pipeline) finishScan(ctx context.Context, scan *models.Scan, stats models.ScanStats, scanErr error) {
	scan.Stats = stats
	status := "completed"
	if scanErr != nil {
		status = "failed"
	}
	metrics.ScansTotal.WithLabelValues(status).Inc()

	// Persist the terminal row even when the scan context is gone.
	if err := p.store.FinishScan(context.WithoutCancel(ctx), scan.ID, stats, scanErr); err != nil {
		slog.Error("persist scan result", "scan_id", scan.ID, "error", err)
	}
}

// skipObject filters listing entries that are not admissible documents. The
// pending/ segment is a staging area written by the upload surface; its
// objects are not yet part of the knowledge base.
func skipObject(obj blobstore.ObjectInfo) bool {
	if obj.Size == 0 {
		return true
	}
	for _, segment := range strings.Split(obj.Path, "/") {
		if segment == "pending" {
			return true
		}
	}
	return false
}

// processObject downloads and fingerprints one object, splits multi-record
// case-study decks into per-record candidates, and runs each candidate
// through admission. Failures are logged and counted, never propagated.
func (p *Pipeline) processObject(ctx context.Context, obj blobstore.ObjectInfo, rec *scanRecorder) {
	rec.add("scanned")

	data, err := p.blobs.Get(ctx, obj.Path)
	if err != nil {
		slog.Error("download object", "path", obj.Path, "error", err)
		rec.add("failed")
		return
	}

	fileName := path.Base(obj.Path)
	fileHash := textextract.Fingerprint(data)

	result, err := textextract.Extract(data, fileName)
	if err != nil {
		slog.Error("extract text", "path", obj.Path, "error", err)
		rec.add("failed")
		return
	}
	if len(strings.TrimSpace(result.Content)) < p.cfg.MinTextChars {
		// Skip-worthy: unsupported format or no usable text. Not a failure.
		slog.Warn("skipping object with insufficient text", "path", obj.Path, "chars", len(result.Content))
		rec.add("skipped")
		return
	}

	isCaseStudy := casestudy.IsCaseStudyPath(obj.Path, fileName)

	if isCaseStudy && len(result.Slides) > 0 {
		if records := casestudy.ParseSlides(result.Slides); len(records) > 0 {
			p.processCaseStudyFile(ctx, obj, fileName, fileHash, records, rec)
			return
		}
	}

	category := models.CategoryGeneral
	if isCaseStudy {
		category = models.CategoryCaseStudy
	}
	p.processCandidate(ctx, candidate{
		path:     obj.Path,
		fileName: fileName,
		fileHash: fileHash,
		fileSize: obj.Size,
		category: category,
		text:     result.Content,
	}, rec)
}

// processCaseStudyFile admits each structured record of a deck as its own
// document and then reconciles records that disappeared since the last parse.
func (p *Pipeline) processCaseStudyFile(ctx context.Context, obj blobstore.ObjectInfo, fileName, fileHash string, records []models.CaseStudy, rec *scanRecorder) {
	expected := expectedRecordPaths(obj.Path, len(records))

	for i := range records {
		cs := records[i]
		p.processCandidate(ctx, candidate{
			path:      expected[i],
			fileName:  fileName,
			fileHash:  fileHash,
			fileSize:  obj.Size,
			category:  models.CategoryCaseStudy,
			caseStudy: &cs,
			text:      cs.FullText(),
		}, rec)
	}

	if err := p.reconcileRecords(ctx, obj.Path, models.CategoryCaseStudy, expected); err != nil {
		slog.Error("reconcile case-study records", "path", obj.Path, "error", err)
		rec.add("failed")
	}
}

// processCandidate runs the admission state machine for one candidate and
// executes the resulting action. All row mutations for one candidate happen
// under its per-document lock.
func (p *Pipeline) processCandidate(ctx context.Context, c candidate, rec *scanRecorder) {
	unlock := p.docLocks.lock(c.path)
	defer unlock()

	stored, err := p.store.GetDocumentByPath(ctx, c.path)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("look up document", "path", c.path, "error", err)
		rec.add("failed")
		return
	}

	approvalStatus := ""
	if stored != nil {
		approvalStatus, err = p.store.LatestApprovalStatus(ctx, stored.ID)
		if err != nil {
			slog.Error("look up approval status", "path", c.path, "error", err)
			rec.add("failed")
			return
		}
	}

	switch classifyDocument(stored, c.fileHash, approvalStatus) {
	case admitSkip:
		if err := p.store.TouchDocument(ctx, stored.ID); err != nil {
			slog.Error("touch document", "path", c.path, "error", err)
		}
		rec.add("unchanged")

	case admitApproved:
		if err := p.Vectorize(ctx, stored, c.text); err != nil {
			slog.Error("vectorize approved document", "path", c.path, "error", err)
			rec.add("failed")
			return
		}
		rec.add("updated")

	case admitNew:
		doc := &models.Document{
			FileName:  c.fileName,
			BlobPath:  c.path,
			FileHash:  c.fileHash,
			FileSize:  c.fileSize,
			Category:  c.category,
			CaseStudy: c.caseStudy,
		}
		if err := p.store.CreateDocument(ctx, doc); err != nil {
			slog.Error("create document", "path", c.path, "error", err)
			rec.add("failed")
			return
		}
		p.admitContent(ctx, doc, c, "new", rec)

	case admitChanged:
		if err := p.resetChanged(ctx, stored, c); err != nil {
			slog.Error("reset changed document", "path", c.path, "error", err)
			rec.add("failed")
			return
		}
		p.admitContent(ctx, stored, c, "updated", rec)

	case admitReprocess:
		// A prior run created the row but never finished; attach any newly
		// parsed structure and try again.
		if c.caseStudy != nil {
			if err := p.store.SetCaseStudy(ctx, stored.ID, c.caseStudy); err != nil {
				slog.Error("update case study", "path", c.path, "error", err)
			}
			stored.CaseStudy = c.caseStudy
		}
		p.admitContent(ctx, stored, c, "new", rec)
	}
}

// resetChanged clears everything derived from the old content: stale vectors,
// vectorization state, any open review of content that no longer exists.
func (p *Pipeline) resetChanged(ctx context.Context, stored *models.Document, c candidate) error {
	collection := p.collectionFor(stored.Category)
	if err := p.index.DeleteByDocument(ctx, collection, stored.ID); err != nil {
		return fmt.Errorf("delete stale vectors: %w", err)
	}
	if err := p.store.ResetVectorization(ctx, stored.ID); err != nil {
		return fmt.Errorf("reset vectorization: %w", err)
	}
	if err := p.store.DeleteOpenApproval(ctx, stored.ID); err != nil {
		return err
	}
	if err := p.store.MarkChanged(ctx, stored.ID, c.fileHash, c.fileSize); err != nil {
		return fmt.Errorf("record new fingerprint: %w", err)
	}
	if err := p.store.SetCaseStudy(ctx, stored.ID, c.caseStudy); err != nil {
		return fmt.Errorf("update case study: %w", err)
	}

	stored.FileHash = c.fileHash
	stored.FileSize = c.fileSize
	stored.IsVectorized = false
	stored.CaseStudy = c.caseStudy
	return nil
}

// admitContent probes for similar existing content and either vectorizes
// directly or parks the candidate behind a pending approval.
func (p *Pipeline) admitContent(ctx context.Context, doc *models.Document, c candidate, successOutcome string, rec *scanRecorder) {
	probe, err := p.findSimilar(ctx, doc.ID, c.category, c.text)
	if err != nil {
		slog.Error("similarity probe", "path", c.path, "error", err)
		rec.add("failed")
		return
	}

	updateType := classifyUpdate(probe.BestScore, p.cfg.SimilarityThreshold, p.cfg.DuplicateThreshold)
	if updateType != models.UpdateTypeNew {
		approval := &models.PendingApproval{
			DocumentID: doc.ID,
			Related:    probe.Related,
			UpdateType: updateType,
			Score:      probe.BestScore,
			Reason: fmt.Sprintf("similar to %d existing document(s), best score %.3f",
				len(probe.Related), probe.BestScore),
		}
		err := p.store.CreateApproval(ctx, approval)
		if errors.Is(err, store.ErrConflict) {
			// A review is already open for this document.
			rec.add("unchanged")
			return
		}
		if err != nil {
			slog.Error("create approval", "path", c.path, "error", err)
			rec.add("failed")
			return
		}
		slog.Info("document held for approval",
			"path", c.path,
			"update_type", updateType,
			"score", probe.BestScore)
		rec.add("pending_approval")
		return
	}

	if err := p.Vectorize(ctx, doc, c.text); err != nil {
		slog.Error("vectorize document", "path", c.path, "error", err)
		rec.add("failed")
		return
	}
	rec.add(successOutcome)
}

// ResetFailedDocuments clears vectorization state on every document whose
// latest processing job failed, so the next scan retries them. Returns how
// many documents were reset.
func (p *Pipeline) ResetFailedDocuments(ctx context.Context) (int, error) {
	docs, err := p.store.DocumentsWithFailedJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list failed documents: %w", err)
	}

	reset := 0
	for _, doc := range docs {
		if err := p.store.ResetVectorization(ctx, doc.ID); err != nil {
			return reset, fmt.Errorf("reset document %s: %w", doc.BlobPath, err)
		}
		reset++
	}

	slog.Info("reset failed documents", "count", reset)
	return reset, nil
}

// scanRecorder accumulates scan stats across worker goroutines and flushes
// partial counts to the scan row periodically.
type scanRecorder struct {
	store  MetadataStore
	scanID uuid.UUID

	mu      sync.Mutex
	stats   models.ScanStats
	pending int
}

func (r *scanRecorder) add(outcome string) {
	r.mu.Lock()
	switch outcome {
	case "scanned":
		r.stats.Scanned++
	case "new":
		r.stats.New++
	case "updated":
		r.stats.Updated++
	case "failed":
		r.stats.Failed++
	case "pending_approval":
		r.stats.PendingApproval++
	}
	if outcome != "scanned" {
		metrics.DocumentsProcessed.WithLabelValues(outcome).Inc()
	}

	r.pending++
	flush := r.pending >= statsFlushEvery
	if flush {
		r.pending = 0
	}
	stats := r.stats
	r.mu.Unlock()

	if flush {
		if err := r.store.UpdateScanStats(context.Background(), r.scanID, stats); err != nil {
			slog.Warn("persist partial scan stats", "error", err)
		}
	}
}

func (r *scanRecorder) snapshot() models.ScanStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
