// Package ingest is the knowledge-base ingestion and deduplication pipeline:
// it watches the object store, decides whether each document is new, changed,
// or a near-duplicate, and admits content into the vector index either
// automatically or after operator approval.
package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/scopeworks/kbingest/internal/blobstore"
	"github.com/scopeworks/kbingest/internal/config"
	"github.com/scopeworks/kbingest/internal/models"
	"github.com/scopeworks/kbingest/internal/vectorindex"
)

var (
	// ErrScanInProgress is returned when a scan trigger races a running scan.
	ErrScanInProgress = errors.New("scan already in progress")
	// ErrNotPending is returned for approve/reject on an already-resolved record.
	ErrNotPending = errors.New("approval is not pending")
	// ErrApprovalNotFound is returned for approve/reject on an unknown record.
	ErrApprovalNotFound = errors.New("approval not found")
)

// MetadataStore is the subset of the metadata store the pipeline drives. It
// is the single source of truth for "is this already being handled"; any
// in-memory flag is an optimization on top of it.
type MetadataStore interface {
	CreateDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error)
	GetDocumentByPath(ctx context.Context, blobPath string) (*models.Document, error)
	ListDocumentRecords(ctx context.Context, basePath string) ([]models.Document, error)
	MarkChanged(ctx context.Context, id uuid.UUID, fileHash string, fileSize int64) error
	TouchDocument(ctx context.Context, id uuid.UUID) error
	SetCaseStudy(ctx context.Context, id uuid.UUID, cs *models.CaseStudy) error
	MarkVectorized(ctx context.Context, id uuid.UUID, vectorIDs []string) error
	ResetVectorization(ctx context.Context, id uuid.UUID) error
	DeleteDocument(ctx context.Context, id uuid.UUID) error
	DocumentsWithFailedJobs(ctx context.Context) ([]models.Document, error)

	StartJob(ctx context.Context, documentID uuid.UUID) (*models.ProcessingJob, error)
	CompleteJob(ctx context.Context, id uuid.UUID, chunks, vectors int) error
	FailJob(ctx context.Context, id uuid.UUID, chunks int, message string) error

	CreateApproval(ctx context.Context, a *models.PendingApproval) error
	GetApproval(ctx context.Context, id uuid.UUID) (*models.PendingApproval, error)
	LatestApprovalStatus(ctx context.Context, documentID uuid.UUID) (string, error)
	DeleteOpenApproval(ctx context.Context, documentID uuid.UUID) error
	ResolveApproval(ctx context.Context, id uuid.UUID, status string, reviewerID uuid.UUID, note string) error

	ClaimScan(ctx context.Context) (*models.Scan, error)
	UpdateScanStats(ctx context.Context, id uuid.UUID, stats models.ScanStats) error
	FinishScan(ctx context.Context, id uuid.UUID, stats models.ScanStats, scanErr error) error
	RunningScan(ctx context.Context) (*models.Scan, error)
	LatestScan(ctx context.Context) (*models.Scan, error)
}

// Embedder produces one vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// ScanLocker is the fast-path guard against concurrent scans. The store-backed
// scan row stays authoritative; this only avoids needless claim attempts.
type ScanLocker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Pipeline orchestrates the scan. One instance is constructed at startup and
// injected where needed; there is no hidden global.
type Pipeline struct {
	store    MetadataStore
	blobs    blobstore.Store
	index    vectorindex.Index
	embedder Embedder
	lock     ScanLocker
	cfg      config.PipelineConfig
	docLocks keyedMutex
}

func New(store MetadataStore, blobs blobstore.Store, index vectorindex.Index, embedder Embedder, lock ScanLocker, cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{
		store:    store,
		blobs:    blobs,
		index:    index,
		embedder: embedder,
		lock:     lock,
		cfg:      cfg,
	}
}

// keyedMutex serializes writes to one document's row when a scan goroutine and
// an approval handler touch the same document in the same process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// collectionFor routes a category to its logical vector collection.
func (p *Pipeline) collectionFor(category models.Category) string {
	if category == models.CategoryCaseStudy {
		return p.cfg.CaseStudyCollection
	}
	return p.cfg.GeneralCollection
}
