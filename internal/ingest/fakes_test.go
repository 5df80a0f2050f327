package ingest

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scopeworks/kbingest/internal/blobstore"
	"github.com/scopeworks/kbingest/internal/models"
	"github.com/scopeworks/kbingest/internal/store"
	"github.com/scopeworks/kbingest/internal/vectorindex"
)

// fakeStore is an in-memory MetadataStore mirroring the Postgres-backed
// implementation's error contract.
type fakeStore struct {
	mu        sync.Mutex
	documents map[uuid.UUID]*models.Document
	jobs      map[uuid.UUID]*models.ProcessingJob
	approvals map[uuid.UUID]*models.PendingApproval
	scans     map[uuid.UUID]*models.Scan
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		documents: make(map[uuid.UUID]*models.Document),
		jobs:      make(map[uuid.UUID]*models.ProcessingJob),
		approvals: make(map[uuid.UUID]*models.PendingApproval),
		scans:     make(map[uuid.UUID]*models.Scan),
	}
}

func (f *fakeStore) CreateDocument(ctx context.Context, d *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.UploadedAt = time.Now()
	copied := *d
	f.documents[d.ID] = &copied
	return nil
}

func (f *fakeStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (f *fakeStore) GetDocumentByPath(ctx context.Context, blobPath string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.documents {
		if d.BlobPath == blobPath {
			copied := *d
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListDocumentRecords(ctx context.Context, basePath string) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var docs []models.Document
	for _, d := range f.documents {
		if d.BlobPath == basePath || strings.HasPrefix(d.BlobPath, basePath+"#") {
			docs = append(docs, *d)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].BlobPath < docs[j].BlobPath })
	return docs, nil
}

func (f *fakeStore) MarkChanged(ctx context.Context, id uuid.UUID, fileHash string, fileSize int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[id]
	if !ok {
		return store.ErrNotFound
	}
	d.FileHash = fileHash
	d.FileSize = fileSize
	d.IsVectorized = false
	d.VectorCount = 0
	d.VectorIDs = nil
	d.VectorizedAt = nil
	return nil
}

func (f *fakeStore) TouchDocument(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.documents[id]; ok {
		now := time.Now()
		d.LastChecked = &now
	}
	return nil
}

func (f *fakeStore) SetCaseStudy(ctx context.Context, id uuid.UUID, cs *models.CaseStudy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.documents[id]; ok {
		d.CaseStudy = cs
	}
	return nil
}

func (f *fakeStore) MarkVectorized(ctx context.Context, id uuid.UUID, vectorIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	d.IsVectorized = true
	d.VectorCount = len(vectorIDs)
	d.VectorIDs = vectorIDs
	d.VectorizedAt = &now
	return nil
}

func (f *fakeStore) ResetVectorization(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.documents[id]; ok {
		d.IsVectorized = false
		d.VectorCount = 0
		d.VectorIDs = nil
		d.VectorizedAt = nil
	}
	return nil
}

func (f *fakeStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.documents[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.documents, id)
	return nil
}

func (f *fakeStore) DocumentsWithFailedJobs(ctx context.Context) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	latest := make(map[uuid.UUID]*models.ProcessingJob)
	for _, j := range f.jobs {
		if cur, ok := latest[j.DocumentID]; !ok || j.CreatedAt.After(cur.CreatedAt) {
			latest[j.DocumentID] = j
		}
	}
	var docs []models.Document
	for docID, j := range latest {
		if j.Status == models.JobStatusFailed {
			if d, ok := f.documents[docID]; ok {
				docs = append(docs, *d)
			}
		}
	}
	return docs, nil
}

func (f *fakeStore) StartJob(ctx context.Context, documentID uuid.UUID) (*models.ProcessingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	job := &models.ProcessingJob{
		ID:         uuid.New(),
		DocumentID: documentID,
		Status:     models.JobStatusProcessing,
		CreatedAt:  now,
		StartedAt:  &now,
	}
	f.jobs[job.ID] = job
	copied := *job
	return &copied, nil
}

func (f *fakeStore) CompleteJob(ctx context.Context, id uuid.UUID, chunks, vectors int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	j.Status = models.JobStatusCompleted
	j.ChunksProcessed = chunks
	j.VectorsCreated = vectors
	j.CompletedAt = &now
	return nil
}

func (f *fakeStore) FailJob(ctx context.Context, id uuid.UUID, chunks int, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	j.Status = models.JobStatusFailed
	j.ChunksProcessed = chunks
	j.ErrorMessage = message
	j.CompletedAt = &now
	return nil
}

func (f *fakeStore) CreateApproval(ctx context.Context, a *models.PendingApproval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.approvals {
		if existing.DocumentID == a.DocumentID && existing.Status == models.ApprovalStatusPending {
			return store.ErrConflict
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = models.ApprovalStatusPending
	a.CreatedAt = time.Now()
	copied := *a
	f.approvals[a.ID] = &copied
	return nil
}

func (f *fakeStore) GetApproval(ctx context.Context, id uuid.UUID) (*models.PendingApproval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.approvals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeStore) LatestApprovalStatus(ctx context.Context, documentID uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.PendingApproval
	for _, a := range f.approvals {
		if a.DocumentID != documentID {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return "", nil
	}
	return latest.Status, nil
}

func (f *fakeStore) DeleteOpenApproval(ctx context.Context, documentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, a := range f.approvals {
		if a.DocumentID == documentID && a.Status == models.ApprovalStatusPending {
			delete(f.approvals, id)
		}
	}
	return nil
}

func (f *fakeStore) ResolveApproval(ctx context.Context, id uuid.UUID, status string, reviewerID uuid.UUID, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.approvals[id]
	if !ok {
		return store.ErrNotFound
	}
	if a.Status != models.ApprovalStatusPending {
		return store.ErrConflict
	}
	now := time.Now()
	a.Status = status
	a.ReviewedBy = &reviewerID
	a.ReviewedAt = &now
	a.ReviewerNote = note
	return nil
}

func (f *fakeStore) ClaimScan(ctx context.Context) (*models.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.scans {
		if s.Status == models.ScanStatusRunning {
			return nil, store.ErrConflict
		}
	}
	scan := &models.Scan{ID: uuid.New(), Status: models.ScanStatusRunning, StartedAt: time.Now()}
	f.scans[scan.ID] = scan
	copied := *scan
	return &copied, nil
}

func (f *fakeStore) UpdateScanStats(ctx context.Context, id uuid.UUID, stats models.ScanStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.scans[id]; ok {
		s.Stats = stats
	}
	return nil
}

func (f *fakeStore) FinishScan(ctx context.Context, id uuid.UUID, stats models.ScanStats, scanErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scans[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	s.Stats = stats
	s.CompletedAt = &now
	s.Status = models.ScanStatusCompleted
	if scanErr != nil {
		s.Status = models.ScanStatusFailed
		s.Error = scanErr.Error()
	}
	return nil
}

func (f *fakeStore) RunningScan(ctx context.Context) (*models.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.scans {
		if s.Status == models.ScanStatusRunning {
			copied := *s
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) LatestScan(ctx context.Context) (*models.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Scan
	for _, s := range f.scans {
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeStore) documentByPath(path string) *models.Document {
	d, _ := f.GetDocumentByPath(context.Background(), path)
	return d
}

// fakeBlobs serves objects from a map.
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	listErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (f *fakeBlobs) put(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = data
}

func (f *fakeBlobs) List(ctx context.Context, prefix string) ([]blobstore.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var infos []blobstore.ObjectInfo
	for path, data := range f.objects {
		if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
			infos = append(infos, blobstore.ObjectInfo{Path: path, Size: int64(len(data))})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos, nil
}

func (f *fakeBlobs) Get(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[path]
	if !ok {
		return nil, store.ErrNotFound
	}
	return data, nil
}

func (f *fakeBlobs) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.put(path, buf)
	return nil
}

func (f *fakeBlobs) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, path)
	return nil
}

func (f *fakeBlobs) DeletePrefix(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted []string
	for path := range f.objects {
		if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
			delete(f.objects, path)
			deleted = append(deleted, path)
		}
	}
	return deleted, nil
}

// fakeIndex stores points per collection and serves canned search hits.
type fakeIndex struct {
	mu     sync.Mutex
	points map[string]map[uuid.UUID]vectorindex.Point
	// hits are returned from Search (filtered by threshold); searchedIn
	// records which collections were queried.
	hits       []vectorindex.SearchResult
	searchedIn []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: make(map[string]map[uuid.UUID]vectorindex.Point)}
}

func (f *fakeIndex) Upsert(ctx context.Context, collection string, points []vectorindex.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.points[collection] == nil {
		f.points[collection] = make(map[uuid.UUID]vectorindex.Point)
	}
	for _, p := range points {
		f.points[collection][p.ID] = p
	}
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, collection string, vector []float32, k int, scoreThreshold float64) ([]vectorindex.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchedIn = append(f.searchedIn, collection)
	var results []vectorindex.SearchResult
	for _, h := range f.hits {
		if h.Score >= scoreThreshold {
			results = append(results, h)
		}
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (f *fakeIndex) DeleteByDocument(ctx context.Context, collection string, documentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.points[collection] {
		if p.Payload.Common().DocumentID == documentID {
			delete(f.points[collection], id)
		}
	}
	return nil
}

func (f *fakeIndex) pointCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points[collection])
}

// fakeEmbedder returns a unit vector per text.
type fakeEmbedder struct {
	mu         sync.Mutex
	failAll    bool
	failSingle bool
	noVector   bool
	embedded   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, context.DeadlineExceeded
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	f.embedded += len(texts)
	return vectors, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if f.failSingle {
		return nil, context.DeadlineExceeded
	}
	if f.noVector {
		return nil, nil
	}
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
