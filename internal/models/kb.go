package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Category routes a document to its logical vector collection. Case studies
// and general knowledge are never mixed in similarity search.
type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryCaseStudy Category = "case_study"
)

// Document is one unit of knowledge-base content tracked against the object
// store. Multi-record source files produce one Document per structured record,
// keyed by a synthetic path like "originalPath#record_2".
type Document struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	FileName    string     `json:"file_name" db:"file_name"`
	BlobPath    string     `json:"blob_path" db:"blob_path"`
	FileHash    string     `json:"file_hash" db:"file_hash"` // SHA-256 of raw bytes
	FileSize    int64      `json:"file_size" db:"file_size"`
	Category    Category   `json:"category" db:"category"`
	CaseStudy   *CaseStudy `json:"case_study,omitempty" db:"case_study"`
	IsVectorized bool      `json:"is_vectorized" db:"is_vectorized"`
	VectorCount int        `json:"vector_count" db:"vector_count"`
	VectorIDs   []string   `json:"vector_ids,omitempty" db:"vector_ids"`
	UploadedAt  time.Time  `json:"uploaded_at" db:"uploaded_at"`
	VectorizedAt *time.Time `json:"vectorized_at,omitempty" db:"vectorized_at"`
	LastChecked *time.Time `json:"last_checked,omitempty" db:"last_checked"`
}

// CaseStudy holds the structured fields extracted from a case-study slide
// deck. Stored as a JSON side record on the Document.
type CaseStudy struct {
	ClientName string `json:"client_name"`
	Overview   string `json:"overview"`
	Solution   string `json:"solution"`
	Impact     string `json:"impact"`
	SlideRange string `json:"slide_range,omitempty"`
}

// FullText builds the canonical text representation used for chunking and
// embedding a structured case study.
func (cs *CaseStudy) FullText() string {
	return "Client: " + cs.ClientName +
		"\n\nOverview: " + cs.Overview +
		"\n\nSolution: " + cs.Solution +
		"\n\nImpact: " + cs.Impact
}

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// ProcessingJob records one attempt to vectorize a Document.
type ProcessingJob struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	DocumentID      uuid.UUID  `json:"document_id" db:"document_id"`
	Status          string     `json:"status" db:"status"`
	ChunksProcessed int        `json:"chunks_processed" db:"chunks_processed"`
	VectorsCreated  int        `json:"vectors_created" db:"vectors_created"`
	ErrorMessage    string     `json:"error_message,omitempty" db:"error_message"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

const (
	UpdateTypeNew       = "new"
	UpdateTypeUpdate    = "update"
	UpdateTypeDuplicate = "duplicate"
)

// RelatedDocument is an existing document found near a candidate by the
// similarity prober.
type RelatedDocument struct {
	DocumentID uuid.UUID `json:"document_id"`
	FileName   string    `json:"file_name"`
	BlobPath   string    `json:"blob_path"`
	Score      float64   `json:"similarity_score"`
}

// PendingApproval is a proposed admission blocked on human review. At most one
// open (pending) approval exists per candidate document.
type PendingApproval struct {
	ID           uuid.UUID         `json:"id" db:"id"`
	DocumentID   uuid.UUID         `json:"document_id" db:"document_id"`
	Related      []RelatedDocument `json:"related_documents" db:"related_documents"`
	UpdateType   string            `json:"update_type" db:"update_type"`
	Score        float64           `json:"similarity_score" db:"similarity_score"`
	Reason       string            `json:"reason" db:"reason"`
	Status       string            `json:"status" db:"status"`
	ReviewedBy   *uuid.UUID        `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt   *time.Time        `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewerNote string            `json:"reviewer_note,omitempty" db:"reviewer_note"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

const (
	ScanStatusRunning   = "running"
	ScanStatusCompleted = "completed"
	ScanStatusFailed    = "failed"
)

// ScanStats is the progress report of a scan. Counts are partial until the
// scan row reaches a terminal status.
type ScanStats struct {
	Scanned         int `json:"scanned"`
	New             int `json:"new"`
	Updated         int `json:"updated"`
	Failed          int `json:"failed"`
	PendingApproval int `json:"pending_approval"`
}

// Scan is the store-backed record of a scan run. Its presence in "running"
// status is the authoritative "scan in progress" flag, so status survives a
// process restart.
type Scan struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Status      string     `json:"status" db:"status"`
	Stats       ScanStats  `json:"stats" db:"stats"`
	Error       string     `json:"error,omitempty" db:"error"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// MarshalStats serializes stats for the scans row.
func (s *Scan) MarshalStats() ([]byte, error) {
	return json.Marshal(s.Stats)
}
