package ingest

import "github.com/scopeworks/kbingest/internal/models"

// admission is what the scan loop should do with a candidate document after
// comparing its fingerprint against the stored record.
type admission int

const (
	// admitNew: no stored record, run the similarity probe and process.
	admitNew admission = iota
	// admitSkip: nothing to do, content is already admitted or already queued
	// for review.
	admitSkip
	// admitReprocess: record exists and fingerprint matches but the content
	// never made it into the index and no review was ever opened. A prior run
	// died mid-flight; probe and process again.
	admitReprocess
	// admitApproved: an operator already approved this exact content but the
	// vectorize pass after approval failed. Vectorize directly, no new probe.
	admitApproved
	// admitChanged: fingerprint differs, stale vectors must be dropped before
	// the new content is processed.
	admitChanged
)

// classifyDocument is the admission state machine. It is pure: callers hand it
// the stored record (nil when unseen) and the latest approval status for the
// document ("" when none exists).
//
// A rejected review is a standing decision about this exact content, so the
// document is skipped for as long as its fingerprint is unchanged. A changed
// fingerprint outranks any past review.
func classifyDocument(stored *models.Document, fileHash string, approvalStatus string) admission {
	switch {
	case stored == nil:
		return admitNew
	case stored.FileHash != fileHash:
		return admitChanged
	case stored.IsVectorized:
		return admitSkip
	case approvalStatus == models.ApprovalStatusPending,
		approvalStatus == models.ApprovalStatusRejected:
		return admitSkip
	case approvalStatus == models.ApprovalStatusApproved:
		return admitApproved
	default:
		return admitReprocess
	}
}

// classifyUpdate maps the best similarity score to an update type. Scores
// above the duplicate threshold mean the content is effectively already in
// the knowledge base; scores in the band between the two thresholds mean it
// overlaps an existing document enough to need review. Both thresholds are
// exclusive lower bounds, so a score exactly at the similarity threshold
// commits directly.
func classifyUpdate(score, similarityThreshold, duplicateThreshold float64) string {
	switch {
	case score > duplicateThreshold:
		return models.UpdateTypeDuplicate
	case score > similarityThreshold:
		return models.UpdateTypeUpdate
	default:
		return models.UpdateTypeNew
	}
}
