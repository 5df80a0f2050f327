// Package textextract computes content fingerprints and pulls plain text out
// of the document formats the knowledge base accepts. It is stateless and
// CPU-bound; callers may run it in a worker pool.
package textextract

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// Result is the extracted text of one document. Slides is populated for
// slide-based formats, preserving slide order for structured parsing.
type Result struct {
	Content string
	Slides  []string
	Pages   int
}

// Fingerprint returns the SHA-256 hex digest of the raw bytes. Used for
// change detection only.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Extract dispatches on the file extension. Unsupported formats and corrupt
// or unreadable files return an empty result with no error; the bytes will
// not change on a rescan, so callers treat undersized text as a skip rather
// than a failure to retry.
func Extract(data []byte, fileName string) (*Result, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return unreadable(extractPDF(data))
	case ".docx":
		return unreadable(extractDOCX(data))
	case ".pptx", ".ppt":
		return unreadable(extractPPTX(data))
	case ".xlsx":
		return unreadable(extractXLSX(data))
	case ".txt", ".md", ".csv":
		return &Result{Content: strings.TrimSpace(string(data)), Pages: 1}, nil
	case ".png", ".jpg", ".jpeg", ".tiff":
		return extractImage(data, fileName)
	default:
		return &Result{}, nil
	}
}

// unreadable maps a parse failure to an empty result. Legacy binary .ppt files
// land here too; they are not zip archives and carry no extractable text.
func unreadable(r *Result, err error) (*Result, error) {
	if err != nil {
		return &Result{}, nil
	}
	return r, nil
}

// IsSlideFormat reports whether the file carries slide-like structure, which
// the case-study splitter requires.
func IsSlideFormat(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pptx", ".ppt":
		return true
	}
	return false
}

func joinNonEmpty(parts []string, sep string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, sep)
}
