package handlers

import (
	"errors"
	"net/http"

	"github.com/scopeworks/kbingest/internal/store"
)

type StatsHandler struct {
	store *store.Store
}

func NewStatsHandler(st *store.Store) *StatsHandler {
	return &StatsHandler{store: st}
}

// Get summarizes the knowledge base: document and vectorization counts, job
// states, open approvals, and the last scan.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, vectorized, err := h.store.CountDocuments(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	jobCounts, err := h.store.CountJobsByStatus(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	openApprovals, err := h.store.CountOpenApprovals(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stats := map[string]interface{}{
		"documents": map[string]int{
			"total":      total,
			"vectorized": vectorized,
			"pending":    total - vectorized,
		},
		"jobs":           jobCounts,
		"open_approvals": openApprovals,
	}

	if scan, err := h.store.LatestScan(ctx); err == nil {
		stats["last_scan"] = scan
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
