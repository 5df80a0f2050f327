package handlers

import (
	"errors"
	"net/http"

	"github.com/scopeworks/kbingest/internal/queue"
	"github.com/scopeworks/kbingest/internal/store"
)

type ScanHandler struct {
	store *store.Store
	queue *queue.Client
}

func NewScanHandler(st *store.Store, qc *queue.Client) *ScanHandler {
	return &ScanHandler{store: st, queue: qc}
}

// Trigger enqueues a scan. Idempotent: if a scan is already running or
// queued, the response reports that instead of starting a second one.
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if running, err := h.store.RunningScan(r.Context()); err == nil {
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"status":  "already_running",
			"scan_id": running.ID,
			"stats":   running.Stats,
		})
		return
	}

	err := h.queue.EnqueueScanRun(queue.ScanRunPayload{TriggeredBy: "api"})
	if errors.Is(err, queue.ErrScanQueued) {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "already_queued"})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// Status reports the running scan if there is one, otherwise the most recent
// finished scan. Stats are partial while a scan is in flight.
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	scan, err := h.store.RunningScan(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		scan, err = h.store.LatestScan(r.Context())
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "never_run"})
			return
		}
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, scan)
}
