package handlers

import (
	"net/http"
	"strconv"

	"github.com/scopeworks/kbingest/internal/models"
	"github.com/scopeworks/kbingest/internal/store"
)

type JobHandler struct {
	store *store.Store
}

func NewJobHandler(st *store.Store) *JobHandler {
	return &JobHandler{store: st}
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}

	jobs, err := h.store.ListJobs(r.Context(), status, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if jobs == nil {
		jobs = []models.ProcessingJob{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs, "count": len(jobs)})
}
