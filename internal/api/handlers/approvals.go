package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scopeworks/kbingest/internal/ingest"
	"github.com/scopeworks/kbingest/internal/models"
	"github.com/scopeworks/kbingest/internal/store"
)

type ApprovalHandler struct {
	store    *store.Store
	pipeline *ingest.Pipeline
}

func NewApprovalHandler(st *store.Store, pipeline *ingest.Pipeline) *ApprovalHandler {
	return &ApprovalHandler{store: st, pipeline: pipeline}
}

func (h *ApprovalHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.ApprovalStatusPending
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}

	approvals, err := h.store.ListApprovals(r.Context(), status, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if approvals == nil {
		approvals = []models.PendingApproval{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"approvals": approvals, "count": len(approvals)})
}

type reviewRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Note       string `json:"note"`
}

func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "approved", h.pipeline.Approve)
}

func (h *ApprovalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "rejected", h.pipeline.Reject)
}

func (h *ApprovalHandler) review(w http.ResponseWriter, r *http.Request, decision string,
	resolve func(ctx context.Context, approvalID, reviewerID uuid.UUID, note string) error) {

	approvalID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid approval id")
		return
	}

	var req reviewRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // body is optional
	}
	reviewerID := uuid.Nil
	if req.ReviewerID != "" {
		reviewerID, err = uuid.Parse(req.ReviewerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid reviewer id")
			return
		}
	}

	err = resolve(r.Context(), approvalID, reviewerID, req.Note)
	switch {
	case errors.Is(err, ingest.ErrApprovalNotFound):
		writeError(w, http.StatusNotFound, "approval not found")
	case errors.Is(err, ingest.ErrNotPending):
		writeError(w, http.StatusConflict, "approval already resolved")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": decision, "approval_id": approvalID.String()})
	}
}
