package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scopeworks/kbingest/internal/ingest"
	"github.com/scopeworks/kbingest/internal/models"
	"github.com/scopeworks/kbingest/internal/store"
)

type DocumentHandler struct {
	store    *store.Store
	pipeline *ingest.Pipeline
}

func NewDocumentHandler(st *store.Store, pipeline *ingest.Pipeline) *DocumentHandler {
	return &DocumentHandler{store: st, pipeline: pipeline}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}

	var vectorized *bool
	if v := r.URL.Query().Get("vectorized"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid vectorized filter")
			return
		}
		vectorized = &parsed
	}

	docs, err := h.store.ListDocuments(r.Context(), vectorized, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.store.GetDocument(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// Delete removes a document and its vectors from the index.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	err = h.pipeline.DeleteDocument(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "document_id": id.String()})
}

// ResetFailed clears vectorization state on documents whose latest job failed
// so the next scan retries them.
func (h *DocumentHandler) ResetFailed(w http.ResponseWriter, r *http.Request) {
	count, err := h.pipeline.ResetFailedDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "reset", "documents": count})
}
