package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
)

// DocumentInfo represents a document in the list response.
type DocumentInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Version      int    `json:"version"`
	LastModified string `json:"last_modified"`
}

// DocumentListResponse represents the documents list response.
type DocumentListResponse struct {
	Documents []DocumentInfo `json:"documents"`
	Total     int            `json:"total"`
}

// GetDocument returns the current snapshot of a loaded document.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !models.ValidDocumentID(id) {
		h.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, ok := h.hub.Snapshot(id)
	if !ok {
		h.Error(w, http.StatusNotFound, "document not found")
		return
	}
	h.JSON(w, http.StatusOK, doc)
}

// ListDocuments lists loaded documents, most recently modified first.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit := 20
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	docs := h.hub.Documents()
	total := len(docs)
	if offset > total {
		offset = total
	}
	docs = docs[offset:min(offset+limit, total)]

	infos := make([]DocumentInfo, len(docs))
	for i, doc := range docs {
		infos[i] = DocumentInfo{
			ID:           doc.ID,
			Title:        doc.Title,
			Version:      doc.Version,
			LastModified: time.UnixMilli(doc.LastModified).UTC().Format(time.RFC3339),
		}
	}

	h.JSON(w, http.StatusOK, DocumentListResponse{
		Documents: infos,
		Total:     total,
	})
}
