package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"microsocial/internal/models"
)

func (h *Handlers) ListDrafts(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	drafts, err := h.DraftService.ListDrafts(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"drafts": drafts}, http.StatusOK)
}

func (h *Handlers) SaveDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req models.ContentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	draft, err := h.DraftService.SaveDraft(r.Context(), userID, req.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"draft": draft}, http.StatusCreated)
}

func (h *Handlers) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	draftID := chi.URLParam(r, "id")
	if draftID == "" {
		draftID = r.URL.Query().Get("id")
	}

	if err := h.DraftService.DeleteDraft(r.Context(), userID, draftID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"message": "Draft deleted"}, http.StatusOK)
}
