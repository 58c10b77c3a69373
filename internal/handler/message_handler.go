package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"microsocial/internal/models"
)

func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	conversations, err := h.MessageService.ListConversations(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"conversations": conversations}, http.StatusOK)
}

func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.MessageService.SendMessage(r.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"message": msg}, http.StatusCreated)
}

func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	messages, err := h.MessageService.GetConversation(r.Context(), userID, chi.URLParam(r, "counterpartId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"messages": messages}, http.StatusOK)
}
