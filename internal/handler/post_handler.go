package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"microsocial/internal/models"
	"microsocial/internal/service"
)

// GetPosts returns the feed. ?filter=following limits it to followed authors.
func (h *Handlers) GetPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	filter := r.URL.Query().Get("filter")
	if filter == "" {
		filter = service.FilterAll
	}

	posts, err := h.PostService.ListPosts(r.Context(), userID, filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"posts": posts}, http.StatusOK)
}

func (h *Handlers) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	posts, err := h.PostService.ListUserPosts(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"posts": posts}, http.StatusOK)
}

func (h *Handlers) GetBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	posts, err := h.PostService.ListBookmarks(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"posts": posts}, http.StatusOK)
}

func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	post, err := h.PostService.GetPost(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"post": post}, http.StatusOK)
}

func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req models.ContentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	post, err := h.PostService.CreatePost(r.Context(), userID, req.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"post": post}, http.StatusCreated)
}

func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req models.ContentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	post, err := h.PostService.UpdatePost(r.Context(), userID, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"post": post}, http.StatusOK)
}

func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.PostService.DeletePost(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"message": "Post deleted"}, http.StatusOK)
}

func (h *Handlers) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	result, err := h.PostService.ToggleLike(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"liked": result.Liked, "likes": result.Likes, "postId": result.PostID}, http.StatusOK)
}

func (h *Handlers) ToggleRepost(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	result, err := h.PostService.ToggleRepost(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	payload := envelope{
		"postId":      result.PostID,
		"reposted":    result.Reposted,
		"repostCount": result.RepostCount,
	}
	if result.Repost != nil {
		payload["repost"] = result.Repost
	}
	writeSuccess(w, payload, http.StatusOK)
}

func (h *Handlers) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	result, err := h.PostService.ToggleBookmark(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{
		"postId":     result.PostID,
		"bookmarked": result.Bookmarked,
		"bookmarks":  result.Bookmarks,
	}, http.StatusOK)
}

func (h *Handlers) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req models.ContentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	comments, err := h.PostService.AddComment(r.Context(), userID, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"comments": comments}, http.StatusCreated)
}
