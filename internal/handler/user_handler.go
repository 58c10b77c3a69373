package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"microsocial/internal/models"
	"microsocial/internal/service"
)

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"users": users}, http.StatusOK)
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"user": user}, http.StatusOK)
}

func (h *Handlers) GetUserProvider(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.UserService.ProviderStatuses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"providers": statuses}, http.StatusOK)
}

func (h *Handlers) RelatedUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := h.UserService.RelatedUserIDs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"userIds": ids}, http.StatusOK)
}

func (h *Handlers) VerifyUsers(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyUsersRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	result, err := h.UserService.VerifyUserIDs(r.Context(), req.UserIDs)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"users": result}, http.StatusOK)
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, err := h.UserService.UpdateProfile(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"user": user}, http.StatusOK)
}

func (h *Handlers) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	h.uploadImage(w, r, service.ImageAvatar)
}

func (h *Handlers) UploadBanner(w http.ResponseWriter, r *http.Request) {
	h.uploadImage(w, r, service.ImageBanner)
}

func (h *Handlers) uploadImage(w http.ResponseWriter, r *http.Request, kind string) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	// room for the multipart framing around the file
	r.Body = http.MaxBytesReader(w, r.Body, h.Cfg.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(h.Cfg.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, "File is too large", http.StatusRequestEntityTooLarge)
			return
		}
		WriteError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		WriteError(w, "Image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	upload := service.ImageUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}

	user, err := h.UserService.UploadImage(r.Context(), userID, chi.URLParam(r, "id"), kind, upload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"user": user}, http.StatusOK)
}

func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.UserService.DeleteAccount(r.Context(), userID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"message": "Account deleted"}, http.StatusOK)
}

func (h *Handlers) Follow(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.FollowService.Follow(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"following": true}, http.StatusOK)
}

func (h *Handlers) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.FollowService.Unfollow(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"following": false}, http.StatusOK)
}

func (h *Handlers) CheckFollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	following, err := h.FollowService.IsFollowing(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"isFollowing": following}, http.StatusOK)
}
