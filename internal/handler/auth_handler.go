package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"microsocial/internal/models"
	"microsocial/internal/service"
)

const stateCookie = "oauth_state"

type AuthResponse struct {
	*service.Tokens
	User *models.User `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *Handlers) ListProviders(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, envelope{"providers": h.Providers.Names()}, http.StatusOK)
}

// Register creates a pending user. The account becomes usable once the same
// provider completes a sign-in.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, err := h.AuthService.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{
		"message": "Registration pending, sign in with " + user.Provider + " to complete it",
		"user":    user,
	}, http.StatusCreated)
}

func (h *Handlers) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.Providers.Get(chi.URLParam(r, "provider"))
	if !ok {
		WriteError(w, "Unknown provider", http.StatusNotFound)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   !h.Cfg.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// OAuthCallback completes the provider flow, resolves the canonical user and
// starts a session.
func (h *Handlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.Providers.Get(chi.URLParam(r, "provider"))
	if !ok {
		WriteError(w, "Unknown provider", http.StatusNotFound)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		WriteError(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if denied := r.URL.Query().Get("error"); denied != "" {
		WriteError(w, "Authorization was denied", http.StatusUnauthorized)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		WriteError(w, "Missing OAuth code", http.StatusBadRequest)
		return
	}

	profile, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.Log.Error("oauth exchange failed", zap.String("provider", provider.Name()), zap.Error(err))
		WriteError(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	user, err := h.AuthService.ResolveIdentity(r.Context(), *profile)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	tokens, err := h.AuthService.IssueTokens(r.Context(), user)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"auth": AuthResponse{Tokens: tokens, User: user}}, http.StatusOK)
}

func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, tokens, err := h.AuthService.RefreshTokens(r.Context(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"auth": AuthResponse{Tokens: tokens, User: user}}, http.StatusOK)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.AuthService.Logout(r.Context(), strings.TrimSpace(req.RefreshToken)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"message": "Logged out"}, http.StatusOK)
}

func (h *Handlers) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	user, err := h.UserService.GetUser(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, envelope{"user": user}, http.StatusOK)
}
