// Package server builds the chi router and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"microsocial/internal/auth"
	"microsocial/internal/config"
	handlers "microsocial/internal/handler"
	"microsocial/internal/middleware"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

type Server struct {
	router *chi.Mux
	cfg    *config.Config
	log    *zap.Logger
}

func New(cfg *config.Config, h *handlers.Handlers, tokens *auth.TokenService, log *zap.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		log:    log,
	}
	s.setupRoutes(h, tokens)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(h *handlers.Handlers, tokens *auth.TokenService) {
	limiter := middleware.NewRateLimiter(s.cfg.RateLimit.RequestsPerSecond, s.cfg.RateLimit.Burst)
	requireAuth := middleware.AuthMiddleware(tokens)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.LoggingMiddleware(s.log))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.CleanPath)
	s.router.Use(middleware.CORSMiddleware(s.cfg.Server.AllowedOrigin))
	s.router.Use(chimiddleware.Heartbeat("/ping"))

	s.router.NotFound(h.NotFound)
	s.router.MethodNotAllowed(h.MethodNotAllowed)

	s.router.Get("/health", h.HealthHandler)

	s.router.Route("/api", func(r chi.Router) {
		// websocket connections outlive the request timeout
		r.With(requireAuth).Get("/realtime", h.Realtime)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))
			r.Use(limiter.Middleware)

			r.Route("/auth", func(r chi.Router) {
				r.Get("/providers", h.ListProviders)
				r.Post("/register", h.Register)
				r.Get("/{provider}/login", h.OAuthLogin)
				r.Get("/{provider}/callback", h.OAuthCallback)
				r.Post("/refresh-token", h.RefreshToken)
				r.Post("/logout", h.Logout)
			})

			r.Route("/users", func(r chi.Router) {
				// identity lookups used by the sign-up flow before a session exists
				r.Get("/{id}/provider", h.GetUserProvider)
				r.Post("/verify", h.VerifyUsers)

				r.Group(func(r chi.Router) {
					r.Use(requireAuth)

					r.Get("/", h.ListUsers)
					r.Delete("/delete-account", h.DeleteAccount)
					r.Get("/{id}", h.GetUser)
					r.Get("/{id}/related", h.RelatedUsers)
					r.Put("/{id}/update", h.UpdateProfile)
					r.Post("/{id}/avatar", h.UploadAvatar)
					r.Post("/{id}/banner", h.UploadBanner)
					r.Get("/{id}/posts", h.GetUserPosts)
					r.Post("/{id}/follow", h.Follow)
					r.Delete("/{id}/follow", h.Unfollow)
					r.Get("/{id}/check-follow", h.CheckFollow)
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)

				r.Get("/me", h.GetCurrentUser)

				r.Route("/posts", func(r chi.Router) {
					r.Get("/", h.GetPosts)
					r.Post("/", h.CreatePost)
					r.Get("/bookmarks", h.GetBookmarks)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", h.GetPost)
						r.Put("/", h.UpdatePost)
						r.Delete("/", h.DeletePost)
						r.Post("/", h.DeletePost) // legacy clients delete with POST
						r.Post("/like", h.ToggleLike)
						r.Post("/repost", h.ToggleRepost)
						r.Post("/bookmark", h.ToggleBookmark)
						r.Post("/comments", h.AddComment)
					})
				})

				r.Route("/messages", func(r chi.Router) {
					r.Get("/", h.ListConversations)
					r.Post("/", h.SendMessage)
					r.Get("/{counterpartId}", h.GetConversation)
				})

				r.Route("/drafts", func(r chi.Router) {
					r.Get("/", h.ListDrafts)
					r.Post("/", h.SaveDraft)
					r.Delete("/", h.DeleteDraft)
					r.Delete("/{id}", h.DeleteDraft)
				})
			})
		})
	})
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info("server starting",
			zap.Int("port", s.cfg.Server.Port),
			zap.String("env", s.cfg.Server.Env),
			zap.String("url", s.cfg.Server.PublicURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.log.Info("server stopped gracefully")
	}

	return nil
}
