package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"microsocial/internal/apperror"
	"microsocial/internal/auth"
	"microsocial/internal/config"
	"microsocial/internal/realtime"
	"microsocial/internal/repository"
	"microsocial/internal/storage"
)

type Service struct {
	User    UserService
	Auth    AuthService
	Follow  FollowService
	Post    PostService
	Message MessageService
	Draft   DraftService
}

// NewService wires every service. store may be nil when object storage is
// not configured.
func NewService(
	rep *repository.Repository,
	cfg *config.Config,
	tokens *auth.TokenService,
	providers auth.Providers,
	store storage.Storage,
	notifier realtime.Notifier,
	log *zap.Logger,
) *Service {
	return &Service{
		User:    NewUserService(rep, store, notifier, cfg.MaxUploadSize, log.Named("users")),
		Auth:    NewAuthService(rep.User, rep.Session, tokens, providers.Names(), cfg.RefreshTokenDuration, log.Named("auth")),
		Follow:  NewFollowService(rep.User),
		Post:    NewPostService(rep.Post, rep.User, notifier, log.Named("posts")),
		Message: NewMessageService(rep.Message, rep.User, notifier, log.Named("messages")),
		Draft:   NewDraftService(rep.Draft, rep.User),
	}
}

// requireAccount rejects writes from a caller whose account was deleted while
// their access token is still valid.
func requireAccount(ctx context.Context, users repository.UserRepository, userID string) error {
	if _, err := users.GetByUserID(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.Unauthorized("account no longer exists")
		}
		return err
	}
	return nil
}
