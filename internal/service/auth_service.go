package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"microsocial/internal/apperror"
	"microsocial/internal/auth"
	"microsocial/internal/models"
	"microsocial/internal/repository"
)

type Tokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	ResolveIdentity(ctx context.Context, profile models.ProviderProfile) (*models.User, error)
	IssueTokens(ctx context.Context, user *models.User) (*Tokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*models.User, *Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
}

type authService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	tokens      *auth.TokenService
	providers   []string
	refreshTTL  time.Duration
	log         *zap.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	tokens *auth.TokenService,
	providers []string,
	refreshTTL time.Duration,
	log *zap.Logger,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		providers:   providers,
		refreshTTL:  refreshTTL,
		log:         log,
	}
}

func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	userID := strings.TrimSpace(req.UserID)
	name := strings.TrimSpace(req.Name)

	if !ValidAppUserID(userID) {
		return nil, apperror.ValidationFailed("userId",
			"user id must be 3-20 characters: letters, digits, _ or -")
	}
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name cannot be empty")
	}
	if !slices.Contains(s.providers, req.Provider) {
		return nil, apperror.ValidationFailed("provider", "unsupported provider")
	}

	existing, err := s.userRepo.GetByUserIDAndProvider(ctx, userID, req.Provider)
	switch {
	case err == nil && existing.OAuthCompleted:
		return nil, apperror.Conflict("user id is already registered with this provider")
	case err == nil:
		return nil, apperror.Conflict("a registration for this user id is already pending")
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, err
	}

	user := &models.User{
		UserID:   userID,
		Name:     name,
		Provider: req.Provider,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("pending registration created",
		zap.String("userId", userID),
		zap.String("provider", req.Provider),
	)
	return user, nil
}

// ResolveIdentity maps a provider account to its canonical user. A completed
// account is returned as is. Otherwise the newest pending registration for
// the provider is bound to the account, and when that fails or none exists a
// user named provider_accountId is provisioned.
func (s *authService) ResolveIdentity(ctx context.Context, profile models.ProviderProfile) (*models.User, error) {
	user, err := s.userRepo.GetByProviderAccount(ctx, profile.Provider, profile.ProviderAccountID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	fallbackID := fallbackUserID(profile)
	logger := s.log.With(
		zap.String("provider", profile.Provider),
		zap.String("providerAccountId", profile.ProviderAccountID),
	)

	pending, err := s.userRepo.GetLatestPending(ctx, profile.Provider)
	switch {
	case err == nil:
		user, err := s.completePending(ctx, pending, profile, fallbackID)
		if err == nil {
			logger.Info("pending registration linked", zap.String("userId", user.UserID))
			return user, nil
		}
		logger.Warn("linking pending registration failed, provisioning instead",
			zap.String("pendingUserId", pending.UserID),
			zap.Error(err),
		)
	case errors.Is(err, apperror.ErrNotFound):
	default:
		logger.Warn("pending registration lookup failed, provisioning instead", zap.Error(err))
	}

	return s.provision(ctx, profile, fallbackID)
}

func (s *authService) completePending(ctx context.Context, pending *models.User, profile models.ProviderProfile, fallbackID string) (*models.User, error) {
	userID := pending.UserID

	// another provider already completed this id
	_, err := s.userRepo.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		userID = fallbackID
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, err
	}

	if err := s.userRepo.CompletePending(ctx, pending.ID, userID, profile); err != nil {
		return nil, err
	}

	return s.userRepo.GetByProviderAccount(ctx, profile.Provider, profile.ProviderAccountID)
}

func (s *authService) provision(ctx context.Context, profile models.ProviderProfile, fallbackID string) (*models.User, error) {
	accountID := profile.ProviderAccountID
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = fallbackID
	}

	user := &models.User{
		UserID:         fallbackID,
		Name:           name,
		Provider:       profile.Provider,
		ProviderID:     &accountID,
		Email:          profile.Email,
		Image:          profile.Image,
		OAuthCompleted: true,
	}

	err := s.userRepo.Create(ctx, user)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrConflict) {
		return nil, err
	}

	// a concurrent sign-in of the same account may have won
	if existing, lookupErr := s.userRepo.GetByProviderAccount(ctx, profile.Provider, accountID); lookupErr == nil {
		return existing, nil
	}

	user.ID = ""
	user.UserID = fallbackID + "_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Warn("provisioned user with suffixed id", zap.String("userId", user.UserID))
	return user, nil
}

func fallbackUserID(profile models.ProviderProfile) string {
	id := profile.Provider + "_" + profile.ProviderAccountID
	if len(id) > 56 {
		id = id[:56]
	}
	return id
}

// IssueTokens starts a session. The refresh token has the form
// "<sessionID>.<secret>" and only a bcrypt hash of the secret is stored.
func (s *authService) IssueTokens(ctx context.Context, user *models.User) (*Tokens, error) {
	accessToken, expiresAt, err := s.tokens.Generate(user.UserID, user.Provider)
	if err != nil {
		return nil, err
	}

	secret, err := randomSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:          uuid.New().String(),
		UserID:      user.UserID,
		Provider:    user.Provider,
		RefreshHash: string(hash),
		ExpiresAt:   now.Add(s.refreshTTL),
		CreatedAt:   now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return &Tokens{
		AccessToken:  accessToken,
		RefreshToken: session.ID + "." + secret,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *authService) RefreshTokens(ctx context.Context, refreshToken string) (*models.User, *Tokens, error) {
	session, err := s.verifySession(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetByUserID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, nil, err
	}

	if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
		return nil, nil, err
	}

	tokens, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, tokens, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.verifySession(ctx, refreshToken)
	if err != nil {
		return err
	}
	return s.sessionRepo.Delete(ctx, session.ID)
}

func (s *authService) verifySession(ctx context.Context, refreshToken string) (*models.Session, error) {
	invalid := apperror.Unauthorized("invalid or expired refresh token")

	sessionID, secret, ok := strings.Cut(refreshToken, ".")
	if !ok || secret == "" {
		return nil, invalid
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, invalid
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
			s.log.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, invalid
	}

	if bcrypt.CompareHashAndPassword([]byte(session.RefreshHash), []byte(secret)) != nil {
		return nil, invalid
	}

	return session, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
