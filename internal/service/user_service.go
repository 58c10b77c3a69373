package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"microsocial/internal/apperror"
	"microsocial/internal/models"
	"microsocial/internal/realtime"
	"microsocial/internal/repository"
	"microsocial/internal/storage"
)

const (
	ImageAvatar = "avatar"
	ImageBanner = "banner"

	maxVerifyIDs = 100
)

var ErrStorageUnavailable = errors.New("object storage is not configured")

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type ProviderStatus struct {
	Provider  string `json:"provider"`
	Completed bool   `json:"oauthCompleted"`
}

type ImageUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UserService interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	ProviderStatuses(ctx context.Context, userID string) ([]ProviderStatus, error)
	RelatedUserIDs(ctx context.Context, userID string) ([]string, error)
	VerifyUserIDs(ctx context.Context, userIDs []string) (map[string]bool, error)
	UpdateProfile(ctx context.Context, callerID, targetID string, req models.UpdateProfileRequest) (*models.User, error)
	UploadImage(ctx context.Context, callerID, targetID, kind string, upload ImageUpload) (*models.User, error)
	DeleteAccount(ctx context.Context, callerID string) error
}

type userService struct {
	repo          *repository.Repository
	storage       storage.Storage
	notifier      realtime.Notifier
	maxUploadSize int64
	log           *zap.Logger
}

func NewUserService(repo *repository.Repository, storage storage.Storage, notifier realtime.Notifier, maxUploadSize int64, log *zap.Logger) UserService {
	return &userService{
		repo:          repo,
		storage:       storage,
		notifier:      notifier,
		maxUploadSize: maxUploadSize,
		log:           log,
	}
}

func (s *userService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.repo.User.GetByUserID(ctx, userID)
}

func (s *userService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.User.List(ctx, feedLimit)
}

func (s *userService) ProviderStatuses(ctx context.Context, userID string) ([]ProviderStatus, error) {
	users, err := s.repo.User.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperror.NotFound("user", userID)
	}

	statuses := make([]ProviderStatus, 0, len(users))
	for _, u := range users {
		statuses = append(statuses, ProviderStatus{Provider: u.Provider, Completed: u.OAuthCompleted})
	}
	return statuses, nil
}

// RelatedUserIDs returns the ids of other completed accounts that signed in
// with the same email. They remain separate identities.
func (s *userService) RelatedUserIDs(ctx context.Context, userID string) ([]string, error) {
	user, err := s.repo.User.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	related := []string{user.UserID}
	if user.Email == "" {
		return related, nil
	}

	others, err := s.repo.User.ListByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	for _, other := range others {
		if other.UserID != user.UserID {
			related = append(related, other.UserID)
		}
	}
	return related, nil
}

func (s *userService) VerifyUserIDs(ctx context.Context, userIDs []string) (map[string]bool, error) {
	if len(userIDs) > maxVerifyIDs {
		return nil, apperror.ValidationFailed("userIds", "too many user ids")
	}

	result := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		result[id] = false
	}
	if len(userIDs) == 0 {
		return result, nil
	}

	existing, err := s.repo.User.ExistingUserIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range existing {
		result[id] = true
	}
	return result, nil
}

func (s *userService) UpdateProfile(ctx context.Context, callerID, targetID string, req models.UpdateProfileRequest) (*models.User, error) {
	if callerID != targetID {
		return nil, apperror.Forbidden("you can only edit your own profile")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "name cannot be empty")
		}
		req.Name = &name
	}
	if req.Bio != nil {
		bio := strings.TrimSpace(*req.Bio)
		req.Bio = &bio
	}

	return s.repo.User.UpdateProfile(ctx, targetID, req)
}

func (s *userService) UploadImage(ctx context.Context, callerID, targetID, kind string, upload ImageUpload) (*models.User, error) {
	if callerID != targetID {
		return nil, apperror.Forbidden("you can only edit your own profile")
	}
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if kind != ImageAvatar && kind != ImageBanner {
		return nil, apperror.ValidationFailed("kind", "unknown image kind")
	}
	if !allowedImageTypes[upload.ContentType] {
		return nil, apperror.ValidationFailed("file", "only jpeg, png, gif and webp images are allowed")
	}
	if upload.Size <= 0 || upload.Size > s.maxUploadSize {
		return nil, apperror.ValidationFailed("file", fmt.Sprintf("image must be at most %d bytes", s.maxUploadSize))
	}

	current, err := s.repo.User.GetByUserID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.UploadImage(ctx, targetID, kind, upload.FileName, upload.ContentType, upload.Body, upload.Size)
	if err != nil {
		return nil, err
	}

	var req models.UpdateProfileRequest
	previous := current.Image
	if kind == ImageAvatar {
		req.Image = &url
	} else {
		req.BannerImage = &url
		previous = current.BannerImage
	}

	user, err := s.repo.User.UpdateProfile(ctx, targetID, req)
	if err != nil {
		if delErr := s.storage.DeleteImage(ctx, url); delErr != nil {
			s.log.Warn("failed to remove orphaned upload", zap.String("url", url), zap.Error(delErr))
		}
		return nil, err
	}

	if previous != "" {
		if err := s.storage.DeleteImage(ctx, previous); err != nil {
			s.log.Warn("failed to remove previous image", zap.String("url", previous), zap.Error(err))
		}
	}

	return user, nil
}

// DeleteAccount removes the caller and everything they own. The steps are
// independent writes; a failure part way leaves the earlier steps applied.
func (s *userService) DeleteAccount(ctx context.Context, callerID string) error {
	user, err := s.repo.User.GetByUserID(ctx, callerID)
	if err != nil {
		return err
	}

	deletedPosts, err := s.repo.Post.DeleteByAuthor(ctx, callerID)
	if err != nil {
		return err
	}
	for _, id := range deletedPosts {
		s.notifier.Notify(ctx, realtime.ChannelPosts, realtime.EventDeletePost, map[string]string{"postId": id})
	}

	if err := s.repo.Message.DeleteByUser(ctx, callerID); err != nil {
		return err
	}
	if err := s.repo.Draft.DeleteByOwner(ctx, callerID); err != nil {
		return err
	}
	if err := s.repo.Session.DeleteByUserID(ctx, callerID); err != nil {
		return err
	}
	if err := s.repo.User.RemoveFromFollowSets(ctx, callerID); err != nil {
		return err
	}
	if err := s.repo.User.Delete(ctx, callerID); err != nil {
		return err
	}

	if s.storage != nil {
		for _, url := range []string{user.Image, user.BannerImage} {
			if url == "" {
				continue
			}
			if err := s.storage.DeleteImage(ctx, url); err != nil {
				s.log.Warn("failed to remove profile image", zap.String("url", url), zap.Error(err))
			}
		}
	}

	s.log.Info("account deleted",
		zap.String("userId", callerID),
		zap.Int("posts", len(deletedPosts)),
	)
	return nil
}
