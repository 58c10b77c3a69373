package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"microsocial/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUserID(ctx context.Context, userID string) (*models.User, error)
	GetByUserIDAndProvider(ctx context.Context, userID, provider string) (*models.User, error)
	GetByProviderAccount(ctx context.Context, provider, providerID string) (*models.User, error)
	GetLatestPending(ctx context.Context, provider string) (*models.User, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.User, error)
	ListByEmail(ctx context.Context, email string) ([]*models.User, error)
	List(ctx context.Context, limit int) ([]*models.User, error)
	ExistingUserIDs(ctx context.Context, userIDs []string) ([]string, error)
	CompletePending(ctx context.Context, id, userID string, profile models.ProviderProfile) error
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
	AddFollowing(ctx context.Context, userID, targetID string) error
	RemoveFollowing(ctx context.Context, userID, targetID string) error
	AddFollower(ctx context.Context, userID, followerID string) error
	RemoveFollower(ctx context.Context, userID, followerID string) error
	RemoveFromFollowSets(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, postID string) (*models.Post, error)
	List(ctx context.Context, authorIDs []string, limit int) ([]*models.Post, error)
	ListBookmarked(ctx context.Context, userID string, limit int) ([]*models.Post, error)
	UpdateContent(ctx context.Context, postID, content string, updatedAt time.Time) error
	Delete(ctx context.Context, postID string) error
	DeleteByAuthor(ctx context.Context, authorID string) ([]string, error)
	AddLike(ctx context.Context, postID, userID string) (int, error)
	RemoveLike(ctx context.Context, postID, userID string) (int, error)
	AddBookmark(ctx context.Context, postID, userID string) (int, error)
	RemoveBookmark(ctx context.Context, postID, userID string) (int, error)
	AddComment(ctx context.Context, postID string, comment models.Comment) (models.Comments, error)
	FindRepost(ctx context.Context, authorID, originalID string) (*models.Post, error)
	AdjustRepostCount(ctx context.Context, postID string, delta int) (int, error)
	DeleteRepostsOf(ctx context.Context, originalID string) ([]string, error)
	RepostedOriginals(ctx context.Context, userID string, originalIDs []string) ([]string, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListInvolving(ctx context.Context, userID string) ([]*models.Message, error)
	ListBetween(ctx context.Context, userID, counterpartID string) ([]*models.Message, error)
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type DraftRepository interface {
	Create(ctx context.Context, draft *models.Draft) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Draft, error)
	Delete(ctx context.Context, draftID, ownerID string) error
	DeleteByOwner(ctx context.Context, ownerID string) error
}

type Repository struct {
	User    UserRepository
	Session SessionRepository
	Post    PostRepository
	Message MessageRepository
	Draft   DraftRepository
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		User:    NewUserRepository(db),
		Session: NewSessionRepository(db),
		Post:    NewPostRepository(db),
		Message: NewMessageRepository(db),
		Draft:   NewDraftRepository(db),
	}
}

// isUniqueViolation reports a postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
