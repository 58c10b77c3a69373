package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"microsocial/internal/apperror"
	"microsocial/internal/models"
)

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Following == nil {
		user.Following = pq.StringArray{}
	}
	if user.Followers == nil {
		user.Followers = pq.StringArray{}
	}

	query := `
		INSERT INTO users
		(id, user_id, name, provider, provider_id, email, image, bio, banner_image,
		 oauth_completed, following, followers, created_at, updated_at)
		VALUES
		(:id, :user_id, :name, :provider, :provider_id, :email, :image, :bio, :banner_image,
		 :oauth_completed, :following, :followers, :created_at, :updated_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("user id %s is already taken", user.UserID))
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) getOne(ctx context.Context, what string, query string, args ...any) (*models.User, error) {
	var user models.User

	err := r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", what)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) GetByUserID(ctx context.Context, userID string) (*models.User, error) {
	return r.getOne(ctx, userID,
		`SELECT * FROM users WHERE user_id = $1 AND oauth_completed`, userID)
}

func (r *userRepository) GetByUserIDAndProvider(ctx context.Context, userID, provider string) (*models.User, error) {
	return r.getOne(ctx, userID,
		`SELECT * FROM users WHERE user_id = $1 AND provider = $2`, userID, provider)
}

func (r *userRepository) GetByProviderAccount(ctx context.Context, provider, providerID string) (*models.User, error) {
	return r.getOne(ctx, provider+":"+providerID, `
		SELECT * FROM users
		WHERE provider = $1 AND provider_id = $2 AND oauth_completed
	`, provider, providerID)
}

func (r *userRepository) GetLatestPending(ctx context.Context, provider string) (*models.User, error) {
	return r.getOne(ctx, "pending:"+provider, `
		SELECT * FROM users
		WHERE provider = $1 AND NOT oauth_completed
		ORDER BY created_at DESC
		LIMIT 1
	`, provider)
}

func (r *userRepository) ListByUserID(ctx context.Context, userID string) ([]*models.User, error) {
	var users []*models.User

	err := r.db.SelectContext(ctx, &users,
		`SELECT * FROM users WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by id: %w", err)
	}

	return users, nil
}

func (r *userRepository) ListByEmail(ctx context.Context, email string) ([]*models.User, error) {
	var users []*models.User

	err := r.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE email = $1 AND oauth_completed
		ORDER BY created_at
	`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by email: %w", err)
	}

	return users, nil
}

func (r *userRepository) List(ctx context.Context, limit int) ([]*models.User, error) {
	var users []*models.User

	err := r.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE oauth_completed
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

func (r *userRepository) ExistingUserIDs(ctx context.Context, userIDs []string) ([]string, error) {
	existing := []string{}

	err := r.db.SelectContext(ctx, &existing, `
		SELECT user_id FROM users
		WHERE oauth_completed AND user_id = ANY($1)
	`, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to verify user ids: %w", err)
	}

	return existing, nil
}

// CompletePending binds a provider account to a pending row and flips it to
// completed. userID may differ from the registered one when it had to be
// rewritten.
func (r *userRepository) CompletePending(ctx context.Context, id, userID string, profile models.ProviderProfile) error {
	query := `
		UPDATE users SET
			user_id = $2,
			provider_id = $3,
			email = $4,
			image = CASE WHEN image = '' THEN $5 ELSE image END,
			oauth_completed = TRUE,
			updated_at = $6
		WHERE id = $1 AND NOT oauth_completed
	`

	result, err := r.db.ExecContext(ctx, query,
		id, userID, profile.ProviderAccountID, profile.Email, profile.Image, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("user id %s is already taken", userID))
		}
		return fmt.Errorf("failed to complete registration: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}

	if rowsAffected == 0 {
		return apperror.NotFound("pending user", id)
	}

	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	var user models.User

	query := `
		UPDATE users SET
			name = COALESCE($2, name),
			bio = COALESCE($3, bio),
			image = COALESCE($4, image),
			banner_image = COALESCE($5, banner_image),
			updated_at = $6
		WHERE user_id = $1 AND oauth_completed
		RETURNING *
	`

	err := r.db.GetContext(ctx, &user, query,
		userID, req.Name, req.Bio, req.Image, req.BannerImage, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", userID)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return &user, nil
}

const (
	columnFollowing = "following"
	columnFollowers = "followers"
)

func (r *userRepository) addToSet(ctx context.Context, column, userID, value string) error {
	query := fmt.Sprintf(`
		UPDATE users SET %[1]s = array_append(%[1]s, $2)
		WHERE user_id = $1 AND oauth_completed AND NOT ($2 = ANY(%[1]s))
	`, column)

	if _, err := r.db.ExecContext(ctx, query, userID, value); err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	return nil
}

func (r *userRepository) removeFromSet(ctx context.Context, column, userID, value string) error {
	query := fmt.Sprintf(`
		UPDATE users SET %[1]s = array_remove(%[1]s, $2)
		WHERE user_id = $1 AND oauth_completed
	`, column)

	if _, err := r.db.ExecContext(ctx, query, userID, value); err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	return nil
}

func (r *userRepository) AddFollowing(ctx context.Context, userID, targetID string) error {
	return r.addToSet(ctx, columnFollowing, userID, targetID)
}

func (r *userRepository) RemoveFollowing(ctx context.Context, userID, targetID string) error {
	return r.removeFromSet(ctx, columnFollowing, userID, targetID)
}

func (r *userRepository) AddFollower(ctx context.Context, userID, followerID string) error {
	return r.addToSet(ctx, columnFollowers, userID, followerID)
}

func (r *userRepository) RemoveFollower(ctx context.Context, userID, followerID string) error {
	return r.removeFromSet(ctx, columnFollowers, userID, followerID)
}

func (r *userRepository) RemoveFromFollowSets(ctx context.Context, userID string) error {
	query := `
		UPDATE users SET
			following = array_remove(following, $1),
			followers = array_remove(followers, $1)
		WHERE $1 = ANY(following) OR $1 = ANY(followers)
	`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clean follow sets: %w", err)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM users WHERE user_id = $1 AND oauth_completed`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}

	if rowsAffected == 0 {
		return apperror.NotFound("user", userID)
	}

	return nil
}
