package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"microsocial/internal/apperror"
	"microsocial/internal/models"
)

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

const selectPosts = `
	SELECT p.*, COALESCE(u.name, '') AS author_name, COALESCE(u.image, '') AS author_image
	FROM posts p
	LEFT JOIN users u ON u.user_id = p.author_id AND u.oauth_completed
`

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if post.Likes == nil {
		post.Likes = pq.StringArray{}
	}
	if post.Bookmarks == nil {
		post.Bookmarks = pq.StringArray{}
	}
	if post.Comments == nil {
		post.Comments = models.Comments{}
	}

	query := `
		INSERT INTO posts
		(id, author_id, content, likes, bookmarks, comments, repost_count, repost_of,
		 original_author_id, original_content, original_created_at, created_at)
		VALUES
		(:id, :author_id, :content, :likes, :bookmarks, :comments, :repost_count, :repost_of,
		 :original_author_id, :original_content, :original_created_at, :created_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("post already reposted")
		}
		return fmt.Errorf("failed to create post: %w", err)
	}

	return nil
}

func (r *postRepository) GetByID(ctx context.Context, postID string) (*models.Post, error) {
	if _, err := uuid.Parse(postID); err != nil {
		return nil, apperror.NotFound("post", postID)
	}

	var post models.Post

	err := r.db.GetContext(ctx, &post, selectPosts+` WHERE p.id = $1`, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", postID)
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return &post, nil
}

// List returns posts newest first. A nil authorIDs means every author.
func (r *postRepository) List(ctx context.Context, authorIDs []string, limit int) ([]*models.Post, error) {
	posts := []*models.Post{}

	var err error
	if authorIDs == nil {
		err = r.db.SelectContext(ctx, &posts,
			selectPosts+` ORDER BY p.created_at DESC LIMIT $1`, limit)
	} else {
		err = r.db.SelectContext(ctx, &posts,
			selectPosts+` WHERE p.author_id = ANY($1) ORDER BY p.created_at DESC LIMIT $2`,
			pq.Array(authorIDs), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, nil
}

func (r *postRepository) ListBookmarked(ctx context.Context, userID string, limit int) ([]*models.Post, error) {
	posts := []*models.Post{}

	err := r.db.SelectContext(ctx, &posts,
		selectPosts+` WHERE $1 = ANY(p.bookmarks) ORDER BY p.created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}

	return posts, nil
}

func (r *postRepository) UpdateContent(ctx context.Context, postID, content string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET content = $2, updated_at = $3 WHERE id = $1`,
		postID, content, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}

	return expectRows(result, "post", postID)
}

func (r *postRepository) Delete(ctx context.Context, postID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	return expectRows(result, "post", postID)
}

// DeleteByAuthor removes every post by authorID together with other users'
// reposts of them, and gives back the repost counts the author's own reposts
// were holding. It returns the ids of all deleted rows.
func (r *postRepository) DeleteByAuthor(ctx context.Context, authorID string) ([]string, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE posts SET repost_count = GREATEST(repost_count - 1, 0)
		WHERE id IN (SELECT repost_of FROM posts WHERE author_id = $1 AND repost_of IS NOT NULL)
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to release repost counts: %w", err)
	}

	ids := []string{}
	err = r.db.SelectContext(ctx, &ids, `
		DELETE FROM posts
		WHERE author_id = $1
		   OR repost_of IN (SELECT id FROM posts WHERE author_id = $1)
		RETURNING id
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete posts: %w", err)
	}

	return ids, nil
}

const (
	columnLikes     = "likes"
	columnBookmarks = "bookmarks"
)

// addToSet is an atomic add-if-absent on a text[] column. It returns the
// cardinality after the update.
func (r *postRepository) addToSet(ctx context.Context, column, postID, userID string) (int, error) {
	query := fmt.Sprintf(`
		UPDATE posts SET %[1]s = CASE WHEN $2 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2) END
		WHERE id = $1
		RETURNING cardinality(%[1]s)
	`, column)

	return r.setCardinality(ctx, query, column, postID, userID)
}

func (r *postRepository) removeFromSet(ctx context.Context, column, postID, userID string) (int, error) {
	query := fmt.Sprintf(`
		UPDATE posts SET %[1]s = array_remove(%[1]s, $2)
		WHERE id = $1
		RETURNING cardinality(%[1]s)
	`, column)

	return r.setCardinality(ctx, query, column, postID, userID)
}

func (r *postRepository) setCardinality(ctx context.Context, query, column, postID, userID string) (int, error) {
	var count int

	err := r.db.GetContext(ctx, &count, query, postID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("post", postID)
		}
		return 0, fmt.Errorf("failed to update %s: %w", column, err)
	}

	return count, nil
}

func (r *postRepository) AddLike(ctx context.Context, postID, userID string) (int, error) {
	return r.addToSet(ctx, columnLikes, postID, userID)
}

func (r *postRepository) RemoveLike(ctx context.Context, postID, userID string) (int, error) {
	return r.removeFromSet(ctx, columnLikes, postID, userID)
}

func (r *postRepository) AddBookmark(ctx context.Context, postID, userID string) (int, error) {
	return r.addToSet(ctx, columnBookmarks, postID, userID)
}

func (r *postRepository) RemoveBookmark(ctx context.Context, postID, userID string) (int, error) {
	return r.removeFromSet(ctx, columnBookmarks, postID, userID)
}

func (r *postRepository) AddComment(ctx context.Context, postID string, comment models.Comment) (models.Comments, error) {
	payload, err := json.Marshal([]models.Comment{comment})
	if err != nil {
		return nil, fmt.Errorf("failed to encode comment: %w", err)
	}

	var comments models.Comments
	err = r.db.GetContext(ctx, &comments, `
		UPDATE posts SET comments = comments || $2::jsonb
		WHERE id = $1
		RETURNING comments
	`, postID, string(payload))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", postID)
		}
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	return comments, nil
}

func (r *postRepository) FindRepost(ctx context.Context, authorID, originalID string) (*models.Post, error) {
	var post models.Post

	err := r.db.GetContext(ctx, &post,
		`SELECT * FROM posts WHERE author_id = $1 AND repost_of = $2`, authorID, originalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("repost", originalID)
		}
		return nil, fmt.Errorf("failed to find repost: %w", err)
	}

	return &post, nil
}

// AdjustRepostCount adds delta to the counter, never going below zero.
func (r *postRepository) AdjustRepostCount(ctx context.Context, postID string, delta int) (int, error) {
	var count int

	err := r.db.GetContext(ctx, &count, `
		UPDATE posts SET repost_count = GREATEST(repost_count + $2, 0)
		WHERE id = $1
		RETURNING repost_count
	`, postID, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("post", postID)
		}
		return 0, fmt.Errorf("failed to update repost count: %w", err)
	}

	return count, nil
}

func (r *postRepository) DeleteRepostsOf(ctx context.Context, originalID string) ([]string, error) {
	ids := []string{}

	err := r.db.SelectContext(ctx, &ids,
		`DELETE FROM posts WHERE repost_of = $1 RETURNING id`, originalID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete reposts: %w", err)
	}

	return ids, nil
}

func (r *postRepository) RepostedOriginals(ctx context.Context, userID string, originalIDs []string) ([]string, error) {
	ids := []string{}
	if len(originalIDs) == 0 {
		return ids, nil
	}

	err := r.db.SelectContext(ctx, &ids, `
		SELECT repost_of FROM posts
		WHERE author_id = $1 AND repost_of = ANY($2::uuid[])
	`, userID, pq.Array(originalIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load reposts: %w", err)
	}

	return ids, nil
}

func expectRows(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}

	return nil
}
