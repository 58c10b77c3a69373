package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return sqlx.NewDb(db, "postgres"), mock
}

var userColumns = []string{
	"id", "user_id", "name", "provider", "provider_id", "email", "image", "bio",
	"banner_image", "oauth_completed", "following", "followers", "created_at", "updated_at",
}

func userRow(rows *sqlmock.Rows, userID, provider string, providerID any, completed bool, following string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		"2b1c6a52-0f0e-4c4e-9a53-7f4f1f3f0a11", userID, "Alice", provider, providerID,
		"alice@example.com", "", "", "", completed, following, "{}", now, now,
	)
}

var postColumns = []string{
	"id", "author_id", "content", "likes", "bookmarks", "comments", "repost_count",
	"repost_of", "original_author_id", "original_content", "original_created_at",
	"created_at", "updated_at", "author_name", "author_image",
}

func postRow(rows *sqlmock.Rows, id, author, content string, likes string) *sqlmock.Rows {
	return rows.AddRow(
		id, author, content, likes, "{}", `[{"id":"c1","authorId":"bob","content":"hi","createdAt":"2024-01-01T00:00:00Z"}]`,
		0, nil, nil, nil, nil, time.Now(), nil, "Alice", "",
	)
}
