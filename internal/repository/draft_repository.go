package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"microsocial/internal/apperror"
	"microsocial/internal/models"
)

type draftRepository struct {
	db *sqlx.DB
}

func NewDraftRepository(db *sqlx.DB) DraftRepository {
	return &draftRepository{db: db}
}

func (r *draftRepository) Create(ctx context.Context, draft *models.Draft) error {
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO drafts (id, owner_id, content, created_at)
		VALUES (:id, :owner_id, :content, :created_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, draft); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (r *draftRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Draft, error) {
	drafts := []*models.Draft{}

	err := r.db.SelectContext(ctx, &drafts, `
		SELECT * FROM drafts
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	return drafts, nil
}

// Delete only removes the draft when ownerID owns it; anything else is
// reported as not found.
func (r *draftRepository) Delete(ctx context.Context, draftID, ownerID string) error {
	if _, err := uuid.Parse(draftID); err != nil {
		return apperror.NotFound("draft", draftID)
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE id = $1 AND owner_id = $2`, draftID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	return expectRows(result, "draft", draftID)
}

func (r *draftRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("failed to delete drafts: %w", err)
	}
	return nil
}
