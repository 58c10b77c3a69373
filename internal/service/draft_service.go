package service

import (
	"context"

	"microsocial/internal/models"
	"microsocial/internal/repository"
)

const draftListLimit = 50

type DraftService interface {
	SaveDraft(ctx context.Context, ownerID, content string) (*models.Draft, error)
	ListDrafts(ctx context.Context, ownerID string) ([]*models.Draft, error)
	DeleteDraft(ctx context.Context, ownerID, draftID string) error
}

type draftService struct {
	draftRepo repository.DraftRepository
	userRepo  repository.UserRepository
}

func NewDraftService(draftRepo repository.DraftRepository, userRepo repository.UserRepository) DraftService {
	return &draftService{draftRepo: draftRepo, userRepo: userRepo}
}

func (d *draftService) SaveDraft(ctx context.Context, ownerID, content string) (*models.Draft, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	if err := requireAccount(ctx, d.userRepo, ownerID); err != nil {
		return nil, err
	}

	draft := &models.Draft{
		OwnerID: ownerID,
		Content: content,
	}
	if err := d.draftRepo.Create(ctx, draft); err != nil {
		return nil, err
	}

	return draft, nil
}

func (d *draftService) ListDrafts(ctx context.Context, ownerID string) ([]*models.Draft, error) {
	return d.draftRepo.ListByOwner(ctx, ownerID, draftListLimit)
}

func (d *draftService) DeleteDraft(ctx context.Context, ownerID, draftID string) error {
	return d.draftRepo.Delete(ctx, draftID, ownerID)
}
