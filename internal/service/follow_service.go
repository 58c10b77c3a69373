package service

import (
	"context"

	"microsocial/internal/apperror"
	"microsocial/internal/repository"
)

type FollowService interface {
	Follow(ctx context.Context, callerID, targetID string) error
	Unfollow(ctx context.Context, callerID, targetID string) error
	IsFollowing(ctx context.Context, callerID, targetID string) (bool, error)
}

type followService struct {
	userRepo repository.UserRepository
}

func NewFollowService(userRepo repository.UserRepository) FollowService {
	return &followService{userRepo: userRepo}
}

// Follow updates both users' sets with two independent writes. Each write is
// add-if-absent, so repeating a follow converges to the same state.
func (s *followService) Follow(ctx context.Context, callerID, targetID string) error {
	if callerID == targetID {
		return apperror.ValidationFailed("userId", "you cannot follow yourself")
	}

	if err := requireAccount(ctx, s.userRepo, callerID); err != nil {
		return err
	}
	if _, err := s.userRepo.GetByUserID(ctx, targetID); err != nil {
		return err
	}

	if err := s.userRepo.AddFollowing(ctx, callerID, targetID); err != nil {
		return err
	}
	return s.userRepo.AddFollower(ctx, targetID, callerID)
}

func (s *followService) Unfollow(ctx context.Context, callerID, targetID string) error {
	if callerID == targetID {
		return apperror.ValidationFailed("userId", "you cannot unfollow yourself")
	}

	if err := s.userRepo.RemoveFollowing(ctx, callerID, targetID); err != nil {
		return err
	}
	return s.userRepo.RemoveFollower(ctx, targetID, callerID)
}

func (s *followService) IsFollowing(ctx context.Context, callerID, targetID string) (bool, error) {
	caller, err := s.userRepo.GetByUserID(ctx, callerID)
	if err != nil {
		return false, err
	}
	return caller.IsFollowing(targetID), nil
}
