package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
)

// FollowResult describes the outcome of a follow or unfollow request.
type FollowResult struct {
	Target *models.User
	// Self is set when the viewer targeted their own profile; nothing was written.
	Self bool
	// Changed is true when an edge was created (follow) or removed (unfollow).
	Changed bool
}

type FollowService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
}

func NewFollowService(userRepo repository.UserRepository, followRepo repository.FollowRepository) *FollowService {
	return &FollowService{userRepo: userRepo, followRepo: followRepo}
}

// Follow creates the viewer -> username edge if it does not exist yet.
func (s *FollowService) Follow(ctx context.Context, viewer models.Viewer, username string) (*FollowResult, error) {
	userID, target, err := s.resolve(ctx, viewer, username)
	if err != nil {
		return nil, err
	}
	if viewer.Is(target.ID) {
		observability.FollowEvents.WithLabelValues("self").Inc()
		return &FollowResult{Target: target, Self: true}, nil
	}

	created, err := s.followRepo.Follow(ctx, userID, target.ID)
	if err != nil {
		return nil, err
	}
	if created {
		observability.FollowEvents.WithLabelValues("created").Inc()
	} else {
		observability.FollowEvents.WithLabelValues("existing").Inc()
	}
	return &FollowResult{Target: target, Changed: created}, nil
}

// Unfollow removes the viewer -> username edge. A missing edge is not an error.
func (s *FollowService) Unfollow(ctx context.Context, viewer models.Viewer, username string) (*FollowResult, error) {
	userID, target, err := s.resolve(ctx, viewer, username)
	if err != nil {
		return nil, err
	}
	if viewer.Is(target.ID) {
		observability.FollowEvents.WithLabelValues("self").Inc()
		return &FollowResult{Target: target, Self: true}, nil
	}

	removed, err := s.followRepo.Unfollow(ctx, userID, target.ID)
	if err != nil {
		return nil, err
	}
	if removed {
		observability.FollowEvents.WithLabelValues("removed").Inc()
	}
	return &FollowResult{Target: target, Changed: removed}, nil
}

// IsFollowing reports whether viewer follows authorID. Anonymous viewers follow nobody
// and never reach the store.
func (s *FollowService) IsFollowing(ctx context.Context, viewer models.Viewer, authorID uint) (bool, error) {
	userID, ok := viewer.UserID()
	if !ok {
		return false, nil
	}
	if userID == authorID {
		return false, nil
	}
	return s.followRepo.Exists(ctx, userID, authorID)
}

func (s *FollowService) resolve(ctx context.Context, viewer models.Viewer, username string) (uint, *models.User, error) {
	userID, ok := viewer.UserID()
	if !ok {
		return 0, nil, models.NewUnauthorizedError("Authentication required")
	}
	target, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return 0, nil, err
	}
	return userID, target, nil
}
