package service

import (
	"context"
	"strings"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

// GroupService holds the administrator operations on groups.
type GroupService struct {
	groupRepo repository.GroupRepository
}

type CreateGroupInput struct {
	Title       string
	Slug        string
	Description string
}

func NewGroupService(groupRepo repository.GroupRepository) *GroupService {
	return &GroupService{groupRepo: groupRepo}
}

func (s *GroupService) Create(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	in.Slug = strings.TrimSpace(in.Slug)
	if err := validation.ValidateGroupTitle(in.Title); err != nil {
		return nil, models.NewFieldValidationError("title", err.Error())
	}
	if err := validation.ValidateGroupSlug(in.Slug); err != nil {
		return nil, models.NewFieldValidationError("slug", err.Error())
	}

	group := &models.Group{
		Title:       strings.TrimSpace(in.Title),
		Slug:        in.Slug,
		Description: in.Description,
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *GroupService) List(ctx context.Context) ([]models.Group, error) {
	return s.groupRepo.List(ctx)
}

// Delete removes a group; its posts are kept without a group.
func (s *GroupService) Delete(ctx context.Context, slug string) error {
	return s.groupRepo.Delete(ctx, slug)
}
