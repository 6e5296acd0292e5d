package repository

import (
	"context"
	"errors"

	"yatube/internal/cache"
	"yatube/internal/models"

	"gorm.io/gorm"
)

// GroupRepository defines persistence operations for groups.
type GroupRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.Group, error)
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	List(ctx context.Context) ([]models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	// Delete removes a group; its posts survive with group_id set to NULL.
	Delete(ctx context.Context, slug string) error
}

type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) GetBySlug(ctx context.Context, slug string) (_ *models.Group, err error) {
	ctx, finish := trackQuery(ctx, "groups", "GetBySlug")
	defer func() { finish(err) }()

	var group models.Group
	err = cache.Aside(ctx, "group", cache.GroupKey(slug), &group, cache.GroupTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Group", slug)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (_ *models.Group, err error) {
	ctx, finish := trackQuery(ctx, "groups", "GetByID")
	defer func() { finish(err) }()

	var group models.Group
	if err := readDB(r.db).WithContext(ctx).First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Group", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &group, nil
}

func (r *groupRepository) List(ctx context.Context) (_ []models.Group, err error) {
	ctx, finish := trackQuery(ctx, "groups", "List")
	defer func() { finish(err) }()

	var groups []models.Group
	if err := readDB(r.db).WithContext(ctx).Order("title").Find(&groups).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return groups, nil
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) (err error) {
	ctx, finish := trackQuery(ctx, "groups", "Create")
	defer func() { finish(err) }()

	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewFieldValidationError("slug", "Group with this slug already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateGroup(ctx, group.Slug)
	return nil
}

func (r *groupRepository) Delete(ctx context.Context, slug string) (err error) {
	ctx, finish := trackQuery(ctx, "groups", "Delete")
	defer func() { finish(err) }()

	result := r.db.WithContext(ctx).Where("slug = ?", slug).Delete(&models.Group{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Group", slug)
	}
	cache.InvalidateGroup(ctx, slug)
	return nil
}
