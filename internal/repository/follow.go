package repository

import (
	"context"

	"yatube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository stores directed follow edges.
type FollowRepository interface {
	// Follow inserts the edge unless it already exists. created is false for an existing edge.
	Follow(ctx context.Context, userID, authorID uint) (created bool, err error)
	// Unfollow deletes the edge if present. removed is false when there was nothing to delete.
	Unfollow(ctx context.Context, userID, authorID uint) (removed bool, err error)
	Exists(ctx context.Context, userID, authorID uint) (bool, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Follow(ctx context.Context, userID, authorID uint) (_ bool, err error) {
	ctx, finish := trackQuery(ctx, "follows", "Follow")
	defer func() { finish(err) }()

	edge := &models.Follow{UserID: userID, AuthorID: authorID}
	// INSERT ... ON CONFLICT (user_id, author_id) DO NOTHING: concurrent double submits
	// resolve in the database and only one of them affects a row.
	result := r.db.WithContext(ctx).
		Omit("User", "Author").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "author_id"}},
			DoNothing: true,
		}).
		Create(edge)
	if result.Error != nil {
		return false, insertError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) Unfollow(ctx context.Context, userID, authorID uint) (_ bool, err error) {
	ctx, finish := trackQuery(ctx, "follows", "Unfollow")
	defer func() { finish(err) }()

	result := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return false, insertError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) Exists(ctx context.Context, userID, authorID uint) (_ bool, err error) {
	ctx, finish := trackQuery(ctx, "follows", "Exists")
	defer func() { finish(err) }()

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
