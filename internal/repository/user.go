// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"yatube/internal/cache"
	"yatube/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetByUsername is cache-backed and never carries the password hash.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// GetCredentials reads the user with its password hash straight from the primary.
	GetCredentials(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (_ *models.User, err error) {
	ctx, finish := trackQuery(ctx, "users", "GetByID")
	defer func() { finish(err) }()

	var user models.User
	if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (_ *models.User, err error) {
	ctx, finish := trackQuery(ctx, "users", "GetByUsername")
	defer func() { finish(err) }()

	var user models.User
	err = cache.Aside(ctx, "user", cache.UserKey(username), &user, cache.UserTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", username)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return &user, nil
}

func (r *userRepository) GetCredentials(ctx context.Context, username string) (_ *models.User, err error) {
	ctx, finish := trackQuery(ctx, "users", "GetCredentials")
	defer func() { finish(err) }()

	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", username)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, finish := trackQuery(ctx, "users", "Create")
	defer func() { finish(err) }()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hash string) (err error) {
	ctx, finish := trackQuery(ctx, "users", "UpdatePassword")
	defer func() { finish(err) }()

	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", hash)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

// Delete removes the user. Posts, comments and follow edges go with it through ON DELETE CASCADE.
func (r *userRepository) Delete(ctx context.Context, id uint) (err error) {
	ctx, finish := trackQuery(ctx, "users", "Delete")
	defer func() { finish(err) }()

	var user models.User
	if err := r.db.WithContext(ctx).Select("id", "username").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("User", id)
		}
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Delete(&models.User{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.Username)
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) (_ []models.User, err error) {
	ctx, finish := trackQuery(ctx, "users", "List")
	defer func() { finish(err) }()

	var users []models.User
	if err := readDB(r.db).WithContext(ctx).Order("username").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
