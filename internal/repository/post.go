package repository

import (
	"context"
	"errors"

	"yatube/internal/models"

	"gorm.io/gorm"
)

// PostScope narrows a post listing. Zero fields do not filter; a zero scope lists every post.
type PostScope struct {
	GroupID  uint
	AuthorID uint
	// FollowerID restricts the listing to authors followed by this user.
	FollowerID uint
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// List returns posts newest first (created_at DESC, id DESC).
	List(ctx context.Context, scope PostScope, limit, offset int) ([]*models.Post, error)
	Count(ctx context.Context, scope PostScope) (int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (err error) {
	ctx, finish := trackQuery(ctx, "posts", "Create")
	defer func() { finish(err) }()

	if err := r.db.WithContext(ctx).Omit("Author", "Group").Create(post).Error; err != nil {
		return insertError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (_ *models.Post, err error) {
	ctx, finish := trackQuery(ctx, "posts", "GetByID")
	defer func() { finish(err) }()

	var post models.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, scope PostScope, limit, offset int) (_ []*models.Post, err error) {
	ctx, finish := trackQuery(ctx, "posts", "List")
	defer func() { finish(err) }()

	db := r.listDB(scope).WithContext(ctx)
	var posts []*models.Post
	err = r.applyScope(db, scope).
		Preload("Author").
		Preload("Group").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Count(ctx context.Context, scope PostScope) (_ int64, err error) {
	ctx, finish := trackQuery(ctx, "posts", "Count")
	defer func() { finish(err) }()

	db := r.listDB(scope).WithContext(ctx)
	var count int64
	if err := r.applyScope(db.Model(&models.Post{}), scope).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// listDB keeps feed reads on the primary. A follow is written there and the feed
// must reflect it on the very next request, which replica lag cannot promise.
func (r *postRepository) listDB(scope PostScope) *gorm.DB {
	if scope.FollowerID != 0 {
		return r.db
	}
	return readDB(r.db)
}

// applyScope adds the scope filters. The follower filter is a single IN subquery over
// follows, so a feed costs one query regardless of how many authors are followed.
func (r *postRepository) applyScope(db *gorm.DB, scope PostScope) *gorm.DB {
	if scope.GroupID != 0 {
		db = db.Where("posts.group_id = ?", scope.GroupID)
	}
	if scope.AuthorID != 0 {
		db = db.Where("posts.author_id = ?", scope.AuthorID)
	}
	if scope.FollowerID != 0 {
		followed := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Follow{}).
			Select("author_id").
			Where("user_id = ?", scope.FollowerID)
		db = db.Where("posts.author_id IN (?)", followed)
	}
	return db
}

// Update saves text, group and image. Author and creation time never change.
func (r *postRepository) Update(ctx context.Context, post *models.Post) (err error) {
	ctx, finish := trackQuery(ctx, "posts", "Update")
	defer func() { finish(err) }()

	result := r.db.WithContext(ctx).
		Model(&models.Post{ID: post.ID}).
		Select("text", "group_id", "image").
		Updates(map[string]any{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) (err error) {
	ctx, finish := trackQuery(ctx, "posts", "Delete")
	defer func() { finish(err) }()

	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
