package service

import (
	"context"
	"errors"

	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/pagination"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

// PostPage is one page of a post listing.
type PostPage = pagination.Page[*models.Post]

type PostService struct {
	postRepo  repository.PostRepository
	groupRepo repository.GroupRepository
	images    *ImageService
}

type CreatePostInput struct {
	Viewer  models.Viewer
	Text    string
	GroupID *uint
	// Image is optional.
	Image *UploadImageInput
}

type UpdatePostInput struct {
	Viewer  models.Viewer
	PostID  uint
	Text    string
	GroupID *uint
	// Image replaces the current attachment when set; nil keeps it.
	Image *UploadImageInput
}

// ErrNotAuthor is returned when someone other than the author edits a post.
var ErrNotAuthor = models.NewForbiddenError("Only the author can edit this post")

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	images *ImageService,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		groupRepo: groupRepo,
		images:    images,
	}
}

// ListIndex pages through every post, newest first.
func (s *PostService) ListIndex(ctx context.Context, page string) (*PostPage, error) {
	return listPosts(ctx, s.postRepo, s.images, repository.PostScope{}, page)
}

// ListGroup resolves the group by slug and pages through its posts.
func (s *PostService) ListGroup(ctx context.Context, slug, page string) (*models.Group, *PostPage, error) {
	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	posts, err := listPosts(ctx, s.postRepo, s.images, repository.PostScope{GroupID: group.ID}, page)
	if err != nil {
		return nil, nil, err
	}
	return group, posts, nil
}

// ListByAuthor pages through the posts of one author.
func (s *PostService) ListByAuthor(ctx context.Context, authorID uint, page string) (*PostPage, error) {
	return listPosts(ctx, s.postRepo, s.images, repository.PostScope{AuthorID: authorID}, page)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	decoratePosts(s.images, post)
	return post, nil
}

// GetEditable returns the post when viewer is its author, ErrNotAuthor otherwise.
func (s *PostService) GetEditable(ctx context.Context, viewer models.Viewer, id uint) (*models.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.Is(post.AuthorID) {
		return nil, ErrNotAuthor
	}
	return post, nil
}

// Groups lists the groups a post can be filed under.
func (s *PostService) Groups(ctx context.Context) ([]models.Group, error) {
	return s.groupRepo.List(ctx)
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	authorID, ok := in.Viewer.UserID()
	if !ok {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if err := s.validate(ctx, in.Text, in.GroupID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Text:     in.Text,
		AuthorID: authorID,
		GroupID:  in.GroupID,
	}
	stored, err := s.storeImage(ctx, in.Viewer, in.Image)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		post.Image = stored.Key
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		if stored != nil {
			s.images.Discard(ctx, stored.Key)
		}
		return nil, err
	}
	observability.PostsCreated.Inc()

	decoratePosts(s.images, post)
	return post, nil
}

// UpdatePost applies an edit. Only the author may edit; the author and creation time never change.
// Anonymous viewers get ErrNotAuthor, like any other non-author.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if !in.Viewer.Is(post.AuthorID) {
		return nil, ErrNotAuthor
	}
	if err := s.validate(ctx, in.Text, in.GroupID); err != nil {
		return nil, err
	}

	stored, err := s.storeImage(ctx, in.Viewer, in.Image)
	if err != nil {
		return nil, err
	}
	previousImage := post.Image

	post.Text = in.Text
	post.GroupID = in.GroupID
	if post.GroupID == nil {
		post.Group = nil
	}
	if stored != nil {
		post.Image = stored.Key
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		if stored != nil {
			s.images.Discard(ctx, stored.Key)
		}
		return nil, err
	}
	if stored != nil && previousImage != "" {
		s.images.Discard(ctx, previousImage)
	}

	decoratePosts(s.images, post)
	return post, nil
}

func (s *PostService) validate(ctx context.Context, text string, groupID *uint) error {
	if err := validation.ValidatePostText(text); err != nil {
		return models.NewFieldValidationError("text", err.Error())
	}
	if groupID == nil {
		return nil
	}
	if _, err := s.groupRepo.GetByID(ctx, *groupID); err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return models.NewFieldValidationError("group", "Select a valid group")
		}
		return err
	}
	return nil
}

func (s *PostService) storeImage(ctx context.Context, viewer models.Viewer, in *UploadImageInput) (*StoredImage, error) {
	if in == nil || len(in.Content) == 0 {
		return nil, nil
	}
	if s.images == nil {
		return nil, models.NewFieldValidationError("image", "Image uploads are disabled")
	}
	upload := *in
	upload.Viewer = viewer
	return s.images.Upload(ctx, upload)
}

// listPosts counts the scope, clamps the requested page and fetches that page.
func listPosts(ctx context.Context, repo repository.PostRepository, images *ImageService, scope repository.PostScope, page string) (*PostPage, error) {
	count, err := repo.Count(ctx, scope)
	if err != nil {
		return nil, err
	}
	window := pagination.Paginate(count, page, pagination.PostsPerPage)

	var posts []*models.Post
	if count > 0 {
		posts, err = repo.List(ctx, scope, window.Limit(), window.Offset())
		if err != nil {
			return nil, err
		}
	}
	decoratePosts(images, posts...)

	out := pagination.NewPage(posts, window)
	return &out, nil
}

// decoratePosts resolves image keys into public URLs.
func decoratePosts(images *ImageService, posts ...*models.Post) {
	if images == nil {
		return
	}
	for _, p := range posts {
		if p == nil || p.Image == "" {
			continue
		}
		p.ImageURL = images.URL(p.Image)
		p.ThumbnailURL = images.ThumbnailURL(p.Image, p.AuthorID)
	}
}

// IsNotAuthor reports whether err is the author-only edit refusal.
func IsNotAuthor(err error) bool {
	return errors.Is(err, ErrNotAuthor)
}
