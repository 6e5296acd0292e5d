// Package seed fills a database with demo data and the built-in groups.
// It is meant for development and testing only.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"yatube/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password every seeded user can log in with.
const DemoPassword = "password123"

// Factory builds domain entities with fake content and persists them.
type Factory struct {
	db   *gorm.DB
	fake *gofakeit.Faker
	rnd  *rand.Rand
	opts Options

	passwordHash string
	now          time.Time
}

// NewFactory creates a Factory bound to db. A zero opts.RandSeed picks a time-based seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:   db,
		fake: gofakeit.New(seed),
		//nolint:gosec // weak randomness is fine for demo data
		rnd:  rand.New(rand.NewSource(seed)),
		opts: opts,
		now:  time.Now(),
	}
}

func (f *Factory) hashedPassword() (string, error) {
	if f.passwordHash != "" {
		return f.passwordHash, nil
	}
	if f.opts.SkipBcrypt {
		f.passwordHash = DemoPassword
		return f.passwordHash, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	f.passwordHash = string(hash)
	return f.passwordHash, nil
}

// CreateUser persists a user with a unique fake username. Overrides run before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.hashedPassword()
	if err != nil {
		return nil, err
	}

	suffix := f.fake.Number(1000, 9999)
	user := &models.User{
		Username:  fmt.Sprintf("%s%d", f.fake.Username(), suffix),
		FirstName: f.fake.FirstName(),
		LastName:  f.fake.LastName(),
		Password:  hash,
	}
	user.Email = fmt.Sprintf("%s@%s", user.Username, f.fake.DomainName())
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return user, nil
}

// BuildPost returns an unsaved post by author, spread over the last MaxDays days.
// About half of the posts land in one of groups when any are given.
func (f *Factory) BuildPost(author *models.User, groups []models.Group, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Text:      f.fake.Paragraph(1, f.rnd.Intn(4)+1, 12, "\n\n"),
		AuthorID:  author.ID,
		CreatedAt: f.pastTime(),
	}
	if len(groups) > 0 && f.rnd.Intn(2) == 0 {
		g := groups[f.rnd.Intn(len(groups))]
		post.GroupID = &g.ID
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists posts in batches of opts.BatchSize.
func (f *Factory) CreatePostsBatch(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.WithContext(ctx).CreateInBatches(posts, f.batchSize()).Error
}

// BuildComment returns an unsaved comment on post, written after the post.
func (f *Factory) BuildComment(post *models.Post, author *models.User) *models.Comment {
	created := post.CreatedAt.Add(time.Duration(f.rnd.Intn(72*60)+1) * time.Minute)
	if created.After(f.now) {
		created = f.now
	}
	return &models.Comment{
		PostID:    post.ID,
		AuthorID:  author.ID,
		Text:      f.fake.Sentence(f.rnd.Intn(12) + 3),
		CreatedAt: created,
	}
}

// CreateCommentsBatch persists comments in batches of opts.BatchSize.
func (f *Factory) CreateCommentsBatch(ctx context.Context, comments []*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	return f.db.WithContext(ctx).CreateInBatches(comments, f.batchSize()).Error
}

// Follow creates the follow edge user -> author unless it exists or would be a self-follow.
// It reports whether an edge was created.
func (f *Factory) Follow(ctx context.Context, user, author *models.User) (bool, error) {
	if user.ID == author.ID {
		return false, nil
	}
	res := f.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{UserID: user.ID, AuthorID: author.ID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rnd.Intn(maxDays*24*60)) * time.Minute
	return f.now.Add(-back)
}

func (f *Factory) batchSize() int {
	if f.opts.BatchSize > 0 {
		return f.opts.BatchSize
	}
	return 100
}
