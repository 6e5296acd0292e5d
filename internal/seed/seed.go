package seed

import (
	"context"
	"fmt"
	"log/slog"

	"yatube/internal/middleware"
	"yatube/internal/models"

	"gorm.io/gorm"
)

// Options configures a demo data run.
type Options struct {
	NumUsers        int
	PostsPerUser    int
	CommentsPerPost int
	FollowsPerUser  int
	// MaxDays bounds how far back post dates are spread.
	MaxDays   int
	BatchSize int
	// SkipBcrypt stores the demo password in plain text; only for tests.
	SkipBcrypt bool
	// ShouldClean removes users, posts, comments and follows first. Groups are kept.
	ShouldClean bool
	// RandSeed makes a run reproducible when non-zero.
	RandSeed int64
}

// DefaultOptions is a small but browsable data set.
func DefaultOptions() Options {
	return Options{
		NumUsers:        20,
		PostsPerUser:    8,
		CommentsPerPost: 2,
		FollowsPerUser:  5,
		MaxDays:         90,
		BatchSize:       100,
	}
}

// Summary counts what a run created.
type Summary struct {
	Groups   int
	Users    int
	Posts    int
	Comments int
	Follows  int
}

// Seed ensures the built-in groups and then creates users, posts, comments and follow edges.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	log := middleware.Logger.With(slog.String("component", "seed"))
	log.Info("seeding database",
		slog.Int("users", opts.NumUsers),
		slog.Int("posts_per_user", opts.PostsPerUser),
	)

	if opts.ShouldClean {
		if err := clearData(ctx, db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	sum := &Summary{}
	var err error
	if sum.Groups, err = BuiltInGroups(ctx, db); err != nil {
		return nil, err
	}

	var groups []models.Group
	if err := db.WithContext(ctx).Order("id").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}

	f := NewFactory(db, opts)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	log.Info("users created", slog.Int("count", sum.Users))

	posts := make([]*models.Post, 0, len(users)*opts.PostsPerUser)
	for _, u := range users {
		for i := 0; i < opts.PostsPerUser; i++ {
			posts = append(posts, f.BuildPost(u, groups))
		}
	}
	if err := f.CreatePostsBatch(ctx, posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	sum.Posts = len(posts)
	log.Info("posts created", slog.Int("count", sum.Posts))

	if len(users) > 0 {
		comments := make([]*models.Comment, 0, len(posts)*opts.CommentsPerPost)
		for _, p := range posts {
			for i := 0; i < opts.CommentsPerPost; i++ {
				comments = append(comments, f.BuildComment(p, users[f.rnd.Intn(len(users))]))
			}
		}
		if err := f.CreateCommentsBatch(ctx, comments); err != nil {
			return nil, fmt.Errorf("create comments: %w", err)
		}
		sum.Comments = len(comments)
	}

	for _, u := range users {
		made := 0
		for _, idx := range f.rnd.Perm(len(users)) {
			if made >= opts.FollowsPerUser {
				break
			}
			ok, err := f.Follow(ctx, u, users[idx])
			if err != nil {
				return nil, fmt.Errorf("create follow: %w", err)
			}
			if ok {
				made++
			}
		}
		sum.Follows += made
	}

	log.Info("seeding complete",
		slog.Int("groups", sum.Groups),
		slog.Int("comments", sum.Comments),
		slog.Int("follows", sum.Follows),
	)
	return sum, nil
}

func clearData(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"comments", "follows", "posts", "users"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
