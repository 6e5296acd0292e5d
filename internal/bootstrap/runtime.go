// Package bootstrap opens the runtime dependencies shared by the server and the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/seed"
	"yatube/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedGroups loads the built-in groups fixture after connecting.
	SeedGroups bool
	// SkipStorage leaves Runtime.Store nil, for tools that never touch images.
	SkipStorage bool
}

// Runtime holds the opened dependencies.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	Store storage.Store
}

// InitRuntime connects to the database and Redis, opens the image store and optionally seeds built-in groups.
// A missing Redis is tolerated; the client is then nil.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	rt := &Runtime{DB: db, Redis: cache.GetClient()}

	if !opts.SkipStorage {
		store, err := OpenImageStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rt.Store = store
	}

	if opts.SeedGroups {
		n, err := seed.BuiltInGroups(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("failed to seed built-in groups: %w", err)
		}
		middleware.Logger.Info("built-in groups ensured", slog.Int("created", n))
	}

	return rt, nil
}

// OpenImageStore returns the image backend selected by IMAGE_STORAGE.
func OpenImageStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ImageStorage)) {
	case "", "local":
		return storage.NewLocalStore(cfg.ImageUploadDir, cfg.MediaURL), nil
	case "s3":
		store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("open s3 image store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported IMAGE_STORAGE %q", cfg.ImageStorage)
	}
}
