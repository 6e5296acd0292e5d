package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "yatube/docs" // swagger docs
	"yatube/internal/bootstrap"
	"yatube/internal/config"
	"yatube/internal/featureflags"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/service"
	"yatube/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	store          storage.Store
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	featureFlags   *featureflags.Manager

	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	feedService    *service.FeedService
	userService    *service.UserService
	imageService   *service.ImageService
}

// NewServer opens the runtime dependencies described by cfg and wires a server on top of them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Store)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient and store may be nil; without a store image uploads are refused.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.Store) (*Server, error) {
	if db == nil {
		return nil, errors.New("server requires a database")
	}

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	flags := featureflags.NewManager(cfg.FeatureFlags)

	var images *service.ImageService
	if store != nil {
		images = service.NewImageService(store, flags, cfg)
	}

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		store:          store,
		promMiddleware: middleware.InitMetrics("yatube-api"),
		featureFlags:   flags,
		postService:    service.NewPostService(postRepo, groupRepo, images),
		commentService: service.NewCommentService(commentRepo, postRepo),
		followService:  service.NewFollowService(userRepo, followRepo),
		feedService:    service.NewFeedService(postRepo, images),
		userService:    service.NewUserService(userRepo),
		imageService:   images,
	}, nil
}

// NewApp builds the fiber application with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	maxUpload := s.config.ImageMaxUploadSizeMB
	if maxUpload <= 0 {
		maxUpload = service.DefaultImageMaxUploadSizeMB
	}

	app := fiber.New(fiber.Config{
		AppName: "Yatube",
		// Room for the largest accepted image plus the form fields around it.
		BodyLimit:    (maxUpload + 1) * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Identity before the context middleware so user_id reaches the request logger.
	app.Use(s.Identify())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "Yatube Metrics"}))
	app.Get("/swagger/*", swagger.HandlerDefault)

	if local, ok := s.store.(*storage.LocalStore); ok {
		app.Static(mediaPrefix(s.config.MediaURL), local.Root(), fiber.Static{
			MaxAge: 86400,
		})
	}

	auth := app.Group("/auth")
	auth.Post("/signup/", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login/", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout/", s.Logout)
	auth.Post("/password_change/", s.AuthRequired(), s.PasswordChange)
	auth.Get("/password_change/done/", s.AuthRequired(), s.PasswordChangeDone)

	app.Get("/", s.Index)
	app.Get("/group/:slug/", s.GroupPosts)

	app.Get("/create/", s.AuthRequired(), s.CreatePostForm)
	app.Post("/create/", s.AuthRequired(),
		middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)

	// /posts/:id/<action>/ routes before the bare /posts/:id/ route.
	posts := app.Group("/posts")
	// Edit routes are open: anyone but the author, guests included, is sent back to the post.
	posts.Get("/:id/edit/", s.EditPostForm)
	posts.Post("/:id/edit/", s.EditPost)
	posts.Post("/:id/comment/", s.AuthRequired(),
		middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.AddComment)
	posts.Get("/:id/", s.PostDetail)

	app.Get(feedPath, s.AuthRequired(), s.FollowIndex)

	profile := app.Group("/profile")
	followLimit := middleware.RateLimit(s.redis, 30, time.Minute, "follow")
	for _, method := range []string{fiber.MethodGet, fiber.MethodPost} {
		profile.Add(method, "/:username/follow/", s.AuthRequired(), followLimit, s.ProfileFollow)
		profile.Add(method, "/:username/unfollow/", s.AuthRequired(), followLimit, s.ProfileUnfollow)
	}
	profile.Get("/:username/", s.Profile)

	app.Get("/feature-flags/", s.AuthRequired(), s.GetFeatureFlags)
}

// mediaPrefix turns MEDIA_URL into the route prefix local images are served under.
func mediaPrefix(mediaURL string) string {
	if !strings.HasPrefix(mediaURL, "/") {
		return "/media"
	}
	prefix := strings.TrimRight(mediaURL, "/")
	if prefix == "" {
		return "/media"
	}
	return prefix
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		// Sessions can't be revoked and rate limits don't apply without Redis.
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	storageStatus := "disabled"
	if s.store != nil {
		storageStatus = "healthy"
		if err := s.store.Ready(ctx); err != nil {
			storageStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" || storageStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"storage":  storageStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port until Shutdown.
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("close database: %w", cerr))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", rerr))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}
