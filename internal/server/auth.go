package server

import (
	"context"
	"log/slog"

	"yatube/internal/cache"
	"yatube/internal/middleware"
	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by Identify.
const (
	localUserID   = "userID"
	localUsername = "username"
	localClaims   = "tokenClaims"
)

// Identify resolves the request's identity from the bearer token or the access_token
// cookie. Requests without a usable token continue as anonymous; they are never rejected here.
func (s *Server) Identify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := middleware.TokenFromRequest(c)
		if raw == "" {
			return c.Next()
		}

		claims, err := middleware.ParseToken(s.config.JWTSecret, raw)
		if err != nil {
			return c.Next()
		}
		if s.isRevoked(c.UserContext(), claims.JTI) {
			return c.Next()
		}

		c.Locals(localUserID, claims.UserID)
		c.Locals(localUsername, claims.Username)
		c.Locals(localClaims, claims)
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, claims.UserID)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// AuthRequired redirects anonymous viewers to the login page, carrying the requested path in next.
// Must be placed after Identify.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !viewerFrom(c).IsAuthenticated() {
			return redirect(c, loginPath(c.OriginalURL()))
		}
		return c.Next()
	}
}

func (s *Server) isRevoked(ctx context.Context, jti string) bool {
	if jti == "" || s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, cache.RevokedTokenKey(jti)).Result()
	if err != nil {
		middleware.Logger.WarnContext(ctx, "token revocation check failed", slog.String("error", err.Error()))
		return false
	}
	return n > 0
}

// viewerFrom returns who is making the request.
func viewerFrom(c *fiber.Ctx) models.Viewer {
	if id, ok := c.Locals(localUserID).(uint); ok && id != 0 {
		return models.Authenticated(id)
	}
	return models.Anonymous()
}
