// Package middleware provides authentication, logging, rate limiting and tracing middleware.
package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenIssuer is the iss claim of every access token.
	TokenIssuer = "yatube-api"
	// TokenAudience is the aud claim of every access token.
	TokenAudience = "yatube-client"
	// TokenTTL is how long an access token stays valid.
	TokenTTL = 7 * 24 * time.Hour
	// AccessTokenCookie carries the token for browser clients.
	AccessTokenCookie = "access_token"
)

var (
	ErrMissingToken  = errors.New("token required")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// TokenClaims is the subset of JWT claims the application relies on.
type TokenClaims struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// IssueToken signs an HS256 access token for the given user.
func IssueToken(secret string, userID uint, username string) (string, TokenClaims, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID:    userID,
		Username:  username,
		JTI:       fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString()[:8]),
		ExpiresAt: now.Add(TokenTTL),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"jti":      claims.JTI,
		"iat":      now.Unix(),
		"exp":      claims.ExpiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", TokenClaims{}, err
	}
	return signed, claims, nil
}

// ParseToken validates the signature, expiry, issuer and audience of raw and returns its claims.
func ParseToken(secret, raw string) (TokenClaims, error) {
	if raw == "" {
		return TokenClaims{}, ErrMissingToken
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return TokenClaims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrInvalidClaims
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return TokenClaims{}, ErrInvalidClaims
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return TokenClaims{}, ErrInvalidClaims
	}

	out := TokenClaims{UserID: uint(userID)}
	if jti, ok := claims["jti"].(string); ok {
		out.JTI = jti
	}
	if username, ok := claims["username"].(string); ok {
		out.Username = username
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// TokenFromRequest returns the bearer token from the Authorization header, falling back
// to the access_token cookie. It returns "" when neither is present.
func TokenFromRequest(c *fiber.Ctx) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Cookies(AccessTokenCookie)
}
