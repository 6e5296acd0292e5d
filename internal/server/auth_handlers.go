package server

import (
	"log/slog"
	"time"

	"yatube/internal/cache"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// authResponse is returned by signup and login.
type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup handles POST /auth/signup/
// @Summary User signup
// @Description Register a new account and receive an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string,first_name=string,last_name=string} true "Signup request"
// @Success 201 {object} authResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/signup/ [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username  string `json:"username" form:"username"`
		Email     string `json:"email" form:"email"`
		Password  string `json:"password" form:"password"`
		FirstName string `json:"first_name" form:"first_name"`
		LastName  string `json:"last_name" form:"last_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Signup(c.UserContext(), service.SignupInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.issueSession(c, user)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(authResponse{Token: token, User: user})
}

// Login handles POST /auth/login/
// @Summary User login
// @Description Authenticate and receive an access token; the token is also set as the access_token cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Login credentials"
// @Param next query string false "Local path to redirect to after login"
// @Success 200 {object} authResponse
// @Success 302
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login/ [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
		Next     string `json:"next" form:"next"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.issueSession(c, user)
	if err != nil {
		return respondError(c, err)
	}

	next := req.Next
	if next == "" {
		next = c.Query("next")
	}
	if next = safeNext(next); next != "" {
		return redirect(c, next)
	}
	return c.JSON(authResponse{Token: token, User: user})
}

// Logout handles POST /auth/logout/
// @Summary Logout
// @Description Revoke the current access token and clear the cookie
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/logout/ [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims, ok := c.Locals(localClaims).(middleware.TokenClaims); ok {
		s.revoke(c, claims)
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// PasswordChange handles POST /auth/password_change/
// @Summary Change password
// @Tags auth
// @Accept json
// @Param request body object{old_password=string,new_password=string} true "Passwords"
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/password_change/ [post]
func (s *Server) PasswordChange(c *fiber.Ctx) error {
	var req struct {
		OldPassword string `json:"old_password" form:"old_password"`
		NewPassword string `json:"new_password" form:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	err := s.userService.ChangePassword(c.UserContext(), service.ChangePasswordInput{
		Viewer:      viewerFrom(c),
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return respondError(c, err)
	}
	return redirect(c, "/auth/password_change/done/")
}

// PasswordChangeDone handles GET /auth/password_change/done/
func (s *Server) PasswordChangeDone(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Your password was changed"})
}

// issueSession signs a token for user and sets it as the access_token cookie.
func (s *Server) issueSession(c *fiber.Ctx, user *models.User) (string, error) {
	token, claims, err := middleware.IssueToken(s.config.JWTSecret, user.ID, user.Username)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.config.Env == "production",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return token, nil
}

// revoke blacklists the token id until the token would have expired anyway.
func (s *Server) revoke(c *fiber.Ctx, claims middleware.TokenClaims) {
	if s.redis == nil || claims.JTI == "" {
		return
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if err := s.redis.Set(c.UserContext(), cache.RevokedTokenKey(claims.JTI), claims.UserID, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to revoke token",
			slog.String("jti", claims.JTI),
			slog.String("error", err.Error()),
		)
	}
}
