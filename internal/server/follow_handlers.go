package server

import (
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// FollowIndex handles GET /follow/
// @Summary Personal feed
// @Description Posts by every author the viewer follows, newest first
// @Tags follow
// @Produce json
// @Param page query int false "Page number"
// @Success 200 {object} object{page_obj=service.PostPage}
// @Security BearerAuth
// @Router /follow/ [get]
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	page, err := s.feedService.Build(c.UserContext(), viewerFrom(c), c.Query("page"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"page_obj": page})
}

// ProfileFollow handles GET and POST /profile/:username/follow/
// @Summary Follow an author
// @Description Redirects to the feed; following yourself changes nothing and redirects to your profile
// @Tags follow
// @Param username path string true "Username"
// @Success 302
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile/{username}/follow/ [post]
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	res, err := s.followService.Follow(c.UserContext(), viewerFrom(c), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return followRedirect(c, res)
}

// ProfileUnfollow handles GET and POST /profile/:username/unfollow/
// @Summary Unfollow an author
// @Description Redirects to the feed; unfollowing yourself changes nothing and redirects to your profile
// @Tags follow
// @Param username path string true "Username"
// @Success 302
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile/{username}/unfollow/ [post]
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	res, err := s.followService.Unfollow(c.UserContext(), viewerFrom(c), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return followRedirect(c, res)
}

// followRedirect sends the viewer to their feed, or back to their own profile when they targeted themselves.
func followRedirect(c *fiber.Ctx, res *service.FollowResult) error {
	if res.Self {
		return redirect(c, profilePath(res.Target.Username))
	}
	return redirect(c, feedPath)
}
