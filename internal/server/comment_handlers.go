package server

import (
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AddComment handles POST /posts/:id/comment/
// @Summary Comment on a post
// @Description Always redirects back to the post; blank text stores nothing
// @Tags comments
// @Accept json
// @Param id path int true "Post ID"
// @Param request body object{text=string} true "Comment"
// @Success 302
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/comment/ [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text" form:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	_, err = s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		Viewer: viewerFrom(c),
		PostID: postID,
		Text:   req.Text,
	})
	if err != nil && !models.HasCode(err, models.CodeValidation) {
		return respondError(c, err)
	}
	return redirect(c, postPath(postID))
}
