package server

import (
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// formContext describes the post form a client should render.
type formContext struct {
	Text  string `json:"text"`
	Group *uint  `json:"group"`
	Image string `json:"image,omitempty"`
}

// Index handles GET /
// @Summary Latest posts
// @Tags posts
// @Produce json
// @Param page query int false "Page number"
// @Success 200 {object} object{page_obj=service.PostPage}
// @Router / [get]
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.postService.ListIndex(c.UserContext(), c.Query("page"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"page_obj": page})
}

// GroupPosts handles GET /group/:slug/
// @Summary Posts of a group
// @Tags posts
// @Produce json
// @Param slug path string true "Group slug"
// @Param page query int false "Page number"
// @Success 200 {object} object{group=models.Group,page_obj=service.PostPage}
// @Failure 404 {object} models.ErrorResponse
// @Router /group/{slug}/ [get]
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	group, page, err := s.postService.ListGroup(c.UserContext(), c.Params("slug"), c.Query("page"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"group": group, "page_obj": page})
}

// Profile handles GET /profile/:username/
// @Summary Posts of an author
// @Description Includes whether the current viewer follows the author
// @Tags posts
// @Produce json
// @Param username path string true "Username"
// @Param page query int false "Page number"
// @Success 200 {object} object{author=models.User,page_obj=service.PostPage,following=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username}/ [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	author, err := s.userService.GetByUsername(ctx, c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}

	page, err := s.postService.ListByAuthor(ctx, author.ID, c.Query("page"))
	if err != nil {
		return respondError(c, err)
	}
	following, err := s.followService.IsFollowing(ctx, viewerFrom(c), author.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"author":    author,
		"page_obj":  page,
		"following": following,
	})
}

// PostDetail handles GET /posts/:id/
// @Summary One post with its comments
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{post=models.Post,comments=[]models.Comment,form=object{text=string}}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/ [get]
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	post, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	comments, err := s.commentService.ListComments(ctx, post.ID)
	if err != nil {
		return respondError(c, err)
	}
	if comments == nil {
		comments = []*models.Comment{}
	}

	return c.JSON(fiber.Map{
		"post":     post,
		"comments": comments,
		"form":     fiber.Map{"text": ""},
	})
}

// CreatePostForm handles GET /create/
func (s *Server) CreatePostForm(c *fiber.Ctx) error {
	groups, err := s.postService.Groups(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"form":    formContext{},
		"groups":  groups,
		"is_edit": false,
	})
}

// CreatePost handles POST /create/
// @Summary Publish a post
// @Description Accepts JSON or multipart (with an optional image file); redirects to the author's profile
// @Tags posts
// @Accept json,mpfd
// @Param text formData string true "Post text"
// @Param group formData int false "Group ID"
// @Param image formData file false "Image"
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /create/ [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	form, err := parsePostForm(c)
	if err != nil {
		return respondError(c, err)
	}

	viewer := viewerFrom(c)
	if _, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		Viewer:  viewer,
		Text:    form.Text,
		GroupID: form.Group,
		Image:   form.Image,
	}); err != nil {
		return respondError(c, err)
	}

	username, err := s.viewerUsername(c)
	if err != nil {
		return respondError(c, err)
	}
	return redirect(c, profilePath(username))
}

// EditPostForm handles GET /posts/:id/edit/
// @Summary Current values of a post for editing
// @Description Only the author gets the form; anyone else is redirected to the post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{post=models.Post,form=formContext,is_edit=bool}
// @Success 302
// @Security BearerAuth
// @Router /posts/{id}/edit/ [get]
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	post, err := s.postService.GetEditable(ctx, viewerFrom(c), id)
	if service.IsNotAuthor(err) {
		return redirect(c, postPath(id))
	}
	if err != nil {
		return respondError(c, err)
	}
	groups, err := s.postService.Groups(ctx)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"post":    post,
		"form":    formContext{Text: post.Text, Group: post.GroupID, Image: post.ImageURL},
		"groups":  groups,
		"is_edit": true,
	})
}

// EditPost handles POST /posts/:id/edit/
// @Summary Edit a post
// @Description Non-authors and guests are redirected to the unchanged post
// @Tags posts
// @Accept json,mpfd
// @Param id path int true "Post ID"
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/edit/ [post]
func (s *Server) EditPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	form, err := parsePostForm(c)
	if err != nil {
		return respondError(c, err)
	}

	_, err = s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		Viewer:  viewerFrom(c),
		PostID:  id,
		Text:    form.Text,
		GroupID: form.Group,
		Image:   form.Image,
	})
	if err != nil && !service.IsNotAuthor(err) {
		return respondError(c, err)
	}
	return redirect(c, postPath(id))
}

// viewerUsername returns the signed-in user's name, from the token when it carries one.
func (s *Server) viewerUsername(c *fiber.Ctx) (string, error) {
	if name, ok := c.Locals(localUsername).(string); ok && name != "" {
		return name, nil
	}
	id, ok := viewerFrom(c).UserID()
	if !ok {
		return "", models.NewUnauthorizedError("Authentication required")
	}
	user, err := s.userService.GetByID(c.UserContext(), id)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}
