// Package server contains the HTTP handlers, routing and identity middleware of the application.
package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 404 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError(humanizeParam(param), c.Params(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "postId" -> "post ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// respondError renders err with the status its code maps to. Unexpected errors are logged.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

// redirect answers 302 Found with the given location.
func redirect(c *fiber.Ctx, location string) error {
	return c.Redirect(location, fiber.StatusFound)
}

// feedPath is the followed-authors feed.
const feedPath = "/follow/"

func profilePath(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func postPath(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

// loginPath builds the login URL that sends the user back to next afterwards.
func loginPath(next string) string {
	return "/auth/login/?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// safeNext returns next when it is a local absolute path, otherwise "".
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return ""
	}
	return next
}

// postForm is the create/edit payload, accepted as JSON, urlencoded or multipart.
type postForm struct {
	Text  string                    `json:"text"`
	Group *uint                     `json:"group"`
	Image *service.UploadImageInput `json:"-"`
}

// parsePostForm reads the post form from the request body. A malformed group is
// reported as a field error on "group".
func parsePostForm(c *fiber.Ctx) (postForm, error) {
	var form postForm

	if !isFormRequest(c) {
		if err := c.BodyParser(&form); err != nil {
			return form, models.NewValidationError("Invalid request body")
		}
		return form, nil
	}

	form.Text = c.FormValue("text")
	if raw := strings.TrimSpace(c.FormValue("group")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return form, models.NewFieldValidationError("group", "Select a valid group")
		}
		groupID := uint(id)
		form.Group = &groupID
	}

	file, err := c.FormFile("image")
	if err != nil {
		// No file part; the image is optional.
		return form, nil
	}
	src, err := file.Open()
	if err != nil {
		return form, models.NewFieldValidationError("image", "Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return form, models.NewFieldValidationError("image", "Unable to read uploaded file")
	}
	form.Image = &service.UploadImageInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	}
	return form, nil
}

func isFormRequest(c *fiber.Ctx) bool {
	ct := strings.ToLower(c.Get(fiber.HeaderContentType))
	return strings.HasPrefix(ct, fiber.MIMEMultipartForm) || strings.HasPrefix(ct, fiber.MIMEApplicationForm)
}
