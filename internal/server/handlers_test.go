package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

// newTestEnv wires a full server over a temporary SQLite database, miniredis and a local image store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Env:          "test",
		JWTSecret:    testSecret,
		DBDriver:     database.DriverSQLite,
		DBSQLitePath: filepath.Join(dir, "yatube.db"),
		FeatureFlags: "post_image_thumbnails=on",
		MediaURL:     "/media/",
	}

	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv, err := NewServerWithDeps(cfg, db, rdb, storage.NewLocalStore(filepath.Join(dir, "media"), cfg.MediaURL))
	require.NoError(t, err)
	return &testEnv{app: srv.NewApp(), db: db, mr: mr}
}

func (e *testEnv) user(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, e.db.Create(u).Error)
	token, _, err := middleware.IssueToken(testSecret, u.ID, u.Username)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) group(t *testing.T, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: strings.ToUpper(slug), Slug: slug}
	require.NoError(t, e.db.Create(g).Error)
	return g
}

func (e *testEnv) do(t *testing.T, req *http.Request, token string) *http.Response {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, target, token string) *http.Response {
	return e.do(t, httptest.NewRequest(http.MethodGet, target, nil), token)
}

func (e *testEnv) postJSON(t *testing.T, target, token string, body any) *http.Response {
	return e.do(t, jsonRequest(http.MethodPost, target, body), token)
}

type pageBody struct {
	PageObj struct {
		Items       []models.Post `json:"items"`
		Number      int           `json:"number"`
		NumPages    int           `json:"num_pages"`
		Count       int64         `json:"count"`
		HasNext     bool          `json:"has_next"`
		HasPrevious bool          `json:"has_previous"`
	} `json:"page_obj"`
	Following bool `json:"following"`
}

func decodePage(t *testing.T, resp *http.Response) pageBody {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body pageBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func texts(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Text)
	}
	return out
}

func TestCreatePost_AppearsOnProfileAndIndexOnly(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "leo")
	env.group(t, "cats")

	resp := env.postJSON(t, "/create/", token, map[string]any{"text": "Hello"})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile/leo/", resp.Header.Get("Location"))

	profile := decodePage(t, env.get(t, "/profile/leo/", ""))
	assert.Equal(t, []string{"Hello"}, texts(profile.PageObj.Items))
	assert.False(t, profile.Following)

	index := decodePage(t, env.get(t, "/", ""))
	assert.Equal(t, []string{"Hello"}, texts(index.PageObj.Items))
	assert.Equal(t, "leo", index.PageObj.Items[0].Author.Username)

	group := decodePage(t, env.get(t, "/group/cats/", ""))
	assert.Empty(t, group.PageObj.Items)
}

func TestCreatePost_WithGroup(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "leo")
	cats := env.group(t, "cats")
	env.group(t, "dogs")

	resp := env.postJSON(t, "/create/", token, map[string]any{"text": "meow", "group": cats.ID})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	assert.Equal(t, []string{"meow"}, texts(decodePage(t, env.get(t, "/group/cats/", "")).PageObj.Items))
	assert.Empty(t, decodePage(t, env.get(t, "/group/dogs/", "")).PageObj.Items)
	assert.Equal(t, http.StatusNotFound, env.get(t, "/group/birds/", "").StatusCode)
}

func TestCreatePost_Rejections(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "leo")

	t.Run("anonymous is sent to login", func(t *testing.T) {
		resp := env.postJSON(t, "/create/", "", map[string]any{"text": "Hello"})
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/auth/login/?next=/create/", resp.Header.Get("Location"))
	})

	t.Run("blank text is a field error", func(t *testing.T) {
		resp := env.postJSON(t, "/create/", token, map[string]any{"text": "   "})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, models.CodeValidation, body.Code)
		assert.Contains(t, body.Fields, "text")
	})

	t.Run("unknown group is a field error", func(t *testing.T) {
		resp := env.postJSON(t, "/create/", token, map[string]any{"text": "hi", "group": 999})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(t, body.Fields, "group")
	})

	var count int64
	require.NoError(t, env.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFollow_FeedShowsOnlyFollowedAuthors(t *testing.T) {
	env := newTestEnv(t)
	_, followerToken := env.user(t, "follower")
	_, authorToken := env.user(t, "author")
	_, strangerToken := env.user(t, "stranger")

	resp := env.postJSON(t, "/profile/author/follow/", followerToken, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/follow/", resp.Header.Get("Location"))

	// Following again is a no-op, also through GET.
	resp = env.get(t, "/profile/author/follow/", followerToken)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/follow/", resp.Header.Get("Location"))
	var edges int64
	require.NoError(t, env.db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Equal(t, int64(1), edges)

	resp = env.postJSON(t, "/create/", authorToken, map[string]any{"text": "fresh"})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	feed := decodePage(t, env.get(t, "/follow/", followerToken))
	assert.Equal(t, []string{"fresh"}, texts(feed.PageObj.Items))
	assert.Empty(t, decodePage(t, env.get(t, "/follow/", strangerToken)).PageObj.Items)

	assert.True(t, decodePage(t, env.get(t, "/profile/author/", followerToken)).Following)
	assert.False(t, decodePage(t, env.get(t, "/profile/author/", strangerToken)).Following)

	resp = env.postJSON(t, "/profile/author/unfollow/", followerToken, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/follow/", resp.Header.Get("Location"))
	assert.Empty(t, decodePage(t, env.get(t, "/follow/", followerToken)).PageObj.Items)

	// Unfollowing without an edge still redirects.
	resp = env.postJSON(t, "/profile/author/unfollow/", followerToken, nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/follow/", resp.Header.Get("Location"))
}

func TestFollow_SelfAndUnknown(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "leo")

	resp := env.postJSON(t, "/profile/leo/follow/", token, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile/leo/", resp.Header.Get("Location"))
	var edges int64
	require.NoError(t, env.db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Zero(t, edges)

	resp = env.get(t, "/profile/leo/unfollow/", token)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile/leo/", resp.Header.Get("Location"))

	assert.Equal(t, http.StatusNotFound, env.postJSON(t, "/profile/ghost/follow/", token, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, env.get(t, "/profile/ghost/", "").StatusCode)

	resp = env.get(t, "/follow/", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login/?next=/follow/", resp.Header.Get("Location"))
}

func TestEditPost(t *testing.T) {
	env := newTestEnv(t)
	author, authorToken := env.user(t, "author")
	_, otherToken := env.user(t, "other")
	cats := env.group(t, "cats")

	post := &models.Post{Text: "original", AuthorID: author.ID, GroupID: &cats.ID}
	require.NoError(t, env.db.Create(post).Error)
	created := post.CreatedAt
	editPath := fmt.Sprintf("/posts/%d/edit/", post.ID)
	detailPath := fmt.Sprintf("/posts/%d/", post.ID)

	t.Run("non-author is redirected and nothing changes", func(t *testing.T) {
		resp := env.get(t, editPath, otherToken)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, detailPath, resp.Header.Get("Location"))

		resp = env.postJSON(t, editPath, otherToken, map[string]any{"text": "hijacked"})
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, detailPath, resp.Header.Get("Location"))

		var reloaded models.Post
		require.NoError(t, env.db.First(&reloaded, post.ID).Error)
		assert.Equal(t, "original", reloaded.Text)
	})

	t.Run("guest is redirected to the post, not to login", func(t *testing.T) {
		resp := env.get(t, editPath, "")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, detailPath, resp.Header.Get("Location"))

		resp = env.postJSON(t, editPath, "", map[string]any{"text": "anonymous edit"})
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, detailPath, resp.Header.Get("Location"))

		var reloaded models.Post
		require.NoError(t, env.db.First(&reloaded, post.ID).Error)
		assert.Equal(t, "original", reloaded.Text)

		assert.Equal(t, http.StatusNotFound, env.get(t, "/posts/9999/edit/", "").StatusCode)
	})

	t.Run("author gets the form", func(t *testing.T) {
		resp := env.get(t, editPath, authorToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			IsEdit bool        `json:"is_edit"`
			Form   formContext `json:"form"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.IsEdit)
		assert.Equal(t, "original", body.Form.Text)
		require.NotNil(t, body.Form.Group)
		assert.Equal(t, cats.ID, *body.Form.Group)
	})

	t.Run("author edit keeps author and creation time", func(t *testing.T) {
		resp := env.postJSON(t, editPath, authorToken, map[string]any{"text": "edited"})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, detailPath, resp.Header.Get("Location"))

		var reloaded models.Post
		require.NoError(t, env.db.First(&reloaded, post.ID).Error)
		assert.Equal(t, "edited", reloaded.Text)
		assert.Nil(t, reloaded.GroupID)
		assert.Equal(t, author.ID, reloaded.AuthorID)
		assert.WithinDuration(t, created, reloaded.CreatedAt, time.Second)
	})

	t.Run("blank edit is rejected", func(t *testing.T) {
		resp := env.postJSON(t, editPath, authorToken, map[string]any{"text": ""})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeletedAccountTokenGetsClientErrors(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.user(t, "author")
	gone, token := env.user(t, "gone")
	post := &models.Post{Text: "still here", AuthorID: author.ID}
	require.NoError(t, env.db.Create(post).Error)
	require.NoError(t, env.db.Delete(&models.User{}, gone.ID).Error)

	resp := env.postJSON(t, "/create/", token, map[string]any{"text": "from beyond"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.postJSON(t, fmt.Sprintf("/posts/%d/comment/", post.ID), token, map[string]any{"text": "boo"})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", post.ID), resp.Header.Get("Location"))

	resp = env.postJSON(t, "/profile/author/follow/", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var posts, comments, edges int64
	require.NoError(t, env.db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, env.db.Model(&models.Comment{}).Count(&comments).Error)
	require.NoError(t, env.db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Equal(t, int64(1), posts)
	assert.Zero(t, comments)
	assert.Zero(t, edges)
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.user(t, "author")
	_, readerToken := env.user(t, "reader")
	post := &models.Post{Text: "discuss", AuthorID: author.ID}
	require.NoError(t, env.db.Create(post).Error)
	commentPath := fmt.Sprintf("/posts/%d/comment/", post.ID)
	detailPath := fmt.Sprintf("/posts/%d/", post.ID)

	resp := env.postJSON(t, commentPath, readerToken, map[string]any{"text": "first!"})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, detailPath, resp.Header.Get("Location"))

	resp = env.postJSON(t, commentPath, readerToken, map[string]any{"text": "  "})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = env.postJSON(t, commentPath, "", map[string]any{"text": "anon"})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/auth/login/"))

	resp = env.get(t, detailPath, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Post     models.Post       `json:"post"`
		Comments []models.Comment  `json:"comments"`
		Form     map[string]string `json:"form"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "discuss", body.Post.Text)
	require.Len(t, body.Comments, 1)
	assert.Equal(t, "first!", body.Comments[0].Text)
	assert.Equal(t, "reader", body.Comments[0].Author.Username)
	assert.Contains(t, body.Form, "text")

	assert.Equal(t, http.StatusNotFound, env.get(t, "/posts/9999/", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, env.postJSON(t, "/posts/9999/comment/", readerToken, map[string]any{"text": "x"}).StatusCode)
}

func TestIndex_Pagination(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.user(t, "author")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		p := &models.Post{Text: fmt.Sprintf("post %02d", i), AuthorID: author.ID, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, env.db.Create(p).Error)
	}

	first := decodePage(t, env.get(t, "/", ""))
	assert.Len(t, first.PageObj.Items, 10)
	assert.Equal(t, "post 11", first.PageObj.Items[0].Text)
	assert.True(t, first.PageObj.HasNext)
	assert.Equal(t, int64(12), first.PageObj.Count)

	second := decodePage(t, env.get(t, "/?page=2", ""))
	assert.Equal(t, []string{"post 01", "post 00"}, texts(second.PageObj.Items))
	assert.True(t, second.PageObj.HasPrevious)

	beyond := decodePage(t, env.get(t, "/?page=3", ""))
	assert.Equal(t, 2, beyond.PageObj.Number)
	assert.Len(t, beyond.PageObj.Items, 2)

	junk := decodePage(t, env.get(t, "/?page=abc", ""))
	assert.Equal(t, 1, junk.PageObj.Number)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for x := 0; x < 64; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 8), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCreatePost_WithImageIsServedFromMedia(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "leo")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("text", "look at this"))
	part, err := w.CreateFormFile("image", "pic.png")
	require.NoError(t, err)
	content := testPNG(t)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/create/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := env.do(t, req, token)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	page := decodePage(t, env.get(t, "/profile/leo/", ""))
	require.Len(t, page.PageObj.Items, 1)
	post := page.PageObj.Items[0]
	require.True(t, strings.HasPrefix(post.ImageURL, "/media/posts/"), post.ImageURL)
	assert.True(t, strings.HasSuffix(post.ThumbnailURL, ".webp"), post.ThumbnailURL)

	media := env.get(t, post.ImageURL, "")
	require.Equal(t, http.StatusOK, media.StatusCode)
	served, err := io.ReadAll(media.Body)
	require.NoError(t, err)
	assert.Equal(t, content, served)

	assert.Equal(t, http.StatusOK, env.get(t, post.ThumbnailURL, "").StatusCode)
}

func TestPasswordChange(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/auth/signup/", "", map[string]string{
		"username": "leo", "email": "leo@example.com", "password": "Password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var signup authResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&signup))

	resp = env.postJSON(t, "/auth/password_change/", signup.Token, map[string]string{
		"old_password": "wrong", "new_password": "Password456",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.postJSON(t, "/auth/password_change/", signup.Token, map[string]string{
		"old_password": "Password123", "new_password": "Password456",
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/password_change/done/", resp.Header.Get("Location"))

	resp = env.postJSON(t, "/auth/login/", "", map[string]string{"username": "leo", "password": "Password456"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.postJSON(t, "/auth/login/", "", map[string]string{"username": "leo", "password": "Password123"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.get(t, "/health/live", "").StatusCode)

	resp := env.get(t, "/health/ready", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, map[string]string{"database": "healthy", "redis": "healthy", "storage": "healthy"}, body.Checks)

	env.mr.Close()
	resp = env.get(t, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
