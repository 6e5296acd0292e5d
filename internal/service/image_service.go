package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"yatube/internal/config"
	"yatube/internal/featureflags"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/storage"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 5
	// ImageKeyPrefix mirrors the upload_to directory of post images.
	ImageKeyPrefix  = "posts/"
	ThumbnailWidth  = 960
	ThumbnailHeight = 339
	WebPQuality     = 70
)

type UploadImageInput struct {
	Viewer      models.Viewer
	Filename    string
	ContentType string
	Content     []byte
}

// StoredImage is the result of an upload. ThumbnailKey is empty when no thumbnail was written.
type StoredImage struct {
	Key          string
	ThumbnailKey string
	ContentType  string
	Width        int
	Height       int
}

type ImageService struct {
	store              storage.Store
	flags              *featureflags.Manager
	maxUploadSizeBytes int64
}

func NewImageService(store storage.Store, flags *featureflags.Manager, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}
	if flags == nil {
		flags = featureflags.NewManager("")
	}

	return &ImageService{
		store:              store,
		flags:              flags,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Upload validates an image attachment and writes it to the store under posts/<uuid>.<ext>.
// The original bytes are stored unchanged.
func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (*StoredImage, error) {
	if len(in.Content) == 0 {
		return nil, models.NewFieldValidationError("image", "No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewFieldValidationError("image", fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return nil, models.NewFieldValidationError("image", "Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewFieldValidationError("image", "Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewFieldValidationError("image", "Unsupported image format")
	}

	sourceMimeType := decodedFormatToMime(format)
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, sourceMimeType) {
		return nil, models.NewFieldValidationError("image", "Image content type mismatch")
	}

	id := uuid.NewString()
	b := decoded.Bounds()
	out := &StoredImage{
		Key:         ImageKeyPrefix + id + "." + extensionFor(format),
		ContentType: sourceMimeType,
		Width:       b.Dx(),
		Height:      b.Dy(),
	}

	if err := s.store.Put(ctx, out.Key, sourceMimeType, in.Content); err != nil {
		return nil, models.NewInternalError(err)
	}

	if s.flags.EnabledFor(featureflags.PostImageThumbnails, in.Viewer) {
		thumb, err := buildThumbnail(decoded, ThumbnailWidth, ThumbnailHeight)
		if err != nil {
			s.cleanup(ctx, out.Key)
			return nil, models.NewInternalError(err)
		}
		thumbKey := ThumbnailKey(out.Key)
		if err := s.store.Put(ctx, thumbKey, "image/webp", thumb); err != nil {
			s.cleanup(ctx, out.Key)
			return nil, models.NewInternalError(err)
		}
		out.ThumbnailKey = thumbKey
	}

	observability.ImagesStored.WithLabelValues(s.store.Name()).Inc()
	return out, nil
}

// Discard removes a stored image and its thumbnail. Missing objects are ignored.
func (s *ImageService) Discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	s.cleanup(ctx, key, ThumbnailKey(key))
}

// URL resolves the public URL of a stored image key.
func (s *ImageService) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.store.URL(key)
}

// ThumbnailURL resolves the thumbnail URL of a post image. Thumbnails are written when the
// flag is enabled for the uploading author, so the same author decides resolution.
func (s *ImageService) ThumbnailURL(key string, authorID uint) string {
	if key == "" || !s.flags.EnabledFor(featureflags.PostImageThumbnails, models.Authenticated(authorID)) {
		return ""
	}
	return s.store.URL(ThumbnailKey(key))
}

// Ready reports whether the storage backend accepts writes.
func (s *ImageService) Ready(ctx context.Context) error {
	return s.store.Ready(ctx)
}

// ThumbnailKey derives the thumbnail key from an image key: posts/a.png -> posts/thumbs/a.webp.
func ThumbnailKey(key string) string {
	dir, file := path.Split(key)
	base := strings.TrimSuffix(file, path.Ext(file))
	return dir + "thumbs/" + base + ".webp"
}

func (s *ImageService) cleanup(ctx context.Context, keys ...string) {
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to delete stored image",
				slog.String("key", k),
				slog.String("error", err.Error()),
			)
		}
	}
}

// buildThumbnail crops src to the target aspect ratio around its centre, scales it to fit and encodes WebP.
func buildThumbnail(src image.Image, width, height int) ([]byte, error) {
	b := src.Bounds()
	x, y, w, h := centerCrop(b.Dx(), b.Dy(), float64(width)/float64(height))
	cropped := cropToRect(src, b.Min.X+x, b.Min.Y+y, w, h)
	return encodeWebP(resizeToFit(cropped, width, height), WebPQuality)
}

func centerCrop(w, h int, ratio float64) (cropX, cropY, cropW, cropH int) {
	if w <= 0 || h <= 0 {
		return 0, 0, w, h
	}
	if float64(w)/float64(h) > ratio {
		cropH = h
		cropW = int(float64(h) * ratio)
		cropX = (w - cropW) / 2
	} else {
		cropW = w
		cropH = int(float64(w) / ratio)
		cropY = (h - cropH) / 2
	}
	if cropW < 1 {
		cropW = 1
	}
	if cropH < 1 {
		cropH = 1
	}
	return cropX, cropY, cropW, cropH
}

func cropToRect(src image.Image, x, y, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func extensionFor(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "jpg"
	default:
		return strings.ToLower(strings.TrimSpace(format))
	}
}
