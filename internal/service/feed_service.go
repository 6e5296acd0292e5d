package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FeedService builds the personalised feed: posts by every author the viewer follows.
type FeedService struct {
	postRepo repository.PostRepository
	images   *ImageService
}

func NewFeedService(postRepo repository.PostRepository, images *ImageService) *FeedService {
	return &FeedService{postRepo: postRepo, images: images}
}

// Build returns one page of the viewer's feed, newest first. Following nobody yields an
// empty page. The followed-author set is resolved inside the posts query, never per author.
func (s *FeedService) Build(ctx context.Context, viewer models.Viewer, page string) (*PostPage, error) {
	userID, ok := viewer.UserID()
	if !ok {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	ctx, span := observability.GetTraceLayer().TraceService(ctx, "feed", "Build")
	defer span.End()
	defer observability.TrackFeedBuild()()

	feed, err := listPosts(ctx, s.postRepo, s.images, repository.PostScope{FollowerID: userID}, page)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("feed.count", feed.Count),
		attribute.Int("feed.page", feed.Number),
	)
	return feed, nil
}
