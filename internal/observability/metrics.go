package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yatube_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheLookups counts cache-aside lookups by key family and result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_cache_lookups_total",
		Help: "Cache-aside lookups by key family and result",
	}, []string{"family", "result"})

	// PostsCreated counts successfully published posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yatube_posts_created_total",
		Help: "Total number of posts published",
	})

	// CommentsCreated counts successfully stored comments.
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yatube_comments_created_total",
		Help: "Total number of comments added",
	})

	// FollowEvents counts follow graph changes. Result is "created", "existing", "self" or "removed".
	FollowEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_follow_events_total",
		Help: "Follow and unfollow requests by outcome",
	}, []string{"result"})

	// FeedBuildLatency records how long building one feed page takes.
	FeedBuildLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "yatube_feed_build_latency_seconds",
		Help:    "Latency of subscription feed page builds",
		Buckets: prometheus.DefBuckets,
	})

	// ImagesStored counts uploaded post images by storage backend.
	ImagesStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_images_stored_total",
		Help: "Post images written by storage backend",
	}, []string{"backend"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// TrackFeedBuild returns a function that records a feed build when called.
func TrackFeedBuild() func() {
	start := time.Now()
	return func() {
		FeedBuildLatency.Observe(time.Since(start).Seconds())
	}
}
