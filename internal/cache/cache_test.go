package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"yatube/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type cachedGroup struct {
	ID   uint   `json:"id"`
	Slug string `json:"slug"`
}

func useMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = client.Close()
		SetClient(nil)
	})
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := useMiniRedis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedGroup) func() error {
		return func() error {
			calls++
			*dest = cachedGroup{ID: 1, Slug: "cats"}
			return nil
		}
	}

	var first cachedGroup
	require.NoError(t, Aside(ctx, "group", GroupKey("cats"), &first, GroupTTL, fetch(&first)))
	assert.Equal(t, "cats", first.Slug)
	assert.True(t, mr.Exists("group:cats"))
	assert.Equal(t, GroupTTL, mr.TTL("group:cats"))

	var second cachedGroup
	require.NoError(t, Aside(ctx, "group", GroupKey("cats"), &second, GroupTTL, fetch(&second)))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := useMiniRedis(t)
	notFound := errors.New("not found")

	var dest cachedGroup
	err := Aside(context.Background(), "group", GroupKey("missing"), &dest, GroupTTL, func() error {
		return notFound
	})
	assert.ErrorIs(t, err, notFound)
	assert.False(t, mr.Exists("group:missing"))
}

func TestAside_WithoutRedisFetchesEveryTime(t *testing.T) {
	SetClient(nil)
	calls := 0
	for i := 0; i < 2; i++ {
		var dest cachedGroup
		require.NoError(t, Aside(context.Background(), "group", GroupKey("dogs"), &dest, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestAside_RedisDownFallsThrough(t *testing.T) {
	mr := useMiniRedis(t)
	mr.Close()

	var dest cachedGroup
	err := Aside(context.Background(), "group", GroupKey("cats"), &dest, time.Minute, func() error {
		dest.Slug = "cats"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cats", dest.Slug)
}

func TestInvalidate(t *testing.T) {
	mr := useMiniRedis(t)
	require.NoError(t, mr.Set(UserKey("leo"), "{}"))
	require.NoError(t, mr.Set(GroupKey("cats"), "{}"))

	InvalidateUser(context.Background(), "leo")
	InvalidateGroup(context.Background(), "cats")

	assert.False(t, mr.Exists("user:leo"))
	assert.False(t, mr.Exists("group:cats"))
	assert.Equal(t, "blacklist:abc", RevokedTokenKey("abc"))
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("cache-test")
	t.Cleanup(func() {
		observability.Tracer = prev
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestAside_RecordsRedisSpans(t *testing.T) {
	useMiniRedis(t)
	rec := recordSpans(t)

	var dest cachedGroup
	require.NoError(t, Aside(context.Background(), "group", GroupKey("cats"), &dest, GroupTTL, func() error {
		dest = cachedGroup{ID: 1, Slug: "cats"}
		return nil
	}))

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "redis.get", spans[0].Name())
	assert.Equal(t, "redis.set", spans[1].Name())

	system, ok := spanAttr(spans[0], "db.system")
	require.True(t, ok)
	assert.Equal(t, "redis", system.AsString())
	key, ok := spanAttr(spans[0], "cache.key")
	require.True(t, ok)
	assert.Equal(t, "group:cats", key.AsString())
	hit, ok := spanAttr(spans[0], "cache.hit")
	require.True(t, ok)
	assert.False(t, hit.AsBool())
}

func TestGetJSON_FailureMarksSpan(t *testing.T) {
	mr := useMiniRedis(t)
	rec := recordSpans(t)
	mr.Close()

	var dest cachedGroup
	_, err := GetJSON(context.Background(), GroupKey("cats"), &dest)
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestGetJSON_NoClientSkipsSpan(t *testing.T) {
	rec := recordSpans(t)
	SetClient(nil)

	found, err := GetJSON(context.Background(), GroupKey("cats"), &cachedGroup{})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, rec.Ended())
}
