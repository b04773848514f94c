package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-store/internal/config"
)

func cacheTestSetup(t *testing.T) (*redis.Client, config.CacheConfig) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{"GET": true},
		TTL:          30 * time.Second,
		KeyStrategy:  "route_query",
		Prefix:       "catalog",
		MaxBodyBytes: 1 << 20,
	}
	return rdb, cfg
}

func serveCached(t *testing.T, mw echo.MiddlewareFunc, hits *int, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := mw(func(c echo.Context) error {
		*hits++
		return c.JSON(http.StatusOK, echo.Map{"items": []string{"The Matrix"}})
	})
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/movies")
	require.NoError(t, h(c))
	return rec
}

func TestRedisCache_HitSkipsHandler(t *testing.T) {
	rdb, cfg := cacheTestSetup(t)
	mw := NewRedisCache(cfg, rdb)

	hits := 0
	first := serveCached(t, mw, &hits, "/v1/movies")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, 1, hits)

	second := serveCached(t, mw, &hits, "/v1/movies")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	// Handler untouched on the hit; body identical to the original.
	assert.Equal(t, 1, hits)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestRedisCache_QueryIsPartOfKey(t *testing.T) {
	rdb, cfg := cacheTestSetup(t)
	mw := NewRedisCache(cfg, rdb)

	hits := 0
	serveCached(t, mw, &hits, "/v1/movies?page=1")
	serveCached(t, mw, &hits, "/v1/movies?page=2")
	assert.Equal(t, 2, hits)

	serveCached(t, mw, &hits, "/v1/movies?page=1")
	assert.Equal(t, 2, hits)
}

func TestRedisCache_DisabledPassesThrough(t *testing.T) {
	rdb, cfg := cacheTestSetup(t)
	cfg.Enabled = false
	mw := NewRedisCache(cfg, rdb)

	hits := 0
	rec := serveCached(t, mw, &hits, "/v1/movies")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))

	serveCached(t, mw, &hits, "/v1/movies")
	assert.Equal(t, 2, hits)
}

func TestRedisCache_NonListedMethodSkipped(t *testing.T) {
	rdb, cfg := cacheTestSetup(t)
	mw := NewRedisCache(cfg, rdb)

	e := echo.New()
	hits := 0
	h := mw(func(c echo.Context) error {
		hits++
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/movies", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/v1/movies")
		require.NoError(t, h(c))
	}
	assert.Equal(t, 2, hits)
}

func TestRedisCache_OversizedBodyNotCached(t *testing.T) {
	rdb, cfg := cacheTestSetup(t)
	cfg.MaxBodyBytes = 16
	mw := NewRedisCache(cfg, rdb)

	e := echo.New()
	hits := 0
	big := `{"items":["The Shawshank Redemption","The Godfather"]}`
	h := mw(func(c echo.Context) error {
		hits++
		return c.String(http.StatusOK, big)
	})
	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/movies", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/v1/movies")
		require.NoError(t, h(c))
		return rec
	}

	first := serve()
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, big, first.Body.String())

	// A body over the limit must not be stored, never served cut off.
	second := serve()
	assert.Equal(t, "MISS", second.Header().Get("X-Cache"))
	assert.Equal(t, big, second.Body.String())
	assert.Equal(t, 2, hits)
}

func TestEncodeDecodePayload(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	body := []byte(`{"items":[]}`)

	bs, err := encodePayload(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, body, gotBody)

	_, _, _, ok = decodePayload([]byte("short"))
	assert.False(t, ok)
}
