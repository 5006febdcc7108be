package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/library-api/internal/config"
)

func TestEncodeDecodePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	hdr.Add("X-Custom", "a")
	hdr.Add("X-Custom", "b")
	body := []byte(`{"books":[],"total":0}`)

	payload, err := encodePayload(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, []string{"a", "b"}, gotHdr.Values("X-Custom"))
	assert.Equal(t, body, gotBody)
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	for _, bs := range [][]byte{nil, {1, 2, 3}, []byte("short")} {
		_, _, _, ok := decodePayload(bs)
		assert.False(t, ok)
	}
	// Header length pointing past the buffer.
	payload, err := encodePayload(200, http.Header{}, []byte("x"))
	require.NoError(t, err)
	payload[7] = 0xFF
	_, _, _, ok := decodePayload(payload)
	assert.False(t, ok)
}

func TestCacheKeyFromVariesWithQuery(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "catalog", KeyStrategy: "route_query"}
	e := echo.New()

	key := func(target string) string {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/books")
		return cacheKeyFrom(cfg, c)
	}

	k1 := key("/v1/books?q=dune&page=1")
	k2 := key("/v1/books?q=dune&page=2")
	k3 := key("/v1/books?q=dune&page=1")

	assert.NotEqual(t, k1, k2)
	assert.Equal(t, k1, k3)
	assert.Contains(t, k1, "catalog:")
}

func TestNewRedisCacheNoopsWithoutClient(t *testing.T) {
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}
	mw := NewRedisCache(cfg, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/books", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	err := mw(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})(c)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}
