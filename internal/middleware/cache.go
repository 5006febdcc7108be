package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/openshelf/library-api/internal/config"
)

// captureWriter tees the response body into a buffer (bounded by limit)
// while forwarding everything to the real writer, so a successful catalog
// response can be stored after it has been sent.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }
func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom derives a stable Redis key from the request. The default
// strategy keys on route plus raw query string so every page/filter
// combination of a catalog search caches independently. The variable part
// is hashed; only the prefix stays readable.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var tail string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		tail = "route:" + c.Path()
	case "method_route":
		tail = "method:" + r.Method + ":route:" + c.Path()
	case "method_route_query":
		tail = "method:" + r.Method + ":route:" + c.Path() + ":q:" + r.URL.RawQuery
	default: // "route_query"
		tail = "route:" + c.Path() + ":q:" + r.URL.RawQuery
	}
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// Cached entries pack status, headers and body into one value:
// [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// replayCached writes a stored response back to the client, marking it as
// a cache hit. Content-Length is dropped because Echo recomputes it.
func replayCached(c echo.Context, status int, hdr http.Header, body []byte) error {
	for k, vals := range hdr {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		for _, v := range vals {
			c.Response().Header().Add(k, v)
		}
	}
	c.Response().Header().Set("X-Cache", "HIT")
	c.Response().WriteHeader(status)
	if len(body) > 0 {
		_, _ = c.Response().Write(body)
	}
	return nil
}

// NewRedisCache caches whole 200 responses (headers included) for the
// configured methods. A nil Redis client or disabled config yields a
// pass-through middleware, so the public catalog works without Redis.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			key := cacheKeyFrom(cfg, c)

			if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					return replayCached(c, status, hdr, body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK {
				return nil
			}
			// Responses the limit truncated are not cacheable.
			if maxBody > 0 && cw.size > maxBody {
				return nil
			}

			hdr := make(http.Header, len(c.Response().Header()))
			for k, vals := range c.Response().Header() {
				hdr[k] = append([]string(nil), vals...)
			}
			if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
				// Detached context: the client response is already done.
				_ = rdb.SetEx(context.Background(), key, payload, ttl).Err()
			}
			return nil
		}
	}
}
