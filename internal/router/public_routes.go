package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/openshelf/library-api/internal/config"
	"github.com/openshelf/library-api/internal/handler"
	"github.com/openshelf/library-api/internal/middleware"
)

// RegisterPublic registers the unauthenticated catalog browse endpoints.
// These are the hot read paths, so they carry the Redis response cache
// and the token-bucket rate limiter; both middlewares degrade to no-ops
// when Redis is unavailable.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler, rdb *redis.Client) {
	g := e.Group(
		"/v1",
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)
	g.GET("/books", p.ListBooks)
	// Static segment must register before /books/:id so "categories" is
	// not swallowed as an id.
	g.GET("/books/categories", p.Categories)
	g.GET("/books/:id", p.GetBook)
	g.GET("/books/:id/ratings", p.ListRatings)
}
