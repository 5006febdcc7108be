package middleware

// identity.go holds helpers shared by the cache and rate limit middleware
// for attributing a request to a caller. Rate limit keys use the user_id
// set by JWTAuth when present and fall back to "anon" for guests browsing
// the public catalog.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID returns a string form of the authenticated user's ID for
// use in rate limit keys, or "anon" when the request is unauthenticated.
func currentUserID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "anon"
	}
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case float64:
		return fmt.Sprintf("%.0f", t)
	case uint64:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	}
	return "anon"
}
