// Package handler contains the HTTP layer: request binding, transaction
// orchestration and JSON responses over the repositories.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers load balancer liveness checks.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
