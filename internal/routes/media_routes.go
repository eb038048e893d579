package routes

import (
	"net/http"

	"marketplace/internal/apperr"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
)

// ObjectReader reads stored media objects by key.
type ObjectReader interface {
	Get(key string) ([]byte, bool)
}

// SetupMediaRoutes serves objects kept in process under /media. It is only
// mounted when no object storage is configured.
func SetupMediaRoutes(e *echo.Echo, store ObjectReader) {
	e.GET("/media/*", func(c echo.Context) error {
		data, ok := store.Get(c.Param("*"))
		if !ok {
			return apperr.NewNotFound("File not found")
		}
		return c.Blob(http.StatusOK, mimetype.Detect(data).String(), data)
	})
}
