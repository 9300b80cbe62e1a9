package blobstore

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler serves stored objects read-only over HTTP.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts GET <prefix>/* on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/*", h.Serve)
}

func (h *Handler) Serve(c echo.Context) error {
	rc, obj, err := h.store.Get(c.Request().Context(), c.Param("*"))
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidPath):
		return echo.NewHTTPError(http.StatusNotFound, "object not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(obj.Size, 10))
	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Stream(http.StatusOK, obj.ContentType, rc)
}
