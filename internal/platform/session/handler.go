package session

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
)

type Handler struct {
	holder *Holder
}

func NewHandler(holder *Holder) *Handler {
	return &Handler{holder: holder}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/session", auth.RequireRole(auth.RoleAuthenticated))
	g.GET("", h.Current)
	g.POST("/signout", h.SignOut)
}

type currentResponse struct {
	Identity auth.Identity `json:"identity"`
	Since    time.Time     `json:"since"`
}

func (h *Handler) Current(c echo.Context) error {
	id, ok := h.holder.Current()
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, currentResponse{Identity: id, Since: h.holder.Since()})
}

func (h *Handler) SignOut(c echo.Context) error {
	h.holder.Clear()
	return c.NoContent(http.StatusNoContent)
}
