package intake

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAuthenticated))
	g.GET("/clients/:id/intake", h.GetAll)
	g.GET("/clients/:id/intake/:kind", h.Get)
	g.PUT("/clients/:id/intake/:kind", h.Save)
	g.GET("/clients/:id/intake/:kind/bmi", h.GetBMI)
	g.GET("/clients/:id/intake/:kind/pdf", h.GetPDF)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrClientNotFound), errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func params(c echo.Context, withKind bool) (uuid.UUID, Kind, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !withKind {
		return id, "", nil
	}
	kind, ok := ParseKind(c.Param("kind"))
	if !ok {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusBadRequest, "kind must be facial or body")
	}
	return id, kind, nil
}

func (h *Handler) GetAll(c echo.Context) error {
	id, _, err := params(c, false)
	if err != nil {
		return err
	}
	recs, err := h.svc.GetAll(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) Get(c echo.Context) error {
	id, kind, err := params(c, true)
	if err != nil {
		return err
	}
	rec, err := h.svc.Get(c.Request().Context(), id, kind)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Save(c echo.Context) error {
	id, kind, err := params(c, true)
	if err != nil {
		return err
	}
	var req SaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.svc.Save(c.Request().Context(), id, kind, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// GetBMI only applies to the body questionnaire.
func (h *Handler) GetBMI(c echo.Context) error {
	id, kind, err := params(c, true)
	if err != nil {
		return err
	}
	if kind != KindBody {
		return echo.NewHTTPError(http.StatusBadRequest, "bmi is only recorded on the body questionnaire")
	}
	res, err := h.svc.BMI(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) GetPDF(c echo.Context) error {
	id, kind, err := params(c, true)
	if err != nil {
		return err
	}
	data, err := h.svc.PDF(c.Request().Context(), id, kind)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`inline; filename="intake-%s-%s.pdf"`, kind, id))
	return c.Blob(http.StatusOK, "application/pdf", data)
}
