package scheduling

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc        *Service
	clinicName string
}

func NewHandler(svc *Service, clinicName string) *Handler {
	return &Handler{svc: svc, clinicName: clinicName}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAuthenticated))
	g.GET("/dashboard", h.GetDashboard)
	g.GET("/appointments", h.ListAppointments)
	g.GET("/appointments/next", h.GetNext)
	g.GET("/appointments/:id", h.GetAppointment)
	g.POST("/appointments", h.CreateAppointment)
	g.PUT("/appointments/:id", h.UpdateAppointment)
	g.PATCH("/appointments/:id/status", h.UpdateStatus)
	g.DELETE("/appointments/:id", h.DeleteAppointment)
	g.GET("/clients/:id/appointments", h.ListClientAppointments)
}

// appointmentView adds the DD/MM/YYYY date shown in lists.
type appointmentView struct {
	*Appointment
	DisplayDate string `json:"display_date"`
}

func toView(a *Appointment) appointmentView {
	return appointmentView{Appointment: a, DisplayDate: a.DisplayDate()}
}

func toViews(list []Appointment) []appointmentView {
	out := make([]appointmentView, len(list))
	for i := range list {
		out[i] = toView(&list[i])
	}
	return out
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) GetDashboard(c echo.Context) error {
	d := h.svc.Dashboard(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]interface{}{
		"clinic":    h.clinicName,
		"dashboard": d,
	})
}

// ListAppointments supports ?status=all|Scheduled|Completed|Canceled and ?q=.
func (h *Handler) ListAppointments(c echo.Context) error {
	filter, err := ParseStatusFilter(c.QueryParam("status"))
	if err != nil {
		return httpError(err)
	}
	list, err := h.svc.List(c.Request().Context(), filter, c.QueryParam("q"))
	if err != nil {
		return httpError(err)
	}
	return paginated(c, list)
}

func (h *Handler) ListClientAppointments(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	filter, err := ParseStatusFilter(c.QueryParam("status"))
	if err != nil {
		return httpError(err)
	}
	list, err := h.svc.ListByClient(c.Request().Context(), id, filter, c.QueryParam("q"))
	if err != nil {
		return httpError(err)
	}
	return paginated(c, list)
}

func paginated(c echo.Context, list []Appointment) error {
	pg := pagination.FromContext(c)
	start, end := pg.Window(len(list))
	return c.JSON(http.StatusOK, pagination.NewResponse(toViews(list[start:end]), len(list), pg.Limit, pg.Offset))
}

func (h *Handler) GetNext(c echo.Context) error {
	next, err := h.svc.Next(c.Request().Context())
	if err != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("next appointment")
	}
	return c.JSON(http.StatusOK, next)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toView(a))
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.Create(c.Request().Context(), &a)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, toView(created))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id
	updated, err := h.svc.Update(c.Request().Context(), &a)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toView(updated))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	status, ok := ParseStatus(req.Status)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toView(a))
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
