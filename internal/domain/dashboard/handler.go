package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rdv/rdv/internal/platform/apperr"
	"github.com/rdv/rdv/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.GetDashboard)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	pid, err := auth.Practitioner(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Summary(c.Request().Context(), pid, c.QueryParam("tz"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}
