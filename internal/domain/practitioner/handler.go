package practitioner

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
	api.GET("/profile", h.GetProfile)
	api.PUT("/profile", h.SaveProfile)
	api.GET("/profile/status", h.GetStatus)
}

func (h *Handler) GetProfile(c echo.Context) error {
	pid, err := auth.Practitioner(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetProfile(c.Request().Context(), pid)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) SaveProfile(c echo.Context) error {
	pid, err := auth.Practitioner(c)
	if err != nil {
		return err
	}
	var in ProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	p, err := h.svc.SaveProfile(ctx, pid, auth.EmailFromContext(ctx), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetStatus(c echo.Context) error {
	pid, err := auth.Practitioner(c)
	if err != nil {
		return err
	}
	st, err := h.svc.Status(c.Request().Context(), pid)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}
