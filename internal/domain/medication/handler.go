package medication

import (
	"net/http"
	"strconv"

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
	api.GET("/medications", h.SearchMedications)
	api.POST("/medications", h.AddMedication)
}

func (h *Handler) SearchMedications(c echo.Context) error {
	pid, err := auth.Practitioner(c)
	if err != nil {
		return err
	}
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
	}
	items, err := h.svc.Search(c.Request().Context(), pid, c.QueryParam("q"), c.QueryParam("category"), limit)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Entry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}

func (h *Handler) AddMedication(c echo.Context) error {
	pid, err := auth.Practitioner(c)
	if err != nil {
		return err
	}
	var in EntryInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := h.svc.Add(c.Request().Context(), pid, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, e)
}
