package prescription

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rdv/rdv/internal/platform/apperr"
	"github.com/rdv/rdv/internal/platform/auth"
	"github.com/rdv/rdv/internal/platform/render"
	"github.com/rdv/rdv/pkg/pagination"
)

const publicNotFound = "document not found or invalid code"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the authenticated document routes. Documents are
// append-only: there is no PUT, PATCH or DELETE.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/documents/drafts", h.ComposeDraft)
	api.POST("/documents", h.IssueDocument)
	api.GET("/documents", h.ListDocuments)
	api.GET("/documents/:id", h.GetDocument)
	api.GET("/documents/:id/pdf", h.GetDocumentPDF)
	api.GET("/documents/:id/share", h.GetShareLinks)
	api.GET("/patients/:id/documents", h.ListPatientDocuments)
}

// RegisterPublicRoutes mounts the unauthenticated verification lookup.
func (h *Handler) RegisterPublicRoutes(pub *echo.Group) {
	pub.GET("/documents/:code", h.VerifyDocument)
}

func (h *Handler) ComposeDraft(c echo.Context) error {
	pid, err := auth.Practitioner(c)
	if err != nil {
		return err
	}
	var in DraftInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.ComposeDraft(c.Request().Context(), pid, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) IssueDocument(c echo.Context) error {
	pid, err := auth.Practitioner(c)
	if err != nil {
		return err
	}
	var in DraftInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rec, err := h.svc.ComposeAndIssue(c.Request().Context(), pid, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListDocuments(c echo.Context) error {
	pid, err := auth.Practitioner(c)
	if err != nil {
		return err
	}
	f, err := h.parseFilter(c)
	if err != nil {
		return apperr.HTTP(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pid, f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Record{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListPatientDocuments(c echo.Context) error {
	pid, err := auth.Practitioner(c)
	if err != nil {
		return err
	}
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), pid, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Record{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetDocument(c echo.Context) error {
	pid, err := auth.Practitioner(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.GetByID(c.Request().Context(), pid, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) GetDocumentPDF(c echo.Context) error {
	pid, err := auth.Practitioner(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, pdf, err := h.svc.RenderPDF(c.Request().Context(), pid, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	name := rec.Type + "-" + strings.ToLower(render.ShortCode(rec.PublicCode)) + ".pdf"
	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+name+`"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) GetShareLinks(c echo.Context) error {
	pid, err := auth.Practitioner(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	links, err := h.svc.ShareLinks(c.Request().Context(), pid, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, links)
}

func (h *Handler) VerifyDocument(c echo.Context) error {
	view, err := h.svc.GetByPublicCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, publicNotFound)
		}
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, view)
}

// parseFilter reads type, q, patient_id and the from/to dates. Dates are
// calendar days in the clinic's time zone; to is inclusive.
func (h *Handler) parseFilter(c echo.Context) (Filter, error) {
	f := Filter{
		Type:  strings.ToLower(strings.TrimSpace(c.QueryParam("type"))),
		Query: c.QueryParam("q"),
	}
	ve := &apperr.ValidationError{}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			ve.Add("patient_id", "must be a uuid")
		} else {
			f.PatientID = &id
		}
	}
	loc := h.svc.opts.Location
	if v := c.QueryParam("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			ve.Add("from", "must be a date in YYYY-MM-DD format")
		} else {
			f.From = &t
		}
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			ve.Add("to", "must be a date in YYYY-MM-DD format")
		} else {
			t = t.AddDate(0, 0, 1)
			f.To = &t
		}
	}
	return f, ve.Err()
}
