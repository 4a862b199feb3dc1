package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/registro-sv/academico-api/internal/models"
	"github.com/registro-sv/academico-api/internal/service"
	appErrors "github.com/registro-sv/academico-api/pkg/errors"
	"github.com/registro-sv/academico-api/pkg/export"
	"github.com/registro-sv/academico-api/pkg/response"
)

// RegistrationHandler exposes registration event endpoints under a term.
type RegistrationHandler struct {
	registrations *service.RegistrationService
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		registrations: registrations,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
	}
}

func parseEventPath(c *gin.Context) (int64, time.Time, bool) {
	termID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term id must be numeric"))
		return 0, time.Time{}, false
	}
	at, err := time.Parse(models.EventTimeLayout, c.Param("ts"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "event timestamp must be RFC3339"))
		return 0, time.Time{}, false
	}
	return termID, at, true
}

// ListEvents godoc
// @Summary List registration events of a term
// @Tags Registrations
// @Produce json
// @Param id path int true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /terms/{id}/events [get]
func (h *RegistrationHandler) ListEvents(c *gin.Context) {
	termID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term id must be numeric"))
		return
	}
	events, err := h.registrations.ListEvents(c.Request.Context(), termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// GetEvent godoc
// @Summary Get one registration event
// @Tags Registrations
// @Produce json
// @Param id path int true "Term ID"
// @Param ts path string true "Event timestamp (RFC3339Nano)"
// @Success 200 {object} response.Envelope
// @Router /terms/{id}/events/{ts} [get]
func (h *RegistrationHandler) GetEvent(c *gin.Context) {
	termID, at, ok := parseEventPath(c)
	if !ok {
		return
	}
	event, err := h.registrations.GetEvent(c.Request.Context(), termID, at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// CreateEvent godoc
// @Summary Save a new registration event
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path int true "Term ID"
// @Param payload body service.SaveEventRequest true "Confirmed course set"
// @Success 201 {object} response.Envelope
// @Router /terms/{id}/events [post]
func (h *RegistrationHandler) CreateEvent(c *gin.Context) {
	termID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term id must be numeric"))
		return
	}
	var req service.SaveEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	event, err := h.registrations.CreateEvent(c.Request.Context(), termID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// UpdateEvent godoc
// @Summary Reconcile a registration event against a confirmed course set
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path int true "Term ID"
// @Param ts path string true "Event timestamp (RFC3339Nano)"
// @Param payload body service.SaveEventRequest true "Confirmed course set"
// @Success 200 {object} response.Envelope
// @Router /terms/{id}/events/{ts} [put]
func (h *RegistrationHandler) UpdateEvent(c *gin.Context) {
	termID, at, ok := parseEventPath(c)
	if !ok {
		return
	}
	var req service.SaveEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	event, err := h.registrations.UpdateEvent(c.Request.Context(), termID, at, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// DeleteEvent godoc
// @Summary Delete a registration event
// @Tags Registrations
// @Produce json
// @Param id path int true "Term ID"
// @Param ts path string true "Event timestamp (RFC3339Nano)"
// @Success 204
// @Router /terms/{id}/events/{ts} [delete]
func (h *RegistrationHandler) DeleteEvent(c *gin.Context) {
	termID, at, ok := parseEventPath(c)
	if !ok {
		return
	}
	if err := h.registrations.DeleteEvent(c.Request.Context(), termID, at); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportEvents godoc
// @Summary Export a term's registration events as CSV or PDF
// @Tags Registrations
// @Produce text/csv
// @Param id path int true "Term ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {string} string "file"
// @Router /terms/{id}/events/export [get]
func (h *RegistrationHandler) ExportEvents(c *gin.Context) {
	termID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term id must be numeric"))
		return
	}
	details, err := h.registrations.ListEventDetails(c.Request.Context(), termID)
	if err != nil {
		response.Error(c, err)
		return
	}

	dataset := export.Dataset{
		Headers: []string{"fecha", "codigo_alumno", "alumno", "materias"},
	}
	for _, detail := range details {
		courses := ""
		for i, code := range detail.CourseCodes {
			if i > 0 {
				courses += ", "
			}
			courses += code
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"fecha":         detail.RegisteredAt.UTC().Format(time.RFC3339),
			"codigo_alumno": detail.StudentCode,
			"alumno":        detail.StudentName,
			"materias":      courses,
		})
	}

	filename := fmt.Sprintf("inscripciones-%d", termID)
	switch c.DefaultQuery("format", "csv") {
	case "pdf":
		payload, err := h.pdf.Render(dataset, "Inscripciones")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", filename))
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		payload, err := h.csv.Render(dataset)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Data(http.StatusOK, "text/csv", payload)
	}
}
