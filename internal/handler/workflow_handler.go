package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/registro-sv/academico-api/internal/models"
	"github.com/registro-sv/academico-api/internal/service"
	appErrors "github.com/registro-sv/academico-api/pkg/errors"
	"github.com/registro-sv/academico-api/pkg/response"
)

// WorkflowHandler exposes the slot selection workflow endpoints.
type WorkflowHandler struct {
	workflows *service.WorkflowService
}

// NewWorkflowHandler constructs WorkflowHandler.
func NewWorkflowHandler(workflows *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows}
}

// StartWorkflowRequest opens a selection session. EventAt switches the
// session into edit mode for the event saved at that timestamp.
type StartWorkflowRequest struct {
	TermID  int64   `json:"idMatricula" binding:"required"`
	EventAt *string `json:"fechaInscripcion"`
}

// SlotCountRequest resizes the slot list.
type SlotCountRequest struct {
	Count int  `json:"count" binding:"required"`
	Force bool `json:"force"`
}

// SlotCourseRequest stages a course in a slot.
type SlotCourseRequest struct {
	Slot     int    `json:"slot"`
	CourseID string `json:"idMateria" binding:"required"`
}

// SlotRequest addresses a single slot.
type SlotRequest struct {
	Slot int `json:"slot"`
}

// Start godoc
// @Summary Open a registration selection session
// @Tags Workflows
// @Accept json
// @Produce json
// @Param payload body StartWorkflowRequest true "Session target"
// @Success 201 {object} response.Envelope
// @Router /registration-workflows [post]
func (h *WorkflowHandler) Start(c *gin.Context) {
	var req StartWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	var eventAt *time.Time
	if req.EventAt != nil {
		at, err := time.Parse(models.EventTimeLayout, *req.EventAt)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "event timestamp must be RFC3339"))
			return
		}
		eventAt = &at
	}
	session, err := h.workflows.Start(c.Request.Context(), req.TermID, eventAt)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Get godoc
// @Summary Get a selection session
// @Tags Workflows
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /registration-workflows/{id} [get]
func (h *WorkflowHandler) Get(c *gin.Context) {
	session, err := h.workflows.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// SetSlotCount godoc
// @Summary Resize the session's slot list
// @Tags Workflows
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body SlotCountRequest true "Slot count"
// @Success 200 {object} response.Envelope
// @Router /registration-workflows/{id}/slots [put]
func (h *WorkflowHandler) SetSlotCount(c *gin.Context) {
	var req SlotCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.workflows.SetSlotCount(c.Request.Context(), c.Param("id"), req.Count, req.Force)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Preview godoc
// @Summary Stage a course in a slot
// @Tags Workflows
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body SlotCourseRequest true "Slot and course"
// @Success 200 {object} response.Envelope
// @Router /registration-workflows/{id}/preview [post]
func (h *WorkflowHandler) Preview(c *gin.Context) {
	var req SlotCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	preview, err := h.workflows.Preview(c.Request.Context(), c.Param("id"), req.Slot, req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Confirm godoc
// @Summary Confirm the previewed course of a slot
// @Tags Workflows
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body SlotRequest true "Slot"
// @Success 200 {object} response.Envelope
// @Router /registration-workflows/{id}/confirm [post]
func (h *WorkflowHandler) Confirm(c *gin.Context) {
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.workflows.Confirm(c.Request.Context(), c.Param("id"), req.Slot)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Remove godoc
// @Summary Clear a slot
// @Tags Workflows
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body SlotRequest true "Slot"
// @Success 200 {object} response.Envelope
// @Router /registration-workflows/{id}/remove [post]
func (h *WorkflowHandler) Remove(c *gin.Context) {
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.workflows.Remove(c.Request.Context(), c.Param("id"), req.Slot)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Save godoc
// @Summary Persist the confirmed selection and close the session
// @Tags Workflows
// @Produce json
// @Param id path string true "Session ID"
// @Success 201 {object} response.Envelope
// @Router /registration-workflows/{id}/save [post]
func (h *WorkflowHandler) Save(c *gin.Context) {
	event, err := h.workflows.Save(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Cancel godoc
// @Summary Discard a selection session
// @Tags Workflows
// @Produce json
// @Param id path string true "Session ID"
// @Success 204
// @Router /registration-workflows/{id} [delete]
func (h *WorkflowHandler) Cancel(c *gin.Context) {
	if err := h.workflows.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
