package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/registro-sv/academico-api/internal/refdata"
	appErrors "github.com/registro-sv/academico-api/pkg/errors"
	"github.com/registro-sv/academico-api/pkg/response"
)

// RefdataHandler serves the static department and municipality catalog.
type RefdataHandler struct {
	regions *refdata.Provider
}

// NewRefdataHandler constructs RefdataHandler.
func NewRefdataHandler(regions *refdata.Provider) *RefdataHandler {
	return &RefdataHandler{regions: regions}
}

// Departments godoc
// @Summary List departments
// @Tags Refdata
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /refdata/departments [get]
func (h *RefdataHandler) Departments(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.regions.ListDepartments(), nil)
}

// Municipalities godoc
// @Summary List municipalities of a department
// @Tags Refdata
// @Produce json
// @Param department path string true "Department name"
// @Success 200 {object} response.Envelope
// @Router /refdata/departments/{department}/municipalities [get]
func (h *RefdataHandler) Municipalities(c *gin.Context) {
	municipalities := h.regions.ListMunicipalities(c.Param("department"))
	if len(municipalities) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "department not found"))
		return
	}
	response.JSON(c, http.StatusOK, municipalities, nil)
}
