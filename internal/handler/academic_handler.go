package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-api/internal/service"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
	"github.com/noah-isme/campus-api/pkg/response"
)

// AcademicHandler exposes academic year, term, class and section endpoints.
type AcademicHandler struct {
	academics *service.AcademicService
}

// NewAcademicHandler constructs AcademicHandler.
func NewAcademicHandler(academics *service.AcademicService) *AcademicHandler {
	return &AcademicHandler{academics: academics}
}

// CreateYear godoc
// @Summary Create academic year
// @Tags Academics
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateYearRequest true "Year payload"
// @Success 201 {object} response.Envelope
// @Router /schools/{schoolId}/academic-years [post]
func (h *AcademicHandler) CreateYear(c *gin.Context) {
	var req service.CreateYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	year, err := h.academics.CreateYear(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// ListYears godoc
// @Summary List academic years
// @Tags Academics
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/academic-years [get]
func (h *AcademicHandler) ListYears(c *gin.Context) {
	years, err := h.academics.ListYears(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// ActiveYear godoc
// @Summary Get the active academic year
// @Tags Academics
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/academic-years/active [get]
func (h *AcademicHandler) ActiveYear(c *gin.Context) {
	year, err := h.academics.ActiveYear(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// ActivateYear godoc
// @Summary Activate an academic year
// @Description Marks the year active and deactivates any other active year
// @Tags Academics
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/academic-years/{id}/activate [post]
func (h *AcademicHandler) ActivateYear(c *gin.Context) {
	year, err := h.academics.ActivateYear(c.Request.Context(), c.Param("id"), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// CreateTerm godoc
// @Summary Create term
// @Tags Academics
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateTermRequest true "Term payload"
// @Success 201 {object} response.Envelope
// @Router /schools/{schoolId}/terms [post]
func (h *AcademicHandler) CreateTerm(c *gin.Context) {
	var req service.CreateTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	term, err := h.academics.CreateTerm(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, term)
}

// ListTerms godoc
// @Summary List terms for an academic year
// @Tags Academics
// @Produce json
// @Param schoolId path string true "School ID"
// @Param yearId query string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/terms [get]
func (h *AcademicHandler) ListTerms(c *gin.Context) {
	terms, err := h.academics.ListTerms(c.Request.Context(), c.Query("yearId"), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, terms, nil)
}

// CreateClass godoc
// @Summary Create class
// @Tags Academics
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /schools/{schoolId}/classes [post]
func (h *AcademicHandler) CreateClass(c *gin.Context) {
	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.academics.CreateClass(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// ListClasses godoc
// @Summary List classes
// @Tags Academics
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/classes [get]
func (h *AcademicHandler) ListClasses(c *gin.Context) {
	classes, err := h.academics.ListClasses(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// CreateSection godoc
// @Summary Create class section
// @Tags Academics
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /schools/{schoolId}/sections [post]
func (h *AcademicHandler) CreateSection(c *gin.Context) {
	var req service.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.academics.CreateSection(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// ListSections godoc
// @Summary List sections of a class
// @Tags Academics
// @Produce json
// @Param schoolId path string true "School ID"
// @Param classId query string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/sections [get]
func (h *AcademicHandler) ListSections(c *gin.Context) {
	sections, err := h.academics.ListSections(c.Request.Context(), c.Query("classId"), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}
