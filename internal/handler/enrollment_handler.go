package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-api/internal/models"
	"github.com/noah-isme/campus-api/internal/service"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
	"github.com/noah-isme/campus-api/pkg/response"
)

// EnrollmentHandler exposes enrollment and batch promotion endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	promotions  *service.PromotionService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, promotions *service.PromotionService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, promotions: promotions}
}

// Enroll godoc
// @Summary Enroll an admitted student directly
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param schoolId path string true "School ID"
// @Param studentId query string false "Filter by student"
// @Param classId query string false "Filter by class"
// @Param yearId query string false "Filter by academic year"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.SchoolID = c.Param("schoolId")
	filter.StudentID = c.Query("studentId")
	filter.ClassID = c.Query("classId")
	filter.AcademicYearID = c.Query("yearId")
	filter.Status = models.EnrollmentStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	enrollments, total, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get enrollment detail
// @Tags Enrollments
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Promote godoc
// @Summary Promote a year's active students to the next grade
// @Description Per-student failures are reported in the summary, not aborted on
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.PromoteRequest true "Promotion payload"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments/promote [post]
func (h *EnrollmentHandler) Promote(c *gin.Context) {
	var req service.PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	summary, err := h.promotions.Promote(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// AutoEnroll godoc
// @Summary Enroll attached students missing an active-year enrollment
// @Tags Enrollments
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments/auto-enroll [post]
func (h *EnrollmentHandler) AutoEnroll(c *gin.Context) {
	summary, err := h.promotions.AutoEnroll(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
