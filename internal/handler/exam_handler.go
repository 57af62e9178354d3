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

// ExamHandler exposes exam lifecycle endpoints.
type ExamHandler struct {
	exams *service.ExamService
}

// NewExamHandler constructs ExamHandler.
func NewExamHandler(exams *service.ExamService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

// Create godoc
// @Summary Schedule an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Router /schools/{schoolId}/exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	exam, err := h.exams.Create(c.Request.Context(), c.Param("schoolId"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// List godoc
// @Summary List exams
// @Tags Exams
// @Produce json
// @Param schoolId path string true "School ID"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	var filter models.ExamFilter
	filter.SchoolID = c.Param("schoolId")
	filter.AcademicYearID = c.Query("yearId")
	filter.TermID = c.Query("termId")
	filter.Status = models.ExamStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	exams, total, err := h.exams.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, exams, pagination)
}

// Get godoc
// @Summary Get exam detail
// @Tags Exams
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	exam, err := h.exams.Get(c.Request.Context(), c.Param("id"), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// EnterMarks godoc
// @Summary Enter or correct marks for a scheduled exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Exam ID"
// @Param payload body service.EnterMarksRequest true "Marks payload"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/exams/{id}/marks [put]
func (h *ExamHandler) EnterMarks(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.EnterMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.exams.EnterMarks(c.Request.Context(), c.Param("id"), c.Param("schoolId"), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Publish godoc
// @Summary Publish exam results
// @Description Publication is one-way and freezes the mark sheet
// @Tags Exams
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/exams/{id}/publish [post]
func (h *ExamHandler) Publish(c *gin.Context) {
	exam, err := h.exams.Publish(c.Request.Context(), c.Param("id"), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Marks godoc
// @Summary Full mark sheet for staff
// @Tags Exams
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/exams/{id}/marks [get]
func (h *ExamHandler) Marks(c *gin.Context) {
	marks, err := h.exams.Marks(c.Request.Context(), c.Param("id"), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}

// StudentResults godoc
// @Summary Published results for one student
// @Tags Exams
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Exam ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/exams/{id}/results/{studentId} [get]
func (h *ExamHandler) StudentResults(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	marks, err := h.exams.StudentResults(c.Request.Context(), claims, c.Param("id"), c.Param("schoolId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}
