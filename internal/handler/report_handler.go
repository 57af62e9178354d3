package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-api/internal/service"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
	"github.com/noah-isme/campus-api/pkg/response"
)

// ReportHandler exposes report compilation and export endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// StudentAttendance godoc
// @Summary Attendance summary for one student over a term
// @Tags Reports
// @Produce json
// @Param schoolId path string true "School ID"
// @Param studentId path string true "Student ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/reports/attendance/students/{studentId} [get]
func (h *ReportHandler) StudentAttendance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	report, err := h.reports.StudentAttendance(c.Request.Context(), claims, c.Param("studentId"), c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ExportStudentAttendance godoc
// @Summary Export one student's attendance report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param schoolId path string true "School ID"
// @Param studentId path string true "Student ID"
// @Param termId query string true "Term ID"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} file
// @Router /schools/{schoolId}/reports/attendance/students/{studentId}/export [get]
func (h *ReportHandler) ExportStudentAttendance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format := service.ExportFormat(strings.ToLower(c.Query("format")))
	data, contentType, err := h.reports.ExportStudentAttendance(c.Request.Context(), claims, c.Param("studentId"), c.Query("termId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeExport(c, "student-attendance", contentType, data)
}

// ClassAttendance godoc
// @Summary Attendance summary for a class over a term
// @Tags Reports
// @Produce json
// @Param schoolId path string true "School ID"
// @Param classId path string true "Class ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/reports/attendance/classes/{classId} [get]
func (h *ReportHandler) ClassAttendance(c *gin.Context) {
	report, err := h.reports.ClassAttendance(c.Request.Context(), c.Param("schoolId"), c.Param("classId"), c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ClassGrades godoc
// @Summary Grade summary for a class over a term
// @Tags Reports
// @Produce json
// @Param schoolId path string true "School ID"
// @Param classId path string true "Class ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/reports/grades/classes/{classId} [get]
func (h *ReportHandler) ClassGrades(c *gin.Context) {
	report, err := h.reports.ClassGrades(c.Request.Context(), c.Param("schoolId"), c.Param("classId"), c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ExportClassAttendance godoc
// @Summary Export the class attendance report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param schoolId path string true "School ID"
// @Param classId path string true "Class ID"
// @Param termId query string true "Term ID"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} file
// @Router /schools/{schoolId}/reports/attendance/classes/{classId}/export [get]
func (h *ReportHandler) ExportClassAttendance(c *gin.Context) {
	format := service.ExportFormat(strings.ToLower(c.Query("format")))
	data, contentType, err := h.reports.ExportClassAttendance(c.Request.Context(), c.Param("schoolId"), c.Param("classId"), c.Query("termId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeExport(c, "class-attendance", contentType, data)
}

// ExportClassGrades godoc
// @Summary Export the class grade report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param schoolId path string true "School ID"
// @Param classId path string true "Class ID"
// @Param termId query string true "Term ID"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} file
// @Router /schools/{schoolId}/reports/grades/classes/{classId}/export [get]
func (h *ReportHandler) ExportClassGrades(c *gin.Context) {
	format := service.ExportFormat(strings.ToLower(c.Query("format")))
	data, contentType, err := h.reports.ExportClassGrades(c.Request.Context(), c.Param("schoolId"), c.Param("classId"), c.Query("termId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeExport(c, "class-grades", contentType, data)
}

func writeExport(c *gin.Context, baseName, contentType string, data []byte) {
	ext := "csv"
	if contentType == "application/pdf" {
		ext = "pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, baseName, ext))
	c.Data(http.StatusOK, contentType, data)
}
