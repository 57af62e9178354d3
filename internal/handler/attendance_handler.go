package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-api/internal/models"
	"github.com/noah-isme/campus-api/internal/service"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
	"github.com/noah-isme/campus-api/pkg/response"
)

// AttendanceHandler exposes attendance session endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// CreateSession godoc
// @Summary Open an attendance session
// @Description Returns the existing session when one already covers the same slot
// @Tags Attendance
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Router /schools/{schoolId}/attendance/sessions [post]
func (h *AttendanceHandler) CreateSession(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.attendance.CreateOrFetchSession(c.Request.Context(), c.Param("schoolId"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.JSON(c, status, result.Session, nil)
}

// ListSessions godoc
// @Summary List attendance sessions
// @Tags Attendance
// @Produce json
// @Param schoolId path string true "School ID"
// @Param classId query string false "Filter by class"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/attendance/sessions [get]
func (h *AttendanceHandler) ListSessions(c *gin.Context) {
	var filter models.SessionFilter
	filter.SchoolID = c.Param("schoolId")
	filter.AcademicYearID = c.Query("yearId")
	filter.TermID = c.Query("termId")
	filter.ClassID = c.Query("classId")
	filter.Status = models.SessionStatus(c.Query("status"))
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.DateFrom = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.DateTo = &t
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	sessions, total, err := h.attendance.ListSessions(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// GetSession godoc
// @Summary Get an attendance session with its entries
// @Tags Attendance
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/attendance/sessions/{id} [get]
func (h *AttendanceHandler) GetSession(c *gin.Context) {
	session, entries, err := h.attendance.GetSession(c.Request.Context(), c.Param("id"), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"session": session, "entries": entries}, nil)
}

// Roster godoc
// @Summary List the students expected in a session
// @Tags Attendance
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/attendance/sessions/{id}/roster [get]
func (h *AttendanceHandler) Roster(c *gin.Context) {
	roster, err := h.attendance.Roster(c.Request.Context(), c.Param("id"), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// RecordEntries godoc
// @Summary Record attendance entries on a draft session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Session ID"
// @Param payload body service.RecordEntriesRequest true "Entries payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/attendance/sessions/{id}/entries [put]
func (h *AttendanceHandler) RecordEntries(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RecordEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	entries, err := h.attendance.RecordEntries(c.Request.Context(), c.Param("id"), c.Param("schoolId"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Submit godoc
// @Summary Submit a draft session
// @Tags Attendance
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/attendance/sessions/{id}/submit [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, err := h.attendance.SubmitSession(c.Request.Context(), c.Param("id"), c.Param("schoolId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Lock godoc
// @Summary Lock a submitted session
// @Tags Attendance
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/attendance/sessions/{id}/lock [post]
func (h *AttendanceHandler) Lock(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, err := h.attendance.LockSession(c.Request.Context(), c.Param("id"), c.Param("schoolId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// AuditTrail godoc
// @Summary List the audit trail of a session
// @Tags Attendance
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/attendance/sessions/{id}/audit [get]
func (h *AttendanceHandler) AuditTrail(c *gin.Context) {
	logs, err := h.attendance.AuditTrail(c.Request.Context(), c.Param("id"), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// StudentHistory godoc
// @Summary Locked attendance history for one student
// @Tags Attendance
// @Produce json
// @Param schoolId path string true "School ID"
// @Param studentId path string true "Student ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/attendance/students/{studentId} [get]
func (h *AttendanceHandler) StudentHistory(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			from = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			to = &t
		}
	}

	rows, err := h.attendance.StudentHistory(c.Request.Context(), claims, c.Param("studentId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
