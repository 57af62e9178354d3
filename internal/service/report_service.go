package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-api/internal/models"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
	"github.com/noah-isme/campus-api/pkg/export"
)

type reportRepository interface {
	StudentAttendanceSummary(ctx context.Context, studentID, termID string) (*models.AttendanceSummary, error)
	ClassAttendanceRows(ctx context.Context, classID, termID string) ([]models.ClassAttendanceRow, error)
	ClassGradeRows(ctx context.Context, classID, termID string) ([]models.GradeReportRow, error)
}

type reportClassRepository interface {
	FindByID(ctx context.Context, id, schoolID string) (*models.SchoolClass, error)
}

type reportTermRepository interface {
	FindTermByID(ctx context.Context, id, schoolID string) (*models.Term, error)
}

type reportAttendanceRepository interface {
	ListLockedEntriesForStudent(ctx context.Context, studentID string, from, to *time.Time) ([]models.StudentAttendanceRow, error)
}

type reportUserRepository interface {
	FindByIDInSchool(ctx context.Context, id, schoolID string) (*models.User, error)
	IsParentOf(ctx context.Context, parentUserID, childUserID string) (bool, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ExportFormat selects the report download encoding.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ReportService compiles attendance and grade reports from locked and
// published data only. Class rollups are cached; exports always render
// from the compiled report.
type ReportService struct {
	repo       reportRepository
	classes    reportClassRepository
	terms      reportTermRepository
	attendance reportAttendanceRepository
	users      reportUserRepository
	cache      reportCache
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	validator  *validator.Validate
	logger     *zap.Logger
	cacheTTL   time.Duration
}

// NewReportService constructs a ReportService instance.
func NewReportService(
	repo reportRepository,
	classes reportClassRepository,
	terms reportTermRepository,
	attendance reportAttendanceRepository,
	users reportUserRepository,
	cache reportCache,
	validate *validator.Validate,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &ReportService{
		repo:       repo,
		classes:    classes,
		terms:      terms,
		attendance: attendance,
		users:      users,
		cache:      cache,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		validator:  validate,
		logger:     logger,
		cacheTTL:   cacheTTL,
	}
}

// StudentAttendance compiles one student's attendance for a term.
// Students see themselves; parents see linked children; staff see any
// student of their school.
func (s *ReportService) StudentAttendance(ctx context.Context, claims *models.JWTClaims, studentID, termID string) (*models.StudentAttendanceReport, error) {
	switch claims.Role {
	case models.RoleStudent:
		if claims.UserID != studentID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own report")
		}
	case models.RoleParent:
		linked, err := s.users.IsParentOf(ctx, claims.UserID, studentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check parent link")
		}
		if !linked {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not linked to this parent")
		}
	}

	student, err := s.users.FindByIDInSchool(ctx, studentID, claims.SchoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	term, err := s.terms.FindTermByID(ctx, termID, claims.SchoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	summary, err := s.repo.StudentAttendanceSummary(ctx, studentID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compile summary")
	}
	applyPercent(summary)

	history, err := s.attendance.ListLockedEntriesForStudent(ctx, studentID, &term.StartsOn, &term.EndsOn)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}

	return &models.StudentAttendanceReport{
		StudentID:   student.ID,
		StudentName: student.FullName,
		Summary:     *summary,
		History:     history,
	}, nil
}

// ExportStudentAttendance renders one student's attendance report for
// download. The same visibility rules as StudentAttendance apply.
func (s *ReportService) ExportStudentAttendance(ctx context.Context, claims *models.JWTClaims, studentID, termID string, format ExportFormat) ([]byte, string, error) {
	report, err := s.StudentAttendance(ctx, claims, studentID, termID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Subject", "Status", "Note"},
	}
	for _, row := range report.History {
		cells := map[string]string{
			"Date":   row.Date.Format("2006-01-02"),
			"Status": string(row.Status),
		}
		if row.Subject != nil {
			cells["Subject"] = *row.Subject
		}
		if row.Note != nil {
			cells["Note"] = *row.Note
		}
		dataset.Rows = append(dataset.Rows, cells)
	}
	return s.render(dataset, fmt.Sprintf("%s attendance", report.StudentName), format)
}

// ClassAttendance compiles the attendance rollup of a class for a term.
func (s *ReportService) ClassAttendance(ctx context.Context, schoolID, classID, termID string) (*models.ClassAttendanceReport, error) {
	class, err := s.resolveClassTerm(ctx, schoolID, classID, termID)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("reports:attendance:%s:%s:%s", schoolID, classID, termID)
	if s.cache != nil {
		var cached models.ClassAttendanceReport
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("report cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	rows, err := s.repo.ClassAttendanceRows(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compile class attendance")
	}
	for i := range rows {
		applyPercent(&rows[i].AttendanceSummary)
	}

	report := &models.ClassAttendanceReport{
		ClassID:     class.ID,
		ClassName:   class.Name,
		GeneratedAt: time.Now().UTC(),
		Rows:        rows,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("report cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return report, nil
}

// ClassGrades compiles the grade rollup of a class for a term.
func (s *ReportService) ClassGrades(ctx context.Context, schoolID, classID, termID string) (*models.ClassGradeReport, error) {
	class, err := s.resolveClassTerm(ctx, schoolID, classID, termID)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("reports:grades:%s:%s:%s", schoolID, classID, termID)
	if s.cache != nil {
		var cached models.ClassGradeReport
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("report cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	rows, err := s.repo.ClassGradeRows(ctx, classID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compile class grades")
	}

	report := &models.ClassGradeReport{
		ClassID:     class.ID,
		ClassName:   class.Name,
		GeneratedAt: time.Now().UTC(),
		Rows:        rows,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("report cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return report, nil
}

// ExportClassAttendance renders the class attendance report for
// download.
func (s *ReportService) ExportClassAttendance(ctx context.Context, schoolID, classID, termID string, format ExportFormat) ([]byte, string, error) {
	report, err := s.ClassAttendance(ctx, schoolID, classID, termID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Present", "Absent", "Late", "Excused", "Total", "Percent"},
	}
	for _, row := range report.Rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student": row.StudentName,
			"Present": strconv.Itoa(row.Present),
			"Absent":  strconv.Itoa(row.Absent),
			"Late":    strconv.Itoa(row.Late),
			"Excused": strconv.Itoa(row.Excused),
			"Total":   strconv.Itoa(row.Total),
			"Percent": fmt.Sprintf("%.1f", row.Percent),
		})
	}
	return s.render(dataset, fmt.Sprintf("%s attendance", report.ClassName), format)
}

// ExportClassGrades renders the class grade report for download.
func (s *ReportService) ExportClassGrades(ctx context.Context, schoolID, classID, termID string, format ExportFormat) ([]byte, string, error) {
	report, err := s.ClassGrades(ctx, schoolID, classID, termID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Assignment Avg", "Exam Avg", "Submissions", "Marks"},
	}
	for _, row := range report.Rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":        row.StudentName,
			"Assignment Avg": formatAverage(row.AssignmentAverage),
			"Exam Avg":       formatAverage(row.ExamAverage),
			"Submissions":    strconv.Itoa(row.SubmissionCount),
			"Marks":          strconv.Itoa(row.MarkCount),
		})
	}
	return s.render(dataset, fmt.Sprintf("%s grades", report.ClassName), format)
}

func (s *ReportService) render(dataset export.Dataset, title string, format ExportFormat) ([]byte, string, error) {
	switch format {
	case ExportCSV, "":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case ExportPDF:
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *ReportService) resolveClassTerm(ctx context.Context, schoolID, classID, termID string) (*models.SchoolClass, error) {
	class, err := s.classes.FindByID(ctx, classID, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if _, err := s.terms.FindTermByID(ctx, termID, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return class, nil
}

func applyPercent(summary *models.AttendanceSummary) {
	if summary.Total == 0 {
		summary.Percent = 0
		return
	}
	attended := summary.Present + summary.Late
	summary.Percent = float64(attended) * 100 / float64(summary.Total)
}

func formatAverage(avg *float64) string {
	if avg == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *avg)
}
