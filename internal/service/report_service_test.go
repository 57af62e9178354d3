package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-api/internal/models"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

type reportRepoStub struct {
	summary       *models.AttendanceSummary
	classRows     []models.ClassAttendanceRow
	gradeRows     []models.GradeReportRow
	classRowCalls int
}

func (s *reportRepoStub) StudentAttendanceSummary(ctx context.Context, studentID, termID string) (*models.AttendanceSummary, error) {
	copied := *s.summary
	return &copied, nil
}

func (s *reportRepoStub) ClassAttendanceRows(ctx context.Context, classID, termID string) ([]models.ClassAttendanceRow, error) {
	s.classRowCalls++
	return s.classRows, nil
}

func (s *reportRepoStub) ClassGradeRows(ctx context.Context, classID, termID string) ([]models.GradeReportRow, error) {
	return s.gradeRows, nil
}

type reportClassStub struct {
	class *models.SchoolClass
}

func (s reportClassStub) FindByID(ctx context.Context, id, schoolID string) (*models.SchoolClass, error) {
	if s.class == nil || s.class.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.class, nil
}

type reportTermStub struct {
	term *models.Term
}

func (s reportTermStub) FindTermByID(ctx context.Context, id, schoolID string) (*models.Term, error) {
	if s.term == nil || s.term.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.term, nil
}

type reportAttendanceStub struct {
	history []models.StudentAttendanceRow
}

func (s reportAttendanceStub) ListLockedEntriesForStudent(ctx context.Context, studentID string, from, to *time.Time) ([]models.StudentAttendanceRow, error) {
	return s.history, nil
}

type reportUserStub struct {
	users  map[string]*models.User
	linked map[string]string
}

func (s reportUserStub) FindByIDInSchool(ctx context.Context, id, schoolID string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s reportUserStub) IsParentOf(ctx context.Context, parentUserID, childUserID string) (bool, error) {
	return s.linked[parentUserID] == childUserID, nil
}

type reportCacheStub struct {
	entries map[string][]byte
	sets    int
}

func newReportCacheStub() *reportCacheStub {
	return &reportCacheStub{entries: map[string][]byte{}}
}

func (s *reportCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	payload, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *reportCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = payload
	s.sets++
	return nil
}

func newReportFixture(repo *reportRepoStub, cacheStub *reportCacheStub) *ReportService {
	// A nil stub must become a nil interface so the cache stays disabled.
	var cache reportCache
	if cacheStub != nil {
		cache = cacheStub
	}
	return NewReportService(
		repo,
		reportClassStub{class: &models.SchoolClass{ID: "class-1", SchoolID: "sch-1", Name: "Grade 7"}},
		reportTermStub{term: &models.Term{ID: "term-1", SchoolID: "sch-1", Name: "Term 1",
			StartsOn: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			EndsOn:   time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)}},
		reportAttendanceStub{history: []models.StudentAttendanceRow{{SessionID: "sess-1", Status: models.AttendancePresent}}},
		reportUserStub{
			users:  map[string]*models.User{"stu-1": {ID: "stu-1", FullName: "Ada"}},
			linked: map[string]string{"parent-1": "stu-1"},
		},
		cache,
		nil, nil, time.Minute,
	)
}

func TestStudentAttendanceOwnership(t *testing.T) {
	repo := &reportRepoStub{summary: &models.AttendanceSummary{Present: 18, Late: 1, Absent: 1, Total: 20}}
	svc := newReportFixture(repo, nil)
	ctx := context.Background()

	_, err := svc.StudentAttendance(ctx, &models.JWTClaims{UserID: "stu-2", Role: models.RoleStudent, SchoolID: "sch-1"}, "stu-1", "term-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.StudentAttendance(ctx, &models.JWTClaims{UserID: "parent-2", Role: models.RoleParent, SchoolID: "sch-1"}, "stu-1", "term-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	report, err := svc.StudentAttendance(ctx, &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent, SchoolID: "sch-1"}, "stu-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", report.StudentName)
	assert.InDelta(t, 95.0, report.Summary.Percent, 0.001)
	require.Len(t, report.History, 1)
}

func TestStudentAttendanceZeroSessions(t *testing.T) {
	repo := &reportRepoStub{summary: &models.AttendanceSummary{}}
	svc := newReportFixture(repo, nil)

	report, err := svc.StudentAttendance(context.Background(),
		&models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent, SchoolID: "sch-1"}, "stu-1", "term-1")
	require.NoError(t, err)
	assert.Zero(t, report.Summary.Percent)
}

func TestClassAttendanceUsesCache(t *testing.T) {
	repo := &reportRepoStub{classRows: []models.ClassAttendanceRow{
		{StudentID: "stu-1", StudentName: "Ada", AttendanceSummary: models.AttendanceSummary{Present: 9, Absent: 1, Total: 10}},
	}}
	cache := newReportCacheStub()
	svc := newReportFixture(repo, cache)
	ctx := context.Background()

	first, err := svc.ClassAttendance(ctx, "sch-1", "class-1", "term-1")
	require.NoError(t, err)
	require.Len(t, first.Rows, 1)
	assert.InDelta(t, 90.0, first.Rows[0].Percent, 0.001)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.ClassAttendance(ctx, "sch-1", "class-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, 1, repo.classRowCalls)
}

func TestClassAttendanceUnknownClass(t *testing.T) {
	svc := newReportFixture(&reportRepoStub{}, nil)

	_, err := svc.ClassAttendance(context.Background(), "sch-1", "class-404", "term-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportClassAttendanceFormats(t *testing.T) {
	repo := &reportRepoStub{classRows: []models.ClassAttendanceRow{
		{StudentID: "stu-1", StudentName: "Ada", AttendanceSummary: models.AttendanceSummary{Present: 9, Absent: 1, Total: 10}},
	}}
	svc := newReportFixture(repo, nil)
	ctx := context.Background()

	payload, contentType, err := svc.ExportClassAttendance(ctx, "sch-1", "class-1", "term-1", ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(payload), "Ada")
	assert.Contains(t, string(payload), "90.0")

	payload, contentType, err = svc.ExportClassAttendance(ctx, "sch-1", "class-1", "term-1", ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))

	_, _, err = svc.ExportClassAttendance(ctx, "sch-1", "class-1", "term-1", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportStudentAttendanceFormats(t *testing.T) {
	repo := &reportRepoStub{summary: &models.AttendanceSummary{Present: 1, Total: 1}}
	svc := newReportFixture(repo, nil)
	ctx := context.Background()
	owner := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent, SchoolID: "sch-1"}

	payload, contentType, err := svc.ExportStudentAttendance(ctx, owner, "stu-1", "term-1", ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(payload), "PRESENT")

	payload, contentType, err = svc.ExportStudentAttendance(ctx, owner, "stu-1", "term-1", ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))

	// Ownership rules carry over to the export path.
	_, _, err = svc.ExportStudentAttendance(ctx, &models.JWTClaims{UserID: "stu-2", Role: models.RoleStudent, SchoolID: "sch-1"}, "stu-1", "term-1", ExportCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportClassGradesFormatsAverages(t *testing.T) {
	avg := 82.456
	repo := &reportRepoStub{gradeRows: []models.GradeReportRow{
		{StudentID: "stu-1", StudentName: "Ada", AssignmentAverage: &avg, SubmissionCount: 4},
		{StudentID: "stu-2", StudentName: "Ben"},
	}}
	svc := newReportFixture(repo, nil)

	payload, contentType, err := svc.ExportClassGrades(context.Background(), "sch-1", "class-1", "term-1", ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(payload), "82.5")
	// Students with no marks render a dash, not a zero.
	assert.Contains(t, string(payload), "-")
}
