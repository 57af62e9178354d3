package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-api/internal/models"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

type academicRepoStub struct {
	years     map[string]*models.AcademicYear
	activeID  string
	terms     []models.Term
	activated []string
}

func (s *academicRepoStub) CreateYear(ctx context.Context, year *models.AcademicYear) error {
	year.ID = "year-new"
	s.years[year.ID] = year
	return nil
}

func (s *academicRepoStub) FindYearByID(ctx context.Context, id, schoolID string) (*models.AcademicYear, error) {
	year, ok := s.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *year
	copied.IsActive = s.activeID == id
	return &copied, nil
}

func (s *academicRepoStub) ListYears(ctx context.Context, schoolID string) ([]models.AcademicYear, error) {
	var out []models.AcademicYear
	for _, y := range s.years {
		out = append(out, *y)
	}
	return out, nil
}

func (s *academicRepoStub) FindActiveYear(ctx context.Context, schoolID string) (*models.AcademicYear, error) {
	if s.activeID == "" {
		return nil, sql.ErrNoRows
	}
	return s.FindYearByID(ctx, s.activeID, schoolID)
}

func (s *academicRepoStub) ActivateYear(ctx context.Context, id, schoolID string) error {
	s.activeID = id
	s.activated = append(s.activated, id)
	return nil
}

func (s *academicRepoStub) CreateTerm(ctx context.Context, term *models.Term) error {
	term.ID = "term-new"
	s.terms = append(s.terms, *term)
	return nil
}

func (s *academicRepoStub) FindTermByID(ctx context.Context, id, schoolID string) (*models.Term, error) {
	for i := range s.terms {
		if s.terms[i].ID == id {
			return &s.terms[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *academicRepoStub) ListTermsByYear(ctx context.Context, academicYearID string) ([]models.Term, error) {
	var out []models.Term
	for _, t := range s.terms {
		if t.AcademicYearID == academicYearID {
			out = append(out, t)
		}
	}
	return out, nil
}

type classRepoStub struct {
	classes  map[string]*models.SchoolClass
	sections map[string]*models.ClassSection
}

func newClassRepoStub() *classRepoStub {
	return &classRepoStub{
		classes:  map[string]*models.SchoolClass{},
		sections: map[string]*models.ClassSection{},
	}
}

func (s *classRepoStub) Create(ctx context.Context, class *models.SchoolClass) error {
	class.ID = "class-new"
	s.classes[class.ID] = class
	return nil
}

func (s *classRepoStub) FindByID(ctx context.Context, id, schoolID string) (*models.SchoolClass, error) {
	class, ok := s.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

func (s *classRepoStub) List(ctx context.Context, schoolID string) ([]models.SchoolClass, error) {
	var out []models.SchoolClass
	for _, c := range s.classes {
		out = append(out, *c)
	}
	return out, nil
}

func (s *classRepoStub) FindByGradeLevel(ctx context.Context, schoolID string, gradeLevel int) (*models.SchoolClass, error) {
	for _, c := range s.classes {
		if c.GradeLevel == gradeLevel {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *classRepoStub) CreateSection(ctx context.Context, section *models.ClassSection) error {
	section.ID = "section-new"
	s.sections[section.ID] = section
	return nil
}

func (s *classRepoStub) FindSectionByID(ctx context.Context, id, schoolID string) (*models.ClassSection, error) {
	section, ok := s.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return section, nil
}

func (s *classRepoStub) ListSections(ctx context.Context, classID string) ([]models.ClassSection, error) {
	var out []models.ClassSection
	for _, sec := range s.sections {
		if sec.ClassID == classID {
			out = append(out, *sec)
		}
	}
	return out, nil
}

func (s *classRepoStub) FindSectionByName(ctx context.Context, classID, name string) (*models.ClassSection, error) {
	for _, sec := range s.sections {
		if sec.ClassID == classID && sec.Name == name {
			return sec, nil
		}
	}
	return nil, sql.ErrNoRows
}

func TestCreateYearValidatesDates(t *testing.T) {
	repo := &academicRepoStub{years: map[string]*models.AcademicYear{}}
	svc := NewAcademicService(repo, newClassRepoStub(), nil, nil)
	ctx := context.Background()

	_, err := svc.CreateYear(ctx, "sch-1", CreateYearRequest{
		Name:     "2026/2027",
		StartsOn: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	year, err := svc.CreateYear(ctx, "sch-1", CreateYearRequest{
		Name:     "2026/2027",
		StartsOn: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:   time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.False(t, year.IsActive)
}

func TestActivateYearSwitchesActive(t *testing.T) {
	repo := &academicRepoStub{years: map[string]*models.AcademicYear{
		"year-1": {ID: "year-1", SchoolID: "sch-1", Name: "2025/2026"},
		"year-2": {ID: "year-2", SchoolID: "sch-1", Name: "2026/2027"},
	}, activeID: "year-1"}
	svc := NewAcademicService(repo, newClassRepoStub(), nil, nil)
	ctx := context.Background()

	year, err := svc.ActivateYear(ctx, "year-2", "sch-1")
	require.NoError(t, err)
	assert.True(t, year.IsActive)

	active, err := svc.ActiveYear(ctx, "sch-1")
	require.NoError(t, err)
	assert.Equal(t, "year-2", active.ID)

	_, err = svc.ActivateYear(ctx, "year-404", "sch-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateTermRequiresYearInSchool(t *testing.T) {
	repo := &academicRepoStub{years: map[string]*models.AcademicYear{}}
	svc := NewAcademicService(repo, newClassRepoStub(), nil, nil)

	_, err := svc.CreateTerm(context.Background(), "sch-1", CreateTermRequest{
		AcademicYearID: testFromYearID,
		Name:           "Term 1",
		StartsOn:       time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:         time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateClassRejectsDuplicateGradeLevel(t *testing.T) {
	classes := newClassRepoStub()
	svc := NewAcademicService(&academicRepoStub{years: map[string]*models.AcademicYear{}}, classes, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateClass(ctx, "sch-1", CreateClassRequest{Name: "Grade 3", GradeLevel: 3})
	require.NoError(t, err)

	_, err = svc.CreateClass(ctx, "sch-1", CreateClassRequest{Name: "Grade 3 again", GradeLevel: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCreateSectionRejectsDuplicateName(t *testing.T) {
	classes := newClassRepoStub()
	classes.classes[testClassID] = &models.SchoolClass{ID: testClassID, SchoolID: "sch-1", Name: "Grade 3", GradeLevel: 3}
	svc := NewAcademicService(&academicRepoStub{years: map[string]*models.AcademicYear{}}, classes, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateSection(ctx, "sch-1", CreateSectionRequest{ClassID: testClassID, Name: "A"})
	require.NoError(t, err)

	_, err = svc.CreateSection(ctx, "sch-1", CreateSectionRequest{ClassID: testClassID, Name: "A"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
