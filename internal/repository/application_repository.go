package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-api/internal/models"
)

// ApplicationRepository persists enrollment applications and the
// pending student profiles parents register before approval.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// applicationRow flattens the variant detail fields into the columns
// they live in. Exactly the columns matching the row's type are set.
type applicationRow struct {
	ID                string                   `db:"id"`
	SchoolID          string                   `db:"school_id"`
	Type              models.ApplicationType   `db:"type"`
	Status            models.ApplicationStatus `db:"status"`
	ApplicantUserID   string                   `db:"applicant_user_id"`
	ClassID           *string                  `db:"class_id"`
	SectionID         *string                  `db:"section_id"`
	PendingProfileID  *string                  `db:"pending_profile_id"`
	ChildUserID       *string                  `db:"child_user_id"`
	SubRoleKey        *string                  `db:"sub_role_key"`
	CustomSubRoleName *string                  `db:"custom_sub_role_name"`
	ReviewNotes       *string                  `db:"review_notes"`
	ReviewedBy        *string                  `db:"reviewed_by"`
	ReviewedAt        *time.Time               `db:"reviewed_at"`
	CreatedAt         time.Time                `db:"created_at"`
	UpdatedAt         time.Time                `db:"updated_at"`
}

const applicationColumns = `id, school_id, type, status, applicant_user_id, class_id, section_id, pending_profile_id, child_user_id, sub_role_key, custom_sub_role_name, review_notes, reviewed_by, reviewed_at, created_at, updated_at`

func (row *applicationRow) toModel() *models.EnrollmentApplication {
	app := &models.EnrollmentApplication{
		ID:              row.ID,
		SchoolID:        row.SchoolID,
		Type:            row.Type,
		Status:          row.Status,
		ApplicantUserID: row.ApplicantUserID,
		ReviewNotes:     row.ReviewNotes,
		ReviewedBy:      row.ReviewedBy,
		ReviewedAt:      row.ReviewedAt,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	switch row.Type {
	case models.ApplicationTypeStudentSelf:
		details := &models.StudentSelfDetails{SectionID: row.SectionID}
		if row.ClassID != nil {
			details.ClassID = *row.ClassID
		}
		app.StudentSelf = details
	case models.ApplicationTypeParentStudent:
		details := &models.ParentStudentDetails{
			PendingProfileID: row.PendingProfileID,
			ChildUserID:      row.ChildUserID,
			SectionID:        row.SectionID,
		}
		if row.ClassID != nil {
			details.ClassID = *row.ClassID
		}
		app.ParentStudent = details
	case models.ApplicationTypeEmployee:
		app.Employee = &models.EmployeeDetails{
			SubRoleKey:        row.SubRoleKey,
			CustomSubRoleName: row.CustomSubRoleName,
		}
	}
	return app
}

func fromModel(app *models.EnrollmentApplication) *applicationRow {
	row := &applicationRow{
		ID:              app.ID,
		SchoolID:        app.SchoolID,
		Type:            app.Type,
		Status:          app.Status,
		ApplicantUserID: app.ApplicantUserID,
		ReviewNotes:     app.ReviewNotes,
		ReviewedBy:      app.ReviewedBy,
		ReviewedAt:      app.ReviewedAt,
		CreatedAt:       app.CreatedAt,
		UpdatedAt:       app.UpdatedAt,
	}
	switch {
	case app.StudentSelf != nil:
		row.ClassID = &app.StudentSelf.ClassID
		row.SectionID = app.StudentSelf.SectionID
	case app.ParentStudent != nil:
		row.ClassID = &app.ParentStudent.ClassID
		row.SectionID = app.ParentStudent.SectionID
		row.PendingProfileID = app.ParentStudent.PendingProfileID
		row.ChildUserID = app.ParentStudent.ChildUserID
	case app.Employee != nil:
		row.SubRoleKey = app.Employee.SubRoleKey
		row.CustomSubRoleName = app.Employee.CustomSubRoleName
	}
	return row
}

// Create persists a new application in SUBMITTED state.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.EnrollmentApplication) error {
	now := time.Now().UTC()
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	app.Status = models.ApplicationStatusSubmitted
	app.CreatedAt = now
	app.UpdatedAt = now

	const query = `INSERT INTO enrollment_applications (id, school_id, type, status, applicant_user_id, class_id, section_id, pending_profile_id, child_user_id, sub_role_key, custom_sub_role_name, created_at, updated_at)
VALUES (:id, :school_id, :type, :status, :applicant_user_id, :class_id, :section_id, :pending_profile_id, :child_user_id, :sub_role_key, :custom_sub_role_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fromModel(app)); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// FindByID returns an application scoped to a school.
func (r *ApplicationRepository) FindByID(ctx context.Context, id, schoolID string) (*models.EnrollmentApplication, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollment_applications WHERE id = $1 AND school_id = $2`, applicationColumns)
	var row applicationRow
	if err := r.db.GetContext(ctx, &row, query, id, schoolID); err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// List returns the review queue filtered by type and status.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.EnrollmentApplication, int, error) {
	conditions := []string{"school_id = $1"}
	args := []interface{}{filter.SchoolID}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM enrollment_applications%s ORDER BY created_at ASC LIMIT %d OFFSET %d`, applicationColumns, clause, size, offset)
	var rows []applicationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM enrollment_applications" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	apps := make([]models.EnrollmentApplication, 0, len(rows))
	for i := range rows {
		apps = append(apps, *rows[i].toModel())
	}
	return apps, total, nil
}

// ListByApplicant returns the applicant's own applications.
func (r *ApplicationRepository) ListByApplicant(ctx context.Context, applicantUserID string) ([]models.EnrollmentApplication, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollment_applications WHERE applicant_user_id = $1 ORDER BY created_at DESC`, applicationColumns)
	var rows []applicationRow
	if err := r.db.SelectContext(ctx, &rows, query, applicantUserID); err != nil {
		return nil, fmt.Errorf("list applicant applications: %w", err)
	}
	apps := make([]models.EnrollmentApplication, 0, len(rows))
	for i := range rows {
		apps = append(apps, *rows[i].toModel())
	}
	return apps, nil
}

// HasOpenApplication reports whether the applicant already has a
// SUBMITTED or UNDER_REVIEW application at the school.
func (r *ApplicationRepository) HasOpenApplication(ctx context.Context, applicantUserID, schoolID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollment_applications WHERE applicant_user_id = $1 AND school_id = $2 AND status IN ($3, $4))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, applicantUserID, schoolID, models.ApplicationStatusSubmitted, models.ApplicationStatusUnderReview); err != nil {
		return false, fmt.Errorf("check open application: %w", err)
	}
	return exists, nil
}

// MarkUnderReview moves SUBMITTED to UNDER_REVIEW. Returns false when
// the application is no longer in SUBMITTED state.
func (r *ApplicationRepository) MarkUnderReview(ctx context.Context, id, reviewerID string) (bool, error) {
	const query = `UPDATE enrollment_applications SET status = $2, reviewed_by = $3, updated_at = $4 WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, models.ApplicationStatusUnderReview, reviewerID, time.Now().UTC(), models.ApplicationStatusSubmitted)
	if err != nil {
		return false, fmt.Errorf("mark under review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark under review affected: %w", err)
	}
	return affected > 0, nil
}

// MarkRejected closes a reviewable application as REJECTED. Returns
// false when the application was already decided.
func (r *ApplicationRepository) MarkRejected(ctx context.Context, id, reviewerID string, notes *string) (bool, error) {
	now := time.Now().UTC()
	const query = `UPDATE enrollment_applications SET status = $2, reviewed_by = $3, reviewed_at = $4, review_notes = $5, updated_at = $4 WHERE id = $1 AND status IN ($6, $7)`
	res, err := r.db.ExecContext(ctx, query, id, models.ApplicationStatusRejected, reviewerID, now, notes, models.ApplicationStatusSubmitted, models.ApplicationStatusUnderReview)
	if err != nil {
		return false, fmt.Errorf("mark rejected: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark rejected affected: %w", err)
	}
	return affected > 0, nil
}

// markApprovedTx is the shared conditional approval update. Returning
// false means another reviewer decided the application first.
func markApprovedTx(ctx context.Context, tx *sqlx.Tx, id, reviewerID string, notes *string, now time.Time) (bool, error) {
	const query = `UPDATE enrollment_applications SET status = $2, reviewed_by = $3, reviewed_at = $4, review_notes = $5, updated_at = $4 WHERE id = $1 AND status IN ($6, $7)`
	res, err := tx.ExecContext(ctx, query, id, models.ApplicationStatusApproved, reviewerID, now, notes, models.ApplicationStatusSubmitted, models.ApplicationStatusUnderReview)
	if err != nil {
		return false, fmt.Errorf("mark approved: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark approved affected: %w", err)
	}
	return affected > 0, nil
}

// StudentSelfApprovalParams carries the precomputed placement facts of
// a STUDENT_SELF approval. Enrollment is nil when the school has no
// active academic year; the student is still placed.
type StudentSelfApprovalParams struct {
	ApplicationID string
	ReviewerID    string
	ReviewNotes   *string
	StudentID     string
	SchoolID      string
	Enrollment    *models.StudentEnrollment
	GradeLevel    int
	SectionName   *string
}

// ApproveStudentSelf approves the application and enrolls the
// applicant in one transaction: the user becomes an ACTIVE student of
// the school with class placement, and an enrollment row is created
// when an active year exists.
func (r *ApplicationRepository) ApproveStudentSelf(ctx context.Context, params StudentSelfApprovalParams) (ok bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin approve student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	ok, err = markApprovedTx(ctx, tx, params.ApplicationID, params.ReviewerID, params.ReviewNotes, now)
	if err != nil || !ok {
		return ok, err
	}

	if params.Enrollment != nil {
		if err = insertEnrollmentTx(ctx, tx, params.Enrollment, now); err != nil {
			return false, err
		}
	}
	if err = placeStudentTx(ctx, tx, params.StudentID, params.SchoolID, params.GradeLevel, params.SectionName, now); err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit approve student: %w", err)
	}
	return true, nil
}

// ParentStudentApprovalParams carries the facts of a PARENT_STUDENT
// approval. NewChildUser is non-nil when a pending profile must be
// converted into a real account inside the same transaction.
type ParentStudentApprovalParams struct {
	ApplicationID    string
	ReviewerID       string
	ReviewNotes      *string
	ParentUserID     string
	PendingProfileID *string
	NewChildUser     *models.User
	Enrollment       *models.StudentEnrollment
	GradeLevel       int
	SectionName      *string
}

// ApproveParentStudent approves the application, converts the pending
// profile into a student account when needed, links the parent to the
// child, and enrolls the child, all in one transaction.
func (r *ApplicationRepository) ApproveParentStudent(ctx context.Context, params ParentStudentApprovalParams) (ok bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin approve parent student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	ok, err = markApprovedTx(ctx, tx, params.ApplicationID, params.ReviewerID, params.ReviewNotes, now)
	if err != nil || !ok {
		return ok, err
	}

	if params.NewChildUser != nil {
		const insertUser = `INSERT INTO users (id, email, password_hash, full_name, role, school_id, active, verified, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, TRUE, TRUE, $7, $7)`
		if _, err = tx.ExecContext(ctx, insertUser,
			params.NewChildUser.ID, params.NewChildUser.Email, params.NewChildUser.PasswordHash,
			params.NewChildUser.FullName, models.RoleStudent, params.Enrollment.SchoolID, now); err != nil {
			return false, fmt.Errorf("create child user: %w", err)
		}
		if params.PendingProfileID != nil {
			const convert = `UPDATE pending_student_profiles SET converted_at = $2, converted_user_id = $3 WHERE id = $1 AND converted_at IS NULL`
			var res sql.Result
			if res, err = tx.ExecContext(ctx, convert, *params.PendingProfileID, now, params.NewChildUser.ID); err != nil {
				return false, fmt.Errorf("convert pending profile: %w", err)
			}
			var affected int64
			if affected, err = res.RowsAffected(); err != nil {
				return false, fmt.Errorf("convert pending profile affected: %w", err)
			}
			if affected == 0 {
				err = fmt.Errorf("pending profile %s already converted", *params.PendingProfileID)
				return false, err
			}
		}
	}

	const link = `INSERT INTO parent_children (parent_user_id, child_user_id, created_at)
VALUES ($1, $2, $3) ON CONFLICT (parent_user_id, child_user_id) DO NOTHING`
	if _, err = tx.ExecContext(ctx, link, params.ParentUserID, params.Enrollment.StudentID, now); err != nil {
		return false, fmt.Errorf("link parent child: %w", err)
	}

	if err = insertEnrollmentTx(ctx, tx, params.Enrollment, now); err != nil {
		return false, err
	}
	if err = placeStudentTx(ctx, tx, params.Enrollment.StudentID, params.Enrollment.SchoolID, params.GradeLevel, params.SectionName, now); err != nil {
		return false, err
	}

	const linkParentSchool = `UPDATE users SET school_id = $2, updated_at = $3 WHERE id = $1 AND school_id IS NULL`
	if _, err = tx.ExecContext(ctx, linkParentSchool, params.ParentUserID, params.Enrollment.SchoolID, now); err != nil {
		return false, fmt.Errorf("link parent school: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit approve parent student: %w", err)
	}
	return true, nil
}

// EmployeeApprovalParams carries the facts of an EMPLOYEE approval.
// NewSubRole is non-nil when a custom sub-role must be created first.
type EmployeeApprovalParams struct {
	ApplicationID string
	ReviewerID    string
	ReviewNotes   *string
	ApplicantID   string
	SchoolID      string
	SubRoleKey    string
	NewSubRole    *models.SubRole
}

// ApproveEmployee approves the application and attaches the applicant
// to the school as an EMPLOYEE with the resolved sub-role, creating
// the custom sub-role when one was requested.
func (r *ApplicationRepository) ApproveEmployee(ctx context.Context, params EmployeeApprovalParams) (ok bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin approve employee: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	ok, err = markApprovedTx(ctx, tx, params.ApplicationID, params.ReviewerID, params.ReviewNotes, now)
	if err != nil || !ok {
		return ok, err
	}

	if params.NewSubRole != nil {
		const insertSubRole = `INSERT INTO sub_roles (id, school_id, key, name, is_system, created_at)
VALUES ($1, $2, $3, $4, FALSE, $5) ON CONFLICT (school_id, key) DO NOTHING`
		if _, err = tx.ExecContext(ctx, insertSubRole,
			params.NewSubRole.ID, params.NewSubRole.SchoolID, params.NewSubRole.Key, params.NewSubRole.Name, now); err != nil {
			return false, fmt.Errorf("create sub role: %w", err)
		}
	}

	const attach = `UPDATE users SET role = $2, sub_role = $3, school_id = $4, active = TRUE, updated_at = $5 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, attach, params.ApplicantID, models.RoleEmployee, params.SubRoleKey, params.SchoolID, now); err != nil {
		return false, fmt.Errorf("attach employee: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit approve employee: %w", err)
	}
	return true, nil
}

func insertEnrollmentTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.StudentEnrollment, now time.Time) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = now
	}
	const query = `INSERT INTO student_enrollments (id, school_id, student_id, academic_year_id, class_id, section_id, status, joined_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, query,
		enrollment.ID, enrollment.SchoolID, enrollment.StudentID, enrollment.AcademicYearID,
		enrollment.ClassID, enrollment.SectionID, enrollment.Status, enrollment.JoinedAt); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

func placeStudentTx(ctx context.Context, tx *sqlx.Tx, studentID, schoolID string, gradeLevel int, sectionName *string, now time.Time) error {
	const query = `UPDATE users SET role = $2, school_id = $3, grade_level = $4, class_section = $5, active = TRUE, updated_at = $6 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, studentID, models.RoleStudent, schoolID, gradeLevel, sectionName, now); err != nil {
		return fmt.Errorf("place student: %w", err)
	}
	return nil
}

// CreatePendingProfile registers a child profile for a parent.
func (r *ApplicationRepository) CreatePendingProfile(ctx context.Context, profile *models.PendingStudentProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO pending_student_profiles (id, parent_user_id, full_name, date_of_birth, created_at)
VALUES (:id, :parent_user_id, :full_name, :date_of_birth, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create pending profile: %w", err)
	}
	return nil
}

// FindPendingProfile returns a profile by id.
func (r *ApplicationRepository) FindPendingProfile(ctx context.Context, id string) (*models.PendingStudentProfile, error) {
	const query = `SELECT id, parent_user_id, full_name, date_of_birth, converted_at, converted_user_id, created_at
FROM pending_student_profiles WHERE id = $1`
	var profile models.PendingStudentProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListPendingByParent returns a parent's registered child profiles.
func (r *ApplicationRepository) ListPendingByParent(ctx context.Context, parentUserID string) ([]models.PendingStudentProfile, error) {
	const query = `SELECT id, parent_user_id, full_name, date_of_birth, converted_at, converted_user_id, created_at
FROM pending_student_profiles WHERE parent_user_id = $1 ORDER BY created_at DESC`
	var profiles []models.PendingStudentProfile
	if err := r.db.SelectContext(ctx, &profiles, query, parentUserID); err != nil {
		return nil, fmt.Errorf("list pending profiles: %w", err)
	}
	return profiles, nil
}
