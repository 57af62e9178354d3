package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-api/internal/models"
)

func TestAssignmentRepositoryUpsertSubmissionResetsReview(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	submittedAt := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "assignment_id", "student_id", "content", "submitted_at", "score", "feedback", "reviewed_by", "reviewed_at"}).
		AddRow("sub-1", "asg-1", "stu-1", "second attempt", submittedAt, nil, nil, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (assignment_id, student_id)\nDO UPDATE SET content = EXCLUDED.content, submitted_at = EXCLUDED.submitted_at, score = NULL, feedback = NULL, reviewed_by = NULL, reviewed_at = NULL")).
		WithArgs(sqlmock.AnyArg(), "asg-1", "stu-1", "second attempt", sqlmock.AnyArg()).
		WillReturnRows(rows)

	submission := &models.AssignmentSubmission{AssignmentID: "asg-1", StudentID: "stu-1", Content: "second attempt"}
	require.NoError(t, repo.UpsertSubmission(context.Background(), submission))

	// The stored row comes back with the review cleared.
	require.Equal(t, "sub-1", submission.ID)
	require.Nil(t, submission.Score)
	require.Nil(t, submission.ReviewedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
