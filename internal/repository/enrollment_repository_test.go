package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectLockedEnrollment(mock sqlmock.Sqlmock, status model.EnrollmentStatus) {
	mock.ExpectQuery("SELECT \\* FROM `enrollments` WHERE .*student_id = \\? AND course_id = \\?.* FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "course_id", "status", "progress_percentage", "version"}).
			AddRow(7, 1, 2, status, 60, 3))
}

func TestEnrollmentRepositoryRecalculateProgress(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	expectLockedEnrollment(mock, model.EnrollmentActive)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `materials`").WillReturnRows(countRows(4))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `assignments`").WillReturnRows(countRows(1))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `progress` JOIN materials").WillReturnRows(countRows(3))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `assignment_submissions` JOIN assignments").WillReturnRows(countRows(1))
	mock.ExpectExec("UPDATE `enrollments` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var seen model.ItemCounts
	enrollment, counts, err := repo.RecalculateProgress(context.Background(), 1, 2,
		func(e *model.Enrollment, c model.ItemCounts) model.ProgressUpdate {
			seen = c
			assert.Equal(t, uint(7), e.ID)
			return model.ProgressUpdate{Percentage: 80, Status: e.Status}
		})
	require.NoError(t, err)

	assert.Equal(t, seen, counts)
	assert.Equal(t, int64(5), counts.TotalItems())
	assert.Equal(t, int64(4), counts.CompletedItems())
	assert.Equal(t, 80, enrollment.ProgressPercentage)
	assert.Equal(t, model.EnrollmentActive, enrollment.Status)
	assert.Equal(t, int64(4), enrollment.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryRecalculateProgressMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `enrollments` WHERE .* FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	called := false
	_, _, err := repo.RecalculateProgress(context.Background(), 1, 2,
		func(*model.Enrollment, model.ItemCounts) model.ProgressUpdate {
			called = true
			return model.ProgressUpdate{}
		})

	assert.ErrorIs(t, err, ErrEnrollmentMissing)
	assert.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryRecalculateProgressRollsBackOnWriteFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	expectLockedEnrollment(mock, model.EnrollmentActive)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `materials`").WillReturnRows(countRows(2))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `assignments`").WillReturnRows(countRows(0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `progress`").WillReturnRows(countRows(2))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `assignment_submissions`").WillReturnRows(countRows(0))
	mock.ExpectExec("UPDATE `enrollments` SET").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	now := time.Now()
	_, _, err := repo.RecalculateProgress(context.Background(), 1, 2,
		func(*model.Enrollment, model.ItemCounts) model.ProgressUpdate {
			return model.ProgressUpdate{Percentage: 100, Status: model.EnrollmentCompleted, CompletedAt: &now}
		})

	assert.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositorySetStatusNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("UPDATE `enrollments` SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetStatus(context.Background(), 99, model.EnrollmentDropped)
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
