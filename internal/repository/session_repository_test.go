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

func TestSessionRepositoryCurrent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT active_session_token, session_version, blocked, is_active FROM `students`").
		WillReturnRows(sqlmock.NewRows([]string{"active_session_token", "session_version", "blocked", "is_active"}).
			AddRow("abc", 4, false, true))

	state, err := repo.Current(context.Background(), model.AccountStudent, 1)
	require.NoError(t, err)
	require.NotNil(t, state.ActiveSessionToken)
	assert.Equal(t, "abc", *state.ActiveSessionToken)
	assert.Equal(t, int64(4), state.SessionVersion)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryRotateCompareAndSwap(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectExec("UPDATE `tutors` SET .*WHERE id = \\? AND session_version = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `tutors` SET .*WHERE id = \\? AND session_version = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Rotate(context.Background(), model.AccountTutor, 3, 1, "m1", "127.0.0.1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Rotate(context.Background(), model.AccountTutor, 3, 1, "m2", "127.0.0.1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryClearOnlyMatchingMarker(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectExec("UPDATE `students` SET .*WHERE id = \\? AND active_session_token = \\?").
		WithArgs(5, "stale").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Clear(context.Background(), model.AccountStudent, 5, "stale")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUnknownAccountType(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewSessionRepository(db)

	_, err := repo.Current(context.Background(), model.AccountType("robot"), 1)
	assert.Error(t, err)
}
