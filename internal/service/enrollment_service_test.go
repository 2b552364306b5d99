package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEnrollmentFixture(t *testing.T) (*EnrollmentService, *fakeEnrollments, *fakeProgressStore) {
	t.Helper()
	courses := &fakeCourses{courses: map[uint]*model.Course{
		1: {BaseModel: model.BaseModel{ID: 1}, Status: model.CoursePublished, IsPublic: true, CreatorID: 7},
		2: {BaseModel: model.BaseModel{ID: 2}, Status: model.CourseDraft, IsPublic: true, CreatorID: 7},
		3: {BaseModel: model.BaseModel{ID: 3}, Status: model.CoursePublished, IsPublic: false, CreatorID: 7},
	}}
	enrollments := newFakeEnrollments()
	progress := newFakeProgressStore(2, 0)
	svc := NewEnrollmentService(enrollments, courses, newTestAggregator(progress, false), zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, enrollments, progress
}

func TestEnroll(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()

	enrollment, err := svc.Enroll(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentActive, enrollment.Status)
	assert.Equal(t, 0, enrollment.ProgressPercentage)
	assert.Equal(t, fixedNow, enrollment.EnrolledAt)

	_, err = svc.Enroll(ctx, 1, 1)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	_, err = svc.Enroll(ctx, 1, 2)
	assert.ErrorIs(t, err, util.ErrCourseNotPublished)

	_, err = svc.Enroll(ctx, 1, 3)
	assert.ErrorIs(t, err, util.ErrCourseNotPublished)

	_, err = svc.Enroll(ctx, 1, 99)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestSetStatusTransitions(t *testing.T) {
	svc, enrollments, _ := newEnrollmentFixture(t)
	ctx := context.Background()
	e := enrollments.add(1, 1, model.EnrollmentActive)

	_, err := svc.SetStatus(ctx, tutorClaims(7), e.ID, EnrollmentStatusRequest{Status: model.EnrollmentDropped})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.SetStatus(ctx, adminClaims(1), e.ID, EnrollmentStatusRequest{Status: model.EnrollmentCompleted})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = svc.SetStatus(ctx, adminClaims(1), e.ID, EnrollmentStatusRequest{Status: model.EnrollmentActive})
	assert.ErrorIs(t, err, util.ErrInvalidStatus)

	dropped, err := svc.SetStatus(ctx, adminClaims(1), e.ID, EnrollmentStatusRequest{Status: model.EnrollmentDropped})
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentDropped, dropped.Status)

	again, err := svc.SetStatus(ctx, adminClaims(1), e.ID, EnrollmentStatusRequest{Status: model.EnrollmentDropped})
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentDropped, again.Status)

	_, err = svc.SetStatus(ctx, adminClaims(1), 404, EnrollmentStatusRequest{Status: model.EnrollmentDropped})
	assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)
}

func TestReactivateRecomputesProgress(t *testing.T) {
	svc, enrollments, progress := newEnrollmentFixture(t)
	ctx := context.Background()
	e := enrollments.add(1, 1, model.EnrollmentDropped)

	// 退课期间进度已满，恢复时直接完成
	progress.enrollment.Status = model.EnrollmentActive
	progress.complete(1)
	progress.complete(2)

	restored, err := svc.SetStatus(ctx, adminClaims(1), e.ID, EnrollmentStatusRequest{Status: model.EnrollmentActive})
	require.NoError(t, err)
	assert.Equal(t, 100, restored.ProgressPercentage)
	assert.Equal(t, model.EnrollmentCompleted, restored.Status)
	assert.NotNil(t, restored.CompletedAt)
	assert.Equal(t, 1, progress.writes)
}

func TestRecomputeAdminOnly(t *testing.T) {
	svc, enrollments, progress := newEnrollmentFixture(t)
	ctx := context.Background()
	e := enrollments.add(1, 1, model.EnrollmentActive)
	progress.complete(1)

	_, err := svc.Recompute(ctx, tutorClaims(7), e.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	snapshot, err := svc.Recompute(ctx, adminClaims(1), e.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, snapshot.ProgressPercentage)

	_, err = svc.Recompute(ctx, adminClaims(1), 404)
	assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)
}

func TestListByCourseChecksOwnership(t *testing.T) {
	svc, enrollments, _ := newEnrollmentFixture(t)
	enrollments.add(1, 1, model.EnrollmentActive)
	enrollments.add(2, 1, model.EnrollmentCompleted)

	list, total, err := svc.ListByCourse(context.Background(), tutorClaims(7), 1, 1, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, int64(2), total)

	_, _, err = svc.ListByCourse(context.Background(), tutorClaims(8), 1, 1, 10)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, _, err = svc.ListByCourse(context.Background(), adminClaims(1), 1, 1, 10)
	assert.NoError(t, err)
}
