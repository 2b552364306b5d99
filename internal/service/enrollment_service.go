package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type enrollmentStore interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	FindByID(ctx context.Context, id uint) (*model.Enrollment, error)
	FindByStudentAndCourse(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error)
	ListByStudent(ctx context.Context, studentID uint) ([]model.Enrollment, error)
	ListByCourse(ctx context.Context, courseID uint, page, limit int) ([]model.Enrollment, int64, error)
	SetStatus(ctx context.Context, id uint, status model.EnrollmentStatus) error
}

type EnrollmentStatusRequest struct {
	Status model.EnrollmentStatus `json:"status" validate:"required,oneof=ACTIVE DROPPED"`
}

type EnrollmentService struct {
	enrollments enrollmentStore
	courses     courseFinder
	aggregator  *ProgressAggregator
	logger      *zap.Logger
	now         func() time.Time
}

func NewEnrollmentService(enrollments enrollmentStore, courses courseFinder, aggregator *ProgressAggregator, logger *zap.Logger) *EnrollmentService {
	return &EnrollmentService{
		enrollments: enrollments,
		courses:     courses,
		aggregator:  aggregator,
		logger:      logger,
		now:         time.Now,
	}
}

// Enroll 只能选已发布的公开课程，重复选课返回 409
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrCourseNotFound)
	}
	if !course.IsOpenForEnrollment() {
		return nil, util.ErrCourseNotPublished
	}

	enrollment := &model.Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		Status:     model.EnrollmentActive,
		EnrolledAt: s.now(),
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, util.ErrAlreadyEnrolled
		}
		return nil, err
	}
	return enrollment, nil
}

func (s *EnrollmentService) ListMine(ctx context.Context, studentID uint) ([]model.Enrollment, error) {
	return s.enrollments.ListByStudent(ctx, studentID)
}

func (s *EnrollmentService) ListByCourse(ctx context.Context, actor *util.Claims, courseID uint, page, limit int) ([]model.Enrollment, int64, error) {
	if _, err := loadManagedCourse(ctx, s.courses, actor, courseID); err != nil {
		return nil, 0, err
	}
	return s.enrollments.ListByCourse(ctx, courseID, page, limit)
}

// SetStatus 管理员退课或恢复选课；COMPLETED 只能由进度聚合产生
func (s *EnrollmentService) SetStatus(ctx context.Context, actor *util.Claims, enrollmentID uint, req EnrollmentStatusRequest) (*model.Enrollment, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if !isAdmin(actor) {
		return nil, util.ErrPermissionDenied
	}

	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrEnrollmentNotFound)
	}

	switch {
	case req.Status == model.EnrollmentDropped && enrollment.Status == model.EnrollmentDropped:
		return enrollment, nil
	case req.Status == model.EnrollmentActive && enrollment.Status != model.EnrollmentDropped:
		return nil, util.ErrInvalidStatus
	}

	if err := s.enrollments.SetStatus(ctx, enrollmentID, req.Status); err != nil {
		return nil, notFoundAs(err, util.ErrEnrollmentNotFound)
	}
	s.logger.Info("Enrollment status set by admin",
		zap.Uint("enrollmentId", enrollmentID),
		zap.String("from", string(enrollment.Status)),
		zap.String("to", string(req.Status)),
		zap.Uint("adminId", actor.AccountID))
	enrollment.Status = req.Status

	// 恢复后立即重算，已满足条件的直接进入 COMPLETED
	if req.Status == model.EnrollmentActive {
		if snapshot, err := s.aggregator.Recalculate(ctx, enrollment.StudentID, enrollment.CourseID, TriggerAdmin); err == nil {
			enrollment.ProgressPercentage = snapshot.ProgressPercentage
			enrollment.Status = snapshot.Status
			enrollment.CompletedAt = snapshot.CompletedAt
		}
	}
	return enrollment, nil
}

// Recompute 管理员手动重算一条选课
func (s *EnrollmentService) Recompute(ctx context.Context, actor *util.Claims, enrollmentID uint) (*model.ProgressSnapshot, error) {
	if !isAdmin(actor) {
		return nil, util.ErrPermissionDenied
	}
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.aggregator.Recalculate(ctx, enrollment.StudentID, enrollment.CourseID, TriggerAdmin)
}
