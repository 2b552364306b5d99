package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

type courseFinder interface {
	FindByID(ctx context.Context, id uint) (*model.Course, error)
}

type enrollmentFinder interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error)
}

func isAdmin(actor *util.Claims) bool {
	return actor != nil && actor.AccountType == model.AccountTutor && actor.Role == model.RoleAdmin
}

// canManageCourse 管理员可管理所有课程，讲师只能管理自己创建的
func canManageCourse(actor *util.Claims, course *model.Course) bool {
	if actor == nil || actor.AccountType != model.AccountTutor {
		return false
	}
	return actor.Role == model.RoleAdmin || course.CreatorID == actor.AccountID
}

// loadManagedCourse 查课程并校验管理权限
func loadManagedCourse(ctx context.Context, courses courseFinder, actor *util.Claims, courseID uint) (*model.Course, error) {
	course, err := courses.FindByID(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	if !canManageCourse(actor, course) {
		return nil, util.ErrPermissionDenied
	}
	return course, nil
}

// requireActiveEnrollment DROPPED 视同未选课
func requireActiveEnrollment(ctx context.Context, enrollments enrollmentFinder, studentID, courseID uint) (*model.Enrollment, error) {
	enrollment, err := enrollments.FindByStudentAndCourse(ctx, studentID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotEnrolled
	}
	if err != nil {
		return nil, err
	}
	if enrollment.Status == model.EnrollmentDropped {
		return nil, util.ErrNotEnrolled
	}
	return enrollment, nil
}

func notFoundAs(err error, appErr *util.AppError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return appErr
	}
	return err
}
