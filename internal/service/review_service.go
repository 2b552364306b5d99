package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"strings"
)

type reviewStore interface {
	Upsert(ctx context.Context, review *model.Review) error
	ListByCourse(ctx context.Context, courseID uint, page, limit int) ([]model.Review, int64, error)
	FindByCourseAndStudent(ctx context.Context, courseID, studentID uint) (*model.Review, error)
	Summaries(ctx context.Context, courseIDs []uint) (map[uint]model.RatingSummary, error)
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type ReviewService struct {
	reviews     reviewStore
	courses     courseFinder
	enrollments enrollmentFinder
}

func NewReviewService(reviews reviewStore, courses courseFinder, enrollments enrollmentFinder) *ReviewService {
	return &ReviewService{reviews: reviews, courses: courses, enrollments: enrollments}
}

// Upsert 仅选课学生可以评价，重复评价覆盖旧内容
func (s *ReviewService) Upsert(ctx context.Context, studentID, courseID uint, req ReviewRequest) (*model.Review, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, notFoundAs(err, util.ErrCourseNotFound)
	}
	if _, err := requireActiveEnrollment(ctx, s.enrollments, studentID, courseID); err != nil {
		return nil, err
	}

	review := &model.Review{
		CourseID:  courseID,
		StudentID: studentID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := s.reviews.Upsert(ctx, review); err != nil {
		return nil, err
	}

	// upsert 更新时拿不到原记录 ID，重新读取
	return s.reviews.FindByCourseAndStudent(ctx, courseID, studentID)
}

func (s *ReviewService) List(ctx context.Context, courseID uint, page, limit int) ([]model.Review, int64, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, 0, notFoundAs(err, util.ErrCourseNotFound)
	}
	return s.reviews.ListByCourse(ctx, courseID, page, limit)
}

func (s *ReviewService) Summary(ctx context.Context, courseID uint) (model.RatingSummary, error) {
	summaries, err := s.reviews.Summaries(ctx, []uint{courseID})
	if err != nil {
		return model.RatingSummary{}, err
	}
	if summary, ok := summaries[courseID]; ok {
		return summary, nil
	}
	return model.RatingSummary{CourseID: courseID}, nil
}
