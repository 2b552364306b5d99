package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"time"
)

type materialFinder interface {
	FindByID(ctx context.Context, id uint) (*model.Material, error)
}

type progressRecords interface {
	RecordAccess(ctx context.Context, studentID, courseID, materialID uint, timeSpent int, now time.Time) error
	MarkCompleted(ctx context.Context, studentID, courseID, materialID uint, timeSpent int, now time.Time) error
	ListByStudentAndCourse(ctx context.Context, studentID, courseID uint) ([]model.Progress, error)
	TotalTimeSpent(ctx context.Context, studentID, courseID uint) (int64, error)
}

type enrollmentCounter interface {
	enrollmentFinder
	CountItems(ctx context.Context, studentID, courseID uint) (model.ItemCounts, error)
}

type AccessRequest struct {
	// 本次学习时长（秒）
	TimeSpent int `json:"timeSpent" validate:"gte=0,lte=86400"`
}

// MaterialCompletion 完成资料接口的返回
type MaterialCompletion struct {
	MaterialID uint `json:"materialId"`
	ProgressResult
}

// CourseProgress 学生在一门课程中的进度明细
type CourseProgress struct {
	Enrollment     *model.Enrollment `json:"enrollment"`
	Materials      []model.Progress  `json:"materials"`
	Counts         model.ItemCounts  `json:"counts"`
	TotalItems     int64             `json:"totalItems"`
	CompletedItems int64             `json:"completedItems"`
	TimeSpent      int64             `json:"timeSpent"`
}

type ProgressService struct {
	materials   materialFinder
	enrollments enrollmentCounter
	records     progressRecords
	aggregator  *ProgressAggregator
	now         func() time.Time
}

func NewProgressService(materials materialFinder, enrollments enrollmentCounter, records progressRecords, aggregator *ProgressAggregator) *ProgressService {
	return &ProgressService{
		materials:   materials,
		enrollments: enrollments,
		records:     records,
		aggregator:  aggregator,
		now:         time.Now,
	}
}

func (s *ProgressService) enrolledMaterial(ctx context.Context, studentID, materialID uint) (*model.Material, error) {
	material, err := s.materials.FindByID(ctx, materialID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrMaterialNotFound)
	}
	if _, err := requireActiveEnrollment(ctx, s.enrollments, studentID, material.CourseID); err != nil {
		return nil, err
	}
	return material, nil
}

// RecordAccess 记录访问，不影响完成度
func (s *ProgressService) RecordAccess(ctx context.Context, studentID, materialID uint, req AccessRequest) error {
	if err := validateRequest(&req); err != nil {
		return err
	}
	material, err := s.enrolledMaterial(ctx, studentID, materialID)
	if err != nil {
		return err
	}
	return s.records.RecordAccess(ctx, studentID, material.CourseID, materialID, req.TimeSpent, s.now())
}

// CompleteMaterial 标记完成后同步重算进度
func (s *ProgressService) CompleteMaterial(ctx context.Context, studentID, materialID uint, req AccessRequest) (*MaterialCompletion, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	material, err := s.enrolledMaterial(ctx, studentID, materialID)
	if err != nil {
		return nil, err
	}

	if err := s.records.MarkCompleted(ctx, studentID, material.CourseID, materialID, req.TimeSpent, s.now()); err != nil {
		return nil, err
	}

	result := recalculateAfter(ctx, s.aggregator, studentID, material.CourseID, TriggerMaterial)
	return &MaterialCompletion{MaterialID: materialID, ProgressResult: result}, nil
}

func (s *ProgressService) GetCourseProgress(ctx context.Context, studentID, courseID uint) (*CourseProgress, error) {
	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrNotEnrolled)
	}

	records, err := s.records.ListByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	counts, err := s.enrollments.CountItems(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	timeSpent, err := s.records.TotalTimeSpent(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	return &CourseProgress{
		Enrollment:     enrollment,
		Materials:      records,
		Counts:         counts,
		TotalItems:     counts.TotalItems(),
		CompletedItems: counts.CompletedItems(),
		TimeSpent:      timeSpent,
	}, nil
}
