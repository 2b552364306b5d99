package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"errors"
	"time"

	"gorm.io/gorm"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, assignment *model.Assignment) error {
	return r.DB.WithContext(ctx).Create(assignment).Error
}

func (r *AssignmentRepository) FindByID(ctx context.Context, id uint) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.DB.WithContext(ctx).First(&assignment, id).Error
	return &assignment, err
}

func (r *AssignmentRepository) Update(ctx context.Context, assignment *model.Assignment) error {
	return r.DB.WithContext(ctx).Save(assignment).Error
}

func (r *AssignmentRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.Assignment{}, id).Error
}

func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.DB.WithContext(ctx).Where("course_id = ?", courseID).Order("created_at asc").Find(&assignments).Error
	return assignments, err
}

// CreateSubmission 依赖 (assignment_id, student_id) 唯一索引保证只能提交一次
func (r *AssignmentRepository) CreateSubmission(ctx context.Context, submission *model.AssignmentSubmission) error {
	err := r.DB.WithContext(ctx).Create(submission).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *AssignmentRepository) FindSubmissionByID(ctx context.Context, id uint) (*model.AssignmentSubmission, error) {
	var submission model.AssignmentSubmission
	err := r.DB.WithContext(ctx).Preload("Assignment").Preload("Student").First(&submission, id).Error
	return &submission, err
}

func (r *AssignmentRepository) FindSubmission(ctx context.Context, assignmentID, studentID uint) (*model.AssignmentSubmission, error) {
	var submission model.AssignmentSubmission
	err := r.DB.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&submission).Error
	return &submission, err
}

func (r *AssignmentRepository) ListSubmissions(ctx context.Context, assignmentID uint, page, limit int) ([]model.AssignmentSubmission, int64, error) {
	var submissions []model.AssignmentSubmission
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.AssignmentSubmission{}).Where("assignment_id = ?", assignmentID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Preload("Student").Order("submitted_at DESC").Offset(offset).Limit(limit).Find(&submissions).Error
	return submissions, total, err
}

// GradeSubmission 写入分数与评语，状态置为 GRADED
func (r *AssignmentRepository) GradeSubmission(ctx context.Context, id uint, score int, feedback string, graderID uint, now time.Time) error {
	res := r.DB.WithContext(ctx).Model(&model.AssignmentSubmission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"score":     score,
			"feedback":  feedback,
			"status":    model.SubmissionGraded,
			"graded_at": now,
			"graded_by": graderID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
