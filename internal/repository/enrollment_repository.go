package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrEnrollmentMissing 聚合时找不到选课记录
var ErrEnrollmentMissing = errors.New("enrollment row missing")

// ProgressDecider 在持有选课行锁时根据计数决定写入内容
type ProgressDecider func(enrollment *model.Enrollment, counts model.ItemCounts) model.ProgressUpdate

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *model.Enrollment) error {
	err := r.DB.WithContext(ctx).Create(enrollment).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *EnrollmentRepository) FindByID(ctx context.Context, id uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).First(&enrollment, id).Error
	return &enrollment, err
}

func (r *EnrollmentRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&enrollment).Error
	return &enrollment, err
}

func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).
		Preload("Course").
		Where("student_id = ?", studentID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID uint, page, limit int) ([]model.Enrollment, int64, error) {
	var enrollments []model.Enrollment
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.Enrollment{}).Where("course_id = ?", courseID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Preload("Student").Order("enrolled_at DESC").Offset(offset).Limit(limit).Find(&enrollments).Error
	return enrollments, total, err
}

// ListForReconcile 游标分页扫描非 DROPPED 的选课
func (r *EnrollmentRepository) ListForReconcile(ctx context.Context, afterID uint, limit int) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("id > ? AND status <> ?", afterID, model.EnrollmentDropped).
		Order("id asc").
		Limit(limit).
		Find(&enrollments).Error
	return enrollments, err
}

// SetStatus 管理员修改选课状态（如 DROPPED）
func (r *EnrollmentRepository) SetStatus(ctx context.Context, id uint, status model.EnrollmentStatus) error {
	res := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  status,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecalculateProgress 在同一事务内锁定选课行、重新计数并写回。
// 同一 (student, course) 的并发调用在行锁上串行，后到者能读到先到者已提交的完成记录。
func (r *EnrollmentRepository) RecalculateProgress(ctx context.Context, studentID, courseID uint, decide ProgressDecider) (*model.Enrollment, model.ItemCounts, error) {
	var enrollment model.Enrollment
	var counts model.ItemCounts

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ? AND course_id = ?", studentID, courseID).
			First(&enrollment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEnrollmentMissing
		}
		if err != nil {
			return err
		}

		counts, err = countItems(tx, studentID, courseID)
		if err != nil {
			return err
		}

		update := decide(&enrollment, counts)
		res := tx.Model(&model.Enrollment{}).
			Where("id = ?", enrollment.ID).
			Updates(map[string]interface{}{
				"progress_percentage": update.Percentage,
				"status":              update.Status,
				"completed_at":        update.CompletedAt,
				"version":             gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}

		enrollment.ProgressPercentage = update.Percentage
		enrollment.Status = update.Status
		enrollment.CompletedAt = update.CompletedAt
		enrollment.Version++
		enrollment.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, counts, err
	}
	return &enrollment, counts, nil
}

// CountItems 不加锁的计数，只用于展示
func (r *EnrollmentRepository) CountItems(ctx context.Context, studentID, courseID uint) (model.ItemCounts, error) {
	return countItems(r.DB.WithContext(ctx), studentID, courseID)
}

func countItems(db *gorm.DB, studentID, courseID uint) (model.ItemCounts, error) {
	var counts model.ItemCounts

	if err := db.Model(&model.Material{}).
		Where("course_id = ?", courseID).
		Count(&counts.TotalMaterials).Error; err != nil {
		return counts, err
	}

	if err := db.Model(&model.Assignment{}).
		Where("course_id = ?", courseID).
		Count(&counts.TotalAssignments).Error; err != nil {
		return counts, err
	}

	// 只统计仍存在的资料，避免已删除资料的完成记录把比例推过 100
	if err := db.Model(&model.Progress{}).
		Joins("JOIN materials ON materials.id = progress.material_id AND materials.deleted_at IS NULL").
		Where("progress.student_id = ? AND progress.course_id = ? AND progress.is_completed = ?", studentID, courseID, true).
		Count(&counts.CompletedMaterials).Error; err != nil {
		return counts, err
	}

	if err := db.Model(&model.AssignmentSubmission{}).
		Joins("JOIN assignments ON assignments.id = assignment_submissions.assignment_id AND assignments.deleted_at IS NULL").
		Where("assignment_submissions.student_id = ? AND assignments.course_id = ?", studentID, courseID).
		Count(&counts.SubmittedAssignments).Error; err != nil {
		return counts, err
	}

	return counts, nil
}
