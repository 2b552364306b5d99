package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// RecordAccess 首次访问时创建记录，之后累加学习时长并刷新访问时间
func (r *ProgressRepository) RecordAccess(ctx context.Context, studentID, courseID, materialID uint, timeSpent int, now time.Time) error {
	progress := &model.Progress{
		StudentID:    studentID,
		CourseID:     courseID,
		MaterialID:   materialID,
		LastAccessed: now,
		TimeSpent:    timeSpent,
	}

	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "course_id"}, {Name: "material_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_accessed": now,
			"time_spent":    gorm.Expr("time_spent + ?", timeSpent),
			"updated_at":    now,
		}),
	}).Create(progress).Error
}

// MarkCompleted 标记资料完成；重复标记不会改写首次完成时间
func (r *ProgressRepository) MarkCompleted(ctx context.Context, studentID, courseID, materialID uint, timeSpent int, now time.Time) error {
	progress := &model.Progress{
		StudentID:    studentID,
		CourseID:     courseID,
		MaterialID:   materialID,
		IsCompleted:  true,
		CompletedAt:  &now,
		LastAccessed: now,
		TimeSpent:    timeSpent,
	}

	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "course_id"}, {Name: "material_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"is_completed":  true,
			"completed_at":  gorm.Expr("COALESCE(completed_at, ?)", now),
			"last_accessed": now,
			"time_spent":    gorm.Expr("time_spent + ?", timeSpent),
			"updated_at":    now,
		}),
	}).Create(progress).Error
}

func (r *ProgressRepository) ListByStudentAndCourse(ctx context.Context, studentID, courseID uint) ([]model.Progress, error) {
	var records []model.Progress
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Find(&records).Error
	return records, err
}

// TotalTimeSpent 学生在课程中的累计学习时长（秒）
func (r *ProgressRepository) TotalTimeSpent(ctx context.Context, studentID, courseID uint) (int64, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&model.Progress{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Select("COALESCE(SUM(time_spent), 0)").
		Scan(&total).Error
	return total, err
}
