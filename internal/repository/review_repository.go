package repository

import (
	"context"
	"edu_platform_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReviewRepository struct {
	DB *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{DB: db}
}

// Upsert 同一学生对同一课程重复评价时覆盖
func (r *ReviewRepository) Upsert(ctx context.Context, review *model.Review) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
	}).Create(review).Error
}

func (r *ReviewRepository) ListByCourse(ctx context.Context, courseID uint, page, limit int) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.Review{}).Where("course_id = ?", courseID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Preload("Student").Order("updated_at DESC").Offset(offset).Limit(limit).Find(&reviews).Error
	return reviews, total, err
}

// Summaries 批量计算课程评分，没有评价的课程不在结果中
func (r *ReviewRepository) Summaries(ctx context.Context, courseIDs []uint) (map[uint]model.RatingSummary, error) {
	result := make(map[uint]model.RatingSummary, len(courseIDs))
	if len(courseIDs) == 0 {
		return result, nil
	}

	var rows []model.RatingSummary
	err := r.DB.WithContext(ctx).Model(&model.Review{}).
		Select("course_id, AVG(rating) AS average_rating, COUNT(*) AS review_count").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.CourseID] = row
	}
	return result, nil
}

func (r *ReviewRepository) FindByCourseAndStudent(ctx context.Context, courseID, studentID uint) (*model.Review, error) {
	var review model.Review
	err := r.DB.WithContext(ctx).Where("course_id = ? AND student_id = ?", courseID, studentID).First(&review).Error
	return &review, err
}
