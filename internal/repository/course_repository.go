package repository

import (
	"context"
	"edu_platform_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// CourseFilter 课程列表筛选条件
type CourseFilter struct {
	Category  string
	Search    string
	CreatorID uint
	Status    model.CourseStatus
	// 学生端目录只看已发布且公开的课程
	CatalogOnly bool
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Create(course).Error
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, id).Error
	return &course, err
}

// FindDetail 预加载模块、资料和作业，均按排序字段
func (r *CourseRepository) FindDetail(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Preload("Creator").
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index asc, id asc")
		}).
		Preload("Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index asc, id asc")
		}).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc")
		}).
		First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) Update(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Omit("Creator", "Modules", "Materials", "Assignments").Save(course).Error
}

func (r *CourseRepository) UpdateStatus(ctx context.Context, id uint, status model.CourseStatus) error {
	return r.DB.WithContext(ctx).Model(&model.Course{}).Where("id = ?", id).Update("status", status).Error
}

func (r *CourseRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.Course{}, id).Error
}

func (r *CourseRepository) List(ctx context.Context, filter CourseFilter, page, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.Course{})
	if filter.CatalogOnly {
		query = query.Where("status = ? AND is_public = ?", model.CoursePublished, true)
	} else if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatorID > 0 {
		query = query.Where("creator_id = ?", filter.CreatorID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		searchTerm := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", searchTerm, searchTerm)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Preload("Creator").Order("created_at DESC").Offset(offset).Limit(limit).Find(&courses).Error
	return courses, total, err
}
