package repository

import (
	"context"
	"edu_platform_backend/internal/model"

	"gorm.io/gorm"
)

type MaterialRepository struct {
	DB *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{DB: db}
}

func (r *MaterialRepository) Create(ctx context.Context, material *model.Material) error {
	return r.DB.WithContext(ctx).Create(material).Error
}

func (r *MaterialRepository) FindByID(ctx context.Context, id uint) (*model.Material, error) {
	var material model.Material
	err := r.DB.WithContext(ctx).First(&material, id).Error
	return &material, err
}

func (r *MaterialRepository) Update(ctx context.Context, material *model.Material) error {
	return r.DB.WithContext(ctx).Save(material).Error
}

func (r *MaterialRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.Material{}, id).Error
}

func (r *MaterialRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Material, error) {
	var materials []model.Material
	err := r.DB.WithContext(ctx).Where("course_id = ?", courseID).Order("order_index asc, id asc").Find(&materials).Error
	return materials, err
}

func (r *MaterialRepository) NextOrderIndex(ctx context.Context, courseID uint) (int, error) {
	var maxOrder *int
	err := r.DB.WithContext(ctx).Model(&model.Material{}).
		Where("course_id = ?", courseID).
		Select("MAX(order_index)").
		Scan(&maxOrder).Error
	if err != nil || maxOrder == nil {
		return 0, err
	}
	return *maxOrder + 1, nil
}
