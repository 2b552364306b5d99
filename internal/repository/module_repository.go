package repository

import (
	"context"
	"edu_platform_backend/internal/model"

	"gorm.io/gorm"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

func (r *ModuleRepository) Create(ctx context.Context, module *model.CourseModule) error {
	return r.DB.WithContext(ctx).Create(module).Error
}

func (r *ModuleRepository) FindByID(ctx context.Context, id uint) (*model.CourseModule, error) {
	var module model.CourseModule
	err := r.DB.WithContext(ctx).First(&module, id).Error
	return &module, err
}

func (r *ModuleRepository) Update(ctx context.Context, module *model.CourseModule) error {
	return r.DB.WithContext(ctx).Omit("Materials").Save(module).Error
}

// Delete 删除模块，资料保留在课程下但解除模块归属
func (r *ModuleRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Material{}).Where("module_id = ?", id).Update("module_id", gorm.Expr("NULL")).Error; err != nil {
			return err
		}
		return tx.Delete(&model.CourseModule{}, id).Error
	})
}

func (r *ModuleRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.CourseModule, error) {
	var modules []model.CourseModule
	err := r.DB.WithContext(ctx).Where("course_id = ?", courseID).Order("order_index asc, id asc").Find(&modules).Error
	return modules, err
}

func (r *ModuleRepository) NextOrderIndex(ctx context.Context, courseID uint) (int, error) {
	var maxOrder *int
	err := r.DB.WithContext(ctx).Model(&model.CourseModule{}).
		Where("course_id = ?", courseID).
		Select("MAX(order_index)").
		Scan(&maxOrder).Error
	if err != nil || maxOrder == nil {
		return 0, err
	}
	return *maxOrder + 1, nil
}

// Reorder 按传入顺序重写 order_index，ID 必须全部属于该课程
func (r *ModuleRepository) Reorder(ctx context.Context, courseID uint, moduleIDs []uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range moduleIDs {
			res := tx.Model(&model.CourseModule{}).
				Where("id = ? AND course_id = ?", id, courseID).
				Update("order_index", i)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}
