package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"errors"

	"gorm.io/gorm"
)

type TutorRepository struct {
	DB *gorm.DB
}

func NewTutorRepository(db *gorm.DB) *TutorRepository {
	return &TutorRepository{DB: db}
}

func (r *TutorRepository) Create(ctx context.Context, tutor *model.Tutor) error {
	err := r.DB.WithContext(ctx).Create(tutor).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *TutorRepository) FindByID(ctx context.Context, id uint) (*model.Tutor, error) {
	var tutor model.Tutor
	err := r.DB.WithContext(ctx).First(&tutor, id).Error
	return &tutor, err
}

func (r *TutorRepository) FindByEmail(ctx context.Context, email string) (*model.Tutor, error) {
	var tutor model.Tutor
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&tutor).Error
	return &tutor, err
}

func (r *TutorRepository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Tutor{}).Where("role = ?", model.RoleAdmin).Count(&count).Error
	return count, err
}
