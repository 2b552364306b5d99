package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"errors"

	"gorm.io/gorm"
)

type StudentRepository struct {
	DB *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

func (r *StudentRepository) Create(ctx context.Context, student *model.Student) error {
	err := r.DB.WithContext(ctx).Create(student).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *StudentRepository) FindByID(ctx context.Context, id uint) (*model.Student, error) {
	var student model.Student
	err := r.DB.WithContext(ctx).First(&student, id).Error
	return &student, err
}

func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*model.Student, error) {
	var student model.Student
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&student).Error
	return &student, err
}

func (r *StudentRepository) FindByGoogleSubject(ctx context.Context, subject string) (*model.Student, error) {
	var student model.Student
	err := r.DB.WithContext(ctx).Where("google_subject = ?", subject).First(&student).Error
	return &student, err
}

// UpdateProfile 只更新资料字段，不触碰会话字段
func (r *StudentRepository) UpdateProfile(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.Student{}).Where("id = ?", id).Updates(fields).Error
}

// LinkGoogle 首次 Google 登录时绑定已有邮箱账户
func (r *StudentRepository) LinkGoogle(ctx context.Context, id uint, subject string) error {
	return r.DB.WithContext(ctx).Model(&model.Student{}).Where("id = ?", id).
		Updates(map[string]interface{}{"google_subject": subject, "email_verified": true}).Error
}

// UpdatePassword 修改密码并同时作废当前会话
func (r *StudentRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.DB.WithContext(ctx).Model(&model.Student{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"password":             hash,
			"active_session_token": gorm.Expr("NULL"),
			"session_version":      gorm.Expr("session_version + 1"),
		}).Error
}

// SetBlocked 封禁时清空会话标记
func (r *StudentRepository) SetBlocked(ctx context.Context, id uint, blocked bool) error {
	fields := map[string]interface{}{"blocked": blocked}
	if blocked {
		fields["active_session_token"] = gorm.Expr("NULL")
		fields["session_version"] = gorm.Expr("session_version + 1")
	}
	res := r.DB.WithContext(ctx).Model(&model.Student{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
