package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"go.uber.org/zap"
)

type studentStore interface {
	FindByID(ctx context.Context, id uint) (*model.Student, error)
	UpdateProfile(ctx context.Context, id uint, fields map[string]interface{}) error
	SetBlocked(ctx context.Context, id uint, blocked bool) error
}

type ProfileRequest struct {
	Name   *string `json:"name" validate:"omitempty,notblank,max=100"`
	Avatar *string `json:"avatar" validate:"omitempty,max=255"`
	Bio    *string `json:"bio" validate:"omitempty,max=2000"`
	Phone  *string `json:"phone" validate:"omitempty,max=32"`
}

type BlockRequest struct {
	Blocked *bool `json:"blocked" validate:"required"`
}

const maxAvatarBytes = 5 << 20

// StudentService 学生资料与管理员的账户操作
type StudentService struct {
	students studentStore
	storage  objectStorage
	logger   *zap.Logger
}

func NewStudentService(students studentStore, storage objectStorage, logger *zap.Logger) *StudentService {
	return &StudentService{students: students, storage: storage, logger: logger}
}

func (s *StudentService) GetProfile(ctx context.Context, studentID uint) (*model.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrStudentNotFound)
	}
	return student, nil
}

func (s *StudentService) UpdateProfile(ctx context.Context, studentID uint, req ProfileRequest) (*model.Student, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Avatar != nil {
		fields["avatar"] = *req.Avatar
	}
	if req.Bio != nil {
		fields["bio"] = *req.Bio
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}

	if len(fields) > 0 {
		if err := s.students.UpdateProfile(ctx, studentID, fields); err != nil {
			return nil, err
		}
	}
	return s.GetProfile(ctx, studentID)
}

// UploadAvatar 仅接受图片
func (s *StudentService) UploadAvatar(ctx context.Context, studentID uint, file *multipart.FileHeader) (*model.Student, error) {
	if file.Size > maxAvatarBytes {
		return nil, util.ValidationError(fmt.Errorf("avatar exceeds %d MB", maxAvatarBytes>>20))
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	contentType, err := util.ValidateMimeType(src, []string{util.MimeImage})
	if err != nil {
		return nil, util.ValidationError(err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	_, url, err := s.storage.Upload(ctx, "avatars", file.Filename, src, file.Size, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.students.UpdateProfile(ctx, studentID, map[string]interface{}{"avatar": url}); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, studentID)
}

// SetBlocked 封禁会同时清空会话标记，已签发的凭证立即失效
func (s *StudentService) SetBlocked(ctx context.Context, actor *util.Claims, studentID uint, req BlockRequest) error {
	if err := validateRequest(&req); err != nil {
		return err
	}
	if !isAdmin(actor) {
		return util.ErrPermissionDenied
	}

	if err := s.students.SetBlocked(ctx, studentID, *req.Blocked); err != nil {
		return notFoundAs(err, util.ErrStudentNotFound)
	}
	s.logger.Info("Student block state changed",
		zap.Uint("studentId", studentID),
		zap.Bool("blocked", *req.Blocked),
		zap.Uint("adminId", actor.AccountID))
	return nil
}
