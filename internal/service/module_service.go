package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type moduleStore interface {
	Create(ctx context.Context, module *model.CourseModule) error
	FindByID(ctx context.Context, id uint) (*model.CourseModule, error)
	Update(ctx context.Context, module *model.CourseModule) error
	Delete(ctx context.Context, id uint) error
	ListByCourse(ctx context.Context, courseID uint) ([]model.CourseModule, error)
	NextOrderIndex(ctx context.Context, courseID uint) (int, error)
	Reorder(ctx context.Context, courseID uint, moduleIDs []uint) error
}

type ModuleRequest struct {
	Title       string `json:"title" validate:"notblank,max=255"`
	Description string `json:"description"`
}

type ReorderRequest struct {
	ModuleIDs []uint `json:"moduleIds" validate:"required,min=1,unique,dive,gt=0"`
}

type ModuleService struct {
	modules moduleStore
	courses courseFinder
}

func NewModuleService(modules moduleStore, courses courseFinder) *ModuleService {
	return &ModuleService{modules: modules, courses: courses}
}

func (s *ModuleService) Create(ctx context.Context, actor *util.Claims, courseID uint, req ModuleRequest) (*model.CourseModule, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if _, err := loadManagedCourse(ctx, s.courses, actor, courseID); err != nil {
		return nil, err
	}

	order, err := s.modules.NextOrderIndex(ctx, courseID)
	if err != nil {
		return nil, err
	}

	module := &model.CourseModule{
		CourseID:    courseID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		OrderIndex:  order,
	}
	if err := s.modules.Create(ctx, module); err != nil {
		return nil, err
	}
	return module, nil
}

// loadManagedModule 查模块并校验其所属课程的管理权限
func (s *ModuleService) loadManagedModule(ctx context.Context, actor *util.Claims, moduleID uint) (*model.CourseModule, error) {
	module, err := s.modules.FindByID(ctx, moduleID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrModuleNotFound)
	}
	if _, err := loadManagedCourse(ctx, s.courses, actor, module.CourseID); err != nil {
		return nil, err
	}
	return module, nil
}

func (s *ModuleService) Update(ctx context.Context, actor *util.Claims, moduleID uint, req ModuleRequest) (*model.CourseModule, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	module, err := s.loadManagedModule(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}

	module.Title = strings.TrimSpace(req.Title)
	module.Description = req.Description
	if err := s.modules.Update(ctx, module); err != nil {
		return nil, err
	}
	return module, nil
}

func (s *ModuleService) Delete(ctx context.Context, actor *util.Claims, moduleID uint) error {
	if _, err := s.loadManagedModule(ctx, actor, moduleID); err != nil {
		return err
	}
	return s.modules.Delete(ctx, moduleID)
}

func (s *ModuleService) Reorder(ctx context.Context, actor *util.Claims, courseID uint, req ReorderRequest) ([]model.CourseModule, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if _, err := loadManagedCourse(ctx, s.courses, actor, courseID); err != nil {
		return nil, err
	}

	if err := s.modules.Reorder(ctx, courseID, req.ModuleIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrModuleNotFound
		}
		return nil, err
	}
	return s.modules.ListByCourse(ctx, courseID)
}
