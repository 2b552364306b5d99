package service

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/util"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type materialStore interface {
	Create(ctx context.Context, material *model.Material) error
	FindByID(ctx context.Context, id uint) (*model.Material, error)
	Update(ctx context.Context, material *model.Material) error
	Delete(ctx context.Context, id uint) error
	NextOrderIndex(ctx context.Context, courseID uint) (int, error)
}

type moduleFinder interface {
	FindByID(ctx context.Context, id uint) (*model.CourseModule, error)
}

type objectStorage interface {
	Upload(ctx context.Context, prefix, filename string, reader io.Reader, size int64, contentType string) (string, string, error)
	Remove(ctx context.Context, key string)
}

type MaterialRequest struct {
	ModuleID    *uint              `json:"moduleId"`
	Title       string             `json:"title" validate:"notblank,max=255"`
	Description string             `json:"description"`
	Type        model.MaterialType `json:"type" validate:"required,oneof=VIDEO DOCUMENT IMAGE AUDIO LINK TEXT"`
	FileURL     string             `json:"fileUrl" validate:"omitempty,url,max=512"`
	Content     string             `json:"content"`
	Duration    float64            `json:"duration" validate:"gte=0"`
}

type MaterialUploadRequest struct {
	ModuleID    *uint  `form:"moduleId"`
	Title       string `form:"title" json:"title" validate:"notblank,max=255"`
	Description string `form:"description" json:"description"`
}

type MaterialService struct {
	materials materialStore
	modules   moduleFinder
	courses   courseFinder
	storage   objectStorage
	cfg       *config.StorageConfig
	logger    *zap.Logger
	probe     func(path string) (*util.VideoInfo, error)
}

func NewMaterialService(materials materialStore, modules moduleFinder, courses courseFinder, storage objectStorage, cfg *config.StorageConfig, logger *zap.Logger) *MaterialService {
	return &MaterialService{
		materials: materials,
		modules:   modules,
		courses:   courses,
		storage:   storage,
		cfg:       cfg,
		logger:    logger,
		probe:     util.GetVideoInfo,
	}
}

// checkModule 模块必须属于同一课程
func (s *MaterialService) checkModule(ctx context.Context, courseID uint, moduleID *uint) error {
	if moduleID == nil {
		return nil
	}
	module, err := s.modules.FindByID(ctx, *moduleID)
	if err != nil {
		return notFoundAs(err, util.ErrModuleNotFound)
	}
	if module.CourseID != courseID {
		return util.ErrModuleNotFound
	}
	return nil
}

func (s *MaterialService) Create(ctx context.Context, actor *util.Claims, courseID uint, req MaterialRequest) (*model.Material, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if req.Type == model.MaterialLink && req.FileURL == "" {
		return nil, util.ValidationError(errors.New("fileUrl is required for LINK materials"))
	}
	if req.Type == model.MaterialText && strings.TrimSpace(req.Content) == "" {
		return nil, util.ValidationError(errors.New("content is required for TEXT materials"))
	}
	if _, err := loadManagedCourse(ctx, s.courses, actor, courseID); err != nil {
		return nil, err
	}
	if err := s.checkModule(ctx, courseID, req.ModuleID); err != nil {
		return nil, err
	}

	order, err := s.materials.NextOrderIndex(ctx, courseID)
	if err != nil {
		return nil, err
	}

	material := &model.Material{
		CourseID:    courseID,
		ModuleID:    req.ModuleID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Type:        req.Type,
		FileURL:     req.FileURL,
		Content:     req.Content,
		OrderIndex:  order,
		Duration:    req.Duration,
	}
	if err := s.materials.Create(ctx, material); err != nil {
		return nil, err
	}
	return material, nil
}

// CreateWithFile 上传文件并创建资料，视频会用 ffprobe 读取时长等元数据
func (s *MaterialService) CreateWithFile(ctx context.Context, actor *util.Claims, courseID uint, req MaterialUploadRequest, file *multipart.FileHeader) (*model.Material, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if _, err := loadManagedCourse(ctx, s.courses, actor, courseID); err != nil {
		return nil, err
	}
	if err := s.checkModule(ctx, courseID, req.ModuleID); err != nil {
		return nil, err
	}
	if s.cfg.MaxUploadMB > 0 && file.Size > s.cfg.MaxUploadMB<<20 {
		return nil, util.ValidationError(fmt.Errorf("file exceeds %d MB", s.cfg.MaxUploadMB))
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	contentType, err := detectContentType(src, file.Filename, util.MaterialMimeTypes)
	if err != nil {
		return nil, util.ValidationError(err)
	}

	material := &model.Material{
		CourseID:    courseID,
		ModuleID:    req.ModuleID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Type:        util.MaterialTypeForMime(contentType),
		Size:        file.Size,
	}

	var key, url string
	if material.Type == model.MaterialVideo {
		key, url, err = s.uploadVideo(ctx, src, file, contentType, material)
	} else {
		key, url, err = s.storage.Upload(ctx, "materials", file.Filename, src, file.Size, contentType)
	}
	if err != nil {
		return nil, err
	}
	material.FileKey = key
	material.FileURL = url

	order, err := s.materials.NextOrderIndex(ctx, courseID)
	if err != nil {
		s.storage.Remove(ctx, key)
		return nil, err
	}
	material.OrderIndex = order

	if err := s.materials.Create(ctx, material); err != nil {
		s.storage.Remove(ctx, key)
		return nil, err
	}
	return material, nil
}

// uploadVideo 先落到临时文件供 ffprobe 读取，探测失败不影响上传
func (s *MaterialService) uploadVideo(ctx context.Context, src io.Reader, file *multipart.FileHeader, contentType string, material *model.Material) (string, string, error) {
	tmp, err := os.CreateTemp("", "material-*"+filepath.Ext(file.Filename))
	if err != nil {
		return "", "", err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		return "", "", err
	}

	if info, err := s.probe(tmp.Name()); err != nil {
		s.logger.Warn("Video probe failed", zap.String("filename", file.Filename), zap.Error(err))
	} else {
		material.Duration = info.Duration
		if info.Size > 0 {
			material.Size = info.Size
		}
		if raw, err := json.Marshal(info); err == nil {
			material.Metadata = datatypes.JSON(raw)
		}
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", "", err
	}
	return s.storage.Upload(ctx, "materials", file.Filename, tmp, file.Size, contentType)
}

// detectContentType 嗅探文件头；浏览器上传的视频常被识别为 octet-stream，此时按扩展名判断
func detectContentType(src multipart.File, filename string, allowed []string) (string, error) {
	contentType, err := util.ValidateMimeType(src, allowed)
	if _, seekErr := src.Seek(0, io.SeekStart); seekErr != nil {
		return "", seekErr
	}
	if err == nil {
		return contentType, nil
	}

	if util.HasVideoExtension(filename) {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
			return byExt, nil
		}
		return "video/mp4", nil
	}
	return "", err
}

func (s *MaterialService) loadManagedMaterial(ctx context.Context, actor *util.Claims, materialID uint) (*model.Material, error) {
	material, err := s.materials.FindByID(ctx, materialID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrMaterialNotFound)
	}
	if _, err := loadManagedCourse(ctx, s.courses, actor, material.CourseID); err != nil {
		return nil, err
	}
	return material, nil
}

type MaterialUpdateRequest struct {
	ModuleID    *uint   `json:"moduleId"`
	Title       string  `json:"title" validate:"notblank,max=255"`
	Description string  `json:"description"`
	FileURL     *string `json:"fileUrl" validate:"omitempty,url,max=512"`
	Content     *string `json:"content"`
	OrderIndex  *int    `json:"orderIndex" validate:"omitempty,gte=0"`
	Duration    float64 `json:"duration" validate:"gte=0"`
}

func (s *MaterialService) Update(ctx context.Context, actor *util.Claims, materialID uint, req MaterialUpdateRequest) (*model.Material, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	material, err := s.loadManagedMaterial(ctx, actor, materialID)
	if err != nil {
		return nil, err
	}
	if err := s.checkModule(ctx, material.CourseID, req.ModuleID); err != nil {
		return nil, err
	}

	material.ModuleID = req.ModuleID
	material.Title = strings.TrimSpace(req.Title)
	material.Description = req.Description
	if req.FileURL != nil {
		// 上传的文件不能被改成外链
		if material.FileKey != "" {
			return nil, util.ValidationError(errors.New("uploaded materials cannot change their file url"))
		}
		material.FileURL = *req.FileURL
	}
	if req.Content != nil {
		material.Content = *req.Content
	}
	if req.OrderIndex != nil {
		material.OrderIndex = *req.OrderIndex
	}
	if req.Duration > 0 {
		material.Duration = req.Duration
	}

	if err := s.materials.Update(ctx, material); err != nil {
		return nil, err
	}
	return material, nil
}

// Delete 删除记录后尽力删除存储对象
func (s *MaterialService) Delete(ctx context.Context, actor *util.Claims, materialID uint) error {
	material, err := s.loadManagedMaterial(ctx, actor, materialID)
	if err != nil {
		return err
	}
	if err := s.materials.Delete(ctx, materialID); err != nil {
		return err
	}
	s.storage.Remove(ctx, material.FileKey)
	return nil
}
