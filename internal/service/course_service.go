package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type courseStore interface {
	Create(ctx context.Context, course *model.Course) error
	FindByID(ctx context.Context, id uint) (*model.Course, error)
	FindDetail(ctx context.Context, id uint) (*model.Course, error)
	Update(ctx context.Context, course *model.Course) error
	UpdateStatus(ctx context.Context, id uint, status model.CourseStatus) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter repository.CourseFilter, page, limit int) ([]model.Course, int64, error)
}

type ratingSummaries interface {
	Summaries(ctx context.Context, courseIDs []uint) (map[uint]model.RatingSummary, error)
}

type CourseRequest struct {
	Title       string   `json:"title" validate:"notblank,max=255"`
	Description string   `json:"description"`
	Category    string   `json:"category" validate:"max=100"`
	Level       string   `json:"level" validate:"max=50"`
	Price       float64  `json:"price" validate:"gte=0"`
	Thumbnail   string   `json:"thumbnail" validate:"omitempty,max=255"`
	IsPublic    *bool    `json:"isPublic"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=50"`
}

type CourseStatusRequest struct {
	Status model.CourseStatus `json:"status" validate:"required,oneof=PUBLISHED ARCHIVED"`
}

type CatalogQuery struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

// CourseSummary 列表项，附带评分
type CourseSummary struct {
	model.Course
	Rating model.RatingSummary `json:"rating"`
}

// CourseDetail 课程详情；未选课的学生看不到资料文件与正文
type CourseDetail struct {
	*model.Course
	Rating   model.RatingSummary `json:"rating"`
	Enrolled bool                `json:"enrolled"`
}

type CourseService struct {
	courses     courseStore
	enrollments enrollmentFinder
	reviews     ratingSummaries
	logger      *zap.Logger
}

func NewCourseService(courses courseStore, enrollments enrollmentFinder, reviews ratingSummaries, logger *zap.Logger) *CourseService {
	return &CourseService{courses: courses, enrollments: enrollments, reviews: reviews, logger: logger}
}

func encodeTags(tags []string) (datatypes.JSON, error) {
	if tags == nil {
		return nil, nil
	}
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	raw, err := json.Marshal(cleaned)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func (s *CourseService) withRatings(ctx context.Context, courses []model.Course) ([]CourseSummary, error) {
	ids := make([]uint, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	ratings, err := s.reviews.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		rating, ok := ratings[c.ID]
		if !ok {
			rating = model.RatingSummary{CourseID: c.ID}
		}
		items = append(items, CourseSummary{Course: c, Rating: rating})
	}
	return items, nil
}

// ListCatalog 学生端课程目录
func (s *CourseService) ListCatalog(ctx context.Context, q CatalogQuery) ([]CourseSummary, int64, error) {
	courses, total, err := s.courses.List(ctx, repository.CourseFilter{
		Category:    q.Category,
		Search:      strings.TrimSpace(q.Search),
		CatalogOnly: true,
	}, q.Page, q.Limit)
	if err != nil {
		return nil, 0, err
	}

	items, err := s.withRatings(ctx, courses)
	return items, total, err
}

// ListManaged 讲师的课程；管理员看到全部
func (s *CourseService) ListManaged(ctx context.Context, actor *util.Claims, status model.CourseStatus, page, limit int) ([]CourseSummary, int64, error) {
	filter := repository.CourseFilter{Status: status}
	if !isAdmin(actor) {
		filter.CreatorID = actor.AccountID
	}

	courses, total, err := s.courses.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.withRatings(ctx, courses)
	return items, total, err
}

// GetDetail viewer 可以为 nil（匿名访问）
func (s *CourseService) GetDetail(ctx context.Context, courseID uint, viewer *util.Claims) (*CourseDetail, error) {
	course, err := s.courses.FindDetail(ctx, courseID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrCourseNotFound)
	}

	manager := canManageCourse(viewer, course)
	if !manager && !course.IsOpenForEnrollment() {
		return nil, util.ErrCourseNotFound
	}

	enrolled := false
	if viewer != nil && viewer.AccountType == model.AccountStudent {
		enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, viewer.AccountID, courseID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		enrolled = err == nil && enrollment.Status != model.EnrollmentDropped
	}

	if !manager && !enrolled {
		for i := range course.Materials {
			course.Materials[i].FileURL = ""
			course.Materials[i].Content = ""
		}
	}

	ratings, err := s.reviews.Summaries(ctx, []uint{courseID})
	if err != nil {
		return nil, err
	}
	rating, ok := ratings[courseID]
	if !ok {
		rating = model.RatingSummary{CourseID: courseID}
	}

	return &CourseDetail{Course: course, Rating: rating, Enrolled: enrolled}, nil
}

func (s *CourseService) Create(ctx context.Context, actor *util.Claims, req CourseRequest) (*model.Course, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	tags, err := encodeTags(req.Tags)
	if err != nil {
		return nil, err
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	course := &model.Course{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    req.Category,
		Level:       req.Level,
		Price:       req.Price,
		Thumbnail:   req.Thumbnail,
		Status:      model.CourseDraft,
		IsPublic:    isPublic,
		Tags:        tags,
		CreatorID:   actor.AccountID,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Update(ctx context.Context, actor *util.Claims, courseID uint, req CourseRequest) (*model.Course, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	course, err := loadManagedCourse(ctx, s.courses, actor, courseID)
	if err != nil {
		return nil, err
	}

	tags, err := encodeTags(req.Tags)
	if err != nil {
		return nil, err
	}

	course.Title = strings.TrimSpace(req.Title)
	course.Description = req.Description
	course.Category = req.Category
	course.Level = req.Level
	course.Price = req.Price
	course.Thumbnail = req.Thumbnail
	if req.IsPublic != nil {
		course.IsPublic = *req.IsPublic
	}
	if tags != nil {
		course.Tags = tags
	}

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// courseTransitions 允许的课程状态变更
var courseTransitions = map[model.CourseStatus][]model.CourseStatus{
	model.CourseDraft:     {model.CoursePublished},
	model.CoursePublished: {model.CourseArchived},
	model.CourseArchived:  {model.CoursePublished},
}

func (s *CourseService) ChangeStatus(ctx context.Context, actor *util.Claims, courseID uint, req CourseStatusRequest) (*model.Course, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	course, err := loadManagedCourse(ctx, s.courses, actor, courseID)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range courseTransitions[course.Status] {
		if next == req.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, util.ErrInvalidStatus
	}

	if err := s.courses.UpdateStatus(ctx, courseID, req.Status); err != nil {
		return nil, err
	}
	s.logger.Info("Course status changed",
		zap.Uint("courseId", courseID),
		zap.String("from", string(course.Status)),
		zap.String("to", string(req.Status)),
		zap.Uint("actorId", actor.AccountID))

	course.Status = req.Status
	return course, nil
}

// Delete 只允许删除草稿课程
func (s *CourseService) Delete(ctx context.Context, actor *util.Claims, courseID uint) error {
	course, err := loadManagedCourse(ctx, s.courses, actor, courseID)
	if err != nil {
		return err
	}
	if course.Status != model.CourseDraft {
		return util.ErrCourseNotEditable
	}
	return s.courses.Delete(ctx, courseID)
}
