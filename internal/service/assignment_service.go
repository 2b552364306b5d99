package service

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"go.uber.org/zap"
)

type assignmentStore interface {
	Create(ctx context.Context, assignment *model.Assignment) error
	FindByID(ctx context.Context, id uint) (*model.Assignment, error)
	Update(ctx context.Context, assignment *model.Assignment) error
	Delete(ctx context.Context, id uint) error
	CreateSubmission(ctx context.Context, submission *model.AssignmentSubmission) error
	FindSubmissionByID(ctx context.Context, id uint) (*model.AssignmentSubmission, error)
	FindSubmission(ctx context.Context, assignmentID, studentID uint) (*model.AssignmentSubmission, error)
	ListSubmissions(ctx context.Context, assignmentID uint, page, limit int) ([]model.AssignmentSubmission, int64, error)
	GradeSubmission(ctx context.Context, id uint, score int, feedback string, graderID uint, now time.Time) error
}

type AssignmentRequest struct {
	Title       string     `json:"title" validate:"notblank,max=255"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	MaxScore    int        `json:"maxScore" validate:"omitempty,gte=1,lte=1000"`
}

type SubmissionRequest struct {
	Content string `json:"content" form:"content" validate:"max=65535"`
}

type GradeRequest struct {
	Score    *int   `json:"score" validate:"required,gte=0"`
	Feedback string `json:"feedback" validate:"max=65535"`
}

// SubmissionResult 提交作业接口的返回
type SubmissionResult struct {
	Submission *model.AssignmentSubmission `json:"submission"`
	ProgressResult
}

type AssignmentService struct {
	assignments assignmentStore
	courses     courseFinder
	enrollments enrollmentFinder
	storage     objectStorage
	mailer      Mailer
	aggregator  *ProgressAggregator
	cfg         *config.StorageConfig
	logger      *zap.Logger
	now         func() time.Time
}

func NewAssignmentService(assignments assignmentStore, courses courseFinder, enrollments enrollmentFinder, storage objectStorage, mailer Mailer, aggregator *ProgressAggregator, cfg *config.StorageConfig, logger *zap.Logger) *AssignmentService {
	return &AssignmentService{
		assignments: assignments,
		courses:     courses,
		enrollments: enrollments,
		storage:     storage,
		mailer:      mailer,
		aggregator:  aggregator,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *AssignmentService) Create(ctx context.Context, actor *util.Claims, courseID uint, req AssignmentRequest) (*model.Assignment, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if _, err := loadManagedCourse(ctx, s.courses, actor, courseID); err != nil {
		return nil, err
	}

	maxScore := req.MaxScore
	if maxScore == 0 {
		maxScore = 100
	}
	assignment := &model.Assignment{
		CourseID:    courseID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueDate:     req.DueDate,
		MaxScore:    maxScore,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *AssignmentService) loadManagedAssignment(ctx context.Context, actor *util.Claims, assignmentID uint) (*model.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrAssignmentNotFound)
	}
	if _, err := loadManagedCourse(ctx, s.courses, actor, assignment.CourseID); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *AssignmentService) Update(ctx context.Context, actor *util.Claims, assignmentID uint, req AssignmentRequest) (*model.Assignment, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	assignment, err := s.loadManagedAssignment(ctx, actor, assignmentID)
	if err != nil {
		return nil, err
	}

	assignment.Title = strings.TrimSpace(req.Title)
	assignment.Description = req.Description
	assignment.DueDate = req.DueDate
	if req.MaxScore > 0 {
		assignment.MaxScore = req.MaxScore
	}
	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *AssignmentService) Delete(ctx context.Context, actor *util.Claims, assignmentID uint) error {
	if _, err := s.loadManagedAssignment(ctx, actor, assignmentID); err != nil {
		return err
	}
	return s.assignments.Delete(ctx, assignmentID)
}

func (s *AssignmentService) ListSubmissions(ctx context.Context, actor *util.Claims, assignmentID uint, page, limit int) ([]model.AssignmentSubmission, int64, error) {
	if _, err := s.loadManagedAssignment(ctx, actor, assignmentID); err != nil {
		return nil, 0, err
	}
	return s.assignments.ListSubmissions(ctx, assignmentID, page, limit)
}

// Submit 每个学生每份作业只能提交一次；提交成功后同步重算进度。
// file 可以为 nil。
func (s *AssignmentService) Submit(ctx context.Context, studentID, assignmentID uint, req SubmissionRequest, file *multipart.FileHeader) (*SubmissionResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" && file == nil {
		return nil, util.ErrEmptySubmission
	}

	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrAssignmentNotFound)
	}
	if _, err := requireActiveEnrollment(ctx, s.enrollments, studentID, assignment.CourseID); err != nil {
		return nil, err
	}

	// 先查一次，避免重复提交时白白上传文件
	if _, err := s.assignments.FindSubmission(ctx, assignmentID, studentID); err == nil {
		return nil, util.ErrAlreadySubmitted
	}

	submission := &model.AssignmentSubmission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Content:      req.Content,
		Status:       model.SubmissionSubmitted,
		SubmittedAt:  s.now(),
	}

	if file != nil {
		key, url, err := s.uploadAttachment(ctx, file)
		if err != nil {
			return nil, err
		}
		submission.FileKey = key
		submission.FileURL = url
	}

	if err := s.assignments.CreateSubmission(ctx, submission); err != nil {
		s.storage.Remove(ctx, submission.FileKey)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, util.ErrAlreadySubmitted
		}
		return nil, err
	}

	result := recalculateAfter(ctx, s.aggregator, studentID, assignment.CourseID, TriggerAssignment)
	return &SubmissionResult{Submission: submission, ProgressResult: result}, nil
}

func (s *AssignmentService) uploadAttachment(ctx context.Context, file *multipart.FileHeader) (string, string, error) {
	if s.cfg.MaxUploadMB > 0 && file.Size > s.cfg.MaxUploadMB<<20 {
		return "", "", util.ValidationError(fmt.Errorf("file exceeds %d MB", s.cfg.MaxUploadMB))
	}

	src, err := file.Open()
	if err != nil {
		return "", "", err
	}
	defer src.Close()

	contentType, err := detectContentType(src, file.Filename, util.SubmissionMimeTypes)
	if err != nil {
		return "", "", util.ValidationError(err)
	}
	return s.storage.Upload(ctx, "submissions", file.Filename, src, file.Size, contentType)
}

func (s *AssignmentService) GetMySubmission(ctx context.Context, studentID, assignmentID uint) (*model.AssignmentSubmission, error) {
	submission, err := s.assignments.FindSubmission(ctx, assignmentID, studentID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrSubmissionNotFound)
	}
	return submission, nil
}

// Grade 评分不能超过作业满分；通知邮件失败只记日志
func (s *AssignmentService) Grade(ctx context.Context, actor *util.Claims, submissionID uint, req GradeRequest) (*model.AssignmentSubmission, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	submission, err := s.assignments.FindSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrSubmissionNotFound)
	}
	if submission.Assignment == nil {
		return nil, util.ErrAssignmentNotFound
	}
	if _, err := loadManagedCourse(ctx, s.courses, actor, submission.Assignment.CourseID); err != nil {
		return nil, err
	}
	if *req.Score > submission.Assignment.MaxScore {
		return nil, util.ErrScoreExceedsMax
	}

	now := s.now()
	if err := s.assignments.GradeSubmission(ctx, submissionID, *req.Score, req.Feedback, actor.AccountID, now); err != nil {
		return nil, notFoundAs(err, util.ErrSubmissionNotFound)
	}

	graderID := actor.AccountID
	submission.Score = req.Score
	submission.Feedback = req.Feedback
	submission.Status = model.SubmissionGraded
	submission.GradedAt = &now
	submission.GradedBy = &graderID

	s.notifyGraded(ctx, submission)
	return submission, nil
}

func (s *AssignmentService) notifyGraded(ctx context.Context, submission *model.AssignmentSubmission) {
	if submission.Student == nil || submission.Student.Email == "" {
		return
	}

	msg := EmailMessage{
		ToName:    submission.Student.Name,
		ToAddress: submission.Student.Email,
		Subject:   fmt.Sprintf("Your submission for \"%s\" was graded", submission.Assignment.Title),
		TextContent: fmt.Sprintf("Score: %d / %d\n\n%s",
			*submission.Score, submission.Assignment.MaxScore, submission.Feedback),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("Failed to send grading notification",
			zap.Uint("submissionId", submission.ID),
			zap.Error(err))
	}
}
