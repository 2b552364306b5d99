package util

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 携带 HTTP 状态码的业务错误
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(status int, message string) *AppError {
	return &AppError{Status: status, Message: message}
}

// ValidationError 包装参数校验错误为 400
func ValidationError(err error) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: err.Error(), Err: ErrValidation}
}

var (
	ErrValidation = NewAppError(http.StatusBadRequest, "validation failed")

	// 认证
	ErrInvalidCredentials = NewAppError(http.StatusUnauthorized, "invalid credentials")
	ErrEmailRegistered    = NewAppError(http.StatusConflict, "email already registered")
	ErrAccountBlocked     = NewAppError(http.StatusForbidden, "account is blocked")
	ErrSessionConflict    = NewAppError(http.StatusConflict, "another login is in progress, please retry")
	ErrInvalidOTP         = NewAppError(http.StatusBadRequest, "invalid or expired verification code")
	ErrGoogleToken        = NewAppError(http.StatusUnauthorized, "invalid google credential")
	ErrPasswordLogin      = NewAppError(http.StatusBadRequest, "this account signs in with google")

	// 权限
	ErrPermissionDenied = NewAppError(http.StatusForbidden, "permission denied")
	ErrNotEnrolled      = NewAppError(http.StatusForbidden, "you are not enrolled in this course")

	// 资源
	ErrStudentNotFound    = NewAppError(http.StatusNotFound, "student not found")
	ErrTutorNotFound      = NewAppError(http.StatusNotFound, "tutor not found")
	ErrCourseNotFound     = NewAppError(http.StatusNotFound, "course not found")
	ErrModuleNotFound     = NewAppError(http.StatusNotFound, "module not found")
	ErrMaterialNotFound   = NewAppError(http.StatusNotFound, "material not found")
	ErrAssignmentNotFound = NewAppError(http.StatusNotFound, "assignment not found")
	ErrSubmissionNotFound = NewAppError(http.StatusNotFound, "submission not found")
	ErrEnrollmentNotFound = NewAppError(http.StatusNotFound, "enrollment not found")

	// 状态冲突
	ErrAlreadyEnrolled    = NewAppError(http.StatusConflict, "already enrolled in this course")
	ErrAlreadySubmitted   = NewAppError(http.StatusConflict, "assignment already submitted")
	ErrCourseNotPublished = NewAppError(http.StatusBadRequest, "course is not open for enrollment")
	ErrCourseNotEditable  = NewAppError(http.StatusConflict, "only draft courses can be deleted")
	ErrScoreExceedsMax    = NewAppError(http.StatusBadRequest, "score exceeds the assignment's maximum score")
	ErrEmptySubmission    = NewAppError(http.StatusBadRequest, "submission needs content or a file")
	ErrInvalidStatus      = NewAppError(http.StatusBadRequest, "invalid status transition")
)

// AsAppError 取出错误链中的 AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
