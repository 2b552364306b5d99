package service

import (
	"context"
	"crypto/rand"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type studentAccounts interface {
	Create(ctx context.Context, student *model.Student) error
	FindByEmail(ctx context.Context, email string) (*model.Student, error)
	FindByGoogleSubject(ctx context.Context, subject string) (*model.Student, error)
	LinkGoogle(ctx context.Context, id uint, subject string) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

type tutorAccounts interface {
	FindByEmail(ctx context.Context, email string) (*model.Tutor, error)
}

type sessionWriter interface {
	Rotate(ctx context.Context, kind model.AccountType, id uint, expectedVersion int64, marker, ip string, now time.Time) (bool, error)
	Clear(ctx context.Context, kind model.AccountType, id uint, marker string) (bool, error)
}

type otpVerifier interface {
	Send(ctx context.Context, purpose, email string) error
	Verify(ctx context.Context, purpose, email, code string) (bool, error)
}

type googleTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

type SendOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=register reset"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"required,email,max=191"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	OTP      string `json:"otp" validate:"required,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// LoginResult 登录成功后的凭证与账户
type LoginResult struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Student   *model.Student `json:"student,omitempty"`
	Tutor     *model.Tutor   `json:"tutor,omitempty"`
}

type AuthService struct {
	students studentAccounts
	tutors   tutorAccounts
	sessions sessionWriter
	otp      otpVerifier
	google   googleTokenVerifier
	jwt      config.JWTConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(students studentAccounts, tutors tutorAccounts, sessions sessionWriter, otp otpVerifier, google googleTokenVerifier, jwtCfg config.JWTConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		students: students,
		tutors:   tutors,
		sessions: sessions,
		otp:      otp,
		google:   google,
		jwt:      jwtCfg,
		logger:   logger,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) SendOTP(ctx context.Context, req SendOTPRequest) error {
	if err := validateRequest(&req); err != nil {
		return err
	}
	email := normalizeEmail(req.Email)

	if req.Purpose == OTPPurposeRegister {
		_, err := s.students.FindByEmail(ctx, email)
		if err == nil {
			return util.ErrEmailRegistered
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	return s.otp.Send(ctx, req.Purpose, email)
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.Student, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)

	ok, err := s.otp.Verify(ctx, OTPPurposeRegister, email, req.OTP)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrInvalidOTP
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hash := string(hashed)

	student := &model.Student{
		Name:          strings.TrimSpace(req.Name),
		Email:         email,
		Password:      &hash,
		EmailVerified: true,
		IsActive:      true,
	}
	if err := s.students.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}
	return student, nil
}

// Login 学生邮箱密码登录
func (s *AuthService) Login(ctx context.Context, req LoginRequest, ip string) (*LoginResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	student, err := s.students.FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !student.HasPassword() {
		return nil, util.ErrPasswordLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*student.Password), []byte(req.Password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}
	if student.Blocked || !student.IsActive {
		return nil, util.ErrAccountBlocked
	}

	return s.startStudentSession(ctx, student, ip)
}

// GoogleLogin 校验 Google ID token，按 subject 或邮箱查找学生，不存在则创建
func (s *AuthService) GoogleLogin(ctx context.Context, req GoogleLoginRequest, ip string) (*LoginResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	identity, err := s.google.Verify(ctx, req.IDToken)
	if err != nil {
		s.logger.Warn("Google token rejected", zap.Error(err))
		return nil, util.ErrGoogleToken
	}
	if !identity.EmailVerified {
		return nil, util.ErrGoogleToken
	}

	student, err := s.findOrCreateGoogleStudent(ctx, identity)
	if err != nil {
		return nil, err
	}
	if student.Blocked || !student.IsActive {
		return nil, util.ErrAccountBlocked
	}

	return s.startStudentSession(ctx, student, ip)
}

func (s *AuthService) findOrCreateGoogleStudent(ctx context.Context, identity *GoogleIdentity) (*model.Student, error) {
	student, err := s.students.FindByGoogleSubject(ctx, identity.Subject)
	if err == nil {
		return student, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := normalizeEmail(identity.Email)
	student, err = s.students.FindByEmail(ctx, email)
	if err == nil {
		// 已有邮箱账户，绑定 Google
		if err := s.students.LinkGoogle(ctx, student.ID, identity.Subject); err != nil {
			return nil, err
		}
		subject := identity.Subject
		student.GoogleSubject = &subject
		student.EmailVerified = true
		return student, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	subject := identity.Subject
	name := identity.Name
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	student = &model.Student{
		Name:          name,
		Email:         email,
		GoogleSubject: &subject,
		Avatar:        identity.Picture,
		EmailVerified: true,
		IsActive:      true,
	}
	if err := s.students.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}
	return student, nil
}

// TutorLogin 讲师与管理员登录
func (s *AuthService) TutorLogin(ctx context.Context, req LoginRequest, ip string) (*LoginResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	tutor, err := s.tutors.FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(tutor.Password), []byte(req.Password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}
	if tutor.Blocked || !tutor.IsActive {
		return nil, util.ErrAccountBlocked
	}

	subject := util.TokenSubject{
		AccountID:   tutor.ID,
		AccountType: model.AccountTutor,
		Role:        tutor.Role,
		Email:       tutor.Email,
	}
	token, expiresAt, err := s.startSession(ctx, subject, tutor.SessionVersion, ip)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Tutor: tutor}, nil
}

func (s *AuthService) startStudentSession(ctx context.Context, student *model.Student, ip string) (*LoginResult, error) {
	subject := util.TokenSubject{
		AccountID:   student.ID,
		AccountType: model.AccountStudent,
		Role:        model.RoleStudent,
		Email:       student.Email,
	}
	token, expiresAt, err := s.startSession(ctx, subject, student.SessionVersion, ip)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Student: student}, nil
}

// startSession 以读取账户时的 session_version 做 CAS 轮换标记，
// 并发登录中落败的一方返回 ErrSessionConflict
func (s *AuthService) startSession(ctx context.Context, subject util.TokenSubject, version int64, ip string) (string, time.Time, error) {
	marker, err := newSessionMarker()
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	ok, err := s.sessions.Rotate(ctx, subject.AccountType, subject.AccountID, version, marker, ip, now)
	if err != nil {
		return "", time.Time{}, err
	}
	if !ok {
		s.logger.Warn("Concurrent login lost session rotation",
			zap.Uint("accountId", subject.AccountID),
			zap.String("accountType", string(subject.AccountType)))
		return "", time.Time{}, util.ErrSessionConflict
	}

	token, err := util.GenerateJWT(subject, marker, s.jwt.Secret, s.jwt.ExpireTime)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, now.Add(s.jwt.ExpireTime), nil
}

// Logout 只清除与凭证一致的标记；标记已被轮换时视为已注销
func (s *AuthService) Logout(ctx context.Context, claims *util.Claims) error {
	cleared, err := s.sessions.Clear(ctx, claims.AccountType, claims.AccountID, claims.SessionID)
	if err != nil {
		return err
	}
	if !cleared {
		s.logger.Debug("Logout with stale session marker", zap.Uint("accountId", claims.AccountID))
	}
	return nil
}

// ResetPassword 用邮箱验证码重置密码，同时让所有已签发凭证失效
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := validateRequest(&req); err != nil {
		return err
	}
	email := normalizeEmail(req.Email)

	ok, err := s.otp.Verify(ctx, OTPPurposeReset, email, req.OTP)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrInvalidOTP
	}

	student, err := s.students.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrInvalidOTP
	}
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.students.UpdatePassword(ctx, student.ID, string(hashed))
}

// newSessionMarker 128 位随机标记
func newSessionMarker() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
