package service

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// memoryAccounts 同时实现学生账户与会话写入，会话字段按 CAS 语义更新
type memoryAccounts struct {
	mu       sync.Mutex
	nextID   uint
	students map[uint]*model.Student
	tutors   map[uint]*model.Tutor
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{nextID: 1, students: map[uint]*model.Student{}, tutors: map[uint]*model.Tutor{}}
}

func (m *memoryAccounts) Create(_ context.Context, student *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.Email == student.Email {
			return repository.ErrDuplicate
		}
	}
	student.ID = m.nextID
	m.nextID++
	copied := *student
	m.students[student.ID] = &copied
	return nil
}

func (m *memoryAccounts) FindByEmail(_ context.Context, email string) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.Email == email {
			copied := *s
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryAccounts) FindByGoogleSubject(_ context.Context, subject string) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.GoogleSubject != nil && *s.GoogleSubject == subject {
			copied := *s
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryAccounts) LinkGoogle(_ context.Context, id uint, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[id].GoogleSubject = &subject
	m.students[id].EmailVerified = true
	return nil
}

func (m *memoryAccounts) UpdatePassword(_ context.Context, id uint, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.students[id]
	s.Password = &hash
	s.ActiveSessionToken = nil
	s.SessionVersion++
	return nil
}

func (m *memoryAccounts) session(kind model.AccountType, id uint) *model.SessionFields {
	if kind == model.AccountTutor {
		return &m.tutors[id].SessionFields
	}
	return &m.students[id].SessionFields
}

func (m *memoryAccounts) Rotate(_ context.Context, kind model.AccountType, id uint, expected int64, marker, ip string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(kind, id)
	if s.SessionVersion != expected {
		return false, nil
	}
	s.ActiveSessionToken = &marker
	s.SessionVersion++
	s.LastLoginAt = &now
	s.LastLoginIP = ip
	return true, nil
}

func (m *memoryAccounts) Clear(_ context.Context, kind model.AccountType, id uint, marker string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(kind, id)
	if s.ActiveSessionToken == nil || *s.ActiveSessionToken != marker {
		return false, nil
	}
	s.ActiveSessionToken = nil
	s.SessionVersion++
	return true, nil
}

func (m *memoryAccounts) Current(_ context.Context, kind model.AccountType, id uint) (*repository.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == model.AccountTutor {
		t, ok := m.tutors[id]
		if !ok {
			return nil, gorm.ErrRecordNotFound
		}
		return &repository.SessionState{ActiveSessionToken: t.ActiveSessionToken, SessionVersion: t.SessionVersion, Blocked: t.Blocked, IsActive: t.IsActive}, nil
	}
	s, ok := m.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &repository.SessionState{ActiveSessionToken: s.ActiveSessionToken, SessionVersion: s.SessionVersion, Blocked: s.Blocked, IsActive: s.IsActive}, nil
}

type memoryTutors struct{ accounts *memoryAccounts }

func (t memoryTutors) FindByEmail(_ context.Context, email string) (*model.Tutor, error) {
	t.accounts.mu.Lock()
	defer t.accounts.mu.Unlock()
	for _, tutor := range t.accounts.tutors {
		if tutor.Email == email {
			copied := *tutor
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeOTP struct {
	codes map[string]string
	sent  []string
}

func (f *fakeOTP) Send(_ context.Context, purpose, email string) error {
	f.sent = append(f.sent, purpose+":"+email)
	return nil
}

func (f *fakeOTP) Verify(_ context.Context, purpose, email, code string) (bool, error) {
	key := purpose + ":" + email
	stored, ok := f.codes[key]
	delete(f.codes, key)
	return ok && stored == code, nil
}

type fakeGoogle struct {
	identity *GoogleIdentity
	err      error
}

func (f *fakeGoogle) Verify(context.Context, string) (*GoogleIdentity, error) {
	return f.identity, f.err
}

type authFixture struct {
	accounts *memoryAccounts
	otp      *fakeOTP
	google   *fakeGoogle
	auth     *AuthService
	guard    *SessionGuard
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	accounts := newMemoryAccounts()
	otp := &fakeOTP{codes: map[string]string{}}
	google := &fakeGoogle{}
	jwtCfg := config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour}

	return &authFixture{
		accounts: accounts,
		otp:      otp,
		google:   google,
		auth:     NewAuthService(accounts, memoryTutors{accounts}, accounts, otp, google, jwtCfg, zap.NewNop()),
		guard:    NewSessionGuard(accounts, testSecret, zap.NewNop()),
	}
}

func (f *authFixture) register(t *testing.T, email, password string) *model.Student {
	t.Helper()
	f.otp.codes[OTPPurposeRegister+":"+email] = "123456"
	student, err := f.auth.Register(context.Background(), RegisterRequest{Name: "Ada", Email: email, Password: password, OTP: "123456"})
	require.NoError(t, err)
	return student
}

func TestRegisterRequiresValidOTP(t *testing.T) {
	f := newAuthFixture(t)
	f.otp.codes[OTPPurposeRegister+":ada@example.com"] = "111111"

	_, err := f.auth.Register(context.Background(), RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "password-1", OTP: "222222"})
	assert.ErrorIs(t, err, util.ErrInvalidOTP)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ada@example.com", "password-1")

	f.otp.codes[OTPPurposeRegister+":ada@example.com"] = "123456"
	_, err := f.auth.Register(context.Background(), RegisterRequest{Name: "Ada", Email: "ADA@example.com", Password: "password-2", OTP: "123456"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)
}

func TestLoginSupersedesPreviousSession(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ada@example.com", "password-1")
	ctx := context.Background()

	first, err := f.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "password-1"}, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, f.guard.Check(ctx, first.Token).Authorized)

	second, err := f.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "password-1"}, "10.0.0.2")
	require.NoError(t, err)

	old := f.guard.Check(ctx, first.Token)
	assert.False(t, old.Authorized)
	assert.Equal(t, ReasonSuperseded, old.Reason)
	assert.True(t, f.guard.Check(ctx, second.Token).Authorized)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ada@example.com", "password-1")

	_, err := f.auth.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "nope-nope"}, "")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	_, err = f.auth.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "nope-nope"}, "")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}

func TestLoginBlockedStudent(t *testing.T) {
	f := newAuthFixture(t)
	student := f.register(t, "ada@example.com", "password-1")
	f.accounts.students[student.ID].Blocked = true

	_, err := f.auth.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "password-1"}, "")
	assert.ErrorIs(t, err, util.ErrAccountBlocked)
}

func TestLoginLosingRotationRaceConflicts(t *testing.T) {
	f := newAuthFixture(t)
	student := f.register(t, "ada@example.com", "password-1")

	// 模拟读取账户之后另一个登录已经完成轮换
	f.auth.sessions = racingSessions{memoryAccounts: f.accounts, studentID: student.ID}

	_, err := f.auth.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "password-1"}, "")
	assert.ErrorIs(t, err, util.ErrSessionConflict)
}

type racingSessions struct {
	*memoryAccounts
	studentID uint
}

func (r racingSessions) Rotate(ctx context.Context, kind model.AccountType, id uint, expected int64, marker, ip string, now time.Time) (bool, error) {
	_, _ = r.memoryAccounts.Rotate(ctx, kind, id, expected, "winner", ip, now)
	return r.memoryAccounts.Rotate(ctx, kind, id, expected, marker, ip, now)
}

func TestLogoutInvalidatesReplay(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ada@example.com", "password-1")
	ctx := context.Background()

	result, err := f.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "password-1"}, "")
	require.NoError(t, err)

	outcome := f.guard.Check(ctx, result.Token)
	require.True(t, outcome.Authorized)
	require.NoError(t, f.auth.Logout(ctx, outcome.Claims))

	replay := f.guard.Check(ctx, result.Token)
	assert.False(t, replay.Authorized)
	assert.Equal(t, ReasonSuperseded, replay.Reason)
}

func TestStaleLogoutDoesNotEndNewerSession(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ada@example.com", "password-1")
	ctx := context.Background()

	first, err := f.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "password-1"}, "")
	require.NoError(t, err)
	firstClaims, err := util.ParseJWT(first.Token, testSecret)
	require.NoError(t, err)

	second, err := f.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "password-1"}, "")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, firstClaims))
	assert.True(t, f.guard.Check(ctx, second.Token).Authorized)
}

func TestGoogleLoginCreatesThenLinks(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.google.identity = &GoogleIdentity{Subject: "g-1", Email: "grace@example.com", EmailVerified: true, Name: "Grace"}

	result, err := f.auth.GoogleLogin(ctx, GoogleLoginRequest{IDToken: "id-token"}, "")
	require.NoError(t, err)
	require.NotNil(t, result.Student)
	assert.Equal(t, "Grace", result.Student.Name)
	assert.False(t, result.Student.HasPassword())
	assert.True(t, f.guard.Check(ctx, result.Token).Authorized)

	// 同一 subject 再次登录复用账户
	again, err := f.auth.GoogleLogin(ctx, GoogleLoginRequest{IDToken: "id-token"}, "")
	require.NoError(t, err)
	assert.Equal(t, result.Student.ID, again.Student.ID)

	_, err = f.auth.Login(ctx, LoginRequest{Email: "grace@example.com", Password: "whatever1"}, "")
	assert.ErrorIs(t, err, util.ErrPasswordLogin)
}

func TestGoogleLoginLinksExistingEmailAccount(t *testing.T) {
	f := newAuthFixture(t)
	student := f.register(t, "ada@example.com", "password-1")
	f.google.identity = &GoogleIdentity{Subject: "g-ada", Email: "Ada@Example.com", EmailVerified: true}

	result, err := f.auth.GoogleLogin(context.Background(), GoogleLoginRequest{IDToken: "id-token"}, "")
	require.NoError(t, err)
	assert.Equal(t, student.ID, result.Student.ID)
	require.NotNil(t, f.accounts.students[student.ID].GoogleSubject)
	assert.Equal(t, "g-ada", *f.accounts.students[student.ID].GoogleSubject)
}

func TestGoogleLoginRejectsBadToken(t *testing.T) {
	f := newAuthFixture(t)
	f.google.err = errors.New("audience mismatch")

	_, err := f.auth.GoogleLogin(context.Background(), GoogleLoginRequest{IDToken: "id-token"}, "")
	assert.ErrorIs(t, err, util.ErrGoogleToken)
}

func TestResetPasswordEndsSessions(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ada@example.com", "password-1")
	ctx := context.Background()

	result, err := f.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "password-1"}, "")
	require.NoError(t, err)

	f.otp.codes[OTPPurposeReset+":ada@example.com"] = "654321"
	require.NoError(t, f.auth.ResetPassword(ctx, ResetPasswordRequest{Email: "ada@example.com", OTP: "654321", NewPassword: "password-2"}))

	assert.False(t, f.guard.Check(ctx, result.Token).Authorized)

	_, err = f.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "password-2"}, "")
	assert.NoError(t, err)
}

func TestTutorLogin(t *testing.T) {
	f := newAuthFixture(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("tutor-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	f.accounts.tutors[7] = &model.Tutor{BaseModel: model.BaseModel{ID: 7}, Email: "tutor@example.com", Password: string(hash), Role: model.RoleAdmin, IsActive: true}

	result, err := f.auth.TutorLogin(context.Background(), LoginRequest{Email: "tutor@example.com", Password: "tutor-pass"}, "")
	require.NoError(t, err)

	outcome := f.guard.Check(context.Background(), result.Token)
	require.True(t, outcome.Authorized)
	assert.Equal(t, model.AccountTutor, outcome.Claims.AccountType)
	assert.Equal(t, model.RoleAdmin, outcome.Claims.Role)
}

func TestSendOTPRejectsRegisteredEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ada@example.com", "password-1")

	err := f.auth.SendOTP(context.Background(), SendOTPRequest{Email: "ada@example.com", Purpose: OTPPurposeRegister})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	require.NoError(t, f.auth.SendOTP(context.Background(), SendOTPRequest{Email: "ada@example.com", Purpose: OTPPurposeReset}))
	assert.Equal(t, []string{"reset:ada@example.com"}, f.otp.sent)
}

func TestSessionMarkerIs128Bit(t *testing.T) {
	a, err := newSessionMarker()
	require.NoError(t, err)
	b, err := newSessionMarker()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
