package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"io"
	"sync"
	"time"

	"gorm.io/gorm"
)

type fakeCourses struct {
	courses map[uint]*model.Course
}

func (f *fakeCourses) FindByID(_ context.Context, id uint) (*model.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	return &copied, nil
}

type fakeEnrollments struct {
	mu     sync.Mutex
	byKey  map[[2]uint]*model.Enrollment
	nextID uint
	counts model.ItemCounts
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{byKey: map[[2]uint]*model.Enrollment{}, nextID: 1}
}

func (f *fakeEnrollments) add(studentID, courseID uint, status model.EnrollmentStatus) *model.Enrollment {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &model.Enrollment{BaseModel: model.BaseModel{ID: f.nextID}, StudentID: studentID, CourseID: courseID, Status: status}
	f.nextID++
	f.byKey[[2]uint{studentID, courseID}] = e
	return e
}

func (f *fakeEnrollments) FindByStudentAndCourse(_ context.Context, studentID, courseID uint) (*model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byKey[[2]uint{studentID, courseID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEnrollments) CountItems(context.Context, uint, uint) (model.ItemCounts, error) {
	return f.counts, nil
}

func (f *fakeEnrollments) Create(_ context.Context, e *model.Enrollment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]uint{e.StudentID, e.CourseID}
	if _, ok := f.byKey[key]; ok {
		return repository.ErrDuplicate
	}
	e.ID = f.nextID
	f.nextID++
	copied := *e
	f.byKey[key] = &copied
	return nil
}

func (f *fakeEnrollments) FindByID(_ context.Context, id uint) (*model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byKey {
		if e.ID == id {
			copied := *e
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEnrollments) ListByStudent(_ context.Context, studentID uint) ([]model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Enrollment
	for _, e := range f.byKey {
		if e.StudentID == studentID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEnrollments) ListByCourse(_ context.Context, courseID uint, _, _ int) ([]model.Enrollment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Enrollment
	for _, e := range f.byKey {
		if e.CourseID == courseID {
			out = append(out, *e)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeEnrollments) SetStatus(_ context.Context, id uint, status model.EnrollmentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byKey {
		if e.ID == id {
			e.Status = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeStorage struct {
	uploads []string
	removed []string
}

func (f *fakeStorage) Upload(_ context.Context, prefix, filename string, reader io.Reader, _ int64, _ string) (string, string, error) {
	_, _ = io.Copy(io.Discard, reader)
	key := prefix + "/" + filename
	f.uploads = append(f.uploads, key)
	return key, "/uploads/" + key, nil
}

func (f *fakeStorage) Remove(_ context.Context, key string) {
	if key != "" {
		f.removed = append(f.removed, key)
	}
}

type recordingMailer struct {
	sent []EmailMessage
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg EmailMessage) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func tutorClaims(id uint) *util.Claims {
	return &util.Claims{AccountID: id, AccountType: model.AccountTutor, Role: model.RoleTutor}
}

func adminClaims(id uint) *util.Claims {
	return &util.Claims{AccountID: id, AccountType: model.AccountTutor, Role: model.RoleAdmin}
}

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
