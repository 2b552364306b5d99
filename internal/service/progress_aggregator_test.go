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
	"gorm.io/gorm"
)

// fakeProgressStore 模拟带行锁的选课表：mu 相当于 SELECT ... FOR UPDATE
type fakeProgressStore struct {
	mu         sync.Mutex
	enrollment *model.Enrollment
	materials  int64
	assigns    int64
	completed  map[uint]bool
	submitted  int64
	err        error
	findErr    error
	writes     int
}

func newFakeProgressStore(materials, assignments int64) *fakeProgressStore {
	return &fakeProgressStore{
		enrollment: &model.Enrollment{BaseModel: model.BaseModel{ID: 1}, StudentID: 1, CourseID: 1, Status: model.EnrollmentActive},
		materials:  materials,
		assigns:    assignments,
		completed:  map[uint]bool{},
	}
}

func (f *fakeProgressStore) complete(materialID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[materialID] = true
}

func (f *fakeProgressStore) submit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted++
}

func (f *fakeProgressStore) RecalculateProgress(_ context.Context, _, _ uint, decide repository.ProgressDecider) (*model.Enrollment, model.ItemCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, model.ItemCounts{}, f.err
	}
	if f.enrollment == nil {
		return nil, model.ItemCounts{}, repository.ErrEnrollmentMissing
	}

	counts := model.ItemCounts{
		TotalMaterials:       f.materials,
		TotalAssignments:     f.assigns,
		CompletedMaterials:   int64(len(f.completed)),
		SubmittedAssignments: f.submitted,
	}
	current := *f.enrollment
	update := decide(&current, counts)

	f.enrollment.ProgressPercentage = update.Percentage
	f.enrollment.Status = update.Status
	f.enrollment.CompletedAt = update.CompletedAt
	f.enrollment.Version++
	f.writes++

	result := *f.enrollment
	return &result, counts, nil
}

func (f *fakeProgressStore) FindByStudentAndCourse(context.Context, uint, uint) (*model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.enrollment == nil {
		return nil, gorm.ErrRecordNotFound
	}
	result := *f.enrollment
	return &result, nil
}

func newTestAggregator(store progressStore, revert bool) *ProgressAggregator {
	a := NewProgressAggregator(store, config.ProgressConfig{RevertCompletionOnRegression: revert}, zap.NewNop())
	a.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return a
}

func TestCalculatePercentage(t *testing.T) {
	cases := []struct {
		completed, total int64
		want             int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 5, 0},
		{4, 5, 80},
		{5, 5, 100},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},  // 12.5 向上
		{1, 200, 1}, // 0.5 向上
		{199, 200, 100},
		{7, 5, 100},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CalculatePercentage(tc.completed, tc.total), "%d/%d", tc.completed, tc.total)
	}
}

func TestAggregatorPartialProgressStaysActive(t *testing.T) {
	store := newFakeProgressStore(4, 1)
	store.complete(1)
	store.complete(2)
	store.complete(3)
	store.submit()

	snapshot, err := newTestAggregator(store, false).Recalculate(context.Background(), 1, 1, TriggerAssignment)
	require.NoError(t, err)

	assert.Equal(t, int64(5), snapshot.TotalItems)
	assert.Equal(t, int64(4), snapshot.CompletedItems)
	assert.Equal(t, 80, snapshot.ProgressPercentage)
	assert.Equal(t, model.EnrollmentActive, snapshot.Status)
	assert.Nil(t, snapshot.CompletedAt)
}

func TestAggregatorCompletesAtHundred(t *testing.T) {
	store := newFakeProgressStore(4, 1)
	for id := uint(1); id <= 3; id++ {
		store.complete(id)
	}
	store.submit()
	agg := newTestAggregator(store, false)

	_, err := agg.Recalculate(context.Background(), 1, 1, TriggerAssignment)
	require.NoError(t, err)

	store.complete(4)
	snapshot, err := agg.Recalculate(context.Background(), 1, 1, TriggerMaterial)
	require.NoError(t, err)

	assert.Equal(t, 100, snapshot.ProgressPercentage)
	assert.Equal(t, int64(5), snapshot.CompletedItems)
	assert.Equal(t, model.EnrollmentCompleted, snapshot.Status)
	require.NotNil(t, snapshot.CompletedAt)
	assert.Equal(t, agg.now(), *snapshot.CompletedAt)
}

func TestAggregatorCompletedAtSetOnce(t *testing.T) {
	store := newFakeProgressStore(1, 0)
	store.complete(1)
	agg := newTestAggregator(store, false)

	first, err := agg.Recalculate(context.Background(), 1, 1, TriggerMaterial)
	require.NoError(t, err)

	agg.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	second, err := agg.Recalculate(context.Background(), 1, 1, TriggerMaterial)
	require.NoError(t, err)

	assert.Equal(t, *first.CompletedAt, *second.CompletedAt)
}

func TestAggregatorEmptyCourseNeverCompletes(t *testing.T) {
	store := newFakeProgressStore(0, 0)

	snapshot, err := newTestAggregator(store, false).Recalculate(context.Background(), 1, 1, TriggerReconcile)
	require.NoError(t, err)

	assert.Equal(t, 0, snapshot.ProgressPercentage)
	assert.Equal(t, int64(0), snapshot.TotalItems)
	assert.Equal(t, model.EnrollmentActive, snapshot.Status)
}

func TestAggregatorIdempotent(t *testing.T) {
	store := newFakeProgressStore(3, 0)
	store.complete(1)
	agg := newTestAggregator(store, false)

	first, err := agg.Recalculate(context.Background(), 1, 1, TriggerMaterial)
	require.NoError(t, err)
	second, err := agg.Recalculate(context.Background(), 1, 1, TriggerMaterial)
	require.NoError(t, err)

	assert.Equal(t, first.ProgressPercentage, second.ProgressPercentage)
	assert.Equal(t, 33, second.ProgressPercentage)
	assert.Equal(t, first.Status, second.Status)
}

func TestAggregatorLatchKeepsCompletedByDefault(t *testing.T) {
	store := newFakeProgressStore(2, 0)
	store.complete(1)
	store.complete(2)
	agg := newTestAggregator(store, false)

	_, err := agg.Recalculate(context.Background(), 1, 1, TriggerMaterial)
	require.NoError(t, err)

	// 课程新增资料后进度回落
	store.materials = 3
	snapshot, err := agg.Recalculate(context.Background(), 1, 1, TriggerReconcile)
	require.NoError(t, err)

	assert.Equal(t, 67, snapshot.ProgressPercentage)
	assert.Equal(t, model.EnrollmentCompleted, snapshot.Status)
	assert.NotNil(t, snapshot.CompletedAt)
}

func TestAggregatorRevertsWhenConfigured(t *testing.T) {
	store := newFakeProgressStore(2, 0)
	store.complete(1)
	store.complete(2)
	agg := newTestAggregator(store, false)

	_, err := agg.Recalculate(context.Background(), 1, 1, TriggerMaterial)
	require.NoError(t, err)

	agg.SetRevertOnRegression(true)
	store.materials = 3
	snapshot, err := agg.Recalculate(context.Background(), 1, 1, TriggerReconcile)
	require.NoError(t, err)

	assert.Equal(t, model.EnrollmentActive, snapshot.Status)
	assert.Nil(t, snapshot.CompletedAt)
}

func TestAggregatorLeavesDroppedAlone(t *testing.T) {
	store := newFakeProgressStore(1, 0)
	store.enrollment.Status = model.EnrollmentDropped
	store.complete(1)

	snapshot, err := newTestAggregator(store, true).Recalculate(context.Background(), 1, 1, TriggerAdmin)
	require.NoError(t, err)

	assert.Equal(t, 100, snapshot.ProgressPercentage)
	assert.Equal(t, model.EnrollmentDropped, snapshot.Status)
	assert.Nil(t, snapshot.CompletedAt)
}

func TestAggregatorConcurrentCompletionsBothCounted(t *testing.T) {
	store := newFakeProgressStore(9, 1)
	for id := uint(1); id <= 3; id++ {
		store.complete(id)
	}
	agg := newTestAggregator(store, false)

	var wg sync.WaitGroup
	for _, id := range []uint{4, 5} {
		wg.Add(1)
		go func(materialID uint) {
			defer wg.Done()
			store.complete(materialID)
			_, err := agg.Recalculate(context.Background(), 1, 1, TriggerMaterial)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 50, store.enrollment.ProgressPercentage)
	assert.Equal(t, 2, store.writes)

	snapshot, err := agg.Recalculate(context.Background(), 1, 1, TriggerReconcile)
	require.NoError(t, err)
	assert.Equal(t, int64(5), snapshot.CompletedItems)
}

func TestAggregatorMissingEnrollment(t *testing.T) {
	store := newFakeProgressStore(1, 0)
	store.enrollment = nil

	_, err := newTestAggregator(store, false).Recalculate(context.Background(), 1, 1, TriggerMaterial)
	assert.ErrorIs(t, err, util.ErrEnrollmentNotFound)
}

func TestRecalculateAfterReportsStoredProgressOnFailure(t *testing.T) {
	store := newFakeProgressStore(4, 0)
	store.enrollment.ProgressPercentage = 50
	store.err = errors.New("connection reset")

	result := recalculateAfter(context.Background(), newTestAggregator(store, false), 1, 1, TriggerMaterial)
	assert.False(t, result.ProgressUpdated)
	require.NotNil(t, result.Progress)
	assert.Equal(t, 50, result.Progress.ProgressPercentage)
	assert.Equal(t, model.EnrollmentActive, result.Progress.Status)
}

func TestRecalculateAfterWithoutStoredProgress(t *testing.T) {
	store := newFakeProgressStore(1, 0)
	store.err = errors.New("connection reset")
	store.findErr = errors.New("connection reset")

	result := recalculateAfter(context.Background(), newTestAggregator(store, false), 1, 1, TriggerMaterial)
	assert.False(t, result.ProgressUpdated)
	assert.Nil(t, result.Progress)
}

func TestAggregatorKeepsFirstCompletionAfterReactivation(t *testing.T) {
	first := time.Date(2023, 9, 1, 8, 0, 0, 0, time.UTC)
	store := newFakeProgressStore(1, 0)
	store.complete(1)
	// 曾经完成、被管理员 DROPPED 后又恢复为 ACTIVE
	store.enrollment.CompletedAt = &first

	snapshot, err := newTestAggregator(store, false).Recalculate(context.Background(), 1, 1, TriggerAdmin)
	require.NoError(t, err)

	assert.Equal(t, model.EnrollmentCompleted, snapshot.Status)
	require.NotNil(t, snapshot.CompletedAt)
	assert.Equal(t, first, *snapshot.CompletedAt)
}
