package service

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"edu_platform_backend/pkg/monitoring"
	"edu_platform_backend/pkg/tracing"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// 聚合触发来源，用于指标标签
const (
	TriggerMaterial   = "material"
	TriggerAssignment = "assignment"
	TriggerReconcile  = "reconcile"
	TriggerAdmin      = "admin"
)

type progressStore interface {
	RecalculateProgress(ctx context.Context, studentID, courseID uint, decide repository.ProgressDecider) (*model.Enrollment, model.ItemCounts, error)
	FindByStudentAndCourse(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error)
}

// ProgressAggregator 根据资料完成数和作业提交数重算选课进度
type ProgressAggregator struct {
	store              progressStore
	logger             *zap.Logger
	revertOnRegression atomic.Bool
	now                func() time.Time
}

func NewProgressAggregator(store progressStore, cfg config.ProgressConfig, logger *zap.Logger) *ProgressAggregator {
	a := &ProgressAggregator{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	a.revertOnRegression.Store(cfg.RevertCompletionOnRegression)
	return a
}

// SetRevertOnRegression 配置热更新时调用
func (a *ProgressAggregator) SetRevertOnRegression(v bool) {
	a.revertOnRegression.Store(v)
}

// CalculatePercentage 四舍五入（.5 向上）到整数，total 为 0 时返回 0
func CalculatePercentage(completed, total int64) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return int((200*completed + total) / (2 * total))
}

// decide 在行锁内执行：计算百分比并推进状态机。
// DROPPED 只由管理员设置，这里只刷新百分比。
func (a *ProgressAggregator) decide(enrollment *model.Enrollment, counts model.ItemCounts) model.ProgressUpdate {
	pct := CalculatePercentage(counts.CompletedItems(), counts.TotalItems())
	update := model.ProgressUpdate{
		Percentage:  pct,
		Status:      enrollment.Status,
		CompletedAt: enrollment.CompletedAt,
	}

	switch enrollment.Status {
	case model.EnrollmentActive:
		if pct == 100 {
			update.Status = model.EnrollmentCompleted
			// 管理员 DROPPED 后恢复的记录保留首次完成时间
			if update.CompletedAt == nil {
				now := a.now()
				update.CompletedAt = &now
			}
		}
	case model.EnrollmentCompleted:
		if pct < 100 && a.revertOnRegression.Load() {
			update.Status = model.EnrollmentActive
			update.CompletedAt = nil
		} else if update.CompletedAt == nil {
			now := a.now()
			update.CompletedAt = &now
		}
	}

	return update
}

// Recalculate 重算并写回，返回写入后的快照
func (a *ProgressAggregator) Recalculate(ctx context.Context, studentID, courseID uint, trigger string) (*model.ProgressSnapshot, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressAggregator.Recalculate")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("course.id", int64(courseID)),
		attribute.String("trigger", trigger),
	)

	start := time.Now()
	var previous model.EnrollmentStatus
	enrollment, counts, err := a.store.RecalculateProgress(ctx, studentID, courseID,
		func(e *model.Enrollment, c model.ItemCounts) model.ProgressUpdate {
			previous = e.Status
			return a.decide(e, c)
		})
	monitoring.AggregationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		monitoring.AggregationTotal.WithLabelValues(trigger, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if errors.Is(err, repository.ErrEnrollmentMissing) {
			a.logger.Error("Progress aggregation without enrollment",
				zap.Uint("studentId", studentID),
				zap.Uint("courseId", courseID),
				zap.String("trigger", trigger))
			return nil, util.ErrEnrollmentNotFound
		}

		a.logger.Error("Progress aggregation failed",
			zap.Uint("studentId", studentID),
			zap.Uint("courseId", courseID),
			zap.String("trigger", trigger),
			zap.Error(err))
		return nil, fmt.Errorf("recalculate progress: %w", err)
	}

	monitoring.AggregationTotal.WithLabelValues(trigger, "ok").Inc()
	if previous != model.EnrollmentCompleted && enrollment.Status == model.EnrollmentCompleted {
		monitoring.EnrollmentCompletions.Inc()
		a.logger.Info("Enrollment completed",
			zap.Uint("enrollmentId", enrollment.ID),
			zap.Uint("studentId", studentID),
			zap.Uint("courseId", courseID))
	}

	return &model.ProgressSnapshot{
		ProgressPercentage: enrollment.ProgressPercentage,
		TotalItems:         counts.TotalItems(),
		CompletedItems:     counts.CompletedItems(),
		Status:             enrollment.Status,
		CompletedAt:        enrollment.CompletedAt,
	}, nil
}

// ProgressResult 触发接口附带的进度信息。
// ProgressUpdated 为 false 表示动作已生效但进度数字可能是旧的。
type ProgressResult struct {
	Progress        *model.ProgressSnapshot `json:"progress"`
	ProgressUpdated bool                    `json:"progressUpdated"`
}

// recalculateAfter 在触发动作提交之后调用，失败只记录日志，不回滚触发动作。
// 失败时返回库中现有的百分比，计数未知记为 0。
func recalculateAfter(ctx context.Context, aggregator *ProgressAggregator, studentID, courseID uint, trigger string) ProgressResult {
	snapshot, err := aggregator.Recalculate(ctx, studentID, courseID, trigger)
	if err == nil {
		return ProgressResult{Progress: snapshot, ProgressUpdated: true}
	}
	return ProgressResult{Progress: aggregator.storedSnapshot(ctx, studentID, courseID), ProgressUpdated: false}
}

// storedSnapshot 读取上一次写入的进度，读取也失败时返回 nil
func (a *ProgressAggregator) storedSnapshot(ctx context.Context, studentID, courseID uint) *model.ProgressSnapshot {
	enrollment, err := a.store.FindByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		a.logger.Warn("Stored progress unavailable",
			zap.Uint("studentId", studentID),
			zap.Uint("courseId", courseID),
			zap.Error(err))
		return nil
	}
	return &model.ProgressSnapshot{
		ProgressPercentage: enrollment.ProgressPercentage,
		Status:             enrollment.Status,
		CompletedAt:        enrollment.CompletedAt,
	}
}
