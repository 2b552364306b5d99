package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type reconcileSource interface {
	ListForReconcile(ctx context.Context, afterID uint, limit int) ([]model.Enrollment, error)
}

// ReconcileReport 一轮对账的统计
type ReconcileReport struct {
	Scanned   int
	Changed   int
	Completed int
	Failed    int
	Duration  time.Duration
}

// ReconcileJob 定期重算所有非 DROPPED 选课，修复聚合失败留下的旧百分比
type ReconcileJob struct {
	source     reconcileSource
	aggregator *ProgressAggregator
	batchSize  int
	logger     *zap.Logger
	running    atomic.Bool
}

func NewReconcileJob(source reconcileSource, aggregator *ProgressAggregator, batchSize int, logger *zap.Logger) *ReconcileJob {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &ReconcileJob{source: source, aggregator: aggregator, batchSize: batchSize, logger: logger}
}

// Run 按 ID 游标分批扫描；上一轮未结束时直接跳过
func (j *ReconcileJob) Run(ctx context.Context) (*ReconcileReport, error) {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Info("Progress reconciliation already running, skipped")
		return nil, nil
	}
	defer j.running.Store(false)

	start := time.Now()
	report := &ReconcileReport{}
	var cursor uint

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		batch, err := j.source.ListForReconcile(ctx, cursor, j.batchSize)
		if err != nil {
			return report, err
		}
		if len(batch) == 0 {
			break
		}

		for _, e := range batch {
			cursor = e.ID
			report.Scanned++

			snapshot, err := j.aggregator.Recalculate(ctx, e.StudentID, e.CourseID, TriggerReconcile)
			if err != nil {
				report.Failed++
				continue
			}
			if snapshot.ProgressPercentage != e.ProgressPercentage || snapshot.Status != e.Status {
				report.Changed++
			}
			if e.Status != model.EnrollmentCompleted && snapshot.Status == model.EnrollmentCompleted {
				report.Completed++
			}
		}

		if len(batch) < j.batchSize {
			break
		}
	}

	report.Duration = time.Since(start)
	j.logger.Info("Progress reconciliation finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("changed", report.Changed),
		zap.Int("completed", report.Completed),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// Schedule 注册到 cron，表达式为空时不启用
func (j *ReconcileJob) Schedule(c *cron.Cron, expr string) error {
	if expr == "" {
		return nil
	}
	_, err := c.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := j.Run(ctx); err != nil {
			j.logger.Error("Progress reconciliation failed", zap.Error(err))
		}
	})
	return err
}
