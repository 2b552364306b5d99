// 手动触发选课进度对账脚本
//
// 主应用已按 progress.reconcile_cron 定时执行。
// 此脚本用于手动触发，例如批量导入资料或作业之后。
//
// 用法: go run scripts/reconcile_progress.go

package main

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/pkg/database"
	"edu_platform_backend/pkg/logger"
	"log"
	"time"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	enrollments := repository.NewEnrollmentRepository(db)
	aggregator := service.NewProgressAggregator(enrollments, cfg.Progress, logger.Log)
	job := service.NewReconcileJob(enrollments, aggregator, cfg.Progress.ReconcileBatchSize, logger.Log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	log.Println("手动触发进度对账...")
	report, err := job.Run(ctx)
	if err != nil {
		log.Fatalf("对账失败: %v", err)
	}
	log.Printf("完成！扫描 %d 条，更新 %d 条，新完成 %d 条，失败 %d 条",
		report.Scanned, report.Changed, report.Completed, report.Failed)
}
