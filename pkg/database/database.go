package database

import (
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/model"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// 唯一索引冲突统一翻译为 gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")
	return db, nil
}

// Migrate 建表并写入默认管理员
func Migrate(db *gorm.DB, admin config.AdminSeedConfig) error {
	err := db.AutoMigrate(
		&model.Student{},
		&model.Tutor{},
		&model.Course{},
		&model.CourseModule{},
		&model.Material{},
		&model.Assignment{},
		&model.AssignmentSubmission{},
		&model.Enrollment{},
		&model.Progress{},
		&model.Review{},
	)
	if err != nil {
		return err
	}

	log.Println("Database migration completed")

	if admin.Email == "" || admin.Password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&model.Tutor{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	seed := &model.Tutor{
		Name:     admin.Name,
		Email:    admin.Email,
		Password: string(hashed),
		Role:     model.RoleAdmin,
		IsActive: true,
	}
	if err := db.Create(seed).Error; err != nil {
		return err
	}

	log.Printf("Default admin %s created", admin.Email)
	return nil
}
