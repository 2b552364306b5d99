package repository

import (
	"context"
	"edu_platform_backend/internal/model"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SessionState 会话校验所需的账户字段
type SessionState struct {
	ActiveSessionToken *string
	SessionVersion     int64
	Blocked            bool
	IsActive           bool
}

// SessionRepository 对 students / tutors 两张表的会话字段做原子读写
type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func sessionTable(kind model.AccountType) (string, error) {
	switch kind {
	case model.AccountStudent:
		return model.Student{}.TableName(), nil
	case model.AccountTutor:
		return model.Tutor{}.TableName(), nil
	default:
		return "", fmt.Errorf("unknown account type %q", kind)
	}
}

func (r *SessionRepository) Current(ctx context.Context, kind model.AccountType, id uint) (*SessionState, error) {
	table, err := sessionTable(kind)
	if err != nil {
		return nil, err
	}

	var state SessionState
	err = r.DB.WithContext(ctx).Table(table).
		Select("active_session_token, session_version, blocked, is_active").
		Where("id = ? AND deleted_at IS NULL", id).
		Take(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Rotate 以 session_version 做 CAS 写入新标记，返回是否写入成功
func (r *SessionRepository) Rotate(ctx context.Context, kind model.AccountType, id uint, expectedVersion int64, marker, ip string, now time.Time) (bool, error) {
	table, err := sessionTable(kind)
	if err != nil {
		return false, err
	}

	res := r.DB.WithContext(ctx).Table(table).
		Where("id = ? AND session_version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"active_session_token": marker,
			"session_version":      gorm.Expr("session_version + 1"),
			"last_login_at":        now,
			"last_login_ip":        ip,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Clear 仅当当前标记与传入一致时清空，旧凭证无法注销新会话
func (r *SessionRepository) Clear(ctx context.Context, kind model.AccountType, id uint, marker string) (bool, error) {
	table, err := sessionTable(kind)
	if err != nil {
		return false, err
	}

	res := r.DB.WithContext(ctx).Table(table).
		Where("id = ? AND active_session_token = ?", id, marker).
		Updates(map[string]interface{}{
			"active_session_token": gorm.Expr("NULL"),
			"session_version":      gorm.Expr("session_version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
