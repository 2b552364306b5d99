package model

import (
	"time"

	"gorm.io/gorm"
)

// swagger:model
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// SessionFields 单点登录所需字段，学生与讲师共用
type SessionFields struct {
	ActiveSessionToken *string    `gorm:"size:64" json:"-"`
	SessionVersion     int64      `gorm:"not null;default:0" json:"-"`
	LastLoginAt        *time.Time `json:"lastLoginAt,omitempty"`
	LastLoginIP        string     `gorm:"size:64" json:"-"`
}
