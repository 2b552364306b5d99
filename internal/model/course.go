package model

import (
	"gorm.io/datatypes"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "DRAFT"
	CoursePublished CourseStatus = "PUBLISHED"
	CourseArchived  CourseStatus = "ARCHIVED"
)

// swagger:model Course
type Course struct {
	BaseModel
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Category    string         `gorm:"size:100;index" json:"category"`
	Level       string         `gorm:"size:50" json:"level"`
	Price       float64        `gorm:"type:decimal(10,2);default:0" json:"price"`
	Thumbnail   string         `gorm:"size:255" json:"thumbnail"`
	Status      CourseStatus   `gorm:"type:enum('DRAFT','PUBLISHED','ARCHIVED');default:'DRAFT';index" json:"status"`
	IsPublic    bool           `gorm:"default:true" json:"isPublic"`
	Tags        datatypes.JSON `gorm:"type:json" json:"tags,omitempty"`
	CreatorID   uint           `gorm:"index;not null" json:"creatorId"`
	Creator     *Tutor         `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`

	Modules     []CourseModule `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"modules,omitempty"`
	Materials   []Material     `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"materials,omitempty"`
	Assignments []Assignment   `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"assignments,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// IsOpenForEnrollment 仅已发布且公开的课程可选
func (c *Course) IsOpenForEnrollment() bool {
	return c.Status == CoursePublished && c.IsPublic
}

// swagger:model CourseModule
type CourseModule struct {
	BaseModel
	CourseID    uint       `gorm:"index;not null" json:"courseId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	OrderIndex  int        `gorm:"default:0" json:"orderIndex"`
	Materials   []Material `gorm:"foreignKey:ModuleID" json:"materials,omitempty"`
}

func (CourseModule) TableName() string {
	return "course_modules"
}

type MaterialType string

const (
	MaterialVideo    MaterialType = "VIDEO"
	MaterialDocument MaterialType = "DOCUMENT"
	MaterialImage    MaterialType = "IMAGE"
	MaterialAudio    MaterialType = "AUDIO"
	MaterialLink     MaterialType = "LINK"
	MaterialText     MaterialType = "TEXT"
)

// swagger:model Material
type Material struct {
	BaseModel
	CourseID    uint           `gorm:"index;not null" json:"courseId"`
	ModuleID    *uint          `gorm:"index" json:"moduleId,omitempty"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Type        MaterialType   `gorm:"type:enum('VIDEO','DOCUMENT','IMAGE','AUDIO','LINK','TEXT');not null" json:"type"`
	FileURL     string         `gorm:"size:512" json:"fileUrl,omitempty"`
	FileKey     string         `gorm:"size:255" json:"-"`
	Content     string         `gorm:"type:longtext" json:"content,omitempty"`
	OrderIndex  int            `gorm:"default:0" json:"orderIndex"`
	Duration    float64        `gorm:"default:0" json:"duration"` // 秒
	Size        int64          `gorm:"default:0" json:"size"`
	Metadata    datatypes.JSON `gorm:"type:json" json:"metadata,omitempty"`
}

func (Material) TableName() string {
	return "materials"
}
