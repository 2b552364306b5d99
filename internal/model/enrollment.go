package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentDropped   EnrollmentStatus = "DROPPED"
)

// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	StudentID          uint             `gorm:"uniqueIndex:idx_student_course;not null" json:"studentId"`
	Student            *Student         `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	CourseID           uint             `gorm:"uniqueIndex:idx_student_course;index;not null" json:"courseId"`
	Course             *Course          `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Status             EnrollmentStatus `gorm:"type:enum('ACTIVE','COMPLETED','DROPPED');default:'ACTIVE';index" json:"status"`
	ProgressPercentage int              `gorm:"not null;default:0" json:"progressPercentage"`
	EnrolledAt         time.Time        `json:"enrolledAt"`
	CompletedAt        *time.Time       `json:"completedAt,omitempty"`
	// 每次聚合写入自增
	Version int64 `gorm:"not null;default:0" json:"-"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// swagger:model Progress
type Progress struct {
	BaseModel
	StudentID    uint       `gorm:"uniqueIndex:idx_student_course_material;not null" json:"studentId"`
	CourseID     uint       `gorm:"uniqueIndex:idx_student_course_material;index;not null" json:"courseId"`
	MaterialID   uint       `gorm:"uniqueIndex:idx_student_course_material;not null" json:"materialId"`
	IsCompleted  bool       `gorm:"default:false;index" json:"isCompleted"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	LastAccessed time.Time  `json:"lastAccessed"`
	TimeSpent    int        `gorm:"default:0" json:"timeSpent"` // 秒，累计
}

func (Progress) TableName() string {
	return "progress"
}

// ItemCounts 聚合时读取到的计数
type ItemCounts struct {
	TotalMaterials       int64 `json:"totalMaterials"`
	TotalAssignments     int64 `json:"totalAssignments"`
	CompletedMaterials   int64 `json:"completedMaterials"`
	SubmittedAssignments int64 `json:"submittedAssignments"`
}

func (c ItemCounts) TotalItems() int64 {
	return c.TotalMaterials + c.TotalAssignments
}

func (c ItemCounts) CompletedItems() int64 {
	return c.CompletedMaterials + c.SubmittedAssignments
}

// ProgressSnapshot 返回给触发接口的聚合结果
type ProgressSnapshot struct {
	ProgressPercentage int              `json:"progressPercentage"`
	TotalItems         int64            `json:"totalItems"`
	CompletedItems     int64            `json:"completedItems"`
	Status             EnrollmentStatus `json:"status"`
	CompletedAt        *time.Time       `json:"completedAt,omitempty"`
}

// ProgressUpdate 聚合器决定写入选课记录的字段
type ProgressUpdate struct {
	Percentage  int
	Status      EnrollmentStatus
	CompletedAt *time.Time
}
