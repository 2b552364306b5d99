package model

import "time"

// swagger:model Assignment
type Assignment struct {
	BaseModel
	CourseID    uint       `gorm:"index;not null" json:"courseId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	MaxScore    int        `gorm:"not null;default:100" json:"maxScore"`
}

func (Assignment) TableName() string {
	return "assignments"
}

type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionGraded    SubmissionStatus = "GRADED"
)

// swagger:model AssignmentSubmission
type AssignmentSubmission struct {
	BaseModel
	AssignmentID uint             `gorm:"uniqueIndex:idx_assignment_student;not null" json:"assignmentId"`
	Assignment   *Assignment      `gorm:"foreignKey:AssignmentID" json:"assignment,omitempty"`
	StudentID    uint             `gorm:"uniqueIndex:idx_assignment_student;index;not null" json:"studentId"`
	Student      *Student         `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Content      string           `gorm:"type:text" json:"content"`
	FileURL      string           `gorm:"size:512" json:"fileUrl,omitempty"`
	FileKey      string           `gorm:"size:255" json:"-"`
	Status       SubmissionStatus `gorm:"type:enum('SUBMITTED','GRADED');default:'SUBMITTED'" json:"status"`
	Score        *int             `json:"score,omitempty"`
	Feedback     string           `gorm:"type:text" json:"feedback"`
	SubmittedAt  time.Time        `json:"submittedAt"`
	GradedAt     *time.Time       `json:"gradedAt,omitempty"`
	GradedBy     *uint            `json:"gradedBy,omitempty"`
}

func (AssignmentSubmission) TableName() string {
	return "assignment_submissions"
}
