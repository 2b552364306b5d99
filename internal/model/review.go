package model

// swagger:model Review
type Review struct {
	BaseModel
	CourseID  uint     `gorm:"uniqueIndex:idx_course_student;not null" json:"courseId"`
	StudentID uint     `gorm:"uniqueIndex:idx_course_student;index;not null" json:"studentId"`
	Student   *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Rating    int      `gorm:"not null" json:"rating"`
	Comment   string   `gorm:"type:text" json:"comment"`
}

func (Review) TableName() string {
	return "reviews"
}

type RatingSummary struct {
	CourseID      uint    `json:"courseId"`
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int64   `json:"reviewCount"`
}
