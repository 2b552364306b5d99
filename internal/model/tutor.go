package model

// swagger:model Tutor
type Tutor struct {
	BaseModel
	SessionFields
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"type:enum('tutor','admin');default:'tutor'" json:"role"`
	Title    string   `gorm:"size:100" json:"title"`
	Avatar   string   `gorm:"size:255" json:"avatar"`
	Blocked  bool     `gorm:"default:false" json:"blocked"`
	IsActive bool     `gorm:"default:true" json:"isActive"`
}

func (Tutor) TableName() string {
	return "tutors"
}

func (t *Tutor) IsAdmin() bool {
	return t.Role == RoleAdmin
}
