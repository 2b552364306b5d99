package model

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTutor   UserRole = "tutor"
	RoleAdmin   UserRole = "admin"
)

// AccountType 区分 JWT 所属的账户表
type AccountType string

const (
	AccountStudent AccountType = "student"
	AccountTutor   AccountType = "tutor"
)

// swagger:model Student
type Student struct {
	BaseModel
	SessionFields
	Name          string  `gorm:"size:100;not null" json:"name"`
	Email         string  `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Password      *string `gorm:"size:100" json:"-"` // 第三方登录账户为空
	GoogleSubject *string `gorm:"size:64;uniqueIndex" json:"-"`
	Avatar        string  `gorm:"size:255" json:"avatar"`
	Bio           string  `gorm:"type:text" json:"bio"`
	Phone         string  `gorm:"size:32" json:"phone"`
	EmailVerified bool    `gorm:"default:false" json:"emailVerified"`
	Blocked       bool    `gorm:"default:false" json:"blocked"`
	IsActive      bool    `gorm:"default:true" json:"isActive"`
}

func (Student) TableName() string {
	return "students"
}

func (s *Student) HasPassword() bool {
	return s.Password != nil && *s.Password != ""
}
