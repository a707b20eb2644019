package model

// User 参与者，对应 users（由门户同步，抽签引擎只读使用）
type User struct {
	UserID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name   string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email  string `gorm:"type:varchar(255);not null"                     json:"email"`
	Role   string `gorm:"type:varchar(20);not null;default:'member'"     json:"role"` // admin | member
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
