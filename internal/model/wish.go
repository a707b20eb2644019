package model

// Wish 参与者对某时段的愿望，对应 wishes
// DesiredApartmentIDs 按偏好从高到低排列
type Wish struct {
	WishID              string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"wish_id"`
	DrawingID           string      `gorm:"type:uuid;not null"                             json:"drawing_id"`
	UserID              string      `gorm:"type:uuid;not null"                             json:"user_id"`
	PeriodID            string      `gorm:"type:uuid;not null"                             json:"period_id"`
	Priority            int         `gorm:"type:smallint;not null"                         json:"priority"`
	DesiredApartmentIDs StringArray `gorm:"type:uuid[];not null"                           json:"desired_apartment_ids"`
	Comment             string      `gorm:"type:varchar(500)"                              json:"comment,omitempty"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

func (Wish) TableName() string { return "wishes" }
