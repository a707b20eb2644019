package model

// Apartment 公寓，对应 apartments
type Apartment struct {
	ApartmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"apartment_id"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	SortOrder   int    `gorm:"not null;default:0"                             json:"sort_order"`
	IsActive    bool   `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel
}

func (Apartment) TableName() string { return "apartments" }
