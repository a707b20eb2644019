package model

import "time"

// Period 可分配的时段，对应 periods
// [StartDate, EndDate) 为半开区间，EndDate 当天退房
type Period struct {
	PeriodID             string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"period_id"`
	DrawingID            string      `gorm:"type:uuid;not null"                             json:"drawing_id"`
	StartDate            time.Time   `gorm:"type:date;not null"                             json:"start_date"`
	EndDate              time.Time   `gorm:"type:date;not null"                             json:"end_date"`
	Description          string      `gorm:"type:varchar(200);not null"                     json:"description"`
	Comment              string      `gorm:"type:varchar(500)"                              json:"comment,omitempty"`
	SortOrder            int         `gorm:"not null;default:0"                             json:"sort_order"`
	ExcludedApartmentIDs StringArray `gorm:"type:uuid[];not null;default:'{}'"              json:"excluded_apartment_ids"`
	BaseModel
}

func (Period) TableName() string { return "periods" }
