package model

import "time"

// 抽签生命周期状态
const (
	DrawingStatusDraft     = "draft"
	DrawingStatusOpen      = "open"
	DrawingStatusLocked    = "locked"
	DrawingStatusDrawn     = "drawn"
	DrawingStatusPublished = "published"
)

// Drawing 抽签（一个季度一次），对应 drawings
type Drawing struct {
	DrawingID            string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"drawing_id"`
	Season               string     `gorm:"type:varchar(100);not null"                     json:"season"`
	Status               string     `gorm:"type:varchar(20);not null;default:'draft'"      json:"status"`
	OpenedAt             *time.Time `json:"opened_at,omitempty"`
	LockedAt             *time.Time `json:"locked_at,omitempty"`
	DrawnAt              *time.Time `json:"drawn_at,omitempty"`
	PublishedAt          *time.Time `json:"published_at,omitempty"`
	PublishedExecutionID *string    `gorm:"type:uuid" json:"published_execution_id,omitempty"`
	VersionedModel

	// 关联
	Periods []Period `gorm:"foreignKey:DrawingID" json:"periods,omitempty"`
}

func (Drawing) TableName() string { return "drawings" }
