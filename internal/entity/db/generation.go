package db

import (
	"sygl/internal/entity/common"
	"time"
)

const (
	GenerationStatusPending   = "pending"
	GenerationStatusCompleted = "completed"
	GenerationStatusFailed    = "failed"
)

// Generation stores one logo generation attempt and its ledger state.
// A record is created pending and moves exactly once to completed or failed.
type Generation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint  `gorm:"column:user_id;index;not null" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	Prompt         string         `gorm:"column:prompt;type:text;not null" json:"prompt"`
	ModelUsed      string         `gorm:"column:model_used;type:varchar(32);index;not null" json:"model_used"`
	CreditsUsed    int            `gorm:"column:credits_used;not null" json:"credits_used"`
	ImageURL       *string        `gorm:"column:image_url;type:text" json:"image_url"`
	GenerationData common.JSONMap `gorm:"column:generation_data;type:json" json:"generation_data"`
	Status         string         `gorm:"column:status;type:varchar(16);index;not null;default:pending" json:"status"`
}

// TableName 指定表名
func (Generation) TableName() string {
	return "logo_generations"
}

// IsTerminal reports whether the record already left pending.
func (g *Generation) IsTerminal() bool {
	return g != nil && (g.Status == GenerationStatusCompleted || g.Status == GenerationStatusFailed)
}
