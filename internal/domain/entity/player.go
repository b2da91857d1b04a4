package entity

import (
	"time"

	"github.com/google/uuid"
)

// Player - участник игры
type Player struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayName string    `gorm:"size:50;not null" json:"display_name"`
	RealName    string    `gorm:"size:100;not null;default:''" json:"real_name,omitempty"`
	Score       int       `gorm:"not null;default:0" json:"score"`
	IsEligible  bool      `gorm:"not null;default:true;index" json:"is_eligible"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Player) TableName() string {
	return "players"
}
