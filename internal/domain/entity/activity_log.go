package entity

import "time"

// ActivityLog — запись журнала действий пользователей
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Action    string    `gorm:"size:100;not null" json:"action"`
	Details   string    `gorm:"type:text;not null;default:''" json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (ActivityLog) TableName() string {
	return "activity_logs"
}
