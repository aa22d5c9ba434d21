package model

import (
	"time"
)

// Alert представляет оповещение о сонливости в базе данных.
// Записи только добавляются, меняется лишь длительность после завершения.
type Alert struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID         string    `gorm:"type:varchar(36);not null;index" json:"session_id"`
	Timestamp         time.Time `gorm:"not null;index" json:"timestamp"`
	EarValue          float64   `gorm:"not null" json:"ear_value"`
	ConsecutiveFrames int       `gorm:"not null" json:"consecutive_frames"`
	DurationSeconds   float64   `gorm:"not null;default:0" json:"duration_seconds"`
	Severity          string    `gorm:"type:varchar(10);not null;default:LOW" json:"severity"`
	Notes             string    `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Session представляет сессию мониторинга в базе данных
type Session struct {
	ID              string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StartTime       time.Time  `gorm:"not null" json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	TotalAlerts     int        `gorm:"not null;default:0" json:"total_alerts"`
	SessionDuration float64    `gorm:"not null;default:0" json:"session_duration"`
	FramesProcessed int        `gorm:"not null;default:0" json:"frames_processed"`
	DrowsyFrames    int        `gorm:"not null;default:0" json:"drowsy_frames"`
	Notes           string     `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName указывает имя таблицы для Alert
func (Alert) TableName() string {
	return "alerts"
}

// TableName указывает имя таблицы для Session
func (Session) TableName() string {
	return "sessions"
}
