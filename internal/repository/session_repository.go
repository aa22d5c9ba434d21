package repository

import (
	"errors"
	"fmt"
	"time"

	"drowsiness-detector-go/internal/model"

	"gorm.io/gorm"
)

// SessionRepository интерфейс для работы с сессиями мониторинга
type SessionRepository interface {
	Create(session *model.Session) error
	Finish(id string, totals SessionTotals) error
	GetByID(id string) (*model.Session, error)
	List(page, pageSize int) ([]*model.Session, int64, error)
}

// SessionTotals итоги сессии при завершении
type SessionTotals struct {
	EndTime         time.Time
	TotalAlerts     int
	Duration        float64
	FramesProcessed int
	DrowsyFrames    int
}

// sessionRepository реализация SessionRepository на gorm
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository создает новый instance SessionRepository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{
		db: db,
	}
}

// Create создает запись о начале сессии
func (r *sessionRepository) Create(session *model.Session) error {
	session.StartTime = session.StartTime.UTC()
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Finish записывает итоги сессии
func (r *sessionRepository) Finish(id string, totals SessionTotals) error {
	end := totals.EndTime.UTC()
	result := r.db.Model(&model.Session{}).Where("id = ?", id).Updates(map[string]interface{}{
		"end_time":         &end,
		"total_alerts":     totals.TotalAlerts,
		"session_duration": totals.Duration,
		"frames_processed": totals.FramesProcessed,
		"drowsy_frames":    totals.DrowsyFrames,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to finish session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session with id %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetByID получает сессию по ID
func (r *sessionRepository) GetByID(id string) (*model.Session, error) {
	var session model.Session
	err := r.db.Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session with id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// List получает список сессий с пагинацией
func (r *sessionRepository) List(page, pageSize int) ([]*model.Session, int64, error) {
	var sessions []*model.Session
	var total int64

	// Подсчитываем общее количество
	if err := r.db.Model(&model.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	// Получаем сессии с пагинацией
	offset := (page - 1) * pageSize
	err := r.db.Offset(offset).
		Limit(pageSize).
		Order("start_time DESC").
		Find(&sessions).Error

	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, total, nil
}
