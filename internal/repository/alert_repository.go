package repository

import (
	"errors"
	"fmt"
	"math"
	"time"

	"drowsiness-detector-go/internal/model"

	"gorm.io/gorm"
)

// ErrNotFound запись не найдена
var ErrNotFound = errors.New("record not found")

// AlertRepository интерфейс для работы с оповещениями
type AlertRepository interface {
	Create(alert *model.Alert) error
	UpdateDuration(id string, seconds float64) error
	ListRecent(limit int) ([]*model.Alert, error)
	ListByDateRange(start, end time.Time) ([]*model.Alert, error)
	Statistics(now time.Time) (*AlertStatistics, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// AlertStatistics сводная статистика оповещений
type AlertStatistics struct {
	TotalAlerts          int64            `json:"total_alerts"`
	TodayAlerts          int64            `json:"today_alerts"`
	AverageEar           float64          `json:"average_ear"`
	SeverityDistribution map[string]int64 `json:"severity_distribution"`
	LastAlert            *time.Time       `json:"last_alert"`
}

// alertRepository реализация AlertRepository на gorm
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository создает новый instance AlertRepository
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{
		db: db,
	}
}

// Create добавляет оповещение. Время хранится в UTC.
func (r *alertRepository) Create(alert *model.Alert) error {
	alert.Timestamp = alert.Timestamp.UTC()
	if err := r.db.Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// UpdateDuration записывает длительность завершенного оповещения
func (r *alertRepository) UpdateDuration(id string, seconds float64) error {
	result := r.db.Model(&model.Alert{}).Where("id = ?", id).Update("duration_seconds", seconds)
	if result.Error != nil {
		return fmt.Errorf("failed to update alert duration: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("alert with id %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListRecent получает последние оповещения
func (r *alertRepository) ListRecent(limit int) ([]*model.Alert, error) {
	var alerts []*model.Alert
	err := r.db.Order("timestamp DESC").Limit(limit).Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// ListByDateRange получает оповещения в интервале [start, end)
func (r *alertRepository) ListByDateRange(start, end time.Time) ([]*model.Alert, error) {
	var alerts []*model.Alert
	err := r.db.Where("timestamp >= ? AND timestamp < ?", start.UTC(), end.UTC()).
		Order("timestamp DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts by date range: %w", err)
	}
	return alerts, nil
}

// Statistics вычисляет статистику оповещений
func (r *alertRepository) Statistics(now time.Time) (*AlertStatistics, error) {
	stats := &AlertStatistics{SeverityDistribution: map[string]int64{}}

	if err := r.db.Model(&model.Alert{}).Count(&stats.TotalAlerts).Error; err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}

	dayStart, dayEnd := dayBounds(now)
	if err := r.db.Model(&model.Alert{}).
		Where("timestamp >= ? AND timestamp < ?", dayStart, dayEnd).
		Count(&stats.TodayAlerts).Error; err != nil {
		return nil, fmt.Errorf("failed to count today alerts: %w", err)
	}

	var avg float64
	if err := r.db.Model(&model.Alert{}).Select("COALESCE(AVG(ear_value), 0)").Scan(&avg).Error; err != nil {
		return nil, fmt.Errorf("failed to average ear: %w", err)
	}
	stats.AverageEar = roundEar(avg)

	var rows []struct {
		Severity string
		Count    int64
	}
	if err := r.db.Model(&model.Alert{}).
		Select("severity, COUNT(*) AS count").
		Group("severity").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get severity distribution: %w", err)
	}
	for _, row := range rows {
		stats.SeverityDistribution[row.Severity] = row.Count
	}

	var last []*model.Alert
	if err := r.db.Order("timestamp DESC").Limit(1).Find(&last).Error; err != nil {
		return nil, fmt.Errorf("failed to get last alert: %w", err)
	}
	if len(last) > 0 {
		ts := last[0].Timestamp
		stats.LastAlert = &ts
	}

	return stats, nil
}

// DeleteOlderThan удаляет оповещения старше cutoff
func (r *alertRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", cutoff.UTC()).Delete(&model.Alert{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old alerts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// dayBounds границы суток now в его часовом поясе, переведенные в UTC
func dayBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

func roundEar(v float64) float64 {
	return math.Round(v*1000) / 1000
}
