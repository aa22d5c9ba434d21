package detector

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig некорректная конфигурация, движок не создается
	ErrInvalidConfig = errors.New("invalid detection config")
	// ErrNonMonotonicTime время кадра меньше времени предыдущего вызова
	ErrNonMonotonicTime = errors.New("non-monotonic time")
	// ErrEngineUnusable движок получил фатальную ошибку и должен быть пересоздан
	ErrEngineUnusable = errors.New("detection engine is unusable")
)

// DefaultHistoryCapacity размер истории EAR по умолчанию (около 5 секунд при 30 fps)
const DefaultHistoryCapacity = 150

// Config параметры детекции одной сессии мониторинга.
// Передается по значению и не меняется в течение жизни StateMachine.
type Config struct {
	EarThreshold              float64       `json:"ear_threshold"`
	ConsecutiveFramesRequired int           `json:"consecutive_frames_required"`
	AlertCooldown             time.Duration `json:"alert_cooldown"`
	MinEarValid               float64       `json:"min_ear_valid"`
	HistoryCapacity           int           `json:"history_capacity"`
}

// DefaultConfig возвращает значения по умолчанию
func DefaultConfig() Config {
	return Config{
		EarThreshold:              0.25,
		ConsecutiveFramesRequired: 20,
		AlertCooldown:             5 * time.Second,
		MinEarValid:               0.05,
		HistoryCapacity:           DefaultHistoryCapacity,
	}
}

// Validate проверяет конфигурацию. Значения не исправляются.
func (c Config) Validate() error {
	if c.EarThreshold < 0 || c.EarThreshold > 1 {
		return fmt.Errorf("%w: ear_threshold %.3f outside [0, 1]", ErrInvalidConfig, c.EarThreshold)
	}
	if c.ConsecutiveFramesRequired <= 0 {
		return fmt.Errorf("%w: consecutive_frames_required must be positive, got %d", ErrInvalidConfig, c.ConsecutiveFramesRequired)
	}
	if c.AlertCooldown < 0 {
		return fmt.Errorf("%w: alert_cooldown must not be negative, got %v", ErrInvalidConfig, c.AlertCooldown)
	}
	if c.MinEarValid <= 0 {
		return fmt.Errorf("%w: min_ear_valid must be positive, got %.3f", ErrInvalidConfig, c.MinEarValid)
	}
	if c.MinEarValid >= c.EarThreshold {
		return fmt.Errorf("%w: min_ear_valid %.3f must be below ear_threshold %.3f", ErrInvalidConfig, c.MinEarValid, c.EarThreshold)
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("%w: history_capacity must be positive, got %d", ErrInvalidConfig, c.HistoryCapacity)
	}
	return nil
}
