package detector

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Severity уровень серьезности оповещения
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Rank порядковый номер уровня для сравнения
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// ParseSeverity разбирает строковое значение уровня
func ParseSeverity(v string) (Severity, error) {
	switch s := Severity(v); s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return s, nil
	}
	return "", fmt.Errorf("unknown severity %q", v)
}

// AlertEvent событие сонливости, переданное вызывающему коду
type AlertEvent struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	EarValue          float64   `json:"ear_value"`
	ConsecutiveFrames int       `json:"consecutive_frames"`
	Severity          Severity  `json:"severity"`
	DurationSeconds   float64   `json:"duration_seconds"`
}

// AlertEnded уведомление о завершении оповещения (глаза открылись)
type AlertEnded struct {
	AlertID         string    `json:"alert_id"`
	TriggeredAt     time.Time `json:"triggered_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// Коэффициенты по умолчанию для границ уровней
const (
	DefaultHighEarRatio    = 0.60
	DefaultMediumEarRatio  = 0.85
	DefaultHighFrameFactor = 2
)

// Policy определяет уровень серьезности оповещения.
//
//	HIGH   если avg_ear < threshold*HighEarRatio или кадров > required*HighFrameFactor
//	MEDIUM если avg_ear < threshold*MediumEarRatio
//	LOW    иначе
type Policy struct {
	Threshold       float64
	Required        int
	HighEarRatio    float64
	MediumEarRatio  float64
	HighFrameFactor int
}

// NewPolicy создает политику с коэффициентами по умолчанию
func NewPolicy(cfg Config) *Policy {
	return &Policy{
		Threshold:       cfg.EarThreshold,
		Required:        cfg.ConsecutiveFramesRequired,
		HighEarRatio:    DefaultHighEarRatio,
		MediumEarRatio:  DefaultMediumEarRatio,
		HighFrameFactor: DefaultHighFrameFactor,
	}
}

// Classify возвращает уровень по силе и длительности сигнала
func (p *Policy) Classify(consecutiveFrames int, avgEar float64) Severity {
	if avgEar < p.Threshold*p.HighEarRatio || consecutiveFrames > p.Required*p.HighFrameFactor {
		return SeverityHigh
	}
	if avgEar < p.Threshold*p.MediumEarRatio {
		return SeverityMedium
	}
	return SeverityLow
}

// NewEvent создает событие оповещения
func (p *Policy) NewEvent(now time.Time, avgEar float64, consecutiveFrames int) *AlertEvent {
	return &AlertEvent{
		ID:                uuid.New().String(),
		Timestamp:         now,
		EarValue:          avgEar,
		ConsecutiveFrames: consecutiveFrames,
		Severity:          p.Classify(consecutiveFrames, avgEar),
	}
}

// Message текст оповещения для уведомлений
func Message(severity Severity, avgEar float64, consecutiveFrames int) string {
	switch severity {
	case SeverityHigh:
		return fmt.Sprintf("CRITICAL DROWSINESS: eyes closed for %d frames (EAR %.3f). Stop and rest now!", consecutiveFrames, avgEar)
	case SeverityMedium:
		return fmt.Sprintf("DROWSINESS DETECTED: eyes closed for %d frames (EAR %.3f). Take a break.", consecutiveFrames, avgEar)
	default:
		return fmt.Sprintf("Drowsiness warning: eyes closed for %d frames (EAR %.3f). Stay alert.", consecutiveFrames, avgEar)
	}
}
