package detector

import (
	"time"

	"drowsiness-detector-go/internal/ear"
)

// Summary снимок состояния сессии. Получение снимка не меняет состояние.
type Summary struct {
	State              State         `json:"state"`
	TotalAlerts        int           `json:"total_alerts"`
	SessionStart       time.Time     `json:"session_start"`
	FirstFrameAt       *time.Time    `json:"first_frame_at,omitempty"`
	LastFrameAt        *time.Time    `json:"last_frame_at,omitempty"`
	SessionDuration    time.Duration `json:"-"`
	SessionDurationSec float64       `json:"session_duration"`
	ConsecutiveLow     int           `json:"consecutive_frames"`
	CurrentEar         float64       `json:"current_ear"`
	LastAlertAt        *time.Time    `json:"last_alert_at,omitempty"`
	FramesProcessed    int           `json:"frames_processed"`
	DrowsyFrames       int           `json:"drowsy_frames"`
	DroppedFrames      int           `json:"dropped_frames"`
	DrowsinessRate     float64       `json:"drowsiness_rate"`
	EarTrend           float64       `json:"ear_trend"`
	EarStable          bool          `json:"ear_stable"`
	EarHistory         []ear.Reading `json:"ear_history"`
}

// Summary возвращает снимок сессии
func (m *StateMachine) Summary() Summary {
	s := m.state

	// Длительность считается по часам кадров
	var (
		duration    time.Duration
		first, last *time.Time
	)
	if s.seen {
		duration = s.lastSeen.Sub(s.firstSeen)
		f, l := s.firstSeen, s.lastSeen
		first, last = &f, &l
	}

	var rate float64
	if s.framesProcessed > 0 {
		rate = float64(s.drowsyFrames) / float64(s.framesProcessed) * 100
	}

	var lastAlert *time.Time
	if s.lastAlertTime != nil {
		t := *s.lastAlertTime
		lastAlert = &t
	}

	return Summary{
		State:              m.State(),
		TotalAlerts:        s.totalAlerts,
		SessionStart:       s.sessionStart,
		FirstFrameAt:       first,
		LastFrameAt:        last,
		SessionDuration:    duration,
		SessionDurationSec: duration.Seconds(),
		ConsecutiveLow:     s.consecutiveLow,
		CurrentEar:         s.currentEar,
		LastAlertAt:        lastAlert,
		FramesProcessed:    s.framesProcessed,
		DrowsyFrames:       s.drowsyFrames,
		DroppedFrames:      s.droppedFrames,
		DrowsinessRate:     rate,
		EarTrend:           m.history.Trend(TrendWindow),
		EarStable:          m.history.IsStable(StabilityStdDev, StabilityWindow),
		EarHistory:         m.history.Readings(),
	}
}

// History копия истории EAR
func (m *StateMachine) History() []ear.Reading {
	return m.history.Readings()
}

// EarRange минимальное и максимальное EAR в истории
func (m *StateMachine) EarRange() (float64, float64) {
	return m.history.Range()
}
