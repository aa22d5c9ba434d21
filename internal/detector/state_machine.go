package detector

import (
	"fmt"
	"time"

	"drowsiness-detector-go/internal/ear"
	"drowsiness-detector-go/pkg/models"
)

// State состояние движка детекции
type State int

const (
	StateAwake State = iota
	StateAlerting
)

func (s State) String() string {
	if s == StateAlerting {
		return "ALERTING"
	}
	return "AWAKE"
}

// MarshalText сериализует состояние строкой
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText разбирает состояние из строки
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "AWAKE":
		*s = StateAwake
	case "ALERTING":
		*s = StateAlerting
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}

// Option настройка StateMachine
type Option func(*StateMachine)

// WithPolicy подменяет политику уровней серьезности
func WithPolicy(p *Policy) Option {
	return func(m *StateMachine) { m.policy = p }
}

// WithAlertEndedHandler вызывается, когда глаза открылись во время оповещения
func WithAlertEndedHandler(fn func(AlertEnded)) Option {
	return func(m *StateMachine) { m.onAlertEnded = fn }
}

// detectionState изменяемое состояние одной сессии
type detectionState struct {
	consecutiveLow int
	alerting       bool
	lastAlertTime  *time.Time
	activeAlertID  string
	sessionStart   time.Time
	totalAlerts    int

	// Время кадров задает клиент, начало отсчета берется из первого кадра
	seen      bool
	firstSeen time.Time
	lastSeen  time.Time

	framesProcessed int
	drowsyFrames    int
	droppedFrames   int
	currentEar      float64
}

// StateMachine превращает поток EAR в оповещения с учетом порога, серии кадров и паузы.
// Не безопасен для конкурентного использования: один экземпляр на сессию.
type StateMachine struct {
	cfg          Config
	policy       *Policy
	onAlertEnded func(AlertEnded)
	state        detectionState
	history      *History
	broken       error
}

// New создает движок для новой сессии, созданной в момент start.
// start не участвует в проверке монотонности: часы кадров могут быть относительными.
func New(cfg Config, start time.Time, opts ...Option) (*StateMachine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &StateMachine{
		cfg:     cfg,
		policy:  NewPolicy(cfg),
		history: NewHistory(cfg.HistoryCapacity),
		state: detectionState{
			sessionStart: start,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config конфигурация движка
func (m *StateMachine) Config() Config { return m.cfg }

// State текущее состояние
func (m *StateMachine) State() State {
	if m.state.alerting {
		return StateAlerting
	}
	return StateAwake
}

// ConsecutiveLowCount текущая серия кадров с низким EAR
func (m *StateMachine) ConsecutiveLowCount() int { return m.state.consecutiveLow }

// Err фатальная ошибка, после которой движок непригоден
func (m *StateMachine) Err() error { return m.broken }

// advance проверяет монотонность времени
func (m *StateMachine) advance(now time.Time) error {
	if m.broken != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnusable, m.broken)
	}
	if !m.state.seen {
		m.state.seen = true
		m.state.firstSeen = now
		m.state.lastSeen = now
		return nil
	}
	if now.Before(m.state.lastSeen) {
		m.broken = fmt.Errorf("%w: %s is before %s", ErrNonMonotonicTime,
			now.Format(time.RFC3339Nano), m.state.lastSeen.Format(time.RFC3339Nano))
		return m.broken
	}
	m.state.lastSeen = now
	return nil
}

// Update обрабатывает показание кадра. reading == nil означает пропущенный кадр
// (лицо не найдено или точки некорректны): состояние не меняется.
func (m *StateMachine) Update(reading *ear.Reading, now time.Time) (*AlertEvent, error) {
	if err := m.advance(now); err != nil {
		return nil, err
	}

	if reading == nil || reading.AvgEar < m.cfg.MinEarValid {
		m.state.droppedFrames++
		return nil, nil
	}

	m.state.framesProcessed++
	m.state.currentEar = reading.AvgEar
	m.history.Push(*reading)

	// Глаза открыты
	if reading.AvgEar >= m.cfg.EarThreshold {
		if m.state.alerting {
			ended := m.endAlert(now)
			if m.onAlertEnded != nil {
				m.onAlertEnded(ended)
			}
		}
		m.state.consecutiveLow = 0
		return nil, nil
	}

	m.state.consecutiveLow++
	m.state.drowsyFrames++

	if m.state.alerting || m.state.consecutiveLow < m.cfg.ConsecutiveFramesRequired {
		return nil, nil
	}

	// Пауза подавляет только отправку, счетчик продолжает расти
	if m.inCooldown(now) {
		return nil, nil
	}

	m.state.alerting = true
	m.state.lastAlertTime = &now
	m.state.totalAlerts++

	event := m.policy.NewEvent(now, reading.AvgEar, m.state.consecutiveLow)
	m.state.activeAlertID = event.ID
	return event, nil
}

func (m *StateMachine) inCooldown(now time.Time) bool {
	if m.state.lastAlertTime == nil {
		return false
	}
	return now.Sub(*m.state.lastAlertTime) < m.cfg.AlertCooldown
}

func (m *StateMachine) endAlert(now time.Time) AlertEnded {
	ended := AlertEnded{
		AlertID:         m.state.activeAlertID,
		TriggeredAt:     *m.state.lastAlertTime,
		EndedAt:         now,
		DurationSeconds: now.Sub(*m.state.lastAlertTime).Seconds(),
	}
	m.state.alerting = false
	m.state.activeAlertID = ""
	return ended
}

// Finish завершает активное оповещение в момент последнего принятого кадра (при остановке сессии).
// Работает и для непригодного движка. Возвращает nil, если оповещения нет.
func (m *StateMachine) Finish() *AlertEnded {
	if !m.state.alerting {
		return nil
	}
	ended := m.endAlert(m.state.lastSeen)
	m.state.consecutiveLow = 0
	return &ended
}

// FrameOutcome результат обработки одного кадра
type FrameOutcome struct {
	Reading    *ear.Reading `json:"reading,omitempty"`
	Dropped    bool         `json:"dropped"`
	DropReason string       `json:"drop_reason,omitempty"`
	State      State        `json:"state"`
	LowCount   int          `json:"consecutive_frames"`
	Alert      *AlertEvent  `json:"alert,omitempty"`
}

// ProcessFrame считает EAR по точкам кадра и обновляет состояние.
// sample == nil означает, что лицо не найдено.
func (m *StateMachine) ProcessFrame(sample *models.FrameSample, now time.Time, calc *ear.Calculator) (FrameOutcome, error) {
	var (
		reading *ear.Reading
		reason  string
	)

	if sample == nil {
		reason = "no face detected"
	} else {
		r, err := calc.ComputeSample(sample)
		switch {
		case err == nil && r.AvgEar < m.cfg.MinEarValid:
			reason = fmt.Sprintf("ear %.4f below min_ear_valid %.4f", r.AvgEar, m.cfg.MinEarValid)
		case err == nil:
			reading = &r
		case ear.IsDropped(err):
			reason = err.Error()
		default:
			return FrameOutcome{}, err
		}
	}

	alert, err := m.Update(reading, now)
	if err != nil {
		return FrameOutcome{}, err
	}

	return FrameOutcome{
		Reading:    reading,
		Dropped:    reading == nil,
		DropReason: reason,
		State:      m.State(),
		LowCount:   m.state.consecutiveLow,
		Alert:      alert,
	}, nil
}
