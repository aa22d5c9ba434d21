package detector

import (
	"testing"
	"time"

	"drowsiness-detector-go/internal/ear"
	"drowsiness-detector-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionStart = time.Unix(1700000000, 0)

func testConfig() Config {
	return Config{
		EarThreshold:              0.25,
		ConsecutiveFramesRequired: 20,
		AlertCooldown:             5 * time.Second,
		MinEarValid:               0.05,
		HistoryCapacity:           DefaultHistoryCapacity,
	}
}

func newMachine(t *testing.T, opts ...Option) *StateMachine {
	t.Helper()
	m, err := New(testConfig(), sessionStart, opts...)
	require.NoError(t, err)
	return m
}

func reading(v float64, ts time.Time) *ear.Reading {
	return &ear.Reading{Timestamp: ts, LeftEar: v, RightEar: v, AvgEar: v}
}

func at(d time.Duration) time.Time { return sessionStart.Add(d) }

// feed подает кадры с шагом step начиная с from; возвращает все события
func feed(t *testing.T, m *StateMachine, v float64, n int, from, step time.Duration) []*AlertEvent {
	t.Helper()
	var events []*AlertEvent
	for i := 0; i < n; i++ {
		ts := at(from + time.Duration(i)*step)
		ev, err := m.Update(reading(v, ts), ts)
		require.NoError(t, err)
		if ev != nil {
			events = append(events, ev)
		}
	}
	return events
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"threshold above one":  func(c *Config) { c.EarThreshold = 1.5 },
		"negative threshold":   func(c *Config) { c.EarThreshold = -0.1 },
		"zero frames":          func(c *Config) { c.ConsecutiveFramesRequired = 0 },
		"negative frames":      func(c *Config) { c.ConsecutiveFramesRequired = -3 },
		"negative cooldown":    func(c *Config) { c.AlertCooldown = -time.Second },
		"zero min ear":         func(c *Config) { c.MinEarValid = 0 },
		"min ear above thresh": func(c *Config) { c.MinEarValid = 0.3 },
		"zero history":         func(c *Config) { c.HistoryCapacity = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			m, err := New(cfg, sessionStart)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Nil(t, m)
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})
}

func TestNineteenLowFramesThenOpenDoesNotAlert(t *testing.T) {
	m := newMachine(t)

	events := feed(t, m, 0.15, 19, time.Second, time.Second)
	assert.Empty(t, events)
	assert.Equal(t, 19, m.ConsecutiveLowCount())

	ev, err := m.Update(reading(0.30, at(20*time.Second)), at(20*time.Second))
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Zero(t, m.ConsecutiveLowCount())
	assert.Equal(t, StateAwake, m.State())
}

func TestTwentyLowFramesEmitExactlyOneAlert(t *testing.T) {
	m := newMachine(t)

	var fired []int
	for i := 1; i <= 20; i++ {
		ts := at(time.Duration(i) * time.Second)
		ev, err := m.Update(reading(0.15, ts), ts)
		require.NoError(t, err)
		if ev != nil {
			fired = append(fired, i)
			assert.Equal(t, 20, ev.ConsecutiveFrames)
			assert.Equal(t, 0.15, ev.EarValue)
			assert.Equal(t, ts, ev.Timestamp)
			assert.NotEmpty(t, ev.ID)
			assert.Zero(t, ev.DurationSeconds)
		}
	}
	assert.Equal(t, []int{20}, fired)
	assert.Equal(t, StateAlerting, m.State())

	// Пока оповещение активно, новые события не создаются
	events := feed(t, m, 0.10, 100, 21*time.Second, time.Second)
	assert.Empty(t, events)
	assert.Equal(t, 120, m.ConsecutiveLowCount())
	assert.Equal(t, 1, m.Summary().TotalAlerts)
}

func TestCooldownSuppressesEmissionNotCounting(t *testing.T) {
	m := newMachine(t)

	first := feed(t, m, 0.15, 20, time.Second, time.Second)
	require.Len(t, first, 1)
	trigger := first[0].Timestamp

	// Глаза открылись
	ev, err := m.Update(reading(0.30, trigger.Add(100*time.Millisecond)), trigger.Add(100*time.Millisecond))
	require.NoError(t, err)
	require.Nil(t, ev)
	require.Equal(t, StateAwake, m.State())

	// Кадры k=2..49 идут внутри паузы: серия достигает 20 на k=21, но события нет
	for k := 2; k <= 49; k++ {
		ts := trigger.Add(time.Duration(k) * 100 * time.Millisecond)
		ev, err := m.Update(reading(0.15, ts), ts)
		require.NoError(t, err)
		require.Nil(t, ev, "unexpected alert at k=%d", k)
	}
	assert.Equal(t, 48, m.ConsecutiveLowCount())

	// Первый низкий кадр на отметке 5 секунд срабатывает сразу
	ts := trigger.Add(5 * time.Second)
	ev, err = m.Update(reading(0.15, ts), ts)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, 49, ev.ConsecutiveFrames)
	assert.Equal(t, SeverityHigh, ev.Severity)
	assert.Equal(t, 2, m.Summary().TotalAlerts)
}

func TestReopeningFinalizesDuration(t *testing.T) {
	var ended []AlertEnded
	m := newMachine(t, WithAlertEndedHandler(func(e AlertEnded) { ended = append(ended, e) }))

	events := feed(t, m, 0.12, 20, time.Second, time.Second)
	require.Len(t, events, 1)

	feed(t, m, 0.12, 5, 21*time.Second, time.Second)

	reopen := at(27500 * time.Millisecond)
	ev, err := m.Update(reading(0.31, reopen), reopen)
	require.NoError(t, err)
	assert.Nil(t, ev)

	require.Len(t, ended, 1)
	assert.Equal(t, events[0].ID, ended[0].AlertID)
	assert.Equal(t, events[0].Timestamp, ended[0].TriggeredAt)
	assert.Equal(t, reopen, ended[0].EndedAt)
	assert.InDelta(t, 7.5, ended[0].DurationSeconds, 1e-9)
	assert.Equal(t, StateAwake, m.State())
	assert.Zero(t, m.ConsecutiveLowCount())

	// Повторное открытие не создает второго уведомления
	_, err = m.Update(reading(0.31, reopen.Add(time.Second)), reopen.Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, ended, 1)
}

func TestDroppedFramesAreTransparent(t *testing.T) {
	m := newMachine(t)

	feed(t, m, 0.15, 10, time.Second, time.Second)
	require.Equal(t, 10, m.ConsecutiveLowCount())

	// Пропущенный кадр и кадр с вырожденным EAR ниже min_ear_valid
	ev, err := m.Update(nil, at(11*time.Second))
	require.NoError(t, err)
	assert.Nil(t, ev)
	ev, err = m.Update(reading(0.01, at(12*time.Second)), at(12*time.Second))
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, 10, m.ConsecutiveLowCount())

	events := feed(t, m, 0.15, 10, 13*time.Second, time.Second)
	require.Len(t, events, 1)
	assert.Equal(t, 20, events[0].ConsecutiveFrames)

	s := m.Summary()
	assert.Equal(t, 2, s.DroppedFrames)
	assert.Equal(t, 20, s.FramesProcessed)
}

func TestDroppedFramesDoNotEndAlert(t *testing.T) {
	m := newMachine(t)
	require.Len(t, feed(t, m, 0.15, 20, time.Second, time.Second), 1)

	_, err := m.Update(nil, at(21*time.Second))
	require.NoError(t, err)
	assert.Equal(t, StateAlerting, m.State())
	assert.Equal(t, 20, m.ConsecutiveLowCount())
}

func TestIdenticalInputsAreDeterministic(t *testing.T) {
	a := newMachine(t)
	b := newMachine(t)

	for i := 1; i <= 30; i++ {
		ts := at(time.Duration(i) * time.Second)
		v := 0.15
		if i%7 == 0 {
			v = 0.28
		}
		evA, errA := a.Update(reading(v, ts), ts)
		evB, errB := b.Update(reading(v, ts), ts)
		require.NoError(t, errA)
		require.NoError(t, errB)
		assert.Equal(t, evA == nil, evB == nil)
		assert.Equal(t, a.ConsecutiveLowCount(), b.ConsecutiveLowCount())
	}

	// Одинаковое показание дважды в один момент
	m := newMachine(t)
	ts := at(time.Second)
	_, err := m.Update(reading(0.2, ts), ts)
	require.NoError(t, err)
	_, err = m.Update(reading(0.2, ts), ts)
	require.NoError(t, err)
	assert.Equal(t, 2, m.ConsecutiveLowCount())
}

func TestNonMonotonicTimePoisonsEngine(t *testing.T) {
	m := newMachine(t)

	_, err := m.Update(reading(0.2, at(5*time.Second)), at(5*time.Second))
	require.NoError(t, err)

	_, err = m.Update(reading(0.2, at(4*time.Second)), at(4*time.Second))
	assert.ErrorIs(t, err, ErrNonMonotonicTime)
	assert.Equal(t, 1, m.ConsecutiveLowCount())

	_, err = m.Update(reading(0.2, at(6*time.Second)), at(6*time.Second))
	assert.ErrorIs(t, err, ErrEngineUnusable)
	assert.ErrorIs(t, m.Err(), ErrNonMonotonicTime)

}

func TestFirstFrameMayPrecedeSessionStart(t *testing.T) {
	t.Run("client clock behind server", func(t *testing.T) {
		m := newMachine(t)
		_, err := m.Update(reading(0.15, at(-time.Millisecond)), at(-time.Millisecond))
		require.NoError(t, err)
		_, err = m.Update(reading(0.15, at(time.Second)), at(time.Second))
		require.NoError(t, err)
		assert.Equal(t, 2, m.ConsecutiveLowCount())
		assert.NoError(t, m.Err())
	})

	t.Run("relative camera clock", func(t *testing.T) {
		m := newMachine(t)
		for _, ms := range []int64{33, 66, 99} {
			ts := time.UnixMilli(ms)
			_, err := m.Update(reading(0.30, ts), ts)
			require.NoError(t, err)
		}

		s := m.Summary()
		assert.Equal(t, 66*time.Millisecond, s.SessionDuration)
		assert.Equal(t, sessionStart, s.SessionStart)
		require.NotNil(t, s.FirstFrameAt)
		assert.Equal(t, time.UnixMilli(33), *s.FirstFrameAt)
		require.NotNil(t, s.LastFrameAt)
		assert.Equal(t, time.UnixMilli(99), *s.LastFrameAt)

		_, err := m.Update(nil, time.UnixMilli(98))
		assert.ErrorIs(t, err, ErrNonMonotonicTime)
	})

	t.Run("no frames yet", func(t *testing.T) {
		s := newMachine(t).Summary()
		assert.Zero(t, s.SessionDuration)
		assert.Nil(t, s.FirstFrameAt)
		assert.Nil(t, s.LastFrameAt)
	})
}

func TestZeroCooldownAlertsOnEveryRun(t *testing.T) {
	cfg := testConfig()
	cfg.AlertCooldown = 0
	cfg.ConsecutiveFramesRequired = 3
	m, err := New(cfg, sessionStart)
	require.NoError(t, err)

	assert.Len(t, feed(t, m, 0.1, 3, time.Second, time.Second), 1)
	feed(t, m, 0.3, 1, 4*time.Second, time.Second)
	assert.Len(t, feed(t, m, 0.1, 3, 5*time.Second, time.Second), 1)
}

func TestFinishClosesOpenAlert(t *testing.T) {
	m := newMachine(t)
	assert.Nil(t, m.Finish())

	events := feed(t, m, 0.15, 22, time.Second, time.Second)
	require.Len(t, events, 1)

	ended := m.Finish()
	require.NotNil(t, ended)
	assert.Equal(t, events[0].ID, ended.AlertID)
	assert.InDelta(t, 2.0, ended.DurationSeconds, 1e-9)
	assert.Equal(t, StateAwake, m.State())
	assert.Nil(t, m.Finish())

	t.Run("unusable engine still closes alert", func(t *testing.T) {
		m := newMachine(t)
		events := feed(t, m, 0.15, 22, time.Second, time.Second)
		require.Len(t, events, 1)

		_, err := m.Update(reading(0.15, at(time.Second)), at(time.Second))
		require.ErrorIs(t, err, ErrNonMonotonicTime)

		ended := m.Finish()
		require.NotNil(t, ended)
		assert.Equal(t, events[0].ID, ended.AlertID)
		assert.Equal(t, at(22*time.Second), ended.EndedAt)
		assert.InDelta(t, 2.0, ended.DurationSeconds, 1e-9)
	})
}

func TestSummarySnapshot(t *testing.T) {
	m := newMachine(t)
	feed(t, m, 0.30, 10, time.Second, time.Second)
	feed(t, m, 0.15, 20, 11*time.Second, time.Second)

	s := m.Summary()
	assert.Equal(t, StateAlerting, s.State)
	assert.Equal(t, 1, s.TotalAlerts)
	assert.Equal(t, 29*time.Second, s.SessionDuration)
	assert.Equal(t, 29.0, s.SessionDurationSec)
	assert.Equal(t, 20, s.ConsecutiveLow)
	assert.Equal(t, 30, s.FramesProcessed)
	assert.Equal(t, 20, s.DrowsyFrames)
	assert.InDelta(t, 66.666, s.DrowsinessRate, 0.01)
	assert.InDelta(t, 0.15, s.EarTrend, 1e-9)
	assert.True(t, s.EarStable)
	assert.Len(t, s.EarHistory, 30)
	require.NotNil(t, s.LastAlertAt)
	assert.Equal(t, at(30*time.Second), *s.LastAlertAt)

	// Снимок не меняет состояние и не разделяет память с движком
	s.EarHistory[0].AvgEar = 99
	again := m.Summary()
	assert.Equal(t, 0.30, again.EarHistory[0].AvgEar)
	assert.Equal(t, s.TotalAlerts, again.TotalAlerts)
	assert.Equal(t, s.ConsecutiveLow, again.ConsecutiveLow)
}

func TestHistoryIsBounded(t *testing.T) {
	cfg := testConfig()
	cfg.HistoryCapacity = 5
	m, err := New(cfg, sessionStart)
	require.NoError(t, err)

	for i := 1; i <= 8; i++ {
		ts := at(time.Duration(i) * time.Second)
		_, err := m.Update(reading(0.2+float64(i)/100, ts), ts)
		require.NoError(t, err)
	}

	h := m.History()
	require.Len(t, h, 5)
	assert.Equal(t, at(4*time.Second), h[0].Timestamp)
	assert.Equal(t, at(8*time.Second), h[4].Timestamp)
}

func eyeWithOpening(opening float64) models.EyeLandmarks {
	return models.EyeLandmarks{
		{X: 0, Y: 0},
		{X: 6, Y: -opening / 2},
		{X: 14, Y: -opening / 2},
		{X: 20, Y: 0},
		{X: 14, Y: opening / 2},
		{X: 6, Y: opening / 2},
	}
}

func TestProcessFrame(t *testing.T) {
	calc := ear.NewCalculator()

	t.Run("valid sample", func(t *testing.T) {
		m := newMachine(t)
		ts := at(time.Second)
		out, err := m.ProcessFrame(&models.FrameSample{Timestamp: ts, LeftEye: eyeWithOpening(3), RightEye: eyeWithOpening(3)}, ts, calc)
		require.NoError(t, err)
		require.NotNil(t, out.Reading)
		assert.InDelta(t, 0.15, out.Reading.AvgEar, 1e-12)
		assert.False(t, out.Dropped)
		assert.Equal(t, 1, out.LowCount)
		assert.Equal(t, StateAwake, out.State)
	})

	t.Run("no face", func(t *testing.T) {
		m := newMachine(t)
		out, err := m.ProcessFrame(nil, at(time.Second), calc)
		require.NoError(t, err)
		assert.True(t, out.Dropped)
		assert.Equal(t, "no face detected", out.DropReason)
	})

	t.Run("malformed and degenerate landmarks are dropped", func(t *testing.T) {
		m := newMachine(t)
		for i := 1; i <= 5; i++ {
			ts := at(time.Duration(i) * time.Second)
			_, err := m.ProcessFrame(&models.FrameSample{Timestamp: ts, LeftEye: eyeWithOpening(3), RightEye: eyeWithOpening(3)}, ts, calc)
			require.NoError(t, err)
		}

		ts := at(6 * time.Second)
		out, err := m.ProcessFrame(&models.FrameSample{Timestamp: ts, LeftEye: eyeWithOpening(3)[:5], RightEye: eyeWithOpening(3)}, ts, calc)
		require.NoError(t, err)
		assert.True(t, out.Dropped)
		assert.Contains(t, out.DropReason, "malformed")
		assert.Equal(t, 5, out.LowCount)

		flat := make(models.EyeLandmarks, 6)
		out, err = m.ProcessFrame(&models.FrameSample{Timestamp: ts, LeftEye: flat, RightEye: flat}, ts, calc)
		require.NoError(t, err)
		assert.True(t, out.Dropped)
		assert.Contains(t, out.DropReason, "degenerate")
		assert.Equal(t, 5, out.LowCount)
	})

	t.Run("non-monotonic time is returned as error", func(t *testing.T) {
		m := newMachine(t)
		_, err := m.ProcessFrame(nil, at(2*time.Second), calc)
		require.NoError(t, err)
		_, err = m.ProcessFrame(nil, at(time.Second), calc)
		assert.ErrorIs(t, err, ErrNonMonotonicTime)
	})
}

func TestStateText(t *testing.T) {
	for _, s := range []State{StateAwake, StateAlerting} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back State
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	var s State
	assert.Error(t, s.UnmarshalText([]byte("DROWSY")))
}
