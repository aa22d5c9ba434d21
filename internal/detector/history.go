package detector

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"drowsiness-detector-go/internal/ear"
)

// Окна для трендов, как в исходном приложении
const (
	TrendWindow     = 10
	StabilityWindow = 5
	StabilityStdDev = 0.05
	MovingAvgWindow = 5
)

// History кольцевой буфер последних показаний EAR с вытеснением самых старых
type History struct {
	buf   []ear.Reading
	start int
	size  int
}

// NewHistory создает буфер заданной емкости
func NewHistory(capacity int) *History {
	return &History{buf: make([]ear.Reading, capacity)}
}

// Push добавляет показание, при переполнении удаляя самое старое
func (h *History) Push(r ear.Reading) {
	if len(h.buf) == 0 {
		return
	}
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = r
		h.size++
		return
	}
	h.buf[h.start] = r
	h.start = (h.start + 1) % len(h.buf)
}

// Len текущее количество показаний
func (h *History) Len() int { return h.size }

// Readings копия показаний от старого к новому
func (h *History) Readings() []ear.Reading {
	out := make([]ear.Reading, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Values средние EAR от старого к новому
func (h *History) Values() []float64 {
	out := make([]float64, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)].AvgEar
	}
	return out
}

func (h *History) tail(window int) []float64 {
	values := h.Values()
	if window <= 0 || window >= len(values) {
		return values
	}
	return values[len(values)-window:]
}

// Trend среднее EAR за последние window показаний
func (h *History) Trend(window int) float64 {
	recent := h.tail(window)
	if len(recent) == 0 {
		return 0
	}
	return stat.Mean(recent, nil)
}

// IsStable проверяет, что разброс EAR за последние window показаний меньше threshold
func (h *History) IsStable(threshold float64, window int) bool {
	if h.size < window || window < 2 {
		return false
	}
	return stat.StdDev(h.tail(window), nil) < threshold
}

// Range минимальное и максимальное EAR в истории
func (h *History) Range() (float64, float64) {
	values := h.Values()
	if len(values) == 0 {
		return 0, 0
	}
	return floats.Min(values), floats.Max(values)
}

// MovingAverage скользящее среднее по окну window.
// Первые window-1 значений остаются исходными.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) < window {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}

	out := make([]float64, 0, len(values))
	out = append(out, values[:window-1]...)
	for i := 0; i+window <= len(values); i++ {
		out = append(out, stat.Mean(values[i:i+window], nil))
	}
	return out
}
