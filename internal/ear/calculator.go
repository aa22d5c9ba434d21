package ear

import (
	"errors"
	"fmt"
	"time"

	"drowsiness-detector-go/internal/geo"
	"drowsiness-detector-go/pkg/models"
)

var (
	// ErrMalformedLandmarks глаз задан не шестью точками
	ErrMalformedLandmarks = errors.New("malformed landmarks")
	// ErrDegenerateGeometry горизонтальное расстояние p1-p4 равно нулю
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)

// Reading значения EAR для одного кадра
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	LeftEar   float64   `json:"left_ear"`
	RightEar  float64   `json:"right_ear"`
	AvgEar    float64   `json:"avg_ear"`
}

// Calculator вычисляет Eye Aspect Ratio по точкам глаза
//
//	EAR = (|p2-p6| + |p3-p5|) / (2 * |p1-p4|)
type Calculator struct{}

// NewCalculator создает новый калькулятор
func NewCalculator() *Calculator {
	return &Calculator{}
}

// ComputeEar вычисляет EAR для одного глаза
func (c *Calculator) ComputeEar(eye models.EyeLandmarks) (float64, error) {
	if len(eye) != models.EyePointCount {
		return 0, fmt.Errorf("%w: eye must contain exactly %d points, got %d", ErrMalformedLandmarks, models.EyePointCount, len(eye))
	}

	// Вертикальные расстояния p2-p6 и p3-p5
	a, err := geo.Distance(eye[1], eye[5])
	if err != nil {
		return 0, err
	}
	b, err := geo.Distance(eye[2], eye[4])
	if err != nil {
		return 0, err
	}

	// Горизонтальное расстояние p1-p4
	h, err := geo.Distance(eye[0], eye[3])
	if err != nil {
		return 0, err
	}
	if h == 0 {
		return 0, fmt.Errorf("%w: p1 and p4 coincide", ErrDegenerateGeometry)
	}

	return (a + b) / (2 * h), nil
}

// ComputeAvgEar вычисляет EAR обоих глаз и среднее значение.
// Ошибка любого глаза делает недействительным весь кадр.
func (c *Calculator) ComputeAvgEar(ts time.Time, left, right models.EyeLandmarks) (Reading, error) {
	leftEar, err := c.ComputeEar(left)
	if err != nil {
		return Reading{}, fmt.Errorf("left eye: %w", err)
	}
	rightEar, err := c.ComputeEar(right)
	if err != nil {
		return Reading{}, fmt.Errorf("right eye: %w", err)
	}

	return Reading{
		Timestamp: ts,
		LeftEar:   leftEar,
		RightEar:  rightEar,
		AvgEar:    (leftEar + rightEar) / 2,
	}, nil
}

// ComputeSample вычисляет Reading для кадра
func (c *Calculator) ComputeSample(sample *models.FrameSample) (Reading, error) {
	return c.ComputeAvgEar(sample.Timestamp, sample.LeftEye, sample.RightEye)
}

// IsDropped сообщает, что ошибка относится к отдельному кадру и кадр нужно пропустить
func IsDropped(err error) bool {
	return errors.Is(err, ErrMalformedLandmarks) ||
		errors.Is(err, ErrDegenerateGeometry) ||
		errors.Is(err, geo.ErrInvalidGeometry)
}
