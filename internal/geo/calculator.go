package geo

import (
	"errors"
	"fmt"
	"math"

	"drowsiness-detector-go/pkg/models"
)

// ErrInvalidGeometry возвращается для координат NaN или бесконечности
var ErrInvalidGeometry = errors.New("invalid geometry")

// Distance вычисляет евклидово расстояние между двумя точками кадра
func Distance(a, b models.Point2D) (float64, error) {
	if !finite(a) || !finite(b) {
		return 0, fmt.Errorf("%w: non-finite point (%v, %v) - (%v, %v)", ErrInvalidGeometry, a.X, a.Y, b.X, b.Y)
	}
	return math.Hypot(a.X-b.X, a.Y-b.Y), nil
}

func finite(p models.Point2D) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
