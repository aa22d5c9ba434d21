package geo

import (
	"math"
	"testing"

	"drowsiness-detector-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	t.Run("pythagorean triple", func(t *testing.T) {
		d, err := Distance(models.Point2D{X: 0, Y: 0}, models.Point2D{X: 3, Y: 4})
		require.NoError(t, err)
		assert.Equal(t, 5.0, d)
	})

	t.Run("symmetric and non-negative", func(t *testing.T) {
		a := models.Point2D{X: 12.5, Y: -3}
		b := models.Point2D{X: -1, Y: 7.25}
		ab, err := Distance(a, b)
		require.NoError(t, err)
		ba, err := Distance(b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
		assert.Greater(t, ab, 0.0)
	})

	t.Run("same point is zero", func(t *testing.T) {
		p := models.Point2D{X: 10, Y: 15}
		d, err := Distance(p, p)
		require.NoError(t, err)
		assert.Zero(t, d)
	})

	t.Run("non-finite input", func(t *testing.T) {
		cases := []models.Point2D{
			{X: math.NaN(), Y: 0},
			{X: 0, Y: math.Inf(1)},
			{X: math.Inf(-1), Y: 1},
		}
		for _, bad := range cases {
			_, err := Distance(bad, models.Point2D{})
			assert.ErrorIs(t, err, ErrInvalidGeometry)
			_, err = Distance(models.Point2D{}, bad)
			assert.ErrorIs(t, err, ErrInvalidGeometry)
		}
	})
}
