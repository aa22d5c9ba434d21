package ear

import (
	"errors"
	"math"
	"testing"
	"time"

	"drowsiness-detector-go/internal/geo"
	"drowsiness-detector-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openEye p1..p6 с вертикалями 10 и горизонталью 10: EAR = (10+10)/(2*10) = 1.0
func openEye() models.EyeLandmarks {
	return models.EyeLandmarks{
		{X: 0, Y: 5},
		{X: 3, Y: 0},
		{X: 7, Y: 0},
		{X: 10, Y: 5},
		{X: 7, Y: 10},
		{X: 3, Y: 10},
	}
}

// eyeWithOpening горизонталь 20, обе вертикали равны opening
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

func TestComputeEar(t *testing.T) {
	calc := NewCalculator()

	t.Run("known geometry", func(t *testing.T) {
		v, err := calc.ComputeEar(openEye())
		require.NoError(t, err)
		assert.InDelta(t, 1.0, v, 1e-12)

		v, err = calc.ComputeEar(eyeWithOpening(5))
		require.NoError(t, err)
		assert.InDelta(t, 0.25, v, 1e-12)
	})

	t.Run("demo landmarks in unit range", func(t *testing.T) {
		eye := models.EyeLandmarks{{X: 10, Y: 15}, {X: 12, Y: 10}, {X: 15, Y: 10}, {X: 20, Y: 15}, {X: 15, Y: 20}, {X: 12, Y: 20}}
		v, err := calc.ComputeEar(eye)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, v, 1e-12)
		assert.False(t, math.IsNaN(v))
	})

	t.Run("closed eye is zero", func(t *testing.T) {
		v, err := calc.ComputeEar(eyeWithOpening(0))
		require.NoError(t, err)
		assert.Zero(t, v)
	})

	t.Run("wrong point count", func(t *testing.T) {
		for _, n := range []int{0, 5, 7} {
			eye := make(models.EyeLandmarks, n)
			_, err := calc.ComputeEar(eye)
			assert.ErrorIs(t, err, ErrMalformedLandmarks, "points=%d", n)
		}
	})

	t.Run("p1 equals p4", func(t *testing.T) {
		eye := openEye()
		eye[3] = eye[0]
		_, err := calc.ComputeEar(eye)
		assert.ErrorIs(t, err, ErrDegenerateGeometry)
	})

	t.Run("non-finite coordinate", func(t *testing.T) {
		eye := openEye()
		eye[2] = models.Point2D{X: math.NaN(), Y: 1}
		_, err := calc.ComputeEar(eye)
		assert.ErrorIs(t, err, geo.ErrInvalidGeometry)
	})

	t.Run("finite for any valid geometry", func(t *testing.T) {
		for opening := 0.0; opening <= 30; opening += 0.5 {
			v, err := calc.ComputeEar(eyeWithOpening(opening))
			require.NoError(t, err)
			assert.False(t, math.IsInf(v, 0) || math.IsNaN(v))
			assert.GreaterOrEqual(t, v, 0.0)
		}
	})
}

func TestComputeAvgEar(t *testing.T) {
	calc := NewCalculator()
	ts := time.Unix(1700000000, 0)

	t.Run("mean of both eyes", func(t *testing.T) {
		r, err := calc.ComputeAvgEar(ts, eyeWithOpening(4), eyeWithOpening(8))
		require.NoError(t, err)
		assert.InDelta(t, 0.2, r.LeftEar, 1e-12)
		assert.InDelta(t, 0.4, r.RightEar, 1e-12)
		assert.InDelta(t, 0.3, r.AvgEar, 1e-12)
		assert.Equal(t, ts, r.Timestamp)
	})

	t.Run("one bad eye fails the reading", func(t *testing.T) {
		_, err := calc.ComputeAvgEar(ts, openEye(), openEye()[:4])
		assert.ErrorIs(t, err, ErrMalformedLandmarks)

		degenerate := openEye()
		degenerate[3] = degenerate[0]
		_, err = calc.ComputeAvgEar(ts, degenerate, openEye())
		assert.ErrorIs(t, err, ErrDegenerateGeometry)
	})

	t.Run("from frame sample", func(t *testing.T) {
		r, err := calc.ComputeSample(&models.FrameSample{Timestamp: ts, LeftEye: openEye(), RightEye: openEye()})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, r.AvgEar, 1e-12)
	})
}

func TestIsDropped(t *testing.T) {
	assert.True(t, IsDropped(ErrMalformedLandmarks))
	assert.True(t, IsDropped(ErrDegenerateGeometry))
	assert.True(t, IsDropped(geo.ErrInvalidGeometry))
	assert.False(t, IsDropped(errors.New("boom")))
	assert.False(t, IsDropped(nil))
}
