package repository

import (
	"fmt"
	"testing"
	"time"

	"drowsiness-detector-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(&model.Session{
			ID:        fmt.Sprintf("s%d", i),
			StartTime: base.Add(time.Duration(i) * time.Minute),
			Notes:     fmt.Sprintf("drive %d", i),
		}))
	}
	assert.Error(t, repo.Create(&model.Session{ID: "s0", StartTime: base}))

	t.Run("new session has no totals", func(t *testing.T) {
		s, err := repo.GetByID("s2")
		require.NoError(t, err)
		assert.Equal(t, "drive 2", s.Notes)
		assert.Nil(t, s.EndTime)
		assert.Zero(t, s.TotalAlerts)
		assert.WithinDuration(t, base.Add(2*time.Minute), s.StartTime, 0)
	})

	t.Run("finish", func(t *testing.T) {
		end := base.Add(time.Hour)
		require.NoError(t, repo.Finish("s1", SessionTotals{EndTime: end, TotalAlerts: 3, Duration: 3600, FramesProcessed: 900, DrowsyFrames: 120}))

		s, err := repo.GetByID("s1")
		require.NoError(t, err)
		require.NotNil(t, s.EndTime)
		assert.WithinDuration(t, end, *s.EndTime, 0)
		assert.Equal(t, 3, s.TotalAlerts)
		assert.Equal(t, 3600.0, s.SessionDuration)
		assert.Equal(t, 900, s.FramesProcessed)
		assert.Equal(t, 120, s.DrowsyFrames)

		assert.ErrorIs(t, repo.Finish("nope", SessionTotals{EndTime: end}), ErrNotFound)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetByID("nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("pagination newest first", func(t *testing.T) {
		page, total, err := repo.List(1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, page, 2)
		assert.Equal(t, "s4", page[0].ID)
		assert.Equal(t, "s3", page[1].ID)

		page, _, err = repo.List(3, 2)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "s0", page[0].ID)

		page, total, err = repo.List(9, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Empty(t, page)
	})
}
