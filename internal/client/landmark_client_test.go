package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"drowsiness-detector-go/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *LandmarkClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewLandmarkClient(srv.URL, 5*time.Second, logger)
}

func TestDetectLandmarks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/landmarks", r.URL.Path)

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "frame.jpg", header.Filename)
		assert.Equal(t, []byte("jpeg-bytes"), data)

		landmarks := make([][2]float64, 68)
		for i := range landmarks {
			landmarks[i] = [2]float64{float64(i), float64(i * 2)}
		}
		json.NewEncoder(w).Encode(models.LandmarkAPIResponse{
			Status:       "success",
			FaceDetected: true,
			Landmarks:    landmarks,
		})
	})

	resp, err := c.DetectLandmarks([]byte("jpeg-bytes"), "frame.jpg")
	require.NoError(t, err)
	assert.True(t, resp.FaceDetected)

	face := resp.Face()
	require.Len(t, face, 68)
	assert.Equal(t, models.Point2D{X: 36, Y: 72}, face[36])
}

func TestDetectLandmarksErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	})

	_, err := c.DetectLandmarks([]byte("x"), "frame.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestCheckHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"healthy","model_loaded":true,"version":"2.1.0"}`))
	})

	health, err := c.CheckHealth()
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.ModelLoaded)
	assert.Equal(t, "2.1.0", health.Version)
}

func TestCheckHealthBadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := c.CheckHealth()
	assert.ErrorContains(t, err, "JSON")
}
