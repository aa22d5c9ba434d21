package service

import (
	"context"
	"fmt"
	"time"

	"drowsiness-detector-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// LandmarkDetector сервис поиска точек лица на кадре
type LandmarkDetector interface {
	DetectLandmarks(imageData []byte, filename string) (*models.LandmarkAPIResponse, error)
	CheckHealth() (*models.HealthResponse, error)
}

// FrameAnalyzer получает разметку лица для изображения кадра и передает ее в мониторинг
type FrameAnalyzer struct {
	detector LandmarkDetector
	monitor  *MonitorService
	logger   *logrus.Logger
}

// NewFrameAnalyzer создает новый анализатор кадров
func NewFrameAnalyzer(detector LandmarkDetector, monitor *MonitorService, logger *logrus.Logger) *FrameAnalyzer {
	return &FrameAnalyzer{
		detector: detector,
		monitor:  monitor,
		logger:   logger,
	}
}

// AnalyzeImage обрабатывает изображение кадра сессии
func (a *FrameAnalyzer) AnalyzeImage(ctx context.Context, sessionID string, imageData []byte, filename string, ts time.Time) (*FrameResponse, error) {
	// Сессия проверяется до обращения к внешнему сервису
	if _, err := a.monitor.session(sessionID); err != nil {
		return nil, err
	}
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidRequest)
	}

	resp, err := a.detector.DetectLandmarks(imageData, filename)
	if err != nil {
		a.logger.WithField("session_id", sessionID).Errorf("Ошибка обращения к сервису разметки: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrLandmarkService, err)
	}
	if resp.Status != "" && resp.Status != "success" {
		a.logger.WithField("session_id", sessionID).Errorf("Сервис разметки вернул ошибку: %s", resp.Message)
		return nil, fmt.Errorf("%w: %s", ErrLandmarkService, resp.Message)
	}

	var face models.FaceLandmarks
	if resp.FaceDetected {
		face = resp.Face()
	}
	return a.monitor.ProcessLandmarks(ctx, sessionID, face, ts)
}

// CheckHealth проверяет состояние сервиса разметки
func (a *FrameAnalyzer) CheckHealth() *models.HealthResponse {
	health, err := a.detector.CheckHealth()
	if err != nil {
		a.logger.Errorf("Сервис разметки недоступен: %v", err)
		return &models.HealthResponse{
			Status:      "unhealthy",
			ModelLoaded: false,
			Version:     "1.0.0",
		}
	}
	return health
}
