package service

import (
	"time"

	"drowsiness-detector-go/internal/detector"
	"drowsiness-detector-go/internal/ear"
	"drowsiness-detector-go/internal/model"
	"drowsiness-detector-go/pkg/models"
)

// StartSessionRequest запрос на начало сессии мониторинга
type StartSessionRequest struct {
	Notes string `json:"notes"`
}

// SessionInfo ответ с информацией о созданной сессии
type SessionInfo struct {
	SessionID string         `json:"session_id"`
	StartTime time.Time      `json:"start_time"`
	Notes     string         `json:"notes,omitempty"`
	Config    ConfigResponse `json:"config"`
}

// ConfigResponse параметры детекции в виде для клиента
type ConfigResponse struct {
	EarThreshold         float64 `json:"ear_threshold"`
	ConsecutiveFrames    int     `json:"consecutive_frames"`
	AlertCooldownSeconds float64 `json:"alert_cooldown_seconds"`
	MinEarValid          float64 `json:"min_ear_valid"`
	HistorySize          int     `json:"history_size"`
}

func newConfigResponse(cfg detector.Config) ConfigResponse {
	return ConfigResponse{
		EarThreshold:         cfg.EarThreshold,
		ConsecutiveFrames:    cfg.ConsecutiveFramesRequired,
		AlertCooldownSeconds: cfg.AlertCooldown.Seconds(),
		MinEarValid:          cfg.MinEarValid,
		HistorySize:          cfg.HistoryCapacity,
	}
}

// FrameRequest кадр от клиента: либо точки глаз, либо полная разметка лица (68 точек)
type FrameRequest struct {
	TimestampMs  *int64              `json:"timestamp_ms,omitempty"`
	FaceDetected *bool               `json:"face_detected,omitempty"`
	LeftEye      models.EyeLandmarks `json:"left_eye,omitempty"`
	RightEye     models.EyeLandmarks `json:"right_eye,omitempty"`
	Landmarks    [][2]float64        `json:"landmarks,omitempty"`
}

// Time время кадра; без timestamp_ms используется fallback
func (r *FrameRequest) Time(fallback time.Time) time.Time {
	if r.TimestampMs == nil {
		return fallback
	}
	return time.UnixMilli(*r.TimestampMs)
}

// Sample собирает точки кадра. nil означает, что лицо не найдено.
func (r *FrameRequest) Sample(ts time.Time) *models.FrameSample {
	if r.FaceDetected != nil && !*r.FaceDetected {
		return nil
	}
	if len(r.Landmarks) > 0 {
		face := (&models.LandmarkAPIResponse{Landmarks: r.Landmarks}).Face()
		return faceSample(face, ts)
	}
	if r.LeftEye == nil && r.RightEye == nil {
		return nil
	}
	return &models.FrameSample{Timestamp: ts, LeftEye: r.LeftEye, RightEye: r.RightEye}
}

// faceSample выделяет глаза из разметки лица. Неполная разметка дает кадр
// без точек глаз, который движок пропустит как некорректный.
func faceSample(face models.FaceLandmarks, ts time.Time) *models.FrameSample {
	sample, err := face.Sample(ts)
	if err != nil {
		return &models.FrameSample{Timestamp: ts}
	}
	return sample
}

// FrameResponse результат обработки кадра
type FrameResponse struct {
	SessionID string `json:"session_id"`
	detector.FrameOutcome
	Message string `json:"message,omitempty"`
}

// SessionSummary сводка активной сессии
type SessionSummary struct {
	SessionID string `json:"session_id"`
	Notes     string `json:"notes,omitempty"`
	detector.Summary
}

// HistoryResponse история EAR сессии
type HistoryResponse struct {
	SessionID     string        `json:"session_id"`
	Readings      []ear.Reading `json:"readings"`
	MovingAverage []float64     `json:"moving_average"`
	MinEar        float64       `json:"min_ear"`
	MaxEar        float64       `json:"max_ear"`
}

// StopSessionResponse итог завершенной сессии
type StopSessionResponse struct {
	SessionID string               `json:"session_id"`
	EndTime   time.Time            `json:"end_time"`
	Closed    *detector.AlertEnded `json:"closed_alert,omitempty"`
	Summary   detector.Summary     `json:"summary"`
}

// ListSessionsResponse ответ со списком сессий
type ListSessionsResponse struct {
	Sessions []*model.Session `json:"sessions"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Size     int              `json:"size"`
	Active   []string         `json:"active_sessions"`
}

// AlertListResponse ответ со списком оповещений
type AlertListResponse struct {
	Alerts []*model.Alert `json:"alerts"`
	Total  int            `json:"total"`
}

// AtLeast оставляет оповещения с уровнем не ниже level
func (r *AlertListResponse) AtLeast(level detector.Severity) *AlertListResponse {
	kept := make([]*model.Alert, 0, len(r.Alerts))
	for _, a := range r.Alerts {
		if detector.Severity(a.Severity).Rank() >= level.Rank() {
			kept = append(kept, a)
		}
	}
	return &AlertListResponse{Alerts: kept, Total: len(kept)}
}

// ClearAlertsResponse результат очистки старых оповещений
type ClearAlertsResponse struct {
	Deleted       int64 `json:"deleted"`
	OlderThanDays int   `json:"older_than_days"`
}
