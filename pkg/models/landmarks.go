package models

import (
	"fmt"
	"time"
)

// Индексы глаз в 68-точечной разметке лица dlib
const (
	LeftEyeStart  = 36
	RightEyeStart = 42
	EyePointCount = 6
	FacePointMin  = RightEyeStart + EyePointCount
)

// Point2D представляет точку на кадре в пикселях
type Point2D struct {
	X float64 `json:"x"` // Координата по горизонтали
	Y float64 `json:"y"` // Координата по вертикали
}

// EyeLandmarks упорядоченные точки p1..p6 одного глаза.
// Порядок важен: по нему определяются пары для расчета EAR.
type EyeLandmarks []Point2D

// FrameSample точки обоих глаз, полученные для одного кадра
type FrameSample struct {
	Timestamp time.Time    `json:"timestamp"` // Время кадра
	LeftEye   EyeLandmarks `json:"left_eye"`  // Левый глаз
	RightEye  EyeLandmarks `json:"right_eye"` // Правый глаз
}

// FaceLandmarks полный набор точек лица от провайдера (68 точек dlib)
type FaceLandmarks []Point2D

// Eyes выделяет точки левого и правого глаза из разметки лица
func (f FaceLandmarks) Eyes() (EyeLandmarks, EyeLandmarks, error) {
	if len(f) < FacePointMin {
		return nil, nil, fmt.Errorf("face landmarks must contain at least %d points, got %d", FacePointMin, len(f))
	}

	left := make(EyeLandmarks, EyePointCount)
	copy(left, f[LeftEyeStart:LeftEyeStart+EyePointCount])

	right := make(EyeLandmarks, EyePointCount)
	copy(right, f[RightEyeStart:RightEyeStart+EyePointCount])

	return left, right, nil
}

// Sample собирает FrameSample из разметки лица
func (f FaceLandmarks) Sample(ts time.Time) (*FrameSample, error) {
	left, right, err := f.Eyes()
	if err != nil {
		return nil, err
	}
	return &FrameSample{Timestamp: ts, LeftEye: left, RightEye: right}, nil
}

// LandmarkAPIResponse определяет структуру ответа от Python сервиса разметки лица
type LandmarkAPIResponse struct {
	Status       string       `json:"status"`        // Статус выполнения
	Message      string       `json:"message"`       // Сообщение
	FaceDetected bool         `json:"face_detected"` // Найдено ли лицо на кадре
	Landmarks    [][2]float64 `json:"landmarks"`     // Точки лица в формате [x, y]
}

// Face преобразует точки ответа в FaceLandmarks
func (r *LandmarkAPIResponse) Face() FaceLandmarks {
	face := make(FaceLandmarks, len(r.Landmarks))
	for i, p := range r.Landmarks {
		face[i] = Point2D{X: p[0], Y: p[1]}
	}
	return face
}

// HealthResponse представляет ответ проверки здоровья сервиса
type HealthResponse struct {
	Status      string `json:"status"`       // Статус сервиса (healthy/unhealthy)
	ModelLoaded bool   `json:"model_loaded"` // Загружен ли предиктор точек лица
	Version     string `json:"version"`      // Версия сервиса
}
