package service

import "errors"

var (
	// ErrSessionNotFound сессия не найдена среди активных или в хранилище
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidRequest некорректные параметры запроса
	ErrInvalidRequest = errors.New("invalid request")
	// ErrLandmarkService сервис разметки лица недоступен или вернул ошибку
	ErrLandmarkService = errors.New("landmark service failure")
)
