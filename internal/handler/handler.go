package handler

import (
	"errors"
	"net/http"
	"strconv"

	"drowsiness-detector-go/internal/detector"
	"drowsiness-detector-go/internal/notify"
	"drowsiness-detector-go/internal/service"

	"github.com/gin-gonic/gin"
)

// errorStatus HTTP статус для ошибки сервиса
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, detector.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, detector.ErrNonMonotonicTime), errors.Is(err, detector.ErrEngineUnusable):
		return http.StatusConflict
	case errors.Is(err, service.ErrLandmarkService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError отправляет ошибку клиенту. Текст внутренних ошибок не раскрывается.
func respondError(c *gin.Context, err error, message string) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

// queryInt читает целый параметр запроса; некорректное значение заменяется значением по умолчанию
func queryInt(c *gin.Context, key string, defaultValue int) int {
	value, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

// RegisterWebSocket подключает канал визуальных оповещений
func RegisterWebSocket(router *gin.Engine, hub *notify.Hub) {
	router.GET("/api/v1/ws", gin.WrapF(hub.ServeWS))
}

// CORSMiddleware добавляет заголовки CORS
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
