package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"drowsiness-detector-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionHandler обрабатывает HTTP запросы сессий мониторинга и кадров
type SessionHandler struct {
	monitor      *service.MonitorService
	analyzer     *service.FrameAnalyzer
	alertService *service.AlertService
	logger       *logrus.Logger
}

// NewSessionHandler создает новый экземпляр SessionHandler
func NewSessionHandler(monitor *service.MonitorService, analyzer *service.FrameAnalyzer, alertService *service.AlertService, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		monitor:      monitor,
		analyzer:     analyzer,
		alertService: alertService,
		logger:       logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *SessionHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/sessions", h.StartSession)
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/:id", h.GetSession)
		api.DELETE("/sessions/:id", h.StopSession)
		api.GET("/sessions/:id/summary", h.GetSummary)
		api.GET("/sessions/:id/history", h.GetHistory)
		api.POST("/sessions/:id/frames", h.ProcessFrame)
		api.POST("/sessions/:id/images", h.ProcessImage)
		api.GET("/config", h.GetConfig)
		api.GET("/health", h.CheckHealth)
	}
}

// StartSession начинает новую сессию мониторинга
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req service.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат запроса"})
		return
	}

	info, err := h.monitor.StartSession(c.Request.Context(), req.Notes)
	if err != nil {
		h.logger.Errorf("Ошибка создания сессии: %v", err)
		respondError(c, err, "Ошибка создания сессии")
		return
	}

	c.JSON(http.StatusCreated, info)
}

// ListSessions возвращает список сессий с пагинацией
func (h *SessionHandler) ListSessions(c *gin.Context) {
	resp, err := h.alertService.ListSessions(queryInt(c, "page", 1), queryInt(c, "size", 10))
	if err != nil {
		respondError(c, err, "Ошибка получения списка сессий")
		return
	}

	resp.Active = h.monitor.ActiveSessions()
	c.JSON(http.StatusOK, resp)
}

// GetSession возвращает сохраненную запись сессии
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.alertService.Session(c.Param("id"))
	if err != nil {
		respondError(c, err, "Ошибка получения сессии")
		return
	}
	c.JSON(http.StatusOK, session)
}

// StopSession завершает сессию
func (h *SessionHandler) StopSession(c *gin.Context) {
	sessionID := c.Param("id")

	resp, err := h.monitor.StopSession(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err, "Ошибка завершения сессии")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSummary возвращает сводку активной сессии
func (h *SessionHandler) GetSummary(c *gin.Context) {
	summary, err := h.monitor.Summary(c.Param("id"))
	if err != nil {
		respondError(c, err, "Сессия не найдена")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetHistory возвращает историю EAR активной сессии
func (h *SessionHandler) GetHistory(c *gin.Context) {
	history, err := h.monitor.History(c.Param("id"))
	if err != nil {
		respondError(c, err, "Сессия не найдена")
		return
	}
	c.JSON(http.StatusOK, history)
}

// ProcessFrame обрабатывает точки глаз или разметку лица одного кадра
func (h *SessionHandler) ProcessFrame(c *gin.Context) {
	sessionID := c.Param("id")

	var req service.FrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnf("Ошибка разбора кадра сессии %s: %v", sessionID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат кадра"})
		return
	}

	ts := req.Time(time.Now())
	resp, err := h.monitor.ProcessFrame(c.Request.Context(), sessionID, req.Sample(ts), ts)
	if err != nil {
		respondError(c, err, "Ошибка обработки кадра")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ProcessImage обрабатывает изображение кадра через сервис разметки лица
func (h *SessionHandler) ProcessImage(c *gin.Context) {
	sessionID := c.Param("id")

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		h.logger.Errorf("Ошибка получения изображения: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Изображение обязательно"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		h.logger.Errorf("Ошибка чтения изображения: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка чтения изображения"})
		return
	}

	ts := time.Now()
	if ms := c.PostForm("timestamp_ms"); ms != "" {
		v, err := strconv.ParseInt(ms, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат timestamp_ms"})
			return
		}
		ts = time.UnixMilli(v)
	}

	resp, err := h.analyzer.AnalyzeImage(c.Request.Context(), sessionID, imageData, header.Filename, ts)
	if err != nil {
		respondError(c, err, "Ошибка анализа изображения")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetConfig возвращает параметры детекции
func (h *SessionHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Config())
}

// CheckHealth проверяет состояние сервиса
func (h *SessionHandler) CheckHealth(c *gin.Context) {
	landmarks := h.analyzer.CheckHealth()

	status := "healthy"
	if landmarks.Status != "healthy" {
		// Кадры с готовыми точками обрабатываются и без сервиса разметки
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          status,
		"active_sessions": len(h.monitor.ActiveSessions()),
		"landmark_api":    landmarks,
	})
}
