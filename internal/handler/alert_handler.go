package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"drowsiness-detector-go/internal/detector"
	"drowsiness-detector-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AlertHandler обрабатывает HTTP запросы истории оповещений
type AlertHandler struct {
	alertService *service.AlertService
	logger       *logrus.Logger
}

// NewAlertHandler создает новый экземпляр AlertHandler
func NewAlertHandler(alertService *service.AlertService, logger *logrus.Logger) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		logger:       logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *AlertHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/alerts", h.ListAlerts)
		api.GET("/alerts/stats", h.GetStatistics)
		api.GET("/alerts/export", h.ExportAlerts)
		api.DELETE("/alerts", h.ClearOldAlerts)
	}
}

// ListAlerts возвращает последние оповещения или оповещения за период (start, end в RFC3339).
// min_severity оставляет оповещения не ниже указанного уровня.
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	startStr, endStr := c.Query("start"), c.Query("end")

	level := detector.SeverityLow
	if v := c.Query("min_severity"); v != "" {
		parsed, err := detector.ParseSeverity(strings.ToUpper(v))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный уровень min_severity", "details": err.Error()})
			return
		}
		level = parsed
	}

	if startStr == "" && endStr == "" {
		resp, err := h.alertService.RecentAlerts(queryInt(c, "limit", 50))
		if err != nil {
			respondError(c, err, "Ошибка получения оповещений")
			return
		}
		c.JSON(http.StatusOK, resp.AtLeast(level))
		return
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат start"})
		return
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат end"})
		return
	}

	resp, err := h.alertService.AlertsByDateRange(start, end)
	if err != nil {
		respondError(c, err, "Ошибка получения оповещений")
		return
	}
	c.JSON(http.StatusOK, resp.AtLeast(level))
}

// GetStatistics возвращает статистику оповещений
func (h *AlertHandler) GetStatistics(c *gin.Context) {
	stats, err := h.alertService.Statistics()
	if err != nil {
		respondError(c, err, "Ошибка расчета статистики")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportAlerts выгружает последние оповещения в CSV
func (h *AlertHandler) ExportAlerts(c *gin.Context) {
	var buf bytes.Buffer
	if _, err := h.alertService.ExportCSV(&buf); err != nil {
		h.logger.Errorf("Ошибка экспорта оповещений: %v", err)
		respondError(c, err, "Ошибка экспорта оповещений")
		return
	}

	filename := fmt.Sprintf("drowsiness_alerts_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ClearOldAlerts удаляет оповещения старше older_than_days дней (по умолчанию 30)
func (h *AlertHandler) ClearOldAlerts(c *gin.Context) {
	resp, err := h.alertService.ClearOldAlerts(queryInt(c, "older_than_days", 30))
	if err != nil {
		respondError(c, err, "Ошибка удаления оповещений")
		return
	}
	c.JSON(http.StatusOK, resp)
}
