package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"drowsiness-detector-go/internal/model"
	"drowsiness-detector-go/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 1000
	exportLimit       = 1000
)

var csvHeader = []string{"ID", "Session ID", "Timestamp", "EAR Value", "Consecutive Frames", "Duration (s)", "Severity", "Notes"}

// AlertService сервис для работы с историей оповещений и сессий
type AlertService struct {
	alertRepo   repository.AlertRepository
	sessionRepo repository.SessionRepository
	logger      *logrus.Logger
	now         func() time.Time
}

// NewAlertService создает новый сервис оповещений
func NewAlertService(alertRepo repository.AlertRepository, sessionRepo repository.SessionRepository, logger *logrus.Logger) *AlertService {
	return &AlertService{
		alertRepo:   alertRepo,
		sessionRepo: sessionRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// RecentAlerts последние оповещения. limit вне [1, 1000] заменяется значением по умолчанию.
func (s *AlertService) RecentAlerts(limit int) (*AlertListResponse, error) {
	if limit < 1 || limit > maxAlertLimit {
		limit = defaultAlertLimit
	}

	alerts, err := s.alertRepo.ListRecent(limit)
	if err != nil {
		s.logger.Errorf("Ошибка получения оповещений: %v", err)
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return &AlertListResponse{Alerts: alerts, Total: len(alerts)}, nil
}

// AlertsByDateRange оповещения в интервале [start, end)
func (s *AlertService) AlertsByDateRange(start, end time.Time) (*AlertListResponse, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidRequest)
	}

	alerts, err := s.alertRepo.ListByDateRange(start, end)
	if err != nil {
		s.logger.Errorf("Ошибка получения оповещений за период: %v", err)
		return nil, fmt.Errorf("failed to list alerts by date range: %w", err)
	}
	return &AlertListResponse{Alerts: alerts, Total: len(alerts)}, nil
}

// Statistics сводная статистика оповещений
func (s *AlertService) Statistics() (*repository.AlertStatistics, error) {
	stats, err := s.alertRepo.Statistics(s.now())
	if err != nil {
		s.logger.Errorf("Ошибка расчета статистики: %v", err)
		return nil, fmt.Errorf("failed to compute alert statistics: %w", err)
	}
	return stats, nil
}

// ClearOldAlerts удаляет оповещения старше days дней
func (s *AlertService) ClearOldAlerts(days int) (*ClearAlertsResponse, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: older_than_days must be positive, got %d", ErrInvalidRequest, days)
	}

	deleted, err := s.alertRepo.DeleteOlderThan(s.now().AddDate(0, 0, -days))
	if err != nil {
		s.logger.Errorf("Ошибка удаления старых оповещений: %v", err)
		return nil, fmt.Errorf("failed to delete old alerts: %w", err)
	}

	s.logger.Infof("Удалено %d оповещений старше %d дней", deleted, days)
	return &ClearAlertsResponse{Deleted: deleted, OlderThanDays: days}, nil
}

// ExportCSV записывает последние оповещения в CSV
func (s *AlertService) ExportCSV(w io.Writer) (int, error) {
	alerts, err := s.alertRepo.ListRecent(exportLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to list alerts for export: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}
	for _, a := range alerts {
		record := []string{
			a.ID,
			a.SessionID,
			a.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(a.EarValue, 'f', 4, 64),
			strconv.Itoa(a.ConsecutiveFrames),
			strconv.FormatFloat(a.DurationSeconds, 'f', 2, 64),
			a.Severity,
			a.Notes,
		}
		if err := cw.Write(record); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to write csv: %w", err)
	}

	s.logger.Infof("Экспортировано %d оповещений в CSV", len(alerts))
	return len(alerts), nil
}

// Session сохраненная запись сессии, в том числе завершенной
func (s *AlertService) Session(id string) (*model.Session, error) {
	session, err := s.sessionRepo.GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		s.logger.WithField("session_id", id).Errorf("Ошибка получения сессии: %v", err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ListSessions возвращает сессии с пагинацией
func (s *AlertService) ListSessions(page, size int) (*ListSessionsResponse, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 10
	}

	sessions, total, err := s.sessionRepo.List(page, size)
	if err != nil {
		s.logger.Errorf("Ошибка получения списка сессий: %v", err)
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return &ListSessionsResponse{Sessions: sessions, Total: total, Page: page, Size: size}, nil
}
