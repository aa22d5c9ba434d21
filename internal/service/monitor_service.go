package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"drowsiness-detector-go/internal/detector"
	"drowsiness-detector-go/internal/ear"
	"drowsiness-detector-go/internal/model"
	"drowsiness-detector-go/internal/notify"
	"drowsiness-detector-go/internal/repository"
	"drowsiness-detector-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// monitorSession активная сессия: движок и накопленные события завершения оповещений
type monitorSession struct {
	mu      sync.Mutex
	id      string
	notes   string
	engine  *detector.StateMachine
	ended   []detector.AlertEnded
	stopped bool
}

func (s *monitorSession) drainEnded() []detector.AlertEnded {
	ended := s.ended
	s.ended = nil
	return ended
}

// MonitorService ведет активные сессии мониторинга водителя.
// Кадры одной сессии обрабатываются последовательно, разные сессии независимы.
type MonitorService struct {
	mu       sync.RWMutex
	sessions map[string]*monitorSession

	cfg         detector.Config
	calc        *ear.Calculator
	alertRepo   repository.AlertRepository
	sessionRepo repository.SessionRepository
	notifier    notify.Notifier
	logger      *logrus.Logger
	now         func() time.Time
}

// NewMonitorService создает сервис мониторинга. notifier может быть nil.
func NewMonitorService(
	cfg detector.Config,
	alertRepo repository.AlertRepository,
	sessionRepo repository.SessionRepository,
	notifier notify.Notifier,
	logger *logrus.Logger,
) (*MonitorService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = notify.Multi{}
	}

	return &MonitorService{
		sessions:    make(map[string]*monitorSession),
		cfg:         cfg,
		calc:        ear.NewCalculator(),
		alertRepo:   alertRepo,
		sessionRepo: sessionRepo,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Config параметры детекции новых сессий
func (s *MonitorService) Config() ConfigResponse {
	return newConfigResponse(s.cfg)
}

// StartSession начинает новую сессию мониторинга
func (s *MonitorService) StartSession(ctx context.Context, notes string) (*SessionInfo, error) {
	id := uuid.New().String()
	start := s.now()

	sess := &monitorSession{id: id, notes: notes}
	engine, err := detector.New(s.cfg, start, detector.WithAlertEndedHandler(func(e detector.AlertEnded) {
		sess.ended = append(sess.ended, e)
	}))
	if err != nil {
		return nil, err
	}
	sess.engine = engine

	if err := s.sessionRepo.Create(&model.Session{ID: id, StartTime: start, Notes: notes}); err != nil {
		s.logger.WithField("session_id", id).Errorf("Ошибка сохранения сессии: %v", err)
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.WithField("session_id", id).Info("Сессия мониторинга начата")
	return &SessionInfo{SessionID: id, StartTime: start, Notes: notes, Config: s.Config()}, nil
}

func (s *MonitorService) session(id string) (*monitorSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// ProcessFrame обрабатывает точки глаз одного кадра. sample == nil означает, что лицо не найдено.
// Нулевое ts заменяется текущим временем.
func (s *MonitorService) ProcessFrame(ctx context.Context, sessionID string, sample *models.FrameSample, ts time.Time) (*FrameResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if ts.IsZero() {
		ts = s.now()
	}
	if sample != nil && sample.Timestamp.IsZero() {
		stamped := *sample
		stamped.Timestamp = ts
		sample = &stamped
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.stopped {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	outcome, err := sess.engine.ProcessFrame(sample, ts, s.calc)
	if err != nil {
		s.logger.WithField("session_id", sessionID).Errorf("Ошибка обработки кадра: %v", err)
		return nil, err
	}

	for _, ended := range sess.drainEnded() {
		s.alertEnded(ctx, sess, ended)
	}

	resp := &FrameResponse{SessionID: sessionID, FrameOutcome: outcome}
	if outcome.Alert != nil {
		s.alertRaised(ctx, sess, *outcome.Alert)
		resp.Message = detector.Message(outcome.Alert.Severity, outcome.Alert.EarValue, outcome.Alert.ConsecutiveFrames)
	}
	return resp, nil
}

// ProcessLandmarks обрабатывает полную разметку лица. face == nil означает, что лицо не найдено.
func (s *MonitorService) ProcessLandmarks(ctx context.Context, sessionID string, face models.FaceLandmarks, ts time.Time) (*FrameResponse, error) {
	if ts.IsZero() {
		ts = s.now()
	}
	var sample *models.FrameSample
	if face != nil {
		sample = faceSample(face, ts)
	}
	return s.ProcessFrame(ctx, sessionID, sample, ts)
}

// alertRaised сохраняет оповещение и рассылает его получателям.
// Ошибки побочных действий только логируются.
func (s *MonitorService) alertRaised(ctx context.Context, sess *monitorSession, event detector.AlertEvent) {
	log := s.logger.WithFields(logrus.Fields{
		"session_id": sess.id,
		"alert_id":   event.ID,
		"severity":   event.Severity,
	})
	log.Warnf("Обнаружена сонливость: EAR %.3f, кадров %d", event.EarValue, event.ConsecutiveFrames)

	err := s.alertRepo.Create(&model.Alert{
		ID:                event.ID,
		SessionID:         sess.id,
		Timestamp:         event.Timestamp,
		EarValue:          event.EarValue,
		ConsecutiveFrames: event.ConsecutiveFrames,
		Severity:          string(event.Severity),
		Notes:             fmt.Sprintf("Session %s", sess.id),
	})
	if err != nil {
		log.Errorf("Ошибка сохранения оповещения: %v", err)
	}

	if err := s.notifier.AlertRaised(ctx, sess.id, event); err != nil {
		log.Warnf("Ошибка отправки оповещения: %v", err)
	}
}

func (s *MonitorService) alertEnded(ctx context.Context, sess *monitorSession, ended detector.AlertEnded) {
	log := s.logger.WithFields(logrus.Fields{
		"session_id": sess.id,
		"alert_id":   ended.AlertID,
	})
	log.Infof("Оповещение завершено через %.2f с", ended.DurationSeconds)

	if err := s.alertRepo.UpdateDuration(ended.AlertID, ended.DurationSeconds); err != nil {
		log.Errorf("Ошибка обновления длительности оповещения: %v", err)
	}
	if err := s.notifier.AlertEnded(ctx, sess.id, ended); err != nil {
		log.Warnf("Ошибка отправки завершения оповещения: %v", err)
	}
}

// Summary сводка активной сессии
func (s *MonitorService) Summary(sessionID string) (*SessionSummary, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return &SessionSummary{SessionID: sessionID, Notes: sess.notes, Summary: sess.engine.Summary()}, nil
}

// History история EAR активной сессии со скользящим средним
func (s *MonitorService) History(sessionID string) (*HistoryResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	readings := sess.engine.History()
	minEar, maxEar := sess.engine.EarRange()
	sess.mu.Unlock()

	values := make([]float64, len(readings))
	for i, r := range readings {
		values[i] = r.AvgEar
	}

	return &HistoryResponse{
		SessionID:     sessionID,
		Readings:      readings,
		MovingAverage: detector.MovingAverage(values, detector.MovingAvgWindow),
		MinEar:        minEar,
		MaxEar:        maxEar,
	}, nil
}

// StopSession завершает сессию: закрывает активное оповещение, сохраняет итоги и
// освобождает движок
func (s *MonitorService) StopSession(ctx context.Context, sessionID string) (*StopSessionResponse, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.stopped = true

	closed := sess.engine.Finish()
	if closed != nil {
		s.alertEnded(ctx, sess, *closed)
	}

	summary := sess.engine.Summary()
	end := s.now()

	err := s.sessionRepo.Finish(sessionID, repository.SessionTotals{
		EndTime:         end,
		TotalAlerts:     summary.TotalAlerts,
		Duration:        summary.SessionDurationSec,
		FramesProcessed: summary.FramesProcessed,
		DrowsyFrames:    summary.DrowsyFrames,
	})
	if err != nil {
		s.logger.WithField("session_id", sessionID).Errorf("Ошибка сохранения итогов сессии: %v", err)
	}

	s.logger.WithField("session_id", sessionID).Infof(
		"Сессия завершена: %d оповещений, %d кадров, %.1f%% с закрытыми глазами",
		summary.TotalAlerts, summary.FramesProcessed, summary.DrowsinessRate,
	)

	return &StopSessionResponse{SessionID: sessionID, EndTime: end, Closed: closed, Summary: summary}, nil
}

// ActiveSessions идентификаторы активных сессий
func (s *MonitorService) ActiveSessions() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Close завершает все активные сессии при остановке сервера
func (s *MonitorService) Close(ctx context.Context) {
	for _, id := range s.ActiveSessions() {
		if _, err := s.StopSession(ctx, id); err != nil {
			s.logger.WithField("session_id", id).Warnf("Ошибка завершения сессии: %v", err)
		}
	}
}
