package notify

import (
	"context"
	"errors"
	"time"

	"drowsiness-detector-go/internal/detector"
)

// Типы сообщений для подписчиков
const (
	TypeAlert      = "ALERT"
	TypeAlertEnded = "ALERT_ENDED"
	TypeWelcome    = "WELCOME"
	TypePing       = "PING"
	TypePong       = "PONG"
)

// Notifier получатель событий движка (звук, интерфейс, шина событий)
type Notifier interface {
	AlertRaised(ctx context.Context, sessionID string, event detector.AlertEvent) error
	AlertEnded(ctx context.Context, sessionID string, ended detector.AlertEnded) error
}

// Message конверт сообщения для подписчиков
type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	ClientID  string      `json:"client_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// AlertPayload содержимое сообщения об оповещении
type AlertPayload struct {
	detector.AlertEvent
	Message string `json:"message"`
}

// NewAlertMessage формирует сообщение об оповещении
func NewAlertMessage(sessionID string, event detector.AlertEvent) Message {
	return Message{
		Type:      TypeAlert,
		SessionID: sessionID,
		Payload: AlertPayload{
			AlertEvent: event,
			Message:    detector.Message(event.Severity, event.EarValue, event.ConsecutiveFrames),
		},
		Timestamp: event.Timestamp.Unix(),
	}
}

// NewAlertEndedMessage формирует сообщение о завершении оповещения
func NewAlertEndedMessage(sessionID string, ended detector.AlertEnded) Message {
	return Message{
		Type:      TypeAlertEnded,
		SessionID: sessionID,
		Payload:   ended,
		Timestamp: ended.EndedAt.Unix(),
	}
}

// Multi рассылает события нескольким получателям
type Multi []Notifier

func (m Multi) AlertRaised(ctx context.Context, sessionID string, event detector.AlertEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.AlertRaised(ctx, sessionID, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) AlertEnded(ctx context.Context, sessionID string, ended detector.AlertEnded) error {
	var errs []error
	for _, n := range m {
		if err := n.AlertEnded(ctx, sessionID, ended); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func nowUnix() int64 { return time.Now().Unix() }
