package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"drowsiness-detector-go/internal/detector"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// MessageWriter часть kafka.Writer, нужная публикатору
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter создает writer топика оповещений.
// Ключ сообщения - ID сессии, поэтому события одной сессии идут в одну партицию.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

// KafkaPublisher публикует события оповещений в Kafka
type KafkaPublisher struct {
	writer MessageWriter
	logger *logrus.Logger
}

// NewKafkaPublisher создает публикатор
func NewKafkaPublisher(writer MessageWriter, logger *logrus.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logger}
}

func (p *KafkaPublisher) publish(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.SessionID),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(msg.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s message: %w", msg.Type, err)
	}

	p.logger.Debugf("Сообщение %s сессии %s опубликовано в Kafka", msg.Type, msg.SessionID)
	return nil
}

func (p *KafkaPublisher) AlertRaised(ctx context.Context, sessionID string, event detector.AlertEvent) error {
	return p.publish(ctx, NewAlertMessage(sessionID, event))
}

func (p *KafkaPublisher) AlertEnded(ctx context.Context, sessionID string, ended detector.AlertEnded) error {
	return p.publish(ctx, NewAlertEndedMessage(sessionID, ended))
}

// Close закрывает writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
