package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const (
	TopicPaymentCompleted     = "payments.completed"
	TopicPaymentFailed        = "payments.failed"
	TopicApplicationSubmitted = "applications.submitted"
	TopicOpportunityPublished = "opportunities.published"
)

// Publisher emits domain events for downstream consumers (notifications,
// reporting). Publishing is best effort: a broker outage must never fail the
// request that produced the event.
type Publisher interface {
	Publish(topic string, payload any)
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	logger   *zap.SugaredLogger
}

// NewKafkaPublisher connects a synchronous producer, retrying briefly so the
// API can start alongside the broker. Returns nil (a no-op publisher) when no
// brokers are configured.
func NewKafkaPublisher(brokers string, logger *zap.SugaredLogger) *KafkaPublisher {
	if strings.TrimSpace(brokers) == "" {
		return nil
	}
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	addrs := strings.Split(brokers, ",")
	var producer sarama.SyncProducer
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		producer, err = sarama.NewSyncProducer(addrs, cfg)
		if err == nil {
			return &KafkaPublisher{producer: producer, logger: logger}
		}
		logger.Warnw("kafka not ready", "attempt", attempt, "error", err)
		time.Sleep(3 * time.Second)
	}
	logger.Errorw("kafka unavailable, events disabled", "error", err)
	return nil
}

func (p *KafkaPublisher) Publish(topic string, payload any) {
	if p == nil || p.producer == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Errorw("failed to marshal event", "topic", topic, "error", err)
		return
	}
	msg := &sarama.ProducerMessage{Topic: topic, Value: sarama.ByteEncoder(body)}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		p.logger.Errorw("failed to publish event", "topic", topic, "error", err)
	}
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
