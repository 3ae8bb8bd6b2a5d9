package kafka

import (
	"encoding/json"
	"fmt"

	"inventory-dashboard/internal/config"
	"inventory-dashboard/internal/logger"
	"inventory-dashboard/internal/models"

	"github.com/IBM/sarama"
)

// Producer публикует события дашборда в Kafka
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создаёт синхронного продюсера
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.WithField("brokers", cfg.Brokers).Info("Kafka producer created")

	return &Producer{
		producer: producer,
		log:      log,
		topics:   &cfg.Topics,
	}, nil
}

// PublishCriticalInsight публикует критичный инсайт, ключом служит его id
func (p *Producer) PublishCriticalInsight(insight models.Insight, filter models.TimeFilter, fromAPI bool) error {
	event, err := models.NewEvent(models.EventTypeInsightCritical, models.InsightCriticalData{
		Insight:    insight,
		TimeFilter: filter,
		FromAPI:    fromAPI,
	})
	if err != nil {
		return err
	}
	return p.publishEvent(p.topics.Insights, event)
}

func (p *Producer) publishEvent(topic string, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID.String()),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.WithError(err).WithFields(map[string]interface{}{
			"topic":      topic,
			"event_type": event.Type,
		}).Error("Failed to publish event")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.log.WithFields(map[string]interface{}{
		"topic":      topic,
		"event_type": event.Type,
		"event_id":   event.ID,
		"partition":  partition,
		"offset":     offset,
	}).Debug("Event published")

	return nil
}

// Close закрывает продюсера
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
