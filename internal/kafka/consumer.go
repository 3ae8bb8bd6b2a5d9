package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"inventory-dashboard/internal/config"
	"inventory-dashboard/internal/logger"
	"inventory-dashboard/internal/models"

	"github.com/IBM/sarama"
)

// EventHandler обрабатывает событие из Kafka
type EventHandler func(ctx context.Context, event *models.Event) error

// Consumer читает события из топиков через consumer group
type Consumer struct {
	consumer sarama.ConsumerGroup
	log      *logger.Logger
	topics   []string

	mu       sync.RWMutex
	handlers map[models.EventType]EventHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer создаёт consumer group на топик снимков
func NewConsumer(cfg *config.KafkaConfig, log *logger.Logger) (*Consumer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaCfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	log.WithFields(map[string]interface{}{
		"brokers":  cfg.Brokers,
		"group_id": cfg.GroupID,
	}).Info("Kafka consumer created")

	return &Consumer{
		consumer: group,
		log:      log,
		topics:   []string{cfg.Topics.Snapshots},
		handlers: make(map[models.EventType]EventHandler),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// NewTestConsumer собирает консьюмера поверх готовой группы (для тестов и стендов)
func NewTestConsumer(group sarama.ConsumerGroup, log *logger.Logger) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		consumer: group,
		log:      log,
		topics:   []string{"inventory.snapshots"},
		handlers: make(map[models.EventType]EventHandler),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RegisterHandler регистрирует обработчик для типа события
func (c *Consumer) RegisterHandler(eventType models.EventType, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = handler
}

func (c *Consumer) handler(eventType models.EventType) EventHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handlers[eventType]
}

// Start запускает чтение в отдельной горутине
func (c *Consumer) Start() error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if err := c.consumer.Consume(c.ctx, c.topics, c); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) || errors.Is(err, context.Canceled) {
					return
				}
				c.log.WithError(err).Error("Kafka consume failed")
			}
			if c.ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consumer.Errors() {
			c.log.WithError(err).Warn("Kafka consumer error")
		}
	}()

	c.log.WithField("topics", c.topics).Info("Kafka consumer started")
	return nil
}

// Stop останавливает чтение и закрывает группу
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.consumer.Close()
	c.wg.Wait()
	c.log.Info("Kafka consumer stopped")
	return err
}

// Setup вызывается sarama в начале новой сессии
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup вызывается sarama в конце сессии
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim обрабатывает сообщения партиции. Ошибка обработки не останавливает чтение.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.processMessage(msg); err != nil {
				c.log.WithError(err).WithFields(map[string]interface{}{
					"topic":     msg.Topic,
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Warn("Failed to process message")
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *Consumer) processMessage(msg *sarama.ConsumerMessage) error {
	var event models.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	handler := c.handler(event.Type)
	if handler == nil {
		c.log.WithField("event_type", event.Type).Debug("No handler registered for event")
		return nil
	}

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := handler(ctx, &event); err != nil {
		return fmt.Errorf("handler for %s failed: %w", event.Type, err)
	}
	return nil
}
