package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"app/internal/config"

	"github.com/IBM/sarama"
	"github.com/eapache/go-resiliency/retrier"
	"go.uber.org/zap"
)

// EventProcessor は受信イベントの処理口。
type EventProcessor interface {
	ProcessEvent(ctx context.Context, eventType string, payload []byte) error
}

// Consumer は注文イベントを購読するコンシューマグループ。
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	processor     EventProcessor
	logger        *zap.Logger
	groupID       string
	topics        []string
}

func NewConsumer(cfg config.Config, processor EventProcessor, logger *zap.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second

	consumerGroup, err := sarama.NewConsumerGroup(cfg.KafkaBrokers, cfg.ConsumerGroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	logger.Info("kafka consumer group created",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("group_id", cfg.ConsumerGroupID),
		zap.String("topic", cfg.OrderTopic),
	)

	return &Consumer{
		consumerGroup: consumerGroup,
		processor:     processor,
		logger:        logger,
		groupID:       cfg.ConsumerGroupID,
		topics:        []string{cfg.OrderTopic},
	}, nil
}

// Start は購読ループを開始し、ctx キャンセルまでブロックする。
func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		processor: c.processor,
		logger:    c.logger,
	}

	wg := &sync.WaitGroup{}
	wg.Add(1)

	go func() {
		defer wg.Done()
		for {
			//リバランス後は Consume を呼び直す
			if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
				c.logger.Error("consumer loop error", zap.Error(err))
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range c.consumerGroup.Errors() {
			c.logger.Error("consumer error", zap.Error(err))
		}
	}()

	c.logger.Info("kafka consumer started",
		zap.Strings("topics", c.topics),
		zap.String("group_id", c.groupID),
	)

	wg.Wait()
	return nil
}

func (c *Consumer) Close() error {
	return c.consumerGroup.Close()
}

type consumerGroupHandler struct {
	processor EventProcessor
	logger    *zap.Logger
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			eventType := extractEventType(message.Headers)
			if eventType == "" {
				h.logger.Warn("message without event type, skipping",
					zap.String("topic", message.Topic),
					zap.Int32("partition", message.Partition),
					zap.Int64("offset", message.Offset),
				)
				session.MarkMessage(message, "")
				continue
			}

			if err := h.processWithRetry(session.Context(), eventType, message.Value); err != nil {
				h.logger.Error("failed to process event after retries",
					zap.String("event_type", eventType),
					zap.String("topic", message.Topic),
					zap.Int64("offset", message.Offset),
					zap.Error(err),
				)
				//無限再送を避けるため失敗でもオフセットは進める
				session.MarkMessage(message, "")
				continue
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *consumerGroupHandler) processWithRetry(ctx context.Context, eventType string, payload []byte) error {
	r := retrier.New(retrier.ConstantBackoff(3, 200*time.Millisecond), nil)
	return r.RunCtx(ctx, func(ctx context.Context) error {
		return h.processor.ProcessEvent(ctx, eventType, payload)
	})
}

func extractEventType(headers []*sarama.RecordHeader) string {
	for _, header := range headers {
		if string(header.Key) == "event-type" {
			return string(header.Value)
		}
	}
	return ""
}
