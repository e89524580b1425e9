package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"app/internal/config"
	"app/internal/domain/model"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KafkaPublisher は Kafka へ在庫変動イベントを発行する。
type KafkaPublisher struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
	topic    string
}

func NewKafkaPublisher(cfg config.Config, logger *zap.Logger) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.KafkaBrokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logger.Info("kafka producer created",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.StockTopic),
	)

	return &KafkaPublisher{
		producer: producer,
		logger:   logger,
		topic:    cfg.StockTopic,
	}, nil
}

func (p *KafkaPublisher) PublishStockChanged(ctx context.Context, event model.StockChangedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal stock event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		//商品単位で順序を保つ
		Key:   sarama.StringEncoder(strconv.FormatInt(event.ProductID, 10)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event-type"),
				Value: []byte("StockChanged"),
			},
			{
				Key:   []byte("event-id"),
				Value: []byte(uuid.New().String()),
			},
			{
				Key:   []byte("timestamp"),
				Value: []byte(time.Now().UTC().Format(time.RFC3339)),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		p.logger.Error("failed to publish stock changed event",
			zap.String("topic", p.topic),
			zap.Int64("product_id", event.ProductID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish stock changed event: %w", err)
	}

	p.logger.Info("stock changed event published",
		zap.String("topic", p.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.Int64("product_id", event.ProductID),
		zap.String("status", string(event.Status)),
	)

	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
