package events

import (
	"context"
	"sync"

	"app/internal/domain/model"

	"go.uber.org/zap"
)

// Publisher は在庫変動イベントの出口。
type Publisher interface {
	PublishStockChanged(ctx context.Context, event model.StockChangedEvent) error
	Close() error
}

// InMemoryPublisher はブローカー未接続時のフォールバック実装。発行内容を保持するだけ。
type InMemoryPublisher struct {
	logger *zap.Logger
	mu     sync.Mutex
	events []model.StockChangedEvent
}

func NewInMemoryPublisher(logger *zap.Logger) *InMemoryPublisher {
	return &InMemoryPublisher{
		logger: logger,
		events: make([]model.StockChangedEvent, 0),
	}
}

func (p *InMemoryPublisher) PublishStockChanged(ctx context.Context, event model.StockChangedEvent) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	p.logger.Debug("stock changed event recorded (in-memory)",
		zap.Int64("product_id", event.ProductID),
		zap.String("status", string(event.Status)),
	)
	return nil
}

func (p *InMemoryPublisher) Close() error {
	return nil
}

// Events は発行済みイベントのコピーを返す。
func (p *InMemoryPublisher) Events() []model.StockChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.StockChangedEvent, len(p.events))
	copy(out, p.events)
	return out
}
