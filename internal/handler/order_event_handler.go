package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"app/internal/domain/model"
	"app/internal/usecase"

	"go.uber.org/zap"
)

// 注文イベントを在庫操作へ橋渡しするハンドラ。
// placed=予約、completed=確定減算、cancelled=解放。
type OrderEventHandler struct {
	reservations *usecase.ReservationUsecase
	logger       *zap.Logger
}

// DI
func NewOrderEventHandler(reservations *usecase.ReservationUsecase, logger *zap.Logger) *OrderEventHandler {
	return &OrderEventHandler{
		reservations: reservations,
		logger:       logger,
	}
}

// 受信イベントを種別で振り分ける。知らない種別は他サービス向けとして読み飛ばす。
func (h *OrderEventHandler) ProcessEvent(ctx context.Context, eventType string, payload []byte) error {
	switch eventType {
	case "order.placed":
		return h.processOrderPlaced(ctx, payload)
	case "order.completed":
		return h.processOrderCompleted(ctx, payload)
	case "order.cancelled":
		return h.processOrderCancelled(ctx, payload)
	default:
		h.logger.Debug("ignoring event", zap.String("event_type", eventType))
		return nil
	}
}

// 注文作成：明細ごとにcheckout予約を張る。
// 在庫不足はsuccess=falseの正常応答なので再送しない。冪等リニューアルがあるため再配信は安全。
func (h *OrderEventHandler) processOrderPlaced(ctx context.Context, payload []byte) error {
	var event struct {
		OrderID   int64  `json:"order_id"`
		SessionID string `json:"session_id"`
		UserID    int64  `json:"user_id"`
		Items     []struct {
			ProductID    int64  `json:"product_id"`
			VariantID    int64  `json:"variant_id"`
			VariantLabel string `json:"variant_label"`
			Quantity     int64  `json:"quantity"`
		} `json:"items"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal order.placed: %w", err)
	}

	for _, item := range event.Items {
		out, err := h.reservations.Reserve(ctx, usecase.ReserveInput{
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			VariantLabel: item.VariantLabel,
			Quantity:     item.Quantity,
			SessionID:    event.SessionID,
			UserID:       event.UserID,
			Kind:         model.ReservationKindCheckout,
		})
		if err != nil {
			if ae, ok := usecase.AsAppError(err); ok && ae.Code != usecase.CodeVersionConflict {
				//入力不備や404は再送しても直らない
				h.logger.Warn("skipping unreservable order item",
					zap.Int64("order_id", event.OrderID),
					zap.Int64("product_id", item.ProductID),
					zap.Error(err),
				)
				continue
			}
			return fmt.Errorf("failed to reserve order item: %w", err)
		}
		if !out.Success {
			h.logger.Warn("order item not reservable",
				zap.Int64("order_id", event.OrderID),
				zap.Int64("product_id", item.ProductID),
				zap.Int64("available", out.AvailableStock),
				zap.Int64("requested", item.Quantity),
			)
		}
	}

	return nil
}

// 注文完了：セッションの予約を確定減算へ変換する。
func (h *OrderEventHandler) processOrderCompleted(ctx context.Context, payload []byte) error {
	var event struct {
		OrderID   int64  `json:"order_id"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal order.completed: %w", err)
	}

	converted, err := h.reservations.ConvertAllForSession(ctx, event.SessionID, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to convert reservations: %w", err)
	}

	h.logger.Info("order completed",
		zap.Int64("order_id", event.OrderID),
		zap.String("session_id", event.SessionID),
		zap.Int64("converted", converted),
	)
	return nil
}

// 注文キャンセル：セッションの予約をすべて解放する。
func (h *OrderEventHandler) processOrderCancelled(ctx context.Context, payload []byte) error {
	var event struct {
		OrderID   int64  `json:"order_id"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal order.cancelled: %w", err)
	}

	released, err := h.reservations.ReleaseAll(ctx, event.SessionID)
	if err != nil {
		return fmt.Errorf("failed to release reservations: %w", err)
	}

	h.logger.Info("order cancelled",
		zap.Int64("order_id", event.OrderID),
		zap.String("session_id", event.SessionID),
		zap.Int64("released", released),
	)
	return nil
}
