package model

import "time"

// 在庫変動イベント。調整がコミットされるたびにfire-and-forgetで発行する。
type StockChangedEvent struct {
	ProductID      int64       `json:"product_id"`
	VariantID      *int64      `json:"variant_id,omitempty"`
	AvailableStock int64       `json:"available_stock"`
	TotalStock     int64       `json:"total_stock"`
	Status         StockStatus `json:"status"`
	OccurredAt     time.Time   `json:"occurred_at"`
}
