package model

import "time"

// 在庫変動の理由コード
type AdjustmentReason string

const (
	//販売による減算。
	ReasonSale AdjustmentReason = "sale"
	//入荷・補充。
	ReasonRestock AdjustmentReason = "restock"
	//返品による戻し。
	ReasonReturn AdjustmentReason = "return"
	//棚卸しなどの手動補正。
	ReasonCorrection AdjustmentReason = "correction"
)

// 理由コードが既知のものかどうか。
func ValidAdjustmentReason(r AdjustmentReason) bool {
	switch r {
	case ReasonSale, ReasonRestock, ReasonReturn, ReasonCorrection:
		return true
	}
	return false
}

// 在庫調整の履歴（追記専用）。
// 「誰が」「どのバリアントを」「いくつからいくつへ」「なぜ」を残す。
// VariantID がNULLの行はバリアント未登録だった頃の商品そのものへの調整。
// CorrelationIDはリトライをまたいで同一の値を引き回す。
type InventoryHistory struct {
	ID               int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID        int64            `gorm:"not null;index" json:"product_id"`
	VariantID        *int64           `gorm:"index" json:"variant_id"`
	PreviousQuantity int64            `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int64            `gorm:"not null" json:"new_quantity"`
	Delta            int64            `gorm:"not null" json:"delta"`
	Reason           AdjustmentReason `gorm:"type:varchar(50);not null;index" json:"reason"`
	UserID           int64            `gorm:"not null;index" json:"user_id"`
	CorrelationID    string           `gorm:"type:varchar(64);not null;index" json:"correlation_id"`
	MetadataJSON     string           `gorm:"type:text" json:"metadata_json"`
	CreatedAt        time.Time        `gorm:"not null;index" json:"created_at"`
}
