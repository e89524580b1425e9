package model

// 在庫ステータス
type StockStatus string

const (
	StockStatusInStock     StockStatus = "IN_STOCK"
	StockStatusLowStock    StockStatus = "LOW_STOCK"
	StockStatusOutOfStock  StockStatus = "OUT_OF_STOCK"
	StockStatusBackordered StockStatus = "BACKORDERED"
)

// available・閾値・取り寄せ可否からステータスを分類する。
// available=0でもallow_backorderならBACKORDERED（注文は受けられる表示）。
func StockStatusFor(available int64, threshold int64, allowBackorder bool) StockStatus {
	if available <= 0 {
		if allowBackorder {
			return StockStatusBackordered
		}
		return StockStatusOutOfStock
	}
	if available <= threshold {
		return StockStatusLowStock
	}
	return StockStatusInStock
}
