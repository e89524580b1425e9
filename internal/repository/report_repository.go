package repository

import (
	"context"
	"time"
)

// 集計済みの在庫合計。
type StockTotals struct {
	ProductCount int64
	VariantCount int64
	TotalUnits   int64
	TotalValue   int64
}

// バリアント単位の可用性スナップショット（レポート用）。
// VariantID=0の行はバリアント未登録商品の合成デフォルト。
type VariantAvailability struct {
	ProductID         int64
	ProductName       string
	VariantID         int64
	Label             string
	SKU               string
	Inventory         int64
	Available         int64
	LowStockThreshold int64
	AllowBackorder    bool
	LastRestockedAt   *time.Time
}

// 期間内の販売集計行。
type SoldRow struct {
	ProductID int64
	VariantID int64
	Label     string
	SoldUnits int64
	Inventory int64
}

// 読み取り専用の集計の約束。状態は一切変更しない。
type ReportRepository interface {
	Totals(ctx context.Context) (StockTotals, error)

	// now時点の全バリアントのavailable（未失効予約を差し引いた値）
	AvailabilityRows(ctx context.Context, now time.Time) ([]VariantAvailability, error)

	// [from, to) のsale履歴の集計
	SoldBetween(ctx context.Context, from time.Time, to time.Time) ([]SoldRow, error)
}
