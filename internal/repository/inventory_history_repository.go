package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

//在庫履歴の絞り込み条件。

type HistoryFilter struct {
	ProductID     *int64
	VariantID     *int64
	Reason        *model.AdjustmentReason
	UserID        *int64
	CorrelationID *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// 在庫履歴の保存・一覧取得の約束。追記専用でUpdate/Deleteは提供しない。
type InventoryHistoryRepository interface {
	//履歴を1件保存し、採番済みの行を返す
	Create(ctx context.Context, h model.InventoryHistory) (model.InventoryHistory, error)

	//履歴を条件で一覧取得。
	List(ctx context.Context, filter HistoryFilter) ([]model.InventoryHistory, error)
}
