package cache

import (
	"context"
	"fmt"
	"time"
)

// 集計系キー
const (
	MetricsKey    = "inventory:metrics"
	OutOfStockKey = "inventory:outofstock"
	LowStockKey   = "inventory:lowstock"
)

// ProductStockKey は商品合算在庫のキー。
func ProductStockKey(productID int64) string {
	return fmt.Sprintf("stock:p:%d", productID)
}

// VariantStockKey はバリエーション在庫のキー。
func VariantStockKey(productID, variantID int64) string {
	return fmt.Sprintf("stock:p:%d:v:%d", productID, variantID)
}

// VariantLabelStockKey はラベル指定時の在庫キー。
func VariantLabelStockKey(productID int64, label string) string {
	return fmt.Sprintf("stock:p:%d:l:%s", productID, label)
}

// TurnoverKey は期間指定の回転率キャッシュキー。TTL切れでのみ更新される。
func TurnoverKey(from, to time.Time) string {
	return fmt.Sprintf("inventory:turnover:%d:%d", from.Unix(), to.Unix())
}

// InvalidateStock は在庫変動した商品の照会キャッシュと集計キャッシュをまとめて破棄する。
func InvalidateStock(ctx context.Context, c Cache, productID int64) error {
	if err := c.Delete(ctx, ProductStockKey(productID)); err != nil {
		return err
	}
	if err := c.DeleteByPattern(ctx, ProductStockKey(productID)+":*"); err != nil {
		return err
	}
	for _, key := range []string{MetricsKey, OutOfStockKey, LowStockKey} {
		if err := c.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
