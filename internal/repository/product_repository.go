package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// 直列化失敗・デッドロックなど、リトライで通る可能性のある書き込み競合。
var ErrVersionConflict = errors.New("version conflict")

// 商品と在庫数の永続化の約束。
// Inventory列の書き換えはApplyInventoryDelta経由のみ。
type ProductRepository interface {
	// Variants（position順）付きで取得
	FindByID(ctx context.Context, id int64) (model.Product, error)

	// 行ロック付き取得。トランザクション内でのみ意味を持つ
	FindByIDForUpdate(ctx context.Context, id int64) (model.Product, error)

	// バリアント1件取得（条件付きUPDATEが空振りした時の再読込にも使う）
	FindVariantByID(ctx context.Context, variantID int64) (model.ProductVariant, error)

	// バリアント追加（デフォルトバリアントの遅延作成にも使う）
	CreateVariant(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error)

	// 0 <= inventory+delta <= MaxInventory を満たす時だけ符号付きデルタを適用。
	// 適用できたら新しい在庫数を返す。matched=falseは行なしか条件違反。
	ApplyInventoryDelta(ctx context.Context, variantID int64, delta int64) (newQuantity int64, matched bool, err error)
}
