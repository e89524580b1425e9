package repository

import (
	"app/internal/domain/model"
	"context"
	"time"
)

// 予約台帳の約束。
// 行は追加・削除と、同一(商品,バリアント,セッション)の上書き更新のみ。
// 期限切れはexpires_at述語で除外する（物理削除はしない）。
type ReservationRepository interface {
	FindByID(ctx context.Context, id int64) (model.Reservation, error)

	// 同一(商品, バリアント, セッション)の既存予約。
	// 冪等リニューアルで再利用するため、期限切れの行も返す。
	// variantID=nil はバリアント未登録商品（variant_id IS NULL）の行を指す。
	FindBySessionAndVariant(ctx context.Context, productID int64, variantID *int64, sessionID string) (model.Reservation, error)

	// セッションが持つ予約（期限切れ含む）。解放時のキャッシュ無効化に使う
	ListBySession(ctx context.Context, sessionID string) ([]model.Reservation, error)

	Create(ctx context.Context, rsv model.Reservation) (model.Reservation, error)

	// 冪等リニューアル：数量と期限を上書き
	UpdateQuantityAndExpiry(ctx context.Context, id int64, quantity int64, expiresAt time.Time) error

	// 1件解放。無ければ0件（冪等）
	DeleteByID(ctx context.Context, id int64) (int64, error)

	// セッションの予約を全解放
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)

	// 未失効予約の数量合計。variantID=nilはIS NULL行のみを集計
	SumActiveForVariant(ctx context.Context, productID int64, variantID *int64, now time.Time) (int64, error)

	// 商品単位の未失効予約合計（全バリアント+NULL行）
	SumActiveForProduct(ctx context.Context, productID int64, now time.Time) (int64, error)
}
