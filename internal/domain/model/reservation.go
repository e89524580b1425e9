package model

import "time"

// 予約の種類
type ReservationKind string

const (
	//カート投入中の一時確保。
	ReservationKindCart ReservationKind = "cart"

	//決済処理中の確保。
	ReservationKindCheckout ReservationKind = "checkout"
)

// 在庫の一時確保（ホールド）。
// expires_atを過ぎた行は集計で無視される。物理削除は明示的な解放時のみ。
// 同一(product, variant, session)の有効な予約は1行だけ（上書き更新で維持）。
type Reservation struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64           `gorm:"not null;index" json:"product_id"`
	VariantID *int64          `gorm:"index" json:"variant_id"`
	SessionID string          `gorm:"type:varchar(255);not null;index" json:"session_id"`
	UserID    int64           `gorm:"not null;default:0" json:"user_id"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	Kind      ReservationKind `gorm:"type:varchar(20);not null" json:"kind"`
	ExpiresAt time.Time       `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 予約がnow時点で有効かどうか。
func (r Reservation) ActiveAt(now time.Time) bool {
	return r.ExpiresAt.After(now)
}
