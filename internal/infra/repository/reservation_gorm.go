package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type ReservationGormRepository struct {
	db *gorm.DB
}

// DI
func NewReservationGormRepository(db *gorm.DB) *ReservationGormRepository {
	return &ReservationGormRepository{db: db}
}

func (r *ReservationGormRepository) FindByID(ctx context.Context, id int64) (model.Reservation, error) {
	var rsv model.Reservation

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&rsv).Error

	if isNotFound(err) {
		return model.Reservation{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, err
	}
	return rsv, nil
}

// 同一(商品, バリアント, セッション)の既存予約を取得。
// 冪等リニューアルで再利用するため期限切れでも返す。
func (r *ReservationGormRepository) FindBySessionAndVariant(ctx context.Context, productID int64, variantID *int64, sessionID string) (model.Reservation, error) {
	q := r.db.WithContext(ctx).
		Where("product_id = ? AND session_id = ?", productID, sessionID)

	if variantID != nil {
		q = q.Where("variant_id = ?", *variantID)
	} else {
		q = q.Where("variant_id IS NULL")
	}

	var rsv model.Reservation
	err := q.Order("id desc").First(&rsv).Error

	if isNotFound(err) {
		return model.Reservation{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, err
	}
	return rsv, nil
}

// セッションが持つ予約（期限切れ含む）
func (r *ReservationGormRepository) ListBySession(ctx context.Context, sessionID string) ([]model.Reservation, error) {
	var rsvs []model.Reservation

	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id asc").
		Find(&rsvs).Error

	if err != nil {
		return nil, err
	}
	return rsvs, nil
}

func (r *ReservationGormRepository) Create(ctx context.Context, rsv model.Reservation) (model.Reservation, error) {
	if err := r.db.WithContext(ctx).Create(&rsv).Error; err != nil {
		return model.Reservation{}, err
	}
	return rsv, nil
}

// 冪等リニューアル：数量と期限を上書き
func (r *ReservationGormRepository) UpdateQuantityAndExpiry(ctx context.Context, id int64, quantity int64, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"expires_at": expiresAt,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 1件解放。無ければ0件（冪等）
func (r *ReservationGormRepository) DeleteByID(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&model.Reservation{}, id)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// セッションの予約を全解放
func (r *ReservationGormRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&model.Reservation{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// 未失効予約の数量合計。variantID=nilはIS NULL行のみを集計
func (r *ReservationGormRepository) SumActiveForVariant(ctx context.Context, productID int64, variantID *int64, now time.Time) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("product_id = ? AND expires_at > ?", productID, now)

	if variantID != nil {
		q = q.Where("variant_id = ?", *variantID)
	} else {
		q = q.Where("variant_id IS NULL")
	}

	var total int64
	if err := q.Select("COALESCE(SUM(quantity), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// 商品単位の未失効予約合計（全バリアント+NULL行）
func (r *ReservationGormRepository) SumActiveForProduct(ctx context.Context, productID int64, now time.Time) (int64, error) {
	var total int64

	err := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("product_id = ? AND expires_at > ?", productID, now).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error

	if err != nil {
		return 0, err
	}
	return total, nil
}
