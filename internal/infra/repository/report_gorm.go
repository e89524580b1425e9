package repository

import (
	"context"
	"time"

	repo "app/internal/repository"

	"gorm.io/gorm"
)

type ReportGormRepository struct {
	db *gorm.DB
}

// DI
func NewReportGormRepository(db *gorm.DB) *ReportGormRepository {
	return &ReportGormRepository{db: db}
}

// 商品数・バリアント数・総在庫・総在庫金額
func (r *ReportGormRepository) Totals(ctx context.Context) (repo.StockTotals, error) {
	var t repo.StockTotals

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(DISTINCT p.id)                    AS product_count,
			COUNT(v.id)                             AS variant_count,
			COALESCE(SUM(v.inventory), 0)           AS total_units,
			COALESCE(SUM(v.inventory * v.price), 0) AS total_value
		FROM products p
		LEFT JOIN product_variants v ON v.product_id = p.id
		WHERE p.deleted_at IS NULL
	`).Scan(&t).Error

	if err != nil {
		return repo.StockTotals{}, err
	}
	return t, nil
}

// now時点の全バリアントのavailable。
// バリアント未登録の商品も1行（variant_id=0, label='default'）として返す。
func (r *ReportGormRepository) AvailabilityRows(ctx context.Context, now time.Time) ([]repo.VariantAvailability, error) {
	var rows []repo.VariantAvailability

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			p.id                                               AS product_id,
			p.name                                             AS product_name,
			COALESCE(v.id, 0)                                  AS variant_id,
			COALESCE(v.label, 'default')                       AS label,
			COALESCE(v.sku, '')                                AS sku,
			COALESCE(v.inventory, 0)                           AS inventory,
			COALESCE(v.inventory, 0) - COALESCE(r.reserved, 0) AS available,
			p.low_stock_threshold                              AS low_stock_threshold,
			p.allow_backorder                                  AS allow_backorder,
			h.last_restocked_at                                AS last_restocked_at
		FROM products p
		LEFT JOIN product_variants v ON v.product_id = p.id
		LEFT JOIN (
			SELECT product_id, variant_id, SUM(quantity) AS reserved
			FROM reservations
			WHERE expires_at > ?
			GROUP BY product_id, variant_id
		) r ON r.product_id = p.id
			AND ((v.id IS NULL AND r.variant_id IS NULL) OR r.variant_id = v.id)
		LEFT JOIN (
			SELECT product_id, variant_id, MAX(created_at) AS last_restocked_at
			FROM inventory_histories
			WHERE reason = 'restock'
			GROUP BY product_id, variant_id
		) h ON h.product_id = p.id
			AND ((v.id IS NULL AND h.variant_id IS NULL) OR h.variant_id = v.id)
		WHERE p.deleted_at IS NULL AND p.is_active = TRUE
		ORDER BY p.id ASC, COALESCE(v.position, 0) ASC, COALESCE(v.id, 0) ASC
	`, now).Scan(&rows).Error

	if err != nil {
		return nil, err
	}
	return rows, nil
}

// [from, to) のsale履歴を集計。saleのdeltaは負なので符号を反転して売上数にする
func (r *ReportGormRepository) SoldBetween(ctx context.Context, from time.Time, to time.Time) ([]repo.SoldRow, error) {
	var rows []repo.SoldRow

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			h.product_id                 AS product_id,
			COALESCE(h.variant_id, 0)    AS variant_id,
			COALESCE(v.label, 'default') AS label,
			COALESCE(SUM(-h.delta), 0)   AS sold_units,
			COALESCE(v.inventory, 0)     AS inventory
		FROM inventory_histories h
		LEFT JOIN product_variants v ON v.id = h.variant_id
		WHERE h.reason = 'sale' AND h.delta < 0
			AND h.created_at >= ? AND h.created_at < ?
		GROUP BY h.product_id, h.variant_id, v.label, v.inventory
		ORDER BY sold_units DESC
	`, from, to).Scan(&rows).Error

	if err != nil {
		return nil, err
	}
	return rows, nil
}
