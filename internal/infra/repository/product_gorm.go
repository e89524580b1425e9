package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// Variants（position順）付きで取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product

	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, id asc")
		}).
		Where("id = ?", id).
		First(&p).Error

	if isNotFound(err) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 行ロック付き取得。予約やデフォルトバリアント作成の直列化に使う。
// ロックするのはproducts行だけで、Variantsはロック取得後に読み直す。
func (r *ProductGormRepository) FindByIDForUpdate(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product

	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).Error

	if isNotFound(err) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}

	var variants []model.ProductVariant
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", id).
		Order("position asc, id asc").
		Find(&variants).Error; err != nil {
		return model.Product{}, err
	}
	p.Variants = variants

	return p, nil
}

// バリアント1件取得
func (r *ProductGormRepository) FindVariantByID(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	var v model.ProductVariant

	err := r.db.WithContext(ctx).
		Where("id = ?", variantID).
		First(&v).Error

	if isNotFound(err) {
		return model.ProductVariant{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ProductVariant{}, err
	}
	return v, nil
}

// バリアント作成（デフォルトバリアントの遅延作成にも使う）
func (r *ProductGormRepository) CreateVariant(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error) {
	if err := r.db.WithContext(ctx).Create(&v).Error; err != nil {
		return model.ProductVariant{}, err
	}
	return v, nil
}

// 条件を満たすときだけ在庫へ符号付きデルタを適用する。
// 更新後の在庫数はRETURNINGで同じ文から受け取る。
func (r *ProductGormRepository) ApplyInventoryDelta(ctx context.Context, variantID int64, delta int64) (int64, bool, error) {
	v := model.ProductVariant{ID: variantID}

	res := r.db.WithContext(ctx).
		Model(&v).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "inventory"}}}).
		Where("inventory + ? >= 0 AND inventory + ? <= ?", delta, delta, model.MaxInventory).
		Update("inventory", gorm.Expr("inventory + ?", delta))

	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return v.Inventory, true, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
