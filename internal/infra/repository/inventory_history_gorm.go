package repository

import (
	"context"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type inventoryHistoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryHistoryGormRepository(db *gorm.DB) repo.InventoryHistoryRepository {
	return &inventoryHistoryGormRepository{db: db}
}

func (r *inventoryHistoryGormRepository) Create(ctx context.Context, h model.InventoryHistory) (model.InventoryHistory, error) {
	if err := r.db.WithContext(ctx).Create(&h).Error; err != nil {
		return model.InventoryHistory{}, err
	}
	return h, nil
}

func (r *inventoryHistoryGormRepository) List(ctx context.Context, filter repo.HistoryFilter) ([]model.InventoryHistory, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryHistory{})

	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.VariantID != nil {
		q = q.Where("variant_id = ?", *filter.VariantID)
	}
	if filter.Reason != nil {
		q = q.Where("reason = ?", *filter.Reason)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.CorrelationID != nil {
		q = q.Where("correlation_id = ?", *filter.CorrelationID)
	}
	if filter.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		q = q.Where("created_at <= ?", *filter.CreatedTo)
	}

	//新しい順
	q = q.Order("id DESC")

	// limit/offset
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	q = q.Limit(limit).Offset(filter.Offset)

	var histories []model.InventoryHistory
	if err := q.Find(&histories).Error; err != nil {
		return nil, err
	}
	return histories, nil
}
