package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/cache"
	"app/internal/domain/model"
	"app/internal/events"
	repo "app/internal/repository"

	"github.com/eapache/go-resiliency/retrier"
	"go.uber.org/zap"
)

// 競合リトライの上限とバックオフ初期値（100ms→200ms→400ms）
const (
	adjustMaxRetries = 3
	adjustRetryBase  = 100 * time.Millisecond
)

// usecaseがValidatorInterfaceに依存する約束
type InventoryValidator interface {
	ValidateAdjust(ctx context.Context, in AdjustInput) error
	ValidateReserve(ctx context.Context, in ReserveInput) error
}

// 予約分を売り越すsaleやcommitted不足の減算で返す。
type InsufficientStockError struct {
	ProductID int64
	VariantID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d (product %d, variant %d)",
		e.Requested, e.Available, e.ProductID, e.VariantID)
}

// 在庫上限を超える補充で返す。
type StockLimitExceededError struct {
	ProductID int64
	VariantID int64
	Requested int64
	Limit     int64
}

func (e *StockLimitExceededError) Error() string {
	return fmt.Sprintf("stock limit exceeded: delta %d would pass limit %d (product %d, variant %d)",
		e.Requested, e.Limit, e.ProductID, e.VariantID)
}

// 在庫調整。committed在庫を書き換える唯一の経路で、
// 境界チェック・履歴・キャッシュ破棄・イベント発行・競合リトライまで面倒を見る。
type AdjustmentUsecase struct {
	tx        repo.TransactionManager
	validator InventoryValidator
	cache     cache.Cache
	publisher events.Publisher
	idGen     IDGenerator
	clock     Clock
	logger    *zap.Logger
}

// DI
func NewAdjustmentUsecase(
	tx repo.TransactionManager,
	validator InventoryValidator,
	c cache.Cache,
	publisher events.Publisher,
	idGen IDGenerator,
	clock Clock,
	logger *zap.Logger,
) *AdjustmentUsecase {
	return &AdjustmentUsecase{
		tx:        tx,
		validator: validator,
		cache:     c,
		publisher: publisher,
		idGen:     idGen,
		clock:     clock,
		logger:    logger,
	}
}

type AdjustInput struct {
	ProductID    int64
	VariantID    int64
	VariantLabel string
	//符号付き。減算は負
	Delta    int64
	Reason   model.AdjustmentReason
	UserID   int64
	Metadata string
	//リトライをまたいで引き回す。空なら採番する
	CorrelationID string
}

type AdjustOutput struct {
	Success          bool                   `json:"success"`
	ProductID        int64                  `json:"product_id"`
	VariantID        *int64                 `json:"variant_id,omitempty"`
	PreviousQuantity int64                  `json:"previous_quantity"`
	NewQuantity      int64                  `json:"new_quantity"`
	AvailableStock   int64                  `json:"available_stock"`
	Status           model.StockStatus      `json:"status"`
	History          model.InventoryHistory `json:"history"`
	Message          string                 `json:"message,omitempty"`
}

// 在庫調整を1件適用する。
// 書き込み競合（直列化失敗）は同じ相関IDのまま全手順をリトライする。
func (u *AdjustmentUsecase) Adjust(ctx context.Context, in AdjustInput) (AdjustOutput, error) {
	if err := u.validator.ValidateAdjust(ctx, in); err != nil {
		return AdjustOutput{}, NewAppError(CodeInvalidInput, err.Error())
	}

	//相関IDはリトライ前に1回だけ採番する
	if in.CorrelationID == "" {
		in.CorrelationID = u.idGen.NewID()
	}

	var out AdjustOutput

	r := retrier.New(
		retrier.ExponentialBackoff(adjustMaxRetries, adjustRetryBase),
		retrier.WhitelistClassifier{repo.ErrVersionConflict},
	)
	err := r.RunCtx(ctx, func(ctx context.Context) error {
		txErr := u.tx.WithinTx(ctx, func(tr repo.TxRepos) error {
			var innerErr error
			out, innerErr = u.AdjustWithin(ctx, tr, in)
			return innerErr
		})
		if txErr == repo.ErrVersionConflict {
			u.logger.Warn("adjustment hit write conflict, retrying",
				zap.Int64("product_id", in.ProductID),
				zap.String("correlation_id", in.CorrelationID),
			)
		}
		return txErr
	})
	if err != nil {
		if errors.Is(err, repo.ErrVersionConflict) {
			return AdjustOutput{}, NewAppError(CodeVersionConflict, "write conflict retries exhausted")
		}
		return AdjustOutput{}, err
	}

	u.NotifyStockChanged(ctx, out)

	return out, nil
}

// トランザクション内で呼ぶ調整本体。予約確定（convertToPermanent）もここを通る。
// in.CorrelationIDは呼び出し側で採番済みであること。
func (u *AdjustmentUsecase) AdjustWithin(ctx context.Context, r repo.TxRepos, in AdjustInput) (AdjustOutput, error) {
	now := u.clock.Now()

	p, err := r.Products().FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return AdjustOutput{}, NewAppError(CodeProductNotFound, "product not found")
	}
	if err != nil {
		return AdjustOutput{}, err
	}

	ref := VariantRef{ID: in.VariantID, Label: in.VariantLabel}
	target, err := mutationTarget(p, ref)
	if err != nil {
		return AdjustOutput{}, err
	}

	//デフォルトバリアントの遅延作成。行ロック下で読み直して二重作成を防ぐ
	if target.ID == 0 {
		locked, err := r.Products().FindByIDForUpdate(ctx, in.ProductID)
		if err == repo.ErrNotFound {
			return AdjustOutput{}, NewAppError(CodeProductNotFound, "product not found")
		}
		if err != nil {
			return AdjustOutput{}, err
		}

		if len(locked.Variants) == 0 {
			created, err := r.Products().CreateVariant(ctx, model.NewDefaultVariant(locked))
			if err != nil {
				return AdjustOutput{}, err
			}
			target = created
		} else {
			//先に他のトランザクションが作っていた
			target, err = mutationTarget(locked, ref)
			if err != nil {
				return AdjustOutput{}, err
			}
		}
		p = locked
	}

	variantID := target.ID

	//saleはcommittedではなくavailable（予約差し引き後）に対して検査する
	if in.Reason == model.ReasonSale && in.Delta < 0 {
		reserved, err := r.Reservations().SumActiveForVariant(ctx, p.ID, &variantID, now)
		if err != nil {
			return AdjustOutput{}, err
		}
		available := target.Inventory - reserved
		if available < -in.Delta {
			return AdjustOutput{}, &InsufficientStockError{
				ProductID: p.ID,
				VariantID: variantID,
				Requested: -in.Delta,
				Available: available,
			}
		}
	}

	newQty, matched, err := r.Products().ApplyInventoryDelta(ctx, variantID, in.Delta)
	if err != nil {
		return AdjustOutput{}, err
	}
	if !matched {
		//行が無いのか条件違反なのかを読み直して判別する
		v2, err := r.Products().FindVariantByID(ctx, variantID)
		if err == repo.ErrNotFound {
			return AdjustOutput{}, NewAppError(CodeVariantNotFound, "variant not found")
		}
		if err != nil {
			return AdjustOutput{}, err
		}
		if in.Delta < 0 {
			return AdjustOutput{}, &InsufficientStockError{
				ProductID: p.ID,
				VariantID: variantID,
				Requested: -in.Delta,
				Available: v2.Inventory,
			}
		}
		return AdjustOutput{}, &StockLimitExceededError{
			ProductID: p.ID,
			VariantID: variantID,
			Requested: in.Delta,
			Limit:     model.MaxInventory,
		}
	}

	prev := newQty - in.Delta

	h, err := r.Histories().Create(ctx, model.InventoryHistory{
		ProductID:        p.ID,
		VariantID:        &variantID,
		PreviousQuantity: prev,
		NewQuantity:      newQty,
		Delta:            in.Delta,
		Reason:           in.Reason,
		UserID:           in.UserID,
		CorrelationID:    in.CorrelationID,
		MetadataJSON:     in.Metadata,
		CreatedAt:        now,
	})
	if err != nil {
		return AdjustOutput{}, err
	}

	//確定後のavailable（0未満は0に丸める）
	reserved, err := r.Reservations().SumActiveForVariant(ctx, p.ID, &variantID, now)
	if err != nil {
		return AdjustOutput{}, err
	}
	available := newQty - reserved
	if available < 0 {
		available = 0
	}

	return AdjustOutput{
		Success:          true,
		ProductID:        p.ID,
		VariantID:        &variantID,
		PreviousQuantity: prev,
		NewQuantity:      newQty,
		AvailableStock:   available,
		Status:           model.StockStatusFor(available, p.LowStockThreshold, p.AllowBackorder),
		History:          h,
	}, nil
}

// 複数件を1件ずつ独立に適用する。途中の失敗でバッチは止めない。
func (u *AdjustmentUsecase) BulkAdjust(ctx context.Context, updates []AdjustInput, userID int64) ([]AdjustOutput, error) {
	outs := make([]AdjustOutput, 0, len(updates))

	for _, in := range updates {
		in.UserID = userID

		out, err := u.Adjust(ctx, in)
		if err != nil {
			//失敗行は元のreason/metadataを残したゼロ値で埋める
			fail := AdjustOutput{
				Success:   false,
				ProductID: in.ProductID,
				Message:   err.Error(),
				History: model.InventoryHistory{
					Reason:       in.Reason,
					MetadataJSON: in.Metadata,
				},
			}
			if in.VariantID > 0 {
				vid := in.VariantID
				fail.VariantID = &vid
			}
			outs = append(outs, fail)
			continue
		}
		outs = append(outs, out)
	}

	return outs, nil
}

// 調整コミット後のキャッシュ破棄とイベント発行。
// どちらが失敗しても確定済みの調整は巻き戻さない（ログだけ残す）。
func (u *AdjustmentUsecase) NotifyStockChanged(ctx context.Context, out AdjustOutput) {
	invalidateStock(ctx, u.cache, u.logger, out.ProductID)

	ev := model.StockChangedEvent{
		ProductID:      out.ProductID,
		VariantID:      out.VariantID,
		AvailableStock: out.AvailableStock,
		TotalStock:     out.NewQuantity,
		Status:         out.Status,
		OccurredAt:     u.clock.Now(),
	}
	if err := u.publisher.PublishStockChanged(ctx, ev); err != nil {
		u.logger.Warn("stock event publish failed",
			zap.Int64("product_id", out.ProductID),
			zap.Error(err),
		)
	}
}

// 在庫変動した商品の照会・集計キャッシュをまとめて破棄する（失敗は握りつぶす）。
func invalidateStock(ctx context.Context, c cache.Cache, logger *zap.Logger, productID int64) {
	if err := cache.InvalidateStock(ctx, c, productID); err != nil {
		logger.Warn("cache invalidation failed",
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
	}
}
