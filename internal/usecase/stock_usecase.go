package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/cache"
	"app/internal/config"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

// 上位層へ返すエラー分類
type ErrorCode string

const (
	CodeProductNotFound     ErrorCode = "PRODUCT_NOT_FOUND"
	CodeVariantNotFound     ErrorCode = "VARIANT_NOT_FOUND"
	CodeReservationNotFound ErrorCode = "RESERVATION_NOT_FOUND"
	CodeInvalidInput        ErrorCode = "INVALID_INPUT"
	CodeInsufficientStock   ErrorCode = "INSUFFICIENT_STOCK"
	CodeStockLimitExceeded  ErrorCode = "STOCK_LIMIT_EXCEEDED"
	CodeVersionConflict     ErrorCode = "VERSION_CONFLICT"
	CodeInternal            ErrorCode = "INTERNAL"
)

type AppError struct {
	Code    ErrorCode
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) error {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// UUID等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 在庫照会。committed − 未失効予約 = available を計算する読み取り専用の入口。
type StockUsecase struct {
	products     repo.ProductRepository
	reservations repo.ReservationRepository
	cache        cache.Cache
	cacheTTL     time.Duration
	clock        Clock
	logger       *zap.Logger
}

// DI
func NewStockUsecase(
	cfg config.Config,
	products repo.ProductRepository,
	reservations repo.ReservationRepository,
	c cache.Cache,
	clock Clock,
	logger *zap.Logger,
) *StockUsecase {
	return &StockUsecase{
		products:     products,
		reservations: reservations,
		cache:        c,
		cacheTTL:     cfg.AvailabilityCacheTTL,
		clock:        clock,
		logger:       logger,
	}
}

// 在庫照会の入力DTO
type StockQueryInput struct {
	ProductID    int64
	VariantID    int64
	VariantLabel string
}

// quantity個をいま確保できるかどうか。キャッシュを介さず都度計算する。
func (u *StockUsecase) CheckAvailability(ctx context.Context, in StockQueryInput, quantity int64) (bool, error) {
	if in.ProductID <= 0 {
		return false, NewAppError(CodeInvalidInput, "invalid product id")
	}
	if quantity <= 0 {
		return false, NewAppError(CodeInvalidInput, "quantity must be positive")
	}

	available, err := u.liveAvailable(ctx, in)
	if err != nil {
		return false, err
	}
	return available >= quantity, nil
}

// 販売可能数を返す（0未満は0に丸める）。短TTLのキャッシュ付き。
func (u *StockUsecase) GetAvailableInventory(ctx context.Context, in StockQueryInput) (int64, error) {
	if in.ProductID <= 0 {
		return 0, NewAppError(CodeInvalidInput, "invalid product id")
	}

	key := stockCacheKey(in)

	var cached int64
	if err := cache.GetJSON(ctx, u.cache, key, &cached); err == nil {
		return cached, nil
	} else if err != cache.ErrCacheMiss {
		//キャッシュ障害は本処理を止めない
		u.logger.Warn("stock cache read failed", zap.String("key", key), zap.Error(err))
	}

	available, err := u.liveAvailable(ctx, in)
	if err != nil {
		return 0, err
	}
	if available < 0 {
		available = 0
	}

	if err := cache.SetJSON(ctx, u.cache, key, available, u.cacheTTL); err != nil {
		u.logger.Warn("stock cache write failed", zap.String("key", key), zap.Error(err))
	}

	return available, nil
}

func (u *StockUsecase) liveAvailable(ctx context.Context, in StockQueryInput) (int64, error) {
	p, err := u.products.FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return 0, NewAppError(CodeProductNotFound, "product not found")
	}
	if err != nil {
		return 0, err
	}

	now := u.clock.Now()
	ref := VariantRef{ID: in.VariantID, Label: in.VariantLabel}

	//指定なしは商品合算
	if ref.IsZero() {
		return availableForProduct(ctx, u.reservations, p, now)
	}

	v, err := resolveVariant(p, ref)
	if err != nil {
		return 0, err
	}
	return availableForVariant(ctx, u.reservations, v, now)
}

// アドレス方式ごとに決まったキーを使う。無効化は全形式へ届く（cache.InvalidateStock）。
func stockCacheKey(in StockQueryInput) string {
	if in.VariantID > 0 {
		return cache.VariantStockKey(in.ProductID, in.VariantID)
	}
	if in.VariantLabel != "" {
		return cache.VariantLabelStockKey(in.ProductID, in.VariantLabel)
	}
	return cache.ProductStockKey(in.ProductID)
}
