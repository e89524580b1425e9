package usecase

import (
	"context"
	"sort"
	"time"

	"app/internal/cache"
	"app/internal/config"
	"app/internal/domain/model"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

// 在庫の集計ビュー。状態は一切変更しない読み取り専用レイヤ。
// 結果は短TTLでキャッシュし、鮮度はTTLまで保証しない。
type ReportUsecase struct {
	reports       repo.ReportRepository
	histories     repo.InventoryHistoryRepository
	cache         cache.Cache
	metricsTTL    time.Duration
	outOfStockTTL time.Duration
	clock         Clock
	logger        *zap.Logger
}

// DI
func NewReportUsecase(
	cfg config.Config,
	reports repo.ReportRepository,
	histories repo.InventoryHistoryRepository,
	c cache.Cache,
	clock Clock,
	logger *zap.Logger,
) *ReportUsecase {
	return &ReportUsecase{
		reports:       reports,
		histories:     histories,
		cache:         c,
		metricsTTL:    cfg.MetricsCacheTTL,
		outOfStockTTL: cfg.OutOfStockCacheTTL,
		clock:         clock,
		logger:        logger,
	}
}

type InventoryMetricsOutput struct {
	TotalProducts   int64 `json:"total_products"`
	TotalVariants   int64 `json:"total_variants"`
	TotalUnits      int64 `json:"total_units"`
	TotalStockValue int64 `json:"total_stock_value"`
	InStock         int64 `json:"in_stock"`
	LowStock        int64 `json:"low_stock"`
	OutOfStock      int64 `json:"out_of_stock"`
	Backordered     int64 `json:"backordered"`
}

type OutOfStockItemOutput struct {
	ProductID       int64      `json:"product_id"`
	ProductName     string     `json:"product_name"`
	VariantID       int64      `json:"variant_id,omitempty"`
	Label           string     `json:"label"`
	SKU             string     `json:"sku,omitempty"`
	LastRestockedAt *time.Time `json:"last_restocked_at,omitempty"`
}

type LowStockItemOutput struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	VariantID   int64  `json:"variant_id,omitempty"`
	Label       string `json:"label"`
	Available   int64  `json:"available"`
	Threshold   int64  `json:"threshold"`
}

type TurnoverItemOutput struct {
	ProductID int64   `json:"product_id"`
	VariantID int64   `json:"variant_id,omitempty"`
	Label     string  `json:"label"`
	SoldUnits int64   `json:"sold_units"`
	Inventory int64   `json:"inventory"`
	Rate      float64 `json:"rate"`
}

// 在庫全体のサマリ（総額・ステータス別件数）。
func (u *ReportUsecase) Metrics(ctx context.Context) (InventoryMetricsOutput, error) {
	var cached InventoryMetricsOutput
	if err := cache.GetJSON(ctx, u.cache, cache.MetricsKey, &cached); err == nil {
		return cached, nil
	} else if err != cache.ErrCacheMiss {
		u.logger.Warn("metrics cache read failed", zap.Error(err))
	}

	totals, err := u.reports.Totals(ctx)
	if err != nil {
		return InventoryMetricsOutput{}, err
	}

	rows, err := u.reports.AvailabilityRows(ctx, u.clock.Now())
	if err != nil {
		return InventoryMetricsOutput{}, err
	}

	out := InventoryMetricsOutput{
		TotalProducts:   totals.ProductCount,
		TotalVariants:   totals.VariantCount,
		TotalUnits:      totals.TotalUnits,
		TotalStockValue: totals.TotalValue,
	}
	for _, row := range rows {
		switch model.StockStatusFor(row.Available, row.LowStockThreshold, row.AllowBackorder) {
		case model.StockStatusInStock:
			out.InStock++
		case model.StockStatusLowStock:
			out.LowStock++
		case model.StockStatusOutOfStock:
			out.OutOfStock++
		case model.StockStatusBackordered:
			out.Backordered++
		}
	}

	if err := cache.SetJSON(ctx, u.cache, cache.MetricsKey, out, u.metricsTTL); err != nil {
		u.logger.Warn("metrics cache write failed", zap.Error(err))
	}

	return out, nil
}

// availableが0以下かつ取り寄せ不可のバリアント一覧。最終入荷日時つき。
func (u *ReportUsecase) OutOfStockItems(ctx context.Context) ([]OutOfStockItemOutput, error) {
	var cached []OutOfStockItemOutput
	if err := cache.GetJSON(ctx, u.cache, cache.OutOfStockKey, &cached); err == nil {
		return cached, nil
	} else if err != cache.ErrCacheMiss {
		u.logger.Warn("out of stock cache read failed", zap.Error(err))
	}

	rows, err := u.reports.AvailabilityRows(ctx, u.clock.Now())
	if err != nil {
		return nil, err
	}

	out := make([]OutOfStockItemOutput, 0)
	for _, row := range rows {
		if row.Available > 0 || row.AllowBackorder {
			continue
		}
		out = append(out, OutOfStockItemOutput{
			ProductID:       row.ProductID,
			ProductName:     row.ProductName,
			VariantID:       row.VariantID,
			Label:           row.Label,
			SKU:             row.SKU,
			LastRestockedAt: row.LastRestockedAt,
		})
	}

	if err := cache.SetJSON(ctx, u.cache, cache.OutOfStockKey, out, u.outOfStockTTL); err != nil {
		u.logger.Warn("out of stock cache write failed", zap.Error(err))
	}

	return out, nil
}

// 閾値以下まで減ったバリアント一覧（発注アラート用）。
func (u *ReportUsecase) LowStockItems(ctx context.Context) ([]LowStockItemOutput, error) {
	var cached []LowStockItemOutput
	if err := cache.GetJSON(ctx, u.cache, cache.LowStockKey, &cached); err == nil {
		return cached, nil
	} else if err != cache.ErrCacheMiss {
		u.logger.Warn("low stock cache read failed", zap.Error(err))
	}

	rows, err := u.reports.AvailabilityRows(ctx, u.clock.Now())
	if err != nil {
		return nil, err
	}

	out := make([]LowStockItemOutput, 0)
	for _, row := range rows {
		if row.Available <= 0 || row.Available > row.LowStockThreshold {
			continue
		}
		out = append(out, LowStockItemOutput{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			VariantID:   row.VariantID,
			Label:       row.Label,
			Available:   row.Available,
			Threshold:   row.LowStockThreshold,
		})
	}

	if err := cache.SetJSON(ctx, u.cache, cache.LowStockKey, out, u.outOfStockTTL); err != nil {
		u.logger.Warn("low stock cache write failed", zap.Error(err))
	}

	return out, nil
}

// 期間内のsale数を現在在庫で割った回転率。高い順に返す。
func (u *ReportUsecase) TurnoverRates(ctx context.Context, from time.Time, to time.Time) ([]TurnoverItemOutput, error) {
	if !from.Before(to) {
		return nil, NewAppError(CodeInvalidInput, "from must be before to")
	}

	key := cache.TurnoverKey(from, to)

	var cached []TurnoverItemOutput
	if err := cache.GetJSON(ctx, u.cache, key, &cached); err == nil {
		return cached, nil
	} else if err != cache.ErrCacheMiss {
		u.logger.Warn("turnover cache read failed", zap.Error(err))
	}

	rows, err := u.reports.SoldBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]TurnoverItemOutput, 0, len(rows))
	for _, row := range rows {
		//在庫0は分母1として扱う（完売直後も率を出す）
		denom := row.Inventory
		if denom < 1 {
			denom = 1
		}
		out = append(out, TurnoverItemOutput{
			ProductID: row.ProductID,
			VariantID: row.VariantID,
			Label:     row.Label,
			SoldUnits: row.SoldUnits,
			Inventory: row.Inventory,
			Rate:      float64(row.SoldUnits) / float64(denom),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Rate != out[j].Rate {
			return out[i].Rate > out[j].Rate
		}
		return out[i].SoldUnits > out[j].SoldUnits
	})

	if err := cache.SetJSON(ctx, u.cache, key, out, u.metricsTTL); err != nil {
		u.logger.Warn("turnover cache write failed", zap.Error(err))
	}

	return out, nil
}

// 在庫履歴の一覧取得
type HistoryListInput struct {
	ProductID     int64
	VariantID     int64
	Reason        string
	UserID        int64
	CorrelationID string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

func (u *ReportUsecase) ListHistory(ctx context.Context, in HistoryListInput) ([]model.InventoryHistory, error) {
	if in.Limit < 0 || in.Offset < 0 {
		return nil, NewAppError(CodeInvalidInput, "invalid paging")
	}

	filter := repo.HistoryFilter{
		Limit:  in.Limit,
		Offset: in.Offset,
	}
	if in.ProductID > 0 {
		filter.ProductID = &in.ProductID
	}
	if in.VariantID > 0 {
		filter.VariantID = &in.VariantID
	}
	if in.Reason != "" {
		reason := model.AdjustmentReason(in.Reason)
		if !model.ValidAdjustmentReason(reason) {
			return nil, NewAppError(CodeInvalidInput, "unknown reason")
		}
		filter.Reason = &reason
	}
	if in.UserID > 0 {
		filter.UserID = &in.UserID
	}
	if in.CorrelationID != "" {
		filter.CorrelationID = &in.CorrelationID
	}
	filter.CreatedFrom = in.From
	filter.CreatedTo = in.To

	return u.histories.List(ctx, filter)
}
