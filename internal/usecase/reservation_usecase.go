package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"app/internal/cache"
	"app/internal/config"
	"app/internal/domain/model"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

// 在庫の一時確保。committedは減らさず、予約台帳で販売可能数だけを抑える。
type ReservationUsecase struct {
	tx           repo.TransactionManager
	reservations repo.ReservationRepository
	adjuster     *AdjustmentUsecase
	validator    InventoryValidator
	cache        cache.Cache
	defaultTTL   time.Duration
	idGen        IDGenerator
	clock        Clock
	logger       *zap.Logger
}

// DI
func NewReservationUsecase(
	cfg config.Config,
	tx repo.TransactionManager,
	reservations repo.ReservationRepository,
	adjuster *AdjustmentUsecase,
	validator InventoryValidator,
	c cache.Cache,
	idGen IDGenerator,
	clock Clock,
	logger *zap.Logger,
) *ReservationUsecase {
	return &ReservationUsecase{
		tx:           tx,
		reservations: reservations,
		adjuster:     adjuster,
		validator:    validator,
		cache:        c,
		defaultTTL:   cfg.ReservationTTL,
		idGen:        idGen,
		clock:        clock,
		logger:       logger,
	}
}

type ReserveInput struct {
	ProductID    int64
	VariantID    int64
	VariantLabel string
	Quantity     int64
	SessionID    string
	UserID       int64
	Kind         model.ReservationKind
	//0なら設定値のデフォルトを使う
	Duration time.Duration
}

type ReserveOutput struct {
	Success        bool   `json:"success"`
	ReservationID  int64  `json:"reservation_id,omitempty"`
	AvailableStock int64  `json:"available_stock"`
	Message        string `json:"message,omitempty"`
}

// 在庫を一時確保する。
// 不足は失敗ではなく success=false で返す（部分的な書き込みは残さない）。
// 同一(商品, バリアント, セッション)の既存予約は数量と期限を上書きする（冪等リニューアル）。
func (u *ReservationUsecase) Reserve(ctx context.Context, in ReserveInput) (ReserveOutput, error) {
	if err := u.validator.ValidateReserve(ctx, in); err != nil {
		return ReserveOutput{}, NewAppError(CodeInvalidInput, err.Error())
	}

	duration := in.Duration
	if duration == 0 {
		duration = u.defaultTTL
	}
	kind := in.Kind
	if kind == "" {
		kind = model.ReservationKindCart
	}

	var out ReserveOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//商品行をロックして予約レースを直列化する
		p, err := r.Products().FindByIDForUpdate(ctx, in.ProductID)
		if err == repo.ErrNotFound {
			return NewAppError(CodeProductNotFound, "product not found")
		}
		if err != nil {
			return err
		}

		ref := VariantRef{ID: in.VariantID, Label: in.VariantLabel}
		target, err := mutationTarget(p, ref)
		if err != nil {
			return err
		}

		var variantID *int64
		if target.ID > 0 {
			variantID = &target.ID
		}

		now := u.clock.Now()

		//全セッションの未失効予約を数える（自分の既存予約も含む）
		reserved, err := r.Reservations().SumActiveForVariant(ctx, in.ProductID, variantID, now)
		if err != nil {
			return err
		}
		available := target.Inventory - reserved

		if available < in.Quantity {
			out = ReserveOutput{
				Success:        false,
				AvailableStock: available,
				Message:        fmt.Sprintf("insufficient stock: requested %d, available %d", in.Quantity, available),
			}
			return nil
		}

		expiresAt := now.Add(duration)

		existing, err := r.Reservations().FindBySessionAndVariant(ctx, in.ProductID, variantID, in.SessionID)
		if err != nil && err != repo.ErrNotFound {
			return err
		}

		var reservationID int64
		if err == nil {
			//冪等リニューアル
			if err := r.Reservations().UpdateQuantityAndExpiry(ctx, existing.ID, in.Quantity, expiresAt); err != nil {
				return err
			}
			reservationID = existing.ID
		} else {
			created, err := r.Reservations().Create(ctx, model.Reservation{
				ProductID: in.ProductID,
				VariantID: variantID,
				SessionID: in.SessionID,
				UserID:    in.UserID,
				Quantity:  in.Quantity,
				Kind:      kind,
				ExpiresAt: expiresAt,
			})
			if err != nil {
				return err
			}
			reservationID = created.ID
		}

		out = ReserveOutput{
			Success:        true,
			ReservationID:  reservationID,
			AvailableStock: available - in.Quantity,
		}
		return nil
	})
	if err != nil {
		if err == repo.ErrVersionConflict {
			return ReserveOutput{}, NewAppError(CodeVersionConflict, "concurrent reservation, retry")
		}
		return ReserveOutput{}, err
	}

	if out.Success {
		invalidateStock(ctx, u.cache, u.logger, in.ProductID)
	}

	return out, nil
}

// 予約を1件解放する。存在しなければ何もしない（冪等）。
func (u *ReservationUsecase) Release(ctx context.Context, reservationID int64) error {
	if reservationID <= 0 {
		return NewAppError(CodeInvalidInput, "invalid reservation id")
	}

	rsv, err := u.reservations.FindByID(ctx, reservationID)
	if err == repo.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := u.reservations.DeleteByID(ctx, rsv.ID); err != nil {
		return err
	}

	//失効済みの行はavailableに寄与していないので、消してもキャッシュは正しいまま
	if rsv.ActiveAt(u.clock.Now()) {
		invalidateStock(ctx, u.cache, u.logger, rsv.ProductID)
	}
	return nil
}

// セッションの予約をすべて解放する（カート放棄やログアウト時）。
func (u *ReservationUsecase) ReleaseAll(ctx context.Context, sessionID string) (int64, error) {
	if strings.TrimSpace(sessionID) == "" {
		return 0, NewAppError(CodeInvalidInput, "session id required")
	}

	rsvs, err := u.reservations.ListBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if len(rsvs) == 0 {
		return 0, nil
	}

	released, err := u.reservations.DeleteBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	//有効な予約を持っていた商品だけ、商品ごとに1回破棄する
	now := u.clock.Now()
	seen := make(map[int64]struct{}, len(rsvs))
	for _, rsv := range rsvs {
		if !rsv.ActiveAt(now) {
			continue
		}
		if _, ok := seen[rsv.ProductID]; ok {
			continue
		}
		seen[rsv.ProductID] = struct{}{}
		invalidateStock(ctx, u.cache, u.logger, rsv.ProductID)
	}

	return released, nil
}

// 予約を注文確定の減算へ変換する。
// 予約削除とsale減算を同一トランザクションで行い、どちらかだけが残ることはない。
func (u *ReservationUsecase) ConvertToPermanent(ctx context.Context, reservationID int64, orderID int64) (AdjustOutput, error) {
	if reservationID <= 0 {
		return AdjustOutput{}, NewAppError(CodeInvalidInput, "invalid reservation id")
	}
	if orderID <= 0 {
		return AdjustOutput{}, NewAppError(CodeInvalidInput, "invalid order id")
	}

	var out AdjustOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rsv, err := r.Reservations().FindByID(ctx, reservationID)
		if err == repo.ErrNotFound {
			return NewAppError(CodeReservationNotFound, "reservation not found")
		}
		if err != nil {
			return err
		}

		//先に予約を消す。消した分のavailableが戻るので、直後のsale検査が通る
		if _, err := r.Reservations().DeleteByID(ctx, rsv.ID); err != nil {
			return err
		}

		in := AdjustInput{
			ProductID:     rsv.ProductID,
			Delta:         -rsv.Quantity,
			Reason:        model.ReasonSale,
			UserID:        rsv.UserID,
			Metadata:      fmt.Sprintf(`{"order_id":%d,"reservation_id":%d}`, orderID, rsv.ID),
			CorrelationID: u.idGen.NewID(),
		}
		if rsv.VariantID != nil {
			in.VariantID = *rsv.VariantID
		}

		out, err = u.adjuster.AdjustWithin(ctx, r, in)
		return err
	})
	if err != nil {
		if err == repo.ErrVersionConflict {
			return AdjustOutput{}, NewAppError(CodeVersionConflict, "concurrent update, retry")
		}
		return AdjustOutput{}, err
	}

	u.adjuster.NotifyStockChanged(ctx, out)

	return out, nil
}

// セッションの予約をまとめて確定する（注文完了イベント用）。
// 1件ずつ独立したトランザクションで変換する。再送しても直らない失敗
// （消えた予約など）だけ読み飛ばし、競合やDB障害はエラーで上げて
// 呼び出し側の再処理に任せる。既に変換済みなら0件のまま正常終了する。
func (u *ReservationUsecase) ConvertAllForSession(ctx context.Context, sessionID string, orderID int64) (int64, error) {
	if strings.TrimSpace(sessionID) == "" {
		return 0, NewAppError(CodeInvalidInput, "session id required")
	}
	if orderID <= 0 {
		return 0, NewAppError(CodeInvalidInput, "invalid order id")
	}

	rsvs, err := u.reservations.ListBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	var converted int64
	for _, rsv := range rsvs {
		if _, err := u.ConvertToPermanent(ctx, rsv.ID, orderID); err != nil {
			if ae, ok := AsAppError(err); ok && ae.Code != CodeVersionConflict {
				u.logger.Warn("skipping unconvertible reservation",
					zap.Int64("reservation_id", rsv.ID),
					zap.Int64("order_id", orderID),
					zap.Error(err),
				)
				continue
			}
			//一過性の失敗をここで握りつぶすと確定減算が失われる
			return converted, err
		}
		converted++
	}

	return converted, nil
}
