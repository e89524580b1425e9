package validator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"app/internal/domain/model"
	"app/internal/usecase"
)

var (
	// 入力が不正
	ErrInvalidInput = errors.New("invalid input")

	// デルタが0、または絶対値が在庫上限を超えている
	ErrInvalidDelta = errors.New("invalid delta")

	// 理由コードが未知
	ErrUnknownReason = errors.New("unknown reason")

	// メタデータがJSONとして読めない
	ErrInvalidMetadata = errors.New("metadata must be json")
)

type inventoryValidator struct{}

// Usecaseは interface を依存注入
func NewInventoryValidator() usecase.InventoryValidator {
	return &inventoryValidator{}
}

// 在庫調整の入力を検証
func (v *inventoryValidator) ValidateAdjust(ctx context.Context, in usecase.AdjustInput) error {
	// 必須チェック
	if in.ProductID <= 0 {
		return ErrInvalidInput
	}
	if in.VariantID < 0 {
		return ErrInvalidInput
	}
	if len(in.VariantLabel) > 255 {
		return ErrInvalidInput
	}
	if in.UserID < 0 {
		return ErrInvalidInput
	}

	// デルタは符号付き。0は意味がないので弾く
	if in.Delta == 0 {
		return ErrInvalidDelta
	}
	if in.Delta > model.MaxInventory || in.Delta < -model.MaxInventory {
		return ErrInvalidDelta
	}

	if !model.ValidAdjustmentReason(in.Reason) {
		return ErrUnknownReason
	}

	if in.Metadata != "" && !json.Valid([]byte(in.Metadata)) {
		return ErrInvalidMetadata
	}

	return nil
}

// 予約の入力を検証
func (v *inventoryValidator) ValidateReserve(ctx context.Context, in usecase.ReserveInput) error {
	// 必須チェック
	if in.ProductID <= 0 {
		return ErrInvalidInput
	}
	if in.VariantID < 0 {
		return ErrInvalidInput
	}
	if len(in.VariantLabel) > 255 {
		return ErrInvalidInput
	}

	if in.Quantity <= 0 || in.Quantity > model.MaxInventory {
		return ErrInvalidInput
	}

	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" || len(sessionID) > 255 {
		return ErrInvalidInput
	}

	if in.UserID < 0 {
		return ErrInvalidInput
	}
	if in.Duration < 0 {
		return ErrInvalidInput
	}

	switch in.Kind {
	case "", model.ReservationKindCart, model.ReservationKindCheckout:
	default:
		return ErrInvalidInput
	}

	return nil
}
