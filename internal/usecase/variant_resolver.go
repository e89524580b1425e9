package usecase

import (
	"context"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// バリアントの参照。IDかLabelのどちらかで指す（両方ゼロ値は商品全体）。
// 旧ラベル方式と新ID方式の併存期間中はどちらでも同じバリアントに届く。
type VariantRef struct {
	ID    int64
	Label string
}

func (r VariantRef) IsZero() bool {
	return r.ID == 0 && r.Label == ""
}

// プリロード済みのVariantsから参照先を探す。IDが指定されていればIDが勝つ。
func findVariant(p model.Product, ref VariantRef) (model.ProductVariant, bool) {
	for _, v := range p.Variants {
		if ref.ID > 0 {
			if v.ID == ref.ID {
				return v, true
			}
			continue
		}
		if ref.Label != "" && v.Label == ref.Label {
			return v, true
		}
	}
	return model.ProductVariant{}, false
}

// 参照指定ありの解決。未作成の既定ラベルだけは合成値（ID=0）で返す。
func resolveVariant(p model.Product, ref VariantRef) (model.ProductVariant, error) {
	if v, ok := findVariant(p, ref); ok {
		return v, nil
	}
	if ref.ID == 0 && ref.Label == model.DefaultVariantLabel && len(p.Variants) == 0 {
		return model.NewDefaultVariant(p), nil
	}
	return model.ProductVariant{}, NewAppError(CodeVariantNotFound, "variant not found")
}

// 予約・調整の対象となる1バリアントを決める。
// 指定なしは表示順の先頭。バリアント未登録の商品は既定を合成する（ID=0のまま）。
func mutationTarget(p model.Product, ref VariantRef) (model.ProductVariant, error) {
	if !ref.IsZero() {
		return resolveVariant(p, ref)
	}
	if len(p.Variants) > 0 {
		return p.Variants[0], nil
	}
	return model.NewDefaultVariant(p), nil
}

// committedから未失効予約を引いた販売可能数（1バリアント分）。
// ID=0の合成バリアントはvariant_id IS NULLの予約行を集計する。
func availableForVariant(ctx context.Context, reservations repo.ReservationRepository, v model.ProductVariant, now time.Time) (int64, error) {
	var variantID *int64
	if v.ID > 0 {
		variantID = &v.ID
	}

	reserved, err := reservations.SumActiveForVariant(ctx, v.ProductID, variantID, now)
	if err != nil {
		return 0, err
	}
	return v.Inventory - reserved, nil
}

// 商品合算の販売可能数（全バリアントのcommitted合計 − 商品単位の未失効予約合計）。
func availableForProduct(ctx context.Context, reservations repo.ReservationRepository, p model.Product, now time.Time) (int64, error) {
	var committed int64
	for _, v := range p.Variants {
		committed += v.Inventory
	}

	reserved, err := reservations.SumActiveForProduct(ctx, p.ID, now)
	if err != nil {
		return 0, err
	}
	return committed - reserved, nil
}
