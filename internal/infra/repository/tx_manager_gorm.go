package repository

import (
	"context"

	repo "app/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	products     repo.ProductRepository
	reservations repo.ReservationRepository
	histories    repo.InventoryHistoryRepository
}

func (r *txReposGorm) Products() repo.ProductRepository           { return r.products }
func (r *txReposGorm) Reservations() repo.ReservationRepository   { return r.reservations }
func (r *txReposGorm) Histories() repo.InventoryHistoryRepository { return r.histories }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			products:     NewProductGormRepository(tx),
			reservations: NewReservationGormRepository(tx),
			histories:    NewInventoryHistoryGormRepository(tx),
		}
		return fn(r)
	})

	//コミット時の競合もここで番兵エラーへ寄せる
	return classifyPgError(err)
}
