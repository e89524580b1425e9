package repository

import (
	"errors"

	repo "app/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

// リトライ対象として扱うPostgreSQLのSQLSTATE
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// gormの下から上がってくるpgエラーをrepositoryの番兵エラーへ寄せる。
// 直列化失敗とデッドロックだけがErrVersionConflictになり、他はそのまま返す。
func classifyPgError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return repo.ErrVersionConflict
		}
	}
	return err
}
