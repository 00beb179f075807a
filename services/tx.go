package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/utils"
)

const maxTxAttempts = 3

// runInTx menjalankan fn dalam satu transaksi database. Kegagalan serialisasi,
// deadlock, lock timeout dan duplicate key (race pada idempotency key) diulang
// sampai maxTxAttempts. Error domain (validation/conflict/not found) dikembalikan apa adanya.
func runInTx(ctx context.Context, db *gorm.DB, op string, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if isDomainError(err) {
			return err
		}

		retryable := isRetryable(err)
		if !retryable || attempt == maxTxAttempts {
			return &PersistenceError{Op: op, Retryable: retryable, Err: err}
		}

		utils.InfoLogger.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
		}).Warnf("retrying transaction: %v", err)

		select {
		case <-ctx.Done():
			return &PersistenceError{Op: op, Retryable: true, Err: ctx.Err()}
		case <-time.After(time.Duration(attempt*25) * time.Millisecond):
		}
	}
	return &PersistenceError{Op: op, Retryable: true, Err: err}
}

func isDomainError(err error) bool {
	return IsValidation(err) || IsConflict(err) || IsNotFound(err)
}

func isRetryable(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// 1213 deadlock, 1205 lock wait timeout
		return myErr.Number == 1213 || myErr.Number == 1205
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// wrapStoreErr converts a failed read into a PersistenceError.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Retryable: isRetryable(err), Err: err}
}
