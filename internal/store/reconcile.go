package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dvloznov/expense-ingest/internal/domain"
	"github.com/dvloznov/expense-ingest/internal/logger"
)

// reconcile inserts rows inside one transaction, skipping any whose key
// already exists. Each row runs under its own savepoint: a rejected row is
// logged, rolled back alone and left out of both counts, and the batch still
// commits. Infrastructure failures roll back everything and surface as
// *TransactionError.
func reconcile[T any](ctx context.Context, db *gorm.DB, table string, key []clause.Column, rows []T, describe func(*T) string) (domain.BatchOutcome, error) {
	log := logger.FromContext(ctx)
	var outcome domain.BatchOutcome

	if len(rows) == 0 {
		return outcome, nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			sp := fmt.Sprintf("reconcile_row_%d", i)
			if err := tx.SavePoint(sp).Error; err != nil {
				return &TransactionError{Op: "savepoint", Err: err}
			}

			res := tx.Clauses(clause.OnConflict{Columns: key, DoNothing: true}).Create(&rows[i])
			if res.Error != nil {
				if isInfraError(res.Error) {
					return &TransactionError{Op: "insert", Err: res.Error}
				}
				log.Warn().
					Err(res.Error).
					Str("table", table).
					Str("row", describe(&rows[i])).
					Msg("Skipping row that failed to insert")
				if err := tx.RollbackTo(sp).Error; err != nil {
					return &TransactionError{Op: "rollback to savepoint", Err: err}
				}
			} else if res.RowsAffected == 0 {
				outcome.Duplicates++
			} else {
				outcome.Inserted++
			}

			if err := tx.Exec("RELEASE SAVEPOINT " + sp).Error; err != nil {
				return &TransactionError{Op: "release savepoint", Err: err}
			}
		}
		return nil
	})
	if err != nil {
		var txErr *TransactionError
		if errors.As(err, &txErr) {
			return domain.BatchOutcome{}, err
		}
		return domain.BatchOutcome{}, &TransactionError{Op: "begin or commit", Err: err}
	}

	log.Info().
		Str("table", table).
		Int("inserted", outcome.Inserted).
		Int("duplicates", outcome.Duplicates).
		Int("attempted", len(rows)).
		Msg("Reconciled batch")
	return outcome, nil
}
