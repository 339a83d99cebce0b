package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func RecordDispatch(db *sql.DB, rec model.DispatchRecord) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	if err := RecordDispatchWithTx(tx, rec); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}

func RecordDispatchWithTx(tx *sql.Tx, rec model.DispatchRecord) error {
	_, err := tx.Exec(`INSERT INTO dispatches (dispatch_id, pipe, started_at, finished_at, ok, error) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.DispatchID, int(rec.Pipe), formatTime(rec.StartedAt), formatTime(rec.FinishedAt), rec.OK, rec.Error)
	if err != nil {
		return fmt.Errorf("insert dispatch %s/%s: %w", rec.DispatchID, rec.Pipe, err)
	}
	return nil
}

func RecordLowPower(db *sql.DB, rec model.LowPowerRecord) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT INTO low_power_intervals (entered_at, exited_at, events_drained) VALUES (?, ?, ?)`,
		formatTime(rec.EnteredAt), formatTime(rec.ExitedAt), rec.EventsDrained)
	if err != nil {
		RollbackTransaction(tx)
		return fmt.Errorf("insert low power interval: %w", err)
	}
	return CommitTransaction(tx)
}

// PruneDispatches deletes dispatch records that started before cutoff.
func PruneDispatches(db *sql.DB, cutoff time.Time) (int64, error) {
	tx, err := StartTransaction(db)
	if err != nil {
		return 0, err
	}
	res, err := tx.Exec(`DELETE FROM dispatches WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		RollbackTransaction(tx)
		return 0, fmt.Errorf("prune dispatches: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, CommitTransaction(tx)
}
