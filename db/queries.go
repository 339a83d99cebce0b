package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

// GetRecentDispatches returns up to limit dispatch records, newest first.
func GetRecentDispatches(db *sql.DB, limit int) ([]model.DispatchRecord, error) {
	rows, err := db.Query(`SELECT dispatch_id, pipe, started_at, finished_at, ok, error
		FROM dispatches ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatches: %w", err)
	}
	defer rows.Close()

	var out []model.DispatchRecord
	for rows.Next() {
		var (
			r                 model.DispatchRecord
			pipe              int
			started, finished string
		)
		if err := rows.Scan(&r.DispatchID, &pipe, &started, &finished, &r.OK, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch: %w", err)
		}
		r.Pipe = model.PipeID(pipe)
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetLowPowerIntervals returns up to limit low-power intervals, newest first.
func GetLowPowerIntervals(db *sql.DB, limit int) ([]model.LowPowerRecord, error) {
	rows, err := db.Query(`SELECT entered_at, exited_at, events_drained
		FROM low_power_intervals ORDER BY entered_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query low power intervals: %w", err)
	}
	defer rows.Close()

	var out []model.LowPowerRecord
	for rows.Next() {
		var (
			r               model.LowPowerRecord
			entered, exited string
		)
		if err := rows.Scan(&entered, &exited, &r.EventsDrained); err != nil {
			return nil, fmt.Errorf("failed to scan low power interval: %w", err)
		}
		r.EnteredAt, _ = time.Parse(time.RFC3339Nano, entered)
		r.ExitedAt, _ = time.Parse(time.RFC3339Nano, exited)
		out = append(out, r)
	}
	return out, rows.Err()
}

type PipeTotal struct {
	Pipe     model.PipeID `json:"pipe"`
	OK       int          `json:"ok"`
	Failed   int          `json:"failed"`
	LastSeen time.Time    `json:"last_seen"`
}

func CountDispatchesByPipe(db *sql.DB) ([]PipeTotal, error) {
	rows, err := db.Query(`SELECT pipe,
			SUM(CASE WHEN ok THEN 1 ELSE 0 END),
			SUM(CASE WHEN ok THEN 0 ELSE 1 END),
			MAX(started_at)
		FROM dispatches GROUP BY pipe ORDER BY pipe`)
	if err != nil {
		return nil, fmt.Errorf("failed to count dispatches: %w", err)
	}
	defer rows.Close()

	var out []PipeTotal
	for rows.Next() {
		var (
			t    PipeTotal
			pipe int
			last string
		)
		if err := rows.Scan(&pipe, &t.OK, &t.Failed, &last); err != nil {
			return nil, fmt.Errorf("failed to scan pipe totals: %w", err)
		}
		t.Pipe = model.PipeID(pipe)
		t.LastSeen, _ = time.Parse(time.RFC3339Nano, last)
		out = append(out, t)
	}
	return out, rows.Err()
}
