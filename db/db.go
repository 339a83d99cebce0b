package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS dispatches (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	dispatch_id TEXT NOT NULL,
	pipe        INTEGER NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	ok          BOOLEAN NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_dispatches_started_at ON dispatches(started_at);

CREATE TABLE IF NOT EXISTS low_power_intervals (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	entered_at     TEXT NOT NULL,
	exited_at      TEXT NOT NULL,
	events_drained INTEGER NOT NULL
);
`

// Open opens the SQLite audit database and makes sure the schema exists.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; the controller and the policy share this handle
	conn.SetMaxOpenConns(1)

	if err := ApplySchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	log.Info().Str("path", path).Msg("Audit database ready")
	return conn, nil
}

func ApplySchema(conn *sql.DB) error {
	tx, err := StartTransaction(conn)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(schema); err != nil {
		RollbackTransaction(tx)
		return fmt.Errorf("apply schema: %w", err)
	}
	return CommitTransaction(tx)
}

// Recorder adapts a connection to the recording interfaces of the controllers.
type Recorder struct {
	Conn *sql.DB
}

func (r Recorder) RecordDispatch(rec model.DispatchRecord) error {
	return RecordDispatch(r.Conn, rec)
}

func (r Recorder) RecordLowPower(rec model.LowPowerRecord) error {
	return RecordLowPower(r.Conn, rec)
}
