package db

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func RecentDispatchesCLI(w io.Writer, dbPath string, limit int) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	recs, err := GetRecentDispatches(conn, limit)
	if err != nil {
		return err
	}
	return printJSON(w, recs)
}

func PipeTotalsCLI(w io.Writer, dbPath string) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	totals, err := CountDispatchesByPipe(conn)
	if err != nil {
		return err
	}
	return printJSON(w, totals)
}

func LowPowerHistoryCLI(w io.Writer, dbPath string, limit int) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	recs, err := GetLowPowerIntervals(conn, limit)
	if err != nil {
		return err
	}
	return printJSON(w, recs)
}

func PruneDispatchesCLI(w io.Writer, dbPath string, olderThan time.Duration) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	n, err := PruneDispatches(conn, time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Pruned %d dispatch records older than %s\n", n, olderThan)
	return err
}
