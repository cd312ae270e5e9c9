package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, job, status, started_at, finished_at, error_message, counters_json`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run          Run
		startedRaw   string
		finishedRaw  sql.NullString
		errorMessage sql.NullString
		countersRaw  sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Job, &run.Status, &startedRaw, &finishedRaw, &errorMessage, &countersRaw); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if t, err := time.Parse(timeLayout, startedRaw); err == nil {
		run.StartedAt = t
	}
	if finishedRaw.Valid {
		if t, err := time.Parse(timeLayout, finishedRaw.String); err == nil {
			run.FinishedAt = t
		}
	}
	run.Error = errorMessage.String
	if countersRaw.Valid && countersRaw.String != "" {
		if err := json.Unmarshal([]byte(countersRaw.String), &run.Counters); err != nil {
			return Run{}, fmt.Errorf("decode run counters: %w", err)
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
