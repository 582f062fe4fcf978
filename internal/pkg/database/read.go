package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anicoll/harmony-helper/internal/pkg/model"
)

const defaultHistoryWindow = 48 * time.Hour

// GetHistory returns the transitions of one sensor, newest first.
// A missing to defaults to now and a missing from to two days before to.
func (db *Database) GetHistory(ctx context.Context, uniqueID string, from, to *time.Time) ([]model.HistoryRecord, error) {
	start, end := historyRange(from, to, time.Now())
	rows, err := db.pool.Query(ctx, `
	SELECT id, time_stamp, unique_id, helper, state, activity, device, device_command
	FROM sensor_history
	WHERE unique_id = $1 AND time_stamp BETWEEN $2 AND $3
	ORDER BY time_stamp DESC, id DESC;
	`, uniqueID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func historyRange(from, to *time.Time, now time.Time) (time.Time, time.Time) {
	end := now
	if to != nil {
		end = *to
	}
	start := end.Add(-defaultHistoryWindow)
	if from != nil {
		start = *from
	}
	return start, end
}

func scanHistory(rows pgx.Rows) ([]model.HistoryRecord, error) {
	records := []model.HistoryRecord{}
	for rows.Next() {
		var r model.HistoryRecord
		var state string
		if err := rows.Scan(&r.ID, &r.TimeStamp, &r.UniqueID, &r.Helper, &state, &r.Activity, &r.Device, &r.DeviceCommand); err != nil {
			return nil, err
		}
		r.State = model.SensorState(state)
		records = append(records, r)
	}
	return records, rows.Err()
}
