package database

import (
	"context"

	"github.com/anicoll/harmony-helper/internal/pkg/model"
)

func (db *Database) RegisterSensor(ctx context.Context, sensor model.SensorSnapshot) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO sensor (unique_id, helper, command, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (unique_id) DO UPDATE SET helper = EXCLUDED.helper, command = EXCLUDED.command, source = EXCLUDED.source;`,
		sensor.UniqueID, sensor.Helper, sensor.Command, sensor.Source)
	return err
}

// Write appends one history row per snapshot.
func (db *Database) Write(ctx context.Context, data []model.SensorSnapshot) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, record := range data {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sensor_history (time_stamp, unique_id, helper, state, activity, device, device_command)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, record.UpdatedAt, record.UniqueID, record.Helper, string(record.State), record.Activity,
			record.Attributes[model.AttrDevice], record.Attributes[model.AttrCommand]); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
