package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/clock"
)

const availabilityColumns = `
	id, doctor_id, date,
	shift1_enabled, shift1_start, shift1_end,
	shift2_enabled, shift2_start, shift2_end,
	created_at, updated_at`

func (r *availabilityRepository) Get(ctx context.Context, doctorID uuid.UUID, date clock.Date) (*model.AvailabilityWindow, error) {
	var window model.AvailabilityWindow
	query := `SELECT ` + availabilityColumns + ` FROM availability WHERE doctor_id = $1 AND date = $2`
	if err := r.db.GetContext(ctx, &window, query, doctorID, date); err != nil {
		return nil, mapError("availability", err)
	}
	return &window, nil
}

func (r *availabilityRepository) ListRange(ctx context.Context, doctorID uuid.UUID, from, to clock.Date) ([]*model.AvailabilityWindow, error) {
	var windows []*model.AvailabilityWindow
	query := `
		SELECT ` + availabilityColumns + `
		FROM availability
		WHERE doctor_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`
	if err := r.db.SelectContext(ctx, &windows, query, doctorID, from, to); err != nil {
		return nil, mapError("availability", err)
	}
	return windows, nil
}

// Upsert keeps the existing row id when (doctor_id, date) already exists.
func (r *availabilityRepository) Upsert(ctx context.Context, window *model.AvailabilityWindow) error {
	window.Touch(time.Now())
	query := `
		INSERT INTO availability (` + availabilityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (doctor_id, date) DO UPDATE SET
			shift1_enabled = EXCLUDED.shift1_enabled,
			shift1_start   = EXCLUDED.shift1_start,
			shift1_end     = EXCLUDED.shift1_end,
			shift2_enabled = EXCLUDED.shift2_enabled,
			shift2_start   = EXCLUDED.shift2_start,
			shift2_end     = EXCLUDED.shift2_end,
			updated_at     = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	row := r.db.QueryRowxContext(ctx, query,
		window.ID,
		window.DoctorID,
		window.Date,
		window.Shift1Enabled,
		window.Shift1Start,
		window.Shift1End,
		window.Shift2Enabled,
		window.Shift2Start,
		window.Shift2End,
		window.CreatedAt,
		window.UpdatedAt,
	)
	return mapError("availability", row.Scan(&window.ID, &window.CreatedAt))
}

func (r *availabilityRepository) Delete(ctx context.Context, doctorID uuid.UUID, date clock.Date) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM availability WHERE doctor_id = $1 AND date = $2`, doctorID, date)
	return mapError("availability", err)
}
