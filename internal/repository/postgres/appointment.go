package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/clock"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

const appointmentColumns = `id, patient_id, doctor_id, date, time, department, status, created_at, updated_at`

func slotLockKey(doctorID uuid.UUID, date clock.Date, t clock.Time) string {
	return doctorID.String() + "|" + date.String() + "|" + t.String()
}

// Book serialises writers of one slot with a transaction-scoped advisory lock,
// re-checks the booked set under the lock and inserts. The partial unique index
// appointments_booked_slot_uniq backs both steps.
func (r *appointmentRepository) Book(ctx context.Context, apt *model.Appointment, events ...*model.OutboxEvent) error {
	apt.Touch(time.Now())
	apt.Status = model.AppointmentStatusBooked

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		key := slotLockKey(apt.DoctorID, apt.Date, apt.Time)
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("failed to lock slot: %w", err)
		}

		var taken bool
		err := tx.GetContext(ctx, &taken, `
			SELECT EXISTS (
				SELECT 1 FROM appointments
				WHERE doctor_id = $1 AND date = $2 AND time = $3 AND status = 'booked'
			)`, apt.DoctorID, apt.Date, apt.Time)
		if err != nil {
			return fmt.Errorf("failed to check slot: %w", err)
		}
		if taken {
			return apperrors.SlotTaken(nil)
		}

		query := `
			INSERT INTO appointments (` + appointmentColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err = tx.ExecContext(ctx, query,
			apt.ID,
			apt.PatientID,
			apt.DoctorID,
			apt.Date,
			apt.Time,
			apt.Department,
			apt.Status,
			apt.CreatedAt,
			apt.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, bookedSlotConstraint) {
				return apperrors.SlotTaken(err)
			}
			return mapError("appointment", err)
		}

		return insertEvents(ctx, tx, events)
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var apt model.Appointment
	if err := r.db.GetContext(ctx, &apt, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id); err != nil {
		return nil, mapError("appointment", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) ListBookedTimes(ctx context.Context, doctorID uuid.UUID, date clock.Date) ([]clock.Time, error) {
	var times []clock.Time
	query := `
		SELECT time FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND status = $3
		ORDER BY time
	`
	if err := r.db.SelectContext(ctx, &times, query, doctorID, date, model.AppointmentStatusBooked); err != nil {
		return nil, mapError("appointment", err)
	}
	return times, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, events ...*model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := transition(ctx, tx, id, from, to); err != nil {
			return err
		}
		return insertEvents(ctx, tx, events)
	})
}

func (r *appointmentRepository) Complete(ctx context.Context, id uuid.UUID, treatment *model.Treatment, events ...*model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := transition(ctx, tx, id, model.AppointmentStatusBooked, model.AppointmentStatusCompleted); err != nil {
			return err
		}

		if treatment.ID == uuid.Nil {
			treatment.ID = uuid.New()
		}
		treatment.AppointmentID = id
		_, err := tx.ExecContext(ctx, `
			INSERT INTO treatments (id, appointment_id, diagnosis, prescription, note)
			VALUES ($1, $2, $3, $4, $5)`,
			treatment.ID, treatment.AppointmentID, treatment.Diagnosis, treatment.Prescription, treatment.Note)
		if err != nil {
			return mapError("treatment", err)
		}
		return insertEvents(ctx, tx, events)
	})
}

// transition fails with Conflict unless the appointment is currently in status from.
func transition(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, from, to model.AppointmentStatus) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		to, time.Now(), id, from)
	changed, err := affected(res, err, "appointment")
	if err != nil {
		return err
	}
	if !changed {
		return apperrors.Conflict(fmt.Sprintf("appointment is not %s", from), nil)
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filters != nil {
		if filters.PatientID != nil {
			add("patient_id = $%d", *filters.PatientID)
		}
		if filters.DoctorID != nil {
			add("doctor_id = $%d", *filters.DoctorID)
		}
		if filters.Status != "" {
			add("status = $%d", filters.Status)
		}
		if filters.FromDate != nil {
			add("date >= $%d", *filters.FromDate)
		}
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if filters != nil && filters.Order == model.SortDesc {
		query += " ORDER BY date DESC, time DESC"
	} else {
		query += " ORDER BY date ASC, time ASC"
	}

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, mapError("appointment", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListTreatments(ctx context.Context, appointmentIDs []uuid.UUID) (map[uuid.UUID]*model.Treatment, error) {
	out := make(map[uuid.UUID]*model.Treatment, len(appointmentIDs))
	if len(appointmentIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, appointment_id, diagnosis, prescription, note
		FROM treatments WHERE appointment_id IN (?)`, appointmentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build treatments query: %w", err)
	}

	var treatments []*model.Treatment
	if err := r.db.SelectContext(ctx, &treatments, r.db.Rebind(query), args...); err != nil {
		return nil, mapError("treatment", err)
	}
	for _, t := range treatments {
		out[t.AppointmentID] = t
	}
	return out, nil
}

func (r *appointmentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM appointments`); err != nil {
		return 0, mapError("appointment", err)
	}
	return n, nil
}
