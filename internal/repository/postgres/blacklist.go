package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// blacklistTable names one of the two blacklist tables and its key column.
type blacklistTable struct {
	table  string
	column string
}

var (
	patientBlacklist = blacklistTable{table: "patient_blacklist", column: "patient_id"}
	doctorBlacklist  = blacklistTable{table: "doctor_blacklist", column: "doctor_id"}
)

func (r *blacklistRepository) add(ctx context.Context, t blacklistTable, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`INSERT INTO %s (id, %s) VALUES ($1, $2) ON CONFLICT (%s) DO NOTHING`, t.table, t.column, t.column)
	res, err := r.db.ExecContext(ctx, query, uuid.New(), id)
	return affected(res, err, t.table)
}

func (r *blacklistRepository) remove(ctx context.Context, t blacklistTable, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, t.table, t.column)
	res, err := r.db.ExecContext(ctx, query, id)
	return affected(res, err, t.table)
}

func (r *blacklistRepository) has(ctx context.Context, t blacklistTable, id uuid.UUID) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`, t.table, t.column)
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, mapError(t.table, err)
	}
	return exists, nil
}

func affected(res sql.Result, err error, resource string) (bool, error) {
	if err != nil {
		return false, mapError(resource, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *blacklistRepository) AddPatient(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return r.add(ctx, patientBlacklist, patientID)
}

func (r *blacklistRepository) RemovePatient(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return r.remove(ctx, patientBlacklist, patientID)
}

func (r *blacklistRepository) HasPatient(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return r.has(ctx, patientBlacklist, patientID)
}

func (r *blacklistRepository) AddDoctor(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	return r.add(ctx, doctorBlacklist, doctorID)
}

func (r *blacklistRepository) RemoveDoctor(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	return r.remove(ctx, doctorBlacklist, doctorID)
}

func (r *blacklistRepository) HasDoctor(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	return r.has(ctx, doctorBlacklist, doctorID)
}

func (r *blacklistRepository) CountPatients(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM patient_blacklist`); err != nil {
		return 0, mapError(patientBlacklist.table, err)
	}
	return n, nil
}
