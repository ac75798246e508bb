package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
)

const patientColumns = `id, full_name, email, password_hash, phone, dob, address, created_at, updated_at`

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	patient.Touch(time.Now())
	query := `
		INSERT INTO patients (` + patientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.FullName,
		strings.ToLower(patient.Email),
		patient.PasswordHash,
		patient.Phone,
		patient.DateOfBirth,
		patient.Address,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	return mapError("patient", err)
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	if err != nil {
		return nil, mapError("patient", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, `SELECT `+patientColumns+` FROM patients WHERE email = $1`, strings.ToLower(email))
	if err != nil {
		return nil, mapError("patient", err)
	}
	return &patient, nil
}

func (r *patientRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM patients`); err != nil {
		return 0, mapError("patient", err)
	}
	return n, nil
}
