package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
)

const doctorColumns = `id, full_name, email, password_hash, department_id, experience_years, created_at, updated_at`

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	doctor.Touch(time.Now())
	doctor.Email = strings.ToLower(doctor.Email)
	query := `
		INSERT INTO doctors (` + doctorColumns + `)
		VALUES (:id, :full_name, :email, :password_hash, :department_id, :experience_years, :created_at, :updated_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, doctor)
	return mapError("doctor", err)
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id)
	if err != nil {
		return nil, mapError("doctor", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, `SELECT `+doctorColumns+` FROM doctors WHERE email = $1`, strings.ToLower(email))
	if err != nil {
		return nil, mapError("doctor", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM doctors`); err != nil {
		return 0, mapError("doctor", err)
	}
	return n, nil
}
