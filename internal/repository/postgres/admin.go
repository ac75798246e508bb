package postgres

import (
	"context"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
)

func (r *adminRepository) Create(ctx context.Context, admin *model.Admin) error {
	admin.Touch(time.Now())
	query := `
		INSERT INTO admins (id, username, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, admin.ID, admin.Username, admin.PasswordHash, admin.CreatedAt, admin.UpdatedAt)
	return mapError("admin", err)
}

func (r *adminRepository) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var admin model.Admin
	query := `SELECT id, username, password_hash, created_at, updated_at FROM admins WHERE username = $1`
	if err := r.db.GetContext(ctx, &admin, query, username); err != nil {
		return nil, mapError("admin", err)
	}
	return &admin, nil
}

func (r *adminRepository) Exists(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM admins)`); err != nil {
		return false, mapError("admin", err)
	}
	return exists, nil
}
