package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
)

func (r *departmentRepository) Create(ctx context.Context, department *model.Department) error {
	if department.ID == uuid.Nil {
		department.ID = uuid.New()
	}
	query := `INSERT INTO departments (id, name, description) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, department.ID, department.Name, department.Description)
	return mapError("department", err)
}

func (r *departmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Department, error) {
	var department model.Department
	err := r.db.GetContext(ctx, &department, `SELECT id, name, description FROM departments WHERE id = $1`, id)
	if err != nil {
		return nil, mapError("department", err)
	}
	return &department, nil
}

func (r *departmentRepository) List(ctx context.Context) ([]*model.Department, error) {
	var departments []*model.Department
	err := r.db.SelectContext(ctx, &departments, `SELECT id, name, description FROM departments ORDER BY name`)
	if err != nil {
		return nil, mapError("department", err)
	}
	return departments, nil
}
