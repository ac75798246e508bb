package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// departmentSeed matches migrations/002_departments.sql so ids are stable across backends.
var departmentSeed = []struct {
	id, name, description string
}{
	{"6f1c2a7e-0d3b-4c1e-9a61-1f0b7e2d9a01", "General Medicine", "Primary care and internal medicine"},
	{"6f1c2a7e-0d3b-4c1e-9a61-1f0b7e2d9a02", "Cardiology", "Heart and vascular care"},
	{"6f1c2a7e-0d3b-4c1e-9a61-1f0b7e2d9a03", "Orthopedics", "Bones, joints and muscles"},
	{"6f1c2a7e-0d3b-4c1e-9a61-1f0b7e2d9a04", "Pediatrics", "Care for infants and children"},
	{"6f1c2a7e-0d3b-4c1e-9a61-1f0b7e2d9a05", "Dermatology", "Skin, hair and nails"},
}

// SeedDepartments loads the default departments. Existing names are kept.
func (s *Store) SeedDepartments(ctx context.Context) error {
	repo := s.Departments()
	for _, d := range departmentSeed {
		desc := d.description
		err := repo.Create(ctx, &model.Department{
			ID:          uuid.MustParse(d.id),
			Name:        d.name,
			Description: &desc,
		})
		if err != nil && !apperrors.IsConflict(err) {
			return fmt.Errorf("failed to seed department %s: %w", d.name, err)
		}
	}
	return nil
}
