package postgres

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError("doctor", nil))

	err := mapError("doctor", fmt.Errorf("get: %w", sql.ErrNoRows))
	assert.True(t, apperrors.IsNotFound(err))

	err = mapError("patient", &pq.Error{Code: pqUniqueViolation, Constraint: "patients_email_key"})
	assert.True(t, apperrors.IsConflict(err))
	assert.Contains(t, err.Error(), "patient already exists")

	err = mapError("appointment", &pq.Error{Code: pqForeignKeyViolation})
	assert.True(t, apperrors.IsNotFound(err))

	err = mapError("appointment", sql.ErrConnDone)
	assert.Equal(t, apperrors.ErrInternal, apperrors.CodeOf(err))
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestIsUniqueViolation(t *testing.T) {
	slot := &pq.Error{Code: pqUniqueViolation, Constraint: bookedSlotConstraint}

	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", slot), bookedSlotConstraint))
	assert.True(t, isUniqueViolation(slot, ""))
	assert.False(t, isUniqueViolation(slot, "patients_email_key"))
	assert.False(t, isUniqueViolation(&pq.Error{Code: pqForeignKeyViolation}, ""))
	assert.False(t, isUniqueViolation(sql.ErrNoRows, ""))
}
