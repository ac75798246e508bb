package model

import "github.com/google/uuid"

type Doctor struct {
	Base
	FullName        string     `db:"full_name" json:"full_name"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	DepartmentID    *uuid.UUID `db:"department_id" json:"department_id,omitempty"`
	ExperienceYears int        `db:"experience_years" json:"experience_years"`
}

// DoctorAccount describes a doctor provisioned at startup. Doctors are not
// created over the API.
type DoctorAccount struct {
	FullName        string
	Email           string
	Password        string
	DepartmentID    uuid.UUID
	ExperienceYears int
}
