package admin

import (
	"context"
	"fmt"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

type DepartmentLister interface {
	List(ctx context.Context) ([]*model.Department, error)
}

type Repositories struct {
	Doctors      repository.DoctorRepository
	Patients     repository.PatientRepository
	Appointments repository.AppointmentRepository
	Blacklist    repository.BlacklistRepository
}

type Service struct {
	repos       Repositories
	departments DepartmentLister
}

func NewService(repos Repositories, departments DepartmentLister) *Service {
	return &Service{repos: repos, departments: departments}
}

// Overview returns the dashboard counters. Admin only.
func (s *Service) Overview(ctx context.Context, p model.Principal) (*model.Overview, error) {
	if !p.Is(model.RoleAdmin) {
		return nil, apperrors.Forbidden("admin access required")
	}

	var (
		out model.Overview
		err error
	)
	if out.Doctors, err = s.repos.Doctors.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count doctors: %w", err)
	}
	if out.Patients, err = s.repos.Patients.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	if out.Appointments, err = s.repos.Appointments.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}
	if out.Blacklisted, err = s.repos.Blacklist.CountPatients(ctx); err != nil {
		return nil, fmt.Errorf("failed to count blacklisted patients: %w", err)
	}
	if out.Departments, err = s.departments.List(ctx); err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return &out, nil
}
