package blacklist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// Service applies admin blacklist commands. Every command is idempotent and
// reports whether it changed state.
type Service struct {
	repo     repository.BlacklistRepository
	patients repository.PatientRepository
	doctors  repository.DoctorRepository
}

func NewService(repo repository.BlacklistRepository, patients repository.PatientRepository, doctors repository.DoctorRepository) *Service {
	return &Service{repo: repo, patients: patients, doctors: doctors}
}

func requireAdmin(p model.Principal) error {
	if !p.Is(model.RoleAdmin) {
		return apperrors.Forbidden("admin access required")
	}
	return nil
}

func (s *Service) BlacklistPatient(ctx context.Context, p model.Principal, id uuid.UUID) (*model.BlacklistResult, error) {
	return s.setPatient(ctx, p, id, true)
}

func (s *Service) UnblacklistPatient(ctx context.Context, p model.Principal, id uuid.UUID) (*model.BlacklistResult, error) {
	return s.setPatient(ctx, p, id, false)
}

func (s *Service) BlacklistDoctor(ctx context.Context, p model.Principal, id uuid.UUID) (*model.BlacklistResult, error) {
	return s.setDoctor(ctx, p, id, true)
}

func (s *Service) UnblacklistDoctor(ctx context.Context, p model.Principal, id uuid.UUID) (*model.BlacklistResult, error) {
	return s.setDoctor(ctx, p, id, false)
}

func (s *Service) IsPatientBlacklisted(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.HasPatient(ctx, id)
}

func (s *Service) IsDoctorBlacklisted(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.HasDoctor(ctx, id)
}

func (s *Service) setPatient(ctx context.Context, p model.Principal, id uuid.UUID, on bool) (*model.BlacklistResult, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if _, err := s.patients.Get(ctx, id); err != nil {
		return nil, err
	}

	var (
		changed bool
		err     error
	)
	if on {
		changed, err = s.repo.AddPatient(ctx, id)
	} else {
		changed, err = s.repo.RemovePatient(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update patient blacklist: %w", err)
	}

	log.Info().
		Str("patient_id", id.String()).
		Bool("blacklisted", on).
		Bool("changed", changed).
		Msg("patient blacklist updated")
	return &model.BlacklistResult{Changed: changed, Blacklisted: on}, nil
}

func (s *Service) setDoctor(ctx context.Context, p model.Principal, id uuid.UUID, on bool) (*model.BlacklistResult, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if _, err := s.doctors.Get(ctx, id); err != nil {
		return nil, err
	}

	var (
		changed bool
		err     error
	)
	if on {
		changed, err = s.repo.AddDoctor(ctx, id)
	} else {
		changed, err = s.repo.RemoveDoctor(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update doctor blacklist: %w", err)
	}

	log.Info().
		Str("doctor_id", id.String()).
		Bool("blacklisted", on).
		Bool("changed", changed).
		Msg("doctor blacklist updated")
	return &model.BlacklistResult{Changed: changed, Blacklisted: on}, nil
}
