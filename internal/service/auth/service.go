package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/pkg/auth"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/security"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Repositories struct {
	Admins    repository.AdminRepository
	Doctors   repository.DoctorRepository
	Patients  repository.PatientRepository
	Blacklist repository.BlacklistRepository
}

type Service struct {
	repos  Repositories
	jwtSvc auth.JWTService
	hasher security.PasswordHasher
	now    func() time.Time
}

func NewService(repos Repositories, jwtSvc auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{repos: repos, jwtSvc: jwtSvc, hasher: hasher, now: time.Now}
}

// account is the part of an admin, doctor or patient that login needs.
type account struct {
	principal model.Principal
	hash      string
}

// Login checks the credentials for the given role and issues an access token.
// Unknown identifiers and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	acc, err := s.lookup(ctx, req.Role, strings.TrimSpace(req.Identifier))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized(ErrInvalidCredentials)
		}
		return nil, err
	}

	if err := s.hasher.Compare(acc.hash, req.Password); err != nil {
		log.Warn().
			Str("role", string(req.Role)).
			Str("principal_id", acc.principal.ID.String()).
			Msg("login failed")
		return nil, apperrors.Unauthorized(ErrInvalidCredentials)
	}

	if acc.principal.Is(model.RolePatient) {
		blocked, err := s.repos.Blacklist.HasPatient(ctx, acc.principal.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check blacklist: %w", err)
		}
		if blocked {
			return nil, apperrors.Forbidden("patient is blacklisted")
		}
	}

	return s.issue(acc.principal)
}

func (s *Service) lookup(ctx context.Context, role model.Role, identifier string) (*account, error) {
	switch role {
	case model.RoleAdmin:
		a, err := s.repos.Admins.GetByUsername(ctx, identifier)
		if err != nil {
			return nil, err
		}
		return &account{principal: model.Principal{ID: a.ID, Role: role}, hash: a.PasswordHash}, nil
	case model.RoleDoctor:
		d, err := s.repos.Doctors.GetByEmail(ctx, identifier)
		if err != nil {
			return nil, err
		}
		return &account{principal: model.Principal{ID: d.ID, Role: role}, hash: d.PasswordHash}, nil
	case model.RolePatient:
		p, err := s.repos.Patients.GetByEmail(ctx, identifier)
		if err != nil {
			return nil, err
		}
		return &account{principal: model.Principal{ID: p.ID, Role: role}, hash: p.PasswordHash}, nil
	default:
		return nil, apperrors.Validation(fmt.Sprintf("unknown role %q", role), nil)
	}
}

func (s *Service) issue(p model.Principal) (*model.TokenResponse, error) {
	token, exp, err := s.jwtSvc.GenerateAccessToken(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &model.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(exp.Sub(s.now()).Seconds()),
		Principal:   p,
	}, nil
}

// RegisterPatient creates a patient account. Duplicate email or phone is a Conflict.
func (s *Service) RegisterPatient(ctx context.Context, req *model.RegisterPatientRequest) (*model.Patient, error) {
	if req.DateOfBirth.IsZero() {
		return nil, apperrors.Validation("dob is required", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) || errors.Is(err, security.ErrPasswordTooLong) {
			return nil, apperrors.Validation(err.Error(), err)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	patient := &model.Patient{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Phone:        strings.TrimSpace(req.Phone),
		DateOfBirth:  req.DateOfBirth,
		Address:      req.Address,
	}
	if err := s.repos.Patients.Create(ctx, patient); err != nil {
		if apperrors.IsConflict(err) {
			return nil, apperrors.Conflict("email or phone already registered", err)
		}
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	log.Info().Str("patient_id", patient.ID.String()).Msg("patient registered")
	return patient, nil
}

// SeedAdmin creates the default admin when the admins table is empty.
// It reports whether an account was created.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) (bool, error) {
	exists, err := s.repos.Admins.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check admins: %w", err)
	}
	if exists {
		return false, nil
	}
	if username == "" || password == "" {
		return false, apperrors.Validation("admin username and password are required", nil)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}
	if err := s.repos.Admins.Create(ctx, &model.Admin{Username: username, PasswordHash: hash}); err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}

	log.Info().Str("username", username).Msg("default admin created")
	return true, nil
}

// SeedDoctor creates the doctor unless the email is already taken.
// It reports whether an account was created.
func (s *Service) SeedDoctor(ctx context.Context, acc model.DoctorAccount) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(acc.Email))
	if email == "" || acc.Password == "" || acc.FullName == "" {
		return false, apperrors.Validation("doctor name, email and password are required", nil)
	}

	if _, err := s.repos.Doctors.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !apperrors.IsNotFound(err) {
		return false, fmt.Errorf("failed to look up doctor: %w", err)
	}

	hash, err := s.hasher.Hash(acc.Password)
	if err != nil {
		return false, fmt.Errorf("failed to hash doctor password: %w", err)
	}
	doctor := &model.Doctor{
		FullName:        strings.TrimSpace(acc.FullName),
		Email:           email,
		PasswordHash:    hash,
		ExperienceYears: acc.ExperienceYears,
	}
	if acc.DepartmentID != uuid.Nil {
		dept := acc.DepartmentID
		doctor.DepartmentID = &dept
	}
	if err := s.repos.Doctors.Create(ctx, doctor); err != nil {
		return false, fmt.Errorf("failed to create doctor: %w", err)
	}

	log.Info().Str("doctor_id", doctor.ID.String()).Str("email", email).Msg("doctor provisioned")
	return true, nil
}

// Authenticate resolves a bearer token to its principal.
func (s *Service) Authenticate(token string) (model.Principal, error) {
	p, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return model.Principal{}, apperrors.Unauthorized(err)
	}
	return p, nil
}
