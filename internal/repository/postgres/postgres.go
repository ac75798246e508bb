package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/repository"
)

type departmentRepository struct {
	BaseRepository
}

type doctorRepository struct {
	BaseRepository
}

type patientRepository struct {
	BaseRepository
}

type adminRepository struct {
	BaseRepository
}

type availabilityRepository struct {
	BaseRepository
}

type appointmentRepository struct {
	BaseRepository
}

type blacklistRepository struct {
	BaseRepository
}

type outboxRepository struct {
	BaseRepository
}

func NewDepartmentRepository(db *sqlx.DB) repository.DepartmentRepository {
	return &departmentRepository{NewBaseRepository(db)}
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{NewBaseRepository(db)}
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func NewAdminRepository(db *sqlx.DB) repository.AdminRepository {
	return &adminRepository{NewBaseRepository(db)}
}

func NewAvailabilityRepository(db *sqlx.DB) repository.AvailabilityRepository {
	return &availabilityRepository{NewBaseRepository(db)}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func NewBlacklistRepository(db *sqlx.DB) repository.BlacklistRepository {
	return &blacklistRepository{NewBaseRepository(db)}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}

// Store builds every repository over one connection pool.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Departments() repository.DepartmentRepository { return NewDepartmentRepository(s.db) }
func (s *Store) Doctors() repository.DoctorRepository { return NewDoctorRepository(s.db) }
func (s *Store) Patients() repository.PatientRepository { return NewPatientRepository(s.db) }
func (s *Store) Admins() repository.AdminRepository { return NewAdminRepository(s.db) }
func (s *Store) Availability() repository.AvailabilityRepository { return NewAvailabilityRepository(s.db) }
func (s *Store) Appointments() repository.AppointmentRepository { return NewAppointmentRepository(s.db) }
func (s *Store) Blacklist() repository.BlacklistRepository { return NewBlacklistRepository(s.db) }
func (s *Store) Outbox() repository.OutboxRepository { return NewOutboxRepository(s.db) }

var _ repository.Store = (*Store)(nil)
