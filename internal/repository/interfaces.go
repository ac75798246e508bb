package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/clock"
)

// All repository interfaces in one file
type (
	DepartmentRepository interface {
		Create(ctx context.Context, department *model.Department) error
		Get(ctx context.Context, id uuid.UUID) (*model.Department, error)
		List(ctx context.Context) ([]*model.Department, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByEmail(ctx context.Context, email string) (*model.Doctor, error)
		Count(ctx context.Context) (int, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByEmail(ctx context.Context, email string) (*model.Patient, error)
		Count(ctx context.Context) (int, error)
	}

	AdminRepository interface {
		Create(ctx context.Context, admin *model.Admin) error
		GetByUsername(ctx context.Context, username string) (*model.Admin, error)
		Exists(ctx context.Context) (bool, error)
	}

	// AvailabilityRepository stores at most one window per doctor and date.
	// Get returns a NotFound error when no window exists.
	AvailabilityRepository interface {
		Get(ctx context.Context, doctorID uuid.UUID, date clock.Date) (*model.AvailabilityWindow, error)
		ListRange(ctx context.Context, doctorID uuid.UUID, from, to clock.Date) ([]*model.AvailabilityWindow, error)
		Upsert(ctx context.Context, window *model.AvailabilityWindow) error
		Delete(ctx context.Context, doctorID uuid.UUID, date clock.Date) error
	}

	AppointmentRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// ListBookedTimes returns the times of booked appointments only.
		ListBookedTimes(ctx context.Context, doctorID uuid.UUID, date clock.Date) ([]clock.Time, error)
		// Book inserts a booked appointment together with its outbox events.
		// It returns a SlotTaken error when the slot already holds a booked appointment.
		Book(ctx context.Context, appointment *model.Appointment, events ...*model.OutboxEvent) error
		// UpdateStatus moves an appointment from one status to another.
		// It returns a Conflict error when the appointment is no longer in status from.
		UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, events ...*model.OutboxEvent) error
		Complete(ctx context.Context, id uuid.UUID, treatment *model.Treatment, events ...*model.OutboxEvent) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		ListTreatments(ctx context.Context, appointmentIDs []uuid.UUID) (map[uuid.UUID]*model.Treatment, error)
		Count(ctx context.Context) (int, error)
	}

	// BlacklistRepository commands report whether they changed state.
	BlacklistRepository interface {
		AddPatient(ctx context.Context, patientID uuid.UUID) (bool, error)
		RemovePatient(ctx context.Context, patientID uuid.UUID) (bool, error)
		HasPatient(ctx context.Context, patientID uuid.UUID) (bool, error)
		AddDoctor(ctx context.Context, doctorID uuid.UUID) (bool, error)
		RemoveDoctor(ctx context.Context, doctorID uuid.UUID) (bool, error)
		HasDoctor(ctx context.Context, doctorID uuid.UUID) (bool, error)
		CountPatients(ctx context.Context) (int, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending marks up to limit pending events as processing and returns them.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// Store hands out the repositories of one storage backend.
type Store interface {
	Departments() DepartmentRepository
	Doctors() DoctorRepository
	Patients() PatientRepository
	Admins() AdminRepository
	Availability() AvailabilityRepository
	Appointments() AppointmentRepository
	Blacklist() BlacklistRepository
	Outbox() OutboxRepository
}
