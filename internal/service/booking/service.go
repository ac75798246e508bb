package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/service/slot"
	"github.com/jwalitptl/hospital-api/pkg/clock"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/lock"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

// DepartmentResolver looks up the department a booking is filed under.
type DepartmentResolver interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Department, error)
}

type Repositories struct {
	Patients     repository.PatientRepository
	Doctors      repository.DoctorRepository
	Appointments repository.AppointmentRepository
	Blacklist    repository.BlacklistRepository
}

type Config struct {
	SlotLockTTL time.Duration
	Location    *time.Location
}

type Service struct {
	patients     repository.PatientRepository
	doctors      repository.DoctorRepository
	appointments repository.AppointmentRepository
	blacklist    repository.BlacklistRepository
	departments  DepartmentResolver
	slots        *slot.Resolver
	locker       lock.Locker
	metrics      *metrics.Metrics
	cfg          Config
	now          func() time.Time
}

func NewService(
	repos Repositories,
	slots *slot.Resolver,
	departments DepartmentResolver,
	locker lock.Locker,
	m *metrics.Metrics,
	cfg Config,
) *Service {
	if locker == nil {
		locker = lock.Noop{}
	}
	if cfg.SlotLockTTL <= 0 {
		cfg.SlotLockTTL = 5 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		patients:     repos.Patients,
		doctors:      repos.Doctors,
		appointments: repos.Appointments,
		blacklist:    repos.Blacklist,
		departments:  departments,
		slots:        slots,
		locker:       locker,
		metrics:      m,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *Service) today() clock.Date {
	return clock.DateOf(s.now().In(s.cfg.Location))
}

func slotKey(doctorID uuid.UUID, date clock.Date, t clock.Time) string {
	return fmt.Sprintf("slot:%s:%s:%s", doctorID, date, t)
}

func bookingResult(err error) string {
	if err == nil {
		return metrics.ResultBooked
	}
	switch apperrors.CodeOf(err) {
	case apperrors.ErrSlotTaken:
		return metrics.ResultSlotTaken
	case apperrors.ErrUnavailable:
		return metrics.ResultUnavailable
	case apperrors.ErrInternal:
		return metrics.ResultError
	default:
		return metrics.ResultRejected
	}
}

// ConfirmBooking books req.Time for the patient. The time must be one of the
// slots currently resolved for the doctor-day, so a slot of today that has
// already started is rejected once the resolver carries a clock.
func (s *Service) ConfirmBooking(ctx context.Context, p model.Principal, req model.BookingRequest) (apt *model.Appointment, err error) {
	timer := prometheus.NewTimer(s.metrics.BookingLatency)
	defer func() {
		timer.ObserveDuration()
		s.metrics.BookingsTotal.WithLabelValues(bookingResult(err)).Inc()
	}()

	switch p.Role {
	case model.RolePatient:
		if req.PatientID == uuid.Nil {
			req.PatientID = p.ID
		}
		if req.PatientID != p.ID {
			return nil, apperrors.Forbidden("patients can only book for themselves")
		}
	case model.RoleAdmin:
		if req.PatientID == uuid.Nil {
			return nil, apperrors.Validation("patient_id is required", nil)
		}
	default:
		return nil, apperrors.Forbidden("only patients can book appointments")
	}

	if req.Date.IsZero() {
		return nil, apperrors.Validation("date is required", nil)
	}
	if req.Time == nil {
		return nil, apperrors.Validation("time is required", nil)
	}
	at := *req.Time
	if !at.Valid() {
		return nil, apperrors.Validation("time is out of range", nil)
	}
	if req.Date.Before(s.today()) {
		return nil, apperrors.Validation("cannot book a date in the past", nil)
	}

	patient, err := s.patients.Get(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	blocked, err := s.blacklist.HasPatient(ctx, patient.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check patient blacklist: %w", err)
	}
	if blocked {
		return nil, apperrors.Forbidden("patient is blacklisted")
	}

	doctor, err := s.doctors.Get(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	dept, err := s.departments.Get(ctx, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	if doctor.DepartmentID != nil && *doctor.DepartmentID != dept.ID {
		return nil, apperrors.Validation("doctor does not belong to this department", nil)
	}

	day, err := s.slots.Availability(ctx, doctor.ID, req.Date)
	if err != nil {
		return nil, err
	}
	if !day.Available {
		return nil, apperrors.Unavailable(fmt.Sprintf("doctor is not available on %s", req.Date))
	}
	if containsTime(day.Booked, at) {
		return nil, apperrors.SlotTaken(nil)
	}
	if !containsTime(day.Slots, at) {
		return nil, apperrors.Unavailable(fmt.Sprintf("%s is not a bookable slot", at))
	}

	key := slotKey(doctor.ID, req.Date, at)
	acquired, token, err := s.locker.TryLock(ctx, key, s.cfg.SlotLockTTL)
	if err != nil {
		// the database guard still holds; carry on without the fast path
		log.Warn().Err(err).Str("lock_key", key).Msg("slot lock unavailable")
	} else if !acquired {
		return nil, apperrors.SlotTaken(nil)
	}
	if token != "" {
		defer func() {
			if uerr := s.locker.Unlock(context.WithoutCancel(ctx), key, token); uerr != nil {
				log.Warn().Err(uerr).Str("lock_key", key).Msg("failed to release slot lock")
			}
		}()
	}

	apt = &model.Appointment{
		PatientID:  patient.ID,
		DoctorID:   doctor.ID,
		Date:       req.Date,
		Time:       at,
		Department: dept.Name,
		Status:     model.AppointmentStatusBooked,
	}
	apt.ID = uuid.New()

	event, err := model.NewOutboxEvent(model.EventAppointmentBooked, appointmentEvent(apt, patient, doctor))
	if err != nil {
		return nil, fmt.Errorf("failed to build booking event: %w", err)
	}
	if err := s.appointments.Book(ctx, apt, event); err != nil {
		if apperrors.CodeOf(err) != apperrors.ErrInternal {
			return nil, err
		}
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	log.Info().
		Str("appointment_id", apt.ID.String()).
		Str("doctor_id", doctor.ID.String()).
		Str("patient_id", patient.ID.String()).
		Str("date", apt.Date.String()).
		Str("slot_time", apt.Time.String()).
		Msg("appointment booked")

	return apt, nil
}

func containsTime(ts []clock.Time, t clock.Time) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}

func appointmentEvent(apt *model.Appointment, patient *model.Patient, doctor *model.Doctor) model.AppointmentEvent {
	return model.AppointmentEvent{
		AppointmentID: apt.ID,
		Status:        apt.Status,
		PatientID:     patient.ID,
		PatientName:   patient.FullName,
		PatientEmail:  patient.Email,
		DoctorID:      doctor.ID,
		DoctorName:    doctor.FullName,
		Department:    apt.Department,
		Date:          apt.Date.String(),
		Time:          apt.Time.String(),
	}
}
