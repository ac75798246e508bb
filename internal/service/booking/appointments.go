package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/model"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// CancelAppointment frees a booked slot. Only the owning patient or an admin may cancel.
func (s *Service) CancelAppointment(ctx context.Context, p model.Principal, appointmentID uuid.UUID) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	switch {
	case p.Is(model.RoleAdmin):
	case p.Is(model.RolePatient) && apt.PatientID == p.ID:
	default:
		return nil, apperrors.Forbidden("not allowed to cancel this appointment")
	}
	if apt.Status != model.AppointmentStatusBooked {
		return nil, apperrors.Conflict("only booked appointments can be cancelled", nil)
	}

	event, err := s.transitionEvent(ctx, model.EventAppointmentCancelled, apt, model.AppointmentStatusCancelled)
	if err != nil {
		return nil, err
	}
	if err := s.appointments.UpdateStatus(ctx, apt.ID, model.AppointmentStatusBooked, model.AppointmentStatusCancelled, event); err != nil {
		return nil, err
	}
	apt.Status = model.AppointmentStatusCancelled
	s.metrics.AppointmentsChanged.WithLabelValues(string(apt.Status)).Inc()

	log.Info().
		Str("appointment_id", apt.ID.String()).
		Str("role", string(p.Role)).
		Msg("appointment cancelled")
	return apt, nil
}

// CompleteAppointment records the treatment and closes the appointment. Only its doctor may complete it.
func (s *Service) CompleteAppointment(ctx context.Context, p model.Principal, appointmentID uuid.UUID, req model.CompleteAppointmentRequest) (*model.Visit, error) {
	if !p.Is(model.RoleDoctor) {
		return nil, apperrors.Forbidden("only doctors can complete appointments")
	}
	diagnosis := strings.TrimSpace(req.Diagnosis)
	if diagnosis == "" {
		return nil, apperrors.Validation("diagnosis is required", nil)
	}

	apt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.DoctorID != p.ID {
		return nil, apperrors.Forbidden("not allowed to complete this appointment")
	}
	if apt.Status != model.AppointmentStatusBooked {
		return nil, apperrors.Conflict("only booked appointments can be completed", nil)
	}

	treatment := &model.Treatment{
		Diagnosis:    diagnosis,
		Prescription: req.Prescription,
		Note:         req.Note,
	}
	event, err := s.transitionEvent(ctx, model.EventAppointmentCompleted, apt, model.AppointmentStatusCompleted)
	if err != nil {
		return nil, err
	}
	if err := s.appointments.Complete(ctx, apt.ID, treatment, event); err != nil {
		return nil, err
	}
	apt.Status = model.AppointmentStatusCompleted
	s.metrics.AppointmentsChanged.WithLabelValues(string(apt.Status)).Inc()

	return &model.Visit{Appointment: apt, Treatment: treatment}, nil
}

func (s *Service) transitionEvent(ctx context.Context, eventType string, apt *model.Appointment, to model.AppointmentStatus) (*model.OutboxEvent, error) {
	patient, err := s.patients.Get(ctx, apt.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	doctor, err := s.doctors.Get(ctx, apt.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load doctor: %w", err)
	}
	payload := appointmentEvent(apt, patient, doctor)
	payload.Status = to
	event, err := model.NewOutboxEvent(eventType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s event: %w", eventType, err)
	}
	return event, nil
}

// ListForPatient returns the patient's upcoming booked appointments, soonest first.
func (s *Service) ListForPatient(ctx context.Context, p model.Principal) ([]*model.Appointment, error) {
	if !p.Is(model.RolePatient) {
		return nil, apperrors.Forbidden("only patients have a patient dashboard")
	}
	today := s.today()
	return s.appointments.List(ctx, &model.AppointmentFilters{
		PatientID: &p.ID,
		Status:    model.AppointmentStatusBooked,
		FromDate:  &today,
		Order:     model.SortAsc,
	})
}

// ListForDoctor lists the doctor's appointments for a dashboard view.
// Upcoming is soonest first, the others most recent first.
func (s *Service) ListForDoctor(ctx context.Context, p model.Principal, view model.AppointmentView) ([]*model.Appointment, error) {
	if !p.Is(model.RoleDoctor) {
		return nil, apperrors.Forbidden("only doctors have a doctor dashboard")
	}

	filters := &model.AppointmentFilters{DoctorID: &p.ID, Order: model.SortDesc}
	switch view {
	case model.ViewCompleted:
		filters.Status = model.AppointmentStatusCompleted
	case model.ViewCancelled:
		filters.Status = model.AppointmentStatusCancelled
	default:
		filters.Status = model.AppointmentStatusBooked
		filters.Order = model.SortAsc
	}
	return s.appointments.List(ctx, filters)
}

// PatientHistory returns the calling doctor's visits with one patient, most recent first.
func (s *Service) PatientHistory(ctx context.Context, p model.Principal, patientID uuid.UUID) (*model.PatientHistory, error) {
	if !p.Is(model.RoleDoctor) {
		return nil, apperrors.Forbidden("only doctors can view patient history")
	}
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}

	visits, err := s.appointments.List(ctx, &model.AppointmentFilters{
		PatientID: &patientID,
		DoctorID:  &p.ID,
		Order:     model.SortDesc,
	})
	if err != nil {
		return nil, err
	}
	if len(visits) == 0 {
		return nil, apperrors.Forbidden("patient has no visits with this doctor")
	}

	ids := make([]uuid.UUID, len(visits))
	for i, v := range visits {
		ids[i] = v.ID
	}
	treatments, err := s.appointments.ListTreatments(ctx, ids)
	if err != nil {
		return nil, err
	}

	history := &model.PatientHistory{Patient: patient, Visits: make([]model.Visit, len(visits))}
	for i, v := range visits {
		history.Visits[i] = model.Visit{Appointment: v, Treatment: treatments[v.ID]}
	}
	return history, nil
}
