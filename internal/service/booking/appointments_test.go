package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/clock"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

func (f *fixture) doctorPrincipal() model.Principal {
	return model.Principal{ID: f.doctor.ID, Role: model.RoleDoctor}
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.ConfirmBooking(ctx, f.principal(), f.request("09:40"))
	require.NoError(t, err)

	stranger := model.Principal{ID: uuid.New(), Role: model.RolePatient}
	_, err = f.svc.CancelAppointment(ctx, stranger, apt.ID)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))

	cancelled, err := f.svc.CancelAppointment(ctx, f.principal(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)

	slots, err := f.svc.slots.ResolveAvailableSlots(ctx, f.doctor.ID, tomorrow)
	require.NoError(t, err)
	assert.Contains(t, slots, clock.MustParse("09:40"))

	_, err = f.svc.CancelAppointment(ctx, f.principal(), apt.ID)
	assert.True(t, apperrors.IsConflict(err))

	// the freed slot can be booked again
	_, err = f.svc.ConfirmBooking(ctx, f.principal(), f.request("09:40"))
	require.NoError(t, err)

	events := f.store.Events()
	require.Len(t, events, 3)
	assert.Equal(t, model.EventAppointmentCancelled, events[1].EventType)
}

func TestCompleteAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.ConfirmBooking(ctx, f.principal(), f.request("10:20"))
	require.NoError(t, err)

	_, err = f.svc.CompleteAppointment(ctx, f.principal(), apt.ID, model.CompleteAppointmentRequest{Diagnosis: "flu"})
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))

	_, err = f.svc.CompleteAppointment(ctx, f.doctorPrincipal(), apt.ID, model.CompleteAppointmentRequest{Diagnosis: "  "})
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	rx := "rest and fluids"
	visit, err := f.svc.CompleteAppointment(ctx, f.doctorPrincipal(), apt.ID, model.CompleteAppointmentRequest{
		Diagnosis:    "viral fever",
		Prescription: &rx,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, visit.Appointment.Status)
	assert.Equal(t, "viral fever", visit.Treatment.Diagnosis)

	_, err = f.svc.CompleteAppointment(ctx, f.doctorPrincipal(), apt.ID, model.CompleteAppointmentRequest{Diagnosis: "again"})
	assert.True(t, apperrors.IsConflict(err))

	// completing keeps the slot out of the resolved set only while booked
	slots, err := f.svc.slots.ResolveAvailableSlots(ctx, f.doctor.ID, tomorrow)
	require.NoError(t, err)
	assert.Contains(t, slots, clock.MustParse("10:20"))
}

func TestDashboards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a1, err := f.svc.ConfirmBooking(ctx, f.principal(), f.request("11:00"))
	require.NoError(t, err)
	a2, err := f.svc.ConfirmBooking(ctx, f.principal(), f.request("09:00"))
	require.NoError(t, err)
	a3, err := f.svc.ConfirmBooking(ctx, f.principal(), f.request("10:00"))
	require.NoError(t, err)

	_, err = f.svc.CancelAppointment(ctx, f.principal(), a3.ID)
	require.NoError(t, err)

	upcoming, err := f.svc.ListForPatient(ctx, f.principal())
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, a2.ID, upcoming[0].ID)
	assert.Equal(t, a1.ID, upcoming[1].ID)

	_, err = f.svc.ListForPatient(ctx, f.doctorPrincipal())
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))

	doc, err := f.svc.ListForDoctor(ctx, f.doctorPrincipal(), model.ParseAppointmentView("bogus"))
	require.NoError(t, err)
	assert.Len(t, doc, 2)

	cancelled, err := f.svc.ListForDoctor(ctx, f.doctorPrincipal(), model.ViewCancelled)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, a3.ID, cancelled[0].ID)
}

func TestPatientHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.PatientHistory(ctx, f.doctorPrincipal(), f.patient.ID)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))

	first, err := f.svc.ConfirmBooking(ctx, f.principal(), f.request("09:00"))
	require.NoError(t, err)
	_, err = f.svc.CompleteAppointment(ctx, f.doctorPrincipal(), first.ID, model.CompleteAppointmentRequest{Diagnosis: "checkup"})
	require.NoError(t, err)
	second, err := f.svc.ConfirmBooking(ctx, f.principal(), f.request("11:40"))
	require.NoError(t, err)

	history, err := f.svc.PatientHistory(ctx, f.doctorPrincipal(), f.patient.ID)
	require.NoError(t, err)
	assert.Equal(t, f.patient.ID, history.Patient.ID)
	require.Len(t, history.Visits, 2)
	assert.Equal(t, second.ID, history.Visits[0].Appointment.ID)
	assert.Nil(t, history.Visits[0].Treatment)
	require.NotNil(t, history.Visits[1].Treatment)
	assert.Equal(t, "checkup", history.Visits[1].Treatment.Diagnosis)

	_, err = f.svc.PatientHistory(ctx, f.doctorPrincipal(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}
