package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/internal/service/department"
	"github.com/jwalitptl/hospital-api/internal/service/slot"
	"github.com/jwalitptl/hospital-api/pkg/clock"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/lock"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

var (
	today    = clock.Date{Year: 2025, Month: 11, Day: 27}
	tomorrow = today.AddDays(1)
)

type fixture struct {
	store   *memory.Store
	svc     *Service
	dept    *model.Department
	doctor  *model.Doctor
	patient *model.Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	dept := &model.Department{Name: "Cardiology"}
	require.NoError(t, store.Departments().Create(ctx, dept))
	doctor := &model.Doctor{FullName: "Dr. Rao", Email: "rao@hospital.local", DepartmentID: &dept.ID}
	require.NoError(t, store.Doctors().Create(ctx, doctor))
	patient := &model.Patient{FullName: "Asha", Email: "asha@example.com", Phone: "9000000001", DateOfBirth: today.AddDays(-9000)}
	require.NoError(t, store.Patients().Create(ctx, patient))

	require.NoError(t, store.Availability().Upsert(ctx, &model.AvailabilityWindow{
		DoctorID:      doctor.ID,
		Date:          tomorrow,
		Shift1Enabled: true,
		Shift1Start:   &slot.MorningShift.Start,
		Shift1End:     &slot.MorningShift.End,
	}))

	resolver := slot.NewResolver(store.Availability(), store.Appointments(), store.Blacklist())
	svc := NewService(
		Repositories{
			Patients:     store.Patients(),
			Doctors:      store.Doctors(),
			Appointments: store.Appointments(),
			Blacklist:    store.Blacklist(),
		},
		resolver,
		department.NewService(store.Departments(), time.Minute),
		lock.NewLocal(),
		metrics.New("test"),
		Config{Location: time.UTC},
	)
	svc.now = func() time.Time { return time.Date(2025, 11, 27, 8, 0, 0, 0, time.UTC) }

	return &fixture{store: store, svc: svc, dept: dept, doctor: doctor, patient: patient}
}

func (f *fixture) principal() model.Principal {
	return model.Principal{ID: f.patient.ID, Role: model.RolePatient}
}

func (f *fixture) request(at string) model.BookingRequest {
	return model.BookingRequest{
		PatientID:    f.patient.ID,
		DoctorID:     f.doctor.ID,
		Date:         tomorrow,
		Time:         timeOf(at),
		DepartmentID: f.dept.ID,
	}
}

func timeOf(s string) *clock.Time {
	t := clock.MustParse(s)
	return &t
}

func TestConfirmBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.svc.ConfirmBooking(ctx, f.principal(), f.request("09:40"))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusBooked, apt.Status)
	assert.Equal(t, "Cardiology", apt.Department)
	assert.Equal(t, "09:40", apt.Time.String())

	slots, err := f.svc.slots.ResolveAvailableSlots(ctx, f.doctor.ID, tomorrow)
	require.NoError(t, err)
	assert.Len(t, slots, 8)
	assert.NotContains(t, slots, clock.MustParse("09:40"))

	events := f.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventAppointmentBooked, events[0].EventType)
	assert.Contains(t, string(events[0].Payload), `"patient_email":"asha@example.com"`)
}

func TestConfirmBookingSlotTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ConfirmBooking(ctx, f.principal(), f.request("10:00"))
	require.NoError(t, err)

	_, err = f.svc.ConfirmBooking(ctx, f.principal(), f.request("10:00"))
	assert.True(t, apperrors.IsSlotTaken(err))
}

func TestConfirmBookingConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ConfirmBooking(ctx, f.principal(), f.request("11:20"))
		}(i)
	}
	wg.Wait()

	booked := 0
	for _, err := range errs {
		if err == nil {
			booked++
			continue
		}
		assert.True(t, apperrors.IsSlotTaken(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, booked)

	times, err := f.store.Appointments().ListBookedTimes(ctx, f.doctor.ID, tomorrow)
	require.NoError(t, err)
	assert.Equal(t, []clock.Time{clock.MustParse("11:20")}, times)
}

func TestConfirmBookingRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := model.Principal{ID: uuid.New(), Role: model.RolePatient}

	tests := []struct {
		name   string
		p      model.Principal
		mutate func(*model.BookingRequest)
		code   apperrors.ErrorCode
	}{
		{"doctor cannot book", model.Principal{ID: f.doctor.ID, Role: model.RoleDoctor}, nil, apperrors.ErrForbidden},
		{"other patient", other, nil, apperrors.ErrForbidden},
		{"missing department", f.principal(), func(r *model.BookingRequest) { r.DepartmentID = uuid.New() }, apperrors.ErrNotFound},
		{"missing doctor", f.principal(), func(r *model.BookingRequest) { r.DoctorID = uuid.New() }, apperrors.ErrNotFound},
		{"past date", f.principal(), func(r *model.BookingRequest) { r.Date = today.AddDays(-1) }, apperrors.ErrBadRequest},
		{"doctor off", f.principal(), func(r *model.BookingRequest) { r.Date = today.AddDays(3) }, apperrors.ErrUnavailable},
		{"off boundary", f.principal(), func(r *model.BookingRequest) { r.Time = timeOf("09:10") }, apperrors.ErrUnavailable},
		{"outside shift", f.principal(), func(r *model.BookingRequest) { r.Time = timeOf("13:00") }, apperrors.ErrUnavailable},
		{"zero date", f.principal(), func(r *model.BookingRequest) { r.Date = clock.Date{} }, apperrors.ErrBadRequest},
		{"missing time", f.principal(), func(r *model.BookingRequest) { r.Time = nil }, apperrors.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request("09:00")
			if tt.mutate != nil {
				tt.mutate(&req)
			}
			apt, err := f.svc.ConfirmBooking(ctx, tt.p, req)
			assert.Nil(t, apt)
			assert.Equal(t, tt.code, apperrors.CodeOf(err), "got %v", err)
		})
	}

	// nothing was written by any rejected attempt
	n, err := f.store.Appointments().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConfirmBookingWrongDepartment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := &model.Department{Name: "Dermatology"}
	require.NoError(t, f.store.Departments().Create(ctx, other))

	req := f.request("09:00")
	req.DepartmentID = other.ID
	_, err := f.svc.ConfirmBooking(ctx, f.principal(), req)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestConfirmBookingBlacklisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.Blacklist().AddPatient(ctx, f.patient.ID)
	require.NoError(t, err)

	_, err = f.svc.ConfirmBooking(ctx, f.principal(), f.request("09:00"))
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
}

func TestConfirmBookingHeldLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, _, err := f.svc.locker.TryLock(ctx, slotKey(f.doctor.ID, tomorrow, clock.MustParse("09:20")), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.ConfirmBooking(ctx, f.principal(), f.request("09:20"))
	assert.True(t, apperrors.IsSlotTaken(err))
}

func TestAdminBooksForPatient(t *testing.T) {
	f := newFixture(t)
	admin := model.Principal{ID: uuid.New(), Role: model.RoleAdmin}

	req := f.request("09:00")
	req.PatientID = uuid.Nil
	_, err := f.svc.ConfirmBooking(context.Background(), admin, req)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	apt, err := f.svc.ConfirmBooking(context.Background(), admin, f.request("09:00"))
	require.NoError(t, err)
	assert.Equal(t, f.patient.ID, apt.PatientID)
}

func TestConfirmBookingSkipsElapsedSlotToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Availability().Upsert(ctx, &model.AvailabilityWindow{
		DoctorID:      f.doctor.ID,
		Date:          today,
		Shift1Enabled: true,
	}))
	f.svc.now = func() time.Time { return time.Date(2025, 11, 27, 10, 5, 0, 0, time.UTC) }
	f.svc.slots.WithClock(f.svc.now, time.UTC)

	req := f.request("09:00")
	req.Date = today
	_, err := f.svc.ConfirmBooking(ctx, f.principal(), req)
	assert.Equal(t, apperrors.ErrUnavailable, apperrors.CodeOf(err), "got %v", err)

	req.Time = timeOf("10:20")
	apt, err := f.svc.ConfirmBooking(ctx, f.principal(), req)
	require.NoError(t, err)
	assert.Equal(t, "10:20", apt.Time.String())
}

func TestConfirmBookingLogsSlotTime(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).With().Timestamp().Logger()
	t.Cleanup(func() { log.Logger = prev })

	f := newFixture(t)
	_, err := f.svc.ConfirmBooking(context.Background(), f.principal(), f.request("11:40"))
	require.NoError(t, err)

	var line string
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(l, "appointment booked") {
			line = l
		}
	}
	require.NotEmpty(t, line, buf.String())
	assert.Equal(t, 1, strings.Count(line, `"time":`))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "11:40", entry["slot_time"])
	assert.Equal(t, tomorrow.String(), entry["date"])
}
