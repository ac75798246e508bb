package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/clock"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

func newAppointment(doctorID uuid.UUID, date clock.Date, at string) *model.Appointment {
	return &model.Appointment{
		PatientID:  uuid.New(),
		DoctorID:   doctorID,
		Date:       date,
		Time:       clock.MustParse(at),
		Department: "Cardiology",
	}
}

func TestBookRejectsSecondBookingOfSlot(t *testing.T) {
	ctx := context.Background()
	repo := New().Appointments()
	doctorID := uuid.New()
	date := clock.Date{Year: 2025, Month: 11, Day: 27}

	require.NoError(t, repo.Book(ctx, newAppointment(doctorID, date, "09:40")))
	err := repo.Book(ctx, newAppointment(doctorID, date, "09:40"))
	assert.True(t, apperrors.IsSlotTaken(err))

	// another doctor or time is independent
	require.NoError(t, repo.Book(ctx, newAppointment(uuid.New(), date, "09:40")))
	require.NoError(t, repo.Book(ctx, newAppointment(doctorID, date, "10:00")))
}

func TestConcurrentBookOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := New().Appointments()
	doctorID := uuid.New()
	date := clock.Date{Year: 2025, Month: 11, Day: 27}

	const n = 16
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		taken int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Book(ctx, newAppointment(doctorID, date, "11:20"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if apperrors.IsSlotTaken(err) {
				taken++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, taken)
}

func TestCancelFreesSlot(t *testing.T) {
	ctx := context.Background()
	store := New()
	repo := store.Appointments()
	doctorID := uuid.New()
	date := clock.Date{Year: 2025, Month: 11, Day: 27}

	apt := newAppointment(doctorID, date, "09:40")
	require.NoError(t, repo.Book(ctx, apt))

	times, err := repo.ListBookedTimes(ctx, doctorID, date)
	require.NoError(t, err)
	assert.Equal(t, []clock.Time{clock.MustParse("09:40")}, times)

	event, err := model.NewOutboxEvent(model.EventAppointmentCancelled, map[string]string{"id": apt.ID.String()})
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, apt.ID, model.AppointmentStatusBooked, model.AppointmentStatusCancelled, event))

	times, err = repo.ListBookedTimes(ctx, doctorID, date)
	require.NoError(t, err)
	assert.Empty(t, times)

	err = repo.UpdateStatus(ctx, apt.ID, model.AppointmentStatusBooked, model.AppointmentStatusCancelled)
	assert.True(t, apperrors.IsConflict(err))

	require.NoError(t, repo.Book(ctx, newAppointment(doctorID, date, "09:40")))
	require.Len(t, store.Events(), 1)
	assert.Equal(t, model.EventAppointmentCancelled, store.Events()[0].EventType)
}

func TestListOrdering(t *testing.T) {
	ctx := context.Background()
	repo := New().Appointments()
	doctorID := uuid.New()
	day := clock.Date{Year: 2025, Month: 11, Day: 27}

	for _, a := range []*model.Appointment{
		newAppointment(doctorID, day.AddDays(1), "09:00"),
		newAppointment(doctorID, day, "13:00"),
		newAppointment(doctorID, day, "09:20"),
	} {
		require.NoError(t, repo.Book(ctx, a))
	}

	asc, err := repo.List(ctx, &model.AppointmentFilters{DoctorID: &doctorID})
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, "09:20", asc[0].Time.String())
	assert.Equal(t, "13:00", asc[1].Time.String())
	assert.Equal(t, day.AddDays(1), asc[2].Date)

	from := day.AddDays(1)
	desc, err := repo.List(ctx, &model.AppointmentFilters{DoctorID: &doctorID, Order: model.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, from, desc[0].Date)
	assert.Equal(t, "09:20", desc[2].Time.String())
}

func TestBlacklistIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := New().Blacklist()
	id := uuid.New()

	changed, err := repo.AddPatient(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, _ = repo.AddPatient(ctx, id)
	assert.False(t, changed)

	has, _ := repo.HasPatient(ctx, id)
	assert.True(t, has)

	changed, _ = repo.RemovePatient(ctx, id)
	assert.True(t, changed)
	changed, _ = repo.RemovePatient(ctx, id)
	assert.False(t, changed)
}

func TestOutboxClaim(t *testing.T) {
	ctx := context.Background()
	repo := New().Outbox()

	for i := 0; i < 3; i++ {
		e, err := model.NewOutboxEvent(model.EventAppointmentBooked, map[string]int{"n": i})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, e))
	}

	first, err := repo.ClaimPending(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	rest, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	require.NoError(t, repo.UpdateStatus(ctx, first[0].ID, model.OutboxStatusPending, nil))
	again, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, first[0].ID, again[0].ID)
}

func TestSeedDepartments(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.SeedDepartments(ctx))
	require.NoError(t, store.SeedDepartments(ctx))

	list, err := store.Departments().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, "Cardiology", list[0].Name)

	cardiology, err := store.Departments().Get(ctx, uuid.MustParse("6f1c2a7e-0d3b-4c1e-9a61-1f0b7e2d9a02"))
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", cardiology.Name)
}
