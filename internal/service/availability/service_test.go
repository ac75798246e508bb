package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/pkg/clock"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

var today = clock.Date{Year: 2025, Month: 11, Day: 27}

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := NewService(store.Availability(), 7, time.UTC)
	svc.now = func() time.Time { return time.Date(2025, 11, 27, 10, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestWeekEmpty(t *testing.T) {
	svc, _ := newService(t)
	doctor := model.Principal{ID: uuid.New(), Role: model.RoleDoctor}

	days, err := svc.Week(context.Background(), doctor, clock.Date{})
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, today, days[0].Date)
	assert.Equal(t, "2025-12-03", days[6].Date.String())
	for _, d := range days {
		assert.False(t, d.Available)
	}
}

func TestSaveUpsertsFixedTimes(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	doctor := model.Principal{ID: uuid.New(), Role: model.RoleDoctor}

	days, err := svc.Save(ctx, doctor, []model.DayToggle{
		{Date: today, Shift1: true},
		{Date: today.AddDays(1), Shift1: true, Shift2: true},
	})
	require.NoError(t, err)
	assert.True(t, days[0].Available)
	assert.True(t, days[0].Shift1Enabled)
	assert.False(t, days[0].Shift2Enabled)
	assert.Nil(t, days[0].Shift2Start)
	assert.Equal(t, "09:00", days[0].Shift1Start.String())
	assert.Equal(t, "12:00", days[0].Shift1End.String())
	assert.Equal(t, "16:00", days[1].Shift2End.String())

	w, err := store.Availability().Get(ctx, doctor.ID, today)
	require.NoError(t, err)
	firstID := w.ID

	// toggling again keeps one row per date
	_, err = svc.Save(ctx, doctor, []model.DayToggle{{Date: today, Shift2: true}})
	require.NoError(t, err)
	w, err = store.Availability().Get(ctx, doctor.ID, today)
	require.NoError(t, err)
	assert.Equal(t, firstID, w.ID)
	assert.False(t, w.Shift1Enabled)
	assert.Nil(t, w.Shift1Start)
	assert.True(t, w.Shift2Enabled)
}

func TestSaveBothOffDeletes(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	doctor := model.Principal{ID: uuid.New(), Role: model.RoleDoctor}

	_, err := svc.Save(ctx, doctor, []model.DayToggle{{Date: today, Shift1: true}})
	require.NoError(t, err)
	_, err = svc.Save(ctx, doctor, []model.DayToggle{{Date: today}})
	require.NoError(t, err)

	_, err = store.Availability().Get(ctx, doctor.ID, today)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSaveValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	doctor := model.Principal{ID: uuid.New(), Role: model.RoleDoctor}

	_, err := svc.Save(ctx, doctor, []model.DayToggle{{Date: today.AddDays(7), Shift1: true}})
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	_, err = svc.Save(ctx, doctor, []model.DayToggle{{Date: today.AddDays(-1), Shift1: true}})
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	_, err = svc.Save(ctx, doctor, []model.DayToggle{{Date: today, Shift1: true}, {Date: today}})
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	_, err = svc.Save(ctx, model.Principal{ID: uuid.New(), Role: model.RolePatient}, []model.DayToggle{{Date: today}})
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
}

func TestWeekFromDate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	doctor := model.Principal{ID: uuid.New(), Role: model.RoleDoctor}

	_, err := svc.Save(ctx, doctor, []model.DayToggle{{Date: today.AddDays(3), Shift2: true}})
	require.NoError(t, err)

	days, err := svc.Week(ctx, doctor, today.AddDays(3))
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.True(t, days[0].Available)
	assert.True(t, days[0].Shift2Enabled)
	assert.False(t, days[1].Available)
}
