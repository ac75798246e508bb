package slot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/pkg/clock"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

// Outcomes recorded in the slot resolution counter.
const (
	OutcomeOpen        = "open"
	OutcomeFull        = "full"
	OutcomeOff         = "off"
	OutcomeBlacklisted = "blacklisted"
	OutcomeError       = "error"
)

// Resolver turns a doctor's stored shifts into the slots still open for booking.
type Resolver struct {
	availability repository.AvailabilityRepository
	appointments repository.AppointmentRepository
	blacklist    repository.BlacklistRepository
	metrics      *metrics.Metrics
	now          func() time.Time
	loc          *time.Location
}

func NewResolver(
	availability repository.AvailabilityRepository,
	appointments repository.AppointmentRepository,
	blacklist repository.BlacklistRepository,
) *Resolver {
	return &Resolver{
		availability: availability,
		appointments: appointments,
		blacklist:    blacklist,
	}
}

// WithMetrics records the outcome of every lookup.
func (r *Resolver) WithMetrics(m *metrics.Metrics) *Resolver {
	r.metrics = m
	return r
}

// WithClock drops slots of the current day that start before now in loc.
func (r *Resolver) WithClock(now func() time.Time, loc *time.Location) *Resolver {
	r.now, r.loc = now, loc
	return r
}

// ResolveAvailableSlots returns the open slots for a doctor-day in shift order.
// A day without a window yields an empty slice and no error.
func (r *Resolver) ResolveAvailableSlots(ctx context.Context, doctorID uuid.UUID, date clock.Date) ([]clock.Time, error) {
	day, err := r.Availability(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	return day.Slots, nil
}

// Availability is ResolveAvailableSlots plus whether the doctor works that day at all.
func (r *Resolver) Availability(ctx context.Context, doctorID uuid.UUID, date clock.Date) (*model.DayAvailability, error) {
	day, outcome, err := r.resolve(ctx, doctorID, date)
	if r.metrics != nil {
		r.metrics.SlotResolutions.WithLabelValues(outcome).Inc()
	}
	return day, err
}

func (r *Resolver) resolve(ctx context.Context, doctorID uuid.UUID, date clock.Date) (*model.DayAvailability, string, error) {
	day := &model.DayAvailability{
		DoctorID: doctorID,
		Date:     date,
		Slots:    []clock.Time{},
	}

	if r.blacklist != nil {
		blocked, err := r.blacklist.HasDoctor(ctx, doctorID)
		if err != nil {
			return nil, OutcomeError, fmt.Errorf("failed to check doctor blacklist: %w", err)
		}
		if blocked {
			return day, OutcomeBlacklisted, nil
		}
	}

	window, err := r.availability.Get(ctx, doctorID, date)
	if apperrors.IsNotFound(err) {
		return day, OutcomeOff, nil
	}
	if err != nil {
		return nil, OutcomeError, fmt.Errorf("failed to get availability: %w", err)
	}

	generated := WindowSlots(window)
	if len(generated) == 0 {
		return day, OutcomeOff, nil
	}
	day.Available = true

	booked, err := r.appointments.ListBookedTimes(ctx, doctorID, date)
	if err != nil {
		return nil, OutcomeError, fmt.Errorf("failed to list booked times: %w", err)
	}
	day.Booked = booked

	taken := make(map[clock.Time]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}
	cutoff, hasCutoff := r.cutoff(date)
	for _, t := range generated {
		if _, ok := taken[t]; ok {
			continue
		}
		if hasCutoff && t.Before(cutoff) {
			continue
		}
		day.Slots = append(day.Slots, t)
	}
	if len(day.Slots) == 0 {
		return day, OutcomeFull, nil
	}
	return day, OutcomeOpen, nil
}

// cutoff is the current minute when date is today, so earlier slots are skipped.
func (r *Resolver) cutoff(date clock.Date) (clock.Time, bool) {
	if r.now == nil {
		return 0, false
	}
	loc := r.loc
	if loc == nil {
		loc = time.Local
	}
	now := r.now().In(loc)
	if clock.DateOf(now) != date {
		return 0, false
	}
	return clock.New(now.Hour(), now.Minute()), true
}

// WindowSlots generates every slot of the enabled shifts of w, shift 1 first.
// A missing stored bound falls back to the shift's default.
func WindowSlots(w *model.AvailabilityWindow) []clock.Time {
	var slots []clock.Time
	defaults := DefaultShifts()
	for i, shift := range w.Shifts() {
		if !shift.Enabled {
			continue
		}
		bounds := defaults[i]
		if shift.Start != nil {
			bounds.Start = *shift.Start
		}
		if shift.End != nil {
			bounds.End = *shift.End
		}
		slots = append(slots, bounds.Slots()...)
	}
	return slots
}
