package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/service/slot"
	"github.com/jwalitptl/hospital-api/pkg/clock"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// Service manages a doctor's shift toggles over a rolling horizon starting today.
type Service struct {
	repo    repository.AvailabilityRepository
	horizon int
	loc     *time.Location
	now     func() time.Time
}

func NewService(repo repository.AvailabilityRepository, horizonDays int, loc *time.Location) *Service {
	if horizonDays <= 0 {
		horizonDays = 7
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, horizon: horizonDays, loc: loc, now: time.Now}
}

func (s *Service) today() clock.Date {
	return clock.DateOf(s.now().In(s.loc))
}

// Week returns one entry per day of the horizon starting at from, with that
// day's shift flags. A zero from means today.
func (s *Service) Week(ctx context.Context, p model.Principal, from clock.Date) ([]model.DayShifts, error) {
	if !p.Is(model.RoleDoctor) {
		return nil, apperrors.Forbidden("only doctors manage availability")
	}

	if from.IsZero() {
		from = s.today()
	}
	to := from.AddDays(s.horizon - 1)
	windows, err := s.repo.ListRange(ctx, p.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}
	byDate := make(map[clock.Date]*model.AvailabilityWindow, len(windows))
	for _, w := range windows {
		byDate[w.Date] = w
	}

	days := make([]model.DayShifts, 0, s.horizon)
	for d := from; !d.After(to); d = d.AddDays(1) {
		day := model.DayShifts{Date: d}
		if w, ok := byDate[d]; ok {
			day.Available = true
			day.Shift1Enabled, day.Shift1Start, day.Shift1End = w.Shift1Enabled, w.Shift1Start, w.Shift1End
			day.Shift2Enabled, day.Shift2Start, day.Shift2End = w.Shift2Enabled, w.Shift2Start, w.Shift2End
		}
		days = append(days, day)
	}
	return days, nil
}

// Save applies the submitted toggles. A day with both shifts off loses its
// window; otherwise the window is upserted with the fixed shift times.
func (s *Service) Save(ctx context.Context, p model.Principal, toggles []model.DayToggle) ([]model.DayShifts, error) {
	if !p.Is(model.RoleDoctor) {
		return nil, apperrors.Forbidden("only doctors manage availability")
	}

	from := s.today()
	to := from.AddDays(s.horizon - 1)
	seen := make(map[clock.Date]bool, len(toggles))
	for _, t := range toggles {
		if t.Date.IsZero() {
			return nil, apperrors.Validation("date is required", nil)
		}
		if t.Date.Before(from) || t.Date.After(to) {
			return nil, apperrors.Validation(fmt.Sprintf("%s is outside the %d-day window starting %s", t.Date, s.horizon, from), nil)
		}
		if seen[t.Date] {
			return nil, apperrors.Validation(fmt.Sprintf("%s submitted twice", t.Date), nil)
		}
		seen[t.Date] = true
	}

	for _, t := range toggles {
		if !t.Shift1 && !t.Shift2 {
			if err := s.repo.Delete(ctx, p.ID, t.Date); err != nil {
				return nil, fmt.Errorf("failed to clear availability for %s: %w", t.Date, err)
			}
			continue
		}
		if err := s.repo.Upsert(ctx, fixedWindow(p, t)); err != nil {
			return nil, fmt.Errorf("failed to save availability for %s: %w", t.Date, err)
		}
	}

	log.Info().
		Str("doctor_id", p.ID.String()).
		Int("days", len(toggles)).
		Msg("availability saved")

	return s.Week(ctx, p, from)
}

func fixedWindow(p model.Principal, t model.DayToggle) *model.AvailabilityWindow {
	w := &model.AvailabilityWindow{DoctorID: p.ID, Date: t.Date}
	if t.Shift1 {
		start, end := slot.MorningShift.Start, slot.MorningShift.End
		w.Shift1Enabled, w.Shift1Start, w.Shift1End = true, &start, &end
	}
	if t.Shift2 {
		start, end := slot.AfternoonShift.Start, slot.AfternoonShift.End
		w.Shift2Enabled, w.Shift2Start, w.Shift2End = true, &start, &end
	}
	return w
}
