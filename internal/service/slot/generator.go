package slot

import (
	"time"

	"github.com/jwalitptl/hospital-api/pkg/clock"
)

// Duration is the fixed length of every bookable slot.
const Duration = 20 * time.Minute

// Window is a half-open shift [Start, End).
type Window struct {
	Start clock.Time
	End   clock.Time
}

var (
	MorningShift   = Window{Start: clock.New(9, 0), End: clock.New(12, 0)}
	AfternoonShift = Window{Start: clock.New(13, 0), End: clock.New(16, 0)}
)

// DefaultShifts returns shift 1 then shift 2.
func DefaultShifts() [2]Window {
	return [2]Window{MorningShift, AfternoonShift}
}

// Each calls fn with every slot start in [start, end) whose slot also ends by end.
// Iteration stops early when fn returns false.
func Each(start, end clock.Time, fn func(clock.Time) bool) {
	if end > clock.MinutesPerDay {
		end = clock.MinutesPerDay
	}
	for t := start; t.Add(Duration) <= end; t = t.Add(Duration) {
		if !fn(t) {
			return
		}
	}
}

// Generate returns the ordered slot starts of [start, end). A start t is
// included iff t+Duration <= end, so a window shorter than one slot is empty.
func Generate(start, end clock.Time) []clock.Time {
	slots := make([]clock.Time, 0, Count(start, end))
	Each(start, end, func(t clock.Time) bool {
		slots = append(slots, t)
		return true
	})
	return slots
}

// Count is the number of whole slots that fit in [start, end).
func Count(start, end clock.Time) int {
	if end > clock.MinutesPerDay {
		end = clock.MinutesPerDay
	}
	if end <= start {
		return 0
	}
	return int(end.Sub(start) / Duration)
}

func (w Window) Slots() []clock.Time {
	return Generate(w.Start, w.End)
}
