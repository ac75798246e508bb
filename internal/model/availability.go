package model

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/pkg/clock"
)

// AvailabilityWindow is a doctor's shift configuration for one date.
// A disabled shift carries no start or end.
type AvailabilityWindow struct {
	Base
	DoctorID      uuid.UUID   `db:"doctor_id" json:"doctor_id"`
	Date          clock.Date  `db:"date" json:"date"`
	Shift1Enabled bool        `db:"shift1_enabled" json:"shift1_enabled"`
	Shift1Start   *clock.Time `db:"shift1_start" json:"shift1_start,omitempty"`
	Shift1End     *clock.Time `db:"shift1_end" json:"shift1_end,omitempty"`
	Shift2Enabled bool        `db:"shift2_enabled" json:"shift2_enabled"`
	Shift2Start   *clock.Time `db:"shift2_start" json:"shift2_start,omitempty"`
	Shift2End     *clock.Time `db:"shift2_end" json:"shift2_end,omitempty"`
}

// Shift is one of the two daily windows as stored.
type Shift struct {
	Enabled bool
	Start   *clock.Time
	End     *clock.Time
}

// Shifts returns shift 1 then shift 2.
func (w *AvailabilityWindow) Shifts() [2]Shift {
	return [2]Shift{
		{Enabled: w.Shift1Enabled, Start: w.Shift1Start, End: w.Shift1End},
		{Enabled: w.Shift2Enabled, Start: w.Shift2Start, End: w.Shift2End},
	}
}

// DayAvailability is the resolved view of one doctor-day.
type DayAvailability struct {
	DoctorID  uuid.UUID    `json:"doctor_id"`
	Date      clock.Date   `json:"date"`
	Available bool         `json:"available"`
	Slots     []clock.Time `json:"slots"`
	Booked    []clock.Time `json:"-"`
}

// DayToggle is a doctor's submitted shift choice for a date.
type DayToggle struct {
	Date   clock.Date `json:"date"`
	Shift1 bool       `json:"shift1"`
	Shift2 bool       `json:"shift2"`
}

type SaveAvailabilityRequest struct {
	Days []DayToggle `json:"days" binding:"required,min=1,max=7,dive"`
}

// DayShifts is one row of the doctor's weekly availability page.
type DayShifts struct {
	Date          clock.Date  `json:"date"`
	Shift1Enabled bool        `json:"shift1_enabled"`
	Shift1Start   *clock.Time `json:"shift1_start,omitempty"`
	Shift1End     *clock.Time `json:"shift1_end,omitempty"`
	Shift2Enabled bool        `json:"shift2_enabled"`
	Shift2Start   *clock.Time `json:"shift2_start,omitempty"`
	Shift2End     *clock.Time `json:"shift2_end,omitempty"`
	Available     bool        `json:"available"`
}
