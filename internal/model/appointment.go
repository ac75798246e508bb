package model

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/pkg/clock"
)

type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is one booked slot. At most one booked appointment exists per doctor, date and time.
type Appointment struct {
	Base
	PatientID  uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID   uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	Date       clock.Date        `db:"date" json:"date"`
	Time       clock.Time        `db:"time" json:"time"`
	Department string            `db:"department" json:"department"`
	Status     AppointmentStatus `db:"status" json:"status"`
}

// Treatment records the outcome of a completed appointment.
type Treatment struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	Diagnosis     string    `db:"diagnosis" json:"diagnosis"`
	Prescription  *string   `db:"prescription" json:"prescription,omitempty"`
	Note          *string   `db:"note" json:"note,omitempty"`
}

type BookingRequest struct {
	PatientID    uuid.UUID   `json:"patient_id"`
	DoctorID     uuid.UUID   `json:"doctor_id" binding:"required"`
	Date         clock.Date  `json:"date"`
	Time         *clock.Time `json:"time" binding:"required"`
	DepartmentID uuid.UUID   `json:"department_id" binding:"required"`
}

type CompleteAppointmentRequest struct {
	Diagnosis    string  `json:"diagnosis" binding:"required,max=255"`
	Prescription *string `json:"prescription"`
	Note         *string `json:"note"`
}

// AppointmentView selects a doctor's dashboard listing.
type AppointmentView string

const (
	ViewUpcoming  AppointmentView = "upcoming"
	ViewCompleted AppointmentView = "completed"
	ViewCancelled AppointmentView = "cancelled"
)

// ParseAppointmentView falls back to upcoming for unknown values.
func ParseAppointmentView(s string) AppointmentView {
	switch AppointmentView(s) {
	case ViewCompleted, ViewCancelled:
		return AppointmentView(s)
	default:
		return ViewUpcoming
	}
}

type AppointmentFilters struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    AppointmentStatus
	FromDate  *clock.Date
	Order     SortOrder
}

// Visit pairs a past appointment with its treatment, if any.
type Visit struct {
	Appointment *Appointment `json:"appointment"`
	Treatment   *Treatment   `json:"treatment,omitempty"`
}

type PatientHistory struct {
	Patient *Patient `json:"patient"`
	Visits  []Visit  `json:"visits"`
}
