// Package memory is an in-process implementation of the repository interfaces.
// It backs the service tests and the "memory" storage mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/pkg/clock"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

type dayKey struct {
	doctorID uuid.UUID
	date     clock.Date
}

type slotKey struct {
	doctorID uuid.UUID
	date     clock.Date
	time     clock.Time
}

// Store guards every table with one mutex, so Book is atomic the same way the
// postgres transaction is.
type Store struct {
	mu sync.RWMutex

	departments  map[uuid.UUID]*model.Department
	doctors      map[uuid.UUID]*model.Doctor
	patients     map[uuid.UUID]*model.Patient
	admins       map[uuid.UUID]*model.Admin
	availability map[dayKey]*model.AvailabilityWindow
	appointments map[uuid.UUID]*model.Appointment
	booked       map[slotKey]uuid.UUID
	treatments   map[uuid.UUID]*model.Treatment
	blPatients   map[uuid.UUID]struct{}
	blDoctors    map[uuid.UUID]struct{}
	outbox       []*model.OutboxEvent
}

func New() *Store {
	return &Store{
		departments:  make(map[uuid.UUID]*model.Department),
		doctors:      make(map[uuid.UUID]*model.Doctor),
		patients:     make(map[uuid.UUID]*model.Patient),
		admins:       make(map[uuid.UUID]*model.Admin),
		availability: make(map[dayKey]*model.AvailabilityWindow),
		appointments: make(map[uuid.UUID]*model.Appointment),
		booked:       make(map[slotKey]uuid.UUID),
		treatments:   make(map[uuid.UUID]*model.Treatment),
		blPatients:   make(map[uuid.UUID]struct{}),
		blDoctors:    make(map[uuid.UUID]struct{}),
	}
}

func (s *Store) Departments() repository.DepartmentRepository { return departmentRepo{s} }
func (s *Store) Doctors() repository.DoctorRepository { return doctorRepo{s} }
func (s *Store) Patients() repository.PatientRepository { return patientRepo{s} }
func (s *Store) Admins() repository.AdminRepository { return adminRepo{s} }
func (s *Store) Availability() repository.AvailabilityRepository { return availabilityRepo{s} }
func (s *Store) Appointments() repository.AppointmentRepository { return appointmentRepo{s} }
func (s *Store) Blacklist() repository.BlacklistRepository { return blacklistRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository { return outboxRepo{s} }

var _ repository.Store = (*Store)(nil)

// Events returns a snapshot of all outbox events in insertion order.
func (s *Store) Events() []model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.OutboxEvent, len(s.outbox))
	for i, e := range s.outbox {
		out[i] = *e
	}
	return out
}

func (s *Store) appendEvents(events []*model.OutboxEvent) {
	now := time.Now()
	for _, e := range events {
		if e == nil {
			continue
		}
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.Status = model.OutboxStatusPending
		e.CreatedAt, e.UpdatedAt = now, now
		cp := *e
		s.outbox = append(s.outbox, &cp)
	}
}

// departments

type departmentRepo struct{ s *Store }

func (r departmentRepo) Create(_ context.Context, d *model.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	for _, existing := range r.s.departments {
		if strings.EqualFold(existing.Name, d.Name) {
			return apperrors.Conflict("department already exists", nil)
		}
	}
	cp := *d
	r.s.departments[d.ID] = &cp
	return nil
}

func (r departmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.departments[id]
	if !ok {
		return nil, apperrors.NotFound("department", nil)
	}
	cp := *d
	return &cp, nil
}

func (r departmentRepo) List(_ context.Context) ([]*model.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*model.Department, 0, len(r.s.departments))
	for _, d := range r.s.departments {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// doctors

type doctorRepo struct{ s *Store }

func (r doctorRepo) Create(_ context.Context, d *model.Doctor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.Touch(time.Now())
	d.Email = strings.ToLower(d.Email)
	for _, existing := range r.s.doctors {
		if existing.Email == d.Email {
			return apperrors.Conflict("doctor already exists", nil)
		}
	}
	cp := *d
	r.s.doctors[d.ID] = &cp
	return nil
}

func (r doctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.doctors[id]
	if !ok {
		return nil, apperrors.NotFound("doctor", nil)
	}
	cp := *d
	return &cp, nil
}

func (r doctorRepo) GetByEmail(_ context.Context, email string) (*model.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, d := range r.s.doctors {
		if d.Email == email {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("doctor", nil)
}

func (r doctorRepo) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.doctors), nil
}

// patients

type patientRepo struct{ s *Store }

func (r patientRepo) Create(_ context.Context, p *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.Touch(time.Now())
	p.Email = strings.ToLower(p.Email)
	for _, existing := range r.s.patients {
		if existing.Email == p.Email || existing.Phone == p.Phone {
			return apperrors.Conflict("patient already exists", nil)
		}
	}
	cp := *p
	r.s.patients[p.ID] = &cp
	return nil
}

func (r patientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	cp := *p
	return &cp, nil
}

func (r patientRepo) GetByEmail(_ context.Context, email string) (*model.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, p := range r.s.patients {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("patient", nil)
}

func (r patientRepo) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.patients), nil
}

// admins

type adminRepo struct{ s *Store }

func (r adminRepo) Create(_ context.Context, a *model.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.Touch(time.Now())
	for _, existing := range r.s.admins {
		if existing.Username == a.Username {
			return apperrors.Conflict("admin already exists", nil)
		}
	}
	cp := *a
	r.s.admins[a.ID] = &cp
	return nil
}

func (r adminRepo) GetByUsername(_ context.Context, username string) (*model.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.admins {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("admin", nil)
}

func (r adminRepo) Exists(_ context.Context) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.admins) > 0, nil
}

// availability

type availabilityRepo struct{ s *Store }

func (r availabilityRepo) Get(_ context.Context, doctorID uuid.UUID, date clock.Date) (*model.AvailabilityWindow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.availability[dayKey{doctorID, date}]
	if !ok {
		return nil, apperrors.NotFound("availability", nil)
	}
	cp := *w
	return &cp, nil
}

func (r availabilityRepo) ListRange(_ context.Context, doctorID uuid.UUID, from, to clock.Date) ([]*model.AvailabilityWindow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.AvailabilityWindow
	for k, w := range r.s.availability {
		if k.doctorID != doctorID || k.date.Before(from) || k.date.After(to) {
			continue
		}
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r availabilityRepo) Upsert(_ context.Context, w *model.AvailabilityWindow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := dayKey{w.DoctorID, w.Date}
	if existing, ok := r.s.availability[key]; ok {
		w.ID = existing.ID
		w.CreatedAt = existing.CreatedAt
	}
	w.Touch(time.Now())
	cp := *w
	r.s.availability[key] = &cp
	return nil
}

func (r availabilityRepo) Delete(_ context.Context, doctorID uuid.UUID, date clock.Date) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.availability, dayKey{doctorID, date})
	return nil
}

// appointments

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Book(_ context.Context, apt *model.Appointment, events ...*model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := slotKey{apt.DoctorID, apt.Date, apt.Time}
	if _, taken := r.s.booked[key]; taken {
		return apperrors.SlotTaken(nil)
	}

	apt.Touch(time.Now())
	apt.Status = model.AppointmentStatusBooked
	cp := *apt
	r.s.appointments[apt.ID] = &cp
	r.s.booked[key] = apt.ID
	r.s.appendEvents(events)
	return nil
}

func (r appointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	cp := *a
	return &cp, nil
}

func (r appointmentRepo) ListBookedTimes(_ context.Context, doctorID uuid.UUID, date clock.Date) ([]clock.Time, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []clock.Time
	for k := range r.s.booked {
		if k.doctorID == doctorID && k.date == date {
			out = append(out, k.time)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r appointmentRepo) transition(id uuid.UUID, from, to model.AppointmentStatus) error {
	a, ok := r.s.appointments[id]
	if !ok {
		return apperrors.NotFound("appointment", nil)
	}
	if a.Status != from {
		return apperrors.Conflict(fmt.Sprintf("appointment is not %s", from), nil)
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	if from == model.AppointmentStatusBooked {
		delete(r.s.booked, slotKey{a.DoctorID, a.Date, a.Time})
	}
	return nil
}

func (r appointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.AppointmentStatus, events ...*model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.transition(id, from, to); err != nil {
		return err
	}
	r.s.appendEvents(events)
	return nil
}

func (r appointmentRepo) Complete(_ context.Context, id uuid.UUID, t *model.Treatment, events ...*model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.treatments[id]; exists {
		return apperrors.Conflict("treatment already exists", nil)
	}
	if err := r.transition(id, model.AppointmentStatusBooked, model.AppointmentStatusCompleted); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.AppointmentID = id
	cp := *t
	r.s.treatments[id] = &cp
	r.s.appendEvents(events)
	return nil
}

func (r appointmentRepo) List(_ context.Context, f *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if f == nil {
		f = &model.AppointmentFilters{}
	}
	var out []*model.Appointment
	for _, a := range r.s.appointments {
		switch {
		case f.PatientID != nil && a.PatientID != *f.PatientID:
			continue
		case f.DoctorID != nil && a.DoctorID != *f.DoctorID:
			continue
		case f.Status != "" && a.Status != f.Status:
			continue
		case f.FromDate != nil && a.Date.Before(*f.FromDate):
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if f.Order == model.SortDesc {
			a, b = b, a
		}
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		return a.Time < b.Time
	})
	return out, nil
}

func (r appointmentRepo) ListTreatments(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Treatment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[uuid.UUID]*model.Treatment, len(ids))
	for _, id := range ids {
		if t, ok := r.s.treatments[id]; ok {
			cp := *t
			out[id] = &cp
		}
	}
	return out, nil
}

func (r appointmentRepo) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.appointments), nil
}

// blacklist

type blacklistRepo struct{ s *Store }

func (r blacklistRepo) toggle(set map[uuid.UUID]struct{}, id uuid.UUID, add bool) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, present := set[id]
	if add {
		set[id] = struct{}{}
	} else {
		delete(set, id)
	}
	return present != add
}

func (r blacklistRepo) has(set map[uuid.UUID]struct{}, id uuid.UUID) bool {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := set[id]
	return ok
}

func (r blacklistRepo) AddPatient(_ context.Context, id uuid.UUID) (bool, error) {
	return r.toggle(r.s.blPatients, id, true), nil
}

func (r blacklistRepo) RemovePatient(_ context.Context, id uuid.UUID) (bool, error) {
	return r.toggle(r.s.blPatients, id, false), nil
}

func (r blacklistRepo) HasPatient(_ context.Context, id uuid.UUID) (bool, error) {
	return r.has(r.s.blPatients, id), nil
}

func (r blacklistRepo) AddDoctor(_ context.Context, id uuid.UUID) (bool, error) {
	return r.toggle(r.s.blDoctors, id, true), nil
}

func (r blacklistRepo) RemoveDoctor(_ context.Context, id uuid.UUID) (bool, error) {
	return r.toggle(r.s.blDoctors, id, false), nil
}

func (r blacklistRepo) HasDoctor(_ context.Context, id uuid.UUID) (bool, error) {
	return r.has(r.s.blDoctors, id), nil
}

func (r blacklistRepo) CountPatients(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.blPatients), nil
}

// outbox

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(_ context.Context, e *model.OutboxEvent) error {
	if e == nil || e.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.appendEvents([]*model.OutboxEvent{e})
	return nil
}

func (r outboxRepo) ClaimPending(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range r.s.outbox {
		if len(out) >= limit {
			break
		}
		if e.Status != model.OutboxStatusPending {
			continue
		}
		e.Status = model.OutboxStatusProcessing
		e.UpdatedAt = time.Now()
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r outboxRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.outbox {
		if e.ID == id {
			e.Status = status
			e.ErrorMessage = errMsg
			if status == model.OutboxStatusFailed {
				e.RetryCount++
			}
			e.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperrors.NotFound("outbox event", nil)
}

func (r outboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.outbox[:0]
	var n int64
	for _, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.UpdatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.s.outbox = kept
	return n, nil
}
