package scheduling

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mediconnect/mediconnect/internal/domain/identity"
	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
)

// -- Mock Repositories --

type mockStore struct {
	appointments map[int64]*Appointment
	statuses     map[int64]*AppointmentStatus
	doctors      map[int64]*identity.Doctor
	patients     map[int64]*identity.Patient
	names        map[int64]string // user id -> display name
	nextID       int64
}

func newMockStore() *mockStore {
	return &mockStore{
		appointments: make(map[int64]*Appointment),
		statuses:     make(map[int64]*AppointmentStatus),
		doctors:      make(map[int64]*identity.Doctor),
		patients:     make(map[int64]*identity.Patient),
		names:        make(map[int64]string),
	}
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type mockAppointmentRepo struct{ *mockStore }

func (m mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = m.id()
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m mockAppointmentRepo) GetByID(_ context.Context, id int64) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, apperr.NotFound("appointment", id)
	}
	cp := *a
	return &cp, nil
}

func (m mockAppointmentRepo) view(a *Appointment) *AppointmentView {
	v := &AppointmentView{Appointment: *a}
	if p, ok := m.patients[a.PatientID]; ok {
		v.PatientName = m.names[p.UserID]
	}
	if d, ok := m.doctors[a.DoctorID]; ok {
		v.DoctorName = m.names[d.UserID]
		v.Specialty = "Cardiology"
	}
	if s, ok := m.statuses[a.StatusID]; ok {
		v.Status = s.Name
	}
	return v
}

func (m mockAppointmentRepo) GetView(_ context.Context, id int64) (*AppointmentView, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, apperr.NotFound("appointment", id)
	}
	return m.view(a), nil
}

func (m mockAppointmentRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appointments[a.ID]; !ok {
		return apperr.NotFound("appointment", a.ID)
	}
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m mockAppointmentRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.appointments[id]; !ok {
		return apperr.NotFound("appointment", id)
	}
	delete(m.appointments, id)
	return nil
}

func (m mockAppointmentRepo) List(_ context.Context, f AppointmentFilter, limit, offset int) ([]*AppointmentView, int, error) {
	var all []*AppointmentView
	for _, a := range m.appointments {
		if f.DoctorID != 0 && a.DoctorID != f.DoctorID {
			continue
		}
		if f.PatientID != 0 && a.PatientID != f.PatientID {
			continue
		}
		if f.StatusID != 0 && a.StatusID != f.StatusID {
			continue
		}
		all = append(all, m.view(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ScheduledAt.After(all[j].ScheduledAt) })
	return page(all, limit, offset), len(all), nil
}

type mockStatusRepo struct{ *mockStore }

func (m mockStatusRepo) Create(_ context.Context, s *AppointmentStatus) error {
	for _, existing := range m.statuses {
		if strings.EqualFold(existing.Name, s.Name) {
			return apperr.Conflict(apperr.CodeDuplicate, "appointment status already exists")
		}
	}
	s.ID = m.id()
	m.statuses[s.ID] = s
	return nil
}

func (m mockStatusRepo) GetByID(_ context.Context, id int64) (*AppointmentStatus, error) {
	s, ok := m.statuses[id]
	if !ok {
		return nil, apperr.NotFound("appointment status", id)
	}
	return s, nil
}

func (m mockStatusRepo) GetByName(_ context.Context, name string) (*AppointmentStatus, error) {
	for _, s := range m.statuses {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, apperr.CodeNotFound, "appointment status not found")
}

func (m mockStatusRepo) Update(_ context.Context, s *AppointmentStatus) error {
	if _, ok := m.statuses[s.ID]; !ok {
		return apperr.NotFound("appointment status", s.ID)
	}
	m.statuses[s.ID] = s
	return nil
}

func (m mockStatusRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.statuses[id]; !ok {
		return apperr.NotFound("appointment status", id)
	}
	delete(m.statuses, id)
	return nil
}

func (m mockStatusRepo) List(_ context.Context, limit, offset int) ([]*AppointmentStatus, int, error) {
	var all []*AppointmentStatus
	for _, s := range m.statuses {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, limit, offset), len(all), nil
}

func (m mockStatusRepo) CountAppointments(_ context.Context, id int64) (int, error) {
	n := 0
	for _, a := range m.appointments {
		if a.StatusID == id {
			n++
		}
	}
	return n, nil
}

type mockDoctors struct{ *mockStore }

func (m mockDoctors) GetByID(_ context.Context, id int64) (*identity.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, apperr.NotFound("doctor", id)
	}
	return d, nil
}

type mockPatients struct{ *mockStore }

func (m mockPatients) GetByID(_ context.Context, id int64) (*identity.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient", id)
	}
	return p, nil
}

// mockResolver links users to the seeded profiles.
type mockResolver struct{ *mockStore }

func (m mockResolver) DoctorIDByUser(_ context.Context, userID int64) (int64, error) {
	for _, d := range m.doctors {
		if d.UserID == userID {
			return d.ID, nil
		}
	}
	return 0, nil
}

func (m mockResolver) PatientIDByUser(_ context.Context, userID int64) (int64, error) {
	for _, p := range m.patients {
		if p.UserID == userID {
			return p.ID, nil
		}
	}
	return 0, nil
}

type fakeTx struct{ calls int }

func (f *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// -- Fixtures --

var (
	adminPrincipal = auth.Principal{UserID: 1, Role: auth.RoleAdmin}
	tomorrow       = time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)
)

// seedDoctor links a doctor profile to a new user id.
func (m *mockStore) seedDoctor(name string) *identity.Doctor {
	userID := m.id()
	m.names[userID] = name
	d := &identity.Doctor{ID: m.id(), UserID: userID, LicenseNumber: "LIC-" + name, SpecialtyID: 1}
	m.doctors[d.ID] = d
	return d
}

func (m *mockStore) seedPatient(name string) *identity.Patient {
	userID := m.id()
	m.names[userID] = name
	p := &identity.Patient{ID: m.id(), UserID: userID}
	m.patients[p.ID] = p
	return p
}

func (m *mockStore) seedStatus(name string) *AppointmentStatus {
	s := &AppointmentStatus{Name: name}
	mockStatusRepo{m}.Create(context.Background(), s)
	return s
}

func (m *mockStore) seedAppointment(p *identity.Patient, d *identity.Doctor, st *AppointmentStatus, at time.Time) *Appointment {
	a := &Appointment{PatientID: p.ID, DoctorID: d.ID, StatusID: st.ID, ScheduledAt: at}
	mockAppointmentRepo{m}.Create(context.Background(), a)
	return a
}

func doctorPrincipal(d *identity.Doctor) auth.Principal {
	return auth.Principal{UserID: d.UserID, Role: auth.RoleDoctor, ProfileID: d.ID}
}

func patientPrincipal(p *identity.Patient) auth.Principal {
	return auth.Principal{UserID: p.UserID, Role: auth.RolePatient, ProfileID: p.ID}
}
