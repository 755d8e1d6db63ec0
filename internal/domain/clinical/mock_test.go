package clinical

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mediconnect/mediconnect/internal/domain/identity"
	"github.com/mediconnect/mediconnect/internal/domain/scheduling"
	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
)

// -- Mock Repositories --

type mockStore struct {
	records      map[int64]*MedicalRecord
	history      map[int64]*ClinicalHistory
	patients     map[int64]*identity.Patient
	appointments map[int64]*scheduling.Appointment
	nextID       int64
}

func newMockStore() *mockStore {
	return &mockStore{
		records:      make(map[int64]*MedicalRecord),
		history:      make(map[int64]*ClinicalHistory),
		patients:     make(map[int64]*identity.Patient),
		appointments: make(map[int64]*scheduling.Appointment),
	}
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

type mockRecordRepo struct{ *mockStore }

func (m mockRecordRepo) Create(_ context.Context, r *MedicalRecord) error {
	r.ID = m.id()
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m mockRecordRepo) GetByID(_ context.Context, id int64) (*MedicalRecord, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("medical record", id)
	}
	cp := *r
	return &cp, nil
}

func (m mockRecordRepo) GetByPatient(_ context.Context, patientID int64) (*MedicalRecord, error) {
	for _, r := range m.records {
		if r.PatientID == patientID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, apperr.CodeNotFound,
		fmt.Sprintf("no medical record for patient %d", patientID))
}

func (m mockRecordRepo) Update(_ context.Context, r *MedicalRecord) error {
	if _, ok := m.records[r.ID]; !ok {
		return apperr.NotFound("medical record", r.ID)
	}
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

type mockHistoryRepo struct{ *mockStore }

func (m mockHistoryRepo) Create(_ context.Context, h *ClinicalHistory) error {
	h.ID = m.id()
	cp := *h
	m.history[h.ID] = &cp
	return nil
}

func (m mockHistoryRepo) GetByID(_ context.Context, id int64) (*ClinicalHistory, error) {
	h, ok := m.history[id]
	if !ok {
		return nil, apperr.NotFound("clinical history", id)
	}
	cp := *h
	return &cp, nil
}

func (m mockHistoryRepo) Update(_ context.Context, h *ClinicalHistory) error {
	current, ok := m.history[h.ID]
	if !ok {
		return apperr.NotFound("clinical history", h.ID)
	}
	cp := *h
	cp.RegisteredAt = current.RegisteredAt
	m.history[h.ID] = &cp
	return nil
}

func (m mockHistoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.history[id]; !ok {
		return apperr.NotFound("clinical history", id)
	}
	delete(m.history, id)
	return nil
}

func (m mockHistoryRepo) ListByRecord(_ context.Context, recordID int64, limit, offset int) ([]*ClinicalHistory, int, error) {
	var all []*ClinicalHistory
	for _, h := range m.history {
		if h.MedicalRecordID == recordID {
			all = append(all, h)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

type mockPatients struct{ *mockStore }

func (m mockPatients) GetByID(_ context.Context, id int64) (*identity.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient", id)
	}
	return p, nil
}

type mockAppointments struct{ *mockStore }

func (m mockAppointments) GetByID(_ context.Context, id int64) (*scheduling.Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, apperr.NotFound("appointment", id)
	}
	return a, nil
}

type mockResolver struct{ *mockStore }

// DoctorIDByUser treats every doctor user as linked to profile 100+userID.
func (m mockResolver) DoctorIDByUser(_ context.Context, userID int64) (int64, error) {
	return 100 + userID, nil
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
	adminPrincipal  = auth.Principal{UserID: 1, Role: auth.RoleAdmin}
	doctorPrincipal = auth.Principal{UserID: 2, Role: auth.RoleDoctor, ProfileID: 102}
	fixedNow        = time.Date(2030, 3, 4, 9, 30, 0, 0, time.UTC)
)

func (m *mockStore) seedPatient() *identity.Patient {
	p := &identity.Patient{ID: m.id(), UserID: m.id()}
	m.patients[p.ID] = p
	return p
}

func (m *mockStore) seedRecord(p *identity.Patient) *MedicalRecord {
	allergies := "penicillin"
	r := &MedicalRecord{PatientID: p.ID, Allergies: &allergies}
	mockRecordRepo{m}.Create(context.Background(), r)
	return r
}

func (m *mockStore) seedAppointment(p *identity.Patient) *scheduling.Appointment {
	a := &scheduling.Appointment{ID: m.id(), PatientID: p.ID, DoctorID: 102, StatusID: 1,
		ScheduledAt: fixedNow.Add(-time.Hour)}
	m.appointments[a.ID] = a
	return a
}

func (m *mockStore) seedHistory(r *MedicalRecord, a *scheduling.Appointment) *ClinicalHistory {
	diagnosis := "hypertension"
	h := &ClinicalHistory{MedicalRecordID: r.ID, AppointmentID: a.ID, RegisteredAt: fixedNow, Diagnosis: &diagnosis}
	mockHistoryRepo{m}.Create(context.Background(), h)
	return h
}

func patientPrincipal(p *identity.Patient) auth.Principal {
	return auth.Principal{UserID: p.UserID, Role: auth.RolePatient, ProfileID: p.ID}
}
