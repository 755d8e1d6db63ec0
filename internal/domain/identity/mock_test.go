package identity

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
)

// -- Mock Repositories --

// mockStore backs every mock repository so joins and reference checks see
// the same rows.
type mockStore struct {
	users       map[int64]*User
	specialties map[int64]*Specialty
	doctors     map[int64]*Doctor
	patients    map[int64]*Patient
	nextID      int64
}

func newMockStore() *mockStore {
	return &mockStore{
		users:       make(map[int64]*User),
		specialties: make(map[int64]*Specialty),
		doctors:     make(map[int64]*Doctor),
		patients:    make(map[int64]*Patient),
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

type mockUserRepo struct{ *mockStore }

func (m mockUserRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict(apperr.CodeDuplicate, "user already exists")
		}
	}
	u.ID = m.id()
	u.RegisteredAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m mockUserRepo) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user", id)
	}
	return u, nil
}

func (m mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, apperr.CodeNotFound, "user not found")
}

func (m mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m mockUserRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var all []*User
	for _, u := range m.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, limit, offset), len(all), nil
}

type mockSpecialtyRepo struct{ *mockStore }

func (m mockSpecialtyRepo) Create(_ context.Context, s *Specialty) error {
	s.ID = m.id()
	m.specialties[s.ID] = s
	return nil
}

func (m mockSpecialtyRepo) GetByID(_ context.Context, id int64) (*Specialty, error) {
	s, ok := m.specialties[id]
	if !ok {
		return nil, apperr.NotFound("specialty", id)
	}
	return s, nil
}

func (m mockSpecialtyRepo) Update(_ context.Context, s *Specialty) error {
	if _, ok := m.specialties[s.ID]; !ok {
		return apperr.NotFound("specialty", s.ID)
	}
	m.specialties[s.ID] = s
	return nil
}

func (m mockSpecialtyRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.specialties[id]; !ok {
		return apperr.NotFound("specialty", id)
	}
	delete(m.specialties, id)
	return nil
}

func (m mockSpecialtyRepo) List(_ context.Context, limit, offset int) ([]*Specialty, int, error) {
	var all []*Specialty
	for _, s := range m.specialties {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, limit, offset), len(all), nil
}

func (m mockSpecialtyRepo) CountDoctors(_ context.Context, id int64) (int, error) {
	n := 0
	for _, d := range m.doctors {
		if d.SpecialtyID == id {
			n++
		}
	}
	return n, nil
}

type mockDoctorRepo struct{ *mockStore }

func (m mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	for _, existing := range m.doctors {
		if existing.UserID == d.UserID {
			return apperr.Conflict(apperr.CodeDuplicate, "doctor already exists")
		}
	}
	d.ID = m.id()
	m.doctors[d.ID] = d
	return nil
}

func (m mockDoctorRepo) GetByID(_ context.Context, id int64) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, apperr.NotFound("doctor", id)
	}
	cp := *d
	return &cp, nil
}

func (m mockDoctorRepo) view(d *Doctor) *DoctorView {
	v := &DoctorView{Doctor: *d}
	if u, ok := m.users[d.UserID]; ok {
		v.FullName = u.FullName()
		v.Email = u.Email
	}
	if s, ok := m.specialties[d.SpecialtyID]; ok {
		v.Specialty = s.Name
	}
	return v
}

func (m mockDoctorRepo) GetView(_ context.Context, id int64) (*DoctorView, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, apperr.NotFound("doctor", id)
	}
	return m.view(d), nil
}

func (m mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	if _, ok := m.doctors[d.ID]; !ok {
		return apperr.NotFound("doctor", d.ID)
	}
	m.doctors[d.ID] = d
	return nil
}

func (m mockDoctorRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.doctors[id]; !ok {
		return apperr.NotFound("doctor", id)
	}
	delete(m.doctors, id)
	return nil
}

func (m mockDoctorRepo) List(_ context.Context, limit, offset int) ([]*DoctorView, int, error) {
	var all []*DoctorView
	for _, d := range m.doctors {
		all = append(all, m.view(d))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, limit, offset), len(all), nil
}

func (m mockDoctorRepo) IDByUser(_ context.Context, userID int64) (int64, error) {
	for _, d := range m.doctors {
		if d.UserID == userID {
			return d.ID, nil
		}
	}
	return 0, nil
}

type mockPatientRepo struct{ *mockStore }

func (m mockPatientRepo) Create(_ context.Context, p *Patient) error {
	for _, existing := range m.patients {
		if existing.UserID == p.UserID {
			return apperr.Conflict(apperr.CodeDuplicate, "patient already exists")
		}
	}
	p.ID = m.id()
	m.patients[p.ID] = p
	return nil
}

func (m mockPatientRepo) GetByID(_ context.Context, id int64) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient", id)
	}
	return p, nil
}

func (m mockPatientRepo) view(p *Patient) *PatientView {
	v := &PatientView{Patient: *p}
	if u, ok := m.users[p.UserID]; ok {
		v.FullName = u.FullName()
		v.Email = u.Email
	}
	return v
}

func (m mockPatientRepo) GetView(_ context.Context, id int64) (*PatientView, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient", id)
	}
	return m.view(p), nil
}

func (m mockPatientRepo) List(_ context.Context, limit, offset int) ([]*PatientView, int, error) {
	var all []*PatientView
	for _, p := range m.patients {
		all = append(all, m.view(p))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, limit, offset), len(all), nil
}

func (m mockPatientRepo) IDByUser(_ context.Context, userID int64) (int64, error) {
	for _, p := range m.patients {
		if p.UserID == userID {
			return p.ID, nil
		}
	}
	return 0, nil
}

// fakeTx runs fn directly. It counts calls so tests can assert that multi-row
// writes went through a transaction.
type fakeTx struct{ calls int }

func (f *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// -- Fixtures --

var (
	adminPrincipal = auth.Principal{UserID: 1, Role: auth.RoleAdmin}
)

// seedUser inserts a user with a cheap bcrypt hash of password.
func (m *mockStore) seedUser(first, last, email, password string, role auth.Role) *User {
	hash, err := auth.NewPasswordHasher(4).Hash(password)
	if err != nil {
		panic(err)
	}
	u := &User{FirstName: first, LastName: last, Email: email, PasswordHash: hash, Role: role}
	mockUserRepo{m}.Create(context.Background(), u)
	return u
}

func (m *mockStore) seedSpecialty(name string) *Specialty {
	s := &Specialty{Name: name}
	mockSpecialtyRepo{m}.Create(context.Background(), s)
	return s
}

func (m *mockStore) seedDoctor(u *User, specialtyID int64) *Doctor {
	d := &Doctor{UserID: u.ID, LicenseNumber: "LIC-" + u.LastName, SpecialtyID: specialtyID}
	mockDoctorRepo{m}.Create(context.Background(), d)
	return d
}

func (m *mockStore) seedPatient(u *User) *Patient {
	p := &Patient{UserID: u.ID}
	mockPatientRepo{m}.Create(context.Background(), p)
	return p
}
