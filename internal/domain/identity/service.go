package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/mediconnect/mediconnect/internal/platform/access"
	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
	"github.com/mediconnect/mediconnect/internal/platform/db"
)

// Service manages users, specialties, doctors and patients. Every method
// takes the caller's principal and consults the guard before touching the
// store.
type Service struct {
	users       UserRepository
	specialties SpecialtyRepository
	doctors     DoctorRepository
	patients    PatientRepository
	tx          db.TxRunner
	guard       *access.Guard
}

func NewService(users UserRepository, specialties SpecialtyRepository, doctors DoctorRepository,
	patients PatientRepository, tx db.TxRunner, guard *access.Guard) *Service {
	return &Service{
		users:       users,
		specialties: specialties,
		doctors:     doctors,
		patients:    patients,
		tx:          tx,
		guard:       guard,
	}
}

// -- Users --

func (s *Service) ListUsers(ctx context.Context, p auth.Principal, limit, offset int) ([]*User, int, error) {
	if err := s.guard.Precheck(p, access.Users, access.List).Err(); err != nil {
		return nil, 0, err
	}
	return s.users.List(ctx, limit, offset)
}

func (s *Service) GetUser(ctx context.Context, p auth.Principal, id int64) (*User, error) {
	if err := s.guard.Precheck(p, access.Users, access.Read).Err(); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// -- Specialty --

func (s *Service) ListSpecialties(ctx context.Context, p auth.Principal, limit, offset int) ([]*Specialty, int, error) {
	if err := s.guard.Precheck(p, access.Specialties, access.List).Err(); err != nil {
		return nil, 0, err
	}
	return s.specialties.List(ctx, limit, offset)
}

func (s *Service) GetSpecialty(ctx context.Context, p auth.Principal, id int64) (*Specialty, error) {
	if err := s.guard.Precheck(p, access.Specialties, access.Read).Err(); err != nil {
		return nil, err
	}
	return s.specialties.GetByID(ctx, id)
}

func (s *Service) CreateSpecialty(ctx context.Context, p auth.Principal, req SpecialtyRequest) (*Specialty, error) {
	if err := s.guard.Precheck(p, access.Specialties, access.Create).Err(); err != nil {
		return nil, err
	}
	sp := &Specialty{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if sp.Name == "" {
		return nil, apperr.BadRequest("name is required")
	}
	if err := s.specialties.Create(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *Service) UpdateSpecialty(ctx context.Context, p auth.Principal, id int64, req SpecialtyRequest) (*Specialty, error) {
	if err := s.guard.Precheck(p, access.Specialties, access.Update).Err(); err != nil {
		return nil, err
	}
	sp := &Specialty{ID: id, Name: strings.TrimSpace(req.Name), Description: req.Description}
	if sp.Name == "" {
		return nil, apperr.BadRequest("name is required")
	}
	if err := s.specialties.Update(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

// DeleteSpecialty refuses to remove a specialty that doctors still hold.
func (s *Service) DeleteSpecialty(ctx context.Context, p auth.Principal, id int64) error {
	if err := s.guard.Precheck(p, access.Specialties, access.Delete).Err(); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.specialties.GetByID(ctx, id); err != nil {
			return err
		}
		n, err := s.specialties.CountDoctors(ctx, id)
		if err != nil {
			return fmt.Errorf("counting doctors of specialty %d: %w", id, err)
		}
		if n > 0 {
			return apperr.Conflict(apperr.CodeInUse,
				fmt.Sprintf("specialty %d is assigned to %d doctor(s)", id, n))
		}
		return s.specialties.Delete(ctx, id)
	})
}

// -- Doctor --

func (s *Service) ListDoctors(ctx context.Context, p auth.Principal, limit, offset int) ([]*DoctorView, int, error) {
	if err := s.guard.Precheck(p, access.Doctors, access.List).Err(); err != nil {
		return nil, 0, err
	}
	return s.doctors.List(ctx, limit, offset)
}

func (s *Service) GetDoctor(ctx context.Context, p auth.Principal, id int64) (*DoctorView, error) {
	if err := s.guard.Precheck(p, access.Doctors, access.Read).Err(); err != nil {
		return nil, err
	}
	v, err := s.doctors.GetView(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(p, access.Doctors, access.Read, access.Ownership{DoctorID: v.ID}).Err(); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) CreateDoctor(ctx context.Context, p auth.Principal, req DoctorRequest) (*DoctorView, error) {
	if err := s.guard.Precheck(p, access.Doctors, access.Create).Err(); err != nil {
		return nil, err
	}
	d := &Doctor{
		UserID:        req.UserID,
		LicenseNumber: strings.TrimSpace(req.LicenseNumber),
		SpecialtyID:   req.SpecialtyID,
	}
	var view *DoctorView
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := requireUserWithRole(ctx, s.users, d.UserID, auth.RoleDoctor); err != nil {
			return err
		}
		if err := requireSpecialty(ctx, s.specialties, d.SpecialtyID); err != nil {
			return err
		}
		if err := s.doctors.Create(ctx, d); err != nil {
			return err
		}
		var err error
		view, err = s.doctors.GetView(ctx, d.ID)
		return err
	})
	return view, err
}

// UpdateDoctor changes license and specialty. Doctors may only update their
// own profile.
func (s *Service) UpdateDoctor(ctx context.Context, p auth.Principal, id int64, req DoctorUpdateRequest) (*DoctorView, error) {
	if err := s.guard.Precheck(p, access.Doctors, access.Update).Err(); err != nil {
		return nil, err
	}
	var view *DoctorView
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.doctors.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Check(p, access.Doctors, access.Update, access.Ownership{DoctorID: d.ID}).Err(); err != nil {
			return err
		}
		if err := requireSpecialty(ctx, s.specialties, req.SpecialtyID); err != nil {
			return err
		}
		d.LicenseNumber = strings.TrimSpace(req.LicenseNumber)
		d.SpecialtyID = req.SpecialtyID
		if err := s.doctors.Update(ctx, d); err != nil {
			return err
		}
		view, err = s.doctors.GetView(ctx, id)
		return err
	})
	return view, err
}

// DeleteDoctor fails with in_use while appointments reference the doctor.
func (s *Service) DeleteDoctor(ctx context.Context, p auth.Principal, id int64) error {
	if err := s.guard.Precheck(p, access.Doctors, access.Delete).Err(); err != nil {
		return err
	}
	return s.doctors.Delete(ctx, id)
}

// -- Patient --

func (s *Service) ListPatients(ctx context.Context, p auth.Principal, limit, offset int) ([]*PatientView, int, error) {
	if err := s.guard.Precheck(p, access.Patients, access.List).Err(); err != nil {
		return nil, 0, err
	}
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) GetPatient(ctx context.Context, p auth.Principal, id int64) (*PatientView, error) {
	if err := s.guard.Precheck(p, access.Patients, access.Read).Err(); err != nil {
		return nil, err
	}
	v, err := s.patients.GetView(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(p, access.Patients, access.Read, access.Ownership{PatientID: v.ID}).Err(); err != nil {
		return nil, err
	}
	return v, nil
}

// CreatePatient links a patient profile to an existing Patient user.
func (s *Service) CreatePatient(ctx context.Context, p auth.Principal, req PatientRequest) (*PatientView, error) {
	if err := s.guard.Precheck(p, access.Patients, access.Create).Err(); err != nil {
		return nil, err
	}
	pt := &Patient{
		UserID:           req.UserID,
		BirthDate:        req.BirthDate,
		Gender:           req.Gender,
		EmergencyContact: req.EmergencyContact,
	}
	var view *PatientView
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := requireUserWithRole(ctx, s.users, pt.UserID, auth.RolePatient); err != nil {
			return err
		}
		if err := s.patients.Create(ctx, pt); err != nil {
			return err
		}
		var err error
		view, err = s.patients.GetView(ctx, pt.ID)
		return err
	})
	return view, err
}

// -- Reference checks --

func requireSpecialty(ctx context.Context, repo SpecialtyRepository, id int64) error {
	if _, err := repo.GetByID(ctx, id); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.ReferenceNotFound("specialty", id)
		}
		return err
	}
	return nil
}

func requireUserWithRole(ctx context.Context, repo UserRepository, id int64, role auth.Role) error {
	u, err := repo.GetByID(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.ReferenceNotFound("user", id)
		}
		return err
	}
	if u.Role != role {
		return apperr.BadRequest(fmt.Sprintf("user %d does not have the %s role", id, role))
	}
	return nil
}
