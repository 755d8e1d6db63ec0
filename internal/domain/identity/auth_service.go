package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mediconnect/mediconnect/internal/platform/access"
	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
	"github.com/mediconnect/mediconnect/internal/platform/db"
)

// ErrLoginFailed never says which of email and password was wrong.
var ErrLoginFailed = apperr.Unauthenticated("invalid_credentials", "invalid email or password")

// AuthService handles login, registration and the caller's own summary.
type AuthService struct {
	users       UserRepository
	specialties SpecialtyRepository
	doctors     DoctorRepository
	patients    PatientRepository
	tx          db.TxRunner
	guard       *access.Guard
	hasher      *auth.PasswordHasher
	authn       auth.Authenticator

	fallbackOnce sync.Once
	fallback     string
}

func NewAuthService(users UserRepository, specialties SpecialtyRepository, doctors DoctorRepository,
	patients PatientRepository, tx db.TxRunner, guard *access.Guard,
	hasher *auth.PasswordHasher, authn auth.Authenticator) *AuthService {
	return &AuthService{
		users:       users,
		specialties: specialties,
		doctors:     doctors,
		patients:    patients,
		tx:          tx,
		guard:       guard,
		hasher:      hasher,
		authn:       authn,
	}
}

// Mode is the active authentication mode.
func (s *AuthService) Mode() string { return s.authn.Mode() }

// Login checks the credentials and grants a credential for the active
// authentication mode.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if !apperr.IsNotFound(err) {
			return nil, err
		}
		// Unknown emails still pay for one bcrypt comparison.
		s.hasher.Verify(req.Password, s.fallbackHash())
		return nil, ErrLoginFailed
	}
	if !s.hasher.Verify(req.Password, u.PasswordHash) {
		return nil, ErrLoginFailed
	}

	doctorID, patientID, err := s.profileIDs(ctx, u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	grant, err := s.authn.Grant(ctx, auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &LoginResponse{Grant: grant, User: summarize(u, doctorID, patientID)}, nil
}

func (s *AuthService) fallbackHash() string {
	s.fallbackOnce.Do(func() {
		s.fallback, _ = s.hasher.Hash("mediconnect-unknown-user")
	})
	return s.fallback
}

// Register is the public sign-up. It only creates Patient users.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*UserSummary, error) {
	role, err := req.role()
	if err != nil {
		return nil, apperr.BadRequest("invalid role")
	}
	if role != auth.RolePatient {
		return nil, apperr.Forbidden(string(access.ReasonWrongRole),
			"only an administrator can create doctor or admin users")
	}
	return s.createUser(ctx, req, role)
}

// RegisterByAdmin creates a user of any role.
func (s *AuthService) RegisterByAdmin(ctx context.Context, p auth.Principal, req RegisterRequest) (*UserSummary, error) {
	if err := s.guard.Precheck(p, access.Users, access.Create).Err(); err != nil {
		return nil, err
	}
	role, err := req.role()
	if err != nil {
		return nil, apperr.BadRequest("invalid role")
	}
	return s.createUser(ctx, req, role)
}

// SeedAdmin creates the first administrator from the command line, where no
// principal exists yet. The role in req is ignored.
func (s *AuthService) SeedAdmin(ctx context.Context, req RegisterRequest) (*UserSummary, error) {
	req.Role, req.RoleID = "", nil
	req.LicenseNumber, req.SpecialtyID = "", 0
	return s.createUser(ctx, req, auth.RoleAdmin)
}

// Me returns the authenticated caller's summary.
func (s *AuthService) Me(ctx context.Context, p auth.Principal) (*UserSummary, error) {
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	var doctorID, patientID int64
	switch p.Role {
	case auth.RoleDoctor:
		doctorID = p.ProfileID
	case auth.RolePatient:
		patientID = p.ProfileID
	}
	sum := summarize(u, doctorID, patientID)
	// The principal's role is authoritative for this credential.
	sum.Role = p.Role
	return sum, nil
}

func (s *AuthService) createUser(ctx context.Context, req RegisterRequest, role auth.Role) (*UserSummary, error) {
	withDoctorProfile := req.LicenseNumber != "" || req.SpecialtyID != 0
	if role == auth.RoleDoctor && withDoctorProfile && (req.LicenseNumber == "" || req.SpecialtyID == 0) {
		return nil, apperr.BadRequest("licenseNumber and specialtyId must be given together")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperr.BadRequest(err.Error())
		}
		return nil, apperr.Internal(err)
	}

	u := &User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.TrimSpace(req.Email),
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         role,
	}

	var doctorID, patientID int64
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		exists, err := s.users.EmailExists(ctx, u.Email)
		if err != nil {
			return apperr.Internal(err)
		}
		if exists {
			return apperr.Conflict(apperr.CodeDuplicate, "email is already registered")
		}
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}

		switch role {
		case auth.RolePatient:
			pt := &Patient{
				UserID:           u.ID,
				BirthDate:        req.BirthDate,
				Gender:           req.Gender,
				EmergencyContact: req.EmergencyContact,
			}
			if err := s.patients.Create(ctx, pt); err != nil {
				return err
			}
			patientID = pt.ID
		case auth.RoleDoctor:
			if !withDoctorProfile {
				return nil
			}
			if err := requireSpecialty(ctx, s.specialties, req.SpecialtyID); err != nil {
				return err
			}
			d := &Doctor{UserID: u.ID, LicenseNumber: strings.TrimSpace(req.LicenseNumber), SpecialtyID: req.SpecialtyID}
			if err := s.doctors.Create(ctx, d); err != nil {
				return err
			}
			doctorID = d.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summarize(u, doctorID, patientID), nil
}

func (s *AuthService) profileIDs(ctx context.Context, userID int64, role auth.Role) (doctorID, patientID int64, err error) {
	switch role {
	case auth.RoleDoctor:
		doctorID, err = s.doctors.IDByUser(ctx, userID)
	case auth.RolePatient:
		patientID, err = s.patients.IDByUser(ctx, userID)
	}
	if err != nil {
		return 0, 0, apperr.Internal(err)
	}
	return doctorID, patientID, nil
}

// ProfileResolver resolves linked profiles for access.Enrich.
type ProfileResolver struct {
	doctors  DoctorRepository
	patients PatientRepository
}

var _ access.ProfileResolver = (*ProfileResolver)(nil)

func NewProfileResolver(doctors DoctorRepository, patients PatientRepository) *ProfileResolver {
	return &ProfileResolver{doctors: doctors, patients: patients}
}

func (r *ProfileResolver) DoctorIDByUser(ctx context.Context, userID int64) (int64, error) {
	return r.doctors.IDByUser(ctx, userID)
}

func (r *ProfileResolver) PatientIDByUser(ctx context.Context, userID int64) (int64, error) {
	return r.patients.IDByUser(ctx, userID)
}
