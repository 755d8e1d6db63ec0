package identity

import (
	"strings"
	"time"

	"github.com/mediconnect/mediconnect/internal/platform/auth"
)

// User maps to the users table. The password hash never leaves the service.
type User struct {
	ID           int64     `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	Email        string    `db:"email" json:"email"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         auth.Role `db:"role_id" json:"role"`
	RegisteredAt time.Time `db:"registered_at" json:"registeredAt"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserSummary is returned by login and /auth/me. Profile ids are set only
// when the user has a linked profile.
type UserSummary struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	DoctorID  *int64    `json:"doctorId,omitempty"`
	PatientID *int64    `json:"patientId,omitempty"`
}

func summarize(u *User, doctorID, patientID int64) *UserSummary {
	s := &UserSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
	if doctorID > 0 {
		s.DoctorID = &doctorID
	}
	if patientID > 0 {
		s.PatientID = &patientID
	}
	return s
}

// Specialty maps to the specialties table.
type Specialty struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
}

// Doctor maps to the doctors table.
type Doctor struct {
	ID            int64  `db:"id" json:"id"`
	UserID        int64  `db:"user_id" json:"userId"`
	LicenseNumber string `db:"license_number" json:"licenseNumber"`
	SpecialtyID   int64  `db:"specialty_id" json:"specialtyId"`
}

// DoctorView is a doctor joined with its user and specialty names.
type DoctorView struct {
	Doctor
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Specialty string `json:"specialty"`
}

// Patient maps to the patients table.
type Patient struct {
	ID               int64      `db:"id" json:"id"`
	UserID           int64      `db:"user_id" json:"userId"`
	BirthDate        *time.Time `db:"birth_date" json:"birthDate,omitempty"`
	Gender           *string    `db:"gender" json:"gender,omitempty"`
	EmergencyContact *string    `db:"emergency_contact" json:"emergencyContact,omitempty"`
}

// PatientView is a patient joined with its user.
type PatientView struct {
	Patient
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// -- Requests --

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the credential grant and who it was issued to.
type LoginResponse struct {
	*auth.Grant
	User *UserSummary `json:"user"`
}

// RegisterRequest creates a user. Role may be given by name or by id; the
// public endpoint only accepts Patient. Patient users also get their profile
// in the same transaction, and doctors get one when license and specialty
// are supplied.
type RegisterRequest struct {
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Email     string  `json:"email" validate:"required,email,max=150"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	Role      string  `json:"role"`
	RoleID    *int64  `json:"roleId"`

	BirthDate        *time.Time `json:"birthDate"`
	Gender           *string    `json:"gender" validate:"omitempty,max=20"`
	EmergencyContact *string    `json:"emergencyContact" validate:"omitempty,max=255"`

	LicenseNumber string `json:"licenseNumber" validate:"omitempty,max=50"`
	SpecialtyID   int64  `json:"specialtyId" validate:"omitempty,gt=0"`
}

// role resolves the requested role. Neither field set means Patient.
func (r *RegisterRequest) role() (auth.Role, error) {
	if r.RoleID != nil {
		return auth.RoleFromID(*r.RoleID)
	}
	if strings.TrimSpace(r.Role) == "" {
		return auth.RolePatient, nil
	}
	return auth.ParseRole(r.Role)
}

type SpecialtyRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description"`
}

type DoctorRequest struct {
	UserID        int64  `json:"userId" validate:"required,gt=0"`
	LicenseNumber string `json:"licenseNumber" validate:"required,max=50"`
	SpecialtyID   int64  `json:"specialtyId" validate:"required,gt=0"`
}

// DoctorUpdateRequest changes a doctor profile. The linked user is fixed.
type DoctorUpdateRequest struct {
	LicenseNumber string `json:"licenseNumber" validate:"required,max=50"`
	SpecialtyID   int64  `json:"specialtyId" validate:"required,gt=0"`
}

type PatientRequest struct {
	UserID           int64      `json:"userId" validate:"required,gt=0"`
	BirthDate        *time.Time `json:"birthDate"`
	Gender           *string    `json:"gender" validate:"omitempty,max=20"`
	EmergencyContact *string    `json:"emergencyContact" validate:"omitempty,max=255"`
}
