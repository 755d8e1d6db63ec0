package identity

import (
	"context"
)

// Repositories return *apperr.Error NotFound for missing rows and classify
// constraint violations, so services can pass errors through.

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
}

type SpecialtyRepository interface {
	Create(ctx context.Context, s *Specialty) error
	GetByID(ctx context.Context, id int64) (*Specialty, error)
	Update(ctx context.Context, s *Specialty) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*Specialty, int, error)
	CountDoctors(ctx context.Context, id int64) (int, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id int64) (*Doctor, error)
	GetView(ctx context.Context, id int64) (*DoctorView, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*DoctorView, int, error)
	// IDByUser returns 0 when the user has no doctor profile.
	IDByUser(ctx context.Context, userID int64) (int64, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	GetView(ctx context.Context, id int64) (*PatientView, error)
	List(ctx context.Context, limit, offset int) ([]*PatientView, int, error)
	// IDByUser returns 0 when the user has no patient profile.
	IDByUser(ctx context.Context, userID int64) (int64, error)
}
