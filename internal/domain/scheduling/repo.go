package scheduling

import (
	"context"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	GetView(ctx context.Context, id int64) (*AppointmentView, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*AppointmentView, int, error)
}

type StatusRepository interface {
	Create(ctx context.Context, s *AppointmentStatus) error
	GetByID(ctx context.Context, id int64) (*AppointmentStatus, error)
	// GetByName matches case-insensitively.
	GetByName(ctx context.Context, name string) (*AppointmentStatus, error)
	Update(ctx context.Context, s *AppointmentStatus) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*AppointmentStatus, int, error)
	CountAppointments(ctx context.Context, id int64) (int, error)
}
