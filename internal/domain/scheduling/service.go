package scheduling

import (
	"context"
	"fmt"
	"strings"

	"github.com/mediconnect/mediconnect/internal/domain/identity"
	"github.com/mediconnect/mediconnect/internal/platform/access"
	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
	"github.com/mediconnect/mediconnect/internal/platform/db"
	"github.com/mediconnect/mediconnect/internal/platform/video"
)

// DoctorLookup and PatientLookup are the parts of the identity store used
// for reference checks. identity's repositories satisfy them.
type DoctorLookup interface {
	GetByID(ctx context.Context, id int64) (*identity.Doctor, error)
}

type PatientLookup interface {
	GetByID(ctx context.Context, id int64) (*identity.Patient, error)
}

type Service struct {
	appointments AppointmentRepository
	statuses     StatusRepository
	doctors      DoctorLookup
	patients     PatientLookup
	tx           db.TxRunner
	guard        *access.Guard
	rooms        *video.Rooms
}

func NewService(appts AppointmentRepository, statuses StatusRepository, doctors DoctorLookup,
	patients PatientLookup, tx db.TxRunner, guard *access.Guard, rooms *video.Rooms) *Service {
	return &Service{
		appointments: appts,
		statuses:     statuses,
		doctors:      doctors,
		patients:     patients,
		tx:           tx,
		guard:        guard,
		rooms:        rooms,
	}
}

// -- Appointment --

// ListAppointments returns all appointments for admins. Doctors and patients
// only ever see their own, whatever filter they send.
func (s *Service) ListAppointments(ctx context.Context, p auth.Principal, f AppointmentFilter, limit, offset int) ([]*AppointmentView, int, error) {
	if err := s.guard.Precheck(p, access.Appointments, access.List).Err(); err != nil {
		return nil, 0, err
	}
	if s.guard.Scope(p.Role, access.Appointments, access.List) == access.Self {
		switch p.Role {
		case auth.RoleDoctor:
			f.DoctorID = p.ProfileID
		case auth.RolePatient:
			f.PatientID = p.ProfileID
		}
	}
	return s.appointments.List(ctx, f, limit, offset)
}

func (s *Service) GetAppointment(ctx context.Context, p auth.Principal, id int64) (*AppointmentView, error) {
	if err := s.guard.Precheck(p, access.Appointments, access.Read).Err(); err != nil {
		return nil, err
	}
	v, err := s.appointments.GetView(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(p, access.Appointments, access.Read, v.Ownership()).Err(); err != nil {
		return nil, err
	}
	return v, nil
}

// CreateAppointment books an appointment. A patient always books for
// themselves: any submitted PatientID is replaced by the caller's own.
func (s *Service) CreateAppointment(ctx context.Context, p auth.Principal, req AppointmentRequest) (*AppointmentView, error) {
	if err := s.guard.Precheck(p, access.Appointments, access.Create).Err(); err != nil {
		return nil, err
	}
	if s.guard.Scope(p.Role, access.Appointments, access.Create) == access.Self && p.IsPatient() {
		req.PatientID = p.ProfileID
	}
	if req.PatientID == 0 {
		return nil, apperr.Validation("request validation failed", map[string]string{"patientId": "is required"})
	}

	a := &Appointment{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		StatusID:    req.StatusID,
		ScheduledAt: req.ScheduledAt.UTC(),
		Reason:      req.Reason,
	}

	var view *AppointmentView
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if a.StatusID == 0 {
			st, err := s.statuses.GetByName(ctx, DefaultStatusName)
			if err != nil {
				if apperr.IsNotFound(err) {
					return apperr.BadRequest("statusId is required: no default status is configured")
				}
				return err
			}
			a.StatusID = st.ID
		}
		if err := s.checkReferences(ctx, a); err != nil {
			return err
		}
		if err := s.appointments.Create(ctx, a); err != nil {
			return err
		}
		var err error
		view, err = s.appointments.GetView(ctx, a.ID)
		return err
	})
	return view, err
}

// UpdateAppointment replaces an appointment. A doctor may only update
// appointments stored under their id and may not hand them to another
// doctor.
func (s *Service) UpdateAppointment(ctx context.Context, p auth.Principal, id int64, req AppointmentRequest) (*AppointmentView, error) {
	if err := s.guard.Precheck(p, access.Appointments, access.Update).Err(); err != nil {
		return nil, err
	}
	if req.ID != 0 && req.ID != id {
		return nil, apperr.BadRequest("id in body does not match the path")
	}

	var view *AppointmentView
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guard.Check(p, access.Appointments, access.Update, current.Ownership()).Err(); err != nil {
			return err
		}
		if p.IsDoctor() && req.DoctorID != p.ProfileID {
			return apperr.Forbidden(string(access.ReasonNotOwner),
				"an appointment cannot be reassigned to another doctor")
		}

		a := &Appointment{
			ID:          id,
			PatientID:   req.PatientID,
			DoctorID:    req.DoctorID,
			StatusID:    req.StatusID,
			ScheduledAt: req.ScheduledAt.UTC(),
			Reason:      req.Reason,
		}
		if a.PatientID == 0 {
			a.PatientID = current.PatientID
		}
		if a.StatusID == 0 {
			a.StatusID = current.StatusID
		}
		if err := s.checkReferences(ctx, a); err != nil {
			return err
		}
		if err := s.appointments.Update(ctx, a); err != nil {
			return err
		}
		view, err = s.appointments.GetView(ctx, id)
		return err
	})
	return view, err
}

// DeleteAppointment fails with in_use while clinical history references it.
func (s *Service) DeleteAppointment(ctx context.Context, p auth.Principal, id int64) error {
	if err := s.guard.Precheck(p, access.Appointments, access.Delete).Err(); err != nil {
		return err
	}
	return s.appointments.Delete(ctx, id)
}

// checkReferences confirms patient, doctor and status exist before a write.
func (s *Service) checkReferences(ctx context.Context, a *Appointment) error {
	if _, err := s.patients.GetByID(ctx, a.PatientID); err != nil {
		return asReference(err, "patient", a.PatientID)
	}
	if _, err := s.doctors.GetByID(ctx, a.DoctorID); err != nil {
		return asReference(err, "doctor", a.DoctorID)
	}
	if _, err := s.statuses.GetByID(ctx, a.StatusID); err != nil {
		return asReference(err, "appointment status", a.StatusID)
	}
	return nil
}

func asReference(err error, resource string, id int64) error {
	if apperr.IsNotFound(err) {
		return apperr.ReferenceNotFound(resource, id)
	}
	return err
}

// -- Appointment Status --

func (s *Service) ListStatuses(ctx context.Context, p auth.Principal, limit, offset int) ([]*AppointmentStatus, int, error) {
	if err := s.guard.Precheck(p, access.AppointmentStatuses, access.List).Err(); err != nil {
		return nil, 0, err
	}
	return s.statuses.List(ctx, limit, offset)
}

func (s *Service) GetStatus(ctx context.Context, p auth.Principal, id int64) (*AppointmentStatus, error) {
	if err := s.guard.Precheck(p, access.AppointmentStatuses, access.Read).Err(); err != nil {
		return nil, err
	}
	return s.statuses.GetByID(ctx, id)
}

func (s *Service) CreateStatus(ctx context.Context, p auth.Principal, req StatusRequest) (*AppointmentStatus, error) {
	if err := s.guard.Precheck(p, access.AppointmentStatuses, access.Create).Err(); err != nil {
		return nil, err
	}
	st := &AppointmentStatus{Name: strings.TrimSpace(req.Name)}
	if st.Name == "" {
		return nil, apperr.BadRequest("name is required")
	}
	if err := s.statuses.Create(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) UpdateStatus(ctx context.Context, p auth.Principal, id int64, req StatusRequest) (*AppointmentStatus, error) {
	if err := s.guard.Precheck(p, access.AppointmentStatuses, access.Update).Err(); err != nil {
		return nil, err
	}
	st := &AppointmentStatus{ID: id, Name: strings.TrimSpace(req.Name)}
	if st.Name == "" {
		return nil, apperr.BadRequest("name is required")
	}
	if err := s.statuses.Update(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// DeleteStatus refuses to remove a status that appointments still use.
func (s *Service) DeleteStatus(ctx context.Context, p auth.Principal, id int64) error {
	if err := s.guard.Precheck(p, access.AppointmentStatuses, access.Delete).Err(); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.statuses.GetByID(ctx, id); err != nil {
			return err
		}
		n, err := s.statuses.CountAppointments(ctx, id)
		if err != nil {
			return fmt.Errorf("counting appointments with status %d: %w", id, err)
		}
		if n > 0 {
			return apperr.Conflict(apperr.CodeInUse,
				fmt.Sprintf("appointment status %d is used by %d appointment(s)", id, n))
		}
		return s.statuses.Delete(ctx, id)
	})
}

// -- Video --

// JoinVideo returns the caller's link to the appointment's conference room.
// Only admins and the appointment's own doctor and patient may join.
func (s *Service) JoinVideo(ctx context.Context, p auth.Principal, appointmentID int64) (*VideoJoin, error) {
	if err := s.guard.Precheck(p, access.VideoRooms, access.Join).Err(); err != nil {
		return nil, err
	}
	v, err := s.appointments.GetView(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(p, access.VideoRooms, access.Join, v.Ownership()).Err(); err != nil {
		return nil, err
	}

	var name string
	switch p.Role {
	case auth.RoleDoctor:
		name = v.DoctorName
	case auth.RolePatient:
		name = v.PatientName
	default:
		name = "Admin"
	}

	room, err := s.rooms.Join(v.ID, v.ScheduledAt, video.Participant{DisplayName: name})
	if err != nil {
		return nil, err
	}
	return newVideoJoin(room, p.Role), nil
}
