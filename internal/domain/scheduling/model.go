package scheduling

import (
	"time"

	"github.com/mediconnect/mediconnect/internal/platform/access"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
	"github.com/mediconnect/mediconnect/internal/platform/video"
)

// DefaultStatusName is assigned to new appointments that name no status.
const DefaultStatusName = "Scheduled"

// AppointmentStatus maps to the appointment_statuses table.
type AppointmentStatus struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Appointment maps to the appointments table.
type Appointment struct {
	ID          int64     `db:"id" json:"id"`
	PatientID   int64     `db:"patient_id" json:"patientId"`
	DoctorID    int64     `db:"doctor_id" json:"doctorId"`
	StatusID    int64     `db:"status_id" json:"statusId"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduledAt"`
	Reason      *string   `db:"reason" json:"reason,omitempty"`
}

// Ownership is the (patient, doctor) pair the guard checks against.
func (a *Appointment) Ownership() access.Ownership {
	return access.Ownership{DoctorID: a.DoctorID, PatientID: a.PatientID}
}

// AppointmentView is an appointment joined with display names.
type AppointmentView struct {
	Appointment
	PatientName string `json:"patientName"`
	DoctorName  string `json:"doctorName"`
	Specialty   string `json:"specialty"`
	Status      string `json:"status"`
}

// AppointmentFilter narrows a list. Zero fields do not filter.
type AppointmentFilter struct {
	DoctorID  int64
	PatientID int64
	StatusID  int64
}

// -- Requests --

// AppointmentRequest creates or replaces an appointment. For patients the
// PatientID is always replaced by their own. ID is optional on update and
// must match the path when present.
type AppointmentRequest struct {
	ID          int64     `json:"id"`
	PatientID   int64     `json:"patientId" validate:"omitempty,gt=0"`
	DoctorID    int64     `json:"doctorId" validate:"required,gt=0"`
	StatusID    int64     `json:"statusId" validate:"omitempty,gt=0"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
	Reason      *string   `json:"reason" validate:"omitempty,max=500"`
}

type StatusRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// VideoJoin is returned when a participant joins an appointment's room.
type VideoJoin struct {
	Provider    string    `json:"provider"`
	RoomName    string    `json:"roomName"`
	JoinURL     string    `json:"joinUrl"`
	Role        auth.Role `json:"role"`
	DisplayName string    `json:"displayName"`
}

func newVideoJoin(r *video.Room, role auth.Role) *VideoJoin {
	return &VideoJoin{
		Provider:    r.Provider,
		RoomName:    r.RoomName,
		JoinURL:     r.JoinURL,
		Role:        role,
		DisplayName: r.DisplayName,
	}
}
