package clinical

import (
	"time"

	"github.com/mediconnect/mediconnect/internal/platform/access"
)

// MedicalRecord maps to the medical_records table. A patient has at most one.
type MedicalRecord struct {
	ID                    int64   `db:"id" json:"id"`
	PatientID             int64   `db:"patient_id" json:"patientId"`
	MedicalHistory        *string `db:"medical_history" json:"medicalHistory,omitempty"`
	Allergies             *string `db:"allergies" json:"allergies,omitempty"`
	ChronicDiseases       *string `db:"chronic_diseases" json:"chronicDiseases,omitempty"`
	ControlledMedications *string `db:"controlled_medications" json:"controlledMedications,omitempty"`
	Notes                 *string `db:"notes" json:"notes,omitempty"`
}

func (m *MedicalRecord) Ownership() access.Ownership {
	return access.Ownership{PatientID: m.PatientID}
}

// ClinicalHistory maps to the clinical_history table: one entry per
// consultation, tied to a medical record and the appointment it came from.
type ClinicalHistory struct {
	ID              int64     `db:"id" json:"id"`
	MedicalRecordID int64     `db:"medical_record_id" json:"medicalRecordId"`
	AppointmentID   int64     `db:"appointment_id" json:"appointmentId"`
	RegisteredAt    time.Time `db:"registered_at" json:"registeredAt"`
	Diagnosis       *string   `db:"diagnosis" json:"diagnosis,omitempty"`
	Treatment       *string   `db:"treatment" json:"treatment,omitempty"`
	Reason          *string   `db:"reason" json:"reason,omitempty"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
}

// -- Requests --

// MedicalRecordRequest creates or replaces a record. ID is optional on
// update and must match the path when present.
type MedicalRecordRequest struct {
	ID                    int64   `json:"id"`
	PatientID             int64   `json:"patientId" validate:"required,gt=0"`
	MedicalHistory        *string `json:"medicalHistory"`
	Allergies             *string `json:"allergies" validate:"omitempty,max=2000"`
	ChronicDiseases       *string `json:"chronicDiseases" validate:"omitempty,max=2000"`
	ControlledMedications *string `json:"controlledMedications" validate:"omitempty,max=2000"`
	Notes                 *string `json:"notes"`
}

func (r MedicalRecordRequest) record(id int64) *MedicalRecord {
	return &MedicalRecord{
		ID:                    id,
		PatientID:             r.PatientID,
		MedicalHistory:        r.MedicalHistory,
		Allergies:             r.Allergies,
		ChronicDiseases:       r.ChronicDiseases,
		ControlledMedications: r.ControlledMedications,
		Notes:                 r.Notes,
	}
}

// ClinicalHistoryRequest creates or replaces an entry. RegisteredAt is set
// by the server and cannot be supplied.
type ClinicalHistoryRequest struct {
	ID              int64   `json:"id"`
	MedicalRecordID int64   `json:"medicalRecordId" validate:"required,gt=0"`
	AppointmentID   int64   `json:"appointmentId" validate:"required,gt=0"`
	Diagnosis       *string `json:"diagnosis"`
	Treatment       *string `json:"treatment"`
	Reason          *string `json:"reason" validate:"omitempty,max=500"`
	Notes           *string `json:"notes"`
}

func (r ClinicalHistoryRequest) entry(id int64) *ClinicalHistory {
	return &ClinicalHistory{
		ID:              id,
		MedicalRecordID: r.MedicalRecordID,
		AppointmentID:   r.AppointmentID,
		Diagnosis:       r.Diagnosis,
		Treatment:       r.Treatment,
		Reason:          r.Reason,
		Notes:           r.Notes,
	}
}
