package clinical

import (
	"context"
	"time"

	"github.com/mediconnect/mediconnect/internal/domain/identity"
	"github.com/mediconnect/mediconnect/internal/domain/scheduling"
	"github.com/mediconnect/mediconnect/internal/platform/access"
	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
	"github.com/mediconnect/mediconnect/internal/platform/db"
)

type PatientLookup interface {
	GetByID(ctx context.Context, id int64) (*identity.Patient, error)
}

type AppointmentLookup interface {
	GetByID(ctx context.Context, id int64) (*scheduling.Appointment, error)
}

type Service struct {
	records      MedicalRecordRepository
	history      ClinicalHistoryRepository
	patients     PatientLookup
	appointments AppointmentLookup
	tx           db.TxRunner
	guard        *access.Guard
	now          func() time.Time
}

func NewService(records MedicalRecordRepository, history ClinicalHistoryRepository, patients PatientLookup,
	appointments AppointmentLookup, tx db.TxRunner, guard *access.Guard) *Service {
	return &Service{
		records:      records,
		history:      history,
		patients:     patients,
		appointments: appointments,
		tx:           tx,
		guard:        guard,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// -- Medical Record --

// GetRecordByPatient returns the patient's record. An unknown patient and a
// patient without a record are both 404, with different messages.
func (s *Service) GetRecordByPatient(ctx context.Context, p auth.Principal, patientID int64) (*MedicalRecord, error) {
	if err := s.guard.Precheck(p, access.MedicalRecords, access.Read).Err(); err != nil {
		return nil, err
	}
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.records.GetByPatient(ctx, patientID)
}

func (s *Service) CreateRecord(ctx context.Context, p auth.Principal, req MedicalRecordRequest) (*MedicalRecord, error) {
	if err := s.guard.Precheck(p, access.MedicalRecords, access.Create).Err(); err != nil {
		return nil, err
	}
	m := req.record(0)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.requirePatient(ctx, m.PatientID); err != nil {
			return err
		}
		if _, err := s.records.GetByPatient(ctx, m.PatientID); err == nil {
			return apperr.Conflict(apperr.CodeDuplicate, "patient already has a medical record")
		} else if !apperr.IsNotFound(err) {
			return err
		}
		return s.records.Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) UpdateRecord(ctx context.Context, p auth.Principal, id int64, req MedicalRecordRequest) (*MedicalRecord, error) {
	if err := s.guard.Precheck(p, access.MedicalRecords, access.Update).Err(); err != nil {
		return nil, err
	}
	if req.ID != 0 && req.ID != id {
		return nil, apperr.BadRequest("id in body does not match the path")
	}
	m := req.record(id)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.records.GetByID(ctx, id); err != nil {
			return err
		}
		if err := s.requirePatient(ctx, m.PatientID); err != nil {
			return err
		}
		return s.records.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// -- Clinical History --

// ListHistory returns the entries of a record. Patients may only list
// entries of their own record.
func (s *Service) ListHistory(ctx context.Context, p auth.Principal, recordID int64, limit, offset int) ([]*ClinicalHistory, int, error) {
	if err := s.guard.Precheck(p, access.ClinicalHistory, access.Read).Err(); err != nil {
		return nil, 0, err
	}
	rec, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.guard.Check(p, access.ClinicalHistory, access.Read, rec.Ownership()).Err(); err != nil {
		return nil, 0, err
	}
	return s.history.ListByRecord(ctx, recordID, limit, offset)
}

func (s *Service) GetHistory(ctx context.Context, p auth.Principal, id int64) (*ClinicalHistory, error) {
	if err := s.guard.Precheck(p, access.ClinicalHistory, access.Read).Err(); err != nil {
		return nil, err
	}
	h, err := s.history.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.GetByID(ctx, h.MedicalRecordID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(p, access.ClinicalHistory, access.Read, rec.Ownership()).Err(); err != nil {
		return nil, err
	}
	return h, nil
}

// CreateHistory records a consultation. The registration time is always the
// server's clock.
func (s *Service) CreateHistory(ctx context.Context, p auth.Principal, req ClinicalHistoryRequest) (*ClinicalHistory, error) {
	if err := s.guard.Precheck(p, access.ClinicalHistory, access.Create).Err(); err != nil {
		return nil, err
	}
	h := req.entry(0)
	h.RegisteredAt = s.now()
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkReferences(ctx, h); err != nil {
			return err
		}
		return s.history.Create(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) UpdateHistory(ctx context.Context, p auth.Principal, id int64, req ClinicalHistoryRequest) (*ClinicalHistory, error) {
	if err := s.guard.Precheck(p, access.ClinicalHistory, access.Update).Err(); err != nil {
		return nil, err
	}
	if req.ID != 0 && req.ID != id {
		return nil, apperr.BadRequest("id in body does not match the path")
	}
	h := req.entry(id)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.history.GetByID(ctx, id)
		if err != nil {
			return err
		}
		h.RegisteredAt = current.RegisteredAt
		if err := s.checkReferences(ctx, h); err != nil {
			return err
		}
		return s.history.Update(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) DeleteHistory(ctx context.Context, p auth.Principal, id int64) error {
	if err := s.guard.Precheck(p, access.ClinicalHistory, access.Delete).Err(); err != nil {
		return err
	}
	return s.history.Delete(ctx, id)
}

// checkReferences requires the record and appointment to exist and to
// belong to the same patient.
func (s *Service) checkReferences(ctx context.Context, h *ClinicalHistory) error {
	rec, err := s.records.GetByID(ctx, h.MedicalRecordID)
	if err != nil {
		return asReference(err, "medical record", h.MedicalRecordID)
	}
	appt, err := s.appointments.GetByID(ctx, h.AppointmentID)
	if err != nil {
		return asReference(err, "appointment", h.AppointmentID)
	}
	if appt.PatientID != rec.PatientID {
		return apperr.BadRequest("appointment and medical record belong to different patients")
	}
	return nil
}

func (s *Service) requirePatient(ctx context.Context, id int64) error {
	if _, err := s.patients.GetByID(ctx, id); err != nil {
		return asReference(err, "patient", id)
	}
	return nil
}

func asReference(err error, resource string, id int64) error {
	if apperr.IsNotFound(err) {
		return apperr.ReferenceNotFound(resource, id)
	}
	return err
}
