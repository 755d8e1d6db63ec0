package clinical

import (
	"context"
)

type MedicalRecordRepository interface {
	Create(ctx context.Context, m *MedicalRecord) error
	GetByID(ctx context.Context, id int64) (*MedicalRecord, error)
	GetByPatient(ctx context.Context, patientID int64) (*MedicalRecord, error)
	Update(ctx context.Context, m *MedicalRecord) error
}

type ClinicalHistoryRepository interface {
	Create(ctx context.Context, h *ClinicalHistory) error
	GetByID(ctx context.Context, id int64) (*ClinicalHistory, error)
	Update(ctx context.Context, h *ClinicalHistory) error
	Delete(ctx context.Context, id int64) error
	// ListByRecord returns entries newest first.
	ListByRecord(ctx context.Context, recordID int64, limit, offset int) ([]*ClinicalHistory, int, error)
}
