package clinical

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/db"
)

// =========== Medical Record Repository ===========

type medicalRecordRepoPG struct{ pool *pgxpool.Pool }

func NewMedicalRecordRepoPG(pool *pgxpool.Pool) MedicalRecordRepository {
	return &medicalRecordRepoPG{pool: pool}
}

const recordCols = `id, patient_id, medical_history, allergies, chronic_diseases, controlled_medications, notes`

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var m MedicalRecord
	err := row.Scan(&m.ID, &m.PatientID, &m.MedicalHistory, &m.Allergies,
		&m.ChronicDiseases, &m.ControlledMedications, &m.Notes)
	return &m, err
}

func (r *medicalRecordRepoPG) Create(ctx context.Context, m *MedicalRecord) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medical_records (patient_id, medical_history, allergies, chronic_diseases, controlled_medications, notes)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		m.PatientID, m.MedicalHistory, m.Allergies, m.ChronicDiseases, m.ControlledMedications, m.Notes).Scan(&m.ID)
	return db.Classify(err, "medical record", 0)
}

func (r *medicalRecordRepoPG) GetByID(ctx context.Context, id int64) (*MedicalRecord, error) {
	m, err := scanRecord(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+recordCols+` FROM medical_records WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "medical record", id)
	}
	return m, nil
}

func (r *medicalRecordRepoPG) GetByPatient(ctx context.Context, patientID int64) (*MedicalRecord, error) {
	m, err := scanRecord(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+recordCols+` FROM medical_records WHERE patient_id = $1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, apperr.CodeNotFound,
			fmt.Sprintf("no medical record for patient %d", patientID))
	}
	if err != nil {
		return nil, db.Classify(err, "medical record", 0)
	}
	return m, nil
}

func (r *medicalRecordRepoPG) Update(ctx context.Context, m *MedicalRecord) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE medical_records SET patient_id = $2, medical_history = $3, allergies = $4,
			chronic_diseases = $5, controlled_medications = $6, notes = $7
		WHERE id = $1`,
		m.ID, m.PatientID, m.MedicalHistory, m.Allergies, m.ChronicDiseases, m.ControlledMedications, m.Notes)
	if err != nil {
		return db.Classify(err, "medical record", m.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("medical record", m.ID)
	}
	return nil
}

// =========== Clinical History Repository ===========

type clinicalHistoryRepoPG struct{ pool *pgxpool.Pool }

func NewClinicalHistoryRepoPG(pool *pgxpool.Pool) ClinicalHistoryRepository {
	return &clinicalHistoryRepoPG{pool: pool}
}

const historyCols = `id, medical_record_id, appointment_id, registered_at, diagnosis, treatment, reason, notes`

func scanHistory(row pgx.Row) (*ClinicalHistory, error) {
	var h ClinicalHistory
	err := row.Scan(&h.ID, &h.MedicalRecordID, &h.AppointmentID, &h.RegisteredAt,
		&h.Diagnosis, &h.Treatment, &h.Reason, &h.Notes)
	return &h, err
}

func (r *clinicalHistoryRepoPG) Create(ctx context.Context, h *ClinicalHistory) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO clinical_history (medical_record_id, appointment_id, registered_at, diagnosis, treatment, reason, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		h.MedicalRecordID, h.AppointmentID, h.RegisteredAt, h.Diagnosis, h.Treatment, h.Reason, h.Notes).Scan(&h.ID)
	return db.Classify(err, "clinical history", 0)
}

func (r *clinicalHistoryRepoPG) GetByID(ctx context.Context, id int64) (*ClinicalHistory, error) {
	h, err := scanHistory(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+historyCols+` FROM clinical_history WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "clinical history", id)
	}
	return h, nil
}

// Update leaves registered_at untouched.
func (r *clinicalHistoryRepoPG) Update(ctx context.Context, h *ClinicalHistory) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE clinical_history SET medical_record_id = $2, appointment_id = $3,
			diagnosis = $4, treatment = $5, reason = $6, notes = $7
		WHERE id = $1`,
		h.ID, h.MedicalRecordID, h.AppointmentID, h.Diagnosis, h.Treatment, h.Reason, h.Notes)
	if err != nil {
		return db.Classify(err, "clinical history", h.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("clinical history", h.ID)
	}
	return nil
}

func (r *clinicalHistoryRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM clinical_history WHERE id = $1`, id)
	if err != nil {
		return db.Classify(err, "clinical history", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("clinical history", id)
	}
	return nil
}

func (r *clinicalHistoryRepoPG) ListByRecord(ctx context.Context, recordID int64, limit, offset int) ([]*ClinicalHistory, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM clinical_history WHERE medical_record_id = $1`, recordID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `SELECT `+historyCols+` FROM clinical_history
		WHERE medical_record_id = $1 ORDER BY registered_at DESC, id DESC LIMIT $2 OFFSET $3`,
		recordID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ClinicalHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}
