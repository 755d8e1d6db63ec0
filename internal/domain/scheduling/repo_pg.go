package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/db"
)

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const apptCols = `id, patient_id, doctor_id, status_id, scheduled_at, reason`

const apptViewQuery = `
	SELECT a.id, a.patient_id, a.doctor_id, a.status_id, a.scheduled_at, a.reason,
		pu.first_name || ' ' || pu.last_name,
		du.first_name || ' ' || du.last_name,
		sp.name, st.name
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN users pu ON pu.id = p.user_id
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users du ON du.id = d.user_id
	JOIN specialties sp ON sp.id = d.specialty_id
	JOIN appointment_statuses st ON st.id = a.status_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.StatusID, &a.ScheduledAt, &a.Reason)
	return &a, err
}

func scanAppointmentView(row pgx.Row) (*AppointmentView, error) {
	var v AppointmentView
	err := row.Scan(&v.ID, &v.PatientID, &v.DoctorID, &v.StatusID, &v.ScheduledAt, &v.Reason,
		&v.PatientName, &v.DoctorName, &v.Specialty, &v.Status)
	return &v, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, status_id, scheduled_at, reason)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.PatientID, a.DoctorID, a.StatusID, a.ScheduledAt, a.Reason).Scan(&a.ID)
	return db.Classify(err, "appointment", 0)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "appointment", id)
	}
	return a, nil
}

func (r *appointmentRepoPG) GetView(ctx context.Context, id int64) (*AppointmentView, error) {
	v, err := scanAppointmentView(db.Conn(ctx, r.pool).QueryRow(ctx, apptViewQuery+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "appointment", id)
	}
	return v, nil
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE appointments SET patient_id = $2, doctor_id = $3, status_id = $4,
			scheduled_at = $5, reason = $6
		WHERE id = $1`,
		a.ID, a.PatientID, a.DoctorID, a.StatusID, a.ScheduledAt, a.Reason)
	if err != nil {
		return db.Classify(err, "appointment", a.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment", a.ID)
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return db.Classify(err, "appointment", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment", id)
	}
	return nil
}

func (r *appointmentRepoPG) List(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*AppointmentView, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.DoctorID != 0 {
		where += fmt.Sprintf(` AND a.doctor_id = $%d`, idx)
		args = append(args, f.DoctorID)
		idx++
	}
	if f.PatientID != 0 {
		where += fmt.Sprintf(` AND a.patient_id = $%d`, idx)
		args = append(args, f.PatientID)
		idx++
	}
	if f.StatusID != 0 {
		where += fmt.Sprintf(` AND a.status_id = $%d`, idx)
		args = append(args, f.StatusID)
		idx++
	}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := apptViewQuery + where + fmt.Sprintf(` ORDER BY a.scheduled_at DESC, a.id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*AppointmentView
	for rows.Next() {
		v, err := scanAppointmentView(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

// =========== Appointment Status Repository ===========

type statusRepoPG struct{ pool *pgxpool.Pool }

func NewStatusRepoPG(pool *pgxpool.Pool) StatusRepository { return &statusRepoPG{pool: pool} }

func (r *statusRepoPG) Create(ctx context.Context, s *AppointmentStatus) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO appointment_statuses (name) VALUES ($1) RETURNING id`, s.Name).Scan(&s.ID)
	return db.Classify(err, "appointment status", 0)
}

func (r *statusRepoPG) GetByID(ctx context.Context, id int64) (*AppointmentStatus, error) {
	var s AppointmentStatus
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name FROM appointment_statuses WHERE id = $1`, id).Scan(&s.ID, &s.Name)
	if err != nil {
		return nil, db.Classify(err, "appointment status", id)
	}
	return &s, nil
}

func (r *statusRepoPG) GetByName(ctx context.Context, name string) (*AppointmentStatus, error) {
	var s AppointmentStatus
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name FROM appointment_statuses WHERE LOWER(name) = LOWER($1)`, name).Scan(&s.ID, &s.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, apperr.CodeNotFound,
			fmt.Sprintf("appointment status %q not found", name))
	}
	if err != nil {
		return nil, db.Classify(err, "appointment status", 0)
	}
	return &s, nil
}

func (r *statusRepoPG) Update(ctx context.Context, s *AppointmentStatus) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE appointment_statuses SET name = $2 WHERE id = $1`, s.ID, s.Name)
	if err != nil {
		return db.Classify(err, "appointment status", s.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment status", s.ID)
	}
	return nil
}

func (r *statusRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM appointment_statuses WHERE id = $1`, id)
	if err != nil {
		return db.Classify(err, "appointment status", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment status", id)
	}
	return nil
}

func (r *statusRepoPG) List(ctx context.Context, limit, offset int) ([]*AppointmentStatus, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM appointment_statuses`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx,
		`SELECT id, name FROM appointment_statuses ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*AppointmentStatus
	for rows.Next() {
		var s AppointmentStatus
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, 0, err
		}
		items = append(items, &s)
	}
	return items, total, rows.Err()
}

func (r *statusRepoPG) CountAppointments(ctx context.Context, id int64) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE status_id = $1`, id).Scan(&n)
	return n, err
}
