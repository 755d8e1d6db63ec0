package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
	"github.com/mediconnect/mediconnect/internal/platform/db"
)

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

const userCols = `id, first_name, last_name, email, phone, password_hash, role_id, registered_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var roleID int64
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone,
		&u.PasswordHash, &roleID, &u.RegisteredAt); err != nil {
		return nil, err
	}
	role, err := auth.RoleFromID(roleID)
	if err != nil {
		return nil, err
	}
	u.Role = role
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, email, phone, password_hash, role_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, registered_at`,
		u.FirstName, u.LastName, u.Email, u.Phone, u.PasswordHash, u.Role.ID(),
	).Scan(&u.ID, &u.RegisteredAt)
	return db.Classify(err, "user", 0)
}

func (r *userRepoPG) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "user", id)
	}
	return u, nil
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, apperr.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, db.Classify(err, "user", 0)
	}
	return u, nil
}

func (r *userRepoPG) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email).Scan(&exists)
	return exists, err
}

func (r *userRepoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

// =========== Specialty Repository ===========

type specialtyRepoPG struct{ pool *pgxpool.Pool }

func NewSpecialtyRepoPG(pool *pgxpool.Pool) SpecialtyRepository { return &specialtyRepoPG{pool: pool} }

func (r *specialtyRepoPG) Create(ctx context.Context, s *Specialty) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO specialties (name, description) VALUES ($1, $2) RETURNING id`,
		s.Name, s.Description).Scan(&s.ID)
	return db.Classify(err, "specialty", 0)
}

func (r *specialtyRepoPG) GetByID(ctx context.Context, id int64) (*Specialty, error) {
	var s Specialty
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, description FROM specialties WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Description)
	if err != nil {
		return nil, db.Classify(err, "specialty", id)
	}
	return &s, nil
}

func (r *specialtyRepoPG) Update(ctx context.Context, s *Specialty) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE specialties SET name = $2, description = $3 WHERE id = $1`,
		s.ID, s.Name, s.Description)
	if err != nil {
		return db.Classify(err, "specialty", s.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("specialty", s.ID)
	}
	return nil
}

func (r *specialtyRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM specialties WHERE id = $1`, id)
	if err != nil {
		return db.Classify(err, "specialty", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("specialty", id)
	}
	return nil
}

func (r *specialtyRepoPG) List(ctx context.Context, limit, offset int) ([]*Specialty, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM specialties`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx,
		`SELECT id, name, description FROM specialties ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Specialty
	for rows.Next() {
		var s Specialty
		if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			return nil, 0, err
		}
		items = append(items, &s)
	}
	return items, total, rows.Err()
}

func (r *specialtyRepoPG) CountDoctors(ctx context.Context, id int64) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctors WHERE specialty_id = $1`, id).Scan(&n)
	return n, err
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

const doctorViewQuery = `
	SELECT d.id, d.user_id, d.license_number, d.specialty_id,
		u.first_name || ' ' || u.last_name, u.email, s.name
	FROM doctors d
	JOIN users u ON u.id = d.user_id
	JOIN specialties s ON s.id = d.specialty_id`

func scanDoctorView(row pgx.Row) (*DoctorView, error) {
	var v DoctorView
	err := row.Scan(&v.ID, &v.UserID, &v.LicenseNumber, &v.SpecialtyID,
		&v.FullName, &v.Email, &v.Specialty)
	return &v, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO doctors (user_id, license_number, specialty_id)
		VALUES ($1, $2, $3) RETURNING id`,
		d.UserID, d.LicenseNumber, d.SpecialtyID).Scan(&d.ID)
	return db.Classify(err, "doctor", 0)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	var d Doctor
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, user_id, license_number, specialty_id FROM doctors WHERE id = $1`, id).
		Scan(&d.ID, &d.UserID, &d.LicenseNumber, &d.SpecialtyID)
	if err != nil {
		return nil, db.Classify(err, "doctor", id)
	}
	return &d, nil
}

func (r *doctorRepoPG) GetView(ctx context.Context, id int64) (*DoctorView, error) {
	v, err := scanDoctorView(db.Conn(ctx, r.pool).QueryRow(ctx, doctorViewQuery+` WHERE d.id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "doctor", id)
	}
	return v, nil
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE doctors SET license_number = $2, specialty_id = $3 WHERE id = $1`,
		d.ID, d.LicenseNumber, d.SpecialtyID)
	if err != nil {
		return db.Classify(err, "doctor", d.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("doctor", d.ID)
	}
	return nil
}

func (r *doctorRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return db.Classify(err, "doctor", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("doctor", id)
	}
	return nil
}

func (r *doctorRepoPG) List(ctx context.Context, limit, offset int) ([]*DoctorView, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, doctorViewQuery+` ORDER BY d.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DoctorView
	for rows.Next() {
		v, err := scanDoctorView(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

func (r *doctorRepoPG) IDByUser(ctx context.Context, userID int64) (int64, error) {
	return idByUser(ctx, db.Conn(ctx, r.pool), `SELECT id FROM doctors WHERE user_id = $1`, userID)
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

const patientViewQuery = `
	SELECT p.id, p.user_id, p.birth_date, p.gender, p.emergency_contact,
		u.first_name || ' ' || u.last_name, u.email
	FROM patients p
	JOIN users u ON u.id = p.user_id`

func scanPatientView(row pgx.Row) (*PatientView, error) {
	var v PatientView
	err := row.Scan(&v.ID, &v.UserID, &v.BirthDate, &v.Gender, &v.EmergencyContact,
		&v.FullName, &v.Email)
	return &v, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patients (user_id, birth_date, gender, emergency_contact)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		p.UserID, p.BirthDate, p.Gender, p.EmergencyContact).Scan(&p.ID)
	return db.Classify(err, "patient", 0)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	var p Patient
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, user_id, birth_date, gender, emergency_contact FROM patients WHERE id = $1`, id).
		Scan(&p.ID, &p.UserID, &p.BirthDate, &p.Gender, &p.EmergencyContact)
	if err != nil {
		return nil, db.Classify(err, "patient", id)
	}
	return &p, nil
}

func (r *patientRepoPG) GetView(ctx context.Context, id int64) (*PatientView, error) {
	v, err := scanPatientView(db.Conn(ctx, r.pool).QueryRow(ctx, patientViewQuery+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "patient", id)
	}
	return v, nil
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*PatientView, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, patientViewQuery+` ORDER BY p.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*PatientView
	for rows.Next() {
		v, err := scanPatientView(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) IDByUser(ctx context.Context, userID int64) (int64, error) {
	return idByUser(ctx, db.Conn(ctx, r.pool), `SELECT id FROM patients WHERE user_id = $1`, userID)
}

func idByUser(ctx context.Context, q db.Querier, query string, userID int64) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, query, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return id, err
}
