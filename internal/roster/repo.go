package roster

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrEmailTaken is returned by CreateUser when the email is already registered.
	ErrEmailTaken = errors.New("email already exists")
	// ErrAlreadyEnrolled is returned by Enroll when the student is already in the class.
	ErrAlreadyEnrolled = errors.New("student already enrolled")
)

// Repository persists users, classes and attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a new account. The email-uniqueness check and the insert
// are a single statement so concurrent signups cannot both pass it.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
		RETURNING created_at
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role)
	if err := row.Scan(&u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return u, nil
}

// GetUser returns a user by id, or nil when absent.
func (r *Repository) GetUser(ctx context.Context, id string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, created_at
		FROM users WHERE id = $1
	`, id))
}

// GetUserByEmail returns a user by email, or nil when absent.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, created_at
		FROM users WHERE email = $1
	`, email))
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ListStudents returns every student account.
func (r *Repository) ListStudents(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, password_hash, role, created_at
		FROM users WHERE role = $1
		ORDER BY name
	`, RoleStudent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]User, error) {
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateClass initializes a class with an empty enrollment.
func (r *Repository) CreateClass(ctx context.Context, teacherID, className string) (Class, error) {
	cls := Class{
		ID:         uuid.NewString(),
		ClassName:  className,
		TeacherID:  teacherID,
		StudentIDs: []string{},
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO classes (id, class_name, teacher_id)
		VALUES ($1, $2, $3)
	`, cls.ID, cls.ClassName, cls.TeacherID)
	if err != nil {
		return Class{}, err
	}
	return cls, nil
}

// GetClass returns a class with its enrollment in insertion order, or nil
// when absent.
func (r *Repository) GetClass(ctx context.Context, id string) (*Class, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, class_name, teacher_id FROM classes WHERE id = $1
	`, id)
	var cls Class
	if err := row.Scan(&cls.ID, &cls.ClassName, &cls.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id FROM class_students
		WHERE class_id = $1 ORDER BY enrolled_at
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cls.StudentIDs = []string{}
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		cls.StudentIDs = append(cls.StudentIDs, sid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &cls, nil
}

// Enroll adds a student to a class. The duplicate check and the append are a
// single add-to-set statement; zero rows affected means the student was
// already enrolled, so two concurrent calls cannot double-insert.
func (r *Repository) Enroll(ctx context.Context, classID, studentID string) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO class_students (class_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (class_id, student_id) DO NOTHING
	`, classID, studentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyEnrolled
	}
	return nil
}

// ClassRoster returns the enrolled students in enrollment order.
func (r *Repository) ClassRoster(ctx context.Context, classID string) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.password_hash, u.role, u.created_at
		FROM class_students cs
		JOIN users u ON u.id = cs.student_id
		WHERE cs.class_id = $1
		ORDER BY cs.enrolled_at
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// MarkPresent upserts the (class, student) record to present. The composite
// primary key keeps one record per pair; re-marking is a no-op.
func (r *Repository) MarkPresent(ctx context.Context, classID, studentID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (class_id, student_id, status, marked_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (class_id, student_id) DO UPDATE SET status = $3
	`, classID, studentID, StatusPresent)
	return err
}

// GetAttendance returns the record for (class, student), or nil when the
// student was never marked.
func (r *Repository) GetAttendance(ctx context.Context, classID, studentID string) (*AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT class_id, student_id, status, marked_at
		FROM attendance_records
		WHERE class_id = $1 AND student_id = $2
	`, classID, studentID)
	var rec AttendanceRecord
	if err := row.Scan(&rec.ClassID, &rec.StudentID, &rec.Status, &rec.MarkedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
