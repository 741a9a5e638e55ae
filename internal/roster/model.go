package roster

import "time"

// Role classifies an account as teacher or student. The set is closed;
// anything else fails validation at the request boundary and at token parse.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// User is an account holder. The role never changes after signup.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Class groups students under exactly one owning teacher. StudentIDs is kept
// in enrollment order for display; membership itself is unordered.
type Class struct {
	ID         string   `json:"id"`
	ClassName  string   `json:"className"`
	TeacherID  string   `json:"teacherId"`
	StudentIDs []string `json:"studentIds"`
}

// Membership reports how userID relates to the class. The teacher check is an
// exact id match against the single owner; the student check scans the
// enrollment list. A teacher is never also enrolled as a student of their own
// class, so both can only be true for malformed data.
func (c *Class) Membership(userID string) (isTeacher, isStudent bool) {
	if userID == c.TeacherID {
		isTeacher = true
	}
	for _, id := range c.StudentIDs {
		if id == userID {
			isStudent = true
			break
		}
	}
	return isTeacher, isStudent
}

// HasStudent reports whether studentID is enrolled in the class.
func (c *Class) HasStudent(studentID string) bool {
	_, enrolled := c.Membership(studentID)
	return enrolled
}

// Attendance statuses. A missing record means the student was never marked;
// the service only ever writes "present", never an explicit absence.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// AttendanceRecord is one student's status for one class. At most one record
// exists per (class, student) pair.
type AttendanceRecord struct {
	ClassID   string    `json:"classId"`
	StudentID string    `json:"studentId"`
	Status    string    `json:"status"`
	MarkedAt  time.Time `json:"marked_at"`
}
