package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"classattend/internal/metrics"
	"classattend/internal/roster"
)

var (
	// ErrClassNotFound is returned when the addressed class does not exist.
	ErrClassNotFound = errors.New("class not found")
	// ErrNotClassTeacher is returned when the requester does not own the class.
	ErrNotClassTeacher = errors.New("forbidden, not class teacher")
	// ErrSessionActive is returned by Start while any session is open,
	// regardless of class.
	ErrSessionActive = errors.New("an attendance session is already active")
	// ErrNoActiveSession is returned when no session is open for the
	// addressed class.
	ErrNoActiveSession = errors.New("no active attendance session for this class")
	// ErrNotEnrolled is returned by MarkPresent for students outside the class.
	ErrNotEnrolled = errors.New("student not enrolled in this class")
)

// Roster is the slice of the datastore the coordinator needs.
type Roster interface {
	GetClass(ctx context.Context, id string) (*roster.Class, error)
	MarkPresent(ctx context.Context, classID, studentID string) error
}

// Session is one open attendance window.
type Session struct {
	ClassID   string    `json:"classId"`
	StartedAt time.Time `json:"startedAt"`
}

// Coordinator owns the active-session slot. The slot is process-wide: at most
// one session is open at a time across all classes, which matches the
// product's observed behavior. A per-class slot map is the likely future
// shape and would only change the container behind the mutex. The slot is
// in-memory only and does not survive a restart.
type Coordinator struct {
	roster Roster

	mu     sync.Mutex
	active *Session
}

// NewCoordinator creates a coordinator in the idle state.
func NewCoordinator(r Roster) *Coordinator {
	return &Coordinator{roster: r}
}

// Start opens the attendance window for classID. Only the owning teacher may
// start, and only while no other session is active anywhere. The slot check
// and the transition happen under one lock so concurrent starts cannot both
// win.
func (c *Coordinator) Start(ctx context.Context, classID, teacherID string) (Session, error) {
	cls, err := c.roster.GetClass(ctx, classID)
	if err != nil {
		return Session{}, err
	}
	if cls == nil {
		return Session{}, ErrClassNotFound
	}
	if cls.TeacherID != teacherID {
		return Session{}, ErrNotClassTeacher
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return Session{}, ErrSessionActive
	}
	c.active = &Session{ClassID: classID, StartedAt: time.Now()}
	metrics.SessionsStarted.Inc()
	return *c.active, nil
}

// End closes the window. The active session must belong to classID; a
// teacher cannot clear another class's session.
func (c *Coordinator) End(ctx context.Context, classID, teacherID string) error {
	cls, err := c.roster.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	if cls == nil {
		return ErrClassNotFound
	}
	if cls.TeacherID != teacherID {
		return ErrNotClassTeacher
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || c.active.ClassID != classID {
		return ErrNoActiveSession
	}
	c.active = nil
	metrics.SessionsEnded.Inc()
	return nil
}

// MarkPresent records studentID as present for classID. The active session
// must be this class's and the student must be enrolled. Marking an
// already-present student is an idempotent success; nothing ever moves a
// record back from present.
func (c *Coordinator) MarkPresent(ctx context.Context, classID, studentID string) error {
	cls, err := c.roster.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	if cls == nil {
		return ErrClassNotFound
	}

	c.mu.Lock()
	open := c.active != nil && c.active.ClassID == classID
	c.mu.Unlock()
	if !open {
		return ErrNoActiveSession
	}

	if !cls.HasStudent(studentID) {
		return ErrNotEnrolled
	}
	if err := c.roster.MarkPresent(ctx, classID, studentID); err != nil {
		return err
	}
	metrics.AttendanceMarked.Inc()
	return nil
}

// CheckActive reports whether classID's session is open and when it started.
// Another class's session never shows as active here.
func (c *Coordinator) CheckActive(classID string) (bool, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || c.active.ClassID != classID {
		return false, time.Time{}
	}
	return true, c.active.StartedAt
}
