package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classattend/internal/queue"
	"classattend/internal/roster"
	"classattend/internal/session"
)

// Store is the slice of the roster repository the handlers use.
type Store interface {
	CreateUser(ctx context.Context, u roster.User) (roster.User, error)
	GetUser(ctx context.Context, id string) (*roster.User, error)
	GetUserByEmail(ctx context.Context, email string) (*roster.User, error)
	ListStudents(ctx context.Context) ([]roster.User, error)
	CreateClass(ctx context.Context, teacherID, className string) (roster.Class, error)
	GetClass(ctx context.Context, id string) (*roster.Class, error)
	Enroll(ctx context.Context, classID, studentID string) error
	ClassRoster(ctx context.Context, classID string) ([]roster.User, error)
	GetAttendance(ctx context.Context, classID, studentID string) (*roster.AttendanceRecord, error)
}

// Tally reads the derived per-class present counts maintained by the worker.
type Tally interface {
	PresentCount(ctx context.Context, classID string) (int64, error)
}

// Handler carries the dependencies behind the HTTP routes.
type Handler struct {
	store    Store
	sessions *session.Coordinator
	marks    queue.Queue
	tally    Tally

	signingKey string
	issuer     string
	tokenTTL   time.Duration
}

// New wires a handler. marks and tally may be nil when the queue/worker side
// is not deployed; the related endpoints degrade rather than fail.
func New(store Store, sessions *session.Coordinator, marks queue.Queue, tally Tally, signingKey, issuer string, tokenTTL time.Duration) *Handler {
	return &Handler{
		store:      store,
		sessions:   sessions,
		marks:      marks,
		tally:      tally,
		signingKey: signingKey,
		issuer:     issuer,
		tokenTTL:   tokenTTL,
	}
}

// Every response uses the same envelope: success flag plus either data or a
// taxonomy error message. Raw internal errors go to the log, never to the
// caller.

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func internalError(c *gin.Context, op string, err error) {
	log.Printf("%s: %v", op, err)
	fail(c, http.StatusInternalServerError, "internal server error")
}
