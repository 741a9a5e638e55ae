package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"classattend/internal/auth"
	"classattend/internal/queue"
	"classattend/internal/roster"
	"classattend/internal/session"
)

type sessionRequest struct {
	ClassID string `json:"classId" binding:"required"`
}

// StartSession opens the attendance window for a class.
func (h *Handler) StartSession(c *gin.Context) {
	teacher, ok := auth.UserFrom(c)
	if !ok {
		fail(c, http.StatusForbidden, "forbidden, not a teacher")
		return
	}
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request schema")
		return
	}
	sess, err := h.sessions.Start(c.Request.Context(), req.ClassID, teacher.ID)
	if err != nil {
		failSession(c, "start session", err)
		return
	}
	respond(c, http.StatusCreated, sess)
}

// EndSession closes the attendance window for a class.
func (h *Handler) EndSession(c *gin.Context) {
	teacher, ok := auth.UserFrom(c)
	if !ok {
		fail(c, http.StatusForbidden, "forbidden, not a teacher")
		return
	}
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request schema")
		return
	}
	if err := h.sessions.End(c.Request.Context(), req.ClassID, teacher.ID); err != nil {
		failSession(c, "end session", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"classId": req.ClassID})
}

// CheckActiveSession reports whether the addressed class's window is open.
// The member guard already loaded the class.
func (h *Handler) CheckActiveSession(c *gin.Context) {
	cls, ok := auth.ClassFrom(c)
	if !ok {
		fail(c, http.StatusNotFound, "class not found")
		return
	}
	active, startedAt := h.sessions.CheckActive(cls.ID)
	if !active {
		respond(c, http.StatusOK, gin.H{"active": false})
		return
	}
	respond(c, http.StatusOK, gin.H{"active": true, "startedAt": startedAt})
}

// MarkPresent records the requesting student as present for the class with
// the open window. Repeats succeed without a second record.
func (h *Handler) MarkPresent(c *gin.Context) {
	student, ok := auth.UserFrom(c)
	if !ok {
		fail(c, http.StatusForbidden, "forbidden, not a student")
		return
	}
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request schema")
		return
	}
	if err := h.sessions.MarkPresent(c.Request.Context(), req.ClassID, student.ID); err != nil {
		failSession(c, "mark present", err)
		return
	}
	if h.marks != nil {
		if err := h.marks.Publish(c.Request.Context(), queue.Mark{ClassID: req.ClassID, StudentID: student.ID}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
	}
	respond(c, http.StatusOK, gin.H{"classId": req.ClassID, "status": roster.StatusPresent})
}

// SessionSummary returns the worker-maintained present tally for a class the
// requesting teacher owns, alongside the live window state.
func (h *Handler) SessionSummary(c *gin.Context) {
	teacher, ok := auth.UserFrom(c)
	if !ok {
		fail(c, http.StatusForbidden, "forbidden, not a teacher")
		return
	}
	cls, err := h.store.GetClass(c.Request.Context(), c.Param("classId"))
	if err != nil {
		internalError(c, "load class", err)
		return
	}
	if cls == nil {
		fail(c, http.StatusNotFound, "class not found")
		return
	}
	if cls.TeacherID != teacher.ID {
		fail(c, http.StatusForbidden, "forbidden, not class teacher")
		return
	}
	var present int64
	if h.tally != nil {
		present, err = h.tally.PresentCount(c.Request.Context(), cls.ID)
		if err != nil {
			internalError(c, "read tally", err)
			return
		}
	}
	active, startedAt := h.sessions.CheckActive(cls.ID)
	out := gin.H{"classId": cls.ID, "present": present, "enrolled": len(cls.StudentIDs), "active": active}
	if active {
		out["startedAt"] = startedAt
	}
	respond(c, http.StatusOK, out)
}

// failSession maps coordinator errors onto the response taxonomy.
func failSession(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, session.ErrClassNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotClassTeacher):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, session.ErrSessionActive), errors.Is(err, session.ErrNoActiveSession):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNotEnrolled):
		fail(c, http.StatusForbidden, err.Error())
	default:
		internalError(c, op, err)
	}
}
