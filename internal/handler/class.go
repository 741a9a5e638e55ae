package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classattend/internal/auth"
	"classattend/internal/roster"
)

type createClassRequest struct {
	ClassName string `json:"className" binding:"required,min=3,max=30"`
}

// CreateClass makes the requesting teacher the owner of a new, empty class.
func (h *Handler) CreateClass(c *gin.Context) {
	teacher, ok := auth.UserFrom(c)
	if !ok {
		fail(c, http.StatusForbidden, "forbidden, not a teacher")
		return
	}
	var req createClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request schema")
		return
	}
	cls, err := h.store.CreateClass(c.Request.Context(), teacher.ID, req.ClassName)
	if err != nil {
		internalError(c, "create class", err)
		return
	}
	respond(c, http.StatusCreated, cls)
}

type addStudentRequest struct {
	StudentID string `json:"studentId" binding:"required"`
}

// AddStudent enrolls a student into a class. The gate only established "is a
// teacher"; owning this particular class is checked here.
func (h *Handler) AddStudent(c *gin.Context) {
	teacher, ok := auth.UserFrom(c)
	if !ok {
		fail(c, http.StatusForbidden, "forbidden, not a teacher")
		return
	}
	cls, err := h.store.GetClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		internalError(c, "load class", err)
		return
	}
	if cls == nil {
		fail(c, http.StatusNotFound, "class not found")
		return
	}
	var req addStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request schema")
		return
	}
	student, err := h.store.GetUser(c.Request.Context(), req.StudentID)
	if err != nil {
		internalError(c, "load student", err)
		return
	}
	if student == nil || student.Role != roster.RoleStudent {
		fail(c, http.StatusNotFound, "student not found")
		return
	}
	if cls.TeacherID != teacher.ID {
		fail(c, http.StatusForbidden, "forbidden, not class teacher")
		return
	}
	if err := h.store.Enroll(c.Request.Context(), cls.ID, student.ID); err != nil {
		if errors.Is(err, roster.ErrAlreadyEnrolled) {
			fail(c, http.StatusConflict, "student already enrolled")
			return
		}
		internalError(c, "enroll student", err)
		return
	}
	updated, err := h.store.GetClass(c.Request.Context(), cls.ID)
	if err != nil || updated == nil {
		internalError(c, "reload class", err)
		return
	}
	respond(c, http.StatusOK, updated)
}

type classMemberView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GetClass returns the class the member guard already loaded, with the
// enrolled students' display details.
func (h *Handler) GetClass(c *gin.Context) {
	cls, ok := auth.ClassFrom(c)
	if !ok {
		fail(c, http.StatusNotFound, "class not found")
		return
	}
	students, err := h.store.ClassRoster(c.Request.Context(), cls.ID)
	if err != nil {
		internalError(c, "load roster", err)
		return
	}
	views := make([]classMemberView, 0, len(students))
	for _, s := range students {
		views = append(views, classMemberView{ID: s.ID, Name: s.Name, Email: s.Email})
	}
	respond(c, http.StatusOK, gin.H{
		"id":        cls.ID,
		"className": cls.ClassName,
		"teacherId": cls.TeacherID,
		"students":  views,
	})
}

// ListStudents returns every student account, for teachers building a class.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.store.ListStudents(c.Request.Context())
	if err != nil {
		internalError(c, "list students", err)
		return
	}
	respond(c, http.StatusOK, students)
}

// MyAttendance returns the requesting student's own record for a class.
// Never marked serializes as a null status.
func (h *Handler) MyAttendance(c *gin.Context) {
	student, ok := auth.UserFrom(c)
	if !ok {
		fail(c, http.StatusForbidden, "forbidden, not a student")
		return
	}
	cls, err := h.store.GetClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		internalError(c, "load class", err)
		return
	}
	if cls == nil {
		fail(c, http.StatusNotFound, "class not found")
		return
	}
	rec, err := h.store.GetAttendance(c.Request.Context(), cls.ID, student.ID)
	if err != nil {
		internalError(c, "load attendance", err)
		return
	}
	var status any
	if rec != nil {
		status = rec.Status
	}
	respond(c, http.StatusOK, gin.H{"classId": cls.ID, "status": status})
}
