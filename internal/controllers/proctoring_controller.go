package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/edusentry/proctor_backend_v1/internal/models"
	"github.com/edusentry/proctor_backend_v1/internal/proctoring"
)

// ProctoringController exposes the engine's session lifecycle and query
// surface. The in-memory engine is authoritative; the database is only
// consulted for enrollment and supervisor scoping.
type ProctoringController struct {
	DB     *gorm.DB
	Engine *proctoring.Engine
}

type startSessionRequest struct {
	ExamID string `json:"exam_id" binding:"required"`
}

// StartSession opens a proctoring session for the calling student.
func (pc *ProctoringController) StartSession(c *gin.Context) {
	uVal, _ := c.Get("user")
	user := uVal.(models.User)
	if user.Role != "student" {
		c.JSON(http.StatusForbidden, gin.H{"error": "only students start sessions"})
		return
	}

	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var exam models.Exam
	if err := pc.DB.Where("id = ? AND active = ?", req.ExamID, true).First(&exam).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "exam not found or inactive"})
		return
	}
	var enrolled int64
	pc.DB.Model(&models.ExamStudent{}).Where("user_id_ref = ? AND exam_id_ref = ?", user.ID, exam.ID).Count(&enrolled)
	if enrolled == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "not enrolled in this exam"})
		return
	}

	snap, err := pc.Engine.StartSession(user.UserID, exam.ID)
	if err != nil {
		if errors.Is(err, proctoring.ErrDuplicateSession) {
			c.JSON(http.StatusConflict, gin.H{"error": "an active session already exists for this exam"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// IngestEvent is the REST fallback to the student websocket channel.
func (pc *ProctoringController) IngestEvent(c *gin.Context) {
	uVal, _ := c.Get("user")
	user := uVal.(models.User)

	snap, ok := pc.ownedSession(c, user)
	if !ok {
		return
	}

	var raw proctoring.RawEvent
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := pc.Engine.Ingest(snap.SessionID, raw)
	if err != nil {
		var verr *proctoring.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		case errors.Is(err, proctoring.ErrSessionNotActive):
			c.JSON(http.StatusConflict, gin.H{"error": "session is no longer accepting events"})
		case errors.Is(err, proctoring.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, ev)
}

// CompleteSession marks the student's session finished. Idempotent.
func (pc *ProctoringController) CompleteSession(c *gin.Context) {
	uVal, _ := c.Get("user")
	user := uVal.(models.User)

	snap, ok := pc.ownedSession(c, user)
	if !ok {
		return
	}

	out, err := pc.Engine.CompleteSession(snap.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

type terminateRequest struct {
	Reason string `json:"reason"`
}

// TerminateSession force-ends a session. Supervisors may only terminate
// sessions in exams they are assigned to.
func (pc *ProctoringController) TerminateSession(c *gin.Context) {
	uVal, _ := c.Get("user")
	user := uVal.(models.User)

	snap, err := pc.Engine.GetSession(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if !pc.canMonitorExam(user, snap.ExamID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed for this exam"})
		return
	}

	var req terminateRequest
	_ = c.ShouldBindJSON(&req)

	out, err := pc.Engine.TerminateSession(snap.SessionID, req.Reason)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetSession returns the full session report: snapshot plus event log.
func (pc *ProctoringController) GetSession(c *gin.Context) {
	uVal, _ := c.Get("user")
	user := uVal.(models.User)

	snap, err := pc.Engine.GetSession(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if user.Role == "student" {
		if snap.StudentID != user.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
			return
		}
	} else if !pc.canMonitorExam(user, snap.ExamID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed for this exam"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ListStudentSessions lists sessions for one student. Students may only list
// their own; supervisors see sessions in their assigned exams.
func (pc *ProctoringController) ListStudentSessions(c *gin.Context) {
	uVal, _ := c.Get("user")
	user := uVal.(models.User)
	studentID := c.Param("student_id")

	if user.Role == "student" && studentID != user.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your sessions"})
		return
	}

	snaps := pc.Engine.StudentSessions(studentID)
	if user.Role == "supervisor" {
		allowed := pc.supervisedExams(user)
		filtered := snaps[:0]
		for _, s := range snaps {
			if _, ok := allowed[s.ExamID]; ok {
				filtered = append(filtered, s)
			}
		}
		snaps = filtered
	}
	c.JSON(http.StatusOK, gin.H{"data": snaps})
}

// ListExamSessions lists sessions for one exam.
func (pc *ProctoringController) ListExamSessions(c *gin.Context) {
	uVal, _ := c.Get("user")
	user := uVal.(models.User)
	examID := c.Param("exam_id")

	if !pc.canMonitorExam(user, examID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed for this exam"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": pc.Engine.ExamSessions(examID)})
}

// ownedSession resolves the :id session and checks the caller owns it.
func (pc *ProctoringController) ownedSession(c *gin.Context, user models.User) (proctoring.Snapshot, bool) {
	snap, err := pc.Engine.GetSession(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return proctoring.Snapshot{}, false
	}
	if user.Role != "student" || snap.StudentID != user.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
		return proctoring.Snapshot{}, false
	}
	return snap, true
}

func (pc *ProctoringController) supervisedExams(user models.User) map[string]struct{} {
	allowed := map[string]struct{}{}
	var assignments []models.ExamSupervisor
	if err := pc.DB.Where("user_id_ref = ?", user.ID).Find(&assignments).Error; err != nil {
		return allowed
	}
	for _, a := range assignments {
		allowed[a.ExamIDRef] = struct{}{}
	}
	return allowed
}

func (pc *ProctoringController) canMonitorExam(user models.User, examID string) bool {
	if user.Role == "admin" {
		return true
	}
	if user.Role != "supervisor" {
		return false
	}
	_, ok := pc.supervisedExams(user)[examID]
	return ok
}
