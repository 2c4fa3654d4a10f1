package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/edusentry/proctor_backend_v1/internal/models"
	"github.com/edusentry/proctor_backend_v1/internal/utils"
)

type ExamController struct {
	DB *gorm.DB
}

type examRequest struct {
	Name   string `json:"name" binding:"required"`
	Active *bool  `json:"active"`
}

func (ec *ExamController) ListExams(c *gin.Context) {
	var exams []models.Exam
	q := ec.DB.Order("created_at DESC")
	if text := strings.TrimSpace(c.Query("q")); text != "" {
		q = q.Where("name ILIKE ?", "%"+text+"%")
	}
	if err := q.Find(&exams).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": exams})
}

func (ec *ExamController) CreateExam(c *gin.Context) {
	var req examRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	code, err := utils.GenerateCode(6)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate access code"})
		return
	}
	exam := models.Exam{
		Name:       req.Name,
		AccessCode: code,
		Active:     true,
	}
	if req.Active != nil {
		exam.Active = *req.Active
	}
	if err := ec.DB.Create(&exam).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, exam)
}

func (ec *ExamController) GetExam(c *gin.Context) {
	exam, ok := ec.findExam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, exam)
}

func (ec *ExamController) UpdateExam(c *gin.Context) {
	exam, ok := ec.findExam(c)
	if !ok {
		return
	}
	var req examRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	exam.Name = req.Name
	if req.Active != nil {
		exam.Active = *req.Active
	}
	if err := ec.DB.Save(&exam).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, exam)
}

func (ec *ExamController) DeleteExam(c *gin.Context) {
	exam, ok := ec.findExam(c)
	if !ok {
		return
	}
	if err := ec.DB.Delete(&exam).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ec.DB.Where("exam_id_ref = ?", exam.ID).Delete(&models.ExamSupervisor{})
	ec.DB.Where("exam_id_ref = ?", exam.ID).Delete(&models.ExamStudent{})
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

type assignRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// AssignSupervisor attaches a supervisor to an exam for monitor scoping.
func (ec *ExamController) AssignSupervisor(c *gin.Context) {
	ec.assign(c, "supervisor")
}

// AssignStudent enrolls a student so they can start a session for the exam.
func (ec *ExamController) AssignStudent(c *gin.Context) {
	ec.assign(c, "student")
}

func (ec *ExamController) assign(c *gin.Context, role string) {
	exam, ok := ec.findExam(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var user models.User
	if err := ec.DB.Where("user_id = ?", req.UserID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if user.Role != role {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is not a " + role})
		return
	}

	var err error
	if role == "supervisor" {
		err = ec.DB.FirstOrCreate(&models.ExamSupervisor{}, models.ExamSupervisor{UserIDRef: user.ID, ExamIDRef: exam.ID}).Error
	} else {
		err = ec.DB.FirstOrCreate(&models.ExamStudent{}, models.ExamStudent{UserIDRef: user.ID, ExamIDRef: exam.ID}).Error
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "assigned"})
}

func (ec *ExamController) UnassignSupervisor(c *gin.Context) {
	ec.unassign(c, "supervisor")
}

func (ec *ExamController) UnassignStudent(c *gin.Context) {
	ec.unassign(c, "student")
}

func (ec *ExamController) unassign(c *gin.Context, role string) {
	exam, ok := ec.findExam(c)
	if !ok {
		return
	}
	var user models.User
	if err := ec.DB.Where("user_id = ?", c.Param("user_id")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	var err error
	if role == "supervisor" {
		err = ec.DB.Where("user_id_ref = ? AND exam_id_ref = ?", user.ID, exam.ID).Delete(&models.ExamSupervisor{}).Error
	} else {
		err = ec.DB.Where("user_id_ref = ? AND exam_id_ref = ?", user.ID, exam.ID).Delete(&models.ExamStudent{}).Error
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unassigned"})
}

// ListSupervisors returns the supervisors assigned to an exam.
func (ec *ExamController) ListSupervisors(c *gin.Context) {
	ec.listAssigned(c, "exam_supervisors")
}

// ListStudents returns the students enrolled in an exam.
func (ec *ExamController) ListStudents(c *gin.Context) {
	ec.listAssigned(c, "exam_students")
}

func (ec *ExamController) listAssigned(c *gin.Context, table string) {
	exam, ok := ec.findExam(c)
	if !ok {
		return
	}
	var users []models.User
	err := ec.DB.Table("users AS u").
		Select("u.*").
		Joins("JOIN "+table+" a ON a.user_id_ref = u.id").
		Where("a.exam_id_ref = ?", exam.ID).
		Find(&users).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, userJSON(u))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (ec *ExamController) findExam(c *gin.Context) (models.Exam, bool) {
	var exam models.Exam
	if err := ec.DB.Where("id = ?", c.Param("id")).First(&exam).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "exam not found"})
		return exam, false
	}
	return exam, true
}
