package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Exam struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	Name       string `gorm:"uniqueIndex"`
	AccessCode string `gorm:"uniqueIndex;size:16"`
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (e *Exam) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// ExamSupervisor maps a supervisor user to exams they monitor. Admins are
// allowed everywhere by role; this mapping scopes supervisors.
type ExamSupervisor struct {
	ID        uint   `gorm:"primaryKey"`
	UserIDRef uint   `gorm:"uniqueIndex:uniq_supervisor_exam"`
	ExamIDRef string `gorm:"type:uuid;uniqueIndex:uniq_supervisor_exam"`
	CreatedAt time.Time
}

// ExamStudent maps a student user to exams they may sit.
type ExamStudent struct {
	ID        uint   `gorm:"primaryKey"`
	UserIDRef uint   `gorm:"uniqueIndex:uniq_student_exam"`
	ExamIDRef string `gorm:"type:uuid;uniqueIndex:uniq_student_exam"`
	CreatedAt time.Time
}
