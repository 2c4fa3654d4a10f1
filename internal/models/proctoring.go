package models

import (
	"time"
)

// SessionRecord is the archived form of an ended proctoring session. The
// in-memory engine stays authoritative while a session is live; a record is
// written once, when the session ends.
type SessionRecord struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"uniqueIndex"`
	StudentID string `gorm:"index"`
	ExamID    string `gorm:"index"`
	Status    string `gorm:"size:16;index"`
	RiskScore int
	StartTime time.Time
	EndTime   *time.Time
	CreatedAt time.Time
}

// EventRecord is one archived proctoring event.
type EventRecord struct {
	ID              uint   `gorm:"primaryKey"`
	EventID         string `gorm:"uniqueIndex"`
	SessionID       string `gorm:"index"`
	Type            string `gorm:"size:32"`
	Severity        string `gorm:"size:16"`
	Score           int
	Description     string `gorm:"type:text"`
	Metadata        []byte `gorm:"type:jsonb"`
	ServerTimestamp time.Time
	CreatedAt       time.Time
}
