package proctoring

import (
	"fmt"
	"time"
)

// Status of a proctoring session. Transitions are one-directional:
// active → flagged → terminated, active → terminated, active → completed,
// flagged → completed. terminated and completed are absorbing.
type Status string

const (
	StatusActive     Status = "active"
	StatusFlagged    Status = "flagged"
	StatusTerminated Status = "terminated"
	StatusCompleted  Status = "completed"
)

// Ended reports whether the status is absorbing.
func (s Status) Ended() bool {
	return s == StatusTerminated || s == StatusCompleted
}

// session is the canonical record for one monitored exam attempt. Owned
// exclusively by its registry worker; everything else sees Snapshots.
type session struct {
	id        string
	studentID string
	examID    string
	startTime time.Time
	endTime   *time.Time
	events    []Event
	riskScore int
	status    Status

	// highest alert tier already fired, for edge-triggered dedup
	alertedTier Severity
}

// sessionID derives the globally unique id from its owning student, exam and
// start instant.
func sessionID(studentID, examID string, start time.Time) string {
	return fmt.Sprintf("%s-%s-%d", studentID, examID, start.UnixNano())
}

func newSession(studentID, examID string, start time.Time) *session {
	return &session{
		id:        sessionID(studentID, examID, start),
		studentID: studentID,
		examID:    examID,
		startTime: start,
		status:    StatusActive,
	}
}

// end moves the session into an absorbing status. Idempotent: once ended the
// first endTime and status stick.
func (s *session) end(final Status, at time.Time) bool {
	if s.status.Ended() {
		return false
	}
	s.status = final
	s.endTime = &at
	return true
}

// Snapshot is the read-only view of a session handed to observers. The event
// slice is copied so holders can never mutate the canonical log.
type Snapshot struct {
	SessionID string     `json:"session_id"`
	StudentID string     `json:"student_id"`
	ExamID    string     `json:"exam_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	RiskScore int        `json:"risk_score"`
	Status    Status     `json:"status"`
	Events    []Event    `json:"events"`
}

func (s *session) snapshot() Snapshot {
	events := make([]Event, len(s.events))
	copy(events, s.events)
	return Snapshot{
		SessionID: s.id,
		StudentID: s.studentID,
		ExamID:    s.examID,
		StartTime: s.startTime,
		EndTime:   s.endTime,
		RiskScore: s.riskScore,
		Status:    s.status,
		Events:    events,
	}
}
