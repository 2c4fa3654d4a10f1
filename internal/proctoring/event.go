package proctoring

import (
	"fmt"
	"time"
)

// EventType is the closed set of behavioral signals the reporting client
// may send. Anything outside this set is rejected at ingestion.
type EventType string

const (
	EventTabSwitch        EventType = "tab-switch"
	EventWindowBlur       EventType = "window-blur"
	EventCopyPaste        EventType = "copy-paste"
	EventRightClick       EventType = "right-click"
	EventSuspiciousKeys   EventType = "suspicious-key-sequence"
	EventFaceAnomaly      EventType = "face-detected-anomaly"
	EventMultipleFaces    EventType = "multiple-faces"
	EventNoFace           EventType = "no-face"
	EventSuspiciousMotion EventType = "suspicious-movement"
)

// Valid reports whether t belongs to the closed event-type set.
func (t EventType) Valid() bool {
	switch t {
	case EventTabSwitch, EventWindowBlur, EventCopyPaste, EventRightClick,
		EventSuspiciousKeys, EventFaceAnomaly, EventMultipleFaces,
		EventNoFace, EventSuspiciousMotion:
		return true
	}
	return false
}

// Severity tiers assigned by the classifier, never recomputed afterwards.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Metadata is the open per-event payload. Its shape depends on the event
// type; accessors below tolerate the loose typing JSON decoding produces.
type Metadata map[string]any

// Int returns the named value as an int, handling the float64 that
// encoding/json yields for numbers. Missing or non-numeric keys return 0.
func (m Metadata) Int(key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// String returns the named value as a string, or "" when absent.
func (m Metadata) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// RawEvent is what the reporting client sends. The client timestamp is
// advisory only; the engine assigns its own.
type RawEvent struct {
	Type            EventType  `json:"type"`
	Metadata        Metadata   `json:"metadata"`
	ClientTimestamp *time.Time `json:"client_timestamp,omitempty"`
}

// Event is the immutable, fully classified record appended to a session's
// log. Created once by the ingestion pipeline, never mutated.
type Event struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	StudentID       string    `json:"student_id"`
	ExamID          string    `json:"exam_id"`
	Type            EventType `json:"type"`
	Severity        Severity  `json:"severity"`
	Score           int       `json:"score"`
	ServerTimestamp time.Time `json:"server_timestamp"`
	Metadata        Metadata  `json:"metadata,omitempty"`
	Description     string    `json:"description"`
}

// describe renders the one-line human summary stored on the event.
func describe(t EventType, sev Severity, md Metadata) string {
	switch t {
	case EventTabSwitch:
		return fmt.Sprintf("student switched away from the exam tab (count %d)", md.Int("frequency"))
	case EventWindowBlur:
		return "exam window lost focus"
	case EventCopyPaste:
		return fmt.Sprintf("copy/paste of %d characters intercepted", md.Int("length"))
	case EventRightClick:
		return "context menu attempt blocked"
	case EventSuspiciousKeys:
		return fmt.Sprintf("restricted key sequence %q pressed", md.String("keys"))
	case EventFaceAnomaly:
		return "camera reported a face anomaly"
	case EventMultipleFaces:
		return fmt.Sprintf("camera detected %d faces in frame", md.Int("faceCount"))
	case EventNoFace:
		return fmt.Sprintf("no face visible for %d seconds", md.Int("duration"))
	case EventSuspiciousMotion:
		return "suspicious movement detected"
	}
	return fmt.Sprintf("%s event (%s)", t, sev)
}
