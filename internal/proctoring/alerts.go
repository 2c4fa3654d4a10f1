package proctoring

import "time"

// Alert notifies supervisors that a session crossed a risk threshold. It
// carries the full snapshot and the triggering event so dashboards can render
// context, not just a number.
type Alert struct {
	Level   Severity  `json:"level"` // medium, high or critical
	Session Snapshot  `json:"session"`
	Event   Event     `json:"event"`
	FiredAt time.Time `json:"fired_at"`
}

// Directive is the engine's instruction back to the reporting client. Sent
// exactly once, at the moment a session transitions to terminated.
type Directive struct {
	Type            string    `json:"type"` // always "terminate"
	SessionID       string    `json:"session_id"`
	StudentID       string    `json:"student_id"`
	Reason          string    `json:"reason"`
	TriggeringEvent *Event    `json:"triggering_event,omitempty"`
	IssuedAt        time.Time `json:"issued_at"`
}

// Delta is one item of the live monitor stream: an accepted event or a
// status transition, always with the current session snapshot.
type Delta struct {
	Kind    string   `json:"kind"` // "event" or "status"
	Event   *Event   `json:"event,omitempty"`
	Session Snapshot `json:"session"`
}

// AlertSink receives threshold-crossing alerts. Delivery is best-effort;
// implementations must not block.
type AlertSink interface {
	Alert(Alert)
}

// BroadcastSink receives the live delta stream for connected monitors. No
// replay: late joiners query the registry instead.
type BroadcastSink interface {
	Publish(Delta)
}

// DirectiveSink delivers directives to the reporting client.
type DirectiveSink interface {
	Terminate(Directive)
}

// Archiver persists ended sessions for after-the-fact review. Called
// asynchronously; errors are logged and never reach session state.
type Archiver interface {
	ArchiveSession(Snapshot) error
}

// Sinks bundles the engine's outbound channels. Nil fields are skipped.
type Sinks struct {
	Alerts     AlertSink
	Broadcast  BroadcastSink
	Directives DirectiveSink
	Archive    Archiver
}
