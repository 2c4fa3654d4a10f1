package proctoring

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
)

// Thresholds are the ascending risk-score boundaries the state machine
// evaluates after every accepted event.
type Thresholds struct {
	Medium   int
	High     int
	Critical int
}

// DefaultThresholds mirror the documented design constants. Deployments
// override them through configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 10, High: 25, Critical: 50}
}

// Config tunes the engine.
type Config struct {
	Thresholds Thresholds
	// RefireAlerts switches from edge-triggered alerting (each tier fires
	// once per session, the default) to level-triggered (re-fire on every
	// event at or above an already-crossed tier).
	RefireAlerts bool
	// QueueSize bounds the outbound dispatch queue. Overflow drops the
	// newest job rather than back-pressuring ingestion.
	QueueSize int
}

// Engine is the proctoring core: it owns the session registry, runs the
// ingestion pipeline and threshold state machine, and fans results out to
// the configured sinks.
type Engine struct {
	cfg      Config
	registry *Registry
	sinks    Sinks
	jobs     chan func()
	quit     chan struct{}
}

func NewEngine(cfg Config, sinks Sinks) *Engine {
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	e := &Engine{
		cfg:      cfg,
		registry: NewRegistry(),
		sinks:    sinks,
		jobs:     make(chan func(), cfg.QueueSize),
		quit:     make(chan struct{}),
	}
	go e.dispatch()
	return e
}

// dispatch drains the outbound queue. Sink calls run off the ingestion path;
// a failing or slow sink can never roll back or delay session state.
func (e *Engine) dispatch() {
	for {
		select {
		case job := <-e.jobs:
			job()
		case <-e.quit:
			return
		}
	}
}

// emit enqueues an outbound job, dropping it if the queue is full.
func (e *Engine) emit(job func()) {
	select {
	case e.jobs <- job:
	default:
		log.Printf("proctoring: dispatch queue full, dropping notification")
	}
}

// Close stops the dispatcher. Pending queued notifications are dropped.
func (e *Engine) Close() {
	close(e.quit)
}

// StartSession opens a new active session for the student and exam.
func (e *Engine) StartSession(studentID, examID string) (Snapshot, error) {
	snap, err := e.registry.Start(studentID, examID)
	if err != nil {
		return Snapshot{}, err
	}
	log.Printf("proctoring: session %s started (student=%s exam=%s)", snap.SessionID, studentID, examID)
	return snap, nil
}

// GetSession returns the current snapshot of a session.
func (e *Engine) GetSession(sessionID string) (Snapshot, error) {
	return e.registry.Get(sessionID)
}

// StudentSessions lists every session for a student, oldest first.
func (e *Engine) StudentSessions(studentID string) []Snapshot {
	return e.registry.ListByStudent(studentID)
}

// ExamSessions lists every session for an exam, oldest first.
func (e *Engine) ExamSessions(examID string) []Snapshot {
	return e.registry.ListByExam(examID)
}

// validate rejects payloads the pipeline will not process: unrecognized
// types and metadata inconsistent with the type. The classifier itself stays
// total; this is the strict gate in front of it.
func validate(raw RawEvent) error {
	if raw.Type == "" {
		return &ValidationError{Field: "type", Reason: "is required"}
	}
	if !raw.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "is not a recognized event type"}
	}
	for _, key := range []string{"frequency", "length", "faceCount", "duration"} {
		if _, present := raw.Metadata[key]; present && raw.Metadata.Int(key) < 0 {
			return &ValidationError{Field: "metadata." + key, Reason: "must be non-negative"}
		}
	}
	if raw.Type == EventSuspiciousKeys && raw.Metadata.String("keys") == "" {
		return &ValidationError{Field: "metadata.keys", Reason: "is required for suspicious-key-sequence"}
	}
	return nil
}

// Ingest runs the full pipeline for one reported event: validate, stamp,
// classify, score, append, evaluate thresholds, dispatch. The event is
// either fully applied or fully rejected.
func (e *Engine) Ingest(sessionID string, raw RawEvent) (Event, error) {
	if err := validate(raw); err != nil {
		return Event{}, err
	}

	var (
		ev   Event
		ierr error
	)
	err := e.registry.do(sessionID, func(s *session) {
		if s.status.Ended() {
			ierr = ErrSessionNotActive
			return
		}
		sev := Classify(raw.Type, raw.Metadata)
		ev = Event{
			ID:              uuid.NewString(),
			SessionID:       s.id,
			StudentID:       s.studentID,
			ExamID:          s.examID,
			Type:            raw.Type,
			Severity:        sev,
			Score:           ScoreFor(raw.Type, sev),
			ServerTimestamp: time.Now().UTC(),
			Metadata:        raw.Metadata,
			Description:     describe(raw.Type, sev, raw.Metadata),
		}
		s.events = append(s.events, ev)
		s.riskScore += ev.Score
		for _, job := range e.evaluate(s, ev) {
			e.emit(job)
		}
	})
	if err != nil {
		return Event{}, err
	}
	if ierr != nil {
		return Event{}, ierr
	}
	return ev, nil
}

func tierRank(sev Severity) int {
	switch sev {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	}
	return 0
}

// evaluate applies the threshold state machine to the post-append score.
// Tiers are checked descending so an event that jumps several thresholds at
// once triggers only the highest path. Runs on the session worker; the
// returned jobs are enqueued there too, so the outbound stream sees session
// changes in commit order.
func (e *Engine) evaluate(s *session, ev Event) []func() {
	t := e.cfg.Thresholds
	var tier Severity
	switch {
	case s.riskScore >= t.Critical:
		tier = SeverityCritical
	case s.riskScore >= t.High:
		tier = SeverityHigh
	case s.riskScore >= t.Medium:
		tier = SeverityMedium
	default:
		return e.deltaJobs(s.snapshot(), ev)
	}

	fire := e.cfg.RefireAlerts || tierRank(tier) > tierRank(s.alertedTier)
	if tierRank(tier) > tierRank(s.alertedTier) {
		s.alertedTier = tier
	}

	var jobs []func()
	switch tier {
	case SeverityCritical:
		s.end(StatusTerminated, time.Now().UTC())
		snap := s.snapshot()
		triggering := ev
		directive := Directive{
			Type:            "terminate",
			SessionID:       s.id,
			StudentID:       s.studentID,
			Reason:          "risk score exceeded the critical threshold",
			TriggeringEvent: &triggering,
			IssuedAt:        time.Now().UTC(),
		}
		log.Printf("proctoring: session %s terminated at score %d", s.id, s.riskScore)
		jobs = e.deltaJobs(snap, ev)
		jobs = append(jobs, e.statusJob(snap), e.directiveJob(directive), e.archiveJob(snap))
		if fire {
			jobs = append(jobs, e.alertJob(Alert{Level: SeverityCritical, Session: snap, Event: ev, FiredAt: time.Now().UTC()}))
		}
	case SeverityHigh:
		changed := s.status == StatusActive
		if changed {
			s.status = StatusFlagged
			log.Printf("proctoring: session %s flagged at score %d", s.id, s.riskScore)
		}
		snap := s.snapshot()
		jobs = e.deltaJobs(snap, ev)
		if changed {
			jobs = append(jobs, e.statusJob(snap))
		}
		if fire {
			jobs = append(jobs, e.alertJob(Alert{Level: SeverityHigh, Session: snap, Event: ev, FiredAt: time.Now().UTC()}))
		}
	case SeverityMedium:
		snap := s.snapshot()
		jobs = e.deltaJobs(snap, ev)
		if fire {
			jobs = append(jobs, e.alertJob(Alert{Level: SeverityMedium, Session: snap, Event: ev, FiredAt: time.Now().UTC()}))
		}
	}
	return jobs
}

func (e *Engine) deltaJobs(snap Snapshot, ev Event) []func() {
	if e.sinks.Broadcast == nil {
		return nil
	}
	event := ev
	return []func(){func() {
		e.sinks.Broadcast.Publish(Delta{Kind: "event", Event: &event, Session: snap})
	}}
}

func (e *Engine) statusJob(snap Snapshot) func() {
	return func() {
		if e.sinks.Broadcast != nil {
			e.sinks.Broadcast.Publish(Delta{Kind: "status", Session: snap})
		}
	}
}

func (e *Engine) alertJob(a Alert) func() {
	return func() {
		if e.sinks.Alerts != nil {
			e.sinks.Alerts.Alert(a)
		}
	}
}

func (e *Engine) directiveJob(d Directive) func() {
	return func() {
		if e.sinks.Directives != nil {
			e.sinks.Directives.Terminate(d)
		}
	}
}

func (e *Engine) archiveJob(snap Snapshot) func() {
	return func() {
		if e.sinks.Archive == nil {
			return
		}
		if err := e.sinks.Archive.ArchiveSession(snap); err != nil {
			log.Printf("proctoring: archive of session %s failed: %v", snap.SessionID, err)
		}
	}
}

// CompleteSession marks a session finished by the student. Idempotent: a
// second call on an ended session is a no-op.
func (e *Engine) CompleteSession(sessionID string) (Snapshot, error) {
	return e.endSession(sessionID, StatusCompleted, "")
}

// TerminateSession force-ends a session (supervisor action) and notifies the
// reporting client with the given reason.
func (e *Engine) TerminateSession(sessionID, reason string) (Snapshot, error) {
	if reason == "" {
		reason = "terminated by supervisor"
	}
	return e.endSession(sessionID, StatusTerminated, reason)
}

func (e *Engine) endSession(sessionID string, final Status, reason string) (Snapshot, error) {
	var snap Snapshot
	err := e.registry.do(sessionID, func(s *session) {
		if !s.end(final, time.Now().UTC()) {
			snap = s.snapshot()
			return
		}
		snap = s.snapshot()
		e.emit(e.statusJob(snap))
		e.emit(e.archiveJob(snap))
		if final == StatusTerminated {
			e.emit(e.directiveJob(Directive{
				Type:      "terminate",
				SessionID: s.id,
				StudentID: s.studentID,
				Reason:    reason,
				IssuedAt:  time.Now().UTC(),
			}))
		}
		log.Printf("proctoring: session %s ended as %s", s.id, final)
	})
	if errors.Is(err, ErrSessionNotActive) {
		// Already ended; report the frozen snapshot.
		return e.registry.Get(sessionID)
	}
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
