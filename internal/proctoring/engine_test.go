package proctoring

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// captureSinks records everything the engine dispatches.
type captureSinks struct {
	mu         sync.Mutex
	alerts     []Alert
	directives []Directive
	deltas     []Delta
	archived   []Snapshot
}

func (cs *captureSinks) Alert(a Alert) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.alerts = append(cs.alerts, a)
}

func (cs *captureSinks) Publish(d Delta) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.deltas = append(cs.deltas, d)
}

func (cs *captureSinks) Terminate(d Directive) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.directives = append(cs.directives, d)
}

func (cs *captureSinks) ArchiveSession(s Snapshot) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.archived = append(cs.archived, s)
	return nil
}

func (cs *captureSinks) counts() (alerts, directives, deltas int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.alerts), len(cs.directives), len(cs.deltas)
}

// settle waits until the dispatch queue has gone quiet.
func (cs *captureSinks) settle(t *testing.T) {
	t.Helper()
	var prevA, prevD, prevL int
	stable := 0
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		a, d, l := cs.counts()
		if a == prevA && d == prevD && l == prevL {
			stable++
			if stable >= 5 {
				return
			}
		} else {
			stable = 0
		}
		prevA, prevD, prevL = a, d, l
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("dispatch queue never settled")
}

func (cs *captureSinks) alertLevels() []Severity {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]Severity, len(cs.alerts))
	for i, a := range cs.alerts {
		out[i] = a.Level
	}
	return out
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *captureSinks) {
	t.Helper()
	cs := &captureSinks{}
	e := NewEngine(cfg, Sinks{Alerts: cs, Broadcast: cs, Directives: cs, Archive: cs})
	t.Cleanup(e.Close)
	return e, cs
}

func rightClick() RawEvent {
	return RawEvent{Type: EventRightClick} // low, 2 points
}

func tabSwitch(freq int) RawEvent {
	return RawEvent{Type: EventTabSwitch, Metadata: Metadata{"frequency": freq}} // medium, 5 points at freq <= 5
}

func TestBenignSession(t *testing.T) {
	e, cs := newTestEngine(t, Config{})
	snap, err := e.StartSession("student-1", "exam-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := e.Ingest(snap.SessionID, rightClick()); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	got, _ := e.GetSession(snap.SessionID)
	if got.RiskScore != 6 {
		t.Errorf("expected score 6, got %d", got.RiskScore)
	}
	if got.Status != StatusActive {
		t.Errorf("expected active, got %s", got.Status)
	}
	cs.settle(t)
	if alerts, _, _ := cs.counts(); alerts != 0 {
		t.Errorf("expected no alerts, got %d", alerts)
	}
}

func TestEscalation(t *testing.T) {
	e, cs := newTestEngine(t, Config{})
	snap, _ := e.StartSession("student-1", "exam-1")

	// 5 + 5 = 10 crosses MEDIUM=10, +2 = 12 stays in the band
	e.Ingest(snap.SessionID, tabSwitch(1))
	e.Ingest(snap.SessionID, tabSwitch(1))
	e.Ingest(snap.SessionID, rightClick())

	cs.settle(t)
	if levels := cs.alertLevels(); len(levels) != 1 || levels[0] != SeverityMedium {
		t.Fatalf("expected exactly one medium alert, got %v", levels)
	}
	got, _ := e.GetSession(snap.SessionID)
	if got.Status != StatusActive {
		t.Errorf("medium crossing must not change status, got %s", got.Status)
	}

	// 12 + 5 + 5 + 5 = 27, crosses HIGH=25
	e.Ingest(snap.SessionID, tabSwitch(1))
	e.Ingest(snap.SessionID, tabSwitch(1))
	e.Ingest(snap.SessionID, tabSwitch(1))

	cs.settle(t)
	levels := cs.alertLevels()
	if len(levels) != 2 || levels[1] != SeverityHigh {
		t.Fatalf("expected medium then high alerts, got %v", levels)
	}
	got, _ = e.GetSession(snap.SessionID)
	if got.Status != StatusFlagged {
		t.Errorf("expected flagged, got %s", got.Status)
	}
	if got.RiskScore != 27 {
		t.Errorf("expected score 27, got %d", got.RiskScore)
	}
}

func TestAutoTermination(t *testing.T) {
	e, cs := newTestEngine(t, Config{})
	snap, _ := e.StartSession("student-1", "exam-1")

	ev, err := e.Ingest(snap.SessionID, RawEvent{
		Type:     EventMultipleFaces,
		Metadata: Metadata{"faceCount": 4},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if ev.Severity != SeverityCritical || ev.Score != 50 {
		t.Fatalf("expected critical/50, got %s/%d", ev.Severity, ev.Score)
	}

	got, _ := e.GetSession(snap.SessionID)
	if got.Status != StatusTerminated {
		t.Fatalf("expected terminated, got %s", got.Status)
	}
	if got.EndTime == nil {
		t.Error("endTime not set on termination")
	}

	cs.settle(t)
	_, directives, _ := cs.counts()
	if directives != 1 {
		t.Fatalf("expected exactly one terminate directive, got %d", directives)
	}
	cs.mu.Lock()
	d := cs.directives[0]
	cs.mu.Unlock()
	if d.Type != "terminate" || d.TriggeringEvent == nil || d.TriggeringEvent.ID != ev.ID {
		t.Errorf("directive missing triggering event: %+v", d)
	}

	// further ingestion must be refused and leave the session untouched
	if _, err := e.Ingest(snap.SessionID, rightClick()); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("expected ErrSessionNotActive, got %v", err)
	}
	after, _ := e.GetSession(snap.SessionID)
	if after.RiskScore != got.RiskScore || len(after.Events) != len(got.Events) {
		t.Error("ended session accumulated state after termination")
	}
}

func TestThresholdJumpFiresOnlyCritical(t *testing.T) {
	e, cs := newTestEngine(t, Config{})
	snap, _ := e.StartSession("student-1", "exam-1")

	// 2 + 2 = 4, below every threshold
	e.Ingest(snap.SessionID, rightClick())
	e.Ingest(snap.SessionID, rightClick())

	// +50 jumps straight past MEDIUM, HIGH and CRITICAL
	e.Ingest(snap.SessionID, RawEvent{Type: EventMultipleFaces, Metadata: Metadata{"faceCount": 4}})

	cs.settle(t)
	levels := cs.alertLevels()
	if len(levels) != 1 || levels[0] != SeverityCritical {
		t.Fatalf("expected a single critical alert, got %v", levels)
	}
	got, _ := e.GetSession(snap.SessionID)
	if got.Status != StatusTerminated {
		t.Errorf("expected terminated, got %s", got.Status)
	}
	if _, directives, _ := cs.counts(); directives != 1 {
		t.Errorf("expected one directive, got %d", directives)
	}
}

func TestRiskScoreMonotonic(t *testing.T) {
	e, _ := newTestEngine(t, Config{Thresholds: Thresholds{Medium: 10000, High: 20000, Critical: 30000}})
	snap, _ := e.StartSession("student-1", "exam-1")

	events := []RawEvent{
		rightClick(),
		tabSwitch(2),
		{Type: EventCopyPaste, Metadata: Metadata{"length": 150}},
		{Type: EventNoFace, Metadata: Metadata{"duration": 40}},
		{Type: EventWindowBlur},
		{Type: EventSuspiciousKeys, Metadata: Metadata{"keys": "ctrl+c"}},
	}
	prev := 0
	for i, raw := range events {
		if _, err := e.Ingest(snap.SessionID, raw); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		got, _ := e.GetSession(snap.SessionID)
		if got.RiskScore < prev {
			t.Fatalf("risk score decreased: %d -> %d", prev, got.RiskScore)
		}
		prev = got.RiskScore
	}
}

func TestIngestValidation(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	snap, _ := e.StartSession("student-1", "exam-1")

	cases := []RawEvent{
		{Type: "unknown_garbage"},
		{},
		{Type: EventSuspiciousKeys}, // missing keys metadata
		{Type: EventCopyPaste, Metadata: Metadata{"length": -5}},
	}
	for _, raw := range cases {
		_, err := e.Ingest(snap.SessionID, raw)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("payload %+v: expected ValidationError, got %v", raw, err)
		}
	}

	// the session must be untouched by rejected payloads
	got, _ := e.GetSession(snap.SessionID)
	if got.RiskScore != 0 || len(got.Events) != 0 {
		t.Errorf("rejected payloads mutated the session: score=%d events=%d", got.RiskScore, len(got.Events))
	}
}

func TestIngestUnknownSession(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	if _, err := e.Ingest("no-such-session", rightClick()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestCompleteSessionIdempotent(t *testing.T) {
	e, cs := newTestEngine(t, Config{})
	snap, _ := e.StartSession("student-1", "exam-1")

	first, err := e.CompleteSession(snap.SessionID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if first.Status != StatusCompleted || first.EndTime == nil {
		t.Fatalf("expected completed with endTime, got %+v", first)
	}

	second, err := e.CompleteSession(snap.SessionID)
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if !second.EndTime.Equal(*first.EndTime) {
		t.Error("endTime changed on repeated completion")
	}

	cs.settle(t)
	if _, directives, _ := cs.counts(); directives != 0 {
		t.Errorf("completion must not emit a directive, got %d", directives)
	}
}

func TestManualTerminationEmitsDirective(t *testing.T) {
	e, cs := newTestEngine(t, Config{})
	snap, _ := e.StartSession("student-1", "exam-1")

	got, err := e.TerminateSession(snap.SessionID, "left the room")
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if got.Status != StatusTerminated {
		t.Fatalf("expected terminated, got %s", got.Status)
	}

	cs.settle(t)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if len(cs.directives) != 1 || cs.directives[0].Reason != "left the room" {
		t.Errorf("expected one directive with the supervisor reason, got %+v", cs.directives)
	}
	if len(cs.archived) != 1 {
		t.Errorf("expected one archived snapshot, got %d", len(cs.archived))
	}
}

func TestAlertRefire(t *testing.T) {
	e, cs := newTestEngine(t, Config{RefireAlerts: true})
	snap, _ := e.StartSession("student-1", "exam-1")

	// 5 + 2 = 7 stays below MEDIUM, +5 = 12 crosses it, +2 = 14 re-fires
	e.Ingest(snap.SessionID, tabSwitch(1))
	e.Ingest(snap.SessionID, rightClick())
	e.Ingest(snap.SessionID, tabSwitch(1))
	e.Ingest(snap.SessionID, rightClick())

	cs.settle(t)
	levels := cs.alertLevels()
	if len(levels) != 2 || levels[0] != SeverityMedium || levels[1] != SeverityMedium {
		t.Fatalf("refire mode: expected two medium alerts, got %v", levels)
	}
}

func TestBroadcastCarriesEveryAcceptedEvent(t *testing.T) {
	e, cs := newTestEngine(t, Config{})
	snap, _ := e.StartSession("student-1", "exam-1")

	e.Ingest(snap.SessionID, rightClick())
	e.Ingest(snap.SessionID, rightClick())

	cs.settle(t)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	eventDeltas := 0
	for _, d := range cs.deltas {
		if d.Kind == "event" {
			eventDeltas++
			if d.Event == nil {
				t.Error("event delta without event")
			}
		}
	}
	if eventDeltas != 2 {
		t.Errorf("expected 2 event deltas, got %d", eventDeltas)
	}
}

func TestConcurrentIngestLosesNothing(t *testing.T) {
	e, _ := newTestEngine(t, Config{Thresholds: Thresholds{Medium: 100000, High: 200000, Critical: 300000}})
	snap, _ := e.StartSession("student-1", "exam-1")

	const workers = 4
	const perWorker = 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := e.Ingest(snap.SessionID, rightClick()); err != nil {
					t.Errorf("ingest: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, _ := e.GetSession(snap.SessionID)
	want := workers * perWorker * 2 // right-click low scores 2
	if got.RiskScore != want {
		t.Errorf("expected score %d, got %d", want, got.RiskScore)
	}
	if len(got.Events) != workers*perWorker {
		t.Errorf("expected %d events, got %d", workers*perWorker, len(got.Events))
	}
}

func TestBroadcastOrderMatchesEventLog(t *testing.T) {
	e, cs := newTestEngine(t, Config{
		Thresholds: Thresholds{Medium: 100000, High: 200000, Critical: 300000},
		QueueSize:  1024,
	})
	snap, _ := e.StartSession("student-1", "exam-1")

	const workers = 4
	const perWorker = 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := e.Ingest(snap.SessionID, rightClick()); err != nil {
					t.Errorf("ingest: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	cs.settle(t)

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if len(cs.deltas) != workers*perWorker {
		t.Fatalf("expected %d deltas, got %d", workers*perWorker, len(cs.deltas))
	}
	for i, d := range cs.deltas {
		want := (i + 1) * 2 // right-click low scores 2
		if d.Session.RiskScore != want {
			t.Fatalf("delta %d carries score %d, want %d: stream does not match commit order", i, d.Session.RiskScore, want)
		}
	}
}

func TestEventTimestampIsAuthoritative(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	snap, _ := e.StartSession("student-1", "exam-1")

	past := time.Now().Add(-24 * time.Hour)
	ev, err := e.Ingest(snap.SessionID, RawEvent{Type: EventWindowBlur, ClientTimestamp: &past})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if time.Since(ev.ServerTimestamp) > time.Minute {
		t.Errorf("server timestamp not assigned by the engine: %v", ev.ServerTimestamp)
	}
}
