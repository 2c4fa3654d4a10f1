package proctoring

import (
	"errors"
	"fmt"
	"testing"
)

func TestRegistryStartAndGet(t *testing.T) {
	r := NewRegistry()
	snap, err := r.Start("student-1", "exam-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.Status != StatusActive {
		t.Errorf("expected active, got %s", snap.Status)
	}
	if snap.StudentID != "student-1" || snap.ExamID != "exam-1" {
		t.Errorf("snapshot carries wrong identifiers: %+v", snap)
	}

	got, err := r.Get(snap.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SessionID != snap.SessionID {
		t.Errorf("expected %s, got %s", snap.SessionID, got.SessionID)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistryDuplicateSession(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Start("student-1", "exam-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := r.Start("student-1", "exam-1"); !errors.Is(err, ErrDuplicateSession) {
		t.Errorf("expected ErrDuplicateSession, got %v", err)
	}
	// different exam or student is fine
	if _, err := r.Start("student-1", "exam-2"); err != nil {
		t.Errorf("different exam: %v", err)
	}
	if _, err := r.Start("student-2", "exam-1"); err != nil {
		t.Errorf("different student: %v", err)
	}
}

func TestRegistryRestartAfterEnd(t *testing.T) {
	r := NewRegistry()
	snap, err := r.Start("student-1", "exam-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.do(snap.SessionID, func(s *session) {
		s.end(StatusCompleted, s.startTime)
	}); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := r.Start("student-1", "exam-1"); err != nil {
		t.Errorf("restart after completion should succeed, got %v", err)
	}
}

func TestRegistryDoAfterEnd(t *testing.T) {
	r := NewRegistry()
	snap, err := r.Start("student-1", "exam-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.do(snap.SessionID, func(s *session) {
		s.end(StatusTerminated, s.startTime)
	}); err != nil {
		t.Fatalf("end: %v", err)
	}
	err = r.do(snap.SessionID, func(s *session) {
		t.Error("task ran on an ended session")
	})
	if !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("expected ErrSessionNotActive, got %v", err)
	}
	// ended sessions remain queryable
	got, err := r.Get(snap.SessionID)
	if err != nil {
		t.Fatalf("get after end: %v", err)
	}
	if got.Status != StatusTerminated {
		t.Errorf("expected terminated, got %s", got.Status)
	}
}

func TestRegistryListByStudentAndExam(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Start("student-1", "exam-1")
	b, _ := r.Start("student-1", "exam-2")
	c, _ := r.Start("student-2", "exam-1")

	byStudent := r.ListByStudent("student-1")
	if len(byStudent) != 2 {
		t.Fatalf("expected 2 sessions for student-1, got %d", len(byStudent))
	}
	if byStudent[0].SessionID != a.SessionID || byStudent[1].SessionID != b.SessionID {
		t.Errorf("sessions not ordered by start time: %s, %s", byStudent[0].SessionID, byStudent[1].SessionID)
	}

	byExam := r.ListByExam("exam-1")
	if len(byExam) != 2 {
		t.Fatalf("expected 2 sessions for exam-1, got %d", len(byExam))
	}
	for _, s := range byExam {
		if s.SessionID != a.SessionID && s.SessionID != c.SessionID {
			t.Errorf("unexpected session %s in exam-1 listing", s.SessionID)
		}
	}

	if got := r.ListByStudent("student-9"); len(got) != 0 {
		t.Errorf("expected empty listing, got %d", len(got))
	}
}

func TestRegistryListingsFollowCreationOrder(t *testing.T) {
	r := NewRegistry()
	var want []string
	// tight loop: on a coarse clock most of these share a start timestamp
	for i := 0; i < 20; i++ {
		snap, err := r.Start("student-1", fmt.Sprintf("exam-%02d", i))
		if err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		want = append(want, snap.SessionID)
	}

	got := r.ListByStudent("student-1")
	if len(got) != len(want) {
		t.Fatalf("expected %d sessions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].SessionID != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, got[i].SessionID, want[i])
		}
	}
}

func TestSnapshotEventsAreCopies(t *testing.T) {
	r := NewRegistry()
	snap, _ := r.Start("student-1", "exam-1")
	if err := r.do(snap.SessionID, func(s *session) {
		s.events = append(s.events, Event{ID: "ev-1", Type: EventRightClick})
		s.riskScore += 2
	}); err != nil {
		t.Fatalf("do: %v", err)
	}
	got, _ := r.Get(snap.SessionID)
	got.Events[0].ID = "mutated"
	again, _ := r.Get(snap.SessionID)
	if again.Events[0].ID != "ev-1" {
		t.Error("snapshot mutation leaked into the canonical event log")
	}
}
