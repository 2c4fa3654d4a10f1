package proctoring

import (
	"sync"
	"time"
)

// task is one unit of per-session work, executed serially by the session's
// worker goroutine.
type task func(*session)

// entry pairs a session with its worker. All mutation funnels through the
// inbox so score accumulation and status transitions are race-free; readers
// take snapshots under the read lock.
type entry struct {
	mu     sync.RWMutex
	sess   *session
	inbox  chan task
	wg     sync.WaitGroup // in-flight submitters
	closed bool           // no new submissions accepted
}

func newEntry(s *session) *entry {
	e := &entry{
		sess:  s,
		inbox: make(chan task, 64),
	}
	go e.run()
	return e
}

// run is the per-session worker. It exits once the session has ended and the
// last in-flight submission has drained.
func (e *entry) run() {
	for fn := range e.inbox {
		e.mu.Lock()
		fn(e.sess)
		ended := e.sess.status.Ended()
		alreadyClosed := e.closed
		if ended {
			e.closed = true
		}
		e.mu.Unlock()
		if ended && !alreadyClosed {
			// Stop accepting work, then close the inbox once every
			// submitter that slipped in has finished. Queued tasks
			// still run; they observe the ended status and refuse.
			go func() {
				e.wg.Wait()
				close(e.inbox)
			}()
		}
	}
}

// submit schedules fn on the session worker and waits for it to run.
// Returns ErrSessionNotActive once the session has ended.
func (e *entry) submit(fn task) error {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return ErrSessionNotActive
	}
	e.wg.Add(1)
	e.mu.RUnlock()
	defer e.wg.Done()

	done := make(chan struct{})
	e.inbox <- func(s *session) {
		fn(s)
		close(done)
	}
	<-done
	return nil
}

func (e *entry) snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sess.snapshot()
}

// Registry is the concurrency-safe store of all sessions, live and ended.
// It exclusively owns the canonical session objects; sessions are never
// evicted, only ended.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry // by session id
	order   []*entry          // creation order, for stable listings
	active  map[string]string // student+exam -> session id, while not ended
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		active:  make(map[string]string),
	}
}

func pairKey(studentID, examID string) string {
	return studentID + "\x00" + examID
}

// Start creates a new active session for the pair. At most one active
// session may exist per (student, exam); a second attempt fails with
// ErrDuplicateSession.
func (r *Registry) Start(studentID, examID string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(studentID, examID)
	if prevID, ok := r.active[key]; ok {
		if prev, ok := r.entries[prevID]; ok && !prev.snapshot().Status.Ended() {
			return Snapshot{}, ErrDuplicateSession
		}
		delete(r.active, key)
	}

	s := newSession(studentID, examID, time.Now().UTC())
	e := newEntry(s)
	r.entries[s.id] = e
	r.order = append(r.order, e)
	r.active[key] = s.id
	return e.snapshot(), nil
}

// do runs fn on the session's worker. ErrSessionNotFound for unknown ids,
// ErrSessionNotActive once the session has ended.
func (r *Registry) do(sessionID string, fn task) error {
	r.mu.RLock()
	e, ok := r.entries[sessionID]
	r.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	return e.submit(fn)
}

// Get returns the current snapshot of a session.
func (r *Registry) Get(sessionID string) (Snapshot, error) {
	r.mu.RLock()
	e, ok := r.entries[sessionID]
	r.mu.RUnlock()
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	return e.snapshot(), nil
}

// ListByStudent returns snapshots of every session for the student, oldest
// first.
func (r *Registry) ListByStudent(studentID string) []Snapshot {
	return r.list(func(s Snapshot) bool { return s.StudentID == studentID })
}

// ListByExam returns snapshots of every session for the exam, oldest first.
func (r *Registry) ListByExam(examID string) []Snapshot {
	return r.list(func(s Snapshot) bool { return s.ExamID == examID })
}

// list walks sessions in creation order, so listings stay deterministic even
// when start timestamps collide on a coarse clock.
func (r *Registry) list(keep func(Snapshot) bool) []Snapshot {
	r.mu.RLock()
	entries := make([]*entry, len(r.order))
	copy(entries, r.order)
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(entries))
	for _, e := range entries {
		if snap := e.snapshot(); keep(snap) {
			out = append(out, snap)
		}
	}
	return out
}
