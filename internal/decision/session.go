package decision

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/accuread/internal/quality"
)

// State is the lifecycle stage of a capture session.
type State string

// Session states.
const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateAccepted  State = "accepted"
)

// DefaultShortlist is the number of candidates kept for recognition when a
// session accepts.
const DefaultShortlist = 3

// Outcome is what an accepted session hands to recognition.
type Outcome[T any] struct {
	Decision CaptureDecision
	Chosen   Candidate[T]
	// Shortlist starts with Chosen, then the best other candidates by score.
	Shortlist []Candidate[T]
}

// Status is a point-in-time view of a session.
type Status struct {
	ID           string          `json:"id"`
	State        State           `json:"state"`
	Buffered     int             `json:"buffered"`
	Capacity     int             `json:"capacity"`
	Frames       int             `json:"frames"`
	LastDecision CaptureDecision `json:"last_decision"`
	StartedAt    time.Time       `json:"started_at"`
}

// Session owns the candidate buffer of one capture. Offer and Cancel
// are the only mutation points and are serialised by a mutex, so frames may
// arrive from a background goroutine.
type Session[T any] struct {
	id        string
	policy    *Policy
	shortlist int

	mu      sync.Mutex
	state   State
	buf     *Buffer[T]
	frames  int
	last    CaptureDecision
	outcome *Outcome[T]
	started time.Time
}

// NewSession creates an idle session. capacity bounds the candidate buffer
// and shortlist bounds how many candidates are kept on acceptance.
func NewSession[T any](policy *Policy, capacity, shortlist int) *Session[T] {
	if shortlist <= 0 {
		shortlist = DefaultShortlist
	}
	return &Session[T]{
		id:        uuid.NewString(),
		policy:    policy,
		shortlist: shortlist,
		state:     StateIdle,
		buf:       NewBuffer[T](capacity),
		last:      CaptureDecision{ChosenIndex: -1, Reason: ReasonNone},
	}
}

// ID returns the session identifier.
func (s *Session[T]) ID() string {
	return s.id
}

// Offer admits a scored frame and decides on it. The first offer moves the
// session from idle to streaming. An acceptable frame ends the session in
// the accepted state; later offers are ignored and repeat that decision.
func (s *Session[T]) Offer(item T, v quality.Verdict) CaptureDecision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateAccepted {
		return s.last
	}
	if s.state == StateIdle {
		s.state = StateStreaming
		s.started = time.Now()
	}

	idx := s.buf.Admit(item, v, v.CompositeScore)
	s.frames++

	d := s.policy.Decide(v)
	if d.Accepted {
		d.ChosenIndex = idx
		chosen := s.buf.At(idx)
		s.outcome = &Outcome[T]{
			Decision:  d,
			Chosen:    chosen,
			Shortlist: s.shortlistFor(chosen),
		}
		s.state = StateAccepted
		s.buf.Clear()
	}
	s.last = d
	return d
}

// shortlistFor returns the chosen candidate followed by the best-scoring
// other buffered candidates. Caller holds s.mu.
func (s *Session[T]) shortlistFor(chosen Candidate[T]) []Candidate[T] {
	out := make([]Candidate[T], 0, s.shortlist)
	out = append(out, chosen)
	for _, c := range s.buf.SelectBest(s.buf.Len()) {
		if len(out) == s.shortlist {
			break
		}
		if c.Seq == chosen.Seq {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Best returns up to count buffered candidates by score, newest first on ties.
func (s *Session[T]) Best(count int) []Candidate[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.SelectBest(count)
}

// Outcome returns the accepted outcome, or false while not accepted.
func (s *Session[T]) Outcome() (Outcome[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome == nil {
		return Outcome[T]{}, false
	}
	return *s.outcome, true
}

// Cancel discards buffered frames and returns the session to idle. An
// accepted session is final and Cancel leaves it untouched.
func (s *Session[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateAccepted {
		return
	}
	s.buf.Clear()
	s.state = StateIdle
	s.frames = 0
	s.outcome = nil
	s.last = CaptureDecision{ChosenIndex: -1, Reason: ReasonNone}
}

// State returns the current lifecycle state.
func (s *Session[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot for reporting.
func (s *Session[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		ID:           s.id,
		State:        s.state,
		Buffered:     s.buf.Len(),
		Capacity:     s.buf.Cap(),
		Frames:       s.frames,
		LastDecision: s.last,
		StartedAt:    s.started,
	}
}
