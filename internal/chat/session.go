package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"docchat-backend/internal/shared/metrics"
	"docchat-backend/internal/shared/telemetry"
)

// Session is one conversation. At most one query is in flight at a time, the log
// only grows between clears, and each accepted user message is answered exactly once.
type Session struct {
	ID      string
	OwnerID string

	asker Asker
	now   func() time.Time

	mu         sync.Mutex
	log        []Message
	state      State
	generation uint64
	pending    *Turn
	createdAt  time.Time
	updatedAt  time.Time

	// tracked, when set, counts this session's queries in the owning Manager.
	tracked *sync.WaitGroup
}

// Turn tracks one submitted message until its reply resolves.
type Turn struct {
	Generation uint64

	done     chan struct{}
	reply    Message
	appended bool
}

// View is a point-in-time copy of a session.
type View struct {
	ID         string    `json:"sessionId"`
	State      State     `json:"state"`
	Generation uint64    `json:"generation"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewSession constructs an idle session at generation zero.
func NewSession(id, ownerID string, asker Asker, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	t := now().UTC()
	return &Session{
		ID:        id,
		OwnerID:   ownerID,
		asker:     asker,
		now:       now,
		state:     StateIdle,
		createdAt: t,
		updatedAt: t,
	}
}

// Submit appends a user message and starts the query. It returns ErrBusy, leaving
// the log untouched, while a previous query is unresolved. The query outlives ctx.
func (s *Session) Submit(ctx context.Context, text string) (*Turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.state == StateAwaiting {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	at := s.now().UTC()
	s.log = append(s.log, Message{Role: RoleUser, Content: text, Timestamp: at})
	s.state = StateAwaiting
	s.updatedAt = at
	turn := &Turn{Generation: s.generation, done: make(chan struct{})}
	s.pending = turn
	q := Query{OwnerID: s.OwnerID, SessionID: s.ID, Text: text, Generation: s.generation}
	if s.tracked != nil {
		s.tracked.Add(1)
	}
	s.mu.Unlock()

	askCtx := context.WithoutCancel(ctx)
	go func() {
		if s.tracked != nil {
			defer s.tracked.Done()
		}
		s.resolve(turn, s.asker.Ask(askCtx, q))
	}()
	return turn, nil
}

// resolve appends the reply if its turn is still the pending one of the current generation.
func (s *Session) resolve(turn *Turn, reply Reply) {
	s.mu.Lock()
	msg := reply.Message
	msg.Role = RoleAssistant
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now().UTC()
	}
	current := s.pending == turn && reply.Generation == s.generation
	if current {
		s.log = append(s.log, msg)
		s.state = StateIdle
		s.pending = nil
		s.updatedAt = msg.Timestamp
	}
	generation := s.generation
	s.mu.Unlock()

	if !current {
		metrics.IncStaleReplyDiscarded()
		telemetry.Info("chat.reply_discarded", map[string]any{
			"session_id":       s.ID,
			"user_id":          s.OwnerID,
			"reply_generation": reply.Generation,
			"generation":       generation,
		})
	}

	// Waiters observe the log line and metric once done is closed.
	turn.reply = msg
	turn.appended = current
	close(turn.done)
}

// Clear drops the log and returns to idle. Any reply still in flight is discarded when it lands.
func (s *Session) Clear() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
	s.state = StateIdle
	s.pending = nil
	s.generation++
	s.updatedAt = s.now().UTC()
	return s.generation
}

// Messages returns a copy of the log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.log...)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// View returns a snapshot for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := append([]Message{}, s.log...)
	return View{
		ID:         s.ID,
		State:      s.state,
		Generation: s.generation,
		Messages:   msgs,
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
	}
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt, s.state == StateIdle
}

// Done is closed once the turn has resolved.
func (t *Turn) Done() <-chan struct{} { return t.done }

// Wait returns the assistant message for the turn and whether it was appended to
// the log. A reply that arrived after a clear is returned with appended false.
func (t *Turn) Wait(ctx context.Context) (Message, bool, error) {
	select {
	case <-t.done:
		return t.reply, t.appended, nil
	case <-ctx.Done():
		return Message{}, false, ctx.Err()
	}
}
