package chat

import (
	"context"
	"errors"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// State is the session's request state.
type State string

const (
	StateIdle     State = "idle"
	StateAwaiting State = "awaiting_response"
)

var (
	ErrBusy            = errors.New("session is awaiting a response")
	ErrEmptyMessage    = errors.New("message content is required")
	ErrSessionNotFound = errors.New("session not found")
)

// Message is one entry in a session log.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Query is what a session sends to the inference backend.
type Query struct {
	OwnerID    string
	SessionID  string
	Text       string
	Generation uint64
}

// Reply is the assistant answer for a Query. Generation echoes the query's.
type Reply struct {
	Message    Message
	Generation uint64
}

// Asker answers queries. Implementations always return a reply, never an error.
type Asker interface {
	Ask(ctx context.Context, q Query) Reply
}

// AskerFunc adapts a function to Asker.
type AskerFunc func(ctx context.Context, q Query) Reply

func (f AskerFunc) Ask(ctx context.Context, q Query) Reply { return f(ctx, q) }
