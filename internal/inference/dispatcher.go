package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docchat-backend/internal/chat"
	"docchat-backend/internal/shared/metrics"
	"docchat-backend/internal/shared/telemetry"
)

// ApologyText is the assistant message used whenever the backend cannot answer.
const ApologyText = "Sorry, I couldn't process your request right now. Please try again later."

const defaultTimeout = 60 * time.Second

// Dispatcher turns every query into exactly one assistant reply.
type Dispatcher struct {
	Client  Client
	Timeout time.Duration
	now     func() time.Time
}

// NewDispatcher constructs a Dispatcher. timeout bounds each backend call.
func NewDispatcher(client Client, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{Client: client, Timeout: timeout, now: time.Now}
}

// Ask never fails. Any backend failure, a panicking client included, produces the
// apology message.
func (d *Dispatcher) Ask(ctx context.Context, q chat.Query) (reply chat.Reply) {
	metrics.IncInferenceRequest()
	start := d.now()
	fields := map[string]any{
		"session_id": q.SessionID,
		"user_id":    q.OwnerID,
		"generation": q.Generation,
	}

	defer func() {
		if rec := recover(); rec != nil {
			reply = d.apology(q, fmt.Errorf("inference client panic: %v", rec), start, fields)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	answer, err := d.Client.Chat(callCtx, q.OwnerID, q.Text)
	if err != nil {
		return d.apology(q, err, start, fields)
	}

	elapsed := d.now().Sub(start)
	metrics.ObserveInferenceDurationMs(float64(elapsed.Microseconds()) / 1000.0)
	fields["duration_ms"] = float64(elapsed.Microseconds()) / 1000.0
	telemetry.Info("inference.answered", fields)
	return d.reply(q, answer)
}

func (d *Dispatcher) apology(q chat.Query, err error, start time.Time, fields map[string]any) chat.Reply {
	elapsed := d.now().Sub(start)
	metrics.IncInferenceFailed()
	metrics.ObserveInferenceDurationMs(float64(elapsed.Microseconds()) / 1000.0)
	fields["duration_ms"] = float64(elapsed.Microseconds()) / 1000.0
	fields["error"] = err.Error()
	fields["failure"] = classify(err)
	telemetry.Warn("inference.failed", fields)
	return d.reply(q, ApologyText)
}

func (d *Dispatcher) reply(q chat.Query, text string) chat.Reply {
	return chat.Reply{
		Message: chat.Message{
			Role:      chat.RoleAssistant,
			Content:   text,
			Timestamp: d.now().UTC(),
		},
		Generation: q.Generation,
	}
}

func classify(err error) string {
	var statusErr *StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrEmptyAnswer):
		return "empty"
	default:
		return "transport"
	}
}

var _ chat.Asker = (*Dispatcher)(nil)
