package processing

import (
	"context"
	"sync"
	"time"

	"docchat-backend/internal/shared/metrics"
	"docchat-backend/internal/shared/telemetry"
)

// Async runs each notification as a detached task. Callers never wait on
// delivery and never see its errors; failures are logged and counted.
type Async struct {
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps sender. timeout bounds each delivery attempt.
func NewAsync(sender Sender, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Async{sender: sender, timeout: timeout}
}

// Dispatch starts delivery and returns immediately.
func (a *Async) Dispatch(msg Message) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		start := time.Now()
		err := a.sender.Send(ctx, msg)
		fields := map[string]any{
			"document_id": msg.DocumentID,
			"request_id":  msg.RequestID,
			"file_path":   msg.FilePath,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
		}
		if err != nil {
			fields["error"] = err.Error()
			telemetry.Warn("processing.notify_failed", fields)
			metrics.IncNotificationFailed()
			return
		}
		telemetry.Info("processing.notified", fields)
		metrics.IncNotificationSent()
	}()
}

// Wait blocks until in-flight deliveries finish or ctx ends.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
