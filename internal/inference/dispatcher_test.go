package inference

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docchat-backend/internal/chat"
	"docchat-backend/internal/shared/telemetry"
)

type clientFunc func(ctx context.Context, ownerID, query string) (string, error)

func (f clientFunc) Chat(ctx context.Context, ownerID, query string) (string, error) {
	return f(ctx, ownerID, query)
}

func quietLogs(t *testing.T) {
	t.Helper()
	restore := telemetry.SetOutput(&bytes.Buffer{})
	t.Cleanup(restore)
}

func TestDispatcherReturnsAnswerWithGeneration(t *testing.T) {
	quietLogs(t)
	d := NewDispatcher(clientFunc(func(ctx context.Context, ownerID, query string) (string, error) {
		return "echo: " + query, nil
	}), time.Second)

	reply := d.Ask(context.Background(), chat.Query{OwnerID: "u1", Text: "hi", Generation: 3})
	if reply.Message.Content != "echo: hi" {
		t.Fatalf("unexpected content %q", reply.Message.Content)
	}
	if reply.Message.Role != chat.RoleAssistant || reply.Generation != 3 {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestDispatcherApologizesOnFailures(t *testing.T) {
	quietLogs(t)
	failures := map[string]Client{
		"transport": clientFunc(func(context.Context, string, string) (string, error) {
			return "", errors.New("connection refused")
		}),
		"status": clientFunc(func(context.Context, string, string) (string, error) {
			return "", &StatusError{StatusCode: 500}
		}),
		"empty": clientFunc(func(context.Context, string, string) (string, error) {
			return "", ErrEmptyAnswer
		}),
		"panic": clientFunc(func(context.Context, string, string) (string, error) {
			panic("boom")
		}),
	}
	for name, client := range failures {
		t.Run(name, func(t *testing.T) {
			reply := NewDispatcher(client, time.Second).Ask(context.Background(), chat.Query{Text: "hi", Generation: 1})
			if reply.Message.Content != ApologyText {
				t.Fatalf("expected apology, got %q", reply.Message.Content)
			}
			if reply.Generation != 1 {
				t.Fatalf("expected generation 1, got %d", reply.Generation)
			}
		})
	}
}

func TestDispatcherTimeoutYieldsApology(t *testing.T) {
	quietLogs(t)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(`{"response":"too late"}`))
	}))
	defer srv.Close()
	defer close(release)

	client, err := NewHTTPClient(srv.URL, nil)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	d := NewDispatcher(client, 50*time.Millisecond)

	start := time.Now()
	reply := d.Ask(context.Background(), chat.Query{OwnerID: "u1", Text: "slow?"})
	if reply.Message.Content != ApologyText {
		t.Fatalf("expected apology, got %q", reply.Message.Content)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout not enforced, took %s", elapsed)
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]error{
		"timeout":   context.DeadlineExceeded,
		"status":    &StatusError{StatusCode: 502},
		"malformed": ErrMalformedResponse,
		"transport": errors.New("dial tcp"),
	}
	for want, err := range cases {
		if got := classify(err); got != want {
			t.Fatalf("classify(%v) = %s, want %s", err, got, want)
		}
	}
}
