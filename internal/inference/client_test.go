package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientPostsQuery(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"response":"42"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL+"/webhook/", nil)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	answer, err := client.Chat(context.Background(), "u1", "meaning of life?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "42" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if gotPath != "/webhook/chat" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotBody["query"] != "meaning of life?" || gotBody["user_id"] != "u1" {
		t.Fatalf("unexpected body %v", gotBody)
	}
}

func TestHTTPClientNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"response":"ignored"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, nil)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	_, err = client.Chat(context.Background(), "u1", "hi")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected StatusError 503, got %v", err)
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{name: "response wins", body: `{"response":"a","message":"b"}`, want: "a"},
		{name: "message fallback", body: `{"message":"b"}`, want: "b"},
		{name: "blank response falls through", body: `{"response":"  ","message":"b"}`, want: "b"},
		{name: "non-string response falls through", body: `{"response":{"x":1},"message":"b"}`, want: "b"},
		{name: "verbatim text", body: `{"response":"  spaced\n"}`, want: "  spaced\n"},
		{name: "neither field", body: `{"output":"x"}`, wantErr: ErrEmptyAnswer},
		{name: "not json", body: `<html>`, wantErr: ErrMalformedResponse},
		{name: "array body", body: `["a"]`, wantErr: ErrMalformedResponse},
		{name: "null body", body: `null`, wantErr: ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnswer([]byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient("", nil); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
