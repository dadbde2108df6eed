package processing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookSenderPostsNotificationBody(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender, err := NewWebhookSender(srv.URL+"/webhook-test/", time.Second)
	if err != nil {
		t.Fatalf("NewWebhookSender: %v", err)
	}
	msg := NewMessage(Notification{FileName: "a.pdf", FilePath: "k/1_a.pdf", UserID: "u1"}, "doc-1", "req-1")
	if err := sender.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotPath != "/webhook-test/upload-document" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if len(gotBody) != 3 {
		t.Fatalf("expected exactly file_name, file_path, user_id; got %v", gotBody)
	}
	if gotBody["file_path"] != "k/1_a.pdf" || gotBody["user_id"] != "u1" || gotBody["file_name"] != "a.pdf" {
		t.Fatalf("unexpected body %v", gotBody)
	}
}

func TestWebhookSenderFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sender, err := NewWebhookSender(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewWebhookSender: %v", err)
	}
	if err := sender.Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected error on 502")
	}
}

func TestNewWebhookSenderRequiresBaseURL(t *testing.T) {
	if _, err := NewWebhookSender("  ", time.Second); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
