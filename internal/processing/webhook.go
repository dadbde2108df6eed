package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const uploadDocumentPath = "/upload-document"

// WebhookSender posts notifications to {base}/upload-document.
type WebhookSender struct {
	baseURL    string
	httpClient *http.Client
}

// NewWebhookSender builds a sender. The timeout bounds each request.
func NewWebhookSender(baseURL string, timeout time.Duration) (*WebhookSender, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("processing base url is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WebhookSender{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Send posts the notification body. Only the response status is inspected.
func (w *WebhookSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg.Notification)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+uploadDocumentPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if msg.RequestID != "" {
		req.Header.Set("X-Request-Id", msg.RequestID)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("processing backend status %d", resp.StatusCode)
	}
	return nil
}

var _ Sender = (*WebhookSender)(nil)
