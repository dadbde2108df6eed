package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	chatPath         = "/chat"
	maxResponseBytes = 1 << 20
)

var (
	// ErrMalformedResponse means the body was not a JSON object.
	ErrMalformedResponse = errors.New("malformed inference response")
	// ErrEmptyAnswer means neither response nor message carried text.
	ErrEmptyAnswer = errors.New("inference response has no answer")
)

// StatusError reports a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference backend status %d", e.StatusCode)
}

// Client sends one query to the inference backend and returns the answer text.
type Client interface {
	Chat(ctx context.Context, ownerID, query string) (string, error)
}

// HTTPClient implements Client against POST {base}/chat.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient builds a client. Deadlines come from the caller's context.
func NewHTTPClient(baseURL string, httpClient *http.Client) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("inference base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPClient{baseURL: baseURL, httpClient: httpClient}, nil
}

type chatRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

func (c *HTTPClient) Chat(ctx context.Context, ownerID, query string) (string, error) {
	payload, err := json.Marshal(chatRequest{Query: query, UserID: ownerID})
	if err != nil {
		return "", fmt.Errorf("encode query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post query: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode}
	}
	return ParseAnswer(body)
}

// ParseAnswer extracts the answer text from a backend body. The response field
// wins over message; a field that is not a non-blank string counts as absent.
func ParseAnswer(body []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return "", ErrMalformedResponse
	}
	for _, key := range []string{"response", "message"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return "", ErrEmptyAnswer
}

var _ Client = (*HTTPClient)(nil)
