package respond

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docchat-backend/internal/shared/telemetry"
)

func TestErrorWritesEnvelopeAndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	restore := telemetry.SetOutput(&logs)
	defer restore()

	router := gin.New()
	router.GET("/x", func(c *gin.Context) {
		c.Set("requestId", "req-1")
		Error(c, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload limit", gin.H{"reason": "too-large"})
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x", nil))

	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "too_large" {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
	if !strings.Contains(logs.String(), `"level":"warn"`) || !strings.Contains(logs.String(), `"request_id":"req-1"`) {
		t.Fatalf("unexpected log output %s", logs.String())
	}
}
