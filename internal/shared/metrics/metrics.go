package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	uploadOutcomes = newCounterVec()

	cleanupFailedTotal      atomic.Uint64
	notificationsSentTotal  atomic.Uint64
	notificationFailedTotal atomic.Uint64
	inferenceRequestsTotal  atomic.Uint64
	inferenceFailedTotal    atomic.Uint64
	staleRepliesTotal       atomic.Uint64
	relayReceivedTotal      atomic.Uint64
	relayDeletedTotal       atomic.Uint64

	inferenceDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncUploadOutcome counts a terminal ingestion outcome.
func IncUploadOutcome(outcome string) {
	uploadOutcomes.Inc(outcome)
}

func IncCleanupFailed()       { cleanupFailedTotal.Add(1) }
func IncNotificationSent()    { notificationsSentTotal.Add(1) }
func IncNotificationFailed()  { notificationFailedTotal.Add(1) }
func IncInferenceRequest()    { inferenceRequestsTotal.Add(1) }
func IncInferenceFailed()     { inferenceFailedTotal.Add(1) }
func IncStaleReplyDiscarded() { staleRepliesTotal.Add(1) }
func IncRelayReceived()       { relayReceivedTotal.Add(1) }
func IncRelayDeleted()        { relayDeletedTotal.Add(1) }

// ObserveInferenceDurationMs records an inference round trip in milliseconds.
func ObserveInferenceDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	inferenceDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounterVec(&buf, "document_uploads_total", "Document uploads by outcome", "outcome", uploadOutcomes.Snapshot())
	writeCounter(&buf, "document_cleanup_failed_total", "Compensating object removals that failed", cleanupFailedTotal.Load())
	writeCounter(&buf, "processing_notifications_sent_total", "Processing notifications delivered", notificationsSentTotal.Load())
	writeCounter(&buf, "processing_notifications_failed_total", "Processing notifications that failed", notificationFailedTotal.Load())
	writeCounter(&buf, "inference_requests_total", "Inference requests dispatched", inferenceRequestsTotal.Load())
	writeCounter(&buf, "inference_failed_total", "Inference requests answered with the apology message", inferenceFailedTotal.Load())
	writeCounter(&buf, "chat_stale_replies_total", "Replies discarded after a session clear", staleRepliesTotal.Load())
	writeCounter(&buf, "relay_messages_received_total", "Queued notifications received by the relay", relayReceivedTotal.Load())
	writeCounter(&buf, "relay_messages_deleted_total", "Queued notifications deleted by the relay", relayDeletedTotal.Load())
	writeHistogram(&buf, "inference_duration_ms", "Inference round trip in milliseconds", inferenceDuration.Snapshot())
	return buf.String()
}

type counterVec struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newCounterVec() *counterVec {
	return &counterVec{values: make(map[string]uint64)}
}

func (v *counterVec) Inc(label string) {
	v.mu.Lock()
	v.values[label]++
	v.mu.Unlock()
}

func (v *counterVec) Snapshot() map[string]uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]uint64, len(v.values))
	for k, n := range v.values {
		out[k] = n
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value into the first bucket whose bound holds it.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeCounterVec(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
