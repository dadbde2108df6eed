package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docchat-backend/internal/processing"
	"docchat-backend/internal/shared/metrics"
	"docchat-backend/internal/shared/telemetry"
)

const defaultCleanupTimeout = 10 * time.Second

// Notifier hands a processing message off without waiting for delivery.
type Notifier interface {
	Dispatch(msg processing.Message)
}

// Coordinator runs one upload through validate, put, record and notify.
// Ingest calls share no state, so concurrent uploads proceed independently.
type Coordinator struct {
	Policy         Policy
	Gateway        *Gateway
	Notifier       Notifier
	CleanupTimeout time.Duration
	NewID          func() string
}

// NewCoordinator constructs a Coordinator. notifier may be nil to disable notifications.
func NewCoordinator(policy Policy, gateway *Gateway, notifier Notifier, cleanupTimeout time.Duration) *Coordinator {
	if cleanupTimeout <= 0 {
		cleanupTimeout = defaultCleanupTimeout
	}
	return &Coordinator{
		Policy:         policy,
		Gateway:        gateway,
		Notifier:       notifier,
		CleanupTimeout: cleanupTimeout,
		NewID:          uuid.NewString,
	}
}

// Ingest always returns exactly one terminal outcome.
func (c *Coordinator) Ingest(ctx context.Context, ownerID, fileName, mediaType string, data []byte) IngestResult {
	requestID := RequestIDFromContext(ctx)
	fields := map[string]any{
		"request_id": requestID,
		"user_id":    ownerID,
		"file_name":  fileName,
		"media_type": mediaType,
		"size_bytes": len(data),
	}

	if strings.TrimSpace(ownerID) == "" {
		return c.finish(IngestResult{Outcome: OutcomeRejectedValidation, Err: fmt.Errorf("%w: owner is required", ErrInvalidInput)}, fields)
	}

	decision := c.Policy.Validate(mediaType, int64(len(data)))
	if !decision.Accepted {
		return c.finish(IngestResult{
			Outcome: OutcomeRejectedValidation,
			Reason:  decision.Reason,
			Err:     fmt.Errorf("%w: %s", ErrValidation, decision.Reason),
		}, fields)
	}

	stored, err := c.Gateway.Put(ctx, ownerID, fileName, NormalizeMediaType(mediaType), data)
	if err != nil {
		return c.finish(IngestResult{Outcome: OutcomeFailedStorage, Err: err}, fields)
	}
	fields["storage_path"] = stored.Path

	doc := Document{
		ID:          c.NewID(),
		OwnerID:     ownerID,
		FileName:    fileName,
		StoragePath: stored.Path,
		SizeBytes:   stored.SizeBytes,
		MediaType:   NormalizeMediaType(mediaType),
		CreatedAt:   stored.CreatedAt,
	}
	doc, err = c.Gateway.RecordMetadata(ctx, doc)
	if err != nil {
		c.cleanup(ctx, stored.Path, fields)
		return c.finish(IngestResult{Outcome: OutcomeFailedMetadata, Err: err}, fields)
	}
	fields["document_id"] = doc.ID

	if c.Notifier != nil {
		c.Notifier.Dispatch(processing.NewMessage(processing.Notification{
			FileName: doc.FileName,
			FilePath: doc.StoragePath,
			UserID:   ownerID,
		}, doc.ID, requestID))
	}

	return c.finish(IngestResult{Outcome: OutcomeAccepted, Document: &doc}, fields)
}

// cleanup makes one bounded attempt to remove orphaned bytes. It runs even if the
// caller has gone away, and its failure never changes the outcome.
func (c *Coordinator) cleanup(ctx context.Context, path string, fields map[string]any) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.CleanupTimeout)
	defer cancel()
	if err := c.Gateway.RemoveBytes(cleanupCtx, path); err != nil {
		logFields := copyFields(fields)
		logFields["error"] = err.Error()
		telemetry.Error("ingest.cleanup_failed", logFields)
		metrics.IncCleanupFailed()
	}
}

func (c *Coordinator) finish(res IngestResult, fields map[string]any) IngestResult {
	metrics.IncUploadOutcome(string(res.Outcome))
	logFields := copyFields(fields)
	logFields["outcome"] = string(res.Outcome)
	switch res.Outcome {
	case OutcomeAccepted:
		telemetry.Info("ingest.complete", logFields)
	case OutcomeRejectedValidation:
		if res.Reason != "" {
			logFields["reason"] = string(res.Reason)
		}
		telemetry.Info("ingest.rejected", logFields)
	default:
		if res.Err != nil {
			logFields["error"] = res.Err.Error()
		}
		telemetry.Error("ingest.failed", logFields)
	}
	return res
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Delete removes one of the owner's documents, bytes first.
func (c *Coordinator) Delete(ctx context.Context, ownerID, documentID string) error {
	doc, err := c.Gateway.Get(ctx, ownerID, documentID)
	if err != nil {
		return err
	}
	if err := c.Gateway.DeletePair(ctx, doc); err != nil {
		var delErr *DeleteError
		if errors.As(err, &delErr) && delErr.Partial {
			telemetry.Error("document.delete_partial", map[string]any{
				"request_id":   RequestIDFromContext(ctx),
				"document_id":  doc.ID,
				"storage_path": doc.StoragePath,
				"error":        delErr.Err.Error(),
			})
		}
		return err
	}
	return nil
}
