package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"docchat-backend/internal/bootstrap"
	"docchat-backend/internal/processing"
	"docchat-backend/internal/shared/config"
	"docchat-backend/internal/shared/metrics"
	"docchat-backend/internal/shared/telemetry"
)

var (
	initOnce sync.Once
	initErr  error
	relay    processing.Relay
)

func initRelay() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}
	sender, err := bootstrap.NewRelaySender(cfg)
	if err != nil {
		initErr = err
		return
	}
	relay = processing.Relay{Sender: sender}
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initRelay)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return handleBatch(ctx, relay, event), nil
}

// handleBatch reports only retryable failures; malformed records are dropped.
func handleBatch(ctx context.Context, r processing.Relay, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncRelayReceived()
		msg, err := r.HandleMessage(ctx, record.Body)
		if err == nil {
			metrics.IncNotificationSent()
			continue
		}
		fields := map[string]any{
			"sqs_message_id": record.MessageId,
			"document_id":    msg.DocumentID,
			"error":          err.Error(),
		}
		if processing.Permanent(err) {
			telemetry.Error("relay.notification.unrecoverable", fields)
			continue
		}
		telemetry.Warn("relay.notification.failed", fields)
		metrics.IncNotificationFailed()
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
