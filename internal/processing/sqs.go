package processing

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSAPI is the subset of the SQS client used to enqueue messages.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSender enqueues notifications; cmd/worker relays them to the webhook.
type SQSSender struct {
	client   SQSAPI
	queueURL string
}

// NewSQSSender constructs an SQS-backed sender.
func NewSQSSender(ctx context.Context, region, queueURL string) (*SQSSender, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, fmt.Errorf("PROCESSING_QUEUE_URL is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQSSender{client: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

// NewSQSSenderWithClient wraps an existing client.
func NewSQSSenderWithClient(client SQSAPI, queueURL string) *SQSSender {
	return &SQSSender{client: client, queueURL: queueURL}
}

// Send delivers a message to the configured SQS queue.
func (s *SQSSender) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	return nil
}

var _ Sender = (*SQSSender)(nil)
