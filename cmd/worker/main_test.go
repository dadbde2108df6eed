package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"docchat-backend/internal/processing"
)

type fakeSQS struct {
	deleted   []string
	deleteErr error
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeSender struct {
	err  error
	sent []processing.Message
}

func (f *fakeSender) Send(ctx context.Context, msg processing.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func queuedMessage(t *testing.T, id string) sqstypes.Message {
	t.Helper()
	body, err := processing.EncodeMessage(processing.NewMessage(processing.Notification{
		FileName: "report.pdf",
		FilePath: "uploads/user-1/report.pdf",
		UserID:   "user-1",
	}, "doc-"+id, "req-"+id))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String("m" + id),
		ReceiptHandle: aws.String("r" + id),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestRelayDeletesMessageOnDelivery(t *testing.T) {
	client := &fakeSQS{}
	sender := &fakeSender{}

	handleMessage(context.Background(), processing.Relay{Sender: sender}, client, "queue", queuedMessage(t, "1"))

	if len(sender.sent) != 1 || sender.sent[0].FilePath != "uploads/user-1/report.pdf" {
		t.Fatalf("expected one forwarded notification, got %+v", sender.sent)
	}
	if len(client.deleted) != 1 || client.deleted[0] != "r1" {
		t.Fatalf("expected delete of r1, got %v", client.deleted)
	}
}

func TestRelayKeepsMessageOnSendFailure(t *testing.T) {
	client := &fakeSQS{}
	sender := &fakeSender{err: errors.New("backend down")}

	handleMessage(context.Background(), processing.Relay{Sender: sender}, client, "queue", queuedMessage(t, "2"))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %v", client.deleted)
	}
}

func TestRelayDeletesInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	sender := &fakeSender{}
	msg := sqstypes.Message{
		MessageId:     aws.String("m3"),
		ReceiptHandle: aws.String("r3"),
		Body:          aws.String("{bad-json"),
	}

	handleMessage(context.Background(), processing.Relay{Sender: sender}, client, "queue", msg)

	if len(sender.sent) != 0 {
		t.Fatalf("expected nothing forwarded, got %d", len(sender.sent))
	}
	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestRelayDeletesMessageMissingPath(t *testing.T) {
	client := &fakeSQS{}
	msg := sqstypes.Message{
		MessageId:     aws.String("m4"),
		ReceiptHandle: aws.String("r4"),
		Body:          aws.String(`{"file_name":"a.pdf","user_id":"user-1","version":1}`),
	}

	handleMessage(context.Background(), processing.Relay{Sender: &fakeSender{}}, client, "queue", msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestDeleteMessageWithoutReceipt(t *testing.T) {
	client := &fakeSQS{}
	msg := sqstypes.Message{MessageId: aws.String("m5")}

	if deleteMessage(context.Background(), client, "queue", msg, "", "") {
		t.Fatalf("expected delete without receipt handle to fail")
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
