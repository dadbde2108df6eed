package processing

import (
	"encoding/json"
	"time"
)

const messageVersion = 1

// Notification is the body the processing backend expects on upload-document.
type Notification struct {
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	UserID   string `json:"user_id"`
}

// Message wraps a Notification with correlation fields for queued delivery.
type Message struct {
	Notification
	DocumentID string `json:"document_id,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	EnqueuedAt string `json:"enqueued_at,omitempty"`
	Version    int    `json:"version"`
}

// NewMessage stamps a notification with version and enqueue time.
func NewMessage(n Notification, documentID, requestID string) Message {
	return Message{
		Notification: n,
		DocumentID:   documentID,
		RequestID:    requestID,
		EnqueuedAt:   time.Now().UTC().Format(time.RFC3339),
		Version:      messageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
