package processing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MessageMeta captures details useful for logging undecodable payloads.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingField indicates a decoded message without a required notification field.
type ErrMissingField struct {
	Meta      MessageMeta
	Field     string
	RequestID string
}

func (e ErrMissingField) Error() string { return "missing " + e.Field }

// ParseMessage validates and decodes a queued payload.
func ParseMessage(body string) (Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return Message{}, meta, ErrEmptyBody{Meta: meta}
	}
	msg, err := DecodeMessage([]byte(body))
	if err != nil {
		return Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	switch {
	case strings.TrimSpace(msg.FilePath) == "":
		return msg, meta, ErrMissingField{Meta: meta, Field: "file_path", RequestID: msg.RequestID}
	case strings.TrimSpace(msg.UserID) == "":
		return msg, meta, ErrMissingField{Meta: meta, Field: "user_id", RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// Permanent reports whether err can never succeed on redelivery.
func Permanent(err error) bool {
	switch err.(type) {
	case ErrEmptyBody, ErrDecode, ErrMissingField:
		return true
	default:
		return false
	}
}

// Relay forwards queued messages to a downstream sender (normally the webhook).
type Relay struct {
	Sender Sender
}

// HandleMessage parses body and forwards it. Parse errors are permanent; send errors are retryable.
func (r Relay) HandleMessage(ctx context.Context, body string) (Message, error) {
	msg, _, err := ParseMessage(body)
	if err != nil {
		return msg, err
	}
	if err := r.Sender.Send(ctx, msg); err != nil {
		return msg, err
	}
	return msg, nil
}
