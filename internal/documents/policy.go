package documents

import (
	"mime"
	"strings"
)

// RejectReason explains why a file failed validation.
type RejectReason string

const (
	ReasonUnsupportedType RejectReason = "unsupported-type"
	ReasonTooLarge        RejectReason = "too-large"
)

// Decision is the result of Policy.Validate. Exactly one of Label or Reason is set.
type Decision struct {
	Accepted bool
	Label    string
	Reason   RejectReason
}

// Policy decides whether a file may be ingested. It is pure: no I/O, no clock.
type Policy struct {
	// Allowed maps a normalized media type to a display label.
	Allowed map[string]string
	// MaxBytes is the size ceiling; zero or negative disables it.
	MaxBytes int64
}

// NewPolicy normalizes the allow-list keys.
func NewPolicy(allowed map[string]string, maxBytes int64) Policy {
	normalized := make(map[string]string, len(allowed))
	for mediaType, label := range allowed {
		if key := NormalizeMediaType(mediaType); key != "" {
			normalized[key] = label
		}
	}
	return Policy{Allowed: normalized, MaxBytes: maxBytes}
}

// Validate checks the media type before the size.
func (p Policy) Validate(mediaType string, size int64) Decision {
	label, ok := p.Allowed[NormalizeMediaType(mediaType)]
	if !ok {
		return Decision{Reason: ReasonUnsupportedType}
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return Decision{Reason: ReasonTooLarge}
	}
	return Decision{Accepted: true, Label: label}
}

// NormalizeMediaType lower-cases a media type and strips parameters such as charset.
func NormalizeMediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(raw); err == nil {
		return parsed
	}
	base, _, _ := strings.Cut(raw, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
