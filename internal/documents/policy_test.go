package documents

import "testing"

func TestPolicyValidate(t *testing.T) {
	p := NewPolicy(map[string]string{
		"application/pdf": "PDF",
		"Text/Plain":      "Text",
	}, 10)

	tests := []struct {
		name      string
		mediaType string
		size      int64
		accepted  bool
		reason    RejectReason
		label     string
	}{
		{name: "allowed within limit", mediaType: "application/pdf", size: 10, accepted: true, label: "PDF"},
		{name: "parameters and case ignored", mediaType: "TEXT/plain; charset=utf-8", size: 1, accepted: true, label: "Text"},
		{name: "zero bytes", mediaType: "text/plain", size: 0, accepted: true, label: "Text"},
		{name: "too large", mediaType: "application/pdf", size: 11, reason: ReasonTooLarge},
		{name: "type checked before size", mediaType: "image/png", size: 1 << 30, reason: ReasonUnsupportedType},
		{name: "empty type", mediaType: "", size: 1, reason: ReasonUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Validate(tt.mediaType, tt.size)
			if d.Accepted != tt.accepted {
				t.Fatalf("accepted = %v, want %v", d.Accepted, tt.accepted)
			}
			if d.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", d.Reason, tt.reason)
			}
			if d.Label != tt.label {
				t.Fatalf("label = %q, want %q", d.Label, tt.label)
			}
		})
	}
}

func TestPolicyWithoutCeiling(t *testing.T) {
	p := NewPolicy(map[string]string{"text/plain": "Text"}, 0)
	if d := p.Validate("text/plain", 1<<40); !d.Accepted {
		t.Fatalf("expected acceptance without ceiling, got %+v", d)
	}
}

func TestNormalizeMediaType(t *testing.T) {
	cases := map[string]string{
		"":                             "",
		"  Application/PDF  ":          "application/pdf",
		"text/markdown; charset=utf-8": "text/markdown",
		"not a type;;":                 "not a type",
	}
	for in, want := range cases {
		if got := NormalizeMediaType(in); got != want {
			t.Fatalf("NormalizeMediaType(%q) = %q, want %q", in, got, want)
		}
	}
}
