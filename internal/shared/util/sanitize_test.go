package util

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "report.pdf", want: "report.pdf"},
		{name: "separators", in: "a/b\\c.txt", want: "a_b_c.txt"},
		{name: "trim", in: "  notes.md ", want: "notes.md"},
		{name: "control chars", in: "bad\x00name.txt", want: "badname.txt"},
		{name: "nfc", in: "café.txt", want: "café.txt"},
		{name: "traversal", in: "../etc/passwd", want: ".._etc_passwd"},
		{name: "dot dot", in: "..", wantErr: true},
		{name: "empty", in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFileName(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFileName) {
					t.Fatalf("expected ErrInvalidFileName, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeFileNameTruncates(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("é", 300))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) > maxFileNameLen {
		t.Fatalf("expected at most %d bytes, got %d", maxFileNameLen, len(got))
	}
}
