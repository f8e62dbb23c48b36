package security

import (
	"strings"
	"testing"
)

func TestTextSanitizer_Clean(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text", "Bright and fruity", "Bright and fruity"},
		{"trims", "  smooth  ", "smooth"},
		{"strips tags", "<b>bold</b> latte", "bold latte"},
		{"drops script", "nice<script>alert(1)</script>", "nice"},
		{"strips event attributes", `<img src=x onerror="alert(1)">crema`, "crema"},
		{"keeps ampersand", "milk & honey", "milk & honey"},
		{"keeps japanese", "<p>酸味が強い</p>", "酸味が強い"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextSanitizer_CleanPtr(t *testing.T) {
	s := NewTextSanitizer()

	if s.CleanPtr(nil) != nil {
		t.Error("CleanPtr(nil) should be nil")
	}
	blank := "<br>  "
	if s.CleanPtr(&blank) != nil {
		t.Error("CleanPtr of markup-only text should be nil")
	}
	notes := "<i>juicy</i>"
	if got := s.CleanPtr(&notes); got == nil || *got != "juicy" {
		t.Errorf("CleanPtr = %v, want juicy", got)
	}
}

func TestTruncate_CountsRunes(t *testing.T) {
	long := strings.Repeat("珈", MaxTextLength+10)
	got := Truncate(long, MaxTextLength)
	if n := len([]rune(got)); n != MaxTextLength {
		t.Errorf("rune count = %d, want %d", n, MaxTextLength)
	}
	if Truncate("short", 10) != "short" {
		t.Error("short text should be unchanged")
	}
	if got := NewTextSanitizer().CleanLimited("<b>abcdef</b>", 3); got != "abc" {
		t.Errorf("CleanLimited = %q, want abc", got)
	}
}
