package chat

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateContentOK(t *testing.T) {
	valid := []string{
		"hello",
		"is this still available?",
		"emoji 👍 and accents éàü",
		strings.Repeat("a", MaxTextChars),
		"  padded but not empty  ",
	}
	for _, content := range valid {
		if err := ValidateContent(content); err != nil {
			t.Errorf("ValidateContent(%q) = %v, want nil", content, err)
		}
	}
}

func TestValidateContentEmpty(t *testing.T) {
	for _, content := range []string{"", "   ", "\t\n", " \r\n "} {
		err := ValidateContent(content)
		if !errors.Is(err, ErrEmptyContent) {
			t.Errorf("ValidateContent(%q) = %v, want ErrEmptyContent", content, err)
		}
	}
}

func TestValidateContentTooManyBytes(t *testing.T) {
	content := strings.Repeat("a", MaxMessageBytes+1)
	if err := ValidateContent(content); err == nil {
		t.Error("expected error for oversized message, got nil")
	}
}

func TestValidateContentTooManyChars(t *testing.T) {
	// MaxTextChars+1 runes but well under the byte limit.
	content := strings.Repeat("a", MaxTextChars+1)
	if err := ValidateContent(content); err == nil {
		t.Error("expected error for message over character limit, got nil")
	}
}

func TestValidateContentInvalidUTF8(t *testing.T) {
	if err := ValidateContent("bad \xff\xfe bytes"); err == nil {
		t.Error("expected error for invalid UTF-8, got nil")
	}
}
