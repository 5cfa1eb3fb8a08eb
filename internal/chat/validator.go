package chat

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxMessageBytes = 4096 // 4KB max frame size
	MaxTextChars    = 2000 // max character count
)

// ErrInvalidContent is the base error for all content validation failures,
// so callers can distinguish a rejected message from a persistence failure.
var ErrInvalidContent = errors.New("invalid message content")

// ErrEmptyContent is returned for messages that are empty or contain only
// whitespace. Such messages are rejected before they reach persistence.
var ErrEmptyContent = fmt.Errorf("%w: message content is empty", ErrInvalidContent)

// ValidateContent checks that a chat message meets content requirements.
// The emptiness check applies after trimming surrounding whitespace, but
// the message itself is relayed and stored untrimmed.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if len(content) > MaxMessageBytes {
		return fmt.Errorf("%w: exceeds %d byte limit", ErrInvalidContent, MaxMessageBytes)
	}
	if utf8.RuneCountInString(content) > MaxTextChars {
		return fmt.Errorf("%w: exceeds %d character limit", ErrInvalidContent, MaxTextChars)
	}
	if !utf8.ValidString(content) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidContent)
	}
	return nil
}
