package todo

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when an owned record does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError describes a rejected field value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ValidateTitle rejects empty, whitespace-only and overlong titles.
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return &ValidationError{Field: "title", Message: "Title cannot be empty"}
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLength {
		return &ValidationError{Field: "title", Message: fmt.Sprintf("Title must be %d characters or less", MaxTitleLength)}
	}
	return nil
}

// ValidateDescription rejects overlong descriptions. Empty is allowed.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("Description must be %d characters or less", MaxDescriptionLength)}
	}
	return nil
}
