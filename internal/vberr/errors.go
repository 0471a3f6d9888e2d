// Package vberr defines the error taxonomy shared by the data-loading packages.
//
// Errors are tagged with one of the exported sentinels and carry the
// component/operation chain that produced them. Callers classify failures with
// errors.Is; nothing in the loading path retries on its own.
package vberr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks invalid construction arguments or metadata.
	ErrConfiguration = errors.New("configuration error")
	// ErrMediaRead marks a sampled frame or video file that is missing or corrupt.
	ErrMediaRead = errors.New("media read error")
	// ErrShapeMismatch marks samples that cannot be stacked into one batch.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker. A nil marker defaults to ErrConfiguration.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrConfiguration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Configf is shorthand for a configuration error without a cause.
func Configf(component, format string, args ...any) error {
	return Wrap(ErrConfiguration, component, "", fmt.Sprintf(format, args...), nil)
}

// Kind returns a short classification for logs and exit reporting.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrMediaRead):
		return "media_read"
	case errors.Is(err, ErrShapeMismatch):
		return "shape_mismatch"
	default:
		return "unknown"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
