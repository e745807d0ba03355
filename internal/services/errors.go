package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrInference         = errors.New("inference error")
	ErrEmptyDescription  = errors.New("empty description")
	ErrCollisionLimit    = errors.New("collision limit exceeded")
	ErrNameTooLong       = errors.New("file name too long")
	ErrApplyIO           = errors.New("apply io error")
	ErrConfiguration     = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		if err == nil {
			return errors.New(detail)
		}
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must stop the whole run. Only a missing input
// directory (or a configuration problem found before work starts) is fatal;
// every per-file failure is folded into the batch counters instead.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDirectoryNotFound) || errors.Is(err, ErrConfiguration)
}

// Reason maps an error onto the short label recorded in plans and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDirectoryNotFound):
		return "directory_not_found"
	case errors.Is(err, ErrInference):
		return "inference"
	case errors.Is(err, ErrEmptyDescription):
		return "empty_description"
	case errors.Is(err, ErrCollisionLimit):
		return "collision_limit"
	case errors.Is(err, ErrNameTooLong):
		return "name_too_long"
	case errors.Is(err, ErrApplyIO):
		return "apply_io"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unexpected"
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
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
