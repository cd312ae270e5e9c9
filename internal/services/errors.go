package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIO marks filesystem read/write failures.
	ErrIO = errors.New("io error")
	// ErrCorruptData marks files that exist but fail to parse or validate.
	ErrCorruptData = errors.New("corrupt data")
	// ErrNotFound marks expected files or records that are absent.
	ErrNotFound = errors.New("not found")
	// ErrUpstream marks AI backend network or HTTP failures.
	ErrUpstream = errors.New("upstream error")
	// ErrMalformedOutput marks AI responses that do not match the requested format.
	ErrMalformedOutput = errors.New("malformed upstream output")
	// ErrConfiguration marks missing or invalid settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrJobRunning marks a job trigger rejected because a run is in progress.
	ErrJobRunning = errors.New("job already running")
	// ErrExternalTool marks a failed external command such as the scraper.
	ErrExternalTool = errors.New("external tool failed")
)

// Wrap builds an error message that includes job context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Degradable reports whether err should degrade to an empty result rather than
// abort the caller. NotFound, CorruptData and MalformedOutput qualify.
func Degradable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCorruptData), errors.Is(err, ErrMalformedOutput):
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
