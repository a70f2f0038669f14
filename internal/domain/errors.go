package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrTransport      = errors.New("worker unreachable")
	ErrRejected       = errors.New("job rejected")
	ErrNoSource       = errors.New("no source image")
	ErrInvalidSlot    = errors.New("invalid slot")
	ErrInvalidChannel = errors.New("invalid channel")
	ErrViewPending    = errors.New("view still processing")
)

// JobError carries a failure reported by the worker for the job it was running.
type JobError struct {
	Message string
}

func (e *JobError) Error() string {
	if e.Message == "" {
		return "job failed"
	}
	return fmt.Sprintf("job failed: %s", e.Message)
}

// IsTransport reports whether err stems from the worker being unreachable.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
