package nowplaying_dl

import (
	"errors"
	"fmt"
)

var (
	ErrNoTrack           = errors.New("no active track")
	ErrNoSource          = errors.New("no audio link")
	ErrNoElement         = errors.New("element not found")
	ErrHTTPStatus        = errors.New("unexpected HTTP status")
	ErrEmptyBody         = errors.New("empty response body")
	ErrAllMethodsFailed  = errors.New("all download methods failed")
	ErrAlreadyInProgress = errors.New("download already in progress")
	ErrCancelled         = errors.New("download cancelled")
	ErrPersistence       = errors.New("history persistence failed")
)

// StatusError is returned when a delivery request gets a non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("HTTP %s", e.Status)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrHTTPStatus
}
