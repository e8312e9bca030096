package models

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrMissingField        = errors.New("missing field")
	ErrNotFound            = errors.New("order not found")
	ErrDuplicateSubmission = errors.New("order already exists on shipping platform")
	ErrStaleEligibility    = errors.New("order is no longer eligible to be marked shipped")
	ErrTransport           = errors.New("transport error")
	ErrNoTracking          = errors.New("no tracking number assigned")
	ErrSkippedEntries      = errors.New("malformed listing entries skipped")
)

// MissingFieldError names the payload key normalization could not find.
type MissingFieldError struct {
	Source Source
	Key    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing field %q", e.Source, e.Key)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// TransportError is a non-success response (or no response at all, StatusCode 0).
type TransportError struct {
	Source     Source
	Op         string
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s", e.Source, e.Op, e.Body)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s %s: http %d", e.Source, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: http %d: %s", e.Source, e.Op, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return ErrTransport }

// SkippedEntriesError comes with a partial order listing: the stubs returned
// alongside it are valid, Entries says why each left-out entry was dropped.
type SkippedEntriesError struct {
	Source  Source
	Entries []error
}

func (e *SkippedEntriesError) Error() string {
	if len(e.Entries) == 0 {
		return fmt.Sprintf("%s: listing entries skipped", e.Source)
	}
	return fmt.Sprintf("%s: %d listing entries skipped, first: %v", e.Source, len(e.Entries), e.Entries[0])
}

func (e *SkippedEntriesError) Unwrap() error { return ErrSkippedEntries }
