package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a path segment or id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrNotEmpty is returned when deleting a folder that still has children without force.
	ErrNotEmpty = errors.New("folder is not empty")
	// ErrCannotDeleteRoot is returned for any attempt to delete a root container.
	ErrCannotDeleteRoot = errors.New("cannot delete a root folder")
	// ErrInvalidMove is returned when a folder would be moved into itself or a descendant.
	ErrInvalidMove = errors.New("cannot move a folder into itself or one of its descendants")
	// ErrInvalidArgument is returned for empty names, empty id lists and similar input errors.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformed is returned when a document or an in-memory tree breaks the tree invariants.
	ErrMalformed = errors.New("malformed bookmark tree")
)

// PathError records a path that failed to resolve and the segment where it stopped.
type PathError struct {
	Path    string
	Segment string
	Err     error
}

func (e *PathError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("folder %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("folder %q: segment %q: %v", e.Path, e.Segment, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
