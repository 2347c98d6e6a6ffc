package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict is returned when the file changed on disk between load and persist.
	ErrConflict = errors.New("bookmark file was modified by another writer")
	// ErrBackupFailed is returned when the pre-write backup could not be created.
	// The bookmark file is left untouched.
	ErrBackupFailed = errors.New("backup failed")
)

// NotFoundError is returned when the bookmark file does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("bookmark file not found: %s", e.Path)
}

// CorruptError is returned when the bookmark file is not a valid bookmark document.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("bookmark file %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}
