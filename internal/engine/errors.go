package engine

import (
	"errors"

	"github.com/nikbrunner/bmtools/internal/model"
	"github.com/nikbrunner/bmtools/internal/storage"
)

// Kind classifies an operation error.
type Kind int

const (
	// KindIO covers unexpected disk failures, including a failed backup.
	KindIO Kind = iota
	// KindNotFound is a missing profile file, path segment or id.
	KindNotFound
	// KindRefusal is a structural refusal such as deleting a non-empty folder.
	KindRefusal
	// KindMalformed is an invalid document or invalid argument.
	KindMalformed
	// KindConflict means the file changed on disk during the call.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindRefusal:
		return "structural_refusal"
	case KindMalformed:
		return "malformed_input"
	case KindConflict:
		return "conflict"
	default:
		return "io_failure"
	}
}

// Classify returns the kind of err.
func Classify(err error) Kind {
	var notFound *storage.NotFoundError
	switch {
	case errors.As(err, &notFound), errors.Is(err, model.ErrNotFound):
		return KindNotFound
	case errors.Is(err, model.ErrNotEmpty),
		errors.Is(err, model.ErrCannotDeleteRoot),
		errors.Is(err, model.ErrInvalidMove):
		return KindRefusal
	case errors.Is(err, storage.ErrConflict):
		return KindConflict
	case errors.Is(err, model.ErrInvalidArgument), errors.Is(err, model.ErrMalformed):
		return KindMalformed
	}
	var corrupt *storage.CorruptError
	if errors.As(err, &corrupt) {
		return KindMalformed
	}
	return KindIO
}

// Recoverable reports whether the caller can fix err by changing its
// arguments or retrying.
func Recoverable(err error) bool {
	switch Classify(err) {
	case KindNotFound, KindRefusal, KindConflict:
		return true
	}
	return false
}

// Hint returns a corrective suggestion for err, or "".
func Hint(err error) string {
	var notFound *storage.NotFoundError
	switch {
	case errors.Is(err, model.ErrNotEmpty):
		return "pass force=true to delete the folder together with everything in it"
	case errors.Is(err, model.ErrCannotDeleteRoot):
		return "root folders can be renamed or emptied but never deleted"
	case errors.Is(err, model.ErrInvalidMove):
		return "pick a target folder outside the folders being moved"
	case errors.As(err, &notFound):
		return "pass profile_path or set profilePath in the config file"
	case errors.Is(err, model.ErrNotFound):
		return "paths start at bar, other or synced and use > between folders; get_bookmark_structure lists them"
	case errors.Is(err, storage.ErrConflict):
		return "the browser or another call changed the file; retry the operation"
	}
	return ""
}
