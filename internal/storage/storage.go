package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/nikbrunner/bmtools/internal/journal"
	"github.com/nikbrunner/bmtools/internal/model"
)

// Recorder receives one entry per successful persist.
type Recorder interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// Options configures a ProfileStorage.
type Options struct {
	// UpdateChecksum recomputes the document checksum before writing.
	UpdateChecksum bool
	// Journal is optional.
	Journal Recorder
	Logger  *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// ProfileStorage reads and writes one browser bookmark file.
type ProfileStorage struct {
	path string
	opts Options
}

// NewProfileStorage creates a ProfileStorage for the file at path.
func NewProfileStorage(path string, opts Options) *ProfileStorage {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ProfileStorage{path: path, opts: opts}
}

// Path returns the bookmark file path.
func (s *ProfileStorage) Path() string {
	return s.path
}

// Snapshot is a Store together with the hash of the bytes it was decoded from.
type Snapshot struct {
	Store *model.Store
	Path  string
	Hash  string
}

// Load reads and decodes the bookmark file. It has no side effects.
func (s *ProfileStorage) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Path: s.path}
		}
		return nil, fmt.Errorf("read bookmarks %s: %w", s.path, err)
	}

	store, err := model.Decode(data)
	if err != nil {
		return nil, &CorruptError{Path: s.path, Err: err}
	}

	return &Snapshot{Store: store, Path: s.path, Hash: hashBytes(data)}, nil
}

// Persist writes the snapshot back to disk. The file on disk must still hash
// to snap.Hash. The current content is copied to a new backup first; if that
// copy fails nothing is written. The new content replaces the file atomically.
// It returns the backup path.
func (s *ProfileStorage) Persist(ctx context.Context, snap *Snapshot, op, summary string) (string, error) {
	log := s.opts.Logger.With(zap.String("op", op), zap.String("profile", s.path))

	if err := snap.Store.Validate(); err != nil {
		return "", err
	}

	current, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s was removed after it was loaded", ErrConflict, s.path)
		}
		return "", fmt.Errorf("re-read bookmarks %s: %w", s.path, err)
	}
	if hashBytes(current) != snap.Hash {
		return "", fmt.Errorf("%w: %s changed after it was loaded", ErrConflict, s.path)
	}

	if s.opts.UpdateChecksum {
		snap.Store.RefreshChecksum()
	}
	data, err := snap.Store.Marshal()
	if err != nil {
		return "", err
	}

	mode := os.FileMode(0o600)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}

	now := s.opts.Now()
	backupPath := BackupPath(s.path, op, now)
	if err := writeExclusive(backupPath, current, mode); err != nil {
		log.Error("backup failed", zap.String("backup", backupPath), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}

	if err := writeAtomic(s.path, data, mode); err != nil {
		return backupPath, fmt.Errorf("write bookmarks %s: %w", s.path, err)
	}
	snap.Hash = hashBytes(data)

	if s.opts.Journal != nil {
		entry := journal.Entry{
			Op:          op,
			ProfilePath: s.path,
			BackupPath:  backupPath,
			Summary:     summary,
			CreatedAt:   now,
		}
		if err := s.opts.Journal.Record(ctx, entry); err != nil {
			log.Warn("journal record failed", zap.Error(err))
		}
	}

	log.Info("bookmarks written", zap.String("backup", backupPath), zap.Int("bytes", len(data)))
	return backupPath, nil
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// writeExclusive creates path and writes data to it. It fails if path exists.
func writeExclusive(path string, data []byte, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// writeAtomic writes data to a temp file next to path and renames it over path.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
