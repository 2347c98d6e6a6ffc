package storage

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// backupTimeLayout sorts lexically in time order.
const backupTimeLayout = "20060102-150405.000000"

// BackupPath returns the backup file name for path: path.bak.<op>.<timestamp>.
func BackupPath(path, op string, now time.Time) string {
	return path + ".bak." + sanitizeOp(op) + "." + now.UTC().Format(backupTimeLayout)
}

func sanitizeOp(op string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(op) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "write"
	}
	return b.String()
}

// BackupFile describes one backup found next to a bookmark file.
type BackupFile struct {
	Path      string
	Op        string
	CreatedAt time.Time
}

// FindBackups lists the backups of path, newest first. Files whose name does
// not parse are ignored.
func FindBackups(path string) ([]BackupFile, error) {
	matches, err := filepath.Glob(globEscape(path) + ".bak.*")
	if err != nil {
		return nil, err
	}

	prefix := path + ".bak."
	var backups []BackupFile
	for _, m := range matches {
		rest := strings.TrimPrefix(m, prefix)
		dot := strings.Index(rest, ".")
		if dot <= 0 {
			continue
		}
		created, err := time.Parse(backupTimeLayout, rest[dot+1:])
		if err != nil {
			continue
		}
		backups = append(backups, BackupFile{Path: m, Op: rest[:dot], CreatedAt: created})
	}

	slices.SortFunc(backups, func(a, b BackupFile) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return backups, nil
}

func globEscape(path string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`)
	if filepath.Separator == '\\' {
		r = strings.NewReplacer(`*`, `[*]`, `?`, `[?]`, `[`, `[[]`)
	}
	return r.Replace(path)
}
