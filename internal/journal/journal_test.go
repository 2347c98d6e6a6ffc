package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/bmtools/internal/journal"
)

func openJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	assert.NilError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_RecordAndList(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	entries := []journal.Entry{
		{Op: "sort", ProfilePath: "/p/Bookmarks", BackupPath: "/p/Bookmarks.bak.sort.1", Summary: "bar", CreatedAt: base},
		{Op: "dedupe", ProfilePath: "/p/Bookmarks", BackupPath: "/p/Bookmarks.bak.dedupe.2", Summary: "removed 2", CreatedAt: base.Add(1500 * time.Millisecond)},
		{Op: "delete", ProfilePath: "/q/Bookmarks", BackupPath: "/q/Bookmarks.bak.delete.3", CreatedAt: base.Add(time.Second)},
	}
	for _, e := range entries {
		assert.NilError(t, j.Record(ctx, e))
	}

	all, err := j.List(ctx, journal.ListOptions{})
	assert.NilError(t, err)
	assert.Assert(t, is.Len(all, 3))
	assert.Equal(t, all[0].Op, "dedupe")
	assert.Equal(t, all[1].Op, "delete")
	assert.Equal(t, all[2].Op, "sort")
	assert.Equal(t, all[0].Summary, "removed 2")
	assert.Check(t, all[0].CreatedAt.Equal(base.Add(1500*time.Millisecond)))
	assert.Check(t, all[0].ID > 0)

	filtered, err := j.List(ctx, journal.ListOptions{ProfilePath: "/p/Bookmarks", Limit: 1})
	assert.NilError(t, err)
	assert.Assert(t, is.Len(filtered, 1))
	assert.Equal(t, filtered[0].BackupPath, "/p/Bookmarks.bak.dedupe.2")
}

func TestJournal_ReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := journal.Open(path)
	assert.NilError(t, err)
	assert.NilError(t, j.Record(ctx, journal.Entry{Op: "create", ProfilePath: "/p", BackupPath: "/p.bak"}))
	assert.NilError(t, j.Close())

	j, err = journal.Open(path)
	assert.NilError(t, err)
	defer j.Close()

	got, err := j.List(ctx, journal.ListOptions{})
	assert.NilError(t, err)
	assert.Assert(t, is.Len(got, 1))
	assert.Equal(t, got[0].Op, "create")
	assert.Check(t, !got[0].CreatedAt.IsZero())
}

func TestJournal_EmptyList(t *testing.T) {
	j := openJournal(t)

	got, err := j.List(context.Background(), journal.ListOptions{ProfilePath: "/none"})
	assert.NilError(t, err)
	assert.Check(t, is.Len(got, 0))
}
