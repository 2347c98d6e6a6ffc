package engine_test

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/bmtools/internal/config"
	"github.com/nikbrunner/bmtools/internal/engine"
	"github.com/nikbrunner/bmtools/internal/journal"
	"github.com/nikbrunner/bmtools/internal/model"
	"github.com/nikbrunner/bmtools/internal/storage"
)

// tickingClock advances one second per call so backups never share a name.
func tickingClock() func() time.Time {
	start := time.Date(2026, 7, 4, 8, 30, 0, 0, time.UTC)
	var n int
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func copyFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../model/testdata/Bookmarks")
	assert.NilError(t, err)
	path := filepath.Join(t.TempDir(), "Bookmarks")
	assert.NilError(t, os.WriteFile(path, data, 0o600))
	return path
}

type testEnv struct {
	eng     *engine.Engine
	profile string
	cfg     *config.Config
}

func newEnv(t *testing.T, params engine.Params) *testEnv {
	t.Helper()
	profile := copyFixture(t)
	cfg := config.DefaultConfig()
	cfg.ProfilePath = profile
	cfg.JournalPath = ""
	cfg.Export.Dir = t.TempDir()

	params.Config = &cfg
	params.Logger = zaptest.NewLogger(t)
	if params.Now == nil {
		params.Now = tickingClock()
	}
	return &testEnv{eng: engine.New(params), profile: profile, cfg: &cfg}
}

func (env *testEnv) read(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(env.profile)
	assert.NilError(t, err)
	return data
}

func (env *testEnv) store(t *testing.T) *model.Store {
	t.Helper()
	store, err := model.Decode(env.read(t))
	assert.NilError(t, err)
	return store
}

func TestCreateFolder_NestedAndIdempotent(t *testing.T) {
	env := newEnv(t, engine.Params{})
	ctx := context.Background()

	res, err := env.eng.CreateFolder(ctx, engine.CreateFolderRequest{ParentPath: "bar", Name: "Work"})
	assert.NilError(t, err)
	assert.Check(t, !res.Created)
	assert.Equal(t, res.ID, "4")
	assert.Equal(t, res.BackupPath, "")

	res, err = env.eng.CreateFolder(ctx, engine.CreateFolderRequest{ParentPath: "bar > Work", Name: "Docs"})
	assert.NilError(t, err)
	assert.Check(t, res.Created)
	assert.Equal(t, res.ID, "9")
	assert.Equal(t, res.Path, "bar > Work > Docs")
	assert.Equal(t, res.Profile, env.profile)
	assert.Check(t, strings.HasPrefix(res.BackupPath, env.profile+".bak.create."))
	_, err = os.Stat(res.BackupPath)
	assert.NilError(t, err)

	again, err := env.eng.CreateFolder(ctx, engine.CreateFolderRequest{ParentPath: "書籤列 > Work", Name: "Docs"})
	assert.NilError(t, err)
	assert.Check(t, !again.Created)
	assert.Equal(t, again.ID, "9")

	list, err := env.eng.ListContents(ctx, engine.ListContentsRequest{FolderPath: "bar > Work > Docs"})
	assert.NilError(t, err)
	assert.Check(t, is.Len(list.Folders, 0))
	assert.Check(t, is.Len(list.Bookmarks, 0))
}

func TestCreateFolder_ParentNotFound(t *testing.T) {
	env := newEnv(t, engine.Params{})
	before := env.read(t)

	_, err := env.eng.CreateFolder(context.Background(), engine.CreateFolderRequest{ParentPath: "bar > Nope", Name: "X"})
	assert.Check(t, errors.Is(err, model.ErrNotFound))
	assert.Equal(t, engine.Classify(err), engine.KindNotFound)
	assert.Check(t, engine.Recoverable(err))
	assert.DeepEqual(t, env.read(t), before)
}

func TestRenameFolder(t *testing.T) {
	env := newEnv(t, engine.Params{})
	ctx := context.Background()

	res, err := env.eng.RenameFolder(ctx, engine.RenameFolderRequest{FolderPath: "bar > Work", NewName: " Projects "})
	assert.NilError(t, err)
	assert.Equal(t, res.OldName, "Work")
	assert.Equal(t, res.NewName, "Projects")
	assert.Check(t, res.Changed)
	assert.Check(t, res.BackupPath != "")
	assert.Equal(t, env.store(t).Bar.Children[0].Name, "Projects")

	res, err = env.eng.RenameFolder(ctx, engine.RenameFolderRequest{FolderPath: "bar > Projects", NewName: "Projects"})
	assert.NilError(t, err)
	assert.Check(t, !res.Changed)
	assert.Equal(t, res.BackupPath, "")

	_, err = env.eng.RenameFolder(ctx, engine.RenameFolderRequest{FolderPath: "bar > Projects", NewName: "a > b"})
	assert.Equal(t, engine.Classify(err), engine.KindMalformed)
}

func TestDeleteFolder_ForceScenario(t *testing.T) {
	env := newEnv(t, engine.Params{})
	ctx := context.Background()
	before := env.read(t)

	_, err := env.eng.DeleteFolder(ctx, engine.DeleteFolderRequest{FolderPath: "bar > Work"})
	assert.Check(t, errors.Is(err, model.ErrNotEmpty))
	assert.Equal(t, engine.Classify(err), engine.KindRefusal)
	assert.Check(t, is.Contains(engine.Hint(err), "force=true"))
	assert.DeepEqual(t, env.read(t), before)

	res, err := env.eng.DeleteFolder(ctx, engine.DeleteFolderRequest{FolderPath: "bar > Work", Force: true})
	assert.NilError(t, err)
	assert.Equal(t, res.Folders, 0)
	assert.Equal(t, res.Bookmarks, 2)

	backup, err := os.ReadFile(res.BackupPath)
	assert.NilError(t, err)
	assert.DeepEqual(t, backup, before)

	_, err = env.eng.ListContents(ctx, engine.ListContentsRequest{FolderPath: "bar > Work"})
	assert.Equal(t, engine.Classify(err), engine.KindNotFound)
}

func TestDeleteFolder_Root(t *testing.T) {
	env := newEnv(t, engine.Params{})

	_, err := env.eng.DeleteFolder(context.Background(), engine.DeleteFolderRequest{FolderPath: "other", Force: true})
	assert.Check(t, errors.Is(err, model.ErrCannotDeleteRoot))
	assert.Equal(t, engine.Classify(err), engine.KindRefusal)
	assert.Check(t, engine.Hint(err) != "")
}

func TestMoveByKeyword(t *testing.T) {
	env := newEnv(t, engine.Params{})
	ctx := context.Background()

	res, err := env.eng.MoveByKeyword(ctx, engine.MoveByKeywordRequest{
		SourcePath: "bar > Work",
		TargetPath: "other",
		Keyword:    "PACKAGES",
	})
	assert.NilError(t, err)
	assert.Equal(t, res.Moved, 1)
	assert.Equal(t, res.Items[0].ID, "6")
	assert.Equal(t, res.Target, "other")
	assert.Check(t, res.Changed)
	assert.Check(t, res.BackupPath != "")

	store := env.store(t)
	assert.Check(t, is.Len(store.Bar.Children[0].Children, 1))
	assert.Equal(t, store.Other.Children[1].ID, "6")

	res, err = env.eng.MoveByKeyword(ctx, engine.MoveByKeywordRequest{
		SourcePath: "bar > Work",
		TargetPath: "other",
		Keyword:    "nothing matches this",
	})
	assert.NilError(t, err)
	assert.Equal(t, res.Moved, 0)
	assert.Check(t, !res.Changed)
	assert.Check(t, res.Items != nil)
	assert.Equal(t, res.BackupPath, "")
}

func TestMoveByKeyword_IntoItself(t *testing.T) {
	env := newEnv(t, engine.Params{})

	_, err := env.eng.MoveByKeyword(context.Background(), engine.MoveByKeywordRequest{
		SourcePath: "bar",
		TargetPath: "bar > Work",
	})
	assert.Equal(t, engine.Classify(err), engine.KindRefusal)
}

func TestMoveByIDs(t *testing.T) {
	env := newEnv(t, engine.Params{})
	ctx := context.Background()

	res, err := env.eng.MoveByIDs(ctx, engine.MoveByIDsRequest{IDs: []string{"8", "7", "99"}, TargetPath: "bar > Work"})
	assert.NilError(t, err)
	assert.Equal(t, res.Moved, 2)
	// Discovery order is tree order, not request order.
	assert.Equal(t, res.Items[0].ID, "7")
	assert.Equal(t, res.Items[1].ID, "8")
	assert.DeepEqual(t, res.Missing, []string{"99"})
	assert.Check(t, res.Changed)

	store := env.store(t)
	ids := []string{}
	for _, c := range store.Bar.Children[0].Children {
		ids = append(ids, c.ID)
	}
	assert.DeepEqual(t, ids, []string{"5", "6", "7", "8"})
	assert.Check(t, is.Len(store.Other.Children, 0))

	_, err = env.eng.MoveByIDs(ctx, engine.MoveByIDsRequest{IDs: []string{"404"}, TargetPath: "other"})
	assert.Equal(t, engine.Classify(err), engine.KindNotFound)
}

func TestSort(t *testing.T) {
	env := newEnv(t, engine.Params{})
	ctx := context.Background()

	res, err := env.eng.Sort(ctx, engine.SortRequest{FolderPath: "bar"})
	assert.NilError(t, err)
	assert.Check(t, !res.Changed)
	assert.Equal(t, res.BackupPath, "")

	res, err = env.eng.Sort(ctx, engine.SortRequest{FolderPath: "bar > Work"})
	assert.NilError(t, err)
	assert.Check(t, res.Changed)
	assert.Equal(t, res.Children, 2)
	assert.Check(t, strings.Contains(res.BackupPath, ".bak.sort."))
	assert.Equal(t, env.store(t).Bar.Children[0].Children[0].Name, "Go Packages")
}

func TestRemoveDuplicates(t *testing.T) {
	env := newEnv(t, engine.Params{})
	ctx := context.Background()

	res, err := env.eng.RemoveDuplicates(ctx, engine.RemoveDuplicatesRequest{})
	assert.NilError(t, err)
	assert.Equal(t, res.Removed, 1)
	assert.Equal(t, res.Items[0].ID, "8")
	assert.Check(t, res.Changed)
	assert.Check(t, res.BackupPath != "")

	res, err = env.eng.RemoveDuplicates(ctx, engine.RemoveDuplicatesRequest{})
	assert.NilError(t, err)
	assert.Equal(t, res.Removed, 0)
	assert.Check(t, !res.Changed)
	assert.Check(t, res.Items != nil)
	assert.Equal(t, res.BackupPath, "")

	backups, err := storage.FindBackups(env.profile)
	assert.NilError(t, err)
	assert.Check(t, is.Len(backups, 1))
}

func TestRemoveURLs(t *testing.T) {
	env := newEnv(t, engine.Params{})
	ctx := context.Background()

	res, err := env.eng.RemoveURLs(ctx, engine.RemoveURLsRequest{URLs: []string{"https://go.dev/"}})
	assert.NilError(t, err)
	assert.Equal(t, res.Removed, 2)
	assert.Check(t, res.Changed)

	_, err = env.eng.RemoveURLs(ctx, engine.RemoveURLsRequest{})
	assert.Equal(t, engine.Classify(err), engine.KindMalformed)
}

// tlsRoutedClient sends every request to srv and accepts its certificate
// for any host name.
func tlsRoutedClient(srv *httptest.Server) *http.Client {
	tr := srv.Client().Transport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	dialer := &net.Dialer{}
	tr.DialContext = func(ctx context.Context, network, _ string) (net.Conn, error) {
		return dialer.DialContext(ctx, network, srv.Listener.Addr().String())
	}
	return &http.Client{Transport: tr}
}

func TestScanLinks(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Host == "github.com" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	env := newEnv(t, engine.Params{HTTPClient: tlsRoutedClient(srv)})
	ctx := context.Background()
	before := env.read(t)

	res, err := env.eng.ScanLinks(ctx, engine.ScanLinksRequest{})
	assert.NilError(t, err)
	assert.Equal(t, res.Checked, 3)
	assert.Equal(t, res.Skipped, 0)
	assert.Assert(t, is.Len(res.Dead, 1))
	assert.Equal(t, res.Dead[0].ID, "7")
	assert.Equal(t, res.Dead[0].Status, 404)
	assert.Equal(t, res.Dead[0].Folder, "bar")
	assert.Equal(t, res.Removed, 0)
	assert.Equal(t, res.BackupPath, "")
	assert.DeepEqual(t, env.read(t), before)

	res, err = env.eng.ScanLinks(ctx, engine.ScanLinksRequest{AutoRemove: true})
	assert.NilError(t, err)
	assert.Equal(t, res.Removed, 1)
	assert.Check(t, strings.Contains(res.BackupPath, ".bak.scan."))
	assert.Check(t, env.store(t).FindByID("7") == nil)
}

func TestScanLinks_Limit(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	env := newEnv(t, engine.Params{HTTPClient: tlsRoutedClient(srv)})

	res, err := env.eng.ScanLinks(context.Background(), engine.ScanLinksRequest{Limit: 1})
	assert.NilError(t, err)
	assert.Equal(t, res.Checked, 1)
	assert.Check(t, is.Len(res.Dead, 0))
}

func TestScanLinks_AllSkipped(t *testing.T) {
	env := newEnv(t, engine.Params{})
	env.cfg.Scan.SkipDomains = []string{"go.dev", "github.com"}

	res, err := env.eng.ScanLinks(context.Background(), engine.ScanLinksRequest{AutoRemove: true})
	assert.NilError(t, err)
	assert.Equal(t, res.Checked, 0)
	assert.Equal(t, res.Skipped, 4)
	// Empty lists, never nil: the MCP output schema types them as arrays.
	assert.Check(t, res.Dead != nil)
	assert.Check(t, res.Log != nil)
	assert.Check(t, is.Len(res.Log, 0))
	assert.Equal(t, res.BackupPath, "")
}

func TestExport(t *testing.T) {
	env := newEnv(t, engine.Params{})
	ctx := context.Background()

	res, err := env.eng.Export(ctx, engine.ExportRequest{})
	assert.NilError(t, err)
	assert.Equal(t, res.Path, filepath.Join(env.cfg.Export.Dir, "bookmarks_cleaned.html"))
	assert.Equal(t, res.Folders, 1)
	assert.Equal(t, res.Bookmarks, 4)

	data, err := os.ReadFile(res.Path)
	assert.NilError(t, err)
	assert.Check(t, is.Contains(string(data), `PERSONAL_TOOLBAR_FOLDER="true">書籤列</H3>`))

	_, err = env.eng.Export(ctx, engine.ExportRequest{OutputFilename: "../escape.html"})
	assert.Equal(t, engine.Classify(err), engine.KindMalformed)
}

func TestGetStructure(t *testing.T) {
	env := newEnv(t, engine.Params{})

	res, err := env.eng.GetStructure(context.Background(), engine.StructureRequest{})
	assert.NilError(t, err)
	assert.Equal(t, res.TotalFolders, 1)
	assert.Equal(t, res.TotalBookmarks, 4)

	var got []string
	for _, f := range res.Folders {
		got = append(got, fmt.Sprintf("%d %s (%d)", f.Depth, f.Path, f.Bookmarks))
	}
	assert.DeepEqual(t, got, []string{
		"0 bar (1)",
		"1 bar > Work (2)",
		"0 other (1)",
		"0 synced (0)",
	})
}

func TestSearchBookmarks(t *testing.T) {
	env := newEnv(t, engine.Params{})

	res, err := env.eng.SearchBookmarks(context.Background(), engine.SearchRequest{Query: "github"})
	assert.NilError(t, err)
	assert.Assert(t, len(res.Results) > 0)
	assert.Equal(t, res.Results[0].ID, "7")
	assert.Equal(t, res.Results[0].Folder, "bar")
}

func TestImportHTML(t *testing.T) {
	env := newEnv(t, engine.Params{})
	ctx := context.Background()

	input := filepath.Join(t.TempDir(), "import.html")
	assert.NilError(t, os.WriteFile(input, []byte(`<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><H3 ADD_DATE="1700000000">Imported</H3>
    <DL><p>
        <DT><A HREF="https://example.com/" ADD_DATE="1700000000">Example</A>
    </DL><p>
</DL><p>
`), 0o600))

	res, err := env.eng.ImportHTML(ctx, engine.ImportHTMLRequest{InputFile: input, TargetPath: "other"})
	assert.NilError(t, err)
	assert.Equal(t, res.Folders, 1)
	assert.Equal(t, res.Bookmarks, 1)
	assert.Check(t, strings.Contains(res.BackupPath, ".bak.import."))

	list, err := env.eng.ListContents(ctx, engine.ListContentsRequest{FolderPath: "other > Imported"})
	assert.NilError(t, err)
	assert.Assert(t, is.Len(list.Bookmarks, 1))
	assert.Equal(t, list.Bookmarks[0].ID, "10")

	_, err = env.eng.ImportHTML(ctx, engine.ImportHTMLRequest{InputFile: input + ".missing", TargetPath: "other"})
	assert.Equal(t, engine.Classify(err), engine.KindNotFound)
}

func TestListBackups(t *testing.T) {
	t.Run("journal", func(t *testing.T) {
		j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
		assert.NilError(t, err)
		defer j.Close()

		env := newEnv(t, engine.Params{Journal: j})
		ctx := context.Background()
		_, err = env.eng.CreateFolder(ctx, engine.CreateFolderRequest{ParentPath: "other", Name: "New"})
		assert.NilError(t, err)

		res, err := env.eng.ListBackups(ctx, engine.ListBackupsRequest{ProfilePath: env.profile})
		assert.NilError(t, err)
		assert.Equal(t, res.Source, "journal")
		assert.Assert(t, is.Len(res.Backups, 1))
		assert.Equal(t, res.Backups[0].Op, "create")
		assert.Equal(t, res.Backups[0].ProfilePath, env.profile)
		assert.Check(t, is.Contains(res.Backups[0].Summary, "other > New"))
	})

	t.Run("files", func(t *testing.T) {
		env := newEnv(t, engine.Params{})
		ctx := context.Background()
		_, err := env.eng.RemoveDuplicates(ctx, engine.RemoveDuplicatesRequest{})
		assert.NilError(t, err)
		_, err = env.eng.Sort(ctx, engine.SortRequest{FolderPath: "bar > Work"})
		assert.NilError(t, err)

		res, err := env.eng.ListBackups(ctx, engine.ListBackupsRequest{})
		assert.NilError(t, err)
		assert.Equal(t, res.Source, "files")
		assert.Assert(t, is.Len(res.Backups, 2))
		assert.Equal(t, res.Backups[0].Op, "sort")
		assert.Equal(t, res.Backups[1].Op, "dedupe")
	})
}

func TestProfileNotFound(t *testing.T) {
	env := newEnv(t, engine.Params{})
	missing := filepath.Join(t.TempDir(), "Bookmarks")

	_, err := env.eng.GetStructure(context.Background(), engine.StructureRequest{ProfilePath: missing})
	assert.Equal(t, engine.Classify(err), engine.KindNotFound)
	assert.Check(t, is.Contains(engine.Hint(err), "profile_path"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want engine.Kind
	}{
		{name: "path", err: &model.PathError{Path: "bar > x", Err: model.ErrNotFound}, want: engine.KindNotFound},
		{name: "profile", err: &storage.NotFoundError{Path: "/x"}, want: engine.KindNotFound},
		{name: "not empty", err: &model.PathError{Err: model.ErrNotEmpty}, want: engine.KindRefusal},
		{name: "conflict", err: fmt.Errorf("%w: changed", storage.ErrConflict), want: engine.KindConflict},
		{name: "corrupt", err: &storage.CorruptError{Path: "/x", Err: errors.New("bad json")}, want: engine.KindMalformed},
		{name: "argument", err: fmt.Errorf("%w: empty", model.ErrInvalidArgument), want: engine.KindMalformed},
		{name: "backup", err: fmt.Errorf("%w: %w", storage.ErrBackupFailed, os.ErrPermission), want: engine.KindIO},
		{name: "other", err: errors.New("disk on fire"), want: engine.KindIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, engine.Classify(tt.err), tt.want)
		})
	}
}
