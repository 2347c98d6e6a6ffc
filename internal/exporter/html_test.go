package exporter

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/golden"

	"github.com/nikbrunner/bmtools/internal/model"
)

var exportNow = time.Unix(1700000000, 0)

func sampleStore() *model.Store {
	store := model.NewStore()
	store.Bar.Children = []*model.Node{
		{
			ID:        "4",
			Name:      "Dev & Tools",
			Type:      model.TypeFolder,
			DateAdded: model.FormatTimestamp(time.Unix(1600000000, 0)),
			Children: []*model.Node{
				{
					ID:        "5",
					Name:      "Go <1.22>",
					Type:      model.TypeURL,
					URL:       "https://go.dev/?a=1&b=2",
					DateAdded: model.FormatTimestamp(time.Unix(1650000000, 0)),
				},
			},
		},
		{ID: "6", Name: "GitHub", Type: model.TypeURL, URL: "https://github.com/"},
	}
	store.Synced.Children = []*model.Node{
		{
			ID:        "7",
			Name:      "Mobile",
			Type:      model.TypeURL,
			URL:       "https://m.example/",
			DateAdded: model.FormatTimestamp(time.Unix(1690000000, 0)),
		},
	}
	return store
}

func TestExportHTML_Golden(t *testing.T) {
	golden.Assert(t, ExportHTML(sampleStore(), exportNow), "export.golden")
}

func TestExportHTML_EmptyStore(t *testing.T) {
	out := ExportHTML(model.NewStore(), exportNow)

	// Should have basic structure even when empty
	if !strings.Contains(out, "<!DOCTYPE NETSCAPE-Bookmark-file-1>") {
		t.Error("expected DOCTYPE declaration")
	}
	if !strings.Contains(out, "<H1>Bookmarks</H1>") {
		t.Error("expected H1 element")
	}
	if strings.Count(out, "PERSONAL_TOOLBAR_FOLDER") != 1 {
		t.Error("expected exactly one toolbar folder")
	}
}

// TestExportHTML_BalancedLists checks that every opened list is closed, even
// for deep trees.
func TestExportHTML_BalancedLists(t *testing.T) {
	store := sampleStore()
	parent := store.Other
	for i := 0; i < 50; i++ {
		child := &model.Node{ID: "d" + string(rune('A'+i%26)) + strings.Repeat("x", i/26), Name: "level", Type: model.TypeFolder}
		parent.Children = append(parent.Children, child)
		parent = child
	}

	tokenizer := html.NewTokenizer(strings.NewReader(ExportHTML(store, exportNow)))
	open, closed, anchors := 0, 0, 0
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		name, _ := tokenizer.TagName()
		switch {
		case tt == html.StartTagToken && string(name) == "dl":
			open++
		case tt == html.EndTagToken && string(name) == "dl":
			closed++
		case tt == html.StartTagToken && string(name) == "a":
			anchors++
		}
	}

	// One outer list, three roots, one sample folder, fifty nested folders.
	assert.Equal(t, open, 55)
	assert.Equal(t, closed, open)
	assert.Equal(t, anchors, 3)
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()

	got, err := OutputPath(dir, "")
	assert.NilError(t, err)
	assert.Equal(t, got, filepath.Join(dir, DefaultFilename))

	got, err = OutputPath(dir, "mine.html")
	assert.NilError(t, err)
	assert.Equal(t, got, filepath.Join(dir, "mine.html"))

	for _, bad := range []string{"../escape.html", "sub/dir.html", ".."} {
		_, err := OutputPath(dir, bad)
		assert.Check(t, err != nil, bad)
	}
}
