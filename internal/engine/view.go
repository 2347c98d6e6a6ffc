package engine

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/nikbrunner/bmtools/internal/exporter"
	"github.com/nikbrunner/bmtools/internal/importer"
	"github.com/nikbrunner/bmtools/internal/journal"
	"github.com/nikbrunner/bmtools/internal/model"
	"github.com/nikbrunner/bmtools/internal/search"
	"github.com/nikbrunner/bmtools/internal/storage"
)

type ListContentsRequest struct {
	ProfilePath string
	FolderPath  string
}

// FolderSummary is a subfolder in a listing.
type FolderSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Children int    `json:"children"`
}

// BookmarkSummary is a bookmark in a listing.
type BookmarkSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type ListContentsResult struct {
	Profile   string            `json:"profile"`
	Path      string            `json:"path"`
	Folders   []FolderSummary   `json:"folders"`
	Bookmarks []BookmarkSummary `json:"bookmarks"`
}

// ListContents returns the direct children of FolderPath.
func (e *Engine) ListContents(ctx context.Context, req ListContentsRequest) (*ListContentsResult, error) {
	snap, err := e.load(req.ProfilePath)
	if err != nil {
		return nil, err
	}
	folder, err := snap.Store.Resolve(req.FolderPath)
	if err != nil {
		return nil, err
	}

	res := &ListContentsResult{
		Profile:   snap.Path,
		Path:      snap.Store.CanonicalPath(req.FolderPath),
		Folders:   []FolderSummary{},
		Bookmarks: []BookmarkSummary{},
	}
	for _, child := range folder.Children {
		if child.IsFolder() {
			res.Folders = append(res.Folders, FolderSummary{ID: child.ID, Name: child.Name, Children: len(child.Children)})
		} else {
			res.Bookmarks = append(res.Bookmarks, BookmarkSummary{ID: child.ID, Name: child.Name, URL: child.URL})
		}
	}
	return res, nil
}

type StructureRequest struct {
	ProfilePath string
}

// StructureFolder is one folder of the tree, listed in pre-order.
type StructureFolder struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	Depth int    `json:"depth"`
	// Bookmarks counts the folder's direct bookmarks.
	Bookmarks int `json:"bookmarks"`
}

type StructureResult struct {
	Profile   string            `json:"profile"`
	Folders   []StructureFolder `json:"folders"`
	// TotalFolders excludes the roots.
	TotalFolders   int `json:"total_folders"`
	TotalBookmarks int `json:"total_bookmarks"`
}

// GetStructure returns every folder with its path and bookmark count.
// Bookmarks themselves are not listed.
func (e *Engine) GetStructure(ctx context.Context, req StructureRequest) (*StructureResult, error) {
	snap, err := e.load(req.ProfilePath)
	if err != nil {
		return nil, err
	}
	store := snap.Store

	res := &StructureResult{Profile: snap.Path, Folders: []StructureFolder{}}
	store.Walk(func(en model.Entry) bool {
		n := en.Node
		if !n.IsFolder() {
			res.TotalBookmarks++
			return true
		}

		label := n.Name
		if en.Parent == nil {
			label = rootLabel(store, n)
		} else {
			res.TotalFolders++
		}
		bookmarks := 0
		for _, c := range n.Children {
			if c != nil && c.IsBookmark() {
				bookmarks++
			}
		}
		res.Folders = append(res.Folders, StructureFolder{
			ID:        n.ID,
			Name:      n.Name,
			Path:      model.JoinPath(append(slices.Clone(en.Path), label)),
			Depth:     len(en.Path),
			Bookmarks: bookmarks,
		})
		return true
	})
	return res, nil
}

func rootLabel(store *model.Store, n *model.Node) string {
	for _, r := range model.Roots {
		if store.Root(r) == n {
			return r.String()
		}
	}
	return n.Name
}

type SearchRequest struct {
	ProfilePath string
	Query       string
	// Limit defaults to 20.
	Limit int
}

// SearchHit is one fuzzy match.
type SearchHit struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Folder string `json:"folder"`
	Score  int    `json:"score"`
}

type SearchResult struct {
	Profile string      `json:"profile"`
	Results []SearchHit `json:"results"`
}

// SearchBookmarks fuzzy-matches Query against bookmark names and urls.
func (e *Engine) SearchBookmarks(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	snap, err := e.load(req.ProfilePath)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	res := &SearchResult{Profile: snap.Path, Results: []SearchHit{}}
	for _, m := range search.FuzzySearchBookmarks(snap.Store, req.Query, limit) {
		res.Results = append(res.Results, SearchHit{
			ID:     m.Bookmark.ID,
			Name:   m.Bookmark.Name,
			URL:    m.Bookmark.URL,
			Folder: m.Folder,
			Score:  m.Score,
		})
	}
	return res, nil
}

type ExportRequest struct {
	ProfilePath    string
	OutputFilename string
}

type ExportResult struct {
	Profile   string `json:"profile"`
	Path      string `json:"path"`
	Folders   int    `json:"folders"`
	Bookmarks int    `json:"bookmarks"`
}

// Export writes the tree as Netscape bookmark HTML into the configured
// export directory.
func (e *Engine) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	snap, err := e.load(req.ProfilePath)
	if err != nil {
		return nil, err
	}
	dir, err := storage.ExpandHome(e.cfg.Export.Dir)
	if err != nil {
		return nil, err
	}
	out, err := exporter.OutputPath(dir, req.OutputFilename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidArgument, err)
	}

	data := exporter.ExportHTML(snap.Store, e.now())
	if err := os.WriteFile(out, []byte(data), 0o644); err != nil {
		return nil, fmt.Errorf("write export %s: %w", out, err)
	}

	folders, bookmarks := snap.Store.Counts()
	e.log.Info("bookmarks exported",
		zap.String("profile", snap.Path),
		zap.String("output", out),
		zap.Int("bookmarks", bookmarks))
	return &ExportResult{Profile: snap.Path, Path: out, Folders: folders, Bookmarks: bookmarks}, nil
}

type ImportHTMLRequest struct {
	ProfilePath string
	InputFile   string
	TargetPath  string
}

type ImportHTMLResult struct {
	Profile    string `json:"profile"`
	Target     string `json:"target"`
	Folders    int    `json:"folders"`
	Bookmarks  int    `json:"bookmarks"`
	BackupPath string `json:"backup_path,omitempty"`
}

// ImportHTML appends the folders and bookmarks of a Netscape bookmark file
// under TargetPath with fresh ids.
func (e *Engine) ImportHTML(ctx context.Context, req ImportHTMLRequest) (*ImportHTMLResult, error) {
	path, err := storage.ExpandHome(req.InputFile)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: import file %s", model.ErrNotFound, path)
		}
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	nodes, err := importer.ParseHTML(f, e.now())
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", model.ErrMalformed, path, err)
	}

	var res ImportHTMLResult
	profile, backup, err := e.mutate(ctx, req.ProfilePath, "import", func(store *model.Store) (change, error) {
		folders, bookmarks, err := store.ImportNodes(req.TargetPath, nodes)
		if err != nil {
			return change{}, err
		}
		res.Target = store.CanonicalPath(req.TargetPath)
		res.Folders, res.Bookmarks = folders, bookmarks
		return change{
			changed: len(nodes) > 0,
			summary: fmt.Sprintf("imported %d folders and %d bookmarks into %s", folders, bookmarks, res.Target),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Profile, res.BackupPath = profile, backup
	return &res, nil
}

type ListBackupsRequest struct {
	// ProfilePath filters the journal. Without a journal it names the
	// bookmark file whose backups are listed.
	ProfilePath string
	// Limit defaults to 20.
	Limit int
}

// BackupSummary is one backup taken before a write.
type BackupSummary struct {
	Op          string `json:"op"`
	ProfilePath string `json:"profile_path"`
	BackupPath  string `json:"backup_path"`
	Summary     string `json:"summary,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type ListBackupsResult struct {
	// Source is "journal" or "files".
	Source  string          `json:"source"`
	Backups []BackupSummary `json:"backups"`
}

// ListBackups lists recent backups, newest first. It reads the journal when
// one is configured and otherwise looks for backup files next to the
// bookmark file. Backup contents are never read.
func (e *Engine) ListBackups(ctx context.Context, req ListBackupsRequest) (*ListBackupsResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	if e.journal != nil {
		filter := ""
		if req.ProfilePath != "" {
			p, err := storage.ExpandHome(req.ProfilePath)
			if err != nil {
				return nil, err
			}
			filter = p
		}
		entries, err := e.journal.List(ctx, journal.ListOptions{ProfilePath: filter, Limit: limit})
		if err != nil {
			return nil, fmt.Errorf("list journal: %w", err)
		}
		res := &ListBackupsResult{Source: "journal", Backups: []BackupSummary{}}
		for _, en := range entries {
			res.Backups = append(res.Backups, BackupSummary{
				Op:          en.Op,
				ProfilePath: en.ProfilePath,
				BackupPath:  en.BackupPath,
				Summary:     en.Summary,
				CreatedAt:   en.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return res, nil
	}

	path, err := storage.ResolveProfilePath(req.ProfilePath, e.cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("resolve profile path: %w", err)
	}
	files, err := storage.FindBackups(path)
	if err != nil {
		return nil, err
	}
	res := &ListBackupsResult{Source: "files", Backups: []BackupSummary{}}
	for _, f := range files {
		if len(res.Backups) == limit {
			break
		}
		res.Backups = append(res.Backups, BackupSummary{
			Op:          f.Op,
			ProfilePath: path,
			BackupPath:  f.Path,
			CreatedAt:   f.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return res, nil
}
