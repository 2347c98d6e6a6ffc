package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikbrunner/bmtools/internal/model"
)

// NodeSummary describes one folder or bookmark in a result.
type NodeSummary struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

func summarize(nodes []*model.Node) []NodeSummary {
	out := make([]NodeSummary, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NodeSummary{ID: n.ID, Type: string(n.Type), Name: n.Name, URL: n.URL})
	}
	return out
}

type CreateFolderRequest struct {
	ProfilePath string
	ParentPath  string
	Name        string
}

type CreateFolderResult struct {
	Profile string `json:"profile"`
	ID      string `json:"id"`
	Path    string `json:"path"`
	// Created is false when the folder already existed.
	Created    bool   `json:"created"`
	BackupPath string `json:"backup_path,omitempty"`
}

// CreateFolder creates a folder under ParentPath. An existing folder with
// the same name is returned unchanged.
func (e *Engine) CreateFolder(ctx context.Context, req CreateFolderRequest) (*CreateFolderResult, error) {
	var res CreateFolderResult
	profile, backup, err := e.mutate(ctx, req.ProfilePath, "create", func(store *model.Store) (change, error) {
		folder, created, err := store.CreateFolder(req.ParentPath, req.Name, e.now())
		if err != nil {
			return change{}, err
		}
		res.ID = folder.ID
		res.Path = model.JoinPath([]string{store.CanonicalPath(req.ParentPath), folder.Name})
		res.Created = created
		return change{changed: created, summary: "created folder " + res.Path}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Profile, res.BackupPath = profile, backup
	return &res, nil
}

type RenameFolderRequest struct {
	ProfilePath string
	FolderPath  string
	NewName     string
}

type RenameFolderResult struct {
	Profile    string `json:"profile"`
	OldName    string `json:"old_name"`
	NewName    string `json:"new_name"`
	Changed    bool   `json:"changed"`
	BackupPath string `json:"backup_path,omitempty"`
}

// RenameFolder renames the folder at FolderPath. Siblings with the same name
// are allowed.
func (e *Engine) RenameFolder(ctx context.Context, req RenameFolderRequest) (*RenameFolderResult, error) {
	var res RenameFolderResult
	profile, backup, err := e.mutate(ctx, req.ProfilePath, "rename", func(store *model.Store) (change, error) {
		old, err := store.RenameFolder(req.FolderPath, req.NewName)
		if err != nil {
			return change{}, err
		}
		res.OldName = old
		res.NewName = strings.TrimSpace(req.NewName)
		res.Changed = old != res.NewName
		return change{changed: res.Changed, summary: fmt.Sprintf("renamed %q to %q", old, res.NewName)}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Profile, res.BackupPath = profile, backup
	return &res, nil
}

type DeleteFolderRequest struct {
	ProfilePath string
	FolderPath  string
	Force       bool
}

type DeleteFolderResult struct {
	Profile string `json:"profile"`
	Path    string `json:"path"`
	// Folders and Bookmarks count what was removed below the deleted folder.
	Folders    int    `json:"folders"`
	Bookmarks  int    `json:"bookmarks"`
	BackupPath string `json:"backup_path,omitempty"`
}

// DeleteFolder removes the folder at FolderPath. A non-empty folder is
// refused unless Force is set.
func (e *Engine) DeleteFolder(ctx context.Context, req DeleteFolderRequest) (*DeleteFolderResult, error) {
	var res DeleteFolderResult
	profile, backup, err := e.mutate(ctx, req.ProfilePath, "delete", func(store *model.Store) (change, error) {
		removed, err := store.DeleteFolder(req.FolderPath, req.Force)
		if err != nil {
			return change{}, err
		}
		res.Path = store.CanonicalPath(req.FolderPath)
		res.Folders, res.Bookmarks = subtreeCounts(removed)
		return change{
			changed: true,
			summary: fmt.Sprintf("deleted %s (%d folders, %d bookmarks inside)", res.Path, res.Folders, res.Bookmarks),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Profile, res.BackupPath = profile, backup
	return &res, nil
}

// subtreeCounts counts the folders and bookmarks below root.
func subtreeCounts(root *model.Node) (folders, bookmarks int) {
	stack := append([]*model.Node(nil), root.Children...)
	seen := make(map[*model.Node]bool)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || seen[n] {
			continue
		}
		seen[n] = true
		if n.IsFolder() {
			folders++
			stack = append(stack, n.Children...)
		} else {
			bookmarks++
		}
	}
	return folders, bookmarks
}

type MoveByKeywordRequest struct {
	ProfilePath string
	SourcePath  string
	TargetPath  string
	// Keyword is matched case-insensitively. Empty moves everything.
	Keyword string
}

type MoveResult struct {
	Profile string        `json:"profile"`
	Moved   int           `json:"moved"`
	Items   []NodeSummary `json:"items"`
	// Missing lists requested ids that were not found.
	Missing    []string `json:"missing,omitempty"`
	Target     string   `json:"target"`
	Changed    bool     `json:"changed"`
	BackupPath string   `json:"backup_path,omitempty"`
}

// MoveByKeyword moves the matching direct children of SourcePath to
// TargetPath. No match is a successful no-op with Moved == 0.
func (e *Engine) MoveByKeyword(ctx context.Context, req MoveByKeywordRequest) (*MoveResult, error) {
	var res MoveResult
	profile, backup, err := e.mutate(ctx, req.ProfilePath, "move", func(store *model.Store) (change, error) {
		moved, err := store.MoveByKeyword(req.SourcePath, req.TargetPath, strings.TrimSpace(req.Keyword))
		if err != nil {
			return change{}, err
		}
		res.Target = store.CanonicalPath(req.TargetPath)
		res.Moved = len(moved)
		res.Items = summarize(moved)
		res.Changed = len(moved) > 0
		return change{
			changed: res.Changed,
			summary: fmt.Sprintf("moved %d items from %s to %s", len(moved), store.CanonicalPath(req.SourcePath), res.Target),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Profile, res.BackupPath = profile, backup
	return &res, nil
}

type MoveByIDsRequest struct {
	ProfilePath string
	IDs         []string
	TargetPath  string
}

// MoveByIDs moves the bookmarks with the given ids, wherever they are, to
// TargetPath in tree order. Unknown ids are reported in Missing; it fails
// with a not-found error only when none of the ids exists.
func (e *Engine) MoveByIDs(ctx context.Context, req MoveByIDsRequest) (*MoveResult, error) {
	var res MoveResult
	profile, backup, err := e.mutate(ctx, req.ProfilePath, "move-ids", func(store *model.Store) (change, error) {
		moved, missing, err := store.MoveByIDs(req.IDs, req.TargetPath)
		if err != nil {
			return change{}, err
		}
		res.Target = store.CanonicalPath(req.TargetPath)
		res.Moved = len(moved)
		res.Items = summarize(moved)
		res.Missing = missing
		res.Changed = true
		return change{changed: true, summary: fmt.Sprintf("moved %d bookmarks to %s", len(moved), res.Target)}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Profile, res.BackupPath = profile, backup
	return &res, nil
}

type SortRequest struct {
	ProfilePath string
	FolderPath  string
}

type SortResult struct {
	Profile    string `json:"profile"`
	Path       string `json:"path"`
	Children   int    `json:"children"`
	Changed    bool   `json:"changed"`
	BackupPath string `json:"backup_path,omitempty"`
}

// Sort orders the direct children of FolderPath: folders first, then by
// name under the configured collation.
func (e *Engine) Sort(ctx context.Context, req SortRequest) (*SortResult, error) {
	var res SortResult
	profile, backup, err := e.mutate(ctx, req.ProfilePath, "sort", func(store *model.Store) (change, error) {
		changed, err := store.SortFolder(req.FolderPath, e.cfg.CollationTag())
		if err != nil {
			return change{}, err
		}
		folder, _ := store.Resolve(req.FolderPath)
		res.Path = store.CanonicalPath(req.FolderPath)
		res.Children = len(folder.Children)
		res.Changed = changed
		return change{changed: changed, summary: fmt.Sprintf("sorted %s (%d children)", res.Path, res.Children)}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Profile, res.BackupPath = profile, backup
	return &res, nil
}
