package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nikbrunner/bmtools/internal/engine"
)

// MaxIDsPerCall bounds move_bookmarks_by_ids.
const MaxIDsPerCall = 20

// pathHelp is appended to tool descriptions that take folder paths.
const pathHelp = `
Paths start at a root (bar, other, synced, or the browser's own root names such as 書籤列)
and use " > " between folder names, e.g. "bar > Work > Docs".`

type CreateFolderInput struct {
	ParentPath  string `json:"parent_path" jsonschema:"Folder to create the new folder in" validate:"required"`
	Name        string `json:"name" jsonschema:"Name of the new folder" validate:"required"`
	ProfilePath string `json:"profile_path,omitempty" jsonschema:"Bookmarks file (defaults to the configured or platform default profile)"`
}

type RenameFolderInput struct {
	FolderPath  string `json:"folder_path" jsonschema:"Folder to rename" validate:"required"`
	NewName     string `json:"new_name" jsonschema:"New folder name" validate:"required"`
	ProfilePath string `json:"profile_path,omitempty" jsonschema:"Bookmarks file (defaults to the configured or platform default profile)"`
}

type DeleteFolderInput struct {
	FolderPath  string `json:"folder_path" jsonschema:"Folder to delete" validate:"required"`
	Force       bool   `json:"force,omitempty" jsonschema:"Delete the folder even if it still has children"`
	ProfilePath string `json:"profile_path,omitempty" jsonschema:"Bookmarks file (defaults to the configured or platform default profile)"`
}

type MoveByKeywordInput struct {
	SourcePath  string `json:"source_path" jsonschema:"Folder whose direct children are moved" validate:"required"`
	TargetPath  string `json:"target_path" jsonschema:"Folder that receives the moved items" validate:"required"`
	Keyword     string `json:"keyword,omitempty" jsonschema:"Case-insensitive text matched against names and urls (empty moves everything)"`
	ProfilePath string `json:"profile_path,omitempty" jsonschema:"Bookmarks file (defaults to the configured or platform default profile)"`
}

type MoveByIDsInput struct {
	IDs         []string `json:"ids" jsonschema:"Bookmark ids to move, at most 20 per call" validate:"required,min=1,max=20,dive,required,numeric"`
	TargetPath  string   `json:"target_path" jsonschema:"Folder that receives the bookmarks" validate:"required"`
	ProfilePath string   `json:"profile_path,omitempty" jsonschema:"Bookmarks file (defaults to the configured or platform default profile)"`
}

type SortFolderInput struct {
	FolderPath  string `json:"folder_path" jsonschema:"Folder whose direct children are sorted" validate:"required"`
	ProfilePath string `json:"profile_path,omitempty" jsonschema:"Bookmarks file (defaults to the configured or platform default profile)"`
}

type ProfileInput struct {
	ProfilePath string `json:"profile_path,omitempty" jsonschema:"Bookmarks file (defaults to the configured or platform default profile)"`
}

type RemoveURLsInput struct {
	URLs        []string `json:"urls" jsonschema:"Bookmarks with any of these exact urls are removed" validate:"required,min=1,dive,required"`
	ProfilePath string   `json:"profile_path,omitempty" jsonschema:"Bookmarks file (defaults to the configured or platform default profile)"`
}

type ScanLinksInput struct {
	Limit       int    `json:"limit,omitempty" jsonschema:"Maximum number of web bookmarks to check (default 100)" validate:"gte=0,lte=5000"`
	AutoRemove  bool   `json:"auto_remove,omitempty" jsonschema:"Remove the dead bookmarks after the scan"`
	ProfilePath string `json:"profile_path,omitempty" jsonschema:"Bookmarks file (defaults to the configured or platform default profile)"`
}

type ExportInput struct {
	OutputFilename string `json:"output_filename,omitempty" jsonschema:"File name inside the export directory (default bookmarks_cleaned.html)"`
	ProfilePath    string `json:"profile_path,omitempty" jsonschema:"Bookmarks file (defaults to the configured or platform default profile)"`
}

type FolderContentsInput struct {
	FolderPath  string `json:"folder_path" jsonschema:"Folder to list" validate:"required"`
	ProfilePath string `json:"profile_path,omitempty" jsonschema:"Bookmarks file (defaults to the configured or platform default profile)"`
}

type SearchInput struct {
	Query       string `json:"query" jsonschema:"Text to fuzzy-match against bookmark names and urls" validate:"required"`
	Limit       int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 20)" validate:"gte=0,lte=200"`
	ProfilePath string `json:"profile_path,omitempty" jsonschema:"Bookmarks file (defaults to the configured or platform default profile)"`
}

type ImportInput struct {
	InputFile   string `json:"input_file" jsonschema:"Netscape bookmark HTML file to import" validate:"required"`
	TargetPath  string `json:"target_path" jsonschema:"Folder that receives the imported entries" validate:"required"`
	ProfilePath string `json:"profile_path,omitempty" jsonschema:"Bookmarks file (defaults to the configured or platform default profile)"`
}

type ListBackupsInput struct {
	Limit       int    `json:"limit,omitempty" jsonschema:"Maximum number of backups (default 20)" validate:"gte=0,lte=500"`
	ProfilePath string `json:"profile_path,omitempty" jsonschema:"Only list backups of this bookmarks file"`
}

// RegisterBookmarkTools adds the bookmark tools to server.
func RegisterBookmarkTools(server *mcp.Server, eng *engine.Engine) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "create_bookmark_folder",
		Description: `Create a folder. Creating a folder that already exists is a no-op and reports created=false.
Example: create_bookmark_folder {parent_path: "bar > Work", name: "Docs"}` + pathHelp,
	}, handle(func(ctx context.Context, in CreateFolderInput) (*engine.CreateFolderResult, error) {
		return eng.CreateFolder(ctx, engine.CreateFolderRequest{ProfilePath: in.ProfilePath, ParentPath: in.ParentPath, Name: in.Name})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rename_bookmark_folder",
		Description: `Rename a folder. Siblings may share a name.` + pathHelp,
	}, handle(func(ctx context.Context, in RenameFolderInput) (*engine.RenameFolderResult, error) {
		return eng.RenameFolder(ctx, engine.RenameFolderRequest{ProfilePath: in.ProfilePath, FolderPath: in.FolderPath, NewName: in.NewName})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name: "delete_bookmark_folder",
		Description: `Delete a folder. A folder with children is refused unless force is true; roots are never deleted.
A backup of the bookmarks file is written first.` + pathHelp,
	}, handle(func(ctx context.Context, in DeleteFolderInput) (*engine.DeleteFolderResult, error) {
		return eng.DeleteFolder(ctx, engine.DeleteFolderRequest{ProfilePath: in.ProfilePath, FolderPath: in.FolderPath, Force: in.Force})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name: "move_bookmarks_by_keyword",
		Description: `Move the direct children of a folder whose name or url contains keyword into another folder.
Without a keyword every child is moved. No match moves nothing and is not an error.` + pathHelp,
	}, handle(func(ctx context.Context, in MoveByKeywordInput) (*engine.MoveResult, error) {
		return eng.MoveByKeyword(ctx, engine.MoveByKeywordRequest{
			ProfilePath: in.ProfilePath,
			SourcePath:  in.SourcePath,
			TargetPath:  in.TargetPath,
			Keyword:     in.Keyword,
		})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name: "move_bookmarks_by_ids",
		Description: fmt.Sprintf(`Move bookmarks by id from anywhere in the tree into a folder, at most %d ids per call.
Ids come from get_folder_contents or search_bookmarks. Unknown ids are reported in missing.`, MaxIDsPerCall) + pathHelp,
	}, handle(func(ctx context.Context, in MoveByIDsInput) (*engine.MoveResult, error) {
		return eng.MoveByIDs(ctx, engine.MoveByIDsRequest{ProfilePath: in.ProfilePath, IDs: in.IDs, TargetPath: in.TargetPath})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sort_bookmark_folder",
		Description: `Sort the direct children of a folder: folders first, then by name (case-insensitive, CJK aware).` + pathHelp,
	}, handle(func(ctx context.Context, in SortFolderInput) (*engine.SortResult, error) {
		return eng.Sort(ctx, engine.SortRequest{ProfilePath: in.ProfilePath, FolderPath: in.FolderPath})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_duplicate_bookmarks",
		Description: `Remove bookmarks whose url already appeared earlier in the tree (bar, then other, then synced).`,
	}, handle(func(ctx context.Context, in ProfileInput) (*engine.RemoveResult, error) {
		return eng.RemoveDuplicates(ctx, engine.RemoveDuplicatesRequest{ProfilePath: in.ProfilePath})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_bookmarks_by_url",
		Description: `Remove every bookmark whose url is in urls, wherever it is in the tree.`,
	}, handle(func(ctx context.Context, in RemoveURLsInput) (*engine.RemoveResult, error) {
		return eng.RemoveURLs(ctx, engine.RemoveURLsRequest{ProfilePath: in.ProfilePath, URLs: in.URLs})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name: "scan_and_clean_bookmarks",
		Description: `Check web bookmarks for dead links (HTTP status >= 400 or network failure).
Private and local hosts are skipped. With auto_remove the dead bookmarks are deleted after a backup.`,
	}, handle(func(ctx context.Context, in ScanLinksInput) (*engine.ScanLinksResult, error) {
		return eng.ScanLinks(ctx, engine.ScanLinksRequest{ProfilePath: in.ProfilePath, Limit: in.Limit, AutoRemove: in.AutoRemove})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_bookmarks_to_html",
		Description: `Export all bookmarks as a Netscape bookmark HTML file that browsers can import.`,
	}, handle(func(ctx context.Context, in ExportInput) (*engine.ExportResult, error) {
		return eng.Export(ctx, engine.ExportRequest{ProfilePath: in.ProfilePath, OutputFilename: in.OutputFilename})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_folder_contents",
		Description: `List the subfolders and bookmarks directly inside a folder, with their ids.` + pathHelp,
	}, handle(func(ctx context.Context, in FolderContentsInput) (*engine.ListContentsResult, error) {
		return eng.ListContents(ctx, engine.ListContentsRequest{ProfilePath: in.ProfilePath, FolderPath: in.FolderPath})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_bookmark_structure",
		Description: `List every folder with its path, depth and number of bookmarks.`,
	}, handle(func(ctx context.Context, in ProfileInput) (*engine.StructureResult, error) {
		return eng.GetStructure(ctx, engine.StructureRequest{ProfilePath: in.ProfilePath})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_bookmarks",
		Description: `Fuzzy search bookmark names and urls. Results carry ids for move_bookmarks_by_ids.`,
	}, handle(func(ctx context.Context, in SearchInput) (*engine.SearchResult, error) {
		return eng.SearchBookmarks(ctx, engine.SearchRequest{ProfilePath: in.ProfilePath, Query: in.Query, Limit: in.Limit})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_bookmarks_from_html",
		Description: `Import a Netscape bookmark HTML file into a folder. Imported entries get new ids.` + pathHelp,
	}, handle(func(ctx context.Context, in ImportInput) (*engine.ImportHTMLResult, error) {
		return eng.ImportHTML(ctx, engine.ImportHTMLRequest{ProfilePath: in.ProfilePath, InputFile: in.InputFile, TargetPath: in.TargetPath})
	}))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_bookmark_backups",
		Description: `List the backups written before each change, newest first.`,
	}, handle(func(ctx context.Context, in ListBackupsInput) (*engine.ListBackupsResult, error) {
		return eng.ListBackups(ctx, engine.ListBackupsRequest{ProfilePath: in.ProfilePath, Limit: in.Limit})
	}))
}

// handle adapts an engine call to a tool handler. Invalid input and
// recoverable failures become error results the client can act on; only
// unexpected failures are returned as Go errors.
func handle[In, Out any](call func(context.Context, In) (*Out, error)) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		var zero Out
		if msg := validateInput(in); msg != "" {
			return errorResult(msg), zero, nil
		}

		out, err := call(ctx, in)
		if err != nil {
			if engine.Classify(err) == engine.KindIO {
				return nil, zero, err
			}
			return errorResult(failureMessage(err)), zero, nil
		}
		return nil, *out, nil
	}
}

func failureMessage(err error) string {
	msg := fmt.Sprintf("%s: %v", engine.Classify(err), err)
	if hint := engine.Hint(err); hint != "" {
		msg += "\nhint: " + hint
	}
	return msg
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
