package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nikbrunner/bmtools/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as MCP server over stdio",
	Long: `Run as an MCP (Model Context Protocol) server for AI assistants.

Each tool call loads the bookmark file fresh, applies one change and writes it
back after taking a backup. Nothing is cached between calls.`,
	RunE: runMCP,
}

const instructions = `Bookmark tools for a Chromium-based browser profile.

Folder paths start at a root (bar, other, synced) and use " > " between names,
for example "bar > Work > Docs". get_bookmark_structure lists all folders and
get_folder_contents lists bookmark ids for move_bookmarks_by_ids.

Every change writes a backup of the bookmark file first; list_bookmark_backups
shows them. Close the browser before editing: it rewrites the file on exit.`

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    appName,
			Version: appVersion,
		},
		&mcp.ServerOptions{
			HasTools:     true,
			Instructions: instructions,
		},
	)
	tools.RegisterBookmarkTools(server, a.eng)

	a.log.Info("starting MCP server", zap.String("version", appVersion))
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return err
	}
	a.log.Info("MCP server stopped")
	return nil
}
