package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmtools/internal/engine"
)

var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Print the folder tree with bookmark counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.eng.GetStructure(cmd.Context(), engine.StructureRequest{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, f := range res.Folders {
			name := f.Name
			if f.Depth == 0 {
				name = f.Path + " (" + f.Name + ")"
			}
			fmt.Fprintf(out, "%s%s [%d]\n", strings.Repeat("  ", f.Depth), name, f.Bookmarks)
		}
		fmt.Fprintf(out, "\n%d folders, %d bookmarks in %s\n", res.TotalFolders, res.TotalBookmarks, res.Profile)
		return nil
	},
}

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy search bookmarks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		query := strings.Join(args, " ")
		res, err := a.eng.SearchBookmarks(cmd.Context(), engine.SearchRequest{Query: query, Limit: searchLimit})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(res.Results) == 0 {
			fmt.Fprintf(out, "No bookmarks found for '%s'\n", query)
			return nil
		}
		for _, r := range res.Results {
			fmt.Fprintf(out, "%6s  %s\n        %s  (%s)\n", r.ID, r.Name, r.URL, r.Folder)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [filename]",
	Short: "Export bookmarks to Netscape HTML in the export directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var filename string
		if len(args) == 1 {
			filename = args[0]
		}
		res, err := a.eng.Export(cmd.Context(), engine.ExportRequest{OutputFilename: filename})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bookmarks, %d folders to %s\n", res.Bookmarks, res.Folders, res.Path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.html> <target-path>",
	Short: "Import a Netscape bookmark HTML file into a folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.eng.ImportHTML(cmd.Context(), engine.ImportHTMLRequest{InputFile: args[0], TargetPath: args[1]})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Imported %d bookmarks, %d folders into %s\n", res.Bookmarks, res.Folders, res.Target)
		printBackup(cmd, res.BackupPath)
		return nil
	},
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Remove bookmarks whose url appears earlier in the tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.eng.RemoveDuplicates(cmd.Context(), engine.RemoveDuplicatesRequest{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, item := range res.Items {
			fmt.Fprintf(out, "removed %s  %s\n", item.ID, item.URL)
		}
		fmt.Fprintf(out, "Removed %d duplicate bookmarks\n", res.Removed)
		printBackup(cmd, res.BackupPath)
		return nil
	},
}

var (
	scanLimit  int
	scanRemove bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Check bookmarks for dead links",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.eng.ScanLinks(cmd.Context(), engine.ScanLinksRequest{Limit: scanLimit, AutoRemove: scanRemove})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, line := range res.Log {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintf(out, "Checked %d, skipped %d private, %d dead\n", res.Checked, res.Skipped, len(res.Dead))
		if scanRemove {
			fmt.Fprintf(out, "Removed %d dead bookmarks\n", res.Removed)
			printBackup(cmd, res.BackupPath)
		}
		return nil
	},
}

var backupsLimit int

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List backups taken before each change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.eng.ListBackups(cmd.Context(), engine.ListBackupsRequest{ProfilePath: flagProfile, Limit: backupsLimit})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(res.Backups) == 0 {
			fmt.Fprintln(out, "No backups found")
			return nil
		}
		for _, b := range res.Backups {
			fmt.Fprintf(out, "%s  %-9s %s\n", b.CreatedAt, b.Op, b.BackupPath)
			if b.Summary != "" {
				fmt.Fprintf(out, "%22s%s\n", "", b.Summary)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Maximum number of results")
	scanCmd.Flags().IntVar(&scanLimit, "limit", 0, "Maximum number of bookmarks to check (default from config)")
	scanCmd.Flags().BoolVar(&scanRemove, "remove", false, "Remove dead bookmarks after a backup")
	backupsCmd.Flags().IntVarP(&backupsLimit, "limit", "n", 20, "Maximum number of backups")
}

func printBackup(cmd *cobra.Command, path string) {
	if path == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing changed, no backup written")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backup: %s\n", path)
}
