package exporter

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/bmtools/internal/model"
)

// DefaultFilename is the export file name used when none is given.
const DefaultFilename = "bookmarks_cleaned.html"

// OutputPath joins dir and filename. The filename must be a plain file name.
func OutputPath(dir, filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = DefaultFilename
	}
	if filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", fmt.Errorf("output filename %q must not contain a directory", filename)
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(filepath.Join(dir, filename))
}

// ExportHTML exports the store to Netscape bookmark HTML format. Each root
// becomes a top-level folder; the bar root carries the toolbar marker.
// Nodes without a creation date are stamped with now.
func ExportHTML(store *model.Store, now time.Time) string {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	for _, r := range model.Roots {
		if root := store.Root(r); root != nil {
			writeTree(&b, root, r == model.RootBar, now)
		}
	}

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String()
}

// writeTree writes one root subtree. Folder close tags are pushed on the
// stack below their children so every opened list is closed.
func writeTree(b *strings.Builder, root *model.Node, toolbar bool, now time.Time) {
	type item struct {
		node  *model.Node
		depth int
		close bool
	}

	seen := make(map[*model.Node]bool)
	stack := []item{{node: root, depth: 1}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		prefix := strings.Repeat("    ", it.depth)

		if it.close {
			fmt.Fprintf(b, "%s</DL><p>\n", prefix)
			continue
		}
		if seen[it.node] {
			continue
		}
		seen[it.node] = true

		n := it.node
		if n.IsBookmark() {
			fmt.Fprintf(b,
				"%s<DT><A HREF=\"%s\" ADD_DATE=\"%d\">%s</A>\n",
				prefix,
				html.EscapeString(n.URL),
				addDate(n, now),
				html.EscapeString(n.Name),
			)
			continue
		}

		marker := ""
		if toolbar && n == root {
			marker = ` PERSONAL_TOOLBAR_FOLDER="true"`
		}
		fmt.Fprintf(b, "%s<DT><H3 ADD_DATE=\"%d\"%s>%s</H3>\n", prefix, addDate(n, now), marker, html.EscapeString(n.Name))
		fmt.Fprintf(b, "%s<DL><p>\n", prefix)

		stack = append(stack, item{depth: it.depth, close: true})
		for i := len(n.Children) - 1; i >= 0; i-- {
			if child := n.Children[i]; child != nil {
				stack = append(stack, item{node: child, depth: it.depth + 1})
			}
		}
	}
}

func addDate(n *model.Node, now time.Time) int64 {
	if t, ok := n.Added(); ok {
		return t.Unix()
	}
	return now.Unix()
}
