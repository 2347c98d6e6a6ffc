package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nikbrunner/bmtools/internal/model"
)

// ParseHTML parses Netscape bookmark HTML into top-level folders and
// bookmarks with their subtrees. Ids are left empty for the caller to
// assign. Entries without ADD_DATE are stamped with now.
func ParseHTML(r io.Reader, now time.Time) ([]*model.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var top []*model.Node

	// Track current folder stack for hierarchy
	var folderStack []*model.Node
	var pendingFolder *model.Node // folder waiting to be pushed on next DL

	add := func(n *model.Node) {
		if len(folderStack) == 0 {
			top = append(top, n)
			return
		}
		parent := folderStack[len(folderStack)-1]
		parent.Children = append(parent.Children, n)
	}

	var parse func(n *html.Node, depth int) error
	parse = func(n *html.Node, depth int) error {
		if depth > model.MaxDepth {
			return fmt.Errorf("bookmark html nested deeper than %d", model.MaxDepth)
		}

		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				// Folder definition - get name from text content
				name := getTextContent(n)
				if name != "" {
					folder := model.NewFolder(model.NewFolderParams{
						Name: name,
						Now:  addDate(n, now),
					})
					add(folder)

					// Mark this folder as pending - will be pushed when we see the next DL
					pendingFolder = folder
				}
				return nil // Don't recurse into H3

			case "a":
				href := getAttr(n, "href")
				if href == "" {
					// Skip bookmarks without URL
					return nil
				}

				title := getTextContent(n)
				if title == "" {
					title = href // fallback to URL as title
				}

				add(model.NewBookmark(model.NewBookmarkParams{
					Name:  title,
					URL:   href,
					Added: addDate(n, now),
				}))
				return nil // Don't recurse into A

			case "dl":
				// Definition list - marks folder contents
				pushedFolder := false
				if pendingFolder != nil {
					folderStack = append(folderStack, pendingFolder)
					pendingFolder = nil
					pushedFolder = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if err := parse(c, depth+1); err != nil {
						return err
					}
				}

				if pushedFolder && len(folderStack) > 0 {
					folderStack = folderStack[:len(folderStack)-1]
				}
				return nil
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := parse(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := parse(doc, 0); err != nil {
		return nil, err
	}
	return top, nil
}

// addDate reads ADD_DATE (unix seconds), falling back to now.
func addDate(n *html.Node, now time.Time) time.Time {
	if v := getAttr(n, "add_date"); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil && ts > 0 {
			return time.Unix(ts, 0)
		}
	}
	return now
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
