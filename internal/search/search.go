package search

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/nikbrunner/bmtools/internal/model"
)

// SearchResult represents a fuzzy search match.
type SearchResult struct {
	Bookmark *model.Node
	// Folder is the path of the folder holding the bookmark.
	Folder string
	Score  int
}

// bookmarkSource implements fuzzy.Source over bookmark names and urls.
type bookmarkSource []model.Entry

func (bs bookmarkSource) String(i int) string {
	return bs[i].Node.Name + " " + bs[i].Node.URL
}

func (bs bookmarkSource) Len() int {
	return len(bs)
}

// FuzzySearchBookmarks searches all bookmarks by name and url using fuzzy
// matching. Returns at most limit results sorted by match score (best
// first); limit <= 0 means no limit.
func FuzzySearchBookmarks(store *model.Store, query string, limit int) []SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	source := bookmarkSource(store.Bookmarks())
	matches := fuzzy.FindFrom(query, source)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		entry := source[m.Index]
		results[i] = SearchResult{
			Bookmark: entry.Node,
			Folder:   entry.FolderPath(),
			Score:    m.Score,
		}
	}

	return results
}
