package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// NodeType distinguishes folders from bookmarks.
type NodeType string

const (
	TypeFolder NodeType = "folder"
	TypeURL    NodeType = "url"
)

// webkitEpochOffset is the number of seconds between 1601-01-01 and 1970-01-01.
const webkitEpochOffset = 11644473600

// Node is a single entry of the bookmark tree. A folder carries Children,
// a bookmark carries URL.
type Node struct {
	ID        string
	GUID      string
	Name      string
	Type      NodeType
	URL       string
	DateAdded string
	Children  []*Node

	// Extra holds the document keys this package does not interpret
	// (date_last_used, date_modified, meta_info, ...). They are written back untouched.
	Extra map[string]json.RawMessage
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool {
	return n.Type == TypeFolder
}

// IsBookmark reports whether the node is a bookmark.
func (n *Node) IsBookmark() bool {
	return n.Type == TypeURL
}

// Added returns the node's creation time, or false when the node has none.
func (n *Node) Added() (time.Time, bool) {
	return ParseTimestamp(n.DateAdded)
}

// NewFolderParams holds parameters for creating a new folder Node.
type NewFolderParams struct {
	ID   string
	Name string
	Now  time.Time
}

// NewFolder creates an empty folder with a generated GUID.
func NewFolder(params NewFolderParams) *Node {
	return &Node{
		ID:        params.ID,
		GUID:      GenerateUUID(),
		Name:      params.Name,
		Type:      TypeFolder,
		DateAdded: FormatTimestamp(params.Now),
		Children:  []*Node{},
	}
}

// NewBookmarkParams holds parameters for creating a new bookmark Node.
type NewBookmarkParams struct {
	ID    string
	Name  string
	URL   string
	Added time.Time
}

// NewBookmark creates a bookmark with a generated GUID.
func NewBookmark(params NewBookmarkParams) *Node {
	return &Node{
		ID:        params.ID,
		GUID:      GenerateUUID(),
		Name:      params.Name,
		Type:      TypeURL,
		URL:       params.URL,
		DateAdded: FormatTimestamp(params.Added),
	}
}

// FormatTimestamp encodes t the way the browser stores dates:
// microseconds since 1601-01-01 UTC as a decimal string.
func FormatTimestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMicro()+webkitEpochOffset*1_000_000, 10)
}

// ParseTimestamp decodes a browser timestamp. Empty, zero or malformed values report false.
func ParseTimestamp(s string) (time.Time, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return time.Time{}, false
	}
	return time.UnixMicro(v - webkitEpochOffset*1_000_000).UTC(), true
}
