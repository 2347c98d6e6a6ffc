package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Root identifies one of the three fixed top-level containers.
type Root int

const (
	RootBar Root = iota
	RootOther
	RootSynced
)

// Roots lists the containers in document order.
var Roots = []Root{RootBar, RootOther, RootSynced}

// String returns the canonical path label of the root.
func (r Root) String() string {
	switch r {
	case RootBar:
		return "bar"
	case RootOther:
		return "other"
	case RootSynced:
		return "synced"
	}
	return "root(" + strconv.Itoa(int(r)) + ")"
}

// Key returns the key of the root inside the document's "roots" object.
func (r Root) Key() string {
	switch r {
	case RootBar:
		return "bookmark_bar"
	case RootOther:
		return "other"
	case RootSynced:
		return "synced"
	}
	return ""
}

// PathSeparator delimits the segments of a folder path.
const PathSeparator = ">"

// Store holds the three root containers of one bookmark file.
type Store struct {
	Bar    *Node
	Other  *Node
	Synced *Node

	// Labels maps extra path labels to roots. Nil means DefaultRootLabels.
	Labels RootLabels

	// Extra holds top-level document keys besides "roots" (checksum, version, sync_metadata).
	Extra map[string]json.RawMessage
	// RootsExtra holds keys inside "roots" besides the three containers.
	RootsExtra map[string]json.RawMessage
}

// NewStore creates a Store with three empty roots.
func NewStore() *Store {
	return &Store{
		Bar:    &Node{ID: "1", Name: "Bookmarks bar", Type: TypeFolder, Children: []*Node{}},
		Other:  &Node{ID: "2", Name: "Other bookmarks", Type: TypeFolder, Children: []*Node{}},
		Synced: &Node{ID: "3", Name: "Mobile bookmarks", Type: TypeFolder, Children: []*Node{}},
	}
}

// Root returns the container for r.
func (s *Store) Root(r Root) *Node {
	switch r {
	case RootBar:
		return s.Bar
	case RootOther:
		return s.Other
	case RootSynced:
		return s.Synced
	}
	return nil
}

func (s *Store) setRoot(r Root, n *Node) {
	switch r {
	case RootBar:
		s.Bar = n
	case RootOther:
		s.Other = n
	case RootSynced:
		s.Synced = n
	}
}

// Entry is one node visited by Walk.
type Entry struct {
	Node   *Node
	Parent *Node
	// Path is the chain of folder labels from the root down to Parent,
	// starting with the canonical root label. Empty for roots.
	Path []string
}

// FolderPath returns the path of the folder that contains the entry.
func (e Entry) FolderPath() string {
	return JoinPath(e.Path)
}

// Walk visits every node in pre-order: bar, then other, then synced, each in
// child order. Returning false from fn skips the node's children. A node
// reachable twice is visited once.
func (s *Store) Walk(fn func(e Entry) bool) {
	type frame struct {
		node   *Node
		parent *Node
		label  string
		path   []string
	}

	var stack []frame
	for i := len(Roots) - 1; i >= 0; i-- {
		if root := s.Root(Roots[i]); root != nil {
			stack = append(stack, frame{node: root, label: Roots[i].String()})
		}
	}

	seen := make(map[*Node]bool)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[f.node] {
			continue
		}
		seen[f.node] = true

		if !fn(Entry{Node: f.node, Parent: f.parent, Path: f.path}) || !f.node.IsFolder() {
			continue
		}

		childPath := make([]string, len(f.path)+1)
		copy(childPath, f.path)
		childPath[len(f.path)] = f.label

		for i := len(f.node.Children) - 1; i >= 0; i-- {
			child := f.node.Children[i]
			if child == nil {
				continue
			}
			stack = append(stack, frame{node: child, parent: f.node, label: child.Name, path: childPath})
		}
	}
}

// Bookmarks returns every bookmark in pre-order.
func (s *Store) Bookmarks() []Entry {
	var result []Entry
	s.Walk(func(e Entry) bool {
		if e.Node.IsBookmark() {
			result = append(result, e)
		}
		return true
	})
	return result
}

// FindByID returns the node with the given id, or nil.
func (s *Store) FindByID(id string) *Node {
	var found *Node
	s.Walk(func(e Entry) bool {
		if found != nil {
			return false
		}
		if e.Node.ID == id {
			found = e.Node
			return false
		}
		return true
	})
	return found
}

// Counts returns the number of folders (roots excluded) and bookmarks.
func (s *Store) Counts() (folders, bookmarks int) {
	s.Walk(func(e Entry) bool {
		switch {
		case e.Parent == nil:
		case e.Node.IsFolder():
			folders++
		case e.Node.IsBookmark():
			bookmarks++
		}
		return true
	})
	return folders, bookmarks
}

// NextID returns an id one above the largest numeric id in the store.
func (s *Store) NextID() string {
	return strconv.FormatUint(s.maxID()+1, 10)
}

func (s *Store) maxID() uint64 {
	var max uint64
	s.Walk(func(e Entry) bool {
		if v, err := strconv.ParseUint(e.Node.ID, 10, 64); err == nil && v > max {
			max = v
		}
		return true
	})
	return max
}

// Validate checks the tree invariants: three folder roots, every node owned
// by exactly one parent, unique non-empty ids, and well-typed nodes.
func (s *Store) Validate() error {
	seen := make(map[*Node]bool)
	ids := make(map[string]bool)

	for _, r := range Roots {
		root := s.Root(r)
		if root == nil {
			return malformed("missing root %q", r.Key())
		}
		if !root.IsFolder() {
			return malformed("root %q is not a folder", r.Key())
		}

		stack := []*Node{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if n == nil {
				return malformed("nil node under root %q", r.Key())
			}
			if seen[n] {
				return malformed("node %q is referenced more than once", n.ID)
			}
			seen[n] = true

			if n.ID == "" {
				return malformed("node %q has no id", n.Name)
			}
			if ids[n.ID] {
				return malformed("duplicate id %q", n.ID)
			}
			ids[n.ID] = true

			switch n.Type {
			case TypeFolder:
				if n.URL != "" {
					return malformed("folder %q carries a url", n.ID)
				}
				stack = append(stack, n.Children...)
			case TypeURL:
				if n.URL == "" {
					return malformed("bookmark %q has no url", n.ID)
				}
				if len(n.Children) > 0 {
					return malformed("bookmark %q has children", n.ID)
				}
			default:
				return malformed("node %q has unknown type %q", n.ID, n.Type)
			}
		}
	}
	return nil
}

// removeWhere splices every node matching fn out of its parent's children and
// returns the removed nodes. Removed folders are not descended into.
func (s *Store) removeWhere(fn func(n *Node) bool) []*Node {
	var removed []*Node
	s.Walk(func(e Entry) bool {
		if !e.Node.IsFolder() {
			return false
		}
		children := e.Node.Children
		var hits []*Node
		for i := len(children) - 1; i >= 0; i-- {
			if children[i] != nil && fn(children[i]) {
				hits = append(hits, children[i])
				children = append(children[:i], children[i+1:]...)
			}
		}
		e.Node.Children = children
		for i := len(hits) - 1; i >= 0; i-- {
			removed = append(removed, hits[i])
		}
		return true
	})
	return removed
}

// SplitPath splits a folder path on the separator and trims each segment.
func SplitPath(path string) []string {
	parts := strings.Split(path, PathSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// JoinPath joins segments into a display path.
func JoinPath(segments []string) string {
	return strings.Join(segments, " "+PathSeparator+" ")
}
