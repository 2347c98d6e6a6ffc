package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func checkName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: folder name is empty", ErrInvalidArgument)
	}
	if strings.Contains(name, PathSeparator) {
		return "", fmt.Errorf("%w: folder name %q contains %q", ErrInvalidArgument, name, PathSeparator)
	}
	return name, nil
}

// CreateFolder appends a folder named name under parentPath. When the parent
// already has a folder with that name, it is returned with created=false.
func (s *Store) CreateFolder(parentPath, name string, now time.Time) (folder *Node, created bool, err error) {
	name, err = checkName(name)
	if err != nil {
		return nil, false, err
	}
	parent, err := s.Resolve(parentPath)
	if err != nil {
		return nil, false, err
	}
	if existing := childFolder(parent, name); existing != nil {
		return existing, false, nil
	}

	folder = NewFolder(NewFolderParams{ID: s.NextID(), Name: name, Now: now})
	parent.Children = append(parent.Children, folder)
	return folder, true, nil
}

// RenameFolder sets the name of the folder at path and returns the old name.
// Sibling name collisions are allowed.
func (s *Store) RenameFolder(path, newName string) (string, error) {
	newName, err := checkName(newName)
	if err != nil {
		return "", err
	}
	folder, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	old := folder.Name
	folder.Name = newName
	return old, nil
}

// DeleteFolder removes the folder at path from its parent. A folder with
// children is only removed when force is set. Roots cannot be deleted.
func (s *Store) DeleteFolder(path string, force bool) (*Node, error) {
	if len(SplitPath(path)) < 2 {
		return nil, &PathError{Path: path, Err: ErrCannotDeleteRoot}
	}
	chain, err := s.resolveChain(path)
	if err != nil {
		return nil, err
	}
	parent, target := chain[len(chain)-2], chain[len(chain)-1]

	if len(target.Children) > 0 && !force {
		return nil, &PathError{Path: path, Err: ErrNotEmpty}
	}
	parent.Children = without(parent.Children, target)
	return target, nil
}

// MatchesKeyword reports whether n matches keyword, case-insensitively, on a
// bookmark's name or url or a folder's name. An empty keyword matches all.
func MatchesKeyword(n *Node, keyword string) bool {
	if keyword == "" {
		return true
	}
	kw := strings.ToLower(keyword)
	if strings.Contains(strings.ToLower(n.Name), kw) {
		return true
	}
	return n.IsBookmark() && strings.Contains(strings.ToLower(n.URL), kw)
}

// MoveByKeyword moves the direct children of sourcePath that match keyword
// to the end of targetPath, keeping their order. No match returns an empty
// slice and leaves the tree untouched.
func (s *Store) MoveByKeyword(sourcePath, targetPath, keyword string) ([]*Node, error) {
	source, err := s.Resolve(sourcePath)
	if err != nil {
		return nil, err
	}
	targetChain, err := s.resolveChain(targetPath)
	if err != nil {
		return nil, err
	}
	target := targetChain[len(targetChain)-1]

	ancestors := make(map[*Node]bool, len(targetChain))
	for _, n := range targetChain {
		ancestors[n] = true
	}

	var matches, rest []*Node
	for _, child := range source.Children {
		if MatchesKeyword(child, keyword) {
			if ancestors[child] {
				return nil, &PathError{Path: targetPath, Segment: child.Name, Err: ErrInvalidMove}
			}
			matches = append(matches, child)
		} else {
			rest = append(rest, child)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	if rest == nil {
		rest = []*Node{}
	}
	source.Children = rest
	target.Children = append(target.Children, matches...)
	return matches, nil
}

// MoveByIDs searches every root for bookmarks with the given ids, removes
// them and appends them to targetPath in discovery order. Unknown ids are
// returned in missing. It fails with ErrNotFound when no id matches.
func (s *Store) MoveByIDs(ids []string, targetPath string) (moved []*Node, missing []string, err error) {
	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("%w: no ids given", ErrInvalidArgument)
	}
	target, err := s.Resolve(targetPath)
	if err != nil {
		return nil, nil, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	found := make(map[string]bool)
	picked := make(map[*Node]bool)
	s.Walk(func(e Entry) bool {
		n := e.Node
		if n.IsBookmark() && wanted[n.ID] && !found[n.ID] {
			found[n.ID] = true
			picked[n] = true
			moved = append(moved, n)
		}
		return true
	})

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !found[id] && !seen[id] {
			missing = append(missing, id)
		}
		seen[id] = true
	}
	if len(moved) == 0 {
		return nil, missing, fmt.Errorf("%w: no bookmark has any of the ids %s", ErrNotFound, strings.Join(ids, ", "))
	}

	s.removeWhere(func(n *Node) bool { return picked[n] })
	target.Children = append(target.Children, moved...)
	return moved, missing, nil
}

// RemoveDuplicates keeps the first bookmark of every url in pre-order and
// removes the later ones wherever they are. It returns the removed bookmarks.
func (s *Store) RemoveDuplicates() []*Node {
	seen := make(map[string]bool)
	dupes := make(map[*Node]bool)
	s.Walk(func(e Entry) bool {
		n := e.Node
		if !n.IsBookmark() {
			return true
		}
		if seen[n.URL] {
			dupes[n] = true
		}
		seen[n.URL] = true
		return true
	})
	if len(dupes) == 0 {
		return nil
	}
	return s.removeWhere(func(n *Node) bool { return dupes[n] })
}

// RemoveURLs removes every bookmark whose url is in urls.
func (s *Store) RemoveURLs(urls []string) []*Node {
	set := make(map[string]bool, len(urls))
	for _, u := range urls {
		set[u] = true
	}
	if len(set) == 0 {
		return nil
	}
	return s.removeWhere(func(n *Node) bool {
		return n.IsBookmark() && set[n.URL]
	})
}

// ImportNodes appends nodes under targetPath, assigning fresh ids and guids
// to every node in the imported subtrees. It returns the number of folders
// and bookmarks added.
func (s *Store) ImportNodes(targetPath string, nodes []*Node) (folders, bookmarks int, err error) {
	target, err := s.Resolve(targetPath)
	if err != nil {
		return 0, 0, err
	}

	id := s.maxID() + 1

	stack := make([]*Node, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, nodes[i])
	}
	seen := make(map[*Node]bool)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || seen[n] {
			continue
		}
		seen[n] = true

		n.ID = strconv.FormatUint(id, 10)
		id++
		n.GUID = GenerateUUID()
		if n.IsFolder() {
			folders++
			if n.Children == nil {
				n.Children = []*Node{}
			}
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, n.Children[i])
			}
		} else {
			bookmarks++
		}
	}

	target.Children = append(target.Children, nodes...)
	if err := s.Validate(); err != nil {
		target.Children = target.Children[:len(target.Children)-len(nodes)]
		return 0, 0, err
	}
	return folders, bookmarks, nil
}

func without(children []*Node, n *Node) []*Node {
	out := make([]*Node, 0, len(children))
	for _, c := range children {
		if c != n {
			out = append(out, c)
		}
	}
	return out
}
