package model

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultCollation is the locale used to order names when none is configured.
var DefaultCollation = language.TraditionalChinese

// SortFolder reorders the direct children of the folder at path: folders
// before bookmarks, then by name under the collation for tag, ignoring case.
// The sort is stable. It reports whether the order changed.
func (s *Store) SortFolder(path string, tag language.Tag) (bool, error) {
	folder, err := s.Resolve(path)
	if err != nil {
		return false, err
	}

	before := slices.Clone(folder.Children)
	SortNodes(folder.Children, tag)
	return !slices.Equal(before, folder.Children), nil
}

// SortNodes sorts nodes in place with the folder ordering rules.
func SortNodes(nodes []*Node, tag language.Tag) {
	c := collate.New(tag, collate.IgnoreCase, collate.IgnoreWidth)
	slices.SortStableFunc(nodes, func(a, b *Node) int {
		if a.IsFolder() != b.IsFolder() {
			if a.IsFolder() {
				return -1
			}
			return 1
		}
		return c.CompareString(a.Name, b.Name)
	})
}
