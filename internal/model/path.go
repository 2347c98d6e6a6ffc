package model

// RootLabels maps a path label to the root it names.
type RootLabels map[string]Root

// DefaultRootLabels returns the labels the browser shows for the roots in
// English and Traditional Chinese.
func DefaultRootLabels() RootLabels {
	return RootLabels{
		"Bookmarks bar":    RootBar,
		"Bookmarks Bar":    RootBar,
		"Other bookmarks":  RootOther,
		"Other Bookmarks":  RootOther,
		"Mobile bookmarks": RootSynced,
		"Mobile Bookmarks": RootSynced,
		"書籤列":              RootBar,
		"其他書籤":             RootOther,
		"行動裝置":             RootSynced,
		"行動裝置書籤":           RootSynced,
	}
}

// Merge returns a copy of l with extra added on top.
func (l RootLabels) Merge(extra RootLabels) RootLabels {
	out := make(RootLabels, len(l)+len(extra))
	for k, v := range l {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// LookupRoot matches a first path segment against the canonical root names,
// the configured labels and the roots' own names. Matching is exact.
func (s *Store) LookupRoot(label string) (Root, bool) {
	for _, r := range Roots {
		if label == r.String() {
			return r, true
		}
	}

	labels := s.Labels
	if labels == nil {
		labels = DefaultRootLabels()
	}
	if r, ok := labels[label]; ok {
		return r, true
	}

	for _, r := range Roots {
		if n := s.Root(r); n != nil && n.Name != "" && n.Name == label {
			return r, true
		}
	}
	return 0, false
}

// Resolve maps a path such as "bar > Work > Docs" to a folder. The first
// folder with a matching name wins at each level. Resolve never creates nodes.
func (s *Store) Resolve(path string) (*Node, error) {
	chain, err := s.resolveChain(path)
	if err != nil {
		return nil, err
	}
	return chain[len(chain)-1], nil
}

// resolveChain returns every folder on the path, root first.
func (s *Store) resolveChain(path string) ([]*Node, error) {
	segments := SplitPath(path)
	if segments[0] == "" {
		return nil, &PathError{Path: path, Err: ErrInvalidArgument}
	}

	r, ok := s.LookupRoot(segments[0])
	if !ok {
		return nil, &PathError{Path: path, Segment: segments[0], Err: ErrNotFound}
	}
	current := s.Root(r)
	if current == nil {
		return nil, &PathError{Path: path, Segment: segments[0], Err: ErrNotFound}
	}

	chain := make([]*Node, 0, len(segments))
	chain = append(chain, current)
	for _, segment := range segments[1:] {
		next := childFolder(current, segment)
		if next == nil {
			return nil, &PathError{Path: path, Segment: segment, Err: ErrNotFound}
		}
		current = next
		chain = append(chain, current)
	}
	return chain, nil
}

// CanonicalPath rewrites the root segment of path to its canonical label.
func (s *Store) CanonicalPath(path string) string {
	segments := SplitPath(path)
	if r, ok := s.LookupRoot(segments[0]); ok {
		segments[0] = r.String()
	}
	return JoinPath(segments)
}

func childFolder(parent *Node, name string) *Node {
	for _, child := range parent.Children {
		if child != nil && child.IsFolder() && child.Name == name {
			return child
		}
	}
	return nil
}
