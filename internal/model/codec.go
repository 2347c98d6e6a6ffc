package model

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf16"
)

// MaxDepth bounds folder nesting accepted by Decode.
const MaxDepth = 512

// Document keys modelled by Node. Everything else goes to Node.Extra.
const (
	keyChildren  = "children"
	keyDateAdded = "date_added"
	keyGUID      = "guid"
	keyID        = "id"
	keyName      = "name"
	keyType      = "type"
	keyURL       = "url"

	keyRoots    = "roots"
	keyChecksum = "checksum"
)

var nodeKeys = map[string]bool{
	keyChildren:  true,
	keyDateAdded: true,
	keyGUID:      true,
	keyID:        true,
	keyName:      true,
	keyType:      true,
	keyURL:       true,
}

// Decode parses a bookmark document into a Store and validates it.
// Errors wrap ErrMalformed.
func Decode(data []byte) (*Store, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, malformed("parse document: %v", err)
	}
	if top == nil {
		return nil, malformed("document is null")
	}

	rawRoots, ok := top[keyRoots]
	if !ok {
		return nil, malformed("missing %q", keyRoots)
	}
	delete(top, keyRoots)

	var roots map[string]json.RawMessage
	if err := json.Unmarshal(rawRoots, &roots); err != nil || roots == nil {
		return nil, malformed("%q is not an object", keyRoots)
	}

	store := &Store{Extra: top}
	missingSynced := false
	for _, r := range Roots {
		raw, ok := roots[r.Key()]
		if !ok {
			if r == RootSynced {
				missingSynced = true
				continue
			}
			return nil, malformed("missing root %q", r.Key())
		}
		delete(roots, r.Key())

		node, err := decodeTree(raw)
		if err != nil {
			return nil, fmt.Errorf("root %q: %w", r.Key(), err)
		}
		store.setRoot(r, node)
	}
	if len(roots) > 0 {
		store.RootsExtra = roots
	}

	if missingSynced {
		store.Synced = &Node{ID: store.NextID(), Name: "Mobile bookmarks", Type: TypeFolder, Children: []*Node{}}
	}

	if err := store.Validate(); err != nil {
		return nil, err
	}
	return store, nil
}

// decodeTree decodes one root subtree with an explicit stack.
func decodeTree(raw json.RawMessage) (*Node, error) {
	type pending struct {
		raw   json.RawMessage
		slot  **Node
		depth int
	}

	var root *Node
	stack := []pending{{raw: raw, slot: &root}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.depth > MaxDepth {
			return nil, malformed("nesting deeper than %d", MaxDepth)
		}

		node, children, err := decodeNode(p.raw)
		if err != nil {
			return nil, err
		}
		*p.slot = node

		if node.IsFolder() {
			node.Children = make([]*Node, len(children))
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, pending{raw: children[i], slot: &node.Children[i], depth: p.depth + 1})
			}
		}
	}
	return root, nil
}

// decodeNode decodes the fields of a single node. Children come back raw.
func decodeNode(raw json.RawMessage) (*Node, []json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, nil, malformed("node is not an object")
	}

	node := &Node{}
	var err error
	if node.ID, err = stringField(fields, keyID); err != nil {
		return nil, nil, err
	}
	if node.GUID, err = stringField(fields, keyGUID); err != nil {
		return nil, nil, err
	}
	if node.Name, err = stringField(fields, keyName); err != nil {
		return nil, nil, err
	}
	if node.URL, err = stringField(fields, keyURL); err != nil {
		return nil, nil, err
	}
	if node.DateAdded, err = stringField(fields, keyDateAdded); err != nil {
		return nil, nil, err
	}
	typ, err := stringField(fields, keyType)
	if err != nil {
		return nil, nil, err
	}
	node.Type = NodeType(typ)

	var children []json.RawMessage
	switch node.Type {
	case TypeFolder:
		if rawChildren, ok := fields[keyChildren]; ok && !isNull(rawChildren) {
			if err := json.Unmarshal(rawChildren, &children); err != nil {
				return nil, nil, malformed("node %q: children is not an array", node.ID)
			}
		}
	case TypeURL:
		if rawChildren, ok := fields[keyChildren]; ok && !isNull(rawChildren) {
			return nil, nil, malformed("bookmark %q has children", node.ID)
		}
	default:
		return nil, nil, malformed("node %q has unknown type %q", node.ID, typ)
	}

	for k, v := range fields {
		if nodeKeys[k] {
			continue
		}
		if node.Extra == nil {
			node.Extra = make(map[string]json.RawMessage)
		}
		node.Extra[k] = v
	}
	return node, children, nil
}

// stringField reads a string key. Numbers are accepted as their literal text.
func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", malformed("field %q is not a string", key)
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// Marshal serializes the Store the way the browser writes it: keys sorted,
// three-space indent, no HTML escaping, trailing newline.
func (s *Store) Marshal() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	roots := make(map[string]any, len(Roots)+len(s.RootsExtra))
	for k, v := range s.RootsExtra {
		roots[k] = v
	}
	for _, r := range Roots {
		roots[r.Key()] = encodeTree(s.Root(r))
	}

	doc := make(map[string]any, len(s.Extra)+1)
	for k, v := range s.Extra {
		doc[k] = v
	}
	doc[keyRoots] = roots

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "   ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode bookmarks: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeTree converts a subtree to nested maps without recursion.
func encodeTree(root *Node) map[string]any {
	type pending struct {
		node *Node
		out  map[string]any
	}

	top := nodeFields(root)
	stack := []pending{{node: root, out: top}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !p.node.IsFolder() {
			continue
		}
		children := make([]any, len(p.node.Children))
		for i, child := range p.node.Children {
			fields := nodeFields(child)
			children[i] = fields
			stack = append(stack, pending{node: child, out: fields})
		}
		p.out[keyChildren] = children
	}
	return top
}

func nodeFields(n *Node) map[string]any {
	out := make(map[string]any, len(n.Extra)+7)
	for k, v := range n.Extra {
		out[k] = v
	}
	out[keyID] = n.ID
	out[keyName] = n.Name
	out[keyType] = string(n.Type)
	if n.GUID != "" {
		out[keyGUID] = n.GUID
	}
	if n.DateAdded != "" {
		out[keyDateAdded] = n.DateAdded
	}
	if n.IsBookmark() {
		out[keyURL] = n.URL
	}
	return out
}

// Checksum computes the browser's integrity digest: MD5 over each node in
// pre-order, hashing the id, the UTF-16LE title, and "url"+url or "folder".
func (s *Store) Checksum() string {
	h := md5.New()
	s.Walk(func(e Entry) bool {
		n := e.Node
		h.Write([]byte(n.ID))
		units := utf16.Encode([]rune(n.Name))
		buf := make([]byte, 2*len(units))
		for i, u := range units {
			binary.LittleEndian.PutUint16(buf[2*i:], u)
		}
		h.Write(buf)
		if n.IsBookmark() {
			h.Write([]byte("url"))
			h.Write([]byte(n.URL))
		} else {
			h.Write([]byte("folder"))
		}
		return true
	})
	return hex.EncodeToString(h.Sum(nil))
}

// RefreshChecksum rewrites the checksum key when the document carries one.
// It reports whether the key was present.
func (s *Store) RefreshChecksum() bool {
	if _, ok := s.Extra[keyChecksum]; !ok {
		return false
	}
	raw, _ := json.Marshal(s.Checksum())
	s.Extra[keyChecksum] = raw
	return true
}
