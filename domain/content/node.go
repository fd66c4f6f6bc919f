// Package content holds the content tree: nodes, their types and the
// operations that keep sibling names unique.
package content

import (
	"fmt"
	"time"

	"github.com/umeboshi2/kotti-jsonapi/domain/schema"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

// Node is one element of the content tree. A parent exclusively owns its
// children; detaching a node drops its whole subtree.
type Node struct {
	ID               int64
	Name             string
	TypeName         string
	Title            string
	Description      string
	State            string
	DefaultView      string
	InNavigation     bool
	Tags             []string
	Owner            string
	CreationDate     time.Time
	ModificationDate time.Time

	// LocalRoles maps a principal or group name to roles granted on this
	// node and inherited by its descendants.
	LocalRoles map[string][]string

	attrs    map[string]interface{}
	parent   *Node
	children []*Node
}

// NewNode creates a detached node. The caller assigns the ID.
func NewNode(typeName, name, title string) *Node {
	now := time.Now().UTC()
	return &Node{
		Name:             name,
		TypeName:         typeName,
		Title:            title,
		InNavigation:     true,
		Tags:             []string{},
		CreationDate:     now,
		ModificationDate: now,
		LocalRoles:       make(map[string][]string),
		attrs:            make(map[string]interface{}),
	}
}

// Value implements schema.ValueSource.
func (n *Node) Value(name string) (interface{}, bool) {
	switch name {
	case "name":
		return n.Name, true
	case "title":
		return n.Title, true
	case "description":
		return n.Description, true
	case "tags":
		return n.Tags, true
	case "state":
		return n.State, true
	case "default_view":
		return n.DefaultView, true
	case "in_navigation":
		return n.InNavigation, true
	case "owner":
		return n.Owner, true
	case "creation_date":
		return n.CreationDate, true
	case "modification_date":
		return n.ModificationDate, true
	}
	v, ok := n.attrs[name]
	return v, ok
}

// Apply writes deserialized values onto the node. Only fields declared by s
// are accepted, so a schema bounds what a request can change.
func (n *Node) Apply(s *schema.Schema, values map[string]interface{}) error {
	for name := range values {
		if _, ok := s.Field(name); !ok {
			return pkgerrors.NewValidationError(fmt.Sprintf("field %q is not part of schema %s", name, s.Name))
		}
	}
	for name, v := range values {
		if err := n.set(name, v); err != nil {
			return err
		}
	}
	n.ModificationDate = time.Now().UTC()
	return nil
}

func (n *Node) set(name string, v interface{}) error {
	switch name {
	case "name", "owner", "state", "creation_date", "modification_date":
		return pkgerrors.NewValidationError(fmt.Sprintf("field %q is read-only", name))
	case "title", "description", "default_view":
		s, ok := v.(string)
		if !ok && v != nil {
			return pkgerrors.NewValidationError(fmt.Sprintf("field %q expects a string", name))
		}
		switch name {
		case "title":
			n.Title = s
		case "description":
			n.Description = s
		default:
			n.DefaultView = s
		}
		return nil
	case "in_navigation":
		b, ok := v.(bool)
		if !ok {
			return pkgerrors.NewValidationError("field \"in_navigation\" expects a boolean")
		}
		n.InNavigation = b
		return nil
	case "tags":
		tags, ok := v.([]string)
		if !ok && v != nil {
			return pkgerrors.NewValidationError("field \"tags\" expects a list of strings")
		}
		n.Tags = append([]string{}, tags...)
		return nil
	}
	if v == nil {
		delete(n.attrs, name)
		return nil
	}
	n.attrs[name] = v
	return nil
}

// Attributes returns a copy of the type-specific values.
func (n *Node) Attributes() map[string]interface{} {
	out := make(map[string]interface{}, len(n.attrs))
	for k, v := range n.attrs {
		out[k] = v
	}
	return out
}

// Parent returns nil for the root and for detached nodes.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the ordered children. The slice is a copy.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// Keys returns child names in order.
func (n *Node) Keys() []string {
	keys := make([]string, len(n.children))
	for i, c := range n.children {
		keys[i] = c.Name
	}
	return keys
}

// Child looks up a direct child by name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Position is the node's index among its siblings, or -1 when detached.
func (n *Node) Position() int {
	if n.parent == nil {
		return -1
	}
	for i, c := range n.parent.children {
		if c == n {
			return i
		}
	}
	return -1
}

// AddChild attaches child at the end of the children list.
func (n *Node) AddChild(child *Node) error {
	if child.Name == "" {
		return pkgerrors.NewValidationError("child name must not be empty")
	}
	if n.Child(child.Name) != nil {
		return pkgerrors.NewValidationError(fmt.Sprintf("name %q already exists in %s", child.Name, n.Path()))
	}
	if child.parent != nil {
		return pkgerrors.NewValidationError(fmt.Sprintf("%s is already attached", child.Name))
	}
	child.parent = n
	n.children = append(n.children, child)
	return nil
}

// RemoveChild detaches the named child together with its subtree.
func (n *Node) RemoveChild(name string) (*Node, error) {
	for i, c := range n.children {
		if c.Name == name {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent = nil
			return c, nil
		}
	}
	return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("child %q of %s", name, n.Path()))
}

// MoveChild shifts the named child by delta slots, clamped to the ends of
// the list. It reports whether the order changed.
func (n *Node) MoveChild(name string, delta int) bool {
	from := -1
	for i, c := range n.children {
		if c.Name == name {
			from = i
			break
		}
	}
	if from < 0 {
		return false
	}
	to := from + delta
	if to < 0 {
		to = 0
	}
	if to > len(n.children)-1 {
		to = len(n.children) - 1
	}
	if to == from {
		return false
	}
	moved := n.children[from]
	n.children = append(n.children[:from], n.children[from+1:]...)
	n.children = append(n.children[:to], append([]*Node{moved}, n.children[to:]...)...)
	return true
}

// Root walks up to the top of the tree.
func (n *Node) Root() *Node {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Lineage returns the node followed by its ancestors up to the root.
func (n *Node) Lineage() []*Node {
	var out []*Node
	for cur := n; cur != nil; cur = cur.parent {
		out = append(out, cur)
	}
	return out
}

// Path is the slash-terminated resource path, "/" for the root.
func (n *Node) Path() string {
	lineage := n.Lineage()
	path := "/"
	for i := len(lineage) - 2; i >= 0; i-- {
		path += lineage[i].Name + "/"
	}
	return path
}

// Walk visits n and every descendant depth first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// Find resolves a sequence of names below n.
func (n *Node) Find(names []string) *Node {
	cur := n
	for _, name := range names {
		if name == "" {
			continue
		}
		cur = cur.Child(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// SetBody sets the rich text body of a document.
func (n *Node) SetBody(body string) {
	n.attrs["body"] = body
}
