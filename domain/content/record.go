package content

import (
	"fmt"
	"sort"
	"time"
)

// Record is the flat, storable form of a node. ParentID is zero for the root.
type Record struct {
	ID               int64
	ParentID         int64
	Position         int
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
	LocalRoles       map[string][]string
	Attributes       map[string]interface{}
}

// Snapshot flattens a single node.
func (n *Node) Snapshot() Record {
	rec := Record{
		ID:               n.ID,
		Position:         n.Position(),
		Name:             n.Name,
		TypeName:         n.TypeName,
		Title:            n.Title,
		Description:      n.Description,
		State:            n.State,
		DefaultView:      n.DefaultView,
		InNavigation:     n.InNavigation,
		Tags:             append([]string{}, n.Tags...),
		Owner:            n.Owner,
		CreationDate:     n.CreationDate,
		ModificationDate: n.ModificationDate,
		LocalRoles:       make(map[string][]string, len(n.LocalRoles)),
		Attributes:       n.Attributes(),
	}
	if n.parent != nil {
		rec.ParentID = n.parent.ID
	}
	for k, v := range n.LocalRoles {
		rec.LocalRoles[k] = append([]string{}, v...)
	}
	return rec
}

func fromRecord(rec Record) *Node {
	n := &Node{
		ID:               rec.ID,
		Name:             rec.Name,
		TypeName:         rec.TypeName,
		Title:            rec.Title,
		Description:      rec.Description,
		State:            rec.State,
		DefaultView:      rec.DefaultView,
		InNavigation:     rec.InNavigation,
		Tags:             rec.Tags,
		Owner:            rec.Owner,
		CreationDate:     rec.CreationDate,
		ModificationDate: rec.ModificationDate,
		LocalRoles:       rec.LocalRoles,
		attrs:            rec.Attributes,
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if n.LocalRoles == nil {
		n.LocalRoles = make(map[string][]string)
	}
	if n.attrs == nil {
		n.attrs = make(map[string]interface{})
	}
	return n
}

// Rebuild assembles a tree from records. Exactly one record must have no
// parent; children are ordered by Position.
func Rebuild(records []Record) (*Node, error) {
	sorted := append([]Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	nodes := make(map[int64]*Node, len(sorted))
	var root *Node
	for _, rec := range sorted {
		if _, dup := nodes[rec.ID]; dup {
			return nil, fmt.Errorf("rebuild: duplicate node id %d", rec.ID)
		}
		n := fromRecord(rec)
		nodes[rec.ID] = n
		if rec.ParentID == 0 {
			if root != nil {
				return nil, fmt.Errorf("rebuild: more than one root (%d, %d)", root.ID, rec.ID)
			}
			root = n
		}
	}
	if root == nil {
		return nil, fmt.Errorf("rebuild: no root record")
	}
	for _, rec := range sorted {
		if rec.ParentID == 0 {
			continue
		}
		parent, ok := nodes[rec.ParentID]
		if !ok {
			return nil, fmt.Errorf("rebuild: node %d has unknown parent %d", rec.ID, rec.ParentID)
		}
		if err := parent.AddChild(nodes[rec.ID]); err != nil {
			return nil, fmt.Errorf("rebuild: %w", err)
		}
	}
	return root, nil
}
