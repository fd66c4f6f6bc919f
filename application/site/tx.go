package site

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/umeboshi2/kotti-jsonapi/application/ports"
	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/security"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

// Tx is one request's view of the tree.
type Tx struct {
	ctx      context.Context
	site     *Site
	readOnly bool
	touched  map[int64]*content.Node
	deleted  []int64
	events   []ports.ContentEvent
}

func newTx(ctx context.Context, s *Site) *Tx {
	return &Tx{ctx: ctx, site: s, touched: make(map[int64]*content.Node)}
}

// Context returns the request context.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Root returns the site root.
func (tx *Tx) Root() *content.Node {
	return tx.site.root
}

// Site returns the owning site.
func (tx *Tx) Site() *Site {
	return tx.site
}

// Resolve walks a slash separated path from the root.
func (tx *Tx) Resolve(path string) (*content.Node, error) {
	node := tx.site.root.Find(strings.Split(strings.Trim(path, "/"), "/"))
	if node == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("resource %s", path))
	}
	return node, nil
}

func (tx *Tx) writable() error {
	if tx.readOnly {
		return pkgerrors.NewInternalError("write attempted in a read-only transaction")
	}
	return nil
}

// Add attaches a new child, assigning its id, owner and initial workflow state.
func (tx *Tx) Add(parent, child *content.Node) error {
	if err := tx.writable(); err != nil {
		return err
	}
	child.ID = tx.site.allocateID()
	if p := security.PrincipalFrom(tx.ctx); p != nil && child.Owner == "" {
		child.Owner = p.Name
	}
	if tx.site.workflow != nil {
		tx.site.workflow.Initialize(child)
	}
	if err := parent.AddChild(child); err != nil {
		return err
	}
	tx.touched[child.ID] = child
	tx.record(ports.EventContentCreated, child)
	return nil
}

// Touch marks node as modified.
func (tx *Tx) Touch(node *content.Node) error {
	if err := tx.writable(); err != nil {
		return err
	}
	tx.touched[node.ID] = node
	tx.record(ports.EventContentUpdated, node)
	return nil
}

// Remove detaches node and schedules its whole subtree for deletion.
func (tx *Tx) Remove(node *content.Node) error {
	if err := tx.writable(); err != nil {
		return err
	}
	parent := node.Parent()
	if parent == nil {
		return pkgerrors.NewForbiddenError("the site root cannot be deleted")
	}
	path := node.Path()
	if _, err := parent.RemoveChild(node.Name); err != nil {
		return err
	}
	node.Walk(func(n *content.Node) {
		delete(tx.touched, n.ID)
		tx.deleted = append(tx.deleted, n.ID)
	})
	// sibling positions shifted
	for _, c := range parent.Children() {
		tx.touched[c.ID] = c
	}
	tx.events = append(tx.events, tx.event(ports.EventContentDeleted, node, path))
	return nil
}

// Move shifts the named child of parent by delta and reports whether it moved.
func (tx *Tx) Move(parent *content.Node, name string, delta int) (bool, error) {
	if err := tx.writable(); err != nil {
		return false, err
	}
	if !parent.MoveChild(name, delta) {
		return false, nil
	}
	for _, c := range parent.Children() {
		tx.touched[c.ID] = c
	}
	tx.record(ports.EventContentMoved, parent.Child(name))
	return true, nil
}

// Transition applies a workflow transition to node.
func (tx *Tx) Transition(node *content.Node, name string) error {
	if err := tx.writable(); err != nil {
		return err
	}
	if tx.site.workflow == nil {
		return pkgerrors.NewNotFoundError("workflow")
	}
	if err := tx.site.workflow.Transition(tx.ctx, node, name); err != nil {
		return err
	}
	node.ModificationDate = time.Now().UTC()
	return tx.Touch(node)
}

// Record adds an arbitrary event to be published after commit.
func (tx *Tx) Record(e ports.ContentEvent) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	tx.events = append(tx.events, e)
}

func (tx *Tx) record(eventType string, node *content.Node) {
	tx.events = append(tx.events, tx.event(eventType, node, node.Path()))
}

func (tx *Tx) event(eventType string, node *content.Node, path string) ports.ContentEvent {
	e := ports.ContentEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		NodeID:     node.ID,
		Path:       path,
		TypeName:   node.TypeName,
		OccurredAt: time.Now().UTC(),
	}
	if p := security.PrincipalFrom(tx.ctx); p != nil {
		e.Principal = p.Name
	}
	return e
}

func (tx *Tx) commit() error {
	if len(tx.touched) > 0 {
		records := make([]content.Record, 0, len(tx.touched))
		for _, n := range tx.touched {
			records = append(records, n.Snapshot())
		}
		if err := tx.site.store.Save(tx.ctx, records); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	if len(tx.deleted) > 0 {
		if err := tx.site.store.Delete(tx.ctx, tx.deleted); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	return nil
}
