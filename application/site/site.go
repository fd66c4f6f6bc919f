// Package site owns the in-memory content tree and runs every request in a
// transaction that commits to the node store on success.
package site

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/ports"
	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/workflow"
)

// EventObserver is told about every committed event.
type EventObserver interface {
	ObserveContentEvent(eventType string)
}

// Options configures a Site.
type Options struct {
	Title string
	Seed  bool
}

// Site is the content tree plus its persistence.
type Site struct {
	mu        sync.RWMutex
	root      *content.Node
	nextID    int64
	title     atomic.Value
	store     ports.NodeStore
	publisher ports.EventPublisher
	workflow  workflow.Provider
	observer  EventObserver
	logger    *zap.Logger
}

// New loads the tree from store, seeding a root when the store is empty.
func New(ctx context.Context, store ports.NodeStore, publisher ports.EventPublisher, wf workflow.Provider, logger *zap.Logger, opts Options) (*Site, error) {
	s := &Site{
		store:     store,
		publisher: publisher,
		workflow:  wf,
		logger:    logger,
	}
	s.title.Store(opts.Title)

	records, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	if len(records) == 0 {
		root, children := seedTree(opts)
		if err := s.bootstrap(ctx, root, children); err != nil {
			return nil, err
		}
		logger.Info("Seeded empty content tree", zap.Int("nodes", 1+len(children)))
		return s, nil
	}

	root, err := content.Rebuild(records)
	if err != nil {
		return nil, err
	}
	s.root = root
	root.Walk(func(n *content.Node) {
		if n.ID >= s.nextID {
			s.nextID = n.ID + 1
		}
	})
	logger.Info("Loaded content tree", zap.Int("nodes", len(records)))
	return s, nil
}

func (s *Site) bootstrap(ctx context.Context, root *content.Node, children []*content.Node) error {
	s.nextID = 1
	root.ID = s.allocateID()
	s.root = root
	records := []content.Record{root.Snapshot()}
	for _, c := range children {
		c.ID = s.allocateID()
		if err := root.AddChild(c); err != nil {
			return err
		}
		records = append(records, c.Snapshot())
	}
	if err := s.store.Save(ctx, records); err != nil {
		return fmt.Errorf("seed content: %w", err)
	}
	return nil
}

func (s *Site) allocateID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// Title returns the site title.
func (s *Site) Title() string {
	t, _ := s.title.Load().(string)
	return t
}

// SetTitle changes the site title at runtime.
func (s *Site) SetTitle(title string) {
	s.title.Store(title)
}

// SetObserver installs an observer for committed events.
func (s *Site) SetObserver(o EventObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// Workflow returns the workflow provider.
func (s *Site) Workflow() workflow.Provider {
	return s.workflow
}

// View runs fn under a shared lock. Mutations inside fn are not allowed.
func (s *Site) View(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&Tx{ctx: ctx, site: s, readOnly: true})
}

// Update runs fn under an exclusive lock. When fn succeeds the touched and
// deleted nodes are committed and events published; when fn or the commit
// fails the tree is restored to its state before fn.
func (s *Site) Update(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := snapshotTree(s.root)
	nextID := s.nextID
	tx := newTx(ctx, s)

	if err := fn(tx); err != nil {
		s.rollback(before, nextID)
		return err
	}
	if err := tx.commit(); err != nil {
		s.rollback(before, nextID)
		return err
	}

	if len(tx.events) > 0 && s.publisher != nil {
		if err := s.publisher.Publish(ctx, tx.events); err != nil {
			// the tree is already committed, a lost notification must not fail the request
			s.logger.Error("Failed to publish content events", zap.Error(err), zap.Int("count", len(tx.events)))
		}
	}
	if s.observer != nil {
		for _, e := range tx.events {
			s.observer.ObserveContentEvent(e.Type)
		}
	}
	return nil
}

func (s *Site) rollback(records []content.Record, nextID int64) {
	root, err := content.Rebuild(records)
	if err != nil {
		s.logger.Error("Failed to restore content tree", zap.Error(err))
		return
	}
	s.root = root
	s.nextID = nextID
}

func snapshotTree(root *content.Node) []content.Record {
	var out []content.Record
	root.Walk(func(n *content.Node) { out = append(out, n.Snapshot()) })
	return out
}
