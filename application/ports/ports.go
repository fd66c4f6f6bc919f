// Package ports declares the infrastructure the application layer depends on.
package ports

import (
	"context"
	"time"

	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/security"
)

// NodeStore persists the content tree.
type NodeStore interface {
	LoadAll(ctx context.Context) ([]content.Record, error)
	Save(ctx context.Context, records []content.Record) error
	Delete(ctx context.Context, ids []int64) error
}

// PrincipalStore persists user accounts.
type PrincipalStore interface {
	Get(ctx context.Context, name string) (*security.Principal, error)
	List(ctx context.Context) ([]*security.Principal, error)
	Save(ctx context.Context, p *security.Principal) error
}

// Flash message queues.
const (
	QueueInfo    = "info"
	QueueSuccess = "success"
	QueueError   = "error"
	QueueWarning = "warning"
	QueueDefault = ""
)

// Queues lists every flash queue in the order they are reported.
var Queues = []string{QueueInfo, QueueSuccess, QueueError, QueueWarning, QueueDefault}

// MessageStore keeps flash messages per session and queue.
type MessageStore interface {
	Flash(ctx context.Context, sessionID, queue, message string)
	// Pop returns and clears the pending messages of one queue.
	Pop(ctx context.Context, sessionID, queue string) []string
}

// Paste actions recorded on the clipboard.
const (
	PasteCopy = "copy"
	PasteCut  = "cut"
)

// Clipboard remembers the nodes a session selected for a later paste.
type Clipboard interface {
	// SetClipboard replaces the selection of a session.
	SetClipboard(ctx context.Context, sessionID string, ids []int64, action string)
	Clipboard(ctx context.Context, sessionID string) (ids []int64, action string, ok bool)
}

// Event types published after a successful commit.
const (
	EventContentCreated = "content.created"
	EventContentUpdated = "content.updated"
	EventContentDeleted = "content.deleted"
	EventContentMoved   = "content.moved"
	EventRolesChanged   = "principal.roles_changed"
)

// ContentEvent describes a committed change.
type ContentEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	NodeID     int64     `json:"node_id,omitempty"`
	Path       string    `json:"path,omitempty"`
	TypeName   string    `json:"type_name,omitempty"`
	Principal  string    `json:"principal,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers committed events.
type EventPublisher interface {
	Publish(ctx context.Context, events []ContentEvent) error
}
