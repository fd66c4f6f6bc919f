// Package registry maps content types and schema names to schema factories.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/schema"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

// Factory builds a schema. node is nil when the schema validates a node
// that does not exist yet.
type Factory func(ctx context.Context, node *content.Node) *schema.Schema

// ErrSealed is returned by Register once the registry is frozen.
var ErrSealed = errors.New("registry is sealed")

// ErrSchemaNotFound matches any missing schema via errors.Is.
var ErrSchemaNotFound = pkgerrors.NewNotFoundError("schema").WithCode("SCHEMA_NOT_FOUND")

// ErrContentTypeNotFound matches any unknown content type via errors.Is.
var ErrContentTypeNotFound = pkgerrors.NewNotFoundError("content type").WithCode("CONTENT_TYPE_NOT_FOUND")

// Registry is filled once at startup, sealed, and then only read.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	types     map[string]content.TypeInfo
	sealed    bool
}

// New returns an empty, unsealed registry.
func New() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		types:     make(map[string]content.TypeInfo),
	}
}

// Key is the registry key for a type and schema name.
func Key(typeName, name string) string {
	if name == "" {
		name = schema.DefaultName
	}
	return typeName + "/" + name
}

// Register stores factory under "{type}/{name}" and makes the type
// constructible through the generic creation endpoint.
func (r *Registry) Register(ti content.TypeInfo, factory Factory, name string) error {
	if ti.Name == "" {
		return fmt.Errorf("register: type name is empty")
	}
	if factory == nil {
		return fmt.Errorf("register %s: nil factory", ti.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("register %s: %w", Key(ti.Name, name), ErrSealed)
	}
	r.factories[Key(ti.Name, name)] = factory
	if _, ok := r.types[ti.Name]; !ok || name == "" || name == schema.DefaultName {
		r.types[ti.Name] = ti
	}
	return nil
}

// Seal freezes the registry.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Lookup returns the named schema for node.
func (r *Registry) Lookup(ctx context.Context, node *content.Node, name string) (*schema.Schema, error) {
	return r.build(ctx, node.TypeName, node, name)
}

// LookupType returns the named schema for a type without a node.
func (r *Registry) LookupType(ctx context.Context, typeName, name string) (*schema.Schema, error) {
	return r.build(ctx, typeName, nil, name)
}

func (r *Registry) build(ctx context.Context, typeName string, node *content.Node, name string) (*schema.Schema, error) {
	r.mu.RLock()
	factory, ok := r.factories[Key(typeName, name)]
	r.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("schema %s", Key(typeName, name))).WithCode("SCHEMA_NOT_FOUND")
	}
	s := factory(ctx, node)
	if s == nil {
		return nil, pkgerrors.NewInternalError(fmt.Sprintf("schema factory %s returned nil", Key(typeName, name)))
	}
	return s, nil
}

// ContentFactory returns the descriptor of a constructible type.
func (r *Registry) ContentFactory(typeName string) (content.TypeInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ti, ok := r.types[typeName]
	if !ok {
		return content.TypeInfo{}, pkgerrors.NewNotFoundError(fmt.Sprintf("content type %s", typeName)).WithCode("CONTENT_TYPE_NOT_FOUND")
	}
	return ti, nil
}

// Types lists constructible types sorted by name.
func (r *Registry) Types() []content.TypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]content.TypeInfo, 0, len(r.types))
	for _, ti := range r.types {
		out = append(out, ti)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Keys lists every registered key, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
