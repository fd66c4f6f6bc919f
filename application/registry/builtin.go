package registry

import (
	"context"
	"fmt"

	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/schema"
)

// Static wraps a fixed schema as a Factory.
func Static(s *schema.Schema) Factory {
	return func(context.Context, *content.Node) *schema.Schema { return s }
}

// RegisterBuiltins registers the default schemas of the standard types.
func RegisterBuiltins(r *Registry) error {
	defaults := map[string]func() *schema.Schema{
		content.TypeContent:  schema.Content,
		content.TypeDocument: schema.Document,
		content.TypeFile:     schema.File,
		content.TypeImage:    schema.File,
	}
	for _, ti := range content.BuiltinTypes() {
		build, ok := defaults[ti.Name]
		if !ok {
			return fmt.Errorf("no default schema for %s", ti.Name)
		}
		if err := r.Register(ti, Static(build()), schema.DefaultName); err != nil {
			return err
		}
	}
	return nil
}
