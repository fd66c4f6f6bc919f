// Package serializer renders content nodes as JSON:API documents.
package serializer

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/ports"
	"github.com/umeboshi2/kotti-jsonapi/application/registry"
	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/schema"
	"github.com/umeboshi2/kotti-jsonapi/domain/security"
	"github.com/umeboshi2/kotti-jsonapi/pkg/observability"
)

// Options select what goes into a document.
type Options struct {
	SchemaName            string
	IncludeRelationalMeta bool
	IncludeMessages       bool
}

// DefaultOptions renders the default schema with relational metadata and
// pending messages.
func DefaultOptions() Options {
	return Options{
		SchemaName:            schema.DefaultName,
		IncludeRelationalMeta: true,
		IncludeMessages:       true,
	}
}

// Serializer builds documents. It is safe for concurrent use.
type Serializer struct {
	registry *registry.Registry
	checker  security.Checker
	messages ports.MessageStore
	gatherer *Gatherer
	logger   *zap.Logger
	tracer   trace.Tracer
	metadata *schema.Schema
}

// New creates a Serializer. messages may be nil, in which case every queue
// is reported empty.
func New(reg *registry.Registry, checker security.Checker, messages ports.MessageStore, gatherer *Gatherer, logger *zap.Logger) *Serializer {
	return &Serializer{
		registry: reg,
		checker:  checker,
		messages: messages,
		gatherer: gatherer,
		logger:   logger,
		tracer:   observability.Tracer(),
		metadata: schema.Metadata(),
	}
}

// Serialize renders node. The caller must hold the site lock.
func (s *Serializer) Serialize(ctx context.Context, req *Request, node *content.Node, opts Options) (*Document, error) {
	ctx, span := s.tracer.Start(ctx, "serializer.Serialize",
		trace.WithAttributes(
			attribute.String("node.path", node.Path()),
			attribute.String("node.type", node.TypeName),
			attribute.String("schema.name", opts.SchemaName),
		),
	)
	defer span.End()

	doc, err := s.serialize(ctx, req, node, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return doc, nil
}

func (s *Serializer) serialize(ctx context.Context, req *Request, node *content.Node, opts Options) (*Document, error) {
	sch, err := s.registry.Lookup(ctx, node, opts.SchemaName)
	if err != nil {
		return nil, err
	}
	attrs, err := sch.Serialize(node)
	if err != nil {
		return nil, err
	}
	attrs["oid"] = node.ID

	children := []string{}
	for _, child := range VisibleChildren(ctx, s.checker, node) {
		children = append(children, req.NodeURL(child.Path()))
	}

	meta, err := s.meta(node)
	if err != nil {
		return nil, err
	}
	if opts.IncludeMessages {
		meta["messages"] = Messages(ctx, s.messages, req.SessionID)
	}

	doc := &Document{
		Data: Resource{
			Type:       node.TypeName,
			ID:         node.Name,
			Attributes: attrs,
			Links: Links{
				Self:     req.NodeURL(node.Path()),
				Children: children,
			},
		},
		Meta: meta,
	}
	if opts.IncludeRelationalMeta && s.gatherer != nil {
		doc.Data.Relationships = &Relationships{
			Meta: s.gatherer.Gather(ctx, req, node, AllFlags()),
		}
	}
	return doc, nil
}

// meta renders the metadata schema. in_navigation travels through the
// schema as a string and is turned back into a boolean here.
func (s *Serializer) meta(node *content.Node) (map[string]interface{}, error) {
	meta, err := s.metadata.Serialize(metaSource{node})
	if err != nil {
		return nil, err
	}
	if raw, ok := meta["in_navigation"].(string); ok {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			s.logger.Warn("unparseable in_navigation flag",
				zap.String("path", node.Path()),
				zap.String("value", raw))
		}
		meta["in_navigation"] = b
	}
	return meta, nil
}

type metaSource struct {
	node *content.Node
}

func (m metaSource) Value(name string) (interface{}, bool) {
	switch name {
	case "in_navigation":
		return strconv.FormatBool(m.node.InNavigation), true
	case "path":
		return m.node.Path(), true
	}
	return m.node.Value(name)
}

// VisibleChildren returns the children of node the request's principal may view.
func VisibleChildren(ctx context.Context, checker security.Checker, node *content.Node) []*content.Node {
	var out []*content.Node
	for _, child := range node.Children() {
		if checker == nil || checker.HasPermission(ctx, security.PermView, child) {
			out = append(out, child)
		}
	}
	return out
}
