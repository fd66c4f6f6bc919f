package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/serializer"
	"github.com/umeboshi2/kotti-jsonapi/application/site"
	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/schema"
	"github.com/umeboshi2/kotti-jsonapi/domain/security"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

// ResourceRequest is the body of POST, PATCH and PUT requests.
type ResourceRequest struct {
	Data *ResourceObject `json:"data" validate:"required"`
}

// ResourceObject identifies a resource and carries its new attributes.
type ResourceObject struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type" validate:"required"`
	Attributes map[string]interface{} `json:"attributes" validate:"required"`
}

// JSONAPIHandler serves the @@json view of every node.
type JSONAPIHandler struct {
	env *Env
}

// NewJSONAPIHandler creates a new JSON:API handler
func NewJSONAPIHandler(env *Env) *JSONAPIHandler {
	return &JSONAPIHandler{env: env}
}

func schemaName(r *http.Request) string {
	if name := r.URL.Query().Get("schema"); name != "" {
		return name
	}
	return schema.DefaultName
}

func (h *JSONAPIHandler) options(r *http.Request) serializer.Options {
	opts := serializer.DefaultOptions()
	opts.SchemaName = schemaName(r)
	return opts
}

// writeOptions leaves messages out. withMessages pops them once the
// transaction has committed.
func (h *JSONAPIHandler) writeOptions(r *http.Request, name string) serializer.Options {
	opts := h.options(r)
	opts.SchemaName = name
	opts.IncludeMessages = false
	return opts
}

func (h *JSONAPIHandler) withMessages(r *http.Request, doc *serializer.Document) *serializer.Document {
	if doc.Meta == nil {
		doc.Meta = make(map[string]interface{})
	}
	doc.Meta["messages"] = h.env.messages(r.Context())
	return doc
}

// Get handles GET <path>/@@json
func (h *JSONAPIHandler) Get(w http.ResponseWriter, r *http.Request, t Target) {
	var doc *serializer.Document
	err := h.env.Site.View(r.Context(), func(tx *site.Tx) error {
		node, err := tx.Resolve(t.Path)
		if err != nil {
			return err
		}
		if err := h.env.authorize(tx.Context(), security.PermView, node); err != nil {
			return err
		}
		doc, err = h.env.Serializer.Serialize(tx.Context(), h.env.request(r, t), node, h.options(r))
		return err
	})
	if err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}
	h.env.render(w, r, http.StatusOK, serializer.MediaType, doc)
}

// Post handles POST <path>/@@json: a full replacement of the schema's fields.
func (h *JSONAPIHandler) Post(w http.ResponseWriter, r *http.Request, t Target) {
	h.update(w, r, t, false)
}

// Patch handles PATCH <path>/@@json: only the supplied attributes change.
func (h *JSONAPIHandler) Patch(w http.ResponseWriter, r *http.Request, t Target) {
	h.update(w, r, t, true)
}

func (h *JSONAPIHandler) update(w http.ResponseWriter, r *http.Request, t Target, partial bool) {
	var req ResourceRequest
	if err := decode(w, r, &req); err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}

	var doc *serializer.Document
	err := h.env.Site.Update(r.Context(), func(tx *site.Tx) error {
		ctx := tx.Context()
		node, err := tx.Resolve(t.Path)
		if err != nil {
			return err
		}
		if err := h.env.authorize(ctx, security.PermEdit, node); err != nil {
			return err
		}
		if req.Data.ID != node.Name || req.Data.Type != node.TypeName {
			return pkgerrors.NewIdentityMismatchError(fmt.Sprintf(
				"body names %s %q but the request addresses %s %q",
				req.Data.Type, req.Data.ID, node.TypeName, node.Name)).
				WithDetail("id", node.Name).
				WithDetail("type", node.TypeName)
		}

		s, err := h.env.Registry.Lookup(ctx, node, schemaName(r))
		if err != nil {
			return err
		}
		var values map[string]interface{}
		if partial {
			values, err = s.DeserializePartial(req.Data.Attributes)
		} else {
			values, err = s.Deserialize(req.Data.Attributes)
		}
		if err != nil {
			return err
		}
		if err := node.Apply(s, values); err != nil {
			return err
		}
		if err := tx.Touch(node); err != nil {
			return err
		}
		doc, err = h.env.Serializer.Serialize(ctx, h.env.request(r, t), node, h.writeOptions(r, schemaName(r)))
		return err
	})
	if err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}
	h.env.render(w, r, http.StatusOK, serializer.MediaType, h.withMessages(r, doc))
}

// Put handles PUT <path>/@@json: creates a child of the addressed node.
func (h *JSONAPIHandler) Put(w http.ResponseWriter, r *http.Request, t Target) {
	var req ResourceRequest
	if err := decode(w, r, &req); err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}
	ti, err := h.env.Registry.ContentFactory(req.Data.Type)
	if err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}

	var (
		doc  *serializer.Document
		path string
	)
	err = h.env.Site.Update(r.Context(), func(tx *site.Tx) error {
		ctx := tx.Context()
		parent, err := tx.Resolve(t.Path)
		if err != nil {
			return err
		}
		if err := h.env.authorize(ctx, ti.AddPermission, parent); err != nil {
			return err
		}

		s, err := h.env.Registry.LookupType(ctx, ti.Name, schema.DefaultName)
		if err != nil {
			return err
		}
		values, err := s.Deserialize(req.Data.Attributes)
		if err != nil {
			return err
		}
		title, _ := values["title"].(string)
		node := ti.New(content.TitleToName(title, parent.Keys()), title)
		if err := node.Apply(s, values); err != nil {
			return err
		}
		if err := tx.Add(parent, node); err != nil {
			return err
		}
		path = node.Path()
		doc, err = h.env.Serializer.Serialize(ctx, h.env.request(r, t), node, h.writeOptions(r, schema.DefaultName))
		return err
	})
	if err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}

	h.env.Logger.Info("Content created",
		zap.String("path", path),
		zap.String("type", ti.Name),
	)
	w.Header().Set("Location", h.env.request(r, t).NodeURL(path))
	h.env.render(w, r, http.StatusCreated, serializer.MediaType, h.withMessages(r, doc))
}

// Delete handles DELETE <path>/@@json
func (h *JSONAPIHandler) Delete(w http.ResponseWriter, r *http.Request, t Target) {
	err := h.env.Site.Update(r.Context(), func(tx *site.Tx) error {
		node, err := tx.Resolve(t.Path)
		if err != nil {
			return err
		}
		if err := h.env.authorize(tx.Context(), security.PermDelete, node); err != nil {
			return err
		}
		return tx.Remove(node)
	})
	if err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}
