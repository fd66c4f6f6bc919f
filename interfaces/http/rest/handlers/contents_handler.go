package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/umeboshi2/kotti-jsonapi/application/ports"
	"github.com/umeboshi2/kotti-jsonapi/application/serializer"
	"github.com/umeboshi2/kotti-jsonapi/application/site"
	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/security"
	"github.com/umeboshi2/kotti-jsonapi/interfaces/http/rest/middleware"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

// savedMessage is flashed after a successful change.
const savedMessage = "Your changes have been saved."

// ContentsHandler serves the folder views of a node: the child listing,
// reordering and workflow transitions.
type ContentsHandler struct {
	env *Env
}

// NewContentsHandler creates a new contents handler
func NewContentsHandler(env *Env) *ContentsHandler {
	return &ContentsHandler{env: env}
}

// ContentsResponse lists the visible children of a node.
type ContentsResponse struct {
	Data []*serializer.Document `json:"data"`
	Meta ActionMeta             `json:"meta"`
}

// ActionMeta carries the session's pending messages.
type ActionMeta struct {
	Messages map[string][]string `json:"messages"`
}

// ActionResponse is returned by the views that change something.
type ActionResponse struct {
	Result interface{} `json:"result"`
	Meta   ActionMeta  `json:"meta"`
}

// List handles GET <path>/@@contents-json
func (h *ContentsHandler) List(w http.ResponseWriter, r *http.Request, t Target) {
	opts := serializer.DefaultOptions()
	opts.SchemaName = schemaName(r)
	opts.IncludeMessages = false

	resp := ContentsResponse{Data: []*serializer.Document{}}
	err := h.env.Site.View(r.Context(), func(tx *site.Tx) error {
		ctx := tx.Context()
		node, err := tx.Resolve(t.Path)
		if err != nil {
			return err
		}
		if err := h.env.authorize(ctx, security.PermView, node); err != nil {
			return err
		}
		req := h.env.request(r, t)
		for i, child := range serializer.VisibleChildren(ctx, h.env.Checker, node) {
			doc, err := h.env.Serializer.Serialize(ctx, req, child, opts)
			if err != nil {
				return err
			}
			doc.Meta["position"] = i
			resp.Data = append(resp.Data, doc)
		}
		return nil
	})
	if err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}
	resp.Meta.Messages = h.env.messages(r.Context())
	h.env.render(w, r, http.StatusOK, serializer.MediaType, resp)
}

// nodeIDs accepts ids as JSON numbers or numeric strings.
type nodeIDs []int64

func (ids *nodeIDs) UnmarshalJSON(data []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(nodeIDs, 0, len(raw))
	for _, v := range raw {
		switch id := v.(type) {
		case float64:
			out = append(out, int64(id))
		case string:
			n, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid child id %q", id)
			}
			out = append(out, n)
		default:
			return fmt.Errorf("invalid child id %v", v)
		}
	}
	*ids = out
	return nil
}

// MoveRequest selects the children to move.
type MoveRequest struct {
	Children nodeIDs `json:"children" validate:"required,min=1"`
}

// Up handles POST <path>/@@up-json
func (h *ContentsHandler) Up(w http.ResponseWriter, r *http.Request, t Target) {
	h.move(w, r, t, -1)
}

// Down handles POST <path>/@@down-json
func (h *ContentsHandler) Down(w http.ResponseWriter, r *http.Request, t Target) {
	h.move(w, r, t, 1)
}

func (h *ContentsHandler) move(w http.ResponseWriter, r *http.Request, t Target, delta int) {
	var req MoveRequest
	if err := decode(w, r, &req); err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}

	var (
		moved   = []int64{}
		flashes []flash
	)
	err := h.env.Site.Update(r.Context(), func(tx *site.Tx) error {
		node, err := tx.Resolve(t.Path)
		if err != nil {
			return err
		}
		if err := h.env.authorize(tx.Context(), security.PermEdit, node); err != nil {
			return err
		}

		byID := make(map[int64]*content.Node, len(node.Children()))
		for _, c := range node.Children() {
			byID[c.ID] = c
		}
		selected := make([]*content.Node, 0, len(req.Children))
		for _, id := range req.Children {
			child, ok := byID[id]
			if !ok {
				return pkgerrors.NewValidationError(fmt.Sprintf("node %d is not a child of %s", id, node.Path()))
			}
			selected = append(selected, child)
		}
		// moving down starts with the lowest selection so neighbours keep
		// their relative order
		if delta > 0 {
			for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
				selected[i], selected[j] = selected[j], selected[i]
			}
		}

		for _, child := range selected {
			ok, err := tx.Move(node, child.Name, delta)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			moved = append(moved, child.ID)
			flashes = append(flashes, flash{ports.QueueSuccess, fmt.Sprintf("%s was moved.", child.Title)})
		}
		return nil
	})
	if err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}
	h.env.flashAll(r.Context(), flashes)
	h.env.render(w, r, http.StatusOK, "application/json", ActionResponse{
		Result: moved,
		Meta:   ActionMeta{Messages: h.env.messages(r.Context())},
	})
}

// CopyRequest selects the children to copy. Without children the context
// node itself is copied.
type CopyRequest struct {
	Children nodeIDs `json:"children"`
}

// Copy handles POST <path>/@@copyjson. The selection is kept on the
// session clipboard for a later paste.
func (h *ContentsHandler) Copy(w http.ResponseWriter, r *http.Request, t Target) {
	var req CopyRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			h.env.Errors.Handle(w, r, err)
			return
		}
	}
	sid := middleware.SessionID(r.Context())
	if h.env.Clipboard == nil || sid == "" {
		h.env.Errors.Handle(w, r, pkgerrors.NewInternalError("no session clipboard"))
		return
	}

	var (
		copied  = []int64{}
		flashes []flash
	)
	err := h.env.Site.View(r.Context(), func(tx *site.Tx) error {
		node, err := tx.Resolve(t.Path)
		if err != nil {
			return err
		}
		if err := h.env.authorize(tx.Context(), security.PermEdit, node); err != nil {
			return err
		}

		selected := []*content.Node{node}
		if len(req.Children) > 0 {
			byID := make(map[int64]*content.Node, len(node.Children()))
			for _, c := range node.Children() {
				byID[c.ID] = c
			}
			selected = selected[:0]
			for _, id := range req.Children {
				child, ok := byID[id]
				if !ok {
					return pkgerrors.NewValidationError(fmt.Sprintf("node %d is not a child of %s", id, node.Path()))
				}
				selected = append(selected, child)
			}
		}
		for _, n := range selected {
			copied = append(copied, n.ID)
			flashes = append(flashes, flash{ports.QueueSuccess, fmt.Sprintf("%s was copied.", n.Title)})
		}
		return nil
	})
	if err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}
	h.env.Clipboard.SetClipboard(r.Context(), sid, copied, ports.PasteCopy)
	h.env.flashAll(r.Context(), flashes)
	h.env.render(w, r, http.StatusOK, "application/json", ActionResponse{
		Result: copied,
		Meta:   ActionMeta{Messages: h.env.messages(r.Context())},
	})
}

// TransitionRequest names the workflow transition to apply.
type TransitionRequest struct {
	Transition string `json:"transition" validate:"required"`
}

// ChangeState handles POST <path>/@@workflow-change-json
func (h *ContentsHandler) ChangeState(w http.ResponseWriter, r *http.Request, t Target) {
	var req TransitionRequest
	if err := decode(w, r, &req); err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}

	var state string
	err := h.env.Site.Update(r.Context(), func(tx *site.Tx) error {
		node, err := tx.Resolve(t.Path)
		if err != nil {
			return err
		}
		if err := h.env.authorize(tx.Context(), security.PermStateChange, node); err != nil {
			return err
		}
		if err := tx.Transition(node, req.Transition); err != nil {
			return err
		}
		state = node.State
		return nil
	})
	if err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}
	h.env.flashAll(r.Context(), []flash{{ports.QueueSuccess, savedMessage}})
	h.env.render(w, r, http.StatusOK, "application/json", ActionResponse{
		Result: map[string]string{"state": state},
		Meta:   ActionMeta{Messages: h.env.messages(r.Context())},
	})
}
