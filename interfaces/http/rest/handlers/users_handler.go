package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/ports"
	"github.com/umeboshi2/kotti-jsonapi/application/serializer"
	"github.com/umeboshi2/kotti-jsonapi/application/site"
	"github.com/umeboshi2/kotti-jsonapi/domain/security"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

const avatarSize = 64

// UsersHandler serves @@setup-users-json, the site-wide role assignment.
type UsersHandler struct {
	env *Env
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(env *Env) *UsersHandler {
	return &UsersHandler{env: env}
}

// PrincipalSummary is the public part of a principal.
type PrincipalSummary struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	AvatarURL string `json:"avatar_url"`
}

// UserEntry pairs a principal with its global roles.
type UserEntry struct {
	Principal PrincipalSummary `json:"principal"`
	Groups    []string         `json:"groups"`
}

// UsersData is the listing returned by GET and POST.
type UsersData struct {
	Entries        []UserEntry     `json:"entries"`
	AvailableRoles []security.Role `json:"available_roles"`
}

// UsersResponse wraps UsersData with the pending messages.
type UsersResponse struct {
	Data UsersData  `json:"data"`
	Meta ActionMeta `json:"meta"`
}

// ApplyRequest maps principal names to the complete set of roles they
// should hold. Principals not named keep their roles.
type ApplyRequest struct {
	Apply map[string][]string `json:"apply" validate:"required"`
}

// rootOnly resolves the root and checks the admin permission on it. The
// view does not exist below the root.
func (h *UsersHandler) rootOnly(tx *site.Tx, t Target) error {
	if t.Path != "" && t.Path != "/" {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("view %s", t.View))
	}
	return h.env.authorize(tx.Context(), security.PermAdmin, tx.Root())
}

// List handles GET /@@setup-users-json
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request, t Target) {
	err := h.env.Site.View(r.Context(), func(tx *site.Tx) error {
		return h.rootOnly(tx, t)
	})
	if err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}
	h.respond(w, r)
}

// Apply handles POST /@@setup-users-json
func (h *UsersHandler) Apply(w http.ResponseWriter, r *http.Request, t Target) {
	var req ApplyRequest
	if err := decode(w, r, &req); err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}

	changed := 0
	err := h.env.Site.Update(r.Context(), func(tx *site.Tx) error {
		ctx := tx.Context()
		if err := h.rootOnly(tx, t); err != nil {
			return err
		}

		names := make([]string, 0, len(req.Apply))
		for name := range req.Apply {
			names = append(names, name)
		}
		sort.Strings(names)

		// validate every entry before saving any of them
		pending := make([]*security.Principal, 0, len(names))
		for _, name := range names {
			for _, role := range req.Apply[name] {
				if !security.IsRole(role) {
					return pkgerrors.NewFieldValidationError(map[string]string{name: fmt.Sprintf("unknown role %q", role)})
				}
			}
			p, err := h.env.Principals.Get(ctx, name)
			if err != nil {
				return err
			}
			if replaceRoles(p, req.Apply[name]) {
				pending = append(pending, p)
			}
		}

		for _, p := range pending {
			if err := h.env.Principals.Save(ctx, p); err != nil {
				return pkgerrors.NewInfrastructureError("save principal", err)
			}
			tx.Record(ports.ContentEvent{
				Type:      ports.EventRolesChanged,
				Path:      tx.Root().Path(),
				Principal: p.Name,
			})
			h.env.Logger.Info("Roles changed",
				zap.String("principal", p.Name),
				zap.Strings("roles", p.Roles()),
			)
		}
		changed = len(pending)
		return nil
	})
	if err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}

	if changed > 0 {
		h.env.flashAll(r.Context(), []flash{{ports.QueueSuccess, savedMessage}})
	} else {
		h.env.flashAll(r.Context(), []flash{{ports.QueueInfo, "No changes were made."}})
	}
	h.respond(w, r)
}

func (h *UsersHandler) respond(w http.ResponseWriter, r *http.Request) {
	data, err := h.list(r.Context())
	if err != nil {
		h.env.Errors.Handle(w, r, err)
		return
	}
	h.env.render(w, r, http.StatusOK, serializer.MediaType, UsersResponse{
		Data: data,
		Meta: ActionMeta{Messages: h.env.messages(r.Context())},
	})
}

func (h *UsersHandler) list(ctx context.Context) (UsersData, error) {
	principals, err := h.env.Principals.List(ctx)
	if err != nil {
		return UsersData{}, pkgerrors.NewInfrastructureError("list principals", err)
	}
	data := UsersData{
		Entries:        make([]UserEntry, 0, len(principals)),
		AvailableRoles: security.AvailableRoles(),
	}
	for _, p := range principals {
		roles := p.Roles()
		if roles == nil {
			roles = []string{}
		}
		data.Entries = append(data.Entries, UserEntry{
			Principal: PrincipalSummary{
				Name:      p.Name,
				Title:     p.Title,
				AvatarURL: fmt.Sprintf("%s%d", serializer.AvatarPrefix(p.Email), avatarSize),
			},
			Groups: roles,
		})
	}
	return data, nil
}

// replaceRoles swaps the role groups of p for roles, keeping its other
// groups, and reports whether anything changed.
func replaceRoles(p *security.Principal, roles []string) bool {
	want := make(map[string]bool, len(roles))
	for _, r := range roles {
		want[r] = true
	}
	have := make(map[string]bool)
	for _, g := range p.Groups {
		if security.IsRole(g) {
			have[g] = true
		}
	}
	if len(want) == len(have) {
		same := true
		for r := range want {
			if !have[r] {
				same = false
				break
			}
		}
		if same {
			return false
		}
	}

	groups := make([]string, 0, len(p.Groups)+len(roles))
	for _, g := range p.Groups {
		if !security.IsRole(g) {
			groups = append(groups, g)
		}
	}
	for _, r := range security.AvailableRoles() {
		if want[r.Name] {
			groups = append(groups, r.Name)
		}
	}
	p.Groups = groups
	return true
}
