package serializer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/registry"
	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/links"
	"github.com/umeboshi2/kotti-jsonapi/domain/security"
	"github.com/umeboshi2/kotti-jsonapi/domain/workflow"
)

const gravatarURL = "https://secure.gravatar.com/avatar/"

// TitleSource supplies the configured site title.
type TitleSource interface {
	Title() string
}

// Flags select which groups of relational metadata are gathered.
type Flags struct {
	User        bool
	TypeInfo    bool
	Permissions bool
	ExtraInfo   bool
}

// AllFlags gathers everything.
func AllFlags() Flags {
	return Flags{User: true, TypeInfo: true, Permissions: true, ExtraInfo: true}
}

// Gatherer collects the navigation, permission and workflow context a
// client needs to render chrome around a node.
type Gatherer struct {
	registry *registry.Registry
	checker  security.Checker
	workflow workflow.Provider
	links    *links.Registry
	site     TitleSource
	logger   *zap.Logger
}

func NewGatherer(reg *registry.Registry, checker security.Checker, wf workflow.Provider, lr *links.Registry, site TitleSource, logger *zap.Logger) *Gatherer {
	return &Gatherer{
		registry: reg,
		checker:  checker,
		workflow: wf,
		links:    lr,
		site:     site,
		logger:   logger,
	}
}

type part struct {
	key string
	fn  func() (interface{}, error)
}

// Gather returns the relational metadata for node. A part that fails is
// logged and left out; the remaining parts are still returned.
func (g *Gatherer) Gather(ctx context.Context, req *Request, node *content.Node, f Flags) map[string]interface{} {
	gc := &gatherCtx{g: g, ctx: ctx, req: req, node: node}

	var parts []part
	if f.User {
		parts = append(parts, part{"current_user", gc.currentUser})
	}
	if f.TypeInfo {
		parts = append(parts, part{"type_info", gc.typeInfo})
	}
	if f.Permissions {
		parts = append(parts, part{"has_permission", gc.permissions})
	}
	if f.ExtraInfo {
		parts = append(parts,
			part{"navitems", gc.navItems},
			part{"application_url", gc.constant(req.BaseURL)},
			part{"site_title", gc.siteTitle},
			part{"root_url", gc.constant(req.RootURL())},
			part{"workflow", gc.workflowInfo},
			part{"request_url", gc.constant(req.URL)},
			part{"api_url", gc.constant(gc.url())},
			part{"edit_links", gc.editLinks},
			part{"link_parent", gc.linkParent},
			part{"selectable_default_views", gc.defaultViews},
			part{"content_type_factories", gc.factories},
			part{"upload_url", gc.constant(gc.url() + "upload")},
			part{"site_setup_links", gc.siteSetupLinks},
			part{"navigate_url", gc.constant(gc.url() + "@@navigate")},
			part{"logout_url", gc.constant(req.RootURL() + "@@logout?came_from=" + url.QueryEscape(req.URL))},
			part{"has_location_context", gc.constant(true)},
			part{"view_needed", gc.constant(true)},
			part{"breadcrumbs", gc.breadcrumbs},
			part{"lineage", gc.lineage},
			part{"paths", gc.paths},
			part{"contents_buttons", gc.contentsButtons},
		)
	}

	out := make(map[string]interface{}, len(parts))
	for _, p := range parts {
		v, err := g.safely(p)
		if err != nil {
			g.logger.Error("relational metadata part failed",
				zap.String("key", p.key),
				zap.String("path", node.Path()),
				zap.Error(err))
			continue
		}
		out[p.key] = v
	}
	return out
}

func (g *Gatherer) safely(p part) (v interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.fn()
}

type gatherCtx struct {
	g    *Gatherer
	ctx  context.Context
	req  *Request
	node *content.Node
}

func (gc *gatherCtx) url() string {
	return gc.req.NodeURL(gc.node.Path())
}

func (gc *gatherCtx) allowed(permission string, node *content.Node) bool {
	if gc.g.checker == nil {
		return true
	}
	return gc.g.checker.HasPermission(gc.ctx, permission, node)
}

func (gc *gatherCtx) linkContext(node *content.Node) links.Context {
	return links.Context{
		URL:      gc.req.NodeURL(node.Path()),
		Path:     node.Path(),
		ViewName: gc.req.ViewName,
		Allowed:  func(p string) bool { return gc.allowed(p, node) },
	}
}

func (gc *gatherCtx) constant(v interface{}) func() (interface{}, error) {
	return func() (interface{}, error) { return v, nil }
}

func (gc *gatherCtx) currentUser() (interface{}, error) {
	p := security.PrincipalFrom(gc.ctx)
	if p == nil {
		return nil, nil
	}
	groups := p.Groups
	if groups == nil {
		groups = []string{}
	}
	return map[string]interface{}{
		"id":              p.Name,
		"email":           p.Email,
		"groups":          groups,
		"name":            p.Name,
		"title":           p.Title,
		"creation_date":   isoTime(p.CreationDate),
		"last_login_date": isoTime(p.LastLoginDate),
		"avatar_prefix":   AvatarPrefix(p.Email),
		"prefs_url":       gc.req.RootURL() + "@@prefs",
	}, nil
}

// AvatarPrefix is the gravatar URL for email, waiting for a size.
func AvatarPrefix(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return gravatarURL + hex.EncodeToString(sum[:]) + "?s="
}

func isoTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}

func (gc *gatherCtx) typeInfo() (interface{}, error) {
	ti, err := gc.g.registry.ContentFactory(gc.node.TypeName)
	if err != nil {
		return nil, err
	}
	addableTo := ti.AddableTo
	if addableTo == nil {
		addableTo = []string{}
	}
	views := ti.SelectableDefaultViews
	if views == nil {
		views = []content.ViewOption{}
	}
	info := map[string]interface{}{
		"title":                    ti.Title,
		"name":                     ti.Name,
		"addable_to":               addableTo,
		"add_permission":           ti.AddPermission,
		"selectable_default_views": views,
	}
	if ti.Name == content.TypeImage {
		for _, span := range []string{"span1", "span4"} {
			info["image_"+span+"_url"] = gc.url() + "image/" + span
		}
	}
	return info, nil
}

func (gc *gatherCtx) permissions() (interface{}, error) {
	return map[string]bool{
		security.PermAdd:         gc.allowed(security.PermAdd, gc.node),
		security.PermEdit:        gc.allowed(security.PermEdit, gc.node),
		security.PermStateChange: gc.allowed(security.PermStateChange, gc.node),
		security.PermAdmin:       gc.allowed(security.PermAdmin, gc.node.Root()),
	}, nil
}

// nodeRef is the summary used by navigation, breadcrumbs and lineage.
type nodeRef struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Path        string `json:"path"`
	Title       string `json:"title"`
}

func (gc *gatherCtx) ref(n *content.Node) nodeRef {
	return nodeRef{
		ID:          n.ID,
		Name:        n.Name,
		Description: n.Description,
		URL:         gc.req.NodeURL(n.Path()),
		Path:        n.Path(),
		Title:       n.Title,
	}
}

type navItem struct {
	Inside      bool   `json:"inside"`
	URL         string `json:"url"`
	Path        string `json:"path"`
	Description string `json:"description"`
	Title       string `json:"title"`
}

func (gc *gatherCtx) navItems() (interface{}, error) {
	lineage := gc.node.Lineage()
	inside := func(item *content.Node) bool {
		for _, n := range lineage {
			if n == item {
				return true
			}
		}
		return false
	}
	items := []navItem{}
	for _, item := range VisibleChildren(gc.ctx, gc.g.checker, gc.node.Root()) {
		if !item.InNavigation {
			continue
		}
		items = append(items, navItem{
			Inside:      inside(item),
			URL:         gc.req.NodeURL(item.Path()),
			Path:        item.Path(),
			Description: item.Description,
			Title:       item.Title,
		})
	}
	return items, nil
}

func (gc *gatherCtx) siteTitle() (interface{}, error) {
	if gc.g.site == nil {
		return "", nil
	}
	return gc.g.site.Title(), nil
}

func (gc *gatherCtx) workflowInfo() (interface{}, error) {
	if gc.g.workflow == nil {
		return nil, nil
	}
	return gc.g.workflow.Info(gc.ctx, gc.node)
}

func (gc *gatherCtx) editLinks() (interface{}, error) {
	lc := gc.linkContext(gc.node)
	out := []links.Info{}
	for _, l := range gc.g.links.EditLinks() {
		if action, ok := l.(links.ActionLink); ok {
			out = append(out, action.Describe(lc))
		}
	}
	return out, nil
}

// linkParent renders the first dropdown of the edit bar, or nil.
func (gc *gatherCtx) linkParent() (interface{}, error) {
	for _, l := range gc.g.links.EditLinks() {
		if parent, ok := l.(links.ParentLink); ok {
			return parent.VisibleChildren(gc.linkContext(gc.node)), nil
		}
	}
	return nil, nil
}

type defaultView struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	IsCurrent bool   `json:"is_current"`
}

func (gc *gatherCtx) defaultViews() (interface{}, error) {
	ti, err := gc.g.registry.ContentFactory(gc.node.TypeName)
	if err != nil {
		return nil, err
	}
	views := []defaultView{{
		Name:      "default",
		Title:     "Default view",
		URL:       gc.url() + "@@set-default-view?view_name=default",
		IsCurrent: gc.node.DefaultView == "",
	}}
	for _, v := range ti.SelectableDefaultViews {
		views = append(views, defaultView{
			Name:      v.Name,
			Title:     v.Title,
			URL:       gc.url() + "@@set-default-view?view_name=" + url.QueryEscape(v.Name),
			IsCurrent: gc.node.DefaultView == v.Name,
		})
	}
	return views, nil
}

type factoryInfo struct {
	URL      string `json:"url"`
	Resource string `json:"resource"`
	Command  string `json:"command"`
	Title    string `json:"title"`
}

func (gc *gatherCtx) factories() (interface{}, error) {
	out := []factoryInfo{}
	for _, ti := range gc.g.registry.Types() {
		if ti.AddView == "" || !ti.Addable(gc.node) || !gc.allowed(ti.AddPermission, gc.node) {
			continue
		}
		p := gc.node.Path() + ti.AddView
		out = append(out, factoryInfo{
			URL:      gc.url() + ti.AddView,
			Resource: path.Dir(p),
			Command:  path.Base(p),
			Title:    ti.Title,
		})
	}
	return out, nil
}

// siteSetupLinks renders the setup menu against the root. Entries that
// resolve to an already listed URL are dropped, keeping the first.
func (gc *gatherCtx) siteSetupLinks() (interface{}, error) {
	lc := gc.linkContext(gc.node.Root())
	seen := make(map[string]bool)
	out := []links.Info{}
	for _, l := range gc.g.links.SiteSetupLinks() {
		info := l.Describe(lc)
		if seen[info.URL] {
			continue
		}
		seen[info.URL] = true
		out = append(out, info)
	}
	return out, nil
}

func (gc *gatherCtx) breadcrumbs() (interface{}, error) {
	lineage := gc.node.Lineage()
	out := make([]nodeRef, 0, len(lineage))
	for i := len(lineage) - 1; i >= 0; i-- {
		out = append(out, gc.ref(lineage[i]))
	}
	return out, nil
}

func (gc *gatherCtx) lineage() (interface{}, error) {
	lineage := gc.node.Lineage()
	out := make([]nodeRef, 0, len(lineage))
	for _, n := range lineage {
		out = append(out, gc.ref(n))
	}
	return out, nil
}

func (gc *gatherCtx) paths() (interface{}, error) {
	childPaths := []string{}
	childNames := []string{}
	for _, child := range VisibleChildren(gc.ctx, gc.g.checker, gc.node) {
		childPaths = append(childPaths, child.Path())
		childNames = append(childNames, child.Name)
	}
	return map[string]interface{}{
		"this_path":   gc.node.Path(),
		"child_paths": childPaths,
		"childnames":  childNames,
	}, nil
}

func (gc *gatherCtx) contentsButtons() (interface{}, error) {
	lc := gc.linkContext(gc.node)
	out := []links.ButtonInfo{}
	for _, b := range gc.g.links.ContentsButtons() {
		out = append(out, b.Describe(lc))
	}
	return out, nil
}
