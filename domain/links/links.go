// Package links models the edit actions, setup entries and bulk buttons a
// client renders around a node. Each link kind carries its own complete set
// of fields.
package links

import (
	"strings"
)

// Kind tags a link variant.
type Kind string

const (
	KindAction   Kind = "action"
	KindParent   Kind = "parent"
	KindRenderer Kind = "renderer"
	KindButton   Kind = "button"
)

// Link is implemented only by the variants in this package. The unexported
// method closes the set, so a switch over the four variants is exhaustive.
type Link interface {
	Kind() Kind
	link()
}

// ActionLink points at a named view of the context node.
type ActionLink struct {
	Name       string
	Title      string
	Target     string
	Permission string
}

// ParentLink groups other links under a dropdown.
type ParentLink struct {
	Title    string
	Children []Link
}

// RendererLink is a slot filled by a server-side widget. It is never shown
// in JSON output.
type RendererLink struct {
	Name string
}

// ButtonLink is a bulk action on selected children.
type ButtonLink struct {
	Name       string
	Title      string
	CSSClass   string
	NoChildren bool
	Permission string
}

func (ActionLink) Kind() Kind   { return KindAction }
func (ParentLink) Kind() Kind   { return KindParent }
func (RendererLink) Kind() Kind { return KindRenderer }
func (ButtonLink) Kind() Kind   { return KindButton }

func (ActionLink) link()   {}
func (ParentLink) link()   {}
func (RendererLink) link() {}
func (ButtonLink) link()   {}

// Context is what a link needs to describe itself.
type Context struct {
	// URL is the slash-terminated canonical URL of the node.
	URL string
	// Path is the slash-terminated resource path of the node.
	Path     string
	ViewName string
	Allowed  func(permission string) bool
}

// Info is the wire form of an action link.
type Info struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Target    string `json:"target"`
	URL       string `json:"url"`
	Path      string `json:"path"`
	Selected  bool   `json:"selected"`
	Visible   bool   `json:"visible"`
	Permitted bool   `json:"permitted"`
	Resource  string `json:"resource"`
	Command   string `json:"command"`
}

// ButtonInfo is the wire form of a bulk action button.
type ButtonInfo struct {
	Info
	CSSClasses string `json:"css_classes"`
	NoChildren bool   `json:"no_children"`
	Template   string `json:"template"`
}

func (l ActionLink) permitted(c Context) bool {
	if l.Permission == "" || c.Allowed == nil {
		return true
	}
	return c.Allowed(l.Permission)
}

// Describe renders the link for c. Resource and command come from splitting
// the view URL path at the "@@" marker.
func (l ActionLink) Describe(c Context) Info {
	permitted := l.permitted(c)
	resource, command := splitViewPath(c.Path + "@@" + l.Name)
	return Info{
		Name:      l.Name,
		Title:     l.Title,
		Target:    l.Target,
		URL:       c.URL + "@@" + l.Name,
		Path:      c.Path + "@@" + l.Name,
		Selected:  c.ViewName == l.Name,
		Visible:   permitted,
		Permitted: permitted,
		Resource:  resource,
		Command:   command,
	}
}

// Describe renders the button for c.
func (b ButtonLink) Describe(c Context) ButtonInfo {
	action := ActionLink{Name: b.Name, Title: b.Title, Permission: b.Permission}
	return ButtonInfo{
		Info:       action.Describe(c),
		CSSClasses: b.CSSClass,
		NoChildren: b.NoChildren,
		Template:   "contents-button",
	}
}

// VisibleChildren returns the action links below p that are visible in c.
// Renderer slots are skipped.
func (p ParentLink) VisibleChildren(c Context) []Info {
	out := []Info{}
	for _, child := range p.Children {
		action, ok := child.(ActionLink)
		if !ok {
			continue
		}
		info := action.Describe(c)
		if info.Visible {
			out = append(out, info)
		}
	}
	return out
}

func splitViewPath(path string) (string, string) {
	idx := strings.LastIndex(path, "@@")
	if idx < 0 {
		return strings.TrimSuffix(path, "/"), ""
	}
	resource := strings.TrimSuffix(path[:idx], "/")
	if resource == "" {
		resource = "/"
	}
	return resource, path[idx+2:]
}
