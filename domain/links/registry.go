package links

import "sync"

// Registry holds the link sets the site exposes. Plugins append during
// startup; request handlers only read.
type Registry struct {
	mu              sync.RWMutex
	editLinks       []Link
	siteSetupLinks  []ActionLink
	contentsButtons []ButtonLink
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// AddEditLinks appends edit bar links.
func (r *Registry) AddEditLinks(l ...Link) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.editLinks = append(r.editLinks, l...)
}

// AddSiteSetupLinks appends site setup entries. Duplicates are kept here
// and filtered when rendered.
func (r *Registry) AddSiteSetupLinks(l ...ActionLink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.siteSetupLinks = append(r.siteSetupLinks, l...)
}

// AddContentsButtons appends bulk action buttons.
func (r *Registry) AddContentsButtons(b ...ButtonLink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contentsButtons = append(r.contentsButtons, b...)
}

func (r *Registry) EditLinks() []Link {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Link(nil), r.editLinks...)
}

func (r *Registry) SiteSetupLinks() []ActionLink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ActionLink(nil), r.siteSetupLinks...)
}

func (r *Registry) ContentsButtons() []ButtonLink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ButtonLink(nil), r.contentsButtons...)
}

// DefaultRegistry returns the standard edit bar, setup menu and contents buttons.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.AddEditLinks(
		ActionLink{Name: "contents", Title: "Contents", Permission: "edit"},
		ActionLink{Name: "edit", Title: "Edit", Permission: "edit"},
		ActionLink{Name: "share", Title: "Share", Permission: "manage"},
		ParentLink{Title: "Actions", Children: []Link{
			ActionLink{Name: "copy", Title: "Copy", Permission: "edit"},
			ActionLink{Name: "cut", Title: "Cut", Permission: "edit"},
			ActionLink{Name: "paste", Title: "Paste", Permission: "edit"},
			ActionLink{Name: "rename", Title: "Rename", Permission: "edit"},
			ActionLink{Name: "delete", Title: "Delete", Permission: "delete"},
			RendererLink{Name: "default-view-selector"},
		}},
	)
	r.AddSiteSetupLinks(
		ActionLink{Name: "setup-users", Title: "User Management", Permission: "admin"},
	)
	r.AddContentsButtons(
		ButtonLink{Name: "copy", Title: "Copy", Permission: "edit"},
		ButtonLink{Name: "cut", Title: "Cut", Permission: "edit"},
		ButtonLink{Name: "paste", Title: "Paste", NoChildren: true, Permission: "edit"},
		ButtonLink{Name: "rename_nodes", Title: "Rename", Permission: "edit"},
		ButtonLink{Name: "delete_nodes", Title: "Delete", CSSClass: "btn-danger", Permission: "delete"},
		ButtonLink{Name: "change_state", Title: "Change State", Permission: "state_change"},
		ButtonLink{Name: "up", Title: "Move up", Permission: "edit"},
		ButtonLink{Name: "down", Title: "Move down", Permission: "edit"},
		ButtonLink{Name: "show", Title: "Show", Permission: "edit"},
		ButtonLink{Name: "hide", Title: "Hide", Permission: "edit"},
	)
	return r
}
