// Package security resolves permissions for principals on content nodes.
package security

import (
	"context"

	"github.com/umeboshi2/kotti-jsonapi/domain/content"
)

// Permissions checked by the REST surface.
const (
	PermView        = "view"
	PermAdd         = "add"
	PermEdit        = "edit"
	PermDelete      = "delete"
	PermStateChange = "state_change"
	PermManage      = "manage"
	PermAdmin       = "admin"
)

// Roles and system principals.
const (
	RolePrefix    = "role:"
	RoleViewer    = "role:viewer"
	RoleEditor    = "role:editor"
	RoleOwner     = "role:owner"
	RoleAdmin     = "role:admin"
	Everyone      = "system.Everyone"
	Authenticated = "system.Authenticated"
)

// Role is a grantable role with a display title.
type Role struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// AvailableRoles lists the roles an administrator can assign site-wide.
func AvailableRoles() []Role {
	return []Role{
		{Name: RoleViewer, Title: "Viewer"},
		{Name: RoleEditor, Title: "Editor"},
		{Name: RoleOwner, Title: "Owner"},
		{Name: RoleAdmin, Title: "Admin"},
	}
}

// IsRole reports whether name is one of AvailableRoles.
func IsRole(name string) bool {
	for _, r := range AvailableRoles() {
		if r.Name == name {
			return true
		}
	}
	return false
}

var defaultRolePermissions = map[string][]string{
	RoleViewer: {PermView},
	RoleEditor: {PermView, PermAdd, PermEdit, PermDelete, PermStateChange},
	RoleOwner:  {PermView, PermAdd, PermEdit, PermDelete, PermStateChange, PermManage},
	RoleAdmin:  {PermView, PermAdd, PermEdit, PermDelete, PermStateChange, PermManage, PermAdmin},
}

// Checker answers permission questions for the principal carried by ctx.
type Checker interface {
	HasPermission(ctx context.Context, permission string, node *content.Node) bool
}

// Policy grants permissions from global roles, inherited local roles and
// ownership. Nodes in a public workflow state, or in no state at all, are
// viewable by everyone.
type Policy struct {
	rolePermissions map[string]map[string]bool
	publicStates    map[string]bool
}

// NewPolicy builds a policy with the default role mapping.
func NewPolicy(publicStates []string) *Policy {
	p := &Policy{
		rolePermissions: make(map[string]map[string]bool),
		publicStates:    make(map[string]bool),
	}
	for role, perms := range defaultRolePermissions {
		p.rolePermissions[role] = make(map[string]bool)
		for _, perm := range perms {
			p.rolePermissions[role][perm] = true
		}
	}
	for _, s := range publicStates {
		p.publicStates[s] = true
	}
	return p
}

// HasPermission implements Checker.
func (p *Policy) HasPermission(ctx context.Context, permission string, node *content.Node) bool {
	if node == nil {
		return false
	}
	if permission == PermView && (node.State == "" || p.publicStates[node.State]) {
		return true
	}
	principal := PrincipalFrom(ctx)
	if principal == nil {
		return false
	}
	for _, role := range p.EffectiveRoles(principal, node) {
		if p.rolePermissions[role][permission] {
			return true
		}
	}
	return false
}

// EffectiveRoles collects global roles, local roles granted on node or any
// ancestor to the principal or its groups, and ownership.
func (p *Policy) EffectiveRoles(principal *Principal, node *content.Node) []string {
	ids := append([]string{principal.Name, Everyone, Authenticated}, principal.Groups...)
	seen := make(map[string]bool)
	var roles []string
	add := func(r string) {
		if !seen[r] {
			seen[r] = true
			roles = append(roles, r)
		}
	}
	for _, r := range principal.Roles() {
		add(r)
	}
	for _, n := range node.Lineage() {
		if n.Owner != "" && n.Owner == principal.Name {
			add(RoleOwner)
		}
		for _, id := range ids {
			for _, r := range n.LocalRoles[id] {
				add(r)
			}
		}
	}
	return roles
}
