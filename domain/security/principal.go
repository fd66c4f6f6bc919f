package security

import (
	"context"
	"strings"
	"time"
)

// Principal is a user account known to the site.
type Principal struct {
	Name          string    `json:"name" yaml:"name"`
	Title         string    `json:"title" yaml:"title"`
	Email         string    `json:"email" yaml:"email"`
	Groups        []string  `json:"groups" yaml:"groups"`
	CreationDate  time.Time `json:"creation_date" yaml:"creation_date"`
	LastLoginDate time.Time `json:"last_login_date" yaml:"last_login_date"`
}

// Roles returns the global roles held through the principal's groups.
func (p *Principal) Roles() []string {
	var roles []string
	for _, g := range p.Groups {
		if strings.HasPrefix(g, RolePrefix) {
			roles = append(roles, g)
		}
	}
	return roles
}

// HasGroup reports whether the principal is a member of group.
func (p *Principal) HasGroup(group string) bool {
	for _, g := range p.Groups {
		if g == group {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal stores the authenticated principal in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated principal or nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
