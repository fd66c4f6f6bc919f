package security_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/security"
)

func TestPolicy_HasPermission(t *testing.T) {
	policy := security.NewPolicy([]string{"public"})

	root := content.NewNode(content.TypeDocument, "", "Root")
	root.State = "public"
	private := content.NewNode(content.TypeDocument, "private", "Private")
	private.State = "private"
	_ = root.AddChild(private)

	anon := context.Background()
	editor := security.WithPrincipal(anon, &security.Principal{Name: "ed", Groups: []string{security.RoleEditor}})
	admin := security.WithPrincipal(anon, &security.Principal{Name: "admin", Groups: []string{security.RoleAdmin}})
	bob := security.WithPrincipal(anon, &security.Principal{Name: "bob"})

	t.Run("Should let anyone view public content", func(t *testing.T) {
		assert.True(t, policy.HasPermission(anon, security.PermView, root))
		assert.False(t, policy.HasPermission(anon, security.PermView, private))
		assert.False(t, policy.HasPermission(anon, security.PermEdit, root))
	})

	t.Run("Should grant global role permissions", func(t *testing.T) {
		assert.True(t, policy.HasPermission(editor, security.PermEdit, private))
		assert.False(t, policy.HasPermission(editor, security.PermAdmin, root))
		assert.True(t, policy.HasPermission(admin, security.PermAdmin, root))
	})

	t.Run("Should inherit local roles from ancestors", func(t *testing.T) {
		assert.False(t, policy.HasPermission(bob, security.PermView, private))
		root.LocalRoles["bob"] = []string{security.RoleViewer}
		assert.True(t, policy.HasPermission(bob, security.PermView, private))
		assert.False(t, policy.HasPermission(bob, security.PermEdit, private))
	})

	t.Run("Should treat the owner as role:owner", func(t *testing.T) {
		private.Owner = "bob"
		assert.True(t, policy.HasPermission(bob, security.PermDelete, private))
	})

	t.Run("Should deny on nil node", func(t *testing.T) {
		assert.False(t, policy.HasPermission(admin, security.PermView, nil))
	})
}
