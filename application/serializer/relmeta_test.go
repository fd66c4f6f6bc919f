package serializer_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/serializer"
	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/links"
	"github.com/umeboshi2/kotti-jsonapi/domain/security"
	"github.com/umeboshi2/kotti-jsonapi/domain/workflow"
)

type MockWorkflow struct {
	mock.Mock
}

func (m *MockWorkflow) Info(ctx context.Context, node *content.Node) (*workflow.Info, error) {
	args := m.Called(ctx, node)
	if fn, ok := args.Get(0).(func()); ok {
		fn()
	}
	info, _ := args.Get(0).(*workflow.Info)
	return info, args.Error(1)
}

func (m *MockWorkflow) Transition(ctx context.Context, node *content.Node, name string) error {
	return m.Called(ctx, node, name).Error(0)
}

func (m *MockWorkflow) Initialize(node *content.Node) {
	m.Called(node)
}

func TestGatherer_Flags(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	_, about, _ := newTree(t)
	g := newGatherer(t, reg, allowAll, newEngine(t))

	t.Run("Should gather only the requested groups", func(t *testing.T) {
		meta := g.Gather(ctx, newRequest("/about/"), about, serializer.Flags{TypeInfo: true})
		assert.Len(t, meta, 1)
		assert.Contains(t, meta, "type_info")
	})

	t.Run("Should gather every extra key", func(t *testing.T) {
		meta := g.Gather(ctx, newRequest("/about/"), about, serializer.AllFlags())
		for _, key := range []string{
			"current_user", "type_info", "has_permission", "navitems",
			"application_url", "site_title", "root_url", "workflow",
			"request_url", "api_url", "edit_links", "link_parent",
			"selectable_default_views", "content_type_factories", "upload_url",
			"site_setup_links", "navigate_url", "logout_url",
			"has_location_context", "view_needed", "breadcrumbs", "lineage",
			"paths", "contents_buttons",
		} {
			assert.Contains(t, meta, key)
		}
		assert.Equal(t, "http://example.com", meta["application_url"])
		assert.Equal(t, "http://example.com/", meta["root_url"])
		assert.Equal(t, "http://example.com/about/", meta["api_url"])
		assert.Equal(t, "http://example.com/about/upload", meta["upload_url"])
		assert.Equal(t, "http://example.com/about/@@navigate", meta["navigate_url"])
		assert.Equal(t, "http://example.com/@@logout?came_from=http%3A%2F%2Fexample.com%2Fabout%2F%40%40json", meta["logout_url"])
	})
}

func TestGatherer_CurrentUser(t *testing.T) {
	reg := newRegistry(t)
	_, about, _ := newTree(t)
	g := newGatherer(t, reg, allowAll, newEngine(t))
	flags := serializer.Flags{User: true}

	t.Run("Should report anonymous users as null", func(t *testing.T) {
		meta := g.Gather(context.Background(), newRequest("/about/"), about, flags)
		require.Contains(t, meta, "current_user")
		assert.Nil(t, meta["current_user"])
	})

	t.Run("Should describe the authenticated principal", func(t *testing.T) {
		ctx := security.WithPrincipal(context.Background(), &security.Principal{
			Name:         "bob",
			Title:        "Bob",
			Email:        " Bob@Example.com ",
			Groups:       []string{security.RoleEditor},
			CreationDate: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		})
		meta := g.Gather(ctx, newRequest("/about/"), about, flags)
		user := meta["current_user"].(map[string]interface{})
		assert.Equal(t, "bob", user["name"])
		assert.Equal(t, "2024-03-01T12:00:00Z", user["creation_date"])
		assert.Nil(t, user["last_login_date"])
		// md5("bob@example.com")
		assert.Equal(t, "https://secure.gravatar.com/avatar/4b9bb80620f03eb3719e0a061c14283d?s=", user["avatar_prefix"])
		assert.Equal(t, "http://example.com/@@prefs", user["prefs_url"])
	})
}

func TestGatherer_Permissions(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	root, about, _ := newTree(t)
	editorOnly := checkerFunc(func(p string, n *content.Node) bool {
		return p != security.PermAdmin && p != security.PermStateChange
	})
	g := newGatherer(t, reg, editorOnly, newEngine(t))

	meta := g.Gather(ctx, newRequest("/about/"), about, serializer.Flags{Permissions: true})
	assert.Equal(t, map[string]bool{
		"add":          true,
		"edit":         true,
		"state_change": false,
		"admin":        false,
	}, meta["has_permission"])

	rootAdmin := checkerFunc(func(p string, n *content.Node) bool { return n == root })
	g = newGatherer(t, reg, rootAdmin, newEngine(t))
	meta = g.Gather(ctx, newRequest("/about/"), about, serializer.Flags{Permissions: true})
	assert.True(t, meta["has_permission"].(map[string]bool)["admin"])
	assert.False(t, meta["has_permission"].(map[string]bool)["edit"])
}

func TestGatherer_Navigation(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	_, _, team := newTree(t)
	hidePrivate := checkerFunc(func(_ string, n *content.Node) bool { return n.State != "private" })
	g := newGatherer(t, reg, hidePrivate, newEngine(t))

	meta := g.Gather(ctx, newRequest("/about/team/"), team, serializer.AllFlags())

	raw := toJSON(t, meta["navitems"])
	require.Len(t, raw, 1)
	assert.Equal(t, "/about/", raw[0]["path"])
	assert.Equal(t, true, raw[0]["inside"])

	crumbs := toJSON(t, meta["breadcrumbs"])
	require.Len(t, crumbs, 3)
	assert.Equal(t, "/", crumbs[0]["path"])
	assert.Equal(t, "/about/team/", crumbs[2]["path"])

	lineage := toJSON(t, meta["lineage"])
	require.Len(t, lineage, 3)
	assert.Equal(t, "/about/team/", lineage[0]["path"])
	assert.Equal(t, "Welcome", lineage[2]["title"])

	paths := meta["paths"].(map[string]interface{})
	assert.Equal(t, "/about/team/", paths["this_path"])
	assert.Equal(t, []string{}, paths["childnames"])
}

func TestGatherer_Links(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	_, about, _ := newTree(t)
	lr := links.DefaultRegistry()
	lr.AddSiteSetupLinks(
		links.ActionLink{Name: "setup-users", Title: "Users again", Permission: security.PermAdmin},
		links.ActionLink{Name: "setup-settings", Title: "Settings", Permission: security.PermAdmin},
	)
	noDelete := checkerFunc(func(p string, _ *content.Node) bool { return p != security.PermDelete })
	g := serializer.NewGatherer(reg, noDelete, newEngine(t), lr, staticTitle("My Site"), zap.NewNop())

	meta := g.Gather(ctx, newRequest("/about/"), about, serializer.AllFlags())

	t.Run("Should drop setup links with a repeated URL", func(t *testing.T) {
		setup := meta["site_setup_links"].([]links.Info)
		require.Len(t, setup, 2)
		assert.Equal(t, "User Management", setup[0].Title)
		assert.Equal(t, "http://example.com/@@setup-users", setup[0].URL)
		assert.Equal(t, "setup-settings", setup[1].Name)
	})

	t.Run("Should split edit links from the dropdown", func(t *testing.T) {
		edit := meta["edit_links"].([]links.Info)
		require.Len(t, edit, 3)
		assert.Equal(t, "/about", edit[0].Resource)
		assert.Equal(t, "contents", edit[0].Command)

		dropdown := meta["link_parent"].([]links.Info)
		names := make([]string, 0, len(dropdown))
		for _, l := range dropdown {
			names = append(names, l.Name)
		}
		assert.Equal(t, []string{"copy", "cut", "paste", "rename"}, names)
	})

	t.Run("Should list addable types", func(t *testing.T) {
		raw := toJSON(t, meta["content_type_factories"])
		require.NotEmpty(t, raw)
		assert.Equal(t, "http://example.com/about/add_document", raw[0]["url"])
		assert.Equal(t, "/about", raw[0]["resource"])
		assert.Equal(t, "add_document", raw[0]["command"])
	})

	t.Run("Should mark the current default view", func(t *testing.T) {
		views := toJSON(t, meta["selectable_default_views"])
		require.Len(t, views, 2)
		assert.Equal(t, true, views[0]["is_current"])
		assert.Equal(t, "folder_view", views[1]["name"])
	})
}

func TestGatherer_PartFailures(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	_, about, _ := newTree(t)

	t.Run("Should omit a part that returns an error", func(t *testing.T) {
		wf := new(MockWorkflow)
		wf.On("Info", mock.Anything, about).Return(nil, errors.New("boom"))
		g := newGatherer(t, reg, allowAll, wf)

		meta := g.Gather(ctx, newRequest("/about/"), about, serializer.AllFlags())
		assert.NotContains(t, meta, "workflow")
		assert.Contains(t, meta, "navitems")
		assert.Contains(t, meta, "breadcrumbs")
		wf.AssertExpectations(t)
	})

	t.Run("Should omit a part that panics", func(t *testing.T) {
		wf := new(MockWorkflow)
		wf.On("Info", mock.Anything, about).Return(func() { panic("kaboom") }, nil)
		g := newGatherer(t, reg, allowAll, wf)

		meta := g.Gather(ctx, newRequest("/about/"), about, serializer.AllFlags())
		assert.NotContains(t, meta, "workflow")
		assert.Contains(t, meta, "contents_buttons")
	})

	t.Run("Should omit type info for an unregistered type", func(t *testing.T) {
		odd := content.NewNode("Event", "party", "Party")
		require.NoError(t, about.AddChild(odd))
		g := newGatherer(t, reg, allowAll, newEngine(t))

		meta := g.Gather(ctx, newRequest("/about/party/"), odd, serializer.Flags{TypeInfo: true, Permissions: true})
		assert.NotContains(t, meta, "type_info")
		assert.Contains(t, meta, "has_permission")
	})
}

// toJSON round-trips v so typed slices can be inspected as plain maps.
func toJSON(t *testing.T, v interface{}) []map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
