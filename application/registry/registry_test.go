package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umeboshi2/kotti-jsonapi/application/registry"
	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/schema"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	ctx := context.Background()
	r := registry.New()
	require.NoError(t, registry.RegisterBuiltins(r))

	summary := schema.MustNew("summary", schema.Field{Name: "title", Type: schema.TypeString})
	docType, err := r.ContentFactory(content.TypeDocument)
	require.NoError(t, err)
	require.NoError(t, r.Register(docType, registry.Static(summary), "summary"))

	node := content.NewNode(content.TypeDocument, "doc", "Doc")

	t.Run("Should resolve the default schema", func(t *testing.T) {
		s, err := r.Lookup(ctx, node, "")
		require.NoError(t, err)
		assert.Contains(t, s.Names(), "body")
	})

	t.Run("Should resolve a named variant", func(t *testing.T) {
		s, err := r.Lookup(ctx, node, "summary")
		require.NoError(t, err)
		assert.Equal(t, []string{"title"}, s.Names())
	})

	t.Run("Should fail with a lookup error for unknown pairs", func(t *testing.T) {
		_, err := r.Lookup(ctx, node, "missing")
		require.Error(t, err)
		assert.True(t, errors.Is(err, registry.ErrSchemaNotFound))
		assert.True(t, pkgerrors.IsNotFound(err))

		_, err = r.LookupType(ctx, "Event", "")
		assert.True(t, errors.Is(err, registry.ErrSchemaNotFound))
	})

	t.Run("Should list keys", func(t *testing.T) {
		assert.Contains(t, r.Keys(), "Document/default")
		assert.Contains(t, r.Keys(), "Document/summary")
		assert.Contains(t, r.Keys(), "Image/default")
	})
}

func TestRegistry_ContentFactory(t *testing.T) {
	r := registry.New()
	require.NoError(t, registry.RegisterBuiltins(r))

	ti, err := r.ContentFactory(content.TypeImage)
	require.NoError(t, err)
	assert.Equal(t, []string{content.TypeDocument}, ti.AddableTo)

	_, err = r.ContentFactory("Event")
	assert.True(t, errors.Is(err, registry.ErrContentTypeNotFound))
	assert.Len(t, r.Types(), 4)
}

func TestRegistry_Seal(t *testing.T) {
	r := registry.New()
	r.Seal()

	err := r.Register(content.TypeInfo{Name: "Event"}, registry.Static(schema.Content()), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrSealed))

	_, err = r.ContentFactory("Event")
	assert.Error(t, err)
}

func TestRegistry_FactoryReceivesNode(t *testing.T) {
	r := registry.New()
	var seen *content.Node
	factory := func(_ context.Context, n *content.Node) *schema.Schema {
		seen = n
		return schema.Content()
	}
	require.NoError(t, r.Register(content.TypeInfo{Name: "Event"}, factory, ""))

	node := content.NewNode("Event", "party", "Party")
	_, err := r.Lookup(context.Background(), node, "")
	require.NoError(t, err)
	assert.Equal(t, node, seen)

	_, err = r.LookupType(context.Background(), "Event", "")
	require.NoError(t, err)
	assert.Nil(t, seen)
}
