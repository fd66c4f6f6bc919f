package content_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umeboshi2/kotti-jsonapi/domain/content"
)

func TestRebuild_RoundTripsTree(t *testing.T) {
	root, about, team := buildTree(t)
	root.ID, about.ID, team.ID = 1, 2, 3
	news := content.NewNode(content.TypeDocument, "news", "News")
	news.ID = 4
	require.NoError(t, root.AddChild(news))
	root.MoveChild("news", -1)

	var records []content.Record
	root.Walk(func(n *content.Node) { records = append(records, n.Snapshot()) })

	// reverse so parents are not guaranteed to precede children
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	rebuilt, err := content.Rebuild(records)
	require.NoError(t, err)
	assert.Equal(t, []string{"news", "about"}, rebuilt.Keys())
	assert.Equal(t, "/about/team/", rebuilt.Find([]string{"about", "team"}).Path())
}

func TestRebuild_Errors(t *testing.T) {
	_, err := content.Rebuild(nil)
	assert.Error(t, err)

	_, err = content.Rebuild([]content.Record{{ID: 1}, {ID: 2}})
	assert.Error(t, err)

	_, err = content.Rebuild([]content.Record{{ID: 1}, {ID: 2, ParentID: 9, Name: "x"}})
	assert.Error(t, err)
}
