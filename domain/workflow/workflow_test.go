package workflow_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/workflow"
)

func TestEngine_InfoStripsCallbacks(t *testing.T) {
	called := false
	def := workflow.Default()
	def.States[1].Data[workflow.CallbackKey] = workflow.Callback(func(ctx context.Context, n *content.Node) error {
		called = true
		return nil
	})

	engine, err := workflow.NewEngine(def)
	require.NoError(t, err)

	node := content.NewNode(content.TypeDocument, "doc", "Doc")
	engine.Initialize(node)
	assert.Equal(t, "private", node.State)

	info, err := engine.Info(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, "private", info.CurrentState.Name)
	require.Len(t, info.Transitions, 1)
	assert.Equal(t, "private_to_public", info.Transitions[0].Name)

	for _, s := range info.States {
		assert.NotContains(t, s.Data, workflow.CallbackKey)
	}
	assert.NotContains(t, info.Transitions[0].ToState.Data, workflow.CallbackKey)

	raw, err := json.Marshal(info)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "callback")

	require.NoError(t, engine.Transition(context.Background(), node, "private_to_public"))
	assert.Equal(t, "public", node.State)
	assert.True(t, called)
}

func TestEngine_Transition_Unavailable(t *testing.T) {
	engine, err := workflow.NewEngine(workflow.Default())
	require.NoError(t, err)

	node := content.NewNode(content.TypeDocument, "doc", "Doc")
	engine.Initialize(node)

	err = engine.Transition(context.Background(), node, "public_to_private")
	require.Error(t, err)
	assert.Equal(t, "private", node.State)
}

func TestNewEngine_RejectsUnknownStates(t *testing.T) {
	def := workflow.Default()
	def.Transitions = append(def.Transitions, workflow.Transition{Name: "x", From: []string{"private"}, To: "archived"})

	_, err := workflow.NewEngine(def)
	require.Error(t, err)
}
