// Package workflow defines content lifecycle states and the transitions
// between them.
package workflow

import (
	"context"
	"fmt"

	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

// CallbackKey is the state data entry that holds a hook and never goes on the wire.
const CallbackKey = "callback"

// Callback runs after a node enters a state.
type Callback func(ctx context.Context, node *content.Node) error

// State is a lifecycle state.
type State struct {
	Name   string
	Title  string
	Public bool
	// Data carries arbitrary presentation hints. A CallbackKey entry is stripped on exposure.
	Data map[string]interface{}
}

// Transition moves a node between two states.
type Transition struct {
	Name  string
	Title string
	From  []string
	To    string
}

// Definition is a complete workflow.
type Definition struct {
	Name        string
	Initial     string
	States      []State
	Transitions []Transition
}

// StateInfo is the wire form of a state.
type StateInfo struct {
	Name  string                 `json:"name"`
	Title string                 `json:"title"`
	Data  map[string]interface{} `json:"data"`
}

// TransitionInfo is the wire form of a transition.
type TransitionInfo struct {
	Name    string    `json:"name"`
	Title   string    `json:"title"`
	ToState StateInfo `json:"to_state"`
}

// Info describes where a node is in its workflow.
type Info struct {
	Name         string           `json:"name"`
	CurrentState StateInfo        `json:"current_state"`
	States       []StateInfo      `json:"states"`
	Transitions  []TransitionInfo `json:"transitions"`
}

// Provider exposes workflow information and transitions for nodes.
type Provider interface {
	Info(ctx context.Context, node *content.Node) (*Info, error)
	Transition(ctx context.Context, node *content.Node, name string) error
	Initialize(node *content.Node)
}

// Engine applies a single Definition to every node.
type Engine struct {
	def *Definition
}

// NewEngine validates def and returns an engine for it.
func NewEngine(def *Definition) (*Engine, error) {
	names := make(map[string]bool, len(def.States))
	for _, s := range def.States {
		names[s.Name] = true
	}
	if !names[def.Initial] {
		return nil, fmt.Errorf("workflow %s: initial state %q is not defined", def.Name, def.Initial)
	}
	for _, tr := range def.Transitions {
		if !names[tr.To] {
			return nil, fmt.Errorf("workflow %s: transition %q targets unknown state %q", def.Name, tr.Name, tr.To)
		}
		for _, from := range tr.From {
			if !names[from] {
				return nil, fmt.Errorf("workflow %s: transition %q starts at unknown state %q", def.Name, tr.Name, from)
			}
		}
	}
	return &Engine{def: def}, nil
}

// PublicStates lists the states readable by anonymous users.
func (e *Engine) PublicStates() []string {
	var out []string
	for _, s := range e.def.States {
		if s.Public {
			out = append(out, s.Name)
		}
	}
	return out
}

// Initialize puts a new node into the initial state.
func (e *Engine) Initialize(node *content.Node) {
	if node.State == "" {
		node.State = e.def.Initial
	}
}

// Info implements Provider.
func (e *Engine) Info(_ context.Context, node *content.Node) (*Info, error) {
	current, ok := e.state(node.State)
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("workflow state %q", node.State))
	}
	info := &Info{
		Name:         e.def.Name,
		CurrentState: current.info(),
		States:       make([]StateInfo, 0, len(e.def.States)),
		Transitions:  []TransitionInfo{},
	}
	for _, s := range e.def.States {
		info.States = append(info.States, s.info())
	}
	for _, tr := range e.available(node.State) {
		to, _ := e.state(tr.To)
		info.Transitions = append(info.Transitions, TransitionInfo{Name: tr.Name, Title: tr.Title, ToState: to.info()})
	}
	return info, nil
}

// Transition implements Provider. The target state's callback, if any,
// runs after the state is set.
func (e *Engine) Transition(ctx context.Context, node *content.Node, name string) error {
	for _, tr := range e.available(node.State) {
		if tr.Name != name {
			continue
		}
		node.State = tr.To
		to, _ := e.state(tr.To)
		if cb, ok := to.Data[CallbackKey].(Callback); ok && cb != nil {
			return cb(ctx, node)
		}
		return nil
	}
	return pkgerrors.NewValidationError(fmt.Sprintf("transition %q is not available from state %q", name, node.State))
}

func (e *Engine) state(name string) (State, bool) {
	for _, s := range e.def.States {
		if s.Name == name {
			return s, true
		}
	}
	return State{}, false
}

func (e *Engine) available(from string) []Transition {
	var out []Transition
	for _, tr := range e.def.Transitions {
		for _, f := range tr.From {
			if f == from {
				out = append(out, tr)
				break
			}
		}
	}
	return out
}

func (s State) info() StateInfo {
	data := make(map[string]interface{}, len(s.Data))
	for k, v := range s.Data {
		if k == CallbackKey {
			continue
		}
		data[k] = v
	}
	return StateInfo{Name: s.Name, Title: s.Title, Data: data}
}

// Default is the two-state private/public workflow.
func Default() *Definition {
	return &Definition{
		Name:    "simple_workflow",
		Initial: "private",
		States: []State{
			{Name: "private", Title: "Private", Data: map[string]interface{}{"css_class": "label-warning"}},
			{Name: "public", Title: "Public", Public: true, Data: map[string]interface{}{"css_class": "label-success"}},
		},
		Transitions: []Transition{
			{Name: "private_to_public", Title: "Make Public", From: []string{"private"}, To: "public"},
			{Name: "public_to_private", Title: "Make Private", From: []string{"public"}, To: "private"},
		},
	}
}
