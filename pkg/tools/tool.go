// Package tools defines the contract between the agent pipeline and its
// side-effecting capabilities, plus the registry the executor prompt is
// rendered from.
package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Descriptor is the prompt-facing description of a tool.
type Descriptor struct {
	Name           string
	Description    string
	ArgumentSchema string
}

// Tool executes one capability. Invoke returns a human-readable result that
// is fed back into the planner as a tool message.
type Tool interface {
	Descriptor() Descriptor
	Invoke(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry is an ordered, concurrency-safe tool collection. Registration
// order is the order tools appear in prompts.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Descriptor().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptors := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		descriptors = append(descriptors, r.tools[name].Descriptor())
	}
	return descriptors
}

// Invoke dispatches by name. An unknown tool is a normal (non-transient)
// error so the planner can explain it instead of the turn being retried.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	return t.Invoke(ctx, args)
}

// RenderCatalog formats tool descriptors the way the planning and execution
// prompts list them.
func RenderCatalog(descriptors []Descriptor) string {
	var b strings.Builder
	for _, d := range descriptors {
		fmt.Fprintf(&b, "- %s: %s\n  args: %s\n", d.Name, d.Description, d.ArgumentSchema)
	}
	return b.String()
}

// StringArg reads a string argument, tolerating absence.
func StringArg(args map[string]interface{}, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}
