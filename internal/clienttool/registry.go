// Package clienttool executes the subset of tool calls that only the client
// can perform - the ones whose effects live in the local project file
// repository. The backend emits the call and expects the client to close the
// loop with a synthesized result frame.
package clienttool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"agentwire/internal/repo"
)

// RunFunc executes a tool against the file repository and returns the result
// payload for the synthesized tool-result frame.
type RunFunc func(ctx context.Context, r repo.Repository, args map[string]any) (map[string]any, error)

// Tool is one entry in the client-side allow-list.
type Tool struct {
	// Name matches the toolName field of incoming tool-call frames.
	Name string

	// Mutates marks tools whose success must trigger a files-changed
	// notification.
	Mutates bool

	// Run performs the effect.
	Run RunFunc
}

// Validate checks the tool definition.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Run == nil {
		return ErrToolRunNil
	}
	return nil
}

// Registry is the closed allow-list of client-executable tools, keyed by
// name. Unknown names are rejected explicitly rather than silently ignored,
// so the allow-list stays auditable.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// NewCoreRegistry creates a registry preloaded with the file tools.
func NewCoreRegistry() *Registry {
	r := NewRegistry()
	for _, t := range CoreTools() {
		r.MustRegister(t)
	}
	return r
}

// Register adds a tool. Duplicate names are an error.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// MustRegister registers a tool and panics on error. For static registration
// at construction time.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or ErrUnknownTool.
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return tool, nil
}

// Has returns true if name is in the allow-list.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns the sorted allow-list.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArg, key)
	}
	return v, nil
}
