package forms

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"afh-workers/internal/models"
)

// Registry holds the layouts by form type.
type Registry struct {
	mu      sync.RWMutex
	layouts map[models.FormType]*Layout
}

// registryFile is the on-disk shape of a layout registry.
type registryFile struct {
	Version string    `json:"version"`
	Layouts []*Layout `json:"layouts"`
}

// NewRegistry returns a registry seeded with the built-in layouts.
func NewRegistry() *Registry {
	r := &Registry{layouts: make(map[models.FormType]*Layout)}
	for _, l := range BuiltinLayouts() {
		r.layouts[l.FormType] = l
	}
	return r
}

// LoadRegistry returns the built-in layouts overlaid with the layouts in
// path. An empty path yields the built-ins alone.
func LoadRegistry(path string) (*Registry, error) {
	r := NewRegistry()
	if path == "" {
		return r, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout registry: %w", err)
	}
	var file registryFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse layout registry %s: %w", path, err)
	}
	for _, l := range file.Layouts {
		if err := r.Register(l); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces a layout after validating it.
func (r *Registry) Register(l *Layout) error {
	if l == nil {
		return fmt.Errorf("%w: nil layout", ErrInvalidLayout)
	}
	if err := l.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.layouts[l.FormType] = l
	r.mu.Unlock()
	return nil
}

// Get returns the layout for formType.
func (r *Registry) Get(formType models.FormType) (*Layout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.layouts[formType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormType, formType)
	}
	return l, nil
}

// Types lists the registered form types in sorted order.
func (r *Registry) Types() []models.FormType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.FormType, 0, len(r.layouts))
	for t := range r.layouts {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
