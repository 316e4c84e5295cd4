// internal/workers/results/present-results/templates.go
package presentresults

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"afh-workers/internal/common/placeholder"
)

var ErrTemplateNotFound = errors.New("template not found")

type templateCacheEntry struct {
	template *TemplateDefinition
	loadedAt time.Time
}

// TemplateStore reads response templates from a JSON registry file and keeps
// each one for the configured TTL.
type TemplateStore struct {
	path  string
	ttl   time.Duration
	cache map[string]*templateCacheEntry
	mu    sync.RWMutex
	now   func() time.Time
}

func NewTemplateStore(path string, ttl time.Duration) *TemplateStore {
	return &TemplateStore{
		path:  path,
		ttl:   ttl,
		cache: make(map[string]*templateCacheEntry),
		now:   time.Now,
	}
}

func (s *TemplateStore) Get(id string) (*TemplateDefinition, error) {
	s.mu.RLock()
	if entry, ok := s.cache[id]; ok && s.now().Sub(entry.loadedAt) < s.ttl {
		s.mu.RUnlock()
		return entry.template, nil
	}
	s.mu.RUnlock()

	registryBytes, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var registry struct {
		Templates []TemplateDefinition `json:"templates"`
	}
	if err := json.Unmarshal(registryBytes, &registry); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	for i := range registry.Templates {
		t := registry.Templates[i]
		if t.ID != id {
			continue
		}
		s.mu.Lock()
		s.cache[id] = &templateCacheEntry{template: &t, loadedAt: s.now()}
		s.mu.Unlock()
		return &t, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
}

// Substitute walks the template and replaces placeholders with values from
// data. A string that is exactly one placeholder takes the value with its
// JSON type; placeholders inside longer strings are interpolated as text.
func Substitute(tmpl interface{}, data map[string]interface{}) interface{} {
	switch v := tmpl.(type) {
	case string:
		if path, ok := placeholder.Whole(v); ok {
			val, _ := placeholder.Lookup(data, path)
			return val
		}
		return placeholder.Replace(v, func(path string) string {
			val, ok := placeholder.Lookup(data, path)
			if !ok {
				return ""
			}
			return fmt.Sprint(val)
		})
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, item := range v {
			result[k] = Substitute(item, data)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = Substitute(item, data)
		}
		return result
	default:
		return v
	}
}
