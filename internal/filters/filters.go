// Package filters holds the name-to-function filter registry consulted by
// the interpolator. Registration is explicit; lookups during rendering are
// read-only.
package filters

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Func transforms a running interpolation value. Filters receive the value
// produced by the previous stage plus any call-site arguments and return
// the next running value.
type Func func(value any, args ...any) (any, error)

// Registry is a process-local filter table. One registry belongs to one
// engine; there is no shared global state.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Func
}

// NewRegistry returns a registry pre-populated with the builtin filters.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]Func)}
	for name, fn := range builtins() {
		r.entries[name] = fn
	}
	return r
}

// Register adds or replaces a filter under name.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = fn
}

// Get looks up a filter by name.
func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.entries[name]
	return fn, ok
}

// Names returns the registered filter names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

var titleCaser = cases.Title(language.English)

func builtins() map[string]Func {
	return map[string]Func{
		"upper": func(v any, _ ...any) (any, error) {
			return strings.ToUpper(asString(v)), nil
		},
		"lower": func(v any, _ ...any) (any, error) {
			return strings.ToLower(asString(v)), nil
		},
		"title": func(v any, _ ...any) (any, error) {
			return titleCaser.String(asString(v)), nil
		},
		"trim": func(v any, _ ...any) (any, error) {
			return strings.TrimSpace(asString(v)), nil
		},
		// default substitutes its first argument when the running value is
		// missing or empty.
		"default": func(v any, args ...any) (any, error) {
			if len(args) == 0 {
				return v, nil
			}
			if v == nil || asString(v) == "" {
				return args[0], nil
			}
			return v, nil
		},
		"json": func(v any, _ ...any) (any, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encoding value: %w", err)
			}
			return string(b), nil
		},
		"currency": func(v any, args ...any) (any, error) {
			symbol := "$"
			if len(args) > 0 {
				symbol = asString(args[0])
			}
			switch n := v.(type) {
			case float64:
				return fmt.Sprintf("%s%.2f", symbol, n), nil
			case int:
				return fmt.Sprintf("%s%d.00", symbol, n), nil
			default:
				return nil, fmt.Errorf("currency: not a number: %v", v)
			}
		},
	}
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
