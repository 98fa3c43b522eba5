// Package diag collects recoverable render diagnostics. Missing values,
// failed filters and unresolvable handlers degrade gracefully; the
// collector keeps a record of them so callers and the preview server can
// surface what a render swallowed.
package diag

import (
	"fmt"
	"html"
	"sync"
	"time"
)

// Severity classifies a render diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// RenderError describes one recoverable condition hit during a render
// pass.
type RenderError struct {
	Component string // component tag, empty for the root
	Directive string // directive being applied, if any
	Detail    string
	Severity  Severity
	Timestamp time.Time
}

// Error implements the error interface.
func (re *RenderError) Error() string {
	scope := re.Component
	if scope == "" {
		scope = "root"
	}
	if re.Directive != "" {
		return fmt.Sprintf("%s: %s: %s: %s", scope, re.Directive, re.Severity, re.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", scope, re.Severity, re.Detail)
}

// Collector accumulates render diagnostics across passes.
type Collector struct {
	mu     sync.RWMutex
	errors []RenderError
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{errors: make([]RenderError, 0)}
}

// Add records a diagnostic, stamping it with the current time.
func (c *Collector) Add(re RenderError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	re.Timestamp = time.Now()
	c.errors = append(c.errors, re)
}

// Errors returns a copy of all collected diagnostics.
func (c *Collector) Errors() []RenderError {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]RenderError, len(c.errors))
	copy(out, c.errors)
	return out
}

// ByComponent returns the diagnostics recorded for one component tag.
func (c *Collector) ByComponent(component string) []RenderError {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []RenderError
	for _, re := range c.errors {
		if re.Component == component {
			out = append(out, re)
		}
	}
	return out
}

// HasErrors reports whether anything was collected.
func (c *Collector) HasErrors() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.errors) > 0
}

// Clear drops all collected diagnostics.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = c.errors[:0]
}

// ErrorNotice renders the visible error fragment that replaces root
// content when a data load fails.
func ErrorNotice(err error) string {
	return fmt.Sprintf(
		`<div class="spry-error" style="padding:12px;border:1px solid #c00;color:#c00;font-family:monospace;">%s</div>`,
		html.EscapeString(err.Error()),
	)
}
