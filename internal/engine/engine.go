// Package engine is the render core: it walks a cloned template fragment,
// applies directives against a scope-chained data context, resolves
// registered component tags into reactive instances, and keeps every
// instance's subtree synchronized with its data record. All rendering is
// synchronous and single-threaded; an Engine must be driven from one
// goroutine.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/html"

	"github.com/go-spry/spry/internal/diag"
	"github.com/go-spry/spry/internal/dom"
	"github.com/go-spry/spry/internal/filters"
	"github.com/go-spry/spry/internal/interp"
	"github.com/go-spry/spry/internal/keypath"
	"github.com/go-spry/spry/internal/logging"
)

// Engine renders a master template into a host node and owns all state
// that was process-global in looser designs: the component and filter
// registries, global data, and the binding registry. Independent engines
// share nothing.
type Engine struct {
	doc  *dom.Document
	host *html.Node

	masterSrc string
	master    *html.Node

	components map[string]*registration
	filters    *filters.Registry
	global     map[string]any

	bindings  *BindingRegistry
	instances map[*html.Node]*Instance

	ip        *interp.Interpolator
	logger    logging.Logger
	collector *diag.Collector
	client    *http.Client
	debug     bool
	bg        context.Context

	rootData  map[string]any
	rootScope *Scope

	renderDepth   int
	flushing      bool
	pendingMounts []*Instance
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger replaces the default logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		e.logger = l.WithComponent("engine")
		e.ip.Logger = l.WithComponent("interp")
	}
}

// WithDocument renders into an externally-owned document.
func WithDocument(d *dom.Document) Option {
	return func(e *Engine) { e.doc = d; e.host = d.Root() }
}

// WithHost renders into a specific node of the document.
func WithHost(n *html.Node) Option {
	return func(e *Engine) { e.host = n }
}

// WithHTTPClient replaces the client used by Load.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

// WithPlaceholder sets the text rendered for missing interpolation values.
func WithPlaceholder(s string) Option {
	return func(e *Engine) { e.ip.Placeholder = s }
}

// New creates an engine with its own document, a builtin filter registry
// and no registered components.
func New(opts ...Option) *Engine {
	logger := logging.NewLogger(nil)
	reg := filters.NewRegistry()
	e := &Engine{
		components: make(map[string]*registration),
		filters:    reg,
		global:     make(map[string]any),
		instances:  make(map[*html.Node]*Instance),
		ip:         interp.New(reg, logger),
		logger:     logger.WithComponent("engine"),
		collector:  diag.NewCollector(),
		client:     &http.Client{Timeout: 15 * time.Second},
		bg:         context.Background(),
	}
	e.doc = dom.NewDocument()
	e.host = e.doc.Root()
	for _, opt := range opts {
		opt(e)
	}
	e.bindings = newBindingRegistry(e.doc)
	return e
}

// SetTemplate parses and stores the master template. The parsed fragment
// is never mutated; every apply clones it.
func (e *Engine) SetTemplate(src string) error {
	master, err := dom.ParseFragment(src)
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}
	e.masterSrc = src
	e.master = master
	return nil
}

// Template returns the master template source.
func (e *Engine) Template() string { return e.masterSrc }

// RegisterFilter adds a named filter to this engine's registry.
func (e *Engine) RegisterFilter(name string, fn filters.Func) {
	e.filters.Register(name, fn)
}

// SetGlobal merges a key into the global data record, visible beneath
// every context at lowest priority. Takes effect on the next apply.
func (e *Engine) SetGlobal(key string, value any) {
	keypath.Set(e.global, key, value)
}

// SetDebug toggles verbose render tracing. Tracing never alters output.
func (e *Engine) SetDebug(on bool) { e.debug = on }

// SetPlaceholder configures the text rendered for missing values.
func (e *Engine) SetPlaceholder(s string) { e.ip.Placeholder = s }

// Document returns the engine's document, for driving synthetic events.
func (e *Engine) Document() *dom.Document { return e.doc }

// Host returns the root render target.
func (e *Engine) Host() *html.Node { return e.host }

// Diagnostics returns the render diagnostics collector.
func (e *Engine) Diagnostics() *diag.Collector { return e.collector }

// HTML serializes the host's current content.
func (e *Engine) HTML() string { return dom.RenderChildren(e.host) }

// ApplyData re-renders the whole root from the original master template
// against data. Prior content, its listener records and its component
// instances are discarded first. Structural failures (no template, nil
// data) abort the operation and are logged as well as returned.
func (e *Engine) ApplyData(data map[string]any) error {
	if e.master == nil {
		err := fmt.Errorf("apply: no template set")
		e.logger.Error(e.bg, err, "apply aborted")
		return err
	}
	if data == nil {
		err := fmt.Errorf("apply: data must be a record, got nil")
		e.logger.Error(e.bg, err, "apply aborted")
		return err
	}

	e.enterRender()
	defer e.exitRender()

	e.cleanupRoot()
	e.rootData = data
	globals := newVarsScope(nil, e.global)
	e.rootScope = newRootScope(globals, data)

	clone := dom.Clone(e.master)
	e.processChildren(clone, e.rootScope, nil)
	dom.MoveChildren(clone, e.host)

	e.trace("apply complete", "listeners", e.bindings.Count(), "instances", len(e.instances))
	return nil
}

// Load fetches JSON from location and applies it as data. On any failure
// the root content is replaced with a visible error notice, no listeners
// are left attached, and the failure is returned to the caller.
func (e *Engine) Load(ctx context.Context, location string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return e.failLoad(fmt.Errorf("load %s: %w", location, err))
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return e.failLoad(fmt.Errorf("load %s: %w", location, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return e.failLoad(fmt.Errorf("load %s: unexpected status %s", location, resp.Status))
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return e.failLoad(fmt.Errorf("load %s: decoding JSON: %w", location, err))
	}
	if data == nil {
		// "null" decodes without error but is not a record.
		return e.failLoad(fmt.Errorf("load %s: document is not a record", location))
	}
	e.trace("data loaded", "location", location, "keys", len(data))
	if err := e.ApplyData(data); err != nil {
		return e.failLoad(err)
	}
	return nil
}

// failLoad performs the same cleanup as an apply pass before surfacing the
// error in the host content.
func (e *Engine) failLoad(err error) error {
	e.logger.Error(e.bg, err, "data load failed")
	e.collector.Add(diag.RenderError{Detail: err.Error(), Severity: diag.SeverityError})
	e.cleanupRoot()
	_ = dom.SetHTML(e.host, diag.ErrorNotice(err))
	return err
}

// cleanupRoot detaches every listener under the host, destroys all
// instances and clears prior content.
func (e *Engine) cleanupRoot() {
	e.bindings.DetachWithin(e.host)
	for node, inst := range e.instances {
		inst.destroyed = true
		delete(e.instances, node)
	}
	e.pendingMounts = nil
	dom.ClearChildren(e.host)
}

func (e *Engine) enterRender() { e.renderDepth++ }

// exitRender flushes the deferred mounted checks once the outermost
// render pass has completed and the produced subtree is in the document.
func (e *Engine) exitRender() {
	e.renderDepth--
	if e.renderDepth == 0 && !e.flushing {
		e.flushing = true
		e.flushMounts()
		e.flushing = false
	}
}

func (e *Engine) trace(msg string, fields ...any) {
	if e.debug {
		e.logger.Debug(e.bg, msg, fields...)
	}
}

// warn logs a recoverable render condition and records it for callers.
func (e *Engine) warn(component, directive, msg string, fields ...any) {
	e.logger.Warn(e.bg, nil, msg, append(fields, "component", component, "directive", directive)...)
	e.collector.Add(diag.RenderError{
		Component: component,
		Directive: directive,
		Detail:    msg,
		Severity:  diag.SeverityWarning,
	})
}
