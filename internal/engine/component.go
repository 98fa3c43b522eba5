package engine

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/go-spry/spry/internal/dom"
	"github.com/go-spry/spry/internal/interp"
)

// Method is a component method, invoked from event bindings with its
// execution context and the resolved call-site arguments.
type Method func(c *Ctx, args ...any) any

// Computed derives a value from instance data on every read.
type Computed func(c *Ctx) any

// Hook is a lifecycle callback.
type Hook func(c *Ctx)

// Definition describes a component registered under a tag name. It is
// immutable after registration.
type Definition struct {
	Template string
	// Data produces the instance's initial data record. It runs once per
	// instance, before created, with no execution context.
	Data     func() map[string]any
	Methods  map[string]Method
	Computed map[string]Computed
	Created  Hook
	Mounted  Hook
	Updated  Hook
}

// registration pairs a definition with its master fragment, parsed once.
type registration struct {
	name   string
	def    Definition
	master *html.Node
}

// Ctx is the method/computed execution context of one instance (or of the
// root render when inst is nil). Unqualified reads and writes resolve
// against the owning data record through the scope chain.
type Ctx struct {
	engine *Engine
	inst   *Instance
	scope  *Scope
}

// Get resolves a dotted path in the owning data context, returning nil
// when unresolved.
func (c *Ctx) Get(path string) any {
	v, _ := c.scope.Resolve(path)
	return v
}

// Lookup resolves a dotted path, reporting whether it was found.
func (c *Ctx) Lookup(path string) (any, bool) {
	return c.scope.Resolve(path)
}

// Set writes a dotted path into the owning data context. For component
// instances this is a reactive write: the instance re-renders before Set
// returns.
func (c *Ctx) Set(path string, value any) {
	c.scope.SetPath(path, value)
}

// Emit dispatches a named event with an arbitrary payload from the
// instance's host node, propagating outward through the tree.
func (c *Ctx) Emit(event string, payload any) {
	node := c.El()
	if node == nil {
		return
	}
	c.engine.doc.Fire(node, event, payload)
}

// ForceUpdate re-renders unconditionally: the instance's subtree, or the
// whole root when called from the root context.
func (c *Ctx) ForceUpdate() {
	if c.inst != nil {
		c.inst.render(false)
		return
	}
	if c.engine.rootData != nil {
		_ = c.engine.ApplyData(c.engine.rootData)
	}
}

// El returns the instance's host node (the root render target for the
// root context).
func (c *Ctx) El() *html.Node {
	if c.inst != nil {
		return c.inst.host
	}
	return c.engine.host
}

// Instance is a live occurrence of a registered component at one tree
// location.
type Instance struct {
	engine    *Engine
	reg       *registration
	host      *html.Node
	rec       *Reactive
	scope     *Scope
	ctx       *Ctx
	slot      *html.Node // captured projected content, captured exactly once
	mounted   bool
	destroyed bool
}

// RegisterComponent registers a definition under a case-insensitive tag
// name. A definition without a template is rejected.
func (e *Engine) RegisterComponent(name string, def Definition) error {
	tag := strings.ToLower(strings.TrimSpace(name))
	if tag == "" {
		err := fmt.Errorf("component registration: empty tag name")
		e.logger.Error(e.bg, err, "rejecting component registration")
		return err
	}
	if def.Template == "" {
		err := fmt.Errorf("component %q: definition has no template", tag)
		e.logger.Error(e.bg, err, "rejecting component registration")
		return err
	}
	master, err := dom.ParseFragment(def.Template)
	if err != nil {
		err = fmt.Errorf("component %q: parsing template: %w", tag, err)
		e.logger.Error(e.bg, err, "rejecting component registration")
		return err
	}
	e.components[tag] = &registration{name: tag, def: def, master: master}
	e.trace("component registered", "tag", tag)
	return nil
}

// mountComponent resolves a recognized component tag into a fresh
// instance: captures slot content once, merges global/initial/prop data,
// builds the execution context and drives created -> render -> (deferred)
// mounted.
func (e *Engine) mountComponent(host *html.Node, reg *registration, parent *Scope) {
	inst := &Instance{engine: e, reg: reg, host: host}

	// Capture projected content by moving it out of the host; re-renders
	// reuse this capture and never re-read the host's children.
	inst.slot = &html.Node{Type: html.DocumentNode}
	dom.MoveChildren(host, inst.slot)

	var initial map[string]any
	if reg.def.Data != nil {
		initial = reg.def.Data()
	}

	props := make(map[string]any, len(host.Attr))
	for _, a := range host.Attr {
		if interp.HasMarkers(a.Val) {
			props[a.Key] = e.ip.InterpolatePlain(a.Val, parent)
		} else {
			props[a.Key] = a.Val
		}
	}

	// Merge order, later wins: global data, initial data, props.
	merged := make(map[string]any)
	for k, v := range e.global {
		merged[k] = v
	}
	for k, v := range initial {
		merged[k] = v
	}
	for k, v := range props {
		merged[k] = v
	}
	merged["$el"] = host

	inst.rec = newReactive(merged, reg.def.Computed)
	inst.scope = newRecordScope(inst.rec)
	inst.ctx = &Ctx{engine: e, inst: inst, scope: inst.scope}
	inst.rec.bind(inst.ctx, func(key string) {
		e.trace("reactive write", "component", reg.name, "key", key)
		inst.render(false)
	})

	e.instances[host] = inst

	if reg.def.Created != nil {
		reg.def.Created(inst.ctx)
	}
	e.trace("component created", "tag", reg.name)

	inst.render(true)
	e.scheduleMount(inst)
}

// render rebuilds the instance's subtree from its master template:
// listeners under the host are detached, descendant instances destroyed,
// prior content cleared, and a fresh clone processed against the current
// record. Slot placeholders receive a copy of the captured projection.
func (inst *Instance) render(initial bool) {
	if inst.destroyed {
		return
	}
	e := inst.engine
	e.enterRender()
	defer e.exitRender()

	e.bindings.DetachWithin(inst.host)
	e.destroyWithin(inst.host)
	dom.ClearChildren(inst.host)

	frag := dom.Clone(inst.reg.master)
	e.processChildren(frag, inst.scope, inst)
	dom.MoveChildren(frag, inst.host)

	e.trace("component rendered", "tag", inst.reg.name, "initial", initial)

	if !initial && inst.mounted && inst.reg.def.Updated != nil {
		inst.reg.def.Updated(inst.ctx)
	}
}

// substituteSlot replaces a <slot> placeholder with a copy of the captured
// projected content. The projection itself is not a directive target.
func (e *Engine) substituteSlot(placeholder *html.Node, inst *Instance) {
	content := dom.Clone(inst.slot)
	for content.FirstChild != nil {
		child := content.FirstChild
		content.RemoveChild(child)
		dom.InsertBefore(placeholder, child)
	}
	dom.Detach(placeholder)
}

// destroyWithin tears down every instance whose host sits strictly below
// root. Destroyed instances never re-render; their listeners fall with the
// subtree's binding records.
func (e *Engine) destroyWithin(root *html.Node) {
	for node, inst := range e.instances {
		if node != root && dom.Descends(root, node) {
			inst.destroyed = true
			delete(e.instances, node)
			e.trace("component destroyed", "tag", inst.reg.name)
		}
	}
}

// scheduleMount queues the one-shot deferred mounted check. The queue is
// flushed once the outermost render pass completes, so the host document
// has had the chance to receive the subtree.
func (e *Engine) scheduleMount(inst *Instance) {
	e.pendingMounts = append(e.pendingMounts, inst)
}

func (e *Engine) flushMounts() {
	for len(e.pendingMounts) > 0 {
		pending := e.pendingMounts
		e.pendingMounts = nil
		for _, inst := range pending {
			if inst.destroyed || inst.mounted {
				continue
			}
			if !e.doc.Contains(inst.host) {
				// Never attached: mounted is skipped for good.
				e.trace("mount skipped, host not attached", "tag", inst.reg.name)
				continue
			}
			inst.mounted = true
			e.trace("component mounted", "tag", inst.reg.name)
			if inst.reg.def.Mounted != nil {
				inst.reg.def.Mounted(inst.ctx)
			}
		}
	}
}
