package engine

import (
	"strings"

	"github.com/go-spry/spry/internal/keypath"
)

// reservedPrefix marks internal keys whose writes never trigger a
// re-render ($el, loop indices and the like).
const reservedPrefix = "$"

// Reactive wraps a component instance's data record behind an accessor
// layer: every write to a non-reserved key funnels through a single notify
// hook, and reads of declared computed names invoke the derivation
// function instead of returning a stored value. Computed results are
// recomputed on every access; there is no memoization.
type Reactive struct {
	data     map[string]any
	computed map[string]Computed
	ctx      *Ctx
	onWrite  func(key string)
}

func newReactive(data map[string]any, computed map[string]Computed) *Reactive {
	if data == nil {
		data = make(map[string]any)
	}
	return &Reactive{data: data, computed: computed}
}

// bind wires the record to its instance context and write hook. Writes
// before bind (initial merge) never notify.
func (r *Reactive) bind(ctx *Ctx, onWrite func(key string)) {
	r.ctx = ctx
	r.onWrite = onWrite
}

// Has reports whether key names a stored value or a computed property.
func (r *Reactive) Has(key string) bool {
	if _, ok := r.computed[key]; ok {
		return true
	}
	_, ok := r.data[key]
	return ok
}

// Get reads key, routing declared computed names through their derivation
// function.
func (r *Reactive) Get(key string) (any, bool) {
	if fn, ok := r.computed[key]; ok {
		return fn(r.ctx), true
	}
	v, ok := r.data[key]
	return v, ok
}

// Set writes key and, for non-reserved keys, triggers the owning
// instance's re-render synchronously before returning.
func (r *Reactive) Set(key string, value any) {
	r.data[key] = value
	r.notify(key)
}

// SetPath writes a dotted path into the record and notifies for the
// path's head key.
func (r *Reactive) SetPath(path string, value any) {
	if !strings.Contains(path, ".") {
		r.Set(path, value)
		return
	}
	keypath.Set(r.data, path, value)
	head, _ := keypath.Head(path)
	r.notify(head)
}

func (r *Reactive) notify(key string) {
	if strings.HasPrefix(key, reservedPrefix) {
		return
	}
	if r.onWrite != nil {
		r.onWrite(key)
	}
}

// Data exposes the underlying record. Mutating it directly bypasses
// reactivity; use Set for observed writes.
func (r *Reactive) Data() map[string]any { return r.data }
