package engine

import (
	"github.com/go-spry/spry/internal/keypath"
)

// scopeKind determines where unqualified writes land. Loop scopes only
// hold their introduced bindings; writes to other names fall through to
// the nearest record scope.
type scopeKind int

const (
	kindVars scopeKind = iota // plain bindings (globals, loop variables)
	kindRoot                  // the apply-data record
	kindRecord                // a component's reactive record
)

// Scope is one link of the name-resolution chain. Reads walk own bindings
// first, then the parent; writes target the scope that declares the name's
// head segment, falling back to the nearest record or root scope.
type Scope struct {
	kind   scopeKind
	vars   map[string]any
	record *Reactive
	parent *Scope
}

func newVarsScope(parent *Scope, vars map[string]any) *Scope {
	return &Scope{kind: kindVars, vars: vars, parent: parent}
}

func newRootScope(parent *Scope, data map[string]any) *Scope {
	return &Scope{kind: kindRoot, vars: data, parent: parent}
}

func newRecordScope(rec *Reactive) *Scope {
	return &Scope{kind: kindRecord, record: rec}
}

// defines reports whether this scope itself binds the given name.
func (s *Scope) defines(name string) bool {
	if s.record != nil {
		return s.record.Has(name)
	}
	_, ok := s.vars[name]
	return ok
}

// get reads a name bound in this scope.
func (s *Scope) get(name string) (any, bool) {
	if s.record != nil {
		return s.record.Get(name)
	}
	v, ok := s.vars[name]
	return v, ok
}

// Resolve looks up a dotted path through the scope chain. "." yields the
// innermost data record.
func (s *Scope) Resolve(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	if path == "." {
		for cur := s; cur != nil; cur = cur.parent {
			if cur.record != nil {
				return cur.record.Data(), true
			}
			if cur.kind == kindRoot {
				return cur.vars, true
			}
		}
		if s.vars != nil {
			return s.vars, true
		}
		return nil, false
	}

	head, rest := keypath.Head(path)
	for cur := s; cur != nil; cur = cur.parent {
		if !cur.defines(head) {
			continue
		}
		v, ok := cur.get(head)
		if !ok || rest == "" {
			return v, ok
		}
		record, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		return keypath.Get(record, rest)
	}
	return nil, false
}

// SetPath writes value at path, targeting the scope that declares the
// path's head. Undeclared names land in the nearest record scope (a
// component's reactive record) or, failing that, the root data record.
// Writes through a record scope trigger that record's write hook.
func (s *Scope) SetPath(path string, value any) {
	if path == "" || path == "." {
		return
	}
	head, _ := keypath.Head(path)

	for cur := s; cur != nil; cur = cur.parent {
		if cur.defines(head) {
			cur.write(path, value)
			return
		}
	}
	// Undeclared: introduce in the nearest mutable data record.
	for cur := s; cur != nil; cur = cur.parent {
		if cur.kind == kindRecord || cur.kind == kindRoot {
			cur.write(path, value)
			return
		}
	}
	s.write(path, value)
}

func (s *Scope) write(path string, value any) {
	if s.record != nil {
		s.record.SetPath(path, value)
		return
	}
	keypath.Set(s.vars, path, value)
}
