// Package keypath resolves dotted key paths against nested string-keyed
// records. It is the single value-resolution primitive shared by the
// interpolator, the directive processor, and two-way bindings.
package keypath

import "strings"

// Get resolves path against ctx. The path "." returns ctx itself. An empty
// path is never found. Resolution fails the moment an intermediate segment
// does not hold a nested record.
func Get(ctx map[string]any, path string) (any, bool) {
	if ctx == nil || path == "" {
		return nil, false
	}
	if path == "." {
		return ctx, true
	}

	segments := strings.Split(path, ".")
	var current any = ctx
	for _, seg := range segments {
		if seg == "" {
			return nil, false
		}
		record, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = record[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Set assigns value at path inside ctx, creating empty records for any
// missing intermediate segment. Writes never fail for a non-empty path.
func Set(ctx map[string]any, path string, value any) {
	if ctx == nil || path == "" || path == "." {
		return
	}

	segments := strings.Split(path, ".")
	record := ctx
	for _, seg := range segments[:len(segments)-1] {
		next, ok := record[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			record[seg] = next
		}
		record = next
	}
	record[segments[len(segments)-1]] = value
}

// Head returns the first segment of a dotted path and the remainder.
// Head(".") and Head("") return the path unchanged with an empty rest.
func Head(path string) (head, rest string) {
	if path == "." || path == "" {
		return path, ""
	}
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}
