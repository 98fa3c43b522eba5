// Package interp implements marker interpolation: `{{ expr }}` produces
// escaped output, `{{{ expr }}}` raw output. An expression is a dotted key
// path followed by an optional chain of filter calls:
//
//	expr       = path ('|' filterCall)*
//	filterCall = name (':' arg)*
//
// Each arg is parsed, in order, as a quoted string literal, a numeric
// literal, the tokens true/false, or a key path resolved against the
// current context. Filters apply left to right; failures degrade (warn,
// keep the pre-filter value) rather than abort the render.
package interp

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/go-spry/spry/internal/filters"
	"github.com/go-spry/spry/internal/logging"
)

// Resolver resolves a dotted key path in the current data context.
type Resolver interface {
	Resolve(path string) (any, bool)
}

// Interpolator evaluates interpolation markers against a data context.
type Interpolator struct {
	Filters *filters.Registry
	// Placeholder is rendered for missing or nil final values.
	Placeholder string
	Logger      logging.Logger
}

// New returns an interpolator over the given filter registry.
func New(reg *filters.Registry, logger logging.Logger) *Interpolator {
	return &Interpolator{Filters: reg, Logger: logger.WithComponent("interp")}
}

// HasMarkers reports whether s contains at least one interpolation marker.
func HasMarkers(s string) bool {
	return strings.Contains(s, "{{")
}

// Interpolate replaces every marker in s with its evaluated output,
// escaping `{{ }}` results and passing `{{{ }}}` results through raw. The
// result is markup: suitable for re-parsing, not for text-node data.
func (ip *Interpolator) Interpolate(s string, rv Resolver) string {
	return ip.interpolate(s, rv, true)
}

// InterpolatePlain replaces markers without escaping either form. Use it
// for values the host tree escapes itself at serialization time (text-node
// data, attribute values).
func (ip *Interpolator) InterpolatePlain(s string, rv Resolver) string {
	return ip.interpolate(s, rv, false)
}

func (ip *Interpolator) interpolate(s string, rv Resolver, escape bool) string {
	if !HasMarkers(s) {
		return s
	}

	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:start])
		rest = rest[start:]

		raw := strings.HasPrefix(rest, "{{{")
		open, close := "{{", "}}"
		if raw {
			open, close = "{{{", "}}}"
		}
		end := strings.Index(rest[len(open):], close)
		if end < 0 {
			// Unterminated marker renders literally.
			b.WriteString(rest)
			return b.String()
		}
		expr := rest[len(open) : len(open)+end]
		rest = rest[len(open)+end+len(close):]

		value, _ := ip.Eval(expr, rv)
		out := ip.Stringify(value)
		if !raw && escape {
			out = html.EscapeString(out)
		}
		b.WriteString(out)
	}
}

// Eval evaluates a path-plus-filter-chain expression. The boolean result
// reports whether the initial path resolved; filter errors never clear it.
func (ip *Interpolator) Eval(expr string, rv Resolver) (any, bool) {
	parts := splitOutsideQuotes(strings.TrimSpace(expr), '|')
	if len(parts) == 0 {
		return nil, false
	}

	path := strings.TrimSpace(parts[0])
	value, found := rv.Resolve(path)

	for _, call := range parts[1:] {
		value = ip.applyFilter(strings.TrimSpace(call), value, rv)
	}
	return value, found
}

// applyFilter runs one filterCall on value, degrading to the incoming
// value on lookup failure or filter error.
func (ip *Interpolator) applyFilter(call string, value any, rv Resolver) any {
	if call == "" {
		return value
	}
	tokens := splitOutsideQuotes(call, ':')
	name := strings.TrimSpace(tokens[0])

	fn, ok := ip.Filters.Get(name)
	if !ok {
		ip.Logger.Warn(context.Background(), nil, "unregistered filter", "filter", name)
		return value
	}

	args := make([]any, 0, len(tokens)-1)
	for _, tok := range tokens[1:] {
		arg, _ := ip.ParseArg(strings.TrimSpace(tok), rv)
		args = append(args, arg)
	}

	next, err := safeApply(fn, value, args)
	if err != nil {
		ip.Logger.Warn(context.Background(), err, "filter failed", "filter", name)
		return value
	}
	return next
}

// safeApply shields the render pass from panicking filters.
func safeApply(fn filters.Func, value any, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("filter panic: %v", r)
		}
	}()
	return fn(value, args...)
}

// ParseArg parses a single call-site argument: quoted literal, numeric
// literal, true/false, else a key path resolved against the context. The
// boolean reports whether a path argument actually resolved.
func (ip *Interpolator) ParseArg(tok string, rv Resolver) (any, bool) {
	if tok == "" {
		return "", true
	}
	if len(tok) >= 2 {
		if (tok[0] == '\'' && tok[len(tok)-1] == '\'') || (tok[0] == '"' && tok[len(tok)-1] == '"') {
			return tok[1 : len(tok)-1], true
		}
	}
	if n, err := strconv.ParseFloat(tok, 64); err == nil {
		return n, true
	}
	switch tok {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return rv.Resolve(tok)
}

// Stringify renders a final value for host-tree text. Missing values
// become the configured placeholder; floats drop a trailing ".0" so JSON
// numbers round-trip as written.
func (ip *Interpolator) Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ip.Placeholder
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// splitOutsideQuotes splits s on sep, ignoring separators inside single or
// double quoted runs.
func splitOutsideQuotes(s string, sep byte) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}
