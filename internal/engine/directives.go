package engine

import (
	"reflect"
	"strings"

	"golang.org/x/net/html"

	"github.com/go-spry/spry/internal/dom"
	"github.com/go-spry/spry/internal/interp"
)

// Directive attribute names, carried under the data- prefix so templates
// stay valid HTML.
const (
	attrPrefix  = "data-"
	dirIf       = attrPrefix + "if"
	dirShow     = attrPrefix + "show"
	dirRepeat   = attrPrefix + "repeat"
	dirModel    = attrPrefix + "model"
	dirText     = attrPrefix + "text"
	dirHTML     = attrPrefix + "html"
	dirOnPrefix = attrPrefix + "on:"
)

// Default loop binding names for data-repeat.
const (
	defaultItemName  = "item"
	defaultIndexName = "$index"
)

// eventArgToken names the triggering event payload in call-site argument
// lists.
const eventArgToken = "$event"

// processChildren walks parent's children in order, running the per-node
// directive algorithm on elements and interpolating marker-bearing text
// nodes. Children are snapshotted ahead of each step because directives
// remove and insert siblings.
func (e *Engine) processChildren(parent *html.Node, sc *Scope, owner *Instance) {
	child := parent.FirstChild
	for child != nil {
		next := child.NextSibling
		switch child.Type {
		case html.ElementNode:
			e.processElement(child, sc, owner)
		case html.TextNode:
			if interp.HasMarkers(child.Data) {
				e.interpolateTextNode(child, sc)
			}
		}
		child = next
	}
}

// processElement applies the directive algorithm to one element, in fixed
// priority order. Component recognition short-circuits all directive
// handling on the host tag.
func (e *Engine) processElement(n *html.Node, sc *Scope, owner *Instance) {
	tag := dom.TagName(n)

	if tag == "slot" && owner != nil {
		e.substituteSlot(n, owner)
		return
	}

	if reg, ok := e.components[tag]; ok {
		e.trace("component tag", "tag", tag)
		e.mountComponent(n, reg, sc)
		return
	}

	if expr, ok := dom.GetAttr(n, dirIf); ok {
		dom.DelAttr(n, dirIf)
		if !e.evalCondition(expr, sc) {
			e.trace("if: removing node", "expr", expr)
			dom.Detach(n)
			return
		}
	}

	if expr, ok := dom.GetAttr(n, dirShow); ok {
		dom.DelAttr(n, dirShow)
		e.applyShow(n, expr, sc)
	}

	if expr, ok := dom.GetAttr(n, dirRepeat); ok {
		e.applyRepeat(n, expr, sc, owner)
		return
	}

	e.interpolateAttrs(n, sc)
	e.bindEvents(n, sc, owner)

	if path, ok := dom.GetAttr(n, dirModel); ok {
		dom.DelAttr(n, dirModel)
		e.bindModel(n, strings.TrimSpace(path), sc, owner)
	}

	if expr, ok := dom.GetAttr(n, dirText); ok {
		dom.DelAttr(n, dirText)
		value, _ := e.ip.Eval(expr, sc)
		dom.SetText(n, e.ip.Stringify(value))
		return // content is authoritative, stop descending
	}
	if expr, ok := dom.GetAttr(n, dirHTML); ok {
		dom.DelAttr(n, dirHTML)
		value, _ := e.ip.Eval(expr, sc)
		if err := dom.SetHTML(n, e.ip.Stringify(value)); err != nil {
			e.warn("", dirHTML, "injected markup failed to parse", "error", err.Error())
		}
		return
	}

	e.processChildren(n, sc, owner)
}

// evalCondition resolves an if/show value: an optional leading negation
// followed by a dotted path.
func (e *Engine) evalCondition(expr string, sc *Scope) bool {
	expr = strings.TrimSpace(expr)
	negate := false
	if strings.HasPrefix(expr, "!") {
		negate = true
		expr = strings.TrimSpace(expr[1:])
	}
	v, _ := sc.Resolve(expr)
	truthy := isTruthy(v)
	if negate {
		return !truthy
	}
	return truthy
}

// applyShow toggles presentation without removing the node. The directive
// is re-evaluated naturally on re-render because rendering always rebuilds
// from the template.
func (e *Engine) applyShow(n *html.Node, expr string, sc *Scope) {
	if e.evalCondition(expr, sc) {
		return
	}
	style, _ := dom.GetAttr(n, "style")
	if style != "" && !strings.HasSuffix(style, ";") {
		style += ";"
	}
	dom.SetAttr(n, "style", style+"display:none")
}

// applyRepeat expands `item[, index] in arrayPath` by cloning the template
// node once per element, each clone processed under a child scope binding
// the item and index names. The template node itself is removed last.
func (e *Engine) applyRepeat(n *html.Node, expr string, sc *Scope, owner *Instance) {
	itemName, idxName, arrayPath := parseRepeatExpr(expr)

	v, _ := sc.Resolve(arrayPath)
	items, ok := asSlice(v)
	if !ok {
		e.warn(ownerName(owner), dirRepeat, "source is not an ordered sequence", "path", arrayPath)
		dom.Detach(n)
		return
	}

	dom.DelAttr(n, dirRepeat)
	for i, item := range items {
		clone := dom.Clone(n)
		child := newVarsScope(sc, map[string]any{
			itemName: item,
			idxName:  i,
		})
		dom.InsertBefore(n, clone)
		e.processElement(clone, child, owner)
	}
	e.trace("repeat expanded", "path", arrayPath, "count", len(items))
	dom.Detach(n)
}

// parseRepeatExpr parses `item[, index] in path`. A malformed expression
// falls back to treating the whole value as the array path with default
// binding names.
func parseRepeatExpr(expr string) (itemName, idxName, arrayPath string) {
	itemName, idxName = defaultItemName, defaultIndexName

	parts := strings.SplitN(expr, " in ", 2)
	if len(parts) != 2 {
		return itemName, idxName, strings.TrimSpace(expr)
	}
	arrayPath = strings.TrimSpace(parts[1])

	names := strings.SplitN(parts[0], ",", 2)
	if name := strings.TrimSpace(names[0]); name != "" {
		itemName = name
	}
	if len(names) == 2 {
		if name := strings.TrimSpace(names[1]); name != "" {
			idxName = name
		}
	}
	return itemName, idxName, arrayPath
}

// interpolateAttrs rewrites every non-directive attribute whose value
// carries markers, skipping the write when the result is unchanged.
func (e *Engine) interpolateAttrs(n *html.Node, sc *Scope) {
	for i, a := range n.Attr {
		if isDirectiveAttr(a.Key) || !interp.HasMarkers(a.Val) {
			continue
		}
		if out := e.ip.InterpolatePlain(a.Val, sc); out != a.Val {
			n.Attr[i].Val = out
		}
	}
}

func isDirectiveAttr(key string) bool {
	switch key {
	case dirIf, dirShow, dirRepeat, dirModel, dirText, dirHTML:
		return true
	}
	return strings.HasPrefix(key, dirOnPrefix)
}

// bindEvents attaches a listener for every on-directive, resolving the
// handler from the component's methods, or from the data context at the
// root where no method context exists.
func (e *Engine) bindEvents(n *html.Node, sc *Scope, owner *Instance) {
	attrs := append([]html.Attribute(nil), n.Attr...)
	for _, a := range attrs {
		if !strings.HasPrefix(a.Key, dirOnPrefix) {
			continue
		}
		event := a.Key[len(dirOnPrefix):]
		dom.DelAttr(n, a.Key)

		name, argTokens := parseHandlerExpr(a.Val)
		fn, ok := e.resolveHandler(name, sc, owner)
		if !ok {
			e.warn(ownerName(owner), a.Key, "event handler not resolvable", "handler", name)
			continue
		}

		hctx := e.handlerCtx(sc, owner)
		e.bindings.Attach(n, event, func(ev *dom.Event) {
			args := e.resolveHandlerArgs(argTokens, sc, ev, owner)
			fn(hctx, args...)
		})
		e.trace("event bound", "event", event, "handler", name)
	}
}

// parseHandlerExpr splits `name` or `name(arg, ...)` into the handler name
// and raw argument tokens.
func parseHandlerExpr(expr string) (name string, args []string) {
	expr = strings.TrimSpace(expr)
	open := strings.IndexByte(expr, '(')
	if open < 0 {
		return expr, nil
	}
	name = strings.TrimSpace(expr[:open])
	inner := strings.TrimSpace(expr[open+1:])
	inner = strings.TrimSuffix(inner, ")")
	if inner == "" {
		return name, nil
	}
	for _, tok := range splitArgs(inner) {
		args = append(args, strings.TrimSpace(tok))
	}
	return name, args
}

// splitArgs splits a call-site argument list on commas outside quotes.
func splitArgs(s string) []string {
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
		case c == ',':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// resolveHandler finds the method to invoke. Components resolve through
// their method table; the root falls back to Method values stored in the
// data context.
func (e *Engine) resolveHandler(name string, sc *Scope, owner *Instance) (Method, bool) {
	if owner != nil {
		fn, ok := owner.reg.def.Methods[name]
		return fn, ok
	}
	v, ok := sc.Resolve(name)
	if !ok {
		return nil, false
	}
	switch fn := v.(type) {
	case Method:
		return fn, true
	case func(*Ctx, ...any) any:
		return fn, true
	}
	return nil, false
}

func (e *Engine) handlerCtx(sc *Scope, owner *Instance) *Ctx {
	if owner != nil {
		return owner.ctx
	}
	return &Ctx{engine: e, scope: sc}
}

// resolveHandlerArgs materializes call-site arguments at fire time:
// literals as parsed, $event as the payload, paths against the binding
// scope. An unresolved path warns and passes through as nil.
func (e *Engine) resolveHandlerArgs(tokens []string, sc *Scope, ev *dom.Event, owner *Instance) []any {
	if len(tokens) == 0 {
		return nil
	}
	args := make([]any, 0, len(tokens))
	for _, tok := range tokens {
		if tok == eventArgToken {
			args = append(args, ev)
			continue
		}
		v, ok := e.ip.ParseArg(tok, sc)
		if !ok {
			e.warn(ownerName(owner), "on", "call-site argument not found", "arg", tok)
		}
		args = append(args, v)
	}
	return args
}

// bindModel seeds a form control from the bound path and writes
// interaction events back through the scope chain. For component
// instances the write lands in the reactive record and re-renders; a
// root-context write updates the data record without re-applying (see
// DESIGN.md).
func (e *Engine) bindModel(n *html.Node, path string, sc *Scope, owner *Instance) {
	if path == "" {
		return
	}
	current, _ := sc.Resolve(path)
	tag := dom.TagName(n)
	inputType, _ := dom.GetAttr(n, "type")
	inputType = strings.ToLower(inputType)

	event := "input"
	switch {
	case tag == "select", inputType == "checkbox", inputType == "radio":
		event = "change"
	}

	// Seed presentation state per control kind.
	switch {
	case inputType == "checkbox":
		if isTruthy(current) {
			dom.SetAttr(n, "checked", "checked")
		} else {
			dom.DelAttr(n, "checked")
		}
	case inputType == "radio":
		own, _ := dom.GetAttr(n, "value")
		if e.ip.Stringify(current) == own {
			dom.SetAttr(n, "checked", "checked")
		} else {
			dom.DelAttr(n, "checked")
		}
	case tag == "textarea":
		dom.SetText(n, e.ip.Stringify(current))
	default: // text-like inputs and select
		dom.SetAttr(n, "value", e.ip.Stringify(current))
	}

	ownValue, _ := dom.GetAttr(n, "value")
	e.bindings.Attach(n, event, func(ev *dom.Event) {
		var next any
		switch {
		case inputType == "checkbox":
			next = isTruthy(ev.Payload)
		case inputType == "radio":
			if !isTruthy(ev.Payload) {
				return
			}
			next = ownValue
		default:
			next = ev.Payload
		}
		e.trace("model write", "path", path)
		sc.SetPath(path, next)
	})
}

// interpolateTextNode rewrites a marker-bearing text node. Raw markers can
// inject markup, so their presence routes through a parse of the
// interpolated string; plain markers stay a single text node.
func (e *Engine) interpolateTextNode(n *html.Node, sc *Scope) {
	if !strings.Contains(n.Data, "{{{") {
		n.Data = e.ip.InterpolatePlain(n.Data, sc)
		return
	}
	frag, err := dom.ParseFragment(e.ip.Interpolate(n.Data, sc))
	if err != nil {
		n.Data = e.ip.InterpolatePlain(n.Data, sc)
		return
	}
	for frag.FirstChild != nil {
		child := frag.FirstChild
		frag.RemoveChild(child)
		dom.InsertBefore(n, child)
	}
	dom.Detach(n)
}

// isTruthy mirrors the template language's notion of truth: nil, false,
// zero numbers and empty strings are falsy, everything else truthy.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}

// asSlice normalizes any ordered sequence into []any.
func asSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func ownerName(owner *Instance) string {
	if owner == nil {
		return ""
	}
	return owner.reg.name
}
