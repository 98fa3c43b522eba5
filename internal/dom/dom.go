// Package dom supplies the render target for the engine: an element tree
// built on golang.org/x/net/html, plus the small set of mutations the
// directive processor needs (clone, insert, remove, attributes, text and
// raw-markup content) and a synthetic event layer with outward
// propagation.
package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses src as a body fragment and returns a detached
// container node holding the parsed children. The container is never
// mutated by the engine; it is cloned before every processing pass.
func ParseFragment(src string) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return nil, err
	}
	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		n.Parent, n.PrevSibling, n.NextSibling = nil, nil, nil
		container.AppendChild(n)
	}
	return container, nil
}

// Clone returns a deep copy of n with no parent or siblings.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// InsertBefore inserts n as a sibling immediately preceding ref.
func InsertBefore(ref, n *html.Node) {
	if ref.Parent == nil {
		return
	}
	ref.Parent.InsertBefore(n, ref)
}

// ClearChildren detaches every child of n.
func ClearChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// MoveChildren detaches every child of src and appends it to dst,
// preserving order.
func MoveChildren(src, dst *html.Node) {
	for src.FirstChild != nil {
		child := src.FirstChild
		src.RemoveChild(child)
		dst.AppendChild(child)
	}
}

// GetAttr returns the value of the named attribute on n.
func GetAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the named attribute on n.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// DelAttr removes the named attribute from n.
func DelAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// SetText replaces the content of n with a single text node. Serialization
// escapes text nodes, so this is the safe content channel.
func SetText(n *html.Node, text string) {
	ClearChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// SetHTML replaces the content of n with the parse of raw markup. The
// caller vouches for the markup's origin.
func SetHTML(n *html.Node, raw string) error {
	frag, err := ParseFragment(raw)
	if err != nil {
		return err
	}
	ClearChildren(n)
	MoveChildren(frag, n)
	return nil
}

// Render serializes n, including the node itself.
func Render(n *html.Node) string {
	var b strings.Builder
	_ = html.Render(&b, n)
	return b.String()
}

// RenderChildren serializes the children of n in order.
func RenderChildren(n *html.Node) string {
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		_ = html.Render(&b, child)
	}
	return b.String()
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n.Type == html.ElementNode
}

// TagName returns the lower-cased tag name of an element node.
func TagName(n *html.Node) string {
	return strings.ToLower(n.Data)
}

// Descends reports whether n is root or sits anywhere below it.
func Descends(root, n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}
