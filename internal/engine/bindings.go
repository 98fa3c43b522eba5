package engine

import (
	"golang.org/x/net/html"

	"github.com/go-spry/spry/internal/dom"
)

// BindingRegistry tracks every listener attached during rendering so a
// discarded subtree's listeners can be detached precisely. At any time the
// records here equal the attached listeners in the live tree.
type BindingRegistry struct {
	doc     *dom.Document
	records []*dom.Listener
}

func newBindingRegistry(doc *dom.Document) *BindingRegistry {
	return &BindingRegistry{doc: doc}
}

// Attach registers fn on node for the named event and records it.
func (b *BindingRegistry) Attach(node *html.Node, event string, fn dom.Handler) *dom.Listener {
	l := b.doc.AddListener(node, event, fn)
	b.records = append(b.records, l)
	return l
}

// DetachWithin removes every recorded listener attached at or below root.
func (b *BindingRegistry) DetachWithin(root *html.Node) {
	kept := b.records[:0]
	for _, l := range b.records {
		if dom.Descends(root, l.Node) {
			b.doc.RemoveListener(l)
		} else {
			kept = append(kept, l)
		}
	}
	b.records = kept
}

// Count returns the number of live recorded listeners.
func (b *BindingRegistry) Count() int { return len(b.records) }
