package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document owns a live element tree and the listeners attached to it. The
// engine renders into a node inside a Document; attachment to the
// Document's root is what makes an instance eligible for its mounted hook.
type Document struct {
	root      *html.Node
	listeners map[*html.Node]map[string][]*Listener
	nextID    int
}

// Listener is one (element, event name, handler) registration. The set of
// live Listeners must equal the attached handlers exactly: no leaks, no
// dangling detachments.
type Listener struct {
	Node  *html.Node
	Event string
	fn    Handler
	id    int
}

// Handler reacts to a fired event.
type Handler func(e *Event)

// Event is delivered to handlers during Fire. It propagates outward from
// the target until stopped or the tree root is reached.
type Event struct {
	Type    string
	Target  *html.Node
	Payload any
	stopped bool
}

// StopPropagation prevents delivery to listeners on ancestor nodes.
func (e *Event) StopPropagation() { e.stopped = true }

// NewDocument creates a Document with an empty body root.
func NewDocument() *Document {
	return &Document{
		root:      &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body},
		listeners: make(map[*html.Node]map[string][]*Listener),
	}
}

// Root returns the document root element.
func (d *Document) Root() *html.Node { return d.root }

// Contains reports whether n is attached to the document tree.
func (d *Document) Contains(n *html.Node) bool {
	return Descends(d.root, n)
}

// AddListener attaches fn to n for the named event and returns the record.
func (d *Document) AddListener(n *html.Node, event string, fn Handler) *Listener {
	d.nextID++
	l := &Listener{Node: n, Event: event, fn: fn, id: d.nextID}
	byEvent, ok := d.listeners[n]
	if !ok {
		byEvent = make(map[string][]*Listener)
		d.listeners[n] = byEvent
	}
	byEvent[event] = append(byEvent[event], l)
	return l
}

// RemoveListener detaches a previously added listener. Removing a listener
// twice is a no-op.
func (d *Document) RemoveListener(l *Listener) {
	byEvent, ok := d.listeners[l.Node]
	if !ok {
		return
	}
	ls := byEvent[l.Event]
	for i, cand := range ls {
		if cand.id == l.id {
			byEvent[l.Event] = append(ls[:i], ls[i+1:]...)
			break
		}
	}
	if len(byEvent[l.Event]) == 0 {
		delete(byEvent, l.Event)
	}
	if len(byEvent) == 0 {
		delete(d.listeners, l.Node)
	}
}

// ListenerCount returns the number of attached listeners.
func (d *Document) ListenerCount() int {
	count := 0
	for _, byEvent := range d.listeners {
		for _, ls := range byEvent {
			count += len(ls)
		}
	}
	return count
}

// Fire dispatches an event at target and propagates it outward through the
// tree. Handlers run synchronously, in registration order per node. A
// handler may detach other listeners mid-dispatch; detached listeners do
// not fire.
func (d *Document) Fire(target *html.Node, event string, payload any) {
	e := &Event{Type: event, Target: target, Payload: payload}
	for cur := target; cur != nil; cur = cur.Parent {
		if byEvent, ok := d.listeners[cur]; ok {
			// Snapshot: handlers may re-render and mutate registrations.
			ls := append([]*Listener(nil), byEvent[event]...)
			for _, l := range ls {
				if !d.attached(l) {
					continue
				}
				l.fn(e)
				if e.stopped {
					return
				}
			}
		}
		if e.stopped {
			return
		}
	}
}

// attached reports whether l is still registered.
func (d *Document) attached(l *Listener) bool {
	byEvent, ok := d.listeners[l.Node]
	if !ok {
		return false
	}
	for _, cand := range byEvent[l.Event] {
		if cand.id == l.id {
			return true
		}
	}
	return false
}
