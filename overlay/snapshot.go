package overlay

import (
	"weak"

	"github.com/ZaguanLabs/huntlay/dom"
	"golang.org/x/net/html"
)

// entry is the recorded original of one location. The node is held weakly:
// a snapshot never keeps removed content alive.
type entry struct {
	node     weak.Pointer[html.Node]
	kind     dom.Kind
	original string
	applied  string // last translation written, "" if none
}

type entryKey struct {
	node weak.Pointer[html.Node]
	kind dom.Kind
}

// Snapshot holds the originals of every location an overlay pass has seen.
// Entries are only ever added.
type Snapshot struct {
	texts []*entry
	attrs []*entry
	index map[entryKey]*entry
}

func newSnapshot() *Snapshot {
	return &Snapshot{index: make(map[entryKey]*entry)}
}

// record adds t if its location is unseen and returns the text to send for
// translation: the recorded original when the location still shows our own
// last translation, its current content otherwise.
func (s *Snapshot) record(t dom.Target) (source string, added bool) {
	k := entryKey{node: weak.Make(t.Node), kind: t.Kind}
	if e, ok := s.index[k]; ok {
		if e.applied != "" && t.Text == e.applied {
			return e.original, false
		}
		return t.Text, false
	}

	e := &entry{node: k.node, kind: t.Kind, original: t.Text}
	s.index[k] = e
	if t.Kind == dom.KindText {
		s.texts = append(s.texts, e)
	} else {
		s.attrs = append(s.attrs, e)
	}
	return t.Text, true
}

func (s *Snapshot) markApplied(t dom.Target, written string) {
	if e, ok := s.index[entryKey{node: weak.Make(t.Node), kind: t.Kind}]; ok {
		e.applied = written
	}
}

// restore writes every original back to its location if the node is still
// attached and shows something else. It returns the number of writes.
func (s *Snapshot) restore(attached func(*html.Node) bool) int {
	written := 0
	for _, list := range [][]*entry{s.texts, s.attrs} {
		for _, e := range list {
			n := e.node.Value()
			if n == nil || !attached(n) {
				continue
			}
			t := dom.Target{Kind: e.kind, Node: n}
			if t.Read() == e.original {
				continue
			}
			t.Write(e.original)
			written++
		}
	}
	return written
}

// Len returns the number of text and attribute entries.
func (s *Snapshot) Len() (texts, attrs int) {
	if s == nil {
		return 0, 0
	}
	return len(s.texts), len(s.attrs)
}
