// Package dom wraps a live HTML document that is shared between the
// translation overlay and the code that injects game content into it.
package dom

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/huntlay"
	"golang.org/x/net/html"
)

// Document is an HTML tree guarded by a read/write lock. Every reader and
// writer of the tree, inside this module or not, goes through View or Update.
type Document struct {
	mu  sync.RWMutex
	doc *goquery.Document
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &huntlay.ProcessorError{
			Message:     "failed to parse HTML",
			Cause:       err,
			ContentType: "html",
		}
	}
	return &Document{doc: doc}, nil
}

// ParseString parses an HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// View runs fn with the read lock held.
func (d *Document) View(fn func(doc *goquery.Document)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.doc)
}

// Update runs fn with the write lock held.
func (d *Document) Update(fn func(doc *goquery.Document)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.doc)
}

// HTML renders the whole document.
func (d *Document) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var buf bytes.Buffer
	for _, n := range d.doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", &huntlay.ProcessorError{
				Message:     "failed to serialize HTML",
				Cause:       err,
				ContentType: "html",
			}
		}
	}
	return buf.String(), nil
}

// Attached reports whether n is still part of the tree, that is whether its
// parent chain reaches the document root. The caller must be inside View or
// Update.
func (d *Document) Attached(n *html.Node) bool {
	if n == nil || len(d.doc.Nodes) == 0 {
		return false
	}
	root := d.doc.Nodes[0]
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether n carries attribute key.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr sets attribute key on n, adding it if missing.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			walk(k)
		}
	}
	walk(n)
	return b.String()
}

// SetText replaces the children of n with a single text node. On a text node
// it replaces the node's data in place.
func SetText(n *html.Node, s string) {
	if n.Type == html.TextNode {
		n.Data = s
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if s != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
}

// Value returns the current value of a form control: the text content of a
// textarea, the value attribute of anything else.
func Value(n *html.Node) string {
	if n.Data == "textarea" {
		return Text(n)
	}
	v, _ := Attr(n, "value")
	return v
}

// SetValue writes the value of a form control. For a textarea that is its
// text content, plus the value attribute when the markup carries one.
func SetValue(n *html.Node, v string) {
	if n.Data == "textarea" {
		SetText(n, v)
		if !HasAttr(n, "value") {
			return
		}
	}
	SetAttr(n, "value", v)
}
