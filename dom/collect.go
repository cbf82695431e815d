package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Kind identifies what part of a node a Target refers to.
type Kind int

const (
	// KindText is the data of a text node.
	KindText Kind = iota
	// KindValue is the value of an input or textarea.
	KindValue
	// KindPlaceholder is the placeholder attribute of an input or textarea.
	KindPlaceholder
)

// Attr returns the attribute name a Kind maps to, or "" for text.
func (k Kind) Attr() string {
	switch k {
	case KindValue:
		return "value"
	case KindPlaceholder:
		return "placeholder"
	}
	return ""
}

func (k Kind) String() string {
	if k == KindText {
		return "text"
	}
	return k.Attr()
}

// Target is one translatable location in a document.
type Target struct {
	Kind Kind
	Node *html.Node
	Text string // current raw content, whitespace included
}

// Read returns the current content of the location.
func (t Target) Read() string {
	switch t.Kind {
	case KindValue:
		return Value(t.Node)
	case KindPlaceholder:
		v, _ := Attr(t.Node, "placeholder")
		return v
	}
	return t.Node.Data
}

// Write replaces the content of the location.
func (t Target) Write(s string) {
	switch t.Kind {
	case KindValue:
		SetValue(t.Node, s)
	case KindPlaceholder:
		SetAttr(t.Node, "placeholder", s)
	default:
		t.Node.Data = s
	}
}

// DefaultIgnoredTags are elements whose direct text content is never
// collected.
var DefaultIgnoredTags = []string{
	"script", "style", "noscript", "iframe",
	"textarea", "input", "select", "option",
}

const (
	// NoTranslateAttr excludes an element and its subtree from collection.
	NoTranslateAttr = "data-no-translate"
	// FieldAttr marks an editable field whose value belongs to the user.
	FieldAttr = "data-field"
)

// Collector finds the translatable locations of a document.
type Collector struct {
	ignoredTags map[string]bool
}

// NewCollector creates a collector with DefaultIgnoredTags.
func NewCollector() *Collector {
	return NewCollectorWithIgnoredTags(DefaultIgnoredTags)
}

// NewCollectorWithIgnoredTags creates a collector with custom ignored tags.
func NewCollectorWithIgnoredTags(tags []string) *Collector {
	ignored := make(map[string]bool, len(tags))
	for _, tag := range tags {
		ignored[strings.ToLower(tag)] = true
	}
	return &Collector{ignoredTags: ignored}
}

// Collect returns, in document order, every non-blank text node under
// <body>, followed by the non-blank value and placeholder of every input and
// textarea. The caller must hold the document lock.
func (c *Collector) Collect(doc *goquery.Document) []Target {
	var targets []Target

	body := doc.Find("body")
	for _, root := range body.Nodes {
		c.walkText(root, &targets)
	}

	doc.Find("input, textarea").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		if !c.acceptControl(n) {
			return
		}
		if v := Value(n); strings.TrimSpace(v) != "" {
			targets = append(targets, Target{Kind: KindValue, Node: n, Text: v})
		}
		if ph, ok := Attr(n, "placeholder"); ok && strings.TrimSpace(ph) != "" {
			targets = append(targets, Target{Kind: KindPlaceholder, Node: n, Text: ph})
		}
	})

	return targets
}

func (c *Collector) walkText(n *html.Node, out *[]Target) {
	if n.Type == html.ElementNode && HasAttr(n, NoTranslateAttr) {
		return
	}
	if n.Type == html.TextNode {
		if strings.TrimSpace(n.Data) != "" && !c.ignoredParent(n) {
			*out = append(*out, Target{Kind: KindText, Node: n, Text: n.Data})
		}
		return
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.walkText(ch, out)
	}
}

func (c *Collector) ignoredParent(n *html.Node) bool {
	p := n.Parent
	return p != nil && p.Type == html.ElementNode && c.ignoredTags[strings.ToLower(p.Data)]
}

func (c *Collector) acceptControl(n *html.Node) bool {
	if HasAttr(n, FieldAttr) {
		return false
	}
	if t, _ := Attr(n, "type"); strings.EqualFold(t, "hidden") {
		return false
	}
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && HasAttr(p, NoTranslateAttr) {
			return false
		}
	}
	return true
}
