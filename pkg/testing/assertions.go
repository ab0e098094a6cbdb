package testing

import (
	"fmt"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

// HTMLAssert provides assertions over a parsed HTML fragment.
//
// Elements are matched by tag ("*" for any) and attribute filters written as
// "name" (present) or "name=value" (exact). The class attribute matches when
// the value is one of its space-separated classes.
type HTMLAssert struct {
	t   testing.TB
	raw string
	doc *html.Node
}

// NewHTMLAssert parses raw. A parse failure fails the test.
func NewHTMLAssert(t testing.TB, raw string) *HTMLAssert {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parse HTML: %v", err)
	}
	return &HTMLAssert{t: t, raw: raw, doc: doc}
}

// Find returns every element matching tag and attrs in document order.
func (ha *HTMLAssert) Find(tag string, attrs ...string) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && matches(n, tag, attrs) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(ha.doc)
	return out
}

// HasElement asserts at least one element matches.
func (ha *HTMLAssert) HasElement(tag string, attrs ...string) *HTMLAssert {
	ha.t.Helper()
	if len(ha.Find(tag, attrs...)) == 0 {
		ha.t.Errorf("no element matches %s\nRendered HTML:\n%s", describe(tag, attrs), ha.raw)
	}
	return ha
}

// NoElement asserts nothing matches.
func (ha *HTMLAssert) NoElement(tag string, attrs ...string) *HTMLAssert {
	ha.t.Helper()
	if n := len(ha.Find(tag, attrs...)); n > 0 {
		ha.t.Errorf("found %d elements matching %s, want none", n, describe(tag, attrs))
	}
	return ha
}

// Count returns how many elements match.
func (ha *HTMLAssert) Count(tag string, attrs ...string) int {
	return len(ha.Find(tag, attrs...))
}

// Attr returns attribute name of the first matching element.
func (ha *HTMLAssert) Attr(name, tag string, attrs ...string) (string, bool) {
	nodes := ha.Find(tag, attrs...)
	if len(nodes) == 0 {
		return "", false
	}
	return attr(nodes[0], name)
}

// Text returns the whitespace-normalized text of the first matching element.
func (ha *HTMLAssert) Text(tag string, attrs ...string) string {
	nodes := ha.Find(tag, attrs...)
	if len(nodes) == 0 {
		return ""
	}
	return textOf(nodes[0])
}

// HasText asserts the document text contains text.
func (ha *HTMLAssert) HasText(text string) *HTMLAssert {
	ha.t.Helper()
	if !strings.Contains(textOf(ha.doc), text) {
		ha.t.Errorf("text %q not found\nRendered HTML:\n%s", text, ha.raw)
	}
	return ha
}

// HasClass asserts some element carries class.
func (ha *HTMLAssert) HasClass(class string) *HTMLAssert {
	ha.t.Helper()
	return ha.HasElement("*", "class="+class)
}

// HasID asserts an element with id exists.
func (ha *HTMLAssert) HasID(id string) *HTMLAssert {
	ha.t.Helper()
	return ha.HasElement("*", "id="+id)
}

func matches(n *html.Node, tag string, filters []string) bool {
	if tag != "*" && n.Data != tag {
		return false
	}
	for _, f := range filters {
		name, want, exact := strings.Cut(f, "=")
		got, ok := attr(n, name)
		if !ok {
			return false
		}
		if !exact {
			continue
		}
		if name == "class" {
			if !hasField(got, want) {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func hasField(list, want string) bool {
	for _, f := range strings.Fields(list) {
		if f == want {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func describe(tag string, attrs []string) string {
	return fmt.Sprintf("<%s %s>", tag, strings.Join(attrs, " "))
}
