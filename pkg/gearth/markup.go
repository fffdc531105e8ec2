package gearth

import (
	"bytes"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Node is one element of a parsed markup tree.
type Node interface {
	// Tag is the lower-cased local name of the element.
	Tag() string
	// Attr returns the value of the named attribute, matched case-insensitively.
	Attr(name string) (string, bool)
	// Text is the concatenated text of every descendant.
	Text() string
	// Parent is nil for the root.
	Parent() Node
	// Children lists the direct child elements.
	Children() []Node
	// FindAll returns every descendant whose tag matches, in document order.
	FindAll(tag string) []Node
}

// Parser turns markup text into a Node tree.
type Parser interface {
	Parse(text string) (Node, error)
}

type element struct {
	tag      string
	attrs    map[string]string
	parent   *element
	children []*element
	// text runs and child elements in document order
	content []contentItem
}

type contentItem struct {
	text string
	kid  *element
}

func newElement(tag string, parent *element) *element {
	e := &element{tag: strings.ToLower(localName(tag)), parent: parent, attrs: map[string]string{}}
	if parent != nil {
		parent.children = append(parent.children, e)
		parent.content = append(parent.content, contentItem{kid: e})
	}
	return e
}

func (e *element) addText(s string) {
	if s != "" {
		e.content = append(e.content, contentItem{text: s})
	}
}

func (e *element) Tag() string { return e.tag }

func (e *element) Attr(name string) (string, bool) {
	v, ok := e.attrs[strings.ToLower(localName(name))]
	return v, ok
}

func (e *element) Text() string {
	var b strings.Builder
	e.writeText(&b)
	return b.String()
}

func (e *element) writeText(b *strings.Builder) {
	for _, c := range e.content {
		if c.kid != nil {
			c.kid.writeText(b)
			continue
		}
		b.WriteString(c.text)
	}
}

func (e *element) Parent() Node {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

func (e *element) Children() []Node {
	out := make([]Node, len(e.children))
	for i, c := range e.children {
		out[i] = c
	}
	return out
}

func (e *element) FindAll(tag string) []Node {
	tag = strings.ToLower(localName(tag))
	var out []Node
	var walk func(*element)
	walk = func(n *element) {
		for _, c := range n.children {
			if c.tag == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(e)
	return out
}

func localName(tag string) string {
	if i := strings.LastIndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

// XMLParser parses KML and other XML with beevik/etree. It tolerates
// unmatched tags and undeclared entities and decodes non-UTF-8 documents
// through their declared charset.
type XMLParser struct{}

// Parse implements Parser.
func (XMLParser) Parse(text string) (Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromString(text); err != nil {
		return nil, &MarkupParseError{Backend: "xml", Err: err}
	}
	if doc.Root() == nil {
		return nil, &MarkupParseError{Backend: "xml", Err: errNoRoot}
	}

	// Description fragments may hold several top-level elements.
	root := newElement("#document", nil)
	for _, tok := range doc.Child {
		if e, ok := tok.(*etree.Element); ok {
			copyXML(e, root)
		}
	}
	return root, nil
}

func copyXML(src *etree.Element, parent *element) {
	e := newElement(src.Tag, parent)
	for _, a := range src.Attr {
		e.attrs[strings.ToLower(a.Key)] = a.Value
	}
	for _, tok := range src.Child {
		switch t := tok.(type) {
		case *etree.Element:
			copyXML(t, e)
		case *etree.CharData:
			e.addText(t.Data)
		}
	}
}

// HTMLParser parses HTML fragments such as Placemark descriptions with
// golang.org/x/net/html.
type HTMLParser struct{}

// Parse implements Parser.
func (HTMLParser) Parse(text string) (Node, error) {
	doc, err := html.Parse(bytes.NewReader([]byte(text)))
	if err != nil {
		return nil, &MarkupParseError{Backend: "html", Err: err}
	}

	root := newElement("#document", nil)
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		copyHTML(c, root)
	}
	return root, nil
}

func copyHTML(src *html.Node, parent *element) {
	switch src.Type {
	case html.TextNode:
		parent.addText(src.Data)
	case html.ElementNode:
		e := newElement(src.Data, parent)
		for _, a := range src.Attr {
			e.attrs[strings.ToLower(a.Key)] = a.Val
		}
		for c := src.FirstChild; c != nil; c = c.NextSibling {
			copyHTML(c, e)
		}
	}
}

// NewParser returns the backend registered under name ("xml" or "html").
// An empty name selects the HTML backend.
func NewParser(name string) (Parser, error) {
	switch strings.ToLower(name) {
	case "xml":
		return XMLParser{}, nil
	case "html", "":
		return HTMLParser{}, nil
	}
	return nil, &InvalidValueError{Field: "markup backend", Value: name}
}

// directText returns the text of the first direct child of n with the given tag.
func directText(n Node, tag string) (string, bool) {
	for _, c := range n.Children() {
		if c.Tag() == tag {
			return strings.TrimSpace(c.Text()), true
		}
	}
	return "", false
}
