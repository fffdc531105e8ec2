package gearth

import (
	"errors"
	"strings"
	"testing"
)

func TestXMLParser(t *testing.T) {
	root, err := XMLParser{}.Parse(`<?xml version="1.0"?>
<kml xmlns="http://www.opengis.net/kml/2.2" xmlns:gx="http://www.google.com/kml/ext/2.2">
<Document><Placemark><NAME>One</NAME><gx:Track/></Placemark><Placemark><name>Two <b>bold</b></name></Placemark></Document>
</kml>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	pms := root.FindAll("PLACEMARK")
	if len(pms) != 2 {
		t.Fatalf("FindAll(PLACEMARK) = %d nodes; want 2", len(pms))
	}
	if name, ok := directText(pms[0], "name"); !ok || name != "One" {
		t.Errorf("first name = %q, %v; want One", name, ok)
	}
	if got := pms[1].Text(); got != "Two bold" {
		t.Errorf("Text() = %q; want descendant text %q", got, "Two bold")
	}
	if len(root.FindAll("track")) != 1 {
		t.Error("namespace prefix not ignored when matching tags")
	}
	if p := pms[0].Parent(); p == nil || p.Tag() != "document" {
		t.Errorf("Parent() = %v; want document", p)
	}
}

func TestXMLParserCharset(t *testing.T) {
	text := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><kml><name>Caf\xe9</name></kml>"
	root, err := XMLParser{}.Parse(text)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	names := root.FindAll("name")
	if len(names) != 1 || names[0].Text() != "Café" {
		t.Errorf("name = %v; want Café decoded from latin-1", names)
	}
}

func TestXMLParserError(t *testing.T) {
	_, err := XMLParser{}.Parse("")
	var parseErr *MarkupParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Parse(empty) error = %v; want MarkupParseError", err)
	}
	if !Recoverable(err) {
		t.Error("MarkupParseError should be recoverable")
	}
}

func TestHTMLParser(t *testing.T) {
	root, err := HTMLParser{}.Parse(`<TABLE><tr><TD ColSpan="2">a</td></tr></TABLE><table></table>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tables := root.FindAll("table")
	if len(tables) != 2 {
		t.Fatalf("FindAll(table) = %d; want 2", len(tables))
	}
	tds := tables[0].FindAll("td")
	if len(tds) != 1 {
		t.Fatalf("FindAll(td) = %d; want 1", len(tds))
	}
	if v, ok := tds[0].Attr("COLSPAN"); !ok || v != "2" {
		t.Errorf("Attr(COLSPAN) = %q, %v; want 2", v, ok)
	}
	if strings.TrimSpace(tables[0].Text()) != "a" {
		t.Errorf("Text() = %q; want a", tables[0].Text())
	}
}

func TestXMLParserFragment(t *testing.T) {
	root, err := XMLParser{}.Parse(`<p>intro</p><table><tr><td>A</td><td>1</td></tr></table>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if n := len(root.FindAll("table")); n != 1 {
		t.Errorf("tables = %d; want 1", n)
	}
}

func TestNewParser(t *testing.T) {
	for _, name := range []string{"", "xml", "HTML"} {
		if _, err := NewParser(name); err != nil {
			t.Errorf("NewParser(%q) error = %v", name, err)
		}
	}
	if _, err := NewParser("yaml"); err == nil {
		t.Error("NewParser(yaml) should fail")
	}
}
