// Package dita is the XML content model for ditakeeper. It wraps an etree
// document with the typed queries and mutations the project core needs:
// title/shortdesc access, outputclass handling, local-link rewriting, image
// references, and structural conversions between topic shapes.
//
// Serialization preserves the XML declaration and DOCTYPE captured at parse
// time, so a parse/serialize round trip of an untouched document is
// byte-faithful.
package dita

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/mkorneva/ditakeeper/internal/apperr"
)

// headerRe matches an XML declaration optionally followed by a DOCTYPE
// declaration at the top of a file.
var headerRe = regexp.MustCompile(`(?s)(<\?xml version="1.0" encoding="UTF-8"\?>\n)(<!DOCTYPE.*?>\n)?`)

// Content is a parsed XML document plus the raw header captured from the
// first lines of the file.
type Content struct {
	doc *etree.Document

	// Header is the declaration (and optional DOCTYPE) found before the
	// root element, empty when the file had none.
	Header string
}

// Parse parses raw XML bytes into a Content. The header is captured from
// the first four lines; its absence is not an error.
func Parse(data []byte) (*Content, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrParse, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%w: no root element", apperr.ErrParse)
	}
	return &Content{doc: doc, Header: captureHeader(data)}, nil
}

// captureHeader looks for a declaration-plus-optional-doctype pattern over
// the first four lines of the file.
func captureHeader(data []byte) string {
	lines := strings.SplitAfterN(string(data), "\n", 5)
	if len(lines) > 4 {
		lines = lines[:4]
	}
	head := strings.Join(lines, "")
	m := headerRe.FindStringSubmatch(head)
	if m == nil {
		return ""
	}
	return m[1] + m[2]
}

// Root returns the document's root element.
func (c *Content) Root() *etree.Element { return c.doc.Root() }

// Serialize writes the tree back to bytes, including the declaration and
// DOCTYPE tokens held by the document.
func (c *Content) Serialize() ([]byte, error) {
	out, err := c.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("dita: serialize: %w", err)
	}
	return out, nil
}

// Doctype returns the DOCTYPE directive text, without the leading
// "DOCTYPE " keyword stripped (i.e. the full directive data), or "".
func (c *Content) Doctype() string {
	for _, tok := range c.doc.Child {
		if d, ok := tok.(*etree.Directive); ok {
			return d.Data
		}
	}
	return ""
}

// SetDoctype replaces the DOCTYPE directive, inserting one after the XML
// declaration when the document has none.
func (c *Content) SetDoctype(data string) {
	for _, tok := range c.doc.Child {
		if d, ok := tok.(*etree.Directive); ok {
			d.Data = data
			return
		}
	}
	// No directive yet: insert after the ProcInst if present, else first.
	idx := 0
	for i, tok := range c.doc.Child {
		if _, ok := tok.(*etree.ProcInst); ok {
			idx = i + 1
			break
		}
	}
	c.doc.InsertChildAt(idx, etree.NewDirective(data))
	c.doc.InsertChildAt(idx+1, etree.NewText("\n"))
}

// Copy returns a deep copy of the content.
func (c *Content) Copy() *Content {
	return &Content{doc: c.doc.Copy(), Header: c.Header}
}
