package dita

import (
	"strings"

	"github.com/beevik/etree"
)

// TitleElement returns the root-level title element, or nil.
func (c *Content) TitleElement() *etree.Element {
	return c.Root().SelectElement("title")
}

// Title returns the flattened text of the title element.
func (c *Content) Title() string {
	t := c.TitleElement()
	if t == nil {
		return ""
	}
	if txt := strings.TrimSpace(t.Text()); txt != "" {
		return txt
	}
	// Titles whose direct text is empty may still carry text inside
	// inline markup.
	return strings.TrimSpace(flattenText(t))
}

// flattenText joins the text of an element and all its descendants.
func flattenText(el *etree.Element) string {
	var sb strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				sb.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(el)
	return sb.String()
}

// TitleMissing reports whether the document has no title text.
func (c *Content) TitleMissing() bool {
	return c.Title() == ""
}

// SetTitle replaces the title text, creating the element when absent.
func (c *Content) SetTitle(text string) {
	t := c.TitleElement()
	if t == nil {
		t = etree.NewElement("title")
		c.Root().InsertChildAt(0, t)
	}
	t.SetText(text)
}

// ShortdescElement returns the root-level shortdesc element, or nil.
func (c *Content) ShortdescElement() *etree.Element {
	return c.Root().SelectElement("shortdesc")
}

// Shortdesc returns the trimmed shortdesc text.
func (c *Content) Shortdesc() string {
	sd := c.ShortdescElement()
	if sd == nil {
		return ""
	}
	return strings.TrimSpace(flattenText(sd))
}

// ShortdescMissing reports whether the shortdesc is absent, empty, or still
// the placeholder inserted by InsertShortdesc.
func (c *Content) ShortdescMissing() bool {
	sd := c.Shortdesc()
	return sd == "" || sd == ShortdescPlaceholder
}

// ShortdescPlaceholder marks a shortdesc that still needs authoring.
const ShortdescPlaceholder = "SHORT DESCRIPTION"

// InsertShortdesc adds a placeholder shortdesc right after the title.
// No-op when the element already exists.
func (c *Content) InsertShortdesc() {
	if c.ShortdescElement() != nil {
		return
	}
	sd := etree.NewElement("shortdesc")
	sd.SetText(ShortdescPlaceholder)
	idx := 0
	if t := c.TitleElement(); t != nil {
		idx = t.Index() + 1
	}
	c.Root().InsertChildAt(idx, sd)
}

// SetShortdesc replaces the shortdesc text, creating the element if needed.
func (c *Content) SetShortdesc(text string) {
	sd := c.ShortdescElement()
	if sd == nil {
		c.InsertShortdesc()
		sd = c.ShortdescElement()
	}
	sd.SetText(text)
}

// Outputclass returns the root outputclass attribute.
func (c *Content) Outputclass() string {
	return c.Root().SelectAttrValue("outputclass", "")
}

// SetOutputclass sets the root outputclass attribute.
func (c *Content) SetOutputclass(oc string) {
	c.Root().CreateAttr("outputclass", oc)
}

// HasDraftComments reports whether any draft-comment element remains.
func (c *Content) HasDraftComments() bool {
	return len(c.Root().FindElements("//draft-comment")) > 0
}

// DetectType infers an outputclass from the structure of the body when the
// root element does not declare one: steps mean a procedure, a body table
// means reference information, anything else is an explanation.
func (c *Content) DetectType() string {
	if len(c.Root().FindElements("//steps")) > 0 {
		return "procedure"
	}
	if len(c.Root().FindElements("//table")) > 0 {
		return "referenceinformation"
	}
	return "explanation"
}

// LocalLinks returns the href targets of every cross-reference that points
// at a project-local file (no scheme, no pure-fragment link).
func (c *Content) LocalLinks() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, xref := range c.Root().FindElements("//xref") {
		href := xref.SelectAttrValue("href", "")
		if href == "" || strings.Contains(href, "://") || strings.HasPrefix(href, "#") {
			continue
		}
		if _, dup := seen[href]; dup {
			continue
		}
		seen[href] = struct{}{}
		out = append(out, href)
	}
	return out
}

// UpdateLocalLinks rewrites cross-references from old to new, keeping any
// fragment part intact. Reports whether anything changed.
func (c *Content) UpdateLocalLinks(old, new string) bool {
	changed := false
	for _, xref := range c.Root().FindElements("//xref") {
		href := xref.SelectAttrValue("href", "")
		switch {
		case href == old:
			xref.CreateAttr("href", new)
			changed = true
		case strings.HasPrefix(href, old+"#"):
			xref.CreateAttr("href", new+strings.TrimPrefix(href, old))
			changed = true
		}
	}
	return changed
}

// PlainText returns the flattened text of the whole document, with
// whitespace runs collapsed. Used for full-text indexing.
func (c *Content) PlainText() string {
	return strings.Join(strings.Fields(flattenText(c.Root())), " ")
}

// Figures returns every fig element in document order.
func (c *Content) Figures() []*etree.Element {
	return c.Root().FindElements("//fig")
}

// ImageRefs returns every image element in document order.
func (c *Content) ImageRefs() []*etree.Element {
	return c.Root().FindElements("//image")
}
