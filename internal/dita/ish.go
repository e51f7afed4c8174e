package dita

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/mkorneva/ditakeeper/internal/apperr"
)

// CheckIshObject verifies that the document is a sidecar record
// (root element ishobject).
func (c *Content) CheckIshObject() error {
	if c.Root().Tag != "ishobject" {
		return fmt.Errorf("%w: sidecar record has no ishobject root", apperr.ErrMalformed)
	}
	return nil
}

// ishField finds the ishfield element with the given name attribute.
func (c *Content) ishField(name string) *etree.Element {
	for _, f := range c.Root().FindElements("//ishfield") {
		if f.SelectAttrValue("name", "") == name {
			return f
		}
	}
	return nil
}

// FTitle returns the record's FTITLE field value.
func (c *Content) FTitle() string {
	if f := c.ishField("FTITLE"); f != nil {
		return f.Text()
	}
	return ""
}

// SetFTitle sets the record's FTITLE field, creating it when absent.
func (c *Content) SetFTitle(value string) {
	f := c.ishField("FTITLE")
	if f == nil {
		fields := c.Root().SelectElement("ishfields")
		if fields == nil {
			fields = c.Root().CreateElement("ishfields")
		}
		f = fields.CreateElement("ishfield")
		f.CreateAttr("name", "FTITLE")
		f.CreateAttr("level", "logical")
	}
	f.SetText(value)
}
