package dita

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/mkorneva/ditakeeper/internal/apperr"
)

// DOCTYPE directives for the document kinds ditakeeper produces.
const (
	DoctypeConcept   = `DOCTYPE concept PUBLIC "-//OASIS//DTD DITA Concept//EN" "concept.dtd"`
	DoctypeTask      = `DOCTYPE task PUBLIC "-//OASIS//DTD DITA Task//EN" "task.dtd"`
	DoctypeReference = `DOCTYPE reference PUBLIC "-//OASIS//DTD DITA Reference//EN" "reference.dtd"`
	DoctypeMap       = `DOCTYPE map PUBLIC "-//OASIS//DTD DITA Map//EN" "map.dtd"`
)

// bodyTags are the content containers a topic may carry, in the order they
// are searched during a conversion.
var bodyTags = []string{"conbody", "taskbody", "refbody", "body"}

// bodyElement returns the topic's content container, or nil.
func (c *Content) bodyElement() *etree.Element {
	for _, tag := range bodyTags {
		if el := c.Root().SelectElement(tag); el != nil {
			return el
		}
	}
	return nil
}

// convert retags the root and its content container and rewrites the
// classification attribute and DOCTYPE. Converting a topic that is already
// in the target shape only rewrites the same values (idempotent).
func (c *Content) convert(rootTag, bodyTag, doctype string) error {
	body := c.bodyElement()
	if body == nil {
		return fmt.Errorf("%w: no content container under <%s>", apperr.ErrMalformed, c.Root().Tag)
	}
	c.Root().Tag = rootTag
	body.Tag = bodyTag
	c.SetDoctype(doctype)
	return nil
}

// ConvertToConcept reshapes the topic into a concept.
func (c *Content) ConvertToConcept() error {
	return c.convert("concept", "conbody", DoctypeConcept)
}

// ConvertToTask reshapes the topic into a task.
func (c *Content) ConvertToTask() error {
	return c.convert("task", "taskbody", DoctypeTask)
}

// ConvertToReference reshapes the topic into a reference.
func (c *Content) ConvertToReference() error {
	return c.convert("reference", "refbody", DoctypeReference)
}

// AddTopicGroups wraps consecutive sibling topicrefs that declare the same
// type into a topicgroup carrying that type as its outputclass. Refs with
// nested children are left alone, terminating any open run.
func (c *Content) AddTopicGroups() {
	root := c.Root()

	var run []*etree.Element
	var runType string

	flush := func() {
		if len(run) < 2 {
			run, runType = nil, ""
			return
		}
		group := etree.NewElement("topicgroup")
		group.CreateAttr("outputclass", runType)
		root.InsertChildAt(run[0].Index(), group)
		for _, ref := range run {
			root.RemoveChild(ref)
			group.AddChild(ref)
		}
		run, runType = nil, ""
	}

	for _, ref := range root.SelectElements("topicref") {
		refType := ref.SelectAttrValue("type", "")
		if refType == "" || len(ref.SelectElements("topicref")) > 0 {
			flush()
			continue
		}
		if refType != runType {
			flush()
			runType = refType
		}
		run = append(run, ref)
	}
	flush()
}

// ProcessDocdetails marks the leading section of a reference body as the
// document-details section when it is not labelled yet.
func (c *Content) ProcessDocdetails() {
	body := c.Root().SelectElement("refbody")
	if body == nil {
		return
	}
	section := body.SelectElement("section")
	if section == nil {
		return
	}
	if section.SelectAttrValue("outputclass", "") == "" {
		section.CreateAttr("outputclass", "docdetails")
	}
}

// AddNbspAfterTable appends a non-breaking-space paragraph after the last
// table so adjacent tables do not merge when printed.
func (c *Content) AddNbspAfterTable() {
	tables := c.Root().FindElements("//table")
	if len(tables) == 0 {
		return
	}
	last := tables[len(tables)-1]
	parent := last.Parent()
	if parent == nil {
		return
	}
	p := etree.NewElement("p")
	p.SetText("\u00a0")
	parent.InsertChildAt(last.Index()+1, p)
}

// Canned legal-information texts applied before renaming legal topics.
const (
	legalTitle     = "Legal information"
	legalShortdesc = "Read the legal statements that apply to this document."
)

// AddLegalTitleAndShortdesc fills in the standard legal title and shortdesc
// when the topic does not carry its own.
func (c *Content) AddLegalTitleAndShortdesc() {
	if c.TitleMissing() {
		c.SetTitle(legalTitle)
	}
	if c.ShortdescMissing() {
		c.SetShortdesc(legalShortdesc)
	}
}
