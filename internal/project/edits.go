package project

import (
	"fmt"
	"log/slog"
	"path"

	"github.com/beevik/etree"

	"github.com/mkorneva/ditakeeper/internal/apperr"
)

// rootConceptTemplate is the skeleton for a newly materialized root concept.
const rootConceptTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE concept PUBLIC "-//OASIS//DTD DITA Concept//EN" "concept.dtd">
<concept id="root_concept" outputclass="context">
<title>How-to Guide</title>
<shortdesc>SHORT DESCRIPTION</shortdesc>
<conbody>
</conbody>
</concept>
`

// CastTopicTo casts the topic at relPath to the target variant and updates
// the map's reference entry type. Fails with ErrNotFound when the path is
// not a map topic and with ErrMalformed when the topic lacks a content
// container (the write is skipped).
func (m *Map) CastTopicTo(relPath string, target SemanticType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.topicByPath(relPath)
	if !ok {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, relPath)
	}
	if err := t.CastTo(target); err != nil {
		return err
	}
	return m.updateTopicrefType(t.Name, refTypeFor(target))
}

// CastTopicsFromWord re-applies every topic's discovered variant, giving
// generic Word-converted trees their proper concept/task/reference shapes.
// Per-topic failures are logged and skipped.
func (m *Map) CastTopicsFromWord() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.Topics {
		if err := t.Cast(); err != nil {
			m.logger.Debug("cannot cast topic",
				slog.String("topic", t.Path), slog.String("error", err.Error()))
		}
	}
}

// CreateRootConcept materializes a new hierarchical topic from the embedded
// template, inserts it as the first reference, and demotes the map's former
// root content to a nested reference under it. The map turns from
// "topic-like" into a pure reference index; all existing nested references
// are preserved.
func (m *Map) CreateRootConcept(title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if title == "" {
		title = "How-to Guide"
	}
	conceptName := "root_" + m.Basename + DocExt
	conceptPath := path.Join(m.Dir, conceptName)
	if m.store.Exists(conceptPath) {
		return fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, conceptPath)
	}
	if err := m.store.Write(conceptPath, []byte(rootConceptTemplate)); err != nil {
		return err
	}

	f, err := openFile(m.store, conceptPath)
	if err != nil {
		return err
	}
	rootTopic := &Topic{File: f, Type: TypeConcept, Outputclass: "context"}
	rootTopic.Children = append(rootTopic.Children, m.rootRefs...)

	// The former root content, title dropped, becomes a topicref under
	// the new root concept.
	demoted := m.Content.Root().Copy()
	if ttl := demoted.SelectElement("title"); ttl != nil {
		demoted.RemoveChild(ttl)
	}
	demoted.Tag = "topicref"
	demoted.Attr = nil
	demoted.CreateAttr("href", conceptName)

	root := m.Content.Root()
	for len(root.Child) > 0 {
		root.RemoveChildAt(0)
	}
	root.Attr = nil

	mapTitle := etree.NewElement("title")
	mapTitle.SetText(title)
	root.AddChild(mapTitle)
	root.AddChild(demoted)

	idx := len(m.Topics)
	m.Topics = append(m.Topics, rootTopic)
	m.rootRefs = []int{idx}

	return m.Write()
}

// AddTopicGroups delegates the structural regrouping of reference entries
// to the content model and persists the result.
func (m *Map) AddTopicGroups() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Content.AddTopicGroups()
	return m.Write()
}

// Canned short descriptions for the standard front-matter topics.
var standardShortdescs = map[string]string{
	"Revision history and confidentiality notice": "This chapter contains a table of revisions, printing instructions, " +
		"and a notice of document confidentiality.",
	"Revision history":      "Below is the history of the document revisions and a list of authors.",
	"Printing instructions": "Follow these recommendations to achieve the best print quality.",
}

// MassEdit fills in the canned short descriptions for the typical
// front-matter documents and normalizes reference topics' docdetails
// sections. Returns the names of the processed files.
func (m *Map) MassEdit() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var processed []string
	for _, t := range m.Topics {
		if t.Type == TypeReference {
			t.Content.ProcessDocdetails()
		}
		title := t.Content.Title()
		sd, known := standardShortdescs[title]
		if !known || !t.Content.ShortdescMissing() {
			continue
		}
		t.Content.SetShortdesc(sd)
		if title == "Printing instructions" {
			t.Content.AddNbspAfterTable()
		}
		if err := t.Write(); err != nil {
			m.logger.Warn("mass edit write failed",
				slog.String("topic", t.Path), slog.String("error", err.Error()))
			continue
		}
		processed = append(processed, t.Name)
	}
	return processed
}
