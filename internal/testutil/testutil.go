// Package testutil provides shared test helpers for setting up project
// fixtures and databases.
package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/mkorneva/ditakeeper/internal/index"
	"github.com/mkorneva/ditakeeper/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ditakeeper-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestProject creates a temporary project directory with a storage.Provider.
func TestProject(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TopicOption customizes a generated topic document.
type TopicOption func(*topicSpec)

type topicSpec struct {
	outputclass string
	shortdesc   string
	body        string
}

// WithOutputclass sets the outputclass attribute on the topic root.
func WithOutputclass(oc string) TopicOption {
	return func(s *topicSpec) { s.outputclass = oc }
}

// WithShortdesc sets the topic's short description.
func WithShortdesc(sd string) TopicOption {
	return func(s *topicSpec) { s.shortdesc = sd }
}

// WithBody replaces the default body content with raw XML.
func WithBody(xml string) TopicOption {
	return func(s *topicSpec) { s.body = xml }
}

// TopicXML builds a minimal generic topic document.
func TopicXML(id, title string, opts ...TopicOption) []byte {
	s := &topicSpec{body: "<p>Body text.</p>"}
	for _, opt := range opts {
		opt(s)
	}

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<!DOCTYPE topic PUBLIC \"-//OASIS//DTD DITA Topic//EN\" \"topic.dtd\">\n")
	b.WriteString(fmt.Sprintf("<topic id=%q", id))
	if s.outputclass != "" {
		b.WriteString(fmt.Sprintf(" outputclass=%q", s.outputclass))
	}
	b.WriteString(">\n")
	b.WriteString(fmt.Sprintf("  <title>%s</title>\n", title))
	if s.shortdesc != "" {
		b.WriteString(fmt.Sprintf("  <shortdesc>%s</shortdesc>\n", s.shortdesc))
	}
	b.WriteString("  <body>\n    ")
	b.WriteString(s.body)
	b.WriteString("\n  </body>\n</topic>\n")
	return []byte(b.String())
}

// ConceptXML builds a minimal concept document.
func ConceptXML(id, title string, opts ...TopicOption) []byte {
	s := &topicSpec{body: "<p>Concept text.</p>"}
	for _, opt := range opts {
		opt(s)
	}

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<!DOCTYPE concept PUBLIC \"-//OASIS//DTD DITA Concept//EN\" \"concept.dtd\">\n")
	b.WriteString(fmt.Sprintf("<concept id=%q", id))
	if s.outputclass != "" {
		b.WriteString(fmt.Sprintf(" outputclass=%q", s.outputclass))
	}
	b.WriteString(">\n")
	b.WriteString(fmt.Sprintf("  <title>%s</title>\n", title))
	if s.shortdesc != "" {
		b.WriteString(fmt.Sprintf("  <shortdesc>%s</shortdesc>\n", s.shortdesc))
	}
	b.WriteString("  <conbody>\n    ")
	b.WriteString(s.body)
	b.WriteString("\n  </conbody>\n</concept>\n")
	return []byte(b.String())
}

// MapXML builds a ditamap referencing the given topic hrefs in order.
func MapXML(title string, hrefs ...string) []byte {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<!DOCTYPE map PUBLIC \"-//OASIS//DTD DITA Map//EN\" \"map.dtd\">\n")
	b.WriteString("<map>\n")
	b.WriteString(fmt.Sprintf("  <title>%s</title>\n", title))
	for _, href := range hrefs {
		b.WriteString(fmt.Sprintf("  <topicref href=%q/>\n", href))
	}
	b.WriteString("</map>\n")
	return []byte(b.String())
}

// IshXML builds a sidecar record with the given FTITLE value.
func IshXML(ftitle string) []byte {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<ishobject ishtype=\"ISHModule\" ishref=\"GUID-0000\">\n")
	b.WriteString("  <ishfields>\n")
	b.WriteString(fmt.Sprintf("    <ishfield name=\"FTITLE\" level=\"logical\">%s</ishfield>\n", ftitle))
	b.WriteString("    <ishfield name=\"FMODULETYPE\" level=\"logical\">INFO</ishfield>\n")
	b.WriteString("  </ishfields>\n")
	b.WriteString("</ishobject>\n")
	return []byte(b.String())
}

// MustWrite writes data through the provider and fails the test on error.
func MustWrite(t *testing.T, store storage.Provider, path string, data []byte) {
	t.Helper()
	if err := store.Write(path, data); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
