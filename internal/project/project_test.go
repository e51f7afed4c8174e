package project_test

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/mkorneva/ditakeeper/internal/apperr"
	"github.com/mkorneva/ditakeeper/internal/project"
	"github.com/mkorneva/ditakeeper/internal/storage"
	"github.com/mkorneva/ditakeeper/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openMap(t *testing.T, store storage.Provider, mapPath string) *project.Map {
	t.Helper()
	m, err := project.Open(store, mapPath, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return m
}

func TestProvenanceWord(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", "Alpha", testutil.WithOutputclass("context")))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita"))

	m := openMap(t, store, "guide.ditamap")
	if m.Provenance != project.ProvenanceWord {
		t.Errorf("provenance = %q, want word", m.Provenance)
	}
	if len(m.Topics) != 1 {
		t.Fatalf("topics = %d, want 1", len(m.Topics))
	}
	if m.Topics[0].Aux != nil {
		t.Error("word projects have no sidecar records")
	}
}

func TestProvenanceCheetah(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", "Alpha", testutil.WithOutputclass("context")))
	testutil.MustWrite(t, store, "a.3sish", testutil.IshXML("a"))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita"))

	m := openMap(t, store, "guide.ditamap")
	if m.Provenance != project.ProvenanceCheetah {
		t.Errorf("provenance = %q, want cheetah", m.Provenance)
	}
	if m.Topics[0].Aux == nil {
		t.Fatal("cheetah topic must carry its sidecar record")
	}
	if got := m.Topics[0].Aux.Content.FTitle(); got != "a" {
		t.Errorf("sidecar FTITLE = %q", got)
	}
}

func TestProvenanceInconsistent(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", "Alpha"))
	testutil.MustWrite(t, store, "a.3sish", testutil.IshXML("a"))
	testutil.MustWrite(t, store, "b.dita", testutil.ConceptXML("b", "Beta"))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita"))

	_, err := project.Open(store, "guide.ditamap", testLogger())
	var ipe *apperr.InconsistentProjectError
	if !errors.As(err, &ipe) {
		t.Fatalf("err = %v, want InconsistentProjectError", err)
	}
	if len(ipe.Orphans) != 1 || ipe.Orphans[0] != "b" {
		t.Errorf("orphans = %v, want [b]", ipe.Orphans)
	}
}

func TestMissingAuxRecord(t *testing.T) {
	// Consistent base-name sets, but one referenced topic lives in a
	// subfolder without a sidecar next to it.
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", "Alpha"))
	testutil.MustWrite(t, store, "a.3sish", testutil.IshXML("a"))
	testutil.MustWrite(t, store, "sub/b.dita", testutil.ConceptXML("b", "Beta"))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita", "sub/b.dita"))

	_, err := project.Open(store, "guide.ditamap", testLogger())
	var mae *apperr.MissingAuxRecordError
	if !errors.As(err, &mae) {
		t.Fatalf("err = %v, want MissingAuxRecordError", err)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Error("MissingAuxRecordError should unwrap to ErrNotFound")
	}
}

func TestDiscoverHierarchy(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "parent.dita", testutil.ConceptXML("p", "Parent"))
	testutil.MustWrite(t, store, "child.dita", testutil.ConceptXML("c", "Child", testutil.WithOutputclass("procedure")))

	mapDoc := `<?xml version="1.0" encoding="UTF-8"?>
<map>
  <title>Guide</title>
  <topicref href="parent.dita">
    <topicref href="child.dita"/>
  </topicref>
</map>
`
	testutil.MustWrite(t, store, "guide.ditamap", []byte(mapDoc))

	m := openMap(t, store, "guide.ditamap")
	if len(m.Topics) != 2 {
		t.Fatalf("topics = %d, want 2", len(m.Topics))
	}
	parent := m.Topics[0]
	if parent.Name != "parent.dita" {
		t.Fatalf("arena order wrong: first topic is %s", parent.Name)
	}
	// A hierarchical topic without its own outputclass becomes a concept.
	if parent.Type != project.TypeConcept || parent.Outputclass != "context" {
		t.Errorf("parent classified as %v/%q", parent.Type, parent.Outputclass)
	}
	if len(parent.Children) != 1 || m.Topics[parent.Children[0]].Name != "child.dita" {
		t.Errorf("parent children = %v", parent.Children)
	}
	if m.Topics[1].Type != project.TypeTask {
		t.Errorf("child type = %v, want task", m.Topics[1].Type)
	}
}

func TestRenameTopicsPropagation(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", "Revision history", testutil.WithOutputclass("context")))
	testutil.MustWrite(t, store, "a.3sish", testutil.IshXML("a"))
	testutil.MustWrite(t, store, "b.dita", testutil.ConceptXML("b", "Revision history", testutil.WithOutputclass("procedure")))
	testutil.MustWrite(t, store, "b.3sish", testutil.IshXML("b"))
	testutil.MustWrite(t, store, "c.dita", testutil.ConceptXML("c", "Usage", testutil.WithOutputclass("context"),
		testutil.WithBody(`<p>See <xref href="a.dita#frag">history</xref>.</p>`)))
	testutil.MustWrite(t, store, "c.3sish", testutil.IshXML("c"))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita", "b.dita", "c.dita"))

	m := openMap(t, store, "guide.ditamap")
	renamed := m.RenameTopics()
	if renamed != 3 {
		t.Errorf("renamed = %d, want 3", renamed)
	}

	// Duplicate titles: first unsuffixed, second with a numeric suffix.
	for _, want := range []string{
		"c_Revision_history.dita", "t_Revision_history_2.dita", "c_Usage.dita",
		"c_Revision_history.3sish", "t_Revision_history_2.3sish", "c_Usage.3sish",
	} {
		if !store.Exists(want) {
			t.Errorf("missing %s after rename", want)
		}
	}
	for _, gone := range []string{"a.dita", "b.dita", "c.dita", "a.3sish"} {
		if store.Exists(gone) {
			t.Errorf("%s should have been moved", gone)
		}
	}

	// Map references follow.
	mapData, _ := store.Read("guide.ditamap")
	for _, want := range []string{"c_Revision_history.dita", "t_Revision_history_2.dita", "c_Usage.dita"} {
		if !strings.Contains(string(mapData), want) {
			t.Errorf("map missing href %s:\n%s", want, mapData)
		}
	}

	// Cross-references follow, fragment intact.
	cData, _ := store.Read("c_Usage.dita")
	if !strings.Contains(string(cData), `href="c_Revision_history.dita#frag"`) {
		t.Errorf("xref not propagated:\n%s", cData)
	}

	// Sidecar FTITLE stays in name-sync.
	ishData, _ := store.Read("c_Revision_history.3sish")
	if !strings.Contains(string(ishData), ">c_Revision_history<") {
		t.Errorf("sidecar FTITLE not updated:\n%s", ishData)
	}
}

func TestRenameSkipsExistingTarget(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", "Overview", testutil.WithOutputclass("context")))
	testutil.MustWrite(t, store, "b.dita", testutil.ConceptXML("b", "Usage", testutil.WithOutputclass("context")))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita", "b.dita"))
	// Unrelated file already occupies a's canonical name.
	testutil.MustWrite(t, store, "c_Overview.dita", []byte("occupied"))

	m := openMap(t, store, "guide.ditamap")
	renamed := m.RenameTopics()
	if renamed != 1 {
		t.Errorf("renamed = %d, want 1 (collision skipped, pass continues)", renamed)
	}
	if !store.Exists("a.dita") {
		t.Error("colliding topic must keep its name")
	}
	if data, _ := store.Read("c_Overview.dita"); string(data) != "occupied" {
		t.Error("existing target must never be overwritten")
	}
	if !store.Exists("c_Usage.dita") {
		t.Error("later topics still rename after a skip")
	}
}

func TestRenameSkipsMissingTitle(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", ""))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita"))

	m := openMap(t, store, "guide.ditamap")
	if renamed := m.RenameTopics(); renamed != 0 {
		t.Errorf("renamed = %d, want 0", renamed)
	}
	if !store.Exists("a.dita") {
		t.Error("untitled topic must keep its name")
	}
}

func TestCastTopicIdempotent(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", "Install", testutil.WithOutputclass("context")))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita"))

	m := openMap(t, store, "guide.ditamap")
	if err := m.CastTopicTo("a.dita", project.TypeTask); err != nil {
		t.Fatalf("CastTopicTo: %v", err)
	}
	first, _ := store.Read("a.dita")
	s := string(first)
	if !strings.Contains(s, "<task") || !strings.Contains(s, "<taskbody>") {
		t.Errorf("not reshaped to task:\n%s", s)
	}
	if !strings.Contains(s, "DITA Task//EN") {
		t.Errorf("doctype not rewritten:\n%s", s)
	}
	mapData, _ := store.Read("guide.ditamap")
	if !strings.Contains(string(mapData), `type="task"`) {
		t.Errorf("map reference type not updated:\n%s", mapData)
	}

	// Casting again must not change the bytes.
	if err := m.CastTopicTo("a.dita", project.TypeTask); err != nil {
		t.Fatalf("second cast: %v", err)
	}
	second, _ := store.Read("a.dita")
	if string(first) != string(second) {
		t.Error("repeated cast changed the document")
	}
}

func TestCastTopicNotFound(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", "Alpha"))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita"))

	m := openMap(t, store, "guide.ditamap")
	if err := m.CastTopicTo("ghost.dita", project.TypeTask); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGenerateName(t *testing.T) {
	cases := []struct {
		img  project.Image
		want string
	}{
		{project.Image{Href: "fig1.png", DisplayTitle: "System Overview", Ext: ".png"}, "img_dl980_System_Overview.png"},
		{project.Image{Href: "media/fig2.jpg", Ext: ".jpg"}, "img_dl980_fig2.jpg"},
		{project.Image{Href: "x.gif", DisplayTitle: "Front view 2", Ext: ".gif"}, "img_dl980_Front_view_2.gif"},
	}
	for _, tc := range cases {
		if got := tc.img.GenerateName("dl980"); got != tc.want {
			t.Errorf("GenerateName(%+v) = %q, want %q", tc.img, got, tc.want)
		}
	}
}

func TestEditImageNames(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "media/fig1.png", []byte("png-bytes"))
	figBody := `<fig><title>Front view</title><image href="media/fig1.png"/></fig>`
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", "Alpha", testutil.WithBody(figBody)))
	refBody := `<fig><image href="media/fig1.png"/></fig>`
	testutil.MustWrite(t, store, "b.dita", testutil.ConceptXML("b", "Beta", testutil.WithBody(refBody)))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita", "b.dita"))

	m := openMap(t, store, "guide.ditamap")
	if m.ImageFolder != "media" {
		t.Fatalf("image folder = %q, want media", m.ImageFolder)
	}
	if img := m.Images["media/fig1.png"]; img == nil || img.Title != "Front view" {
		t.Fatalf("image not discovered or untitled: %+v", img)
	}

	m.EditImageNames("proj")

	if !store.Exists("media/img_proj_Front_view.png") {
		t.Error("renamed image missing on disk")
	}
	if store.Exists("media/fig1.png") {
		t.Error("old image path should be gone")
	}
	for _, topic := range []string{"a.dita", "b.dita"} {
		data, _ := store.Read(topic)
		if !strings.Contains(string(data), `href="media/img_proj_Front_view.png"`) {
			t.Errorf("%s still references the old href:\n%s", topic, data)
		}
	}
	if _, ok := m.Images["media/img_proj_Front_view.png"]; !ok {
		t.Error("canonical image set not re-keyed")
	}
}

func TestEditImageNamesSkipsExistingTarget(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "media/fig1.png", []byte("one"))
	testutil.MustWrite(t, store, "media/img_proj_Shared.png", []byte("taken"))
	figBody := `<fig><title>Shared</title><image href="media/fig1.png"/></fig>`
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", "Alpha", testutil.WithBody(figBody)))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita"))

	m := openMap(t, store, "guide.ditamap")
	m.EditImageNames("proj")

	if data, _ := store.Read("media/img_proj_Shared.png"); string(data) != "taken" {
		t.Error("existing target must never be overwritten")
	}
	if !store.Exists("media/fig1.png") {
		t.Error("colliding image keeps its name")
	}
	data, _ := store.Read("a.dita")
	if !strings.Contains(string(data), `href="media/fig1.png"`) {
		t.Error("topic href must stay on the old name after a skip")
	}
}

func TestCreateRootConcept(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", "Alpha"))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Old Map Title", "a.dita"))

	m := openMap(t, store, "guide.ditamap")
	if err := m.CreateRootConcept("How-to Guide"); err != nil {
		t.Fatalf("CreateRootConcept: %v", err)
	}

	if !store.Exists("root_guide.dita") {
		t.Fatal("root concept file missing")
	}
	mapData, _ := store.Read("guide.ditamap")
	s := string(mapData)
	if !strings.Contains(s, `href="root_guide.dita"`) {
		t.Errorf("map does not reference the root concept:\n%s", s)
	}
	if !strings.Contains(s, "<title>How-to Guide</title>") {
		t.Errorf("map title not set:\n%s", s)
	}
	// The old reference list survives, nested under the new root.
	if !strings.Contains(s, `href="a.dita"`) {
		t.Errorf("existing references lost:\n%s", s)
	}

	if err := m.CreateRootConcept("Again"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second call err = %v, want ErrAlreadyExists", err)
	}
}

func TestProblematicFiles(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "good.dita", testutil.ConceptXML("g", "Fine", testutil.WithShortdesc("Done.")))
	testutil.MustWrite(t, store, "bad.dita", testutil.ConceptXML("b", "Needs work"))
	draft := testutil.ConceptXML("d", "Drafty", testutil.WithShortdesc("Ok."),
		testutil.WithBody(`<p>Text.<draft-comment>fix me</draft-comment></p>`))
	testutil.MustWrite(t, store, "draft.dita", draft)
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "good.dita", "bad.dita", "draft.dita"))

	m := openMap(t, store, "guide.ditamap")
	probs := m.ProblematicFiles()
	if len(probs) != 2 {
		t.Fatalf("problems = %d, want 2", len(probs))
	}
	// Sorted by path.
	if probs[0].Path != "bad.dita" || probs[1].Path != "draft.dita" {
		t.Errorf("problem order = [%s %s]", probs[0].Path, probs[1].Path)
	}
	if !probs[0].Problems().ShortdescMissing {
		t.Error("bad.dita should flag a missing shortdesc")
	}
	if !probs[1].Problems().DraftComments {
		t.Error("draft.dita should flag draft comments")
	}
}

func TestConcurrentReadsDuringRename(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", "Revision history", testutil.WithOutputclass("context")))
	testutil.MustWrite(t, store, "b.dita", testutil.ConceptXML("b", "Usage", testutil.WithOutputclass("context")))
	testutil.MustWrite(t, store, "c.dita", testutil.ConceptXML("c", "Install the unit", testutil.WithOutputclass("procedure")))
	testutil.MustWrite(t, store, "media/fig1.png", []byte("png-bytes"))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita", "b.dita", "c.dita"))

	m := openMap(t, store, "guide.ditamap")

	// Readers hammer the query surface while a rename pass rewrites paths.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			m.ProblematicFiles()
			m.Problems()
			m.TopicByPath("b.dita")
			m.ImageHrefs()
			m.TopicCount()
		}
	}()

	renamed := m.RenameTopics()
	close(done)
	wg.Wait()

	if renamed != 3 {
		t.Errorf("renamed = %d, want 3", renamed)
	}
	for _, want := range []string{"c_Revision_history.dita", "c_Usage.dita", "t_Install_unit.dita"} {
		if !store.Exists(want) {
			t.Errorf("missing %s after rename", want)
		}
	}
	if _, ok := m.TopicByPath("c_Usage.dita"); !ok {
		t.Error("renamed topic not reachable by its new path")
	}
	if got := m.TopicCount(); got != 3 {
		t.Errorf("topic count = %d, want 3", got)
	}
}

func TestMassEdit(t *testing.T) {
	_, store := testutil.TestProject(t)
	body := `<table><tgroup cols="1"/></table>`
	testutil.MustWrite(t, store, "print.dita", testutil.ConceptXML("p", "Printing instructions", testutil.WithBody(body)))
	testutil.MustWrite(t, store, "other.dita", testutil.ConceptXML("o", "Unrelated topic"))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "print.dita", "other.dita"))

	m := openMap(t, store, "guide.ditamap")
	processed := m.MassEdit()
	if len(processed) != 1 || processed[0] != "print.dita" {
		t.Fatalf("processed = %v, want [print.dita]", processed)
	}

	data, _ := store.Read("print.dita")
	if !strings.Contains(string(data), "best print quality") {
		t.Errorf("canned shortdesc not applied:\n%s", data)
	}
}

func TestCastTopicsFromWord(t *testing.T) {
	_, store := testutil.TestProject(t)
	steps := `<steps><step><cmd>Press the button.</cmd></step></steps>`
	testutil.MustWrite(t, store, "a.dita", testutil.TopicXML("a", "Install the unit", testutil.WithBody(steps)))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita"))

	m := openMap(t, store, "guide.ditamap")
	// Structure detection: steps mean a procedure.
	if m.Topics[0].Type != project.TypeTask {
		t.Fatalf("detected type = %v, want task", m.Topics[0].Type)
	}

	m.CastTopicsFromWord()
	data, _ := store.Read("a.dita")
	if !strings.Contains(string(data), "<task") || !strings.Contains(string(data), "<taskbody>") {
		t.Errorf("topic not reshaped:\n%s", data)
	}
}

func TestRefresh(t *testing.T) {
	_, store := testutil.TestProject(t)
	testutil.MustWrite(t, store, "a.dita", testutil.ConceptXML("a", "Alpha"))
	testutil.MustWrite(t, store, "guide.ditamap", testutil.MapXML("Guide", "a.dita"))

	m := openMap(t, store, "guide.ditamap")
	if len(m.Topics) != 1 {
		t.Fatalf("topics = %d", len(m.Topics))
	}
	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(m.Topics) != 1 {
		t.Errorf("topics after refresh = %d, want 1", len(m.Topics))
	}
}
