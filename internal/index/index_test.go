package index

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mkorneva/ditakeeper/internal/project"
	"github.com/mkorneva/ditakeeper/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "ditakeeper-index-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func row(path, title string) TopicRow {
	return TopicRow{
		Path:      path,
		Title:     title,
		Type:      "concept",
		Checksum:  "cs-" + path,
		UpdatedAt: time.Now(),
	}
}

func TestUpsertAndList(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertTopic(row("b.dita", "Beta"), "beta body", nil); err != nil {
		t.Fatalf("UpsertTopic: %v", err)
	}
	if err := db.UpsertTopic(row("a.dita", "Alpha"), "alpha body", nil); err != nil {
		t.Fatalf("UpsertTopic: %v", err)
	}

	topics, err := db.ListTopics()
	if err != nil {
		t.Fatalf("ListTopics: %v", err)
	}
	if len(topics) != 2 {
		t.Fatalf("len = %d, want 2", len(topics))
	}
	if topics[0].Path != "a.dita" || topics[1].Path != "b.dita" {
		t.Errorf("order = [%s %s], want [a.dita b.dita]", topics[0].Path, topics[1].Path)
	}
	if topics[0].Title != "Alpha" {
		t.Errorf("title = %q, want Alpha", topics[0].Title)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)

	first := row("a.dita", "Old title")
	if err := db.UpsertTopic(first, "body", []string{"x.dita"}); err != nil {
		t.Fatal(err)
	}
	second := row("a.dita", "New title")
	second.Checksum = "cs-new"
	if err := db.UpsertTopic(second, "body", []string{"y.dita"}); err != nil {
		t.Fatal(err)
	}

	topics, _ := db.ListTopics()
	if len(topics) != 1 {
		t.Fatalf("len = %d, want 1", len(topics))
	}
	if topics[0].Title != "New title" || topics[0].Checksum != "cs-new" {
		t.Errorf("row not updated: %+v", topics[0])
	}

	// Links are replaced, not accumulated.
	if back, _ := db.Backlinks("x.dita"); len(back) != 0 {
		t.Errorf("stale backlink survived: %v", back)
	}
	back, _ := db.Backlinks("y.dita")
	if len(back) != 1 || back[0] != "a.dita" {
		t.Errorf("backlinks = %v, want [a.dita]", back)
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertTopic(row("a.dita", "Alpha"), "", nil); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertTopic(row("b.dita", "Beta"), "", nil); err != nil {
		t.Fatal(err)
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if len(checksums) != 2 {
		t.Fatalf("len = %d, want 2", len(checksums))
	}
	if checksums["a.dita"] != "cs-a.dita" || checksums["b.dita"] != "cs-b.dita" {
		t.Errorf("checksums = %v", checksums)
	}
	if _, ok := checksums["missing.dita"]; ok {
		t.Error("unindexed path present in checksum map")
	}
}

func TestDeleteTopic(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertTopic(row("a.dita", "Alpha"), "body", []string{"b.dita"}); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteTopic("a.dita"); err != nil {
		t.Fatalf("DeleteTopic: %v", err)
	}

	topics, _ := db.ListTopics()
	if len(topics) != 0 {
		t.Errorf("topics = %v, want empty", topics)
	}
	if back, _ := db.Backlinks("b.dita"); len(back) != 0 {
		t.Errorf("backlinks = %v, want empty", back)
	}
}

func TestProblemsFilter(t *testing.T) {
	db := testDB(t)

	clean := row("clean.dita", "Fine")
	if err := db.UpsertTopic(clean, "", nil); err != nil {
		t.Fatal(err)
	}
	missing := row("missing.dita", "Needs work")
	missing.ShortdescMissing = true
	if err := db.UpsertTopic(missing, "", nil); err != nil {
		t.Fatal(err)
	}
	untitled := row("untitled.dita", "")
	if err := db.UpsertTopic(untitled, "", nil); err != nil {
		t.Fatal(err)
	}

	problems, err := db.Problems()
	if err != nil {
		t.Fatalf("Problems: %v", err)
	}
	if len(problems) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(problems), problems)
	}
	if problems[0].Path != "missing.dita" || problems[1].Path != "untitled.dita" {
		t.Errorf("problems = [%s %s]", problems[0].Path, problems[1].Path)
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertTopic(row("a.dita", "Installing the unit"), "Mount the bracket first.", nil); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertTopic(row("b.dita", "Specifications"), "Weight and dimensions.", nil); err != nil {
		t.Fatal(err)
	}

	hits, err := db.Search("bracket", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "a.dita" {
		t.Errorf("hits = %+v, want single a.dita", hits)
	}

	hits, err = db.Search("Specifications", 10)
	if err != nil {
		t.Fatalf("Search by title: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "b.dita" {
		t.Errorf("hits = %+v, want single b.dita", hits)
	}
}

func TestGraph(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertTopic(row("a.dita", "Alpha"), "", []string{"b.dita"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertTopic(row("b.dita", "Beta"), "", nil); err != nil {
		t.Fatal(err)
	}

	nodes, links, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(nodes))
	}
	if len(links) != 1 || links[0].Source != "a.dita" || links[0].Target != "b.dita" {
		t.Errorf("links = %+v, want a.dita -> b.dita", links)
	}
}

func TestImages(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertImage("media/fig1.png", "Front view"); err != nil {
		t.Fatalf("UpsertImage: %v", err)
	}
	if err := db.UpsertImage("media/fig1.png", "Updated title"); err != nil {
		t.Fatalf("UpsertImage update: %v", err)
	}

	var title string
	if err := db.conn.QueryRow(`SELECT title FROM images WHERE href = ?`, "media/fig1.png").Scan(&title); err != nil {
		t.Fatalf("query image: %v", err)
	}
	if title != "Updated title" {
		t.Errorf("title = %q, want Updated title", title)
	}

	if err := db.DeleteImage("media/fig1.png"); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}
	var n int
	_ = db.conn.QueryRow(`SELECT COUNT(*) FROM images`).Scan(&n)
	if n != 0 {
		t.Errorf("images count = %d, want 0", n)
	}
}

const syncTopic = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE concept PUBLIC "-//OASIS//DTD DITA Concept//EN" "concept.dtd">
<concept id="a" outputclass="context">
  <title>Alpha</title>
  <shortdesc>About alpha.</shortdesc>
  <conbody><p>Body with a <xref href="b.dita">link</xref>.</p></conbody>
</concept>
`

func TestSyncIndexesAndRemoves(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write("a.dita", []byte(syncTopic)); err != nil {
		t.Fatal(err)
	}

	if err := Sync(db, store, testLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	topics, _ := db.ListTopics()
	if len(topics) != 1 || topics[0].Path != "a.dita" {
		t.Fatalf("topics = %+v, want single a.dita", topics)
	}
	if topics[0].Title != "Alpha" || topics[0].Type != "concept" {
		t.Errorf("indexed row = %+v", topics[0])
	}
	back, _ := db.Backlinks("b.dita")
	if len(back) != 1 || back[0] != "a.dita" {
		t.Errorf("backlinks = %v, want [a.dita]", back)
	}

	// Unchanged files are skipped; a second sync must not error.
	if err := Sync(db, store, testLogger()); err != nil {
		t.Fatalf("second Sync: %v", err)
	}

	if err := store.Delete("a.dita"); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, store, testLogger()); err != nil {
		t.Fatalf("Sync after delete: %v", err)
	}
	topics, _ = db.ListTopics()
	if len(topics) != 0 {
		t.Errorf("stale topics survived: %+v", topics)
	}
}

const syncMapDoc = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE map PUBLIC "-//OASIS//DTD DITA Map//EN" "map.dtd">
<map>
  <title>Guide</title>
  <topicref href="a.dita"/>
</map>
`

func TestSyncImagesRemovesStale(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write("guide.ditamap", []byte(syncMapDoc)); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("a.dita", []byte(syncTopic)); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("fig1.png", []byte{0x89, 0x50, 0x4e, 0x47}); err != nil {
		t.Fatal(err)
	}

	mp, err := project.Open(store, "guide.ditamap", testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	SyncImages(db, mp, testLogger())
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM images`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("images count = %d, want 1", n)
	}

	// An asset gone from the map must be dropped from the index too.
	if err := store.Delete("fig1.png"); err != nil {
		t.Fatal(err)
	}
	if err := mp.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	SyncImages(db, mp, testLogger())
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM images`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("stale image survived, count = %d", n)
	}
}
