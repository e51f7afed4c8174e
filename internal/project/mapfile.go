package project

import (
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/beevik/etree"

	"github.com/mkorneva/ditakeeper/internal/apperr"
	"github.com/mkorneva/ditakeeper/internal/storage"
)

// Map is the root reference document binding an ordered set of topics into
// one publication structure. All structural operations on topics go through
// the map so that cross-file propagation stays consistent with the
// triggering change.
//
// Every structural operation holds the map's exclusive lock for its full
// duration; read accessors take the shared lock and return snapshots, so the
// HTTP, MCP, and watcher goroutines can query the map while a pass runs.
type Map struct {
	*File

	mu     sync.RWMutex
	store  storage.Provider
	logger *slog.Logger

	Provenance Provenance

	// ImageFolder is the folder holding assets, relative to the project
	// root; equal to Dir unless a conventional subfolder was probed.
	ImageFolder string

	// Images is the canonical image set, keyed by href. Only the map
	// adds or removes entries; topics annotate entries they reference.
	Images map[string]*Image

	// Topics is the arena of every discovered topic in document order of
	// references, nested ones included.
	Topics []*Topic

	// rootRefs holds arena indices of the top-level references.
	rootRefs []int
}

// Open constructs a Map from the ditamap at mapPath (relative to the
// store's root). Construction fails outright when provenance cannot be
// established or any referenced topic cannot be discovered, since the map's
// invariants cannot hold on a partial load.
func Open(store storage.Provider, mapPath string, logger *slog.Logger) (*Map, error) {
	f, err := openFile(store, mapPath)
	if err != nil {
		return nil, err
	}
	m := &Map{File: f, store: store, logger: logger}

	m.Provenance, err = m.detectProvenance()
	if err != nil {
		return nil, err
	}

	m.ImageFolder = m.Dir
	if m.Provenance == ProvenanceWord {
		for _, candidate := range imageFolderCandidates {
			probe := path.Join(m.Dir, candidate)
			if store.IsDir(probe) {
				m.ImageFolder = probe
				break
			}
		}
	}

	// Images before topics: topics annotate the canonical image set.
	if err := m.discoverImages(); err != nil {
		return nil, err
	}
	if err := m.discoverTopics(); err != nil {
		return nil, err
	}
	return m, nil
}

// detectProvenance groups the map folder's files by extension. A .3sish
// group means Cheetah heritage, in which case the .dita and .3sish
// base-name sets must match exactly. No .3sish group means Word heritage.
func (m *Map) detectProvenance() (Provenance, error) {
	groups, err := m.scanFolder(m.Dir)
	if err != nil {
		return "", err
	}

	aux, fromCheetah := groups[strings.TrimPrefix(AuxExt, ".")]
	if !fromCheetah {
		m.logger.Info("project derived from a Word file", slog.String("map", m.Name))
		return ProvenanceWord, nil
	}

	docs := groups[strings.TrimPrefix(DocExt, ".")]
	if orphans := symmetricDifference(docs, aux); len(orphans) > 0 {
		return "", &apperr.InconsistentProjectError{Orphans: orphans}
	}
	m.logger.Info("project derived from a Cheetah file", slog.String("map", m.Name))
	return ProvenanceCheetah, nil
}

// scanFolder groups every filename in dir by extension. Entries without an
// extension (folders included) are skipped.
func (m *Map) scanFolder(dir string) (map[string][]string, error) {
	names, err := m.store.Entries(dir)
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]string)
	for _, name := range names {
		i := strings.LastIndex(name, ".")
		if i <= 0 {
			continue
		}
		base, ext := name[:i], name[i+1:]
		groups[ext] = append(groups[ext], base)
	}
	return groups, nil
}

// symmetricDifference returns the sorted base names present in exactly one
// of the two sets.
func symmetricDifference(a, b []string) []string {
	counts := make(map[string]int)
	for _, s := range a {
		counts[s] |= 1
	}
	for _, s := range b {
		counts[s] |= 2
	}
	var out []string
	for s, mask := range counts {
		if mask != 3 {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// discoverImages rebuilds the canonical image set from the image folder.
func (m *Map) discoverImages() error {
	names, err := m.store.Entries(m.ImageFolder)
	if err != nil {
		return err
	}
	m.Images = make(map[string]*Image)
	for _, name := range names {
		if !hasImageExt(name) {
			continue
		}
		href := name
		if m.ImageFolder != m.Dir {
			href = path.Base(m.ImageFolder) + "/" + name
		}
		m.Images[href] = newImage(href)
	}
	return nil
}

func hasImageExt(name string) bool {
	for _, ext := range imageExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// discoverTopics walks the map's reference list and builds the topic arena
// in document order, recursing into nested references.
func (m *Map) discoverTopics() error {
	m.Topics = nil
	m.rootRefs = nil
	for _, ref := range m.Content.Root().SelectElements("topicref") {
		idx, err := m.discoverRef(ref)
		if err != nil {
			return err
		}
		m.rootRefs = append(m.rootRefs, idx)
	}
	return nil
}

// discoverRef materializes the topic behind one reference entry and returns
// its arena index. Children of hierarchical references are discovered
// depth-first, so arena order equals document order of the references.
func (m *Map) discoverRef(ref *etree.Element) (int, error) {
	href := ref.SelectAttrValue("href", "")
	if href == "" {
		return 0, fmt.Errorf("%w: topicref without href in %s", apperr.ErrMalformed, m.Name)
	}
	topicPath := path.Join(m.Dir, href)
	m.logger.Debug("initializing topic", slog.String("href", href))

	f, err := openFile(m.store, topicPath)
	if err != nil {
		return 0, err
	}

	children := ref.SelectElements("topicref")
	oc := f.Content.Outputclass()
	if oc == "" {
		if len(children) > 0 {
			oc = "context"
		} else {
			oc = f.Content.DetectType()
		}
	}

	t := &Topic{File: f, Type: ClassifyOutputclass(oc), Outputclass: oc}
	t.Content.SetOutputclass(oc)
	t.Content.InsertShortdesc()
	t.resolveImages(m.Images)

	if m.Provenance == ProvenanceCheetah {
		auxPath := strings.TrimSuffix(topicPath, DocExt) + AuxExt
		if !m.store.Exists(auxPath) {
			return 0, &apperr.MissingAuxRecordError{TopicPath: topicPath}
		}
		aux, err := openAuxRecord(m.store, auxPath)
		if err != nil {
			return 0, err
		}
		t.Aux = aux
	}

	idx := len(m.Topics)
	m.Topics = append(m.Topics, t)

	for _, child := range children {
		childIdx, err := m.discoverRef(child)
		if err != nil {
			return 0, err
		}
		t.Children = append(t.Children, childIdx)
	}
	return idx, nil
}

// Refresh rebuilds the image and topic sets from disk.
func (m *Map) Refresh() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.discoverImages(); err != nil {
		return err
	}
	return m.discoverTopics()
}

// TopicByPath returns the topic with the given project-relative path.
func (m *Map) TopicByPath(relPath string) (*Topic, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.topicByPath(relPath)
}

// topicByPath is the lookup behind TopicByPath; callers hold m.mu.
func (m *Map) topicByPath(relPath string) (*Topic, bool) {
	for _, t := range m.Topics {
		if t.Path == relPath {
			return t, true
		}
	}
	return nil, false
}

// ProblematicFiles returns the topics that need review (missing shortdesc,
// missing title, or unresolved draft comments), sorted by path.
func (m *Map) ProblematicFiles() []*Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Topic
	for _, t := range m.Topics {
		if t.Problematic() {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j].File) })
	return out
}

// ProblemInfo is a value snapshot of one problematic topic, safe to use
// after the map lock is released.
type ProblemInfo struct {
	Path  string
	Title string
	Flags ProblemFlags
}

// Problems reports the review findings as value snapshots, sorted by path.
func (m *Map) Problems() []ProblemInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ProblemInfo
	for _, t := range m.Topics {
		flags := t.Problems()
		if !flags.ShortdescMissing && !flags.TitleMissing && !flags.DraftComments {
			continue
		}
		out = append(out, ProblemInfo{Path: t.Path, Title: t.Content.Title(), Flags: flags})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// TopicCount returns the number of discovered topics.
func (m *Map) TopicCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Topics)
}

// ImageHrefs returns a sorted snapshot of the canonical image hrefs.
func (m *Map) ImageHrefs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.Images))
	for href := range m.Images {
		out = append(out, href)
	}
	sort.Strings(out)
	return out
}

// ImageTitles returns a snapshot of the canonical image set as href to
// title.
func (m *Map) ImageTitles() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.Images))
	for href, img := range m.Images {
		out[href] = img.Title
	}
	return out
}

// updateTopicref rewrites the map's reference entries from old to new and
// persists the map.
func (m *Map) updateTopicref(old, new string) error {
	if old == new {
		m.logger.Info("nothing to rename in map", slog.String("href", old))
		return nil
	}
	for _, ref := range m.Content.Root().FindElements("//topicref") {
		if ref.SelectAttrValue("href", "") == old {
			ref.CreateAttr("href", new)
		}
	}
	return m.Write()
}

// updateTopicrefType sets the type attribute on the reference entries for
// the given href and persists the map. Used after casts.
func (m *Map) updateTopicrefType(href, refType string) error {
	for _, ref := range m.Content.Root().FindElements("//topicref") {
		if ref.SelectAttrValue("href", "") == href {
			ref.CreateAttr("type", refType)
		}
	}
	return m.Write()
}
