package project

import (
	"log/slog"
	"path"
	"strconv"
)

// RenameTopics renames every recognized document to its canonical name and
// propagates each rename across the project: the file on disk, every other
// topic's local links, the map's reference entry, and the paired sidecar
// record. Duplicate titles get 1-based numeric suffixes, first occurrence
// unsuffixed. Per-topic failures are logged and skipped; the pass continues
// in map reference order. Returns the number of renamed topics.
func (m *Map) RenameTopics() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	renamed := 0
	repetitions := make(map[string]int)
	for _, t := range m.Topics {
		if !docKinds[t.Content.Root().Tag] {
			continue
		}
		title := t.Content.Title()
		repetitions[title]++
		if m.renameTopic(t, repetitions[title]) {
			renamed++
		}
	}
	return renamed
}

// renameTopic applies one topic's rename and its propagation. Reports
// whether the file actually moved. Propagation to sibling topics happens
// strictly after the topic's own rename succeeded.
func (m *Map) renameTopic(t *Topic, numRep int) bool {
	if t.Type == TypeLegal {
		t.Content.AddLegalTitleAndShortdesc()
		if err := t.Write(); err != nil {
			m.logger.Warn("legal boilerplate write failed",
				slog.String("topic", t.Path), slog.String("error", err.Error()))
		}
	}

	if t.Content.TitleMissing() {
		m.logger.Info("skipped, title missing", slog.String("topic", t.Name))
		return false
	}

	newBase := t.canonicalName(numRep)
	if newBase == t.Basename {
		m.logger.Info("skipped, nothing to rename", slog.String("topic", t.Name))
		return false
	}

	oldName := t.Name
	oldPath := t.Path
	newName := newBase + t.Ext
	newPath := path.Join(t.Dir, newName)

	if m.store.Exists(newPath) {
		m.logger.Warn("new path already exists, skipping",
			slog.String("topic", oldName), slog.String("target", newPath))
		return false
	}
	if err := m.store.Move(oldPath, newPath); err != nil {
		m.logger.Warn("rename failed",
			slog.String("topic", oldName), slog.String("error", err.Error()))
		return false
	}
	t.setPath(newPath)
	m.logger.Info("renamed", slog.String("from", oldPath), slog.String("to", newPath))

	// Update links to this file in every map topic.
	for _, other := range m.Topics {
		if !other.Content.UpdateLocalLinks(oldName, newName) {
			continue
		}
		if err := other.Write(); err != nil {
			m.logger.Warn("link update write failed",
				slog.String("topic", other.Path), slog.String("error", err.Error()))
		}
	}

	if err := m.updateTopicref(oldName, newName); err != nil {
		m.logger.Warn("map reference update failed",
			slog.String("href", oldName), slog.String("error", err.Error()))
	}

	if t.Aux != nil {
		if err := t.Aux.renameWithBase(newBase); err != nil {
			m.logger.Warn("sidecar rename failed",
				slog.String("record", t.Aux.Path), slog.String("error", err.Error()))
		}
	}
	return true
}

// EditImageNames renames every image referenced by at least one topic to
// its generated canonical name and rewrites the referencing topics' image
// hrefs. Source==target and existing targets are logged and skipped; the
// pass continues.
func (m *Map) EditImageNames(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Disambiguate duplicate titles across distinct images: first keeps
	// the bare title, later ones get strictly increasing suffixes.
	titles := make(map[string]int)
	uses := make(map[string][]*Topic)
	var order []string
	for _, t := range m.Topics {
		for _, href := range t.ImageHrefs {
			if _, seen := uses[href]; !seen {
				order = append(order, href)
				img := m.Images[href]
				if img.Title != "" {
					titles[img.Title]++
					if n := titles[img.Title]; n > 1 {
						img.DisplayTitle = img.Title + " " + strconv.Itoa(n)
					} else {
						img.DisplayTitle = img.Title
					}
				}
			}
			uses[href] = append(uses[href], t)
		}
	}

	for _, href := range order {
		img := m.Images[href]
		newName := img.GenerateName(prefix)
		currentPath := path.Join(m.Dir, img.Href)
		newPath := path.Join(m.ImageFolder, newName)

		if currentPath == newPath {
			m.logger.Debug("image already renamed", slog.String("path", currentPath))
			continue
		}
		if !m.store.Exists(currentPath) {
			m.logger.Warn("image file to rename not found, skipping", slog.String("path", currentPath))
			continue
		}
		if m.store.Exists(newPath) {
			m.logger.Warn("file with the new name already exists, skipping", slog.String("path", newPath))
			continue
		}
		if err := m.store.Move(currentPath, newPath); err != nil {
			m.logger.Warn("image rename failed",
				slog.String("path", currentPath), slog.String("error", err.Error()))
			continue
		}

		newHref := newName
		if m.ImageFolder != m.Dir {
			newHref = path.Base(m.ImageFolder) + "/" + newName
		}
		m.logger.Info("renamed image", slog.String("from", img.Href), slog.String("to", newHref))

		for _, t := range uses[href] {
			for _, imgTag := range t.Content.ImageRefs() {
				if imgTag.SelectAttrValue("href", "") != img.Href {
					continue
				}
				imgTag.CreateAttr("href", newHref)
			}
			for i, h := range t.ImageHrefs {
				if h == img.Href {
					t.ImageHrefs[i] = newHref
				}
			}
			if err := t.Write(); err != nil {
				m.logger.Warn("image reference write failed",
					slog.String("topic", t.Path), slog.String("error", err.Error()))
			}
		}

		// Re-key the canonical set under the new href.
		delete(m.Images, img.Href)
		img.Href = newHref
		m.Images[newHref] = img
	}
}
