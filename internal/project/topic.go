package project

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/mkorneva/ditakeeper/internal/apperr"
	"github.com/mkorneva/ditakeeper/internal/storage"
)

// Topic is one semantically-typed content document owned by its Map.
type Topic struct {
	*File

	Type        SemanticType
	Outputclass string

	// ImageHrefs reference the map's canonical image set, in the order
	// the topic first uses each image.
	ImageHrefs []string

	// Children holds arena indices into Map.Topics; non-empty only for
	// hierarchical (context) topics.
	Children []int

	// Aux is the paired sidecar record, present only under Cheetah
	// provenance.
	Aux *AuxRecord
}

// ProblemFlags describes why a topic needs review.
type ProblemFlags struct {
	ShortdescMissing bool
	TitleMissing     bool
	DraftComments    bool
}

// Problems reports the review flags for the topic.
func (t *Topic) Problems() ProblemFlags {
	return ProblemFlags{
		ShortdescMissing: t.Content.ShortdescMissing(),
		TitleMissing:     t.Content.TitleMissing(),
		DraftComments:    t.Content.HasDraftComments(),
	}
}

// Problematic reports whether any review flag is raised.
func (t *Topic) Problematic() bool {
	p := t.Problems()
	return p.ShortdescMissing || p.TitleMissing || p.DraftComments
}

// The rename rules below mirror the style guide exactly, including two
// deliberate edge cases kept under their own names: a literal placeholder
// title that must never produce a rename, and a strip of a single leading
// character separated by an underscore.

// placeholderTitle is the literal title value that leaves a file unrenamed.
const placeholderTitle = "Rev"

var spaceOrPunctRe = regexp.MustCompile(`[\s\W]`)

// canonicalName derives the style-guide file name (without extension) from
// the topic's title. Degenerate titles return the current base name, which
// callers treat as "nothing to rename". numRep is the 1-based repetition
// index of the title across the map; the first occurrence is unsuffixed.
func (t *Topic) canonicalName(numRep int) string {
	name := spaceOrPunctRe.ReplaceAllString(t.Content.Title(), "_")
	name = strings.ReplaceAll(name, "___", "_")
	name = strings.ReplaceAll(name, "__", "_")
	name = strings.ReplaceAll(name, "_the_", "_")
	name = nonWordRe.ReplaceAllString(name, "")

	if name == placeholderTitle || len(name) < 2 {
		return t.Basename
	}
	name = strings.TrimSuffix(name, "_")
	if len(name) > 1 && name[1] == '_' {
		// Single leading character: "A_Title" becomes "Title".
		name = name[2:]
	}

	if prefix, ok := prefixes[t.Outputclass]; ok {
		name = prefix + name
	}
	if numRep > 1 {
		name += "_" + strconv.Itoa(numRep)
	}
	return name
}

// CastTo rewrites the topic's root tag, content container, classification
// attribute, and DOCTYPE to the target variant and persists the result.
// Casting to the current variant is idempotent: it rewrites the same values
// and re-serializes. When the tree has no content container the cast fails
// with ErrMalformed and nothing is written.
func (t *Topic) CastTo(target SemanticType) error {
	var err error
	switch target {
	case TypeTask:
		err = t.Content.ConvertToTask()
	case TypeReference, TypeLegal:
		err = t.Content.ConvertToReference()
	default:
		err = t.Content.ConvertToConcept()
	}
	if err != nil {
		return fmt.Errorf("cast %s to %s: %w", t.Name, target, err)
	}
	t.Type = target
	t.Outputclass = outputclassFor(target)
	t.Content.SetOutputclass(t.Outputclass)
	return t.Write()
}

// Cast re-applies the topic's discovered variant, used when normalizing a
// Word-derived project whose files still carry generic topic shapes.
func (t *Topic) Cast() error {
	return t.CastTo(t.Type)
}

// resolveImages matches the topic's figures against the map's canonical
// image set, annotates titles on first use, keeps alt texts in sync, and
// records the hrefs this topic references.
func (t *Topic) resolveImages(images map[string]*Image) {
	seen := make(map[string]struct{})
	for _, fig := range t.Content.Figures() {
		imgTag := fig.SelectElement("image")
		if imgTag == nil {
			continue
		}
		href := imgTag.SelectAttrValue("href", "")
		if href == "" {
			continue
		}

		alt := imgTag.SelectElement("alt")
		if alt == nil {
			alt = imgTag.CreateElement("alt")
		}
		alt.SetText("\u00a0")

		for _, img := range images {
			if href != img.Href && lastSegment(href) != img.Href {
				continue
			}
			if figTitle := fig.SelectElement("title"); figTitle != nil {
				if title := strings.TrimSpace(figTitle.Text()); title != "" {
					if img.Title == "" {
						img.Title = title
					}
					alt.SetText(title)
				}
			}
			if _, dup := seen[img.Href]; !dup {
				seen[img.Href] = struct{}{}
				t.ImageHrefs = append(t.ImageHrefs, img.Href)
			}
		}
	}
}

func lastSegment(href string) string {
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}

// AuxRecord is the per-topic sidecar metadata file (ISH) kept in name-sync
// with its topic under Cheetah provenance.
type AuxRecord struct {
	*File
}

// openAuxRecord parses the sidecar record and verifies its root element.
func openAuxRecord(store storage.Provider, relPath string) (*AuxRecord, error) {
	f, err := openFile(store, relPath)
	if err != nil {
		return nil, err
	}
	if err := f.Content.CheckIshObject(); err != nil {
		return nil, fmt.Errorf("%s: %w", relPath, err)
	}
	return &AuxRecord{File: f}, nil
}

// renameWithBase renames the record to the topic's new base name and keeps
// its FTITLE field in sync.
func (a *AuxRecord) renameWithBase(newBase string) error {
	newPath := path.Join(a.Dir, newBase+a.Ext)
	if newPath == a.Path {
		return nil
	}
	if a.store.Exists(newPath) {
		return fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, newPath)
	}
	a.Content.SetFTitle(newBase)
	if err := a.store.Move(a.Path, newPath); err != nil {
		return err
	}
	a.setPath(newPath)
	return a.Write()
}
