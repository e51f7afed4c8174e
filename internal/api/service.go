package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mkorneva/ditakeeper/internal/apperr"
	"github.com/mkorneva/ditakeeper/internal/checksum"
	"github.com/mkorneva/ditakeeper/internal/dita"
	"github.com/mkorneva/ditakeeper/internal/index"
	"github.com/mkorneva/ditakeeper/internal/project"
	"github.com/mkorneva/ditakeeper/internal/storage"
)

// topicCacheSize bounds the LRU of rendered topic details.
const topicCacheSize = 256

// Service coordinates the project core, storage, and index for the API
// layer.
type Service struct {
	mp     *project.Map
	store  storage.Provider
	db     *index.DB
	logger *slog.Logger

	// cache holds rendered topic details keyed by path+checksum, so a
	// changed file never serves a stale entry.
	cache *lru.Cache[string, *TopicDetail]
}

// NewService creates a new API service.
func NewService(mp *project.Map, store storage.Provider, db *index.DB, logger *slog.Logger) *Service {
	cache, _ := lru.New[string, *TopicDetail](topicCacheSize)
	return &Service{mp: mp, store: store, db: db, logger: logger, cache: cache}
}

// TopicDetail is the full representation of a topic.
type TopicDetail struct {
	Path             string    `json:"path"`
	Title            string    `json:"title"`
	Type             string    `json:"type"`
	Shortdesc        string    `json:"shortdesc,omitempty"`
	Content          string    `json:"content"`
	Checksum         string    `json:"checksum"`
	Links            []string  `json:"links"`
	Backlinks        []string  `json:"backlinks"`
	Images           []string  `json:"images"`
	ShortdescMissing bool      `json:"shortdesc_missing"`
	DraftComments    bool      `json:"draft_comments"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProjectSummary describes the loaded map.
type ProjectSummary struct {
	Map         string   `json:"map"`
	Provenance  string   `json:"provenance"`
	ImageFolder string   `json:"image_folder,omitempty"`
	TopicCount  int      `json:"topic_count"`
	ImageCount  int      `json:"image_count"`
	Images      []string `json:"images"`
}

// Problem is one review finding.
type Problem struct {
	Path             string `json:"path"`
	Title            string `json:"title,omitempty"`
	ShortdescMissing bool   `json:"shortdesc_missing"`
	TitleMissing     bool   `json:"title_missing"`
	DraftComments    bool   `json:"draft_comments"`
}

// Summary returns the loaded project's shape. Counts and hrefs come from
// the map's locking snapshot accessors, so a concurrent rename pass cannot
// be observed mid-mutation.
func (s *Service) Summary(_ context.Context) ProjectSummary {
	images := s.mp.ImageHrefs()
	return ProjectSummary{
		Map:         s.mp.Name,
		Provenance:  string(s.mp.Provenance),
		ImageFolder: s.mp.ImageFolder,
		TopicCount:  s.mp.TopicCount(),
		ImageCount:  len(images),
		Images:      images,
	}
}

// ListTopics returns every indexed topic.
func (s *Service) ListTopics(_ context.Context) ([]index.TopicRow, error) {
	return s.db.ListTopics()
}

// GetTopic reads a topic from storage, parses it, and enriches it with
// backlinks. Unchanged topics are served from the LRU cache.
func (s *Service) GetTopic(_ context.Context, path string) (*TopicDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	cs := checksum.Sum(data)
	key := path + "\x00" + cs
	if detail, ok := s.cache.Get(key); ok {
		return detail, nil
	}

	content, err := dita.Parse(data)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(lastSegment(path))
	if err != nil {
		return nil, err
	}

	oc := content.Outputclass()
	if oc == "" {
		oc = content.DetectType()
	}
	var images []string
	for _, imgTag := range content.ImageRefs() {
		if href := imgTag.SelectAttrValue("href", ""); href != "" {
			images = append(images, href)
		}
	}

	detail := &TopicDetail{
		Path:             path,
		Title:            content.Title(),
		Type:             project.ClassifyOutputclass(oc).String(),
		Shortdesc:        content.Shortdesc(),
		Content:          string(data),
		Checksum:         cs,
		Links:            nonNilSlice(content.LocalLinks()),
		Backlinks:        nonNilSlice(bl),
		Images:           nonNilSlice(images),
		ShortdescMissing: content.ShortdescMissing(),
		DraftComments:    content.HasDraftComments(),
		UpdatedAt:        time.Now(),
	}
	s.cache.Add(key, detail)
	return detail, nil
}

// Problems reports the topics needing review, straight from the map.
func (s *Service) Problems(_ context.Context) []Problem {
	infos := s.mp.Problems()
	out := make([]Problem, len(infos))
	for i, info := range infos {
		out[i] = Problem{
			Path:             info.Path,
			Title:            info.Title,
			ShortdescMissing: info.Flags.ShortdescMissing,
			TitleMissing:     info.Flags.TitleMissing,
			DraftComments:    info.Flags.DraftComments,
		}
	}
	return out
}

// RenameTopics runs the canonical-name pass over the whole map and
// refreshes the index.
func (s *Service) RenameTopics(_ context.Context) (int, error) {
	renamed := s.mp.RenameTopics()
	s.afterMutation()
	return renamed, nil
}

// RenameImages renames assets to their generated names and refreshes the
// index.
func (s *Service) RenameImages(_ context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("prefix is required")
	}
	s.mp.EditImageNames(prefix)
	s.afterMutation()
	return nil
}

// CastTopic casts one topic to the target variant.
func (s *Service) CastTopic(_ context.Context, path, target string) error {
	semType, ok := project.ParseSemanticType(target)
	if !ok {
		return fmt.Errorf("%w: unknown semantic type %q", apperr.ErrMalformed, target)
	}
	if err := s.mp.CastTopicTo(path, semType); err != nil {
		return err
	}
	s.afterMutation()
	return nil
}

// CreateRootConcept materializes a new root concept over the map.
func (s *Service) CreateRootConcept(_ context.Context, title string) error {
	if err := s.mp.CreateRootConcept(title); err != nil {
		return err
	}
	s.afterMutation()
	return nil
}

// AddTopicGroups regroups the map's reference entries.
func (s *Service) AddTopicGroups(_ context.Context) error {
	if err := s.mp.AddTopicGroups(); err != nil {
		return err
	}
	s.afterMutation()
	return nil
}

// MassEdit applies the canned short descriptions.
func (s *Service) MassEdit(_ context.Context) ([]string, error) {
	processed := s.mp.MassEdit()
	s.afterMutation()
	return processed, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Graph returns all nodes and links for graph visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.Graph()
}

// Backlinks returns all topic paths that link to the given target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	return s.db.Backlinks(target)
}

// afterMutation re-syncs the index with the mutated project and drops the
// topic cache.
func (s *Service) afterMutation() {
	if err := index.Sync(s.db, s.store, s.logger); err != nil {
		s.logger.Warn("post-operation sync failed", slog.String("error", err.Error()))
	}
	index.SyncImages(s.db, s.mp, s.logger)
	s.cache.Purge()
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
