package index

import (
	"log/slog"
	"time"

	"github.com/mkorneva/ditakeeper/internal/checksum"
	"github.com/mkorneva/ditakeeper/internal/dita"
	"github.com/mkorneva/ditakeeper/internal/project"
	"github.com/mkorneva/ditakeeper/internal/storage"
)

// Sync walks the project and brings the index up to date:
//   - new/changed topic files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("", project.DocExt)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteTopic(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// SyncImages projects a loaded map's canonical image set into the index and
// drops rows for assets the map no longer carries.
func SyncImages(db *DB, m *project.Map, logger *slog.Logger) {
	titles := m.ImageTitles()
	for href, title := range titles {
		if err := db.UpsertImage(href, title); err != nil {
			logger.Warn("sync: image upsert failed", slog.String("href", href), slog.String("error", err.Error()))
		}
	}

	indexed, err := db.imageHrefs()
	if err != nil {
		logger.Warn("sync: image listing failed", slog.String("error", err.Error()))
		return
	}
	for _, href := range indexed {
		if _, ok := titles[href]; ok {
			continue
		}
		if err := db.DeleteImage(href); err != nil {
			logger.Warn("sync: image delete failed", slog.String("href", href), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale image", slog.String("href", href))
		}
	}
}

// indexFile parses topic data and upserts it into the DB.
func indexFile(db *DB, path string, data []byte) error {
	content, err := dita.Parse(data)
	if err != nil {
		return err
	}

	oc := content.Outputclass()
	if oc == "" {
		oc = content.DetectType()
	}

	row := TopicRow{
		Path:             path,
		Title:            content.Title(),
		Type:             project.ClassifyOutputclass(oc).String(),
		Checksum:         checksum.Sum(data),
		ShortdescMissing: content.ShortdescMissing(),
		DraftComments:    content.HasDraftComments(),
		UpdatedAt:        time.Now(),
	}
	return db.UpsertTopic(row, content.PlainText(), content.LocalLinks())
}
