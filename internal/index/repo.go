package index

import (
	"database/sql"
	"fmt"
	"time"
)

// TopicRow represents a row in the topics table.
type TopicRow struct {
	Path             string
	Title            string
	Type             string
	Checksum         string
	ShortdescMissing bool
	DraftComments    bool
	UpdatedAt        time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// GraphNode is one topic in the reference graph.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Type  string `json:"type,omitempty"`
}

// GraphLink is a directed reference between two topics.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// UpsertTopic inserts or replaces a topic, its FTS entry, and its outgoing
// links within a transaction.
func (db *DB) UpsertTopic(t TopicRow, body string, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO topics (path, title, type, checksum, shortdesc_missing, draft_comments, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title             = excluded.title,
			type              = excluded.type,
			checksum          = excluded.checksum,
			shortdesc_missing = excluded.shortdesc_missing,
			draft_comments    = excluded.draft_comments,
			body              = excluded.body,
			updated_at        = excluded.updated_at
	`, t.Path, t.Title, t.Type, t.Checksum, t.ShortdescMissing, t.DraftComments, body, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert topic: %w", err)
	}

	if err := ftsUpsert(tx, t.Path, t.Title, body); err != nil {
		return err
	}

	// Replace links: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, t.Path)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(t.Path, target); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteTopic removes a topic, its FTS entry, and its outgoing links.
func (db *DB) DeleteTopic(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM topics WHERE path = ?`, path)

	return tx.Commit()
}

// UpsertImage records an asset and its display title.
func (db *DB) UpsertImage(href, title string) error {
	_, err := db.conn.Exec(`
		INSERT INTO images (href, title) VALUES (?, ?)
		ON CONFLICT(href) DO UPDATE SET title = excluded.title
	`, href, title)
	if err != nil {
		return fmt.Errorf("index: upsert image: %w", err)
	}
	return nil
}

// DeleteImage removes an asset row.
func (db *DB) DeleteImage(href string) error {
	_, err := db.conn.Exec(`DELETE FROM images WHERE href = ?`, href)
	return err
}

// imageHrefs returns every indexed asset href.
func (db *DB) imageHrefs() ([]string, error) {
	rows, err := db.conn.Query(`SELECT href FROM images ORDER BY href`)
	if err != nil {
		return nil, fmt.Errorf("index: image hrefs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListTopics returns every indexed topic ordered by path.
func (db *DB) ListTopics() ([]TopicRow, error) {
	rows, err := db.conn.Query(`
		SELECT path, title, type, checksum, shortdesc_missing, draft_comments, updated_at
		FROM topics ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list topics: %w", err)
	}
	defer rows.Close()
	return scanTopicRows(rows)
}

// Problems returns topics flagged for review, ordered by path.
func (db *DB) Problems() ([]TopicRow, error) {
	rows, err := db.conn.Query(`
		SELECT path, title, type, checksum, shortdesc_missing, draft_comments, updated_at
		FROM topics
		WHERE shortdesc_missing = 1 OR draft_comments = 1 OR title = ''
		ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("index: problems: %w", err)
	}
	defer rows.Close()
	return scanTopicRows(rows)
}

func scanTopicRows(rows *sql.Rows) ([]TopicRow, error) {
	var out []TopicRow
	for rows.Next() {
		var t TopicRow
		if err := rows.Scan(&t.Path, &t.Title, &t.Type, &t.Checksum,
			&t.ShortdescMissing, &t.DraftComments, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every indexed topic.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM topics`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Backlinks returns all topic paths whose links target the given file name.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Graph returns every topic node and reference edge.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	nodeRows, err := db.conn.Query(`SELECT path, title, type FROM topics ORDER BY path`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer nodeRows.Close()

	var nodes []GraphNode
	for nodeRows.Next() {
		var n GraphNode
		if err := nodeRows.Scan(&n.ID, &n.Title, &n.Type); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, nil, err
	}

	linkRows, err := db.conn.Query(`SELECT source, target FROM links ORDER BY source, target`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer linkRows.Close()

	var links []GraphLink
	for linkRows.Next() {
		var l GraphLink
		if err := linkRows.Scan(&l.Source, &l.Target); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, linkRows.Err()
}
