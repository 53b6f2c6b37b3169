//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the documents.body column is searched directly.
func initFTS(*sql.DB) error { return nil }

func ftsUpsert(*sql.Tx, string, string, string) error { return nil }

func ftsDelete(*sql.Tx, string) {}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches titles and formulas by substring, newest first.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	term := searchTerm(query)
	like := "%" + likeEscaper.Replace(term) + "%"
	rows, err := db.conn.Query(`
		SELECT id, path, title, body
		FROM documents
		WHERE title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC, path
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	hits, err := scanHits(rows)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	for i := range hits {
		hits[i].Snippet = snippet(hits[i].Snippet, term)
	}
	return hits, nil
}
