//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// documents_fts splits the searchable text into the title and the formulas.
func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			path UNINDEXED,
			title,
			formulas,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, title, body string) error {
	ftsDelete(tx, path)
	formulas := strings.TrimPrefix(strings.TrimPrefix(body, title), "\n")
	if _, err := tx.Exec(`INSERT INTO documents_fts (path, title, formulas) VALUES (?, ?, ?)`, path, title, formulas); err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE path = ?`, path)
}

// phrase quotes term as a single FTS5 phrase so operator symbols and
// parentheses are never read as query syntax.
func phrase(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

// Search runs a ranked FTS5 phrase query over titles and formulas.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	term := searchTerm(query)
	if strings.Trim(term, `" `) == "" {
		return []SearchResult{}, nil
	}
	rows, err := db.conn.Query(`
		SELECT d.id,
		       f.path,
		       f.title,
		       snippet(documents_fts, -1, '<b>', '</b>', '...', 16)
		FROM documents_fts f
		JOIN documents d ON d.path = f.path
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, phrase(term), limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	hits, err := scanHits(rows)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return hits, nil
}
