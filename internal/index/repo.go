package index

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/fitch/internal/apperr"
	"github.com/starford/fitch/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertDocument inserts or replaces a catalogue entry, its FTS entry and its
// rule usage within a transaction. body is the searchable text.
func (db *DB) UpsertDocument(d models.Document, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (path, id, title, checksum, premises, steps, subproofs, valid, invalid, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			id         = excluded.id,
			title      = excluded.title,
			checksum   = excluded.checksum,
			premises   = excluded.premises,
			steps      = excluded.steps,
			subproofs  = excluded.subproofs,
			valid      = excluded.valid,
			invalid    = excluded.invalid,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.Path, d.ID, d.Title, d.Checksum, d.Premises, d.Steps, d.Subproofs, d.Valid, d.Invalid, body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d.Path, d.Title, body); err != nil {
		return err
	}

	_, _ = tx.Exec(`DELETE FROM document_rules WHERE path = ?`, d.Path)
	if len(d.Rules) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO document_rules (path, rule_id) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare rule insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range d.Rules {
			if _, err := stmt.Exec(d.Path, r); err != nil {
				return fmt.Errorf("index: insert rule: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a catalogue entry, its FTS entry and its rule usage.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM document_rules WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

const selectDocument = `
	SELECT d.path, d.id, d.title, d.checksum, d.premises, d.steps, d.subproofs, d.valid, d.invalid, d.updated_at,
	       (SELECT group_concat(r.rule_id, ',') FROM document_rules r WHERE r.path = d.path)
	FROM documents d`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (models.Document, error) {
	var d models.Document
	var rules sql.NullString
	err := s.Scan(&d.Path, &d.ID, &d.Title, &d.Checksum, &d.Premises, &d.Steps, &d.Subproofs,
		&d.Valid, &d.Invalid, &d.UpdatedAt, &rules)
	if err != nil {
		return d, err
	}
	if rules.Valid && rules.String != "" {
		d.Rules = strings.Split(rules.String, ",")
		slices.Sort(d.Rules)
	}
	return d, nil
}

// GetDocument returns the catalogue entry stored for path.
func (db *DB) GetDocument(path string) (*models.Document, error) {
	d, err := scanDocument(db.conn.QueryRow(selectDocument+` WHERE d.path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &d, nil
}

// GetDocumentByID returns the catalogue entry whose id is id.
func (db *DB) GetDocumentByID(id string) (*models.Document, error) {
	d, err := scanDocument(db.conn.QueryRow(selectDocument+` WHERE d.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document id %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document by id: %w", err)
	}
	return &d, nil
}

var sortOrders = map[string]string{
	"":        "d.updated_at DESC, d.path",
	"updated": "d.updated_at DESC, d.path",
	"title":   "d.title COLLATE NOCASE, d.path",
	"invalid": "d.invalid DESC, d.path",
	"path":    "d.path",
}

// ListDocuments returns a page of catalogue entries and the total count.
// rule, when set, keeps only documents citing that rule id. sort is one of
// updated (default), title, invalid, path.
func (db *DB) ListDocuments(limit, offset int, rule, sort string) ([]models.Document, int, error) {
	order, ok := sortOrders[sort]
	if !ok {
		return nil, 0, fmt.Errorf("index: unknown sort %q: %w", sort, apperr.ErrInvalidOperation)
	}
	if limit <= 0 {
		limit = 50
	}

	where := ""
	var args []any
	if rule != "" {
		where = ` WHERE d.path IN (SELECT path FROM document_rules WHERE rule_id = ?)`
		args = append(args, rule)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents d`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(selectDocument+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// RuleUsage returns how many documents cite each rule id.
func (db *DB) RuleUsage() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT rule_id, count(*) FROM document_rules GROUP BY rule_id`)
	if err != nil {
		return nil, fmt.Errorf("index: rule usage: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
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
