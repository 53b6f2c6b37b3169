package index

import (
	"database/sql"
	"strings"

	"github.com/starford/fitch/internal/logic"
)

const (
	defaultSearchLimit = 20
	snippetMax         = 120
)

// searchTerm rewrites a query that parses as a formula into its canonical
// spelling, which is how formulas are stored in the searchable text. Anything
// else is searched as typed.
func searchTerm(query string) string {
	query = strings.TrimSpace(query)
	if e, err := logic.Parse(query); err == nil {
		return e.String()
	}
	return query
}

// snippet returns the first line of body containing term, compared without
// case, cut to snippetMax runes.
func snippet(body, term string) string {
	lower := strings.ToLower(term)
	lines := strings.Split(body, "\n")
	line := lines[0]
	for _, l := range lines {
		if strings.Contains(strings.ToLower(l), lower) {
			line = l
			break
		}
	}
	if r := []rune(line); len(r) > snippetMax {
		return string(r[:snippetMax]) + "..."
	}
	return line
}

// scanHits reads id, path, title and snippet columns.
func scanHits(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
