package index

import (
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/starford/fitch/internal/checksum"
	"github.com/starford/fitch/internal/codec"
	"github.com/starford/fitch/internal/models"
	"github.com/starford/fitch/internal/proof"
	"github.com/starford/fitch/internal/render"
	"github.com/starford/fitch/internal/storage"
)

// Sync walks the store and brings the index up to date:
//   - new/changed files are decoded, verified and upserted
//   - files removed from disk are deleted from the index
func Sync(db DocumentIndex, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
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
		if err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile decodes data and upserts its catalogue entry.
func IndexFile(db DocumentIndex, path string, data []byte) error {
	f, err := codec.Decode(data)
	if err != nil {
		return err
	}
	doc, body := Summarize(path, f.Title, f.Proof)
	doc.Checksum = checksum.Sum(data)
	return db.UpsertDocument(doc, body)
}

// IDFromPath maps a stored file name to its document id.
func IDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), models.Extension)
}

// PathFromID is the inverse of IDFromPath for documents at the store root.
func PathFromID(id string) string { return id + models.Extension }

// Summarize verifies every line of p and returns its catalogue entry, without
// a checksum, and its searchable text.
func Summarize(path, title string, p proof.Proof) (models.Document, string) {
	doc := models.Document{
		ID:        IDFromPath(path),
		Path:      path,
		Title:     title,
		UpdatedAt: time.Now().UTC(),
	}
	var body strings.Builder
	body.WriteString(title)
	for _, row := range render.Rows(p) {
		body.WriteString("\n")
		body.WriteString(row.Expr)
		switch {
		case row.Kind == render.KindPremise:
			doc.Premises++
		case row.Err != nil:
			doc.Steps++
			doc.Invalid++
		default:
			doc.Steps++
			doc.Valid++
		}
		if row.Rule != "" && !slices.Contains(doc.Rules, row.Rule) {
			doc.Rules = append(doc.Rules, row.Rule)
		}
	}
	slices.Sort(doc.Rules)
	doc.Subproofs = countSubproofs(p, p.Root())
	return doc, body.String()
}

func countSubproofs(p proof.Proof, ref proof.SubproofRef) int {
	sp, ok := p.LookupSubproof(ref)
	if !ok {
		return 0
	}
	n := 0
	for _, l := range sp.Lines {
		if s, ok := l.(proof.SubproofRef); ok {
			n += 1 + countSubproofs(p, s)
		}
	}
	return n
}
