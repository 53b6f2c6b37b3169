// Package testutil provides shared test helpers for setting up document
// stores, databases and services.
package testutil

import (
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/starford/fitch/internal/index"
	"github.com/starford/fitch/internal/storage"
)

// Demo is a complete, valid document: ∧ Intro, then → Intro over a
// sub-proof that reiterates the conjunction.
const Demo = `title: Conjunction then implication
premises: ["A", "B"]
lines:
  - {expr: "A & B", rule: and_intro, deps: [1, 2]}
  - subproof:
      premises: ["C"]
      lines:
        - {expr: "A & B", rule: reiteration, deps: [3]}
  - {expr: "C -> (A & B)", rule: imp_intro, subproof_deps: ["4-5"]}
`

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "fitch-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary document directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Logger returns a logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Events records published document events.
type Events struct {
	mu   sync.Mutex
	list []string
}

// PublishDocumentEvent records kind:id.
func (e *Events) PublishDocumentEvent(kind, id string) {
	e.mu.Lock()
	e.list = append(e.list, kind+":"+id)
	e.mu.Unlock()
}

// List returns the recorded events in order.
func (e *Events) List() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.list...)
}
