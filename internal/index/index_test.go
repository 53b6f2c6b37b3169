package index

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/fitch/internal/apperr"
	"github.com/starford/fitch/internal/models"
	"github.com/starford/fitch/internal/storage"
)

const sample = `title: Conjunction then implication
premises: ["A", "B"]
lines:
  - {expr: "A & B", rule: and_intro, deps: [1, 2]}
  - subproof:
      premises: ["C"]
      lines:
        - {expr: "A & B", rule: reiteration, deps: [3]}
  - {expr: "C -> (A & B)", rule: imp_intro, subproof_deps: ["4-5"]}
`

const broken = `title: Wrong conjunction
premises: ["A", "B"]
lines:
  - {expr: "A | B", rule: and_intro, deps: [1, 2]}
`

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "fitch-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM document_rules`).Scan(&count); err != nil {
		t.Fatalf("document_rules table missing: %v", err)
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "index.db")
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = db.UpsertDocument(models.Document{ID: "keep", Path: "keep.proof.yaml", Checksum: "k", UpdatedAt: time.Now()}, "")
	db.Close()

	db, err = Open(dsn)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if cs, _ := db.GetChecksum("keep.proof.yaml"); cs != "k" {
		t.Errorf("checksum after reopen = %q, want k", cs)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	doc := models.Document{
		ID:        "hello",
		Path:      "hello.proof.yaml",
		Title:     "Hello",
		Checksum:  "abc123",
		Rules:     []string{"and_intro"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertDocument(doc, "Hello\nA ∧ B"); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksum("hello.proof.yaml")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetDocument(t *testing.T) {
	db := testDB(t)
	doc := models.Document{
		ID:        "d",
		Path:      "d.proof.yaml",
		Title:     "D",
		Checksum:  "1",
		Premises:  2,
		Steps:     3,
		Subproofs: 1,
		Valid:     2,
		Invalid:   1,
		Rules:     []string{"imp_intro", "and_intro"},
		UpdatedAt: time.Now(),
	}
	_ = db.UpsertDocument(doc, "")

	got, err := db.GetDocument("d.proof.yaml")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.ID != "d" || got.Premises != 2 || got.Steps != 3 || got.Subproofs != 1 || got.Invalid != 1 {
		t.Errorf("got %+v", got)
	}
	if len(got.Rules) != 2 || got.Rules[0] != "and_intro" {
		t.Errorf("rules = %v, want sorted [and_intro imp_intro]", got.Rules)
	}
	if got.Complete() {
		t.Error("document with an invalid step reported complete")
	}

	if _, err := db.GetDocument("missing.proof.yaml"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing document error = %v, want ErrNotFound", err)
	}

	byID, err := db.GetDocumentByID("d")
	if err != nil || byID.Path != "d.proof.yaml" {
		t.Errorf("GetDocumentByID = %+v, %v", byID, err)
	}
	if _, err := db.GetDocumentByID("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing id error = %v, want ErrNotFound", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(models.Document{ID: "del", Path: "del.proof.yaml", Checksum: "x", Rules: []string{"reiteration"}, UpdatedAt: time.Now()}, "body")

	if err := db.DeleteDocument("del.proof.yaml"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	cs, _ := db.GetChecksum("del.proof.yaml")
	if cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	usage, _ := db.RuleUsage()
	if usage["reiteration"] != 0 {
		t.Errorf("rule usage after delete = %v", usage)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(models.Document{ID: "up", Path: "up.proof.yaml", Title: "Old", Checksum: "1", Rules: []string{"and_elim"}, UpdatedAt: now}, "old")
	_ = db.UpsertDocument(models.Document{ID: "up", Path: "up.proof.yaml", Title: "New", Checksum: "2", Rules: []string{"or_intro"}, UpdatedAt: now}, "new")

	cs, _ := db.GetChecksum("up.proof.yaml")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	usage, _ := db.RuleUsage()
	if usage["and_elim"] != 0 {
		t.Error("old rule should be removed on upsert")
	}
	if usage["or_intro"] != 1 {
		t.Error("new rule should exist")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.proof.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestListDocuments(t *testing.T) {
	db := testDB(t)
	base := time.Now()
	_ = db.UpsertDocument(models.Document{ID: "b", Path: "b.proof.yaml", Title: "beta", Checksum: "1", Invalid: 0, Rules: []string{"and_intro"}, UpdatedAt: base}, "")
	_ = db.UpsertDocument(models.Document{ID: "a", Path: "a.proof.yaml", Title: "Alpha", Checksum: "2", Invalid: 3, UpdatedAt: base.Add(time.Minute)}, "")
	_ = db.UpsertDocument(models.Document{ID: "c", Path: "c.proof.yaml", Title: "gamma", Checksum: "3", Invalid: 1, Rules: []string{"and_intro", "imp_elim"}, UpdatedAt: base.Add(2 * time.Minute)}, "")

	tests := []struct {
		sort string
		rule string
		want []string
	}{
		{"", "", []string{"c", "a", "b"}},
		{"title", "", []string{"a", "b", "c"}},
		{"invalid", "", []string{"a", "c", "b"}},
		{"path", "", []string{"a", "b", "c"}},
		{"path", "and_intro", []string{"b", "c"}},
	}
	for _, tt := range tests {
		docs, total, err := db.ListDocuments(10, 0, tt.rule, tt.sort)
		if err != nil {
			t.Fatalf("ListDocuments(%q, %q): %v", tt.rule, tt.sort, err)
		}
		if total != len(tt.want) || len(docs) != len(tt.want) {
			t.Fatalf("ListDocuments(%q, %q) total = %d, len = %d, want %d", tt.rule, tt.sort, total, len(docs), len(tt.want))
		}
		for i, id := range tt.want {
			if docs[i].ID != id {
				t.Errorf("ListDocuments(%q, %q)[%d] = %s, want %s", tt.rule, tt.sort, i, docs[i].ID, id)
			}
		}
	}

	docs, total, _ := db.ListDocuments(1, 1, "", "path")
	if total != 3 || len(docs) != 1 || docs[0].ID != "b" {
		t.Errorf("paged list = %+v (total %d)", docs, total)
	}

	if _, _, err := db.ListDocuments(10, 0, "", "bogus"); !errors.Is(err, apperr.ErrInvalidOperation) {
		t.Errorf("unknown sort error = %v, want ErrInvalidOperation", err)
	}
}

func TestRuleUsage(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(models.Document{ID: "x", Path: "x.proof.yaml", Checksum: "1", Rules: []string{"and_intro", "or_elim"}, UpdatedAt: time.Now()}, "")
	_ = db.UpsertDocument(models.Document{ID: "y", Path: "y.proof.yaml", Checksum: "2", Rules: []string{"and_intro"}, UpdatedAt: time.Now()}, "")

	usage, err := db.RuleUsage()
	if err != nil {
		t.Fatalf("RuleUsage: %v", err)
	}
	if usage["and_intro"] != 2 || usage["or_elim"] != 1 {
		t.Errorf("usage = %v", usage)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(models.Document{ID: "s", Path: "s.proof.yaml", Title: "Search Me", Checksum: "1", UpdatedAt: time.Now()}, "Search Me\nuniqueword")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.proof.yaml" || results[0].ID != "s" {
		t.Errorf("search results = %+v, want 1 hit for s.proof.yaml", results)
	}
}

func TestSearch_FormulaSpelling(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(models.Document{ID: "mp", Path: "mp.proof.yaml", Title: "Modus ponens", Checksum: "1", UpdatedAt: time.Now()}, "Modus ponens\nA → B\nA\nB")
	_ = db.UpsertDocument(models.Document{ID: "other", Path: "other.proof.yaml", Title: "Other", Checksum: "2", UpdatedAt: time.Now()}, "Other\nC ∨ D")

	results, err := db.Search("A -> B", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "mp" {
		t.Fatalf("results = %+v, want the mp document", results)
	}
	if !strings.Contains(results[0].Snippet, "→") {
		t.Errorf("snippet = %q, want the matching formula", results[0].Snippet)
	}

	if results, err := db.Search("zzz", 10); err != nil || results == nil || len(results) != 0 {
		t.Errorf("no-hit search = %v, %v; want empty non-nil slice", results, err)
	}
}

func TestSearchTerm(t *testing.T) {
	tests := []struct{ in, want string }{
		{"A -> B", "A → B"},
		{"  ~P | Q ", "¬P ∨ Q"},
		{"modus ponens", "modus ponens"},
		{"(A", "(A"},
	}
	for _, tt := range tests {
		if got := searchTerm(tt.in); got != tt.want {
			t.Errorf("searchTerm(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSnippet(t *testing.T) {
	body := "Title\nA ∧ B\nC → D"
	if got := snippet(body, "c → d"); got != "C → D" {
		t.Errorf("snippet = %q", got)
	}
	if got := snippet(body, "title"); got != "Title" {
		t.Errorf("snippet = %q", got)
	}
	long := strings.Repeat("x", snippetMax+10)
	if got := snippet(long, "x"); !strings.HasSuffix(got, "...") || len([]rune(got)) != snippetMax+3 {
		t.Errorf("long snippet = %q", got)
	}
}

func TestSummarize(t *testing.T) {
	db := testDB(t)
	if err := IndexFile(db, "nested/demo.proof.yaml", []byte(sample)); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	got, err := db.GetDocument("nested/demo.proof.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "demo" || got.Title != "Conjunction then implication" {
		t.Errorf("identity = %q %q", got.ID, got.Title)
	}
	if got.Premises != 3 || got.Steps != 3 || got.Subproofs != 1 || got.Valid != 3 || got.Invalid != 0 {
		t.Errorf("counts = %+v", got)
	}
	if !got.Complete() {
		t.Error("valid document not complete")
	}
	want := []string{"and_intro", "imp_intro", "reiteration"}
	if len(got.Rules) != len(want) {
		t.Fatalf("rules = %v, want %v", got.Rules, want)
	}
	for i := range want {
		if got.Rules[i] != want[i] {
			t.Errorf("rules = %v, want %v", got.Rules, want)
		}
	}
}

func TestIndexFile_Rejects(t *testing.T) {
	db := testDB(t)
	err := IndexFile(db, "bad.proof.yaml", []byte("premises: []\nlines: []\n"))
	if !errors.Is(err, apperr.ErrInvalidDocument) {
		t.Errorf("err = %v, want ErrInvalidDocument", err)
	}
	if cs, _ := db.GetChecksum("bad.proof.yaml"); cs != "" {
		t.Error("rejected file was indexed")
	}
}

func TestSync(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_ = os.WriteFile(filepath.Join(dir, "good.proof.yaml"), []byte(sample), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "broken.proof.yaml"), []byte(broken), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)
	_ = db.UpsertDocument(models.Document{ID: "stale", Path: "stale.proof.yaml", Checksum: "s", UpdatedAt: time.Now()}, "")

	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	all, _ := db.AllChecksums()
	if len(all) != 2 {
		t.Errorf("indexed = %v, want good and broken", all)
	}
	if _, ok := all["stale.proof.yaml"]; ok {
		t.Error("stale entry survived sync")
	}
	b, err := db.GetDocument("broken.proof.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if b.Invalid != 1 || b.Complete() {
		t.Errorf("broken = %+v, want one invalid step", b)
	}
}
