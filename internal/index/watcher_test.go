package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/fitch/internal/storage"
)

// watcherTestEnv sets up a document dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	dbFile, err := os.CreateTemp("", "fitch-watcher-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return root, store, db
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, root, logger, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "new.proof.yaml"), []byte(sample), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("new.proof.yaml")
		return cs != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.proof.yaml" {
				return true
			}
		}
		return false
	}, "expected created:new.proof.yaml callback")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, logger, nil)

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(root, "subdir")
	_ = os.MkdirAll(subDir, 0o755)

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.proof.yaml"), []byte(sample), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(filepath.Join("subdir", "deep.proof.yaml"))
		return cs != ""
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_ = os.WriteFile(filepath.Join(root, "del.proof.yaml"), []byte(sample), 0o644)
	Sync(db, store, logger)

	cs, _ := db.GetChecksum("del.proof.yaml")
	if cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(root, "del.proof.yaml"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del.proof.yaml")
		return cs == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_ = os.WriteFile(filepath.Join(root, "old.proof.yaml"), []byte(sample), 0o644)
	Sync(db, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(root, "old.proof.yaml"), filepath.Join(root, "renamed.proof.yaml"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old.proof.yaml")
		newCS, _ := db.GetChecksum("renamed.proof.yaml")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "readme.md"), []byte("# Not a proof"), 0o644)
	_ = os.WriteFile(filepath.Join(root, ".tmp.proof.yaml"), []byte(sample), 0o644)
	_ = os.WriteFile(filepath.Join(root, "real.proof.yaml"), []byte(sample), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("real.proof.yaml")
		return cs != ""
	}, "proof document not indexed by watcher")

	all, _ := db.AllChecksums()
	if len(all) != 1 {
		t.Errorf("indexed = %v, want only real.proof.yaml", all)
	}
}

// recorder collects watcher callbacks.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(kind, path string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+path)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestWatcher_ReportsUpdateAndDeleteOnce(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_ = store.Write("doc.proof.yaml", []byte(sample))
	Sync(db, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var rec recorder
	go Watch(ctx, db, store, root, logger, rec.record)
	time.Sleep(100 * time.Millisecond)

	// An atomic replace shows up as a create of the target; it is still an update.
	_ = store.Write("doc.proof.yaml", []byte(sample+"# edited\n"))
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return slices.Contains(rec.list(), "updated:doc.proof.yaml")
	}, "expected updated:doc.proof.yaml callback")

	_ = store.Delete("doc.proof.yaml")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return slices.Contains(rec.list(), "deleted:doc.proof.yaml")
	}, "expected deleted:doc.proof.yaml callback")

	time.Sleep(3 * settle)
	if got := rec.list(); len(got) != 2 {
		t.Errorf("events = %v, want one update and one delete", got)
	}
}

func TestWatcher_SkipsAlreadyIndexedContent(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var rec recorder
	go Watch(ctx, db, store, root, logger, rec.record)
	time.Sleep(100 * time.Millisecond)

	// Index first, then write: the way the service persists documents.
	if err := IndexFile(db, "own.proof.yaml", []byte(sample)); err != nil {
		t.Fatal(err)
	}
	_ = store.Write("own.proof.yaml", []byte(sample))

	// A second document proves the watcher is running.
	_ = store.Write("other.proof.yaml", []byte(sample))
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return slices.Contains(rec.list(), "created:other.proof.yaml")
	}, "expected created:other.proof.yaml callback")

	if slices.Contains(rec.list(), "created:own.proof.yaml") || slices.Contains(rec.list(), "updated:own.proof.yaml") {
		t.Errorf("events = %v, own write was reported", rec.list())
	}
}

func TestWatcher_BrokenDocumentKeepsIndex(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_ = store.Write("doc.proof.yaml", []byte(sample))
	Sync(db, store, logger)
	before, _ := db.GetChecksum("doc.proof.yaml")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var rec recorder
	go Watch(ctx, db, store, root, logger, rec.record)
	time.Sleep(100 * time.Millisecond)

	_ = store.Write("doc.proof.yaml", []byte("premises: [\n"))
	time.Sleep(5 * settle)

	if cs, _ := db.GetChecksum("doc.proof.yaml"); cs != before {
		t.Error("undecodable edit replaced the index entry")
	}
	if got := rec.list(); len(got) != 0 {
		t.Errorf("events = %v, want none", got)
	}
}
