// Package proofservice owns open proof documents and coordinates editing,
// verification, persistence and indexing.
package proofservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/fitch/internal/apperr"
	"github.com/starford/fitch/internal/checksum"
	"github.com/starford/fitch/internal/codec"
	"github.com/starford/fitch/internal/index"
	"github.com/starford/fitch/internal/models"
	"github.com/starford/fitch/internal/proof"
	"github.com/starford/fitch/internal/rules"
	"github.com/starford/fitch/internal/storage"
)

// Publisher receives document change notifications.
type Publisher interface {
	PublishDocumentEvent(kind, id string)
}

// RuleInfo describes one catalogue rule and how many documents use it.
type RuleInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Classification string `json:"classification"`
	// Lines and Subproofs are the citation counts the rule expects; -1 means
	// any number.
	Lines     int `json:"lines"`
	Subproofs int `json:"subproofs"`
	Documents int `json:"documents"`
}

// session is one open document. Every read or edit of doc holds mu. doc is
// only replaced once the edited copy has been persisted.
type session struct {
	mu      sync.Mutex
	id      string
	path    string
	title   string
	doc     *proof.Document
	content []byte // last persisted bytes
	deleted bool
}

// lock acquires sess.mu and fails with ErrNotFound when the document was
// deleted while the caller waited.
func (sess *session) lock() error {
	sess.mu.Lock()
	if sess.deleted {
		sess.mu.Unlock()
		return apperr.ErrNotFound
	}
	return nil
}

// Service coordinates sessions, storage and the index.
type Service struct {
	store  storage.Provider
	db     index.DocumentIndex
	events Publisher
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewService creates a proof service. events may be nil.
func NewService(store storage.Provider, db index.DocumentIndex, events Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		db:       db,
		events:   events,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func validateID(id string) error {
	if err := validation.Validate(id, validation.Required, validation.Length(1, 128), validation.Match(idPattern)); err != nil {
		return fmt.Errorf("proofservice: id %q: %v: %w", id, err, apperr.ErrInvalidOperation)
	}
	return nil
}

func validateTitle(title string) error {
	if err := validation.Validate(title, validation.Length(0, 200)); err != nil {
		return fmt.Errorf("proofservice: title: %v: %w", err, apperr.ErrInvalidOperation)
	}
	return nil
}

// Create starts a new document holding one blank premise and one blank step.
func (s *Service) Create(ctx context.Context, title string) (*DocumentDetail, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	return s.open(ctx, title, rules.NewDocument(), nil)
}

// Import stores a document decoded from content under a fresh id.
func (s *Service) Import(ctx context.Context, content []byte) (*DocumentDetail, error) {
	f, err := codec.Decode(content)
	if err != nil {
		return nil, err
	}
	if err := validateTitle(f.Title); err != nil {
		return nil, err
	}
	return s.open(ctx, f.Title, f.Proof, content)
}

func (s *Service) open(_ context.Context, title string, doc *proof.Document, content []byte) (*DocumentDetail, error) {
	id := uuid.NewString()
	sess := &session{id: id, path: index.PathFromID(id), title: title, doc: doc}

	// The session is registered before the file appears so the watcher
	// recognises the write as ours.
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.mu.Lock()
	s.sessions[id] = sess
	openSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	if err := s.persistNew(sess, content); err != nil {
		sess.deleted = true
		s.drop(id)
		return nil, err
	}

	s.publish("created", id)
	return sess.detail(), nil
}

// Get returns the laid-out, verified view of a document.
func (s *Service) Get(ctx context.Context, id string) (*DocumentDetail, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.lock(); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	return sess.detail(), nil
}

// Replace overwrites a document with content. A non-empty ifMatch must equal
// the checksum of the stored file.
func (s *Service) Replace(ctx context.Context, id string, content []byte, ifMatch string) (*DocumentDetail, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.lock(); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	existing, err := s.store.Read(sess.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}

	f, err := codec.Decode(content)
	if err != nil {
		return nil, err
	}
	if err := validateTitle(f.Title); err != nil {
		return nil, err
	}
	next := &session{id: sess.id, path: sess.path, title: f.Title, doc: f.Proof}
	if err := s.persist(next, content, sess.content); err != nil {
		return nil, err
	}
	sess.title, sess.doc, sess.content = next.title, next.doc, next.content

	s.publish("updated", id)
	return sess.detail(), nil
}

// Delete removes a document from storage, the index and memory. Edits waiting
// on the document fail with ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	sess, err := s.session(ctx, id)
	switch {
	case err == nil:
		if err := sess.lock(); err != nil {
			return err
		}
		defer sess.mu.Unlock()
		if err := s.remove(sess.path); err != nil {
			return err
		}
		sess.deleted = true
	case errors.Is(err, apperr.ErrInvalidDocument):
		// An undecodable file never gets a session, so nothing can edit it.
		path, lerr := s.locate(id)
		if lerr != nil {
			return lerr
		}
		if err := s.remove(path); err != nil {
			return err
		}
	default:
		return err
	}
	s.drop(id)
	s.publish("deleted", id)
	return nil
}

func (s *Service) remove(path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteDocument(path)
}

// List returns a page of catalogue entries. rule may be a rule id or display
// name; sort is one of updated, title, invalid, path.
func (s *Service) List(_ context.Context, limit, offset int, rule, sort string) ([]models.Document, int, error) {
	if rule != "" {
		r, err := rules.Lookup(rule)
		if err != nil {
			return nil, 0, err
		}
		rule = r.ID()
	}
	docs, total, err := s.db.ListDocuments(limit, offset, rule, sort)
	if err != nil {
		return nil, 0, err
	}
	return nonNilSlice(docs), total, nil
}

// Search delegates title and formula search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// Rules lists the rule catalogue with per-rule document usage.
func (s *Service) Rules(_ context.Context) ([]RuleInfo, error) {
	usage, err := s.db.RuleUsage()
	if err != nil {
		return nil, err
	}
	all := rules.All()
	out := make([]RuleInfo, len(all))
	for i, r := range all {
		lines, subproofs := r.Arity()
		out[i] = RuleInfo{
			ID:             r.ID(),
			Name:           r.Name(),
			Classification: r.Classification().String(),
			Lines:          lines,
			Subproofs:      subproofs,
			Documents:      usage[r.ID()],
		}
	}
	return out, nil
}

// Invalidate drops the open session for id when the stored file no longer
// matches what the session last wrote. It reports whether the stored file
// changed outside the service.
func (s *Service) Invalidate(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return true
	}

	if sess.lock() != nil {
		return true
	}
	data, err := s.store.Read(sess.path)
	same := err == nil && checksum.Sum(data) == checksum.Sum(sess.content)
	sess.mu.Unlock()
	if same {
		return false
	}
	s.drop(id)
	s.logger.Debug("proofservice: session invalidated", slog.String("id", id))
	return true
}

// session returns the open session for id, loading it from storage when
// needed.
func (s *Service) session(_ context.Context, id string) (*session, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}

	path, err := s.locateLocked(id)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	f, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	sess := &session{id: id, path: path, title: f.Title, doc: f.Proof, content: data}
	s.sessions[id] = sess
	openSessions.Set(float64(len(s.sessions)))
	return sess, nil
}

func (s *Service) locate(id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locateLocked(id)
}

// locateLocked maps id to a store path: an open session, then the index,
// then the store root.
func (s *Service) locateLocked(id string) (string, error) {
	if sess, ok := s.sessions[id]; ok {
		return sess.path, nil
	}
	doc, err := s.db.GetDocumentByID(id)
	switch {
	case err == nil:
		return doc.Path, nil
	case errors.Is(err, apperr.ErrNotFound):
		return index.PathFromID(id), nil
	default:
		return "", err
	}
}

func (s *Service) drop(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	openSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()
}

// persist writes sess to storage and refreshes its catalogue entry. content,
// when nil, is produced by the codec. If indexing fails the file is put back
// to prev.
func (s *Service) persist(sess *session, content, prev []byte) error {
	return s.save(sess, content, prev, s.store.Write)
}

// persistNew is persist for a document whose file must not exist yet.
func (s *Service) persistNew(sess *session, content []byte) error {
	return s.save(sess, content, nil, s.store.Create)
}

func (s *Service) save(sess *session, content, prev []byte, write func(string, []byte) error) error {
	if content == nil {
		var err error
		if content, err = codec.Encode(sess.title, sess.doc); err != nil {
			return err
		}
	}
	if err := write(sess.path, content); err != nil {
		return err
	}
	doc, body := index.Summarize(sess.path, sess.title, sess.doc)
	doc.ID = sess.id
	doc.Checksum = checksum.Sum(content)
	if err := s.db.UpsertDocument(doc, body); err != nil {
		s.rollback(sess.path, prev)
		return err
	}
	sess.content = content
	return nil
}

// rollback restores path to prev, or removes it when there was no previous
// version.
func (s *Service) rollback(path string, prev []byte) {
	var err error
	if prev == nil {
		err = s.store.Delete(path)
	} else {
		err = s.store.Write(path, prev)
	}
	if err != nil {
		s.logger.Warn("proofservice: rollback failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (s *Service) publish(kind, id string) {
	if s.events != nil {
		s.events.PublishDocumentEvent(kind, id)
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
