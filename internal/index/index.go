package index

import "github.com/starford/fitch/internal/models"

// DocumentIndex defines the interface for document catalogue operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type DocumentIndex interface {
	UpsertDocument(d models.Document, body string) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*models.Document, error)
	GetDocumentByID(id string) (*models.Document, error)
	ListDocuments(limit, offset int, rule, sort string) ([]models.Document, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	RuleUsage() (map[string]int, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
