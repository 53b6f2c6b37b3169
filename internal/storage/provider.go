// Package storage defines the document store abstraction.
package storage

import "github.com/starford/fitch/internal/models"

// MaxDocumentSize bounds what Read accepts. Documents are decoded in memory.
const MaxDocumentSize = 4 << 20

// Provider is the interface for document file operations. Paths are relative
// to the store root and must name a visible file with models.Extension.
type Provider interface {
	// List returns metadata for every proof document under dir, ordered by path.
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the document at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the document at path.
	Write(path string, content []byte) error
	// Create atomically writes a new document and fails with
	// apperr.ErrAlreadyExists when path is taken.
	Create(path string, content []byte) error
	// Delete removes the document at path.
	Delete(path string) error
}
