// Package models defines the catalogue types shared by storage, the index and
// the service layer.
package models

import "time"

// Extension is the file suffix of persisted proof documents.
const Extension = ".proof.yaml"

// DocumentMetadata is a lightweight representation returned by storage listings.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is the catalogue entry the index keeps for one persisted proof.
type Document struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Premises  int       `json:"premises"`
	Steps     int       `json:"steps"`
	Subproofs int       `json:"subproofs"`
	Valid     int       `json:"valid"`
	Invalid   int       `json:"invalid"`
	Rules     []string  `json:"rules,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Complete reports whether every step of the document verifies.
func (d Document) Complete() bool { return d.Steps > 0 && d.Invalid == 0 }
