package api

import (
	"github.com/starford/fitch/internal/index"
	"github.com/starford/fitch/internal/models"
	"github.com/starford/fitch/internal/proofservice"
)

// CreateDocumentRequest is the request body for creating a document. When
// Content is set it is imported and Title is ignored.
type CreateDocumentRequest struct {
	Title   string `json:"title,omitempty" example:"Contraposition"`
	Content string `json:"content,omitempty" example:"premises: [\"P -> Q\"]\nlines: []"`
}

// ReplaceDocumentRequest is the JSON form of a PUT body.
type ReplaceDocumentRequest struct {
	Content string `json:"content" validate:"required"`
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = proofservice.DocumentDetail

// Operation is an editing operation (aliased from the domain layer).
type Operation = proofservice.Operation

// ApplyResult is the response to an operation (aliased from the domain layer).
type ApplyResult = proofservice.ApplyResult

// Report is the verification response (aliased from the domain layer).
type Report = proofservice.Report

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []models.Document `json:"documents" validate:"required"`
	Total     int               `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// RulesResponse wraps the rule catalogue.
type RulesResponse struct {
	Rules []proofservice.RuleInfo `json:"rules" validate:"required"`
}
