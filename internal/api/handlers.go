package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/fitch/internal/checksum"
	"github.com/starford/fitch/internal/proofservice"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *proofservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *proofservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination and filtering
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			rule	query		string	false	"Only documents citing this rule (id or name)"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated, title, invalid, path)
//	@Success		200		{object}	DocumentListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	docs, total, err := h.svc.List(r.Context(), limit, offset, q.Get("rule"), q.Get("sort"))
	if err != nil {
		writeError(w, "list documents failed", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: total})
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a blank document or import one
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Title or content"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	var (
		doc *DocumentDetail
		err error
	)
	if strings.TrimSpace(req.Content) != "" {
		doc, err = h.svc.Import(r.Context(), []byte(req.Content))
	} else {
		doc, err = h.svc.Create(r.Context(), req.Title)
	}
	if err != nil {
		writeError(w, "create document failed", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	writeJSON(w, http.StatusCreated, doc)
}

// GetDocument handles GET /api/documents/{id}.
//
//	@Summary		Get a document with every line verified
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	DocumentDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get document failed", err, slog.String("id", id))
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	writeJSON(w, http.StatusOK, doc)
}

// ReplaceDocument handles PUT /api/documents/{id}.
//
//	@Summary		Replace a document with optimistic concurrency
//	@Tags			documents
//	@Accept			application/yaml,json
//	@Produce		json
//	@Param			id			path	string	true	"Document id"
//	@Param			If-Match	header	string	false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	string	true	"YAML document, or ReplaceDocumentRequest as JSON"
//	@Success		200	{object}	DocumentDetail
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [put]
func (h *Handler) ReplaceDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	id := chi.URLParam(r, "id")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	content := body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var req ReplaceDocumentRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		content = []byte(req.Content)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	ifMatch := checksum.FromETag(r.Header.Get("If-Match"))

	doc, err := h.svc.Replace(r.Context(), id, content, ifMatch)
	if err != nil {
		writeError(w, "replace document failed", err, slog.String("id", id))
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/{id}.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Param			id	path	string	true	"Document id"
//	@Success		204	"Document deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, "delete document failed", err, slog.String("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyOperation handles POST /api/documents/{id}/ops.
//
//	@Summary		Apply one editing operation
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Document id"
//	@Param			body	body		Operation	true	"Operation"
//	@Success		200		{object}	ApplyResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/ops [post]
func (h *Handler) ApplyOperation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	id := chi.URLParam(r, "id")
	var op Operation
	if err := json.NewDecoder(r.Body).Decode(&op); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.Apply(r.Context(), id, op)
	if err != nil {
		writeError(w, "apply operation failed", err, slog.String("id", id), slog.String("op", op.Op))
		return
	}
	w.Header().Set("ETag", checksum.ETag(res.Document.Checksum))
	writeJSON(w, http.StatusOK, res)
}

// VerifyDocument handles GET /api/documents/{id}/verify.
//
//	@Summary		Verify every line of a document
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	Report
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/verify [get]
func (h *Handler) VerifyDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rep, err := h.svc.Verify(r.Context(), id)
	if err != nil {
		writeError(w, "verify document failed", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// DocumentText handles GET /api/documents/{id}/text.
//
//	@Summary		Render a document as numbered lines with scope bars and verdicts
//	@Tags			documents
//	@Produce		plain
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id}/text [get]
func (h *Handler) DocumentText(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	text, err := h.svc.Text(r.Context(), id)
	if err != nil {
		writeError(w, "render document failed", err, slog.String("id", id))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

// Search handles GET /api/search.
//
//	@Summary		Search titles and formulas
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search failed", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Rules handles GET /api/rules.
//
//	@Summary		List the rule catalogue
//	@Tags			rules
//	@Produce		json
//	@Success		200	{object}	RulesResponse
//	@Security		BearerAuth
//	@Router			/rules [get]
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	infos, err := h.svc.Rules(r.Context())
	if err != nil {
		writeError(w, "list rules failed", err)
		return
	}
	writeJSON(w, http.StatusOK, RulesResponse{Rules: infos})
}
