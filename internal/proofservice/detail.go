package proofservice

import (
	"context"
	"strings"

	"github.com/starford/fitch/internal/checksum"
	"github.com/starford/fitch/internal/proof"
	"github.com/starford/fitch/internal/render"
)

// LineView is one numbered line of a document as an editing surface shows it.
type LineView struct {
	Ref     string   `json:"ref"`
	Line    int      `json:"line"`
	Depth   int      `json:"depth"`
	Kind    string   `json:"kind"`
	Expr    string   `json:"expr"`
	Rule    string   `json:"rule,omitempty"`
	Deps    []int    `json:"deps,omitempty"`
	Ranges  []string `json:"ranges,omitempty"`
	Verdict string   `json:"verdict"`
	Valid   bool     `json:"valid"`
	// Removable is false when deleting the line would empty its sub-proof.
	Removable bool `json:"removable"`
}

// SubproofView is the line span of a nested sub-proof.
type SubproofView struct {
	Ref   string `json:"ref"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Depth int    `json:"depth"`
}

// Summary counts lines by verdict.
type Summary struct {
	Premises int  `json:"premises"`
	Steps    int  `json:"steps"`
	Valid    int  `json:"valid"`
	Invalid  int  `json:"invalid"`
	Complete bool `json:"complete"`
}

// DocumentDetail is the full representation of an open document.
type DocumentDetail struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Checksum  string         `json:"checksum"`
	Content   string         `json:"content"`
	Lines     []LineView     `json:"lines"`
	Subproofs []SubproofView `json:"subproofs"`
	Summary   Summary        `json:"summary"`
}

// Report is the outcome of verifying every line of a document.
type Report struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Lines   []LineView `json:"lines"`
	Summary Summary    `json:"summary"`
}

// Verify checks every line of a document.
func (s *Service) Verify(ctx context.Context, id string) (*Report, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.lock(); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	lines, sum := lineViews(sess.doc)
	stepVerifications.WithLabelValues("valid").Add(float64(sum.Valid))
	stepVerifications.WithLabelValues("invalid").Add(float64(sum.Invalid))
	return &Report{ID: sess.id, Title: sess.title, Lines: lines, Summary: sum}, nil
}

// Text renders a document as a plain Fitch-style listing.
func (s *Service) Text(ctx context.Context, id string) (string, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return "", err
	}
	if err := sess.lock(); err != nil {
		return "", err
	}
	defer sess.mu.Unlock()

	var sb strings.Builder
	if err := render.Text(&sb, sess.title, sess.doc, render.Options{}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// detail must be called with sess.mu held.
func (sess *session) detail() *DocumentDetail {
	lines, sum := lineViews(sess.doc)
	return &DocumentDetail{
		ID:        sess.id,
		Title:     sess.title,
		Checksum:  checksum.Sum(sess.content),
		Content:   string(sess.content),
		Lines:     lines,
		Subproofs: subproofViews(sess.doc),
		Summary:   sum,
	}
}

func lineViews(d *proof.Document) ([]LineView, Summary) {
	rows := render.Rows(d)
	out := make([]LineView, len(rows))
	var sum Summary
	for i, r := range rows {
		out[i] = LineView{
			Ref:       r.Ref.String(),
			Line:      r.Line,
			Depth:     r.Depth,
			Kind:      r.Kind,
			Expr:      r.Expr,
			Rule:      r.Rule,
			Deps:      r.Deps,
			Ranges:    r.Ranges,
			Verdict:   r.Verdict(),
			Valid:     r.Err == nil,
			Removable: d.CanRemoveLine(r.Ref),
		}
		switch {
		case r.Kind == render.KindPremise:
			sum.Premises++
		case r.Err != nil:
			sum.Steps++
			sum.Invalid++
		default:
			sum.Steps++
			sum.Valid++
		}
	}
	sum.Complete = sum.Steps > 0 && sum.Invalid == 0
	return out, sum
}

func subproofViews(d *proof.Document) []SubproofView {
	idx := proof.BuildIndex(d)
	out := []SubproofView{}
	var walk func(ref proof.SubproofRef)
	walk = func(ref proof.SubproofRef) {
		sp, ok := d.LookupSubproof(ref)
		if !ok {
			return
		}
		for _, l := range sp.Lines {
			inner, ok := l.(proof.SubproofRef)
			if !ok {
				continue
			}
			start, end, _ := idx.Range(inner)
			depth, _ := idx.Depth(inner)
			out = append(out, SubproofView{Ref: inner.String(), Start: start, End: end, Depth: depth})
			walk(inner)
		}
	}
	walk(d.Root())
	return out
}
