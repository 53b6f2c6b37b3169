// Package codec reads and writes proof documents as YAML. Citations are
// stored as flattened line numbers and sub-proof ranges, the way they are
// displayed, and mapped back to references on decode.
package codec

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/fitch/internal/apperr"
	"github.com/starford/fitch/internal/logic"
	"github.com/starford/fitch/internal/proof"
	"github.com/starford/fitch/internal/rules"
)

// File is a decoded document with its title.
type File struct {
	Title string
	Proof *proof.Document
}

type fileNode struct {
	Title     string `yaml:"title,omitempty"`
	blockNode `yaml:",inline"`
}

type blockNode struct {
	Premises []string   `yaml:"premises"`
	Lines    []lineNode `yaml:"lines"`
}

type lineNode struct {
	Expr         string     `yaml:"expr,omitempty"`
	Rule         string     `yaml:"rule,omitempty"`
	Deps         []int      `yaml:"deps,omitempty,flow"`
	SubproofDeps []string   `yaml:"subproof_deps,omitempty,flow"`
	Subproof     *blockNode `yaml:"subproof,omitempty"`
}

// DecodeError names the part of the input that made it unusable.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "codec: " + e.Reason
	}
	return "codec: " + e.Field + ": " + e.Reason
}

func (e *DecodeError) Is(target error) bool { return target == apperr.ErrInvalidDocument }

func invalidf(field, format string, args ...any) error {
	return &DecodeError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type pending struct {
	ref          proof.JustificationRef
	field        string
	deps         []int
	subproofDeps []string
}

type decoder struct {
	d       *proof.Document
	pending []pending
}

// Decode builds a document from YAML. The result satisfies every structural
// invariant: each sub-proof has a premise and a line, each rule is known, each
// expression parses, and each citation is in scope. Anything else yields a
// *DecodeError.
func Decode(data []byte) (*File, error) {
	var fn fileNode
	if err := yaml.Unmarshal(data, &fn); err != nil {
		return nil, invalidf("", "malformed YAML: %v", err)
	}

	dec := &decoder{d: proof.New()}
	if err := dec.block(dec.d.Root(), fn.blockNode, ""); err != nil {
		return nil, err
	}
	if err := dec.resolve(); err != nil {
		return nil, err
	}
	return &File{Title: strings.TrimSpace(fn.Title), Proof: dec.d}, nil
}

func (dec *decoder) block(ref proof.SubproofRef, b blockNode, path string) error {
	if len(b.Premises) == 0 {
		return invalidf(path+"premises", "a sub-proof needs at least one premise")
	}
	if len(b.Lines) == 0 {
		return invalidf(path+"lines", "a sub-proof needs at least one line")
	}

	var err error
	_ = dec.d.MutateSubproof(ref, func(ed proof.Editor) {
		for i, text := range b.Premises {
			field := fmt.Sprintf("%spremises[%d]", path, i)
			var e logic.Expr
			if e, err = parseExpr(field, text); err != nil {
				return
			}
			ed.AddPremise(e)
		}
		for i, ln := range b.Lines {
			field := fmt.Sprintf("%slines[%d]", path, i)
			if ln.Subproof != nil {
				if ln.Expr != "" || ln.Rule != "" || len(ln.Deps) > 0 || len(ln.SubproofDeps) > 0 {
					err = invalidf(field, "a sub-proof line cannot carry a step")
					return
				}
				if err = dec.block(ed.AddSubproof(), *ln.Subproof, field+".subproof."); err != nil {
					return
				}
				continue
			}
			var j proof.Justification
			if j, err = parseStep(field, ln); err != nil {
				return
			}
			dec.pending = append(dec.pending, pending{
				ref:          ed.AddStep(j),
				field:        field,
				deps:         ln.Deps,
				subproofDeps: ln.SubproofDeps,
			})
		}
	})
	return err
}

func parseExpr(field, text string) (logic.Expr, error) {
	if strings.TrimSpace(text) == "" {
		return logic.Var{}, nil
	}
	e, err := logic.Parse(text)
	if err != nil {
		return nil, invalidf(field, "%v", err)
	}
	return e, nil
}

func parseStep(field string, ln lineNode) (proof.Justification, error) {
	e, err := parseExpr(field+".expr", ln.Expr)
	if err != nil {
		return proof.Justification{}, err
	}
	rule := rules.Reiteration
	if ln.Rule != "" {
		if rule, err = rules.Lookup(ln.Rule); err != nil {
			return proof.Justification{}, invalidf(field+".rule", "%v", err)
		}
	}
	return proof.Justification{Conclusion: e, Rule: rule}, nil
}

// resolve maps line numbers and ranges to references once every line exists.
func (dec *decoder) resolve() error {
	idx := proof.BuildIndex(dec.d)
	for _, p := range dec.pending {
		var deps []proof.PJSRef
		for i, n := range p.deps {
			field := fmt.Sprintf("%s.deps[%d]", p.field, i)
			ref, ok := idx.At(n)
			if !ok {
				return invalidf(field, "line %d does not exist", n)
			}
			deps = append(deps, ref)
		}
		for i, r := range p.subproofDeps {
			field := fmt.Sprintf("%s.subproof_deps[%d]", p.field, i)
			start, end, err := parseRange(r)
			if err != nil {
				return invalidf(field, "%v", err)
			}
			ref, ok := idx.SubproofAt(start, end)
			if !ok {
				return invalidf(field, "no sub-proof spans lines %d-%d", start, end)
			}
			deps = append(deps, ref)
		}
		for i, dep := range deps {
			if !dec.d.CanReferenceDep(p.ref, dep) {
				field := fmt.Sprintf("%s.deps[%d]", p.field, i)
				if i >= len(p.deps) {
					field = fmt.Sprintf("%s.subproof_deps[%d]", p.field, i-len(p.deps))
				}
				return invalidf(field, "citation is out of scope")
			}
		}
		_ = dec.d.MutateStep(p.ref, func(j *proof.Justification) {
			for _, dep := range deps {
				if !j.HasDependency(dep) {
					j.ToggleDependency(dep)
				}
			}
		})
	}
	return nil
}

func parseRange(s string) (start, end int, err error) {
	a, b, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("range %q is not of the form start-end", s)
	}
	if start, err = strconv.Atoi(strings.TrimSpace(a)); err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", s, err)
	}
	if end, err = strconv.Atoi(strings.TrimSpace(b)); err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", s, err)
	}
	if start > end {
		return 0, 0, fmt.Errorf("range %q is reversed", s)
	}
	return start, end, nil
}

// Encode writes d in the format Decode reads.
func Encode(title string, d proof.Proof) ([]byte, error) {
	idx := proof.BuildIndex(d)
	b, err := encodeBlock(d, idx, d.Root())
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(fileNode{Title: title, blockNode: b})
}

func encodeBlock(d proof.Proof, idx *proof.LineIndex, ref proof.SubproofRef) (blockNode, error) {
	sp, ok := d.LookupSubproof(ref)
	if !ok {
		return blockNode{}, fmt.Errorf("codec: encode %s: %w", ref, apperr.ErrDanglingReference)
	}
	var b blockNode
	for _, pr := range sp.Premises {
		e, _ := d.LookupPremise(pr)
		b.Premises = append(b.Premises, exprText(e))
	}
	for _, l := range sp.Lines {
		switch l := l.(type) {
		case proof.JustificationRef:
			ln, err := encodeStep(d, idx, l)
			if err != nil {
				return blockNode{}, err
			}
			b.Lines = append(b.Lines, ln)
		case proof.SubproofRef:
			inner, err := encodeBlock(d, idx, l)
			if err != nil {
				return blockNode{}, err
			}
			b.Lines = append(b.Lines, lineNode{Subproof: &inner})
		}
	}
	return b, nil
}

func encodeStep(d proof.Proof, idx *proof.LineIndex, ref proof.JustificationRef) (lineNode, error) {
	j, _ := d.LookupStep(ref)
	ln := lineNode{Expr: exprText(j.Conclusion)}
	if j.Rule != nil {
		r, ok := rules.FromProof(j.Rule)
		if !ok {
			return lineNode{}, fmt.Errorf("codec: %s uses rule %q outside the catalogue", ref, j.Rule.ID())
		}
		ln.Rule = r.ID()
	}
	for _, dep := range j.Deps {
		if li, ok := idx.Lookup(dep); ok {
			ln.Deps = append(ln.Deps, li.Line)
		}
	}
	for _, dep := range j.SubproofDeps {
		if start, end, ok := idx.Range(dep); ok {
			ln.SubproofDeps = append(ln.SubproofDeps, fmt.Sprintf("%d-%d", start, end))
		}
	}
	return ln, nil
}

func exprText(e logic.Expr) string {
	if logic.IsBlank(e) {
		return ""
	}
	return e.String()
}
