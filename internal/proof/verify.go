package proof

import (
	"fmt"

	"github.com/starford/fitch/internal/apperr"
	"github.com/starford/fitch/internal/logic"
)

// Rule is one entry of an externally supplied rule catalogue. Check is pure:
// it returns nil when the conclusion follows from the resolved citations and a
// descriptive error otherwise.
type Rule interface {
	ID() string
	Check(conclusion logic.Expr, deps Resolved) error
}

// Resolved holds the expressions a step's citations stand for, in citation
// order.
type Resolved struct {
	Lines     []logic.Expr
	Subproofs []ResolvedSubproof
}

// ResolvedSubproof is a cited sub-proof: its assumptions and the conclusions
// of the steps directly inside it.
type ResolvedSubproof struct {
	Premises []logic.Expr
	Lines    []logic.Expr
}

// Last returns the conclusion of the final step, or nil when there is none.
func (s ResolvedSubproof) Last() logic.Expr {
	if len(s.Lines) == 0 {
		return nil
	}
	return s.Lines[len(s.Lines)-1]
}

// DependencyError reports a citation that violates the visibility rule or no
// longer resolves.
type DependencyError struct {
	Citing   JustificationRef
	Dep      PJSRef
	Dangling bool
}

func (e *DependencyError) Error() string {
	if e.Dangling {
		return fmt.Sprintf("proof: %s cites %s, which no longer exists", e.Citing, e.Dep)
	}
	return fmt.Sprintf("proof: %s cites %s, which is out of scope", e.Citing, e.Dep)
}

func (e *DependencyError) Is(target error) bool {
	if target == apperr.ErrOutOfScope {
		return true
	}
	return e.Dangling && target == apperr.ErrDanglingReference
}

// errNoRule is returned for steps that carry no rule at all.
var errNoRule = fmt.Errorf("proof: step has no rule: %w", apperr.ErrRuleMismatch)

// VerifyLine checks one line. Premises always hold. For a step every citation
// is checked for scope first, then the rule is handed the conclusion and the
// resolved citations and its verdict is returned as is.
func (d *Document) VerifyLine(ref PJRef) error {
	switch r := ref.(type) {
	case PremiseRef:
		if _, ok := d.premises.get(r.h); !ok {
			return fmt.Errorf("proof: verify %s: %w", r, apperr.ErrDanglingReference)
		}
		return nil
	case JustificationRef:
		n, ok := d.steps.get(r.h)
		if !ok {
			return fmt.Errorf("proof: verify %s: %w", r, apperr.ErrDanglingReference)
		}
		j := n.just
		resolved, err := d.resolve(r, j)
		if err != nil {
			return err
		}
		if j.Rule == nil {
			return errNoRule
		}
		return j.Rule.Check(j.Conclusion, resolved)
	}
	return fmt.Errorf("proof: verify %v: %w", ref, apperr.ErrDanglingReference)
}

func (d *Document) resolve(citing JustificationRef, j Justification) (Resolved, error) {
	for _, dep := range j.Deps {
		if err := d.checkDep(citing, dep); err != nil {
			return Resolved{}, err
		}
	}
	for _, dep := range j.SubproofDeps {
		if err := d.checkDep(citing, dep); err != nil {
			return Resolved{}, err
		}
	}

	var out Resolved
	for _, dep := range j.Deps {
		e, _ := d.LookupExpr(dep)
		out.Lines = append(out.Lines, e)
	}
	for _, dep := range j.SubproofDeps {
		n, _ := d.subproofs.get(dep.h)
		var rs ResolvedSubproof
		for _, p := range n.premises {
			e, _ := d.LookupPremise(p)
			rs.Premises = append(rs.Premises, e)
		}
		for _, l := range n.lines {
			if s, ok := l.(JustificationRef); ok {
				e, _ := d.LookupExpr(s)
				rs.Lines = append(rs.Lines, e)
			}
		}
		out.Subproofs = append(out.Subproofs, rs)
	}
	return out, nil
}

func (d *Document) checkDep(citing JustificationRef, dep PJSRef) error {
	if !d.exists(dep) {
		return &DependencyError{Citing: citing, Dep: dep, Dangling: true}
	}
	if !d.CanReferenceDep(citing, dep) {
		return &DependencyError{Citing: citing, Dep: dep}
	}
	return nil
}
