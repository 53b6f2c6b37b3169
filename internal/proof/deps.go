package proof

import (
	"slices"

	"github.com/starford/fitch/internal/logic"
)

// Justification is a derived line: a conclusion, the rule that licenses it,
// and the lines and sub-proofs it cites. Both citation lists behave as sets
// that remember insertion order.
type Justification struct {
	Conclusion   logic.Expr
	Rule         Rule
	Deps         []PJRef
	SubproofDeps []SubproofRef
}

// ToggleDep cites ref if it is absent and drops it otherwise.
func (j *Justification) ToggleDep(ref PJRef) {
	if i := indexOf(j.Deps, ref); i >= 0 {
		j.Deps = slices.Delete(j.Deps, i, i+1)
		return
	}
	j.Deps = append(j.Deps, ref)
}

// ToggleSubproofDep cites ref as a range if it is absent and drops it otherwise.
func (j *Justification) ToggleSubproofDep(ref SubproofRef) {
	if i := indexOf(j.SubproofDeps, ref); i >= 0 {
		j.SubproofDeps = slices.Delete(j.SubproofDeps, i, i+1)
		return
	}
	j.SubproofDeps = append(j.SubproofDeps, ref)
}

// ToggleDependency dispatches on the kind of ref.
func (j *Justification) ToggleDependency(ref PJSRef) {
	switch r := ref.(type) {
	case PremiseRef:
		j.ToggleDep(r)
	case JustificationRef:
		j.ToggleDep(r)
	case SubproofRef:
		j.ToggleSubproofDep(r)
	}
}

// HasDependency reports whether ref is cited.
func (j Justification) HasDependency(ref PJSRef) bool {
	switch r := ref.(type) {
	case PremiseRef:
		return indexOf(j.Deps, PJRef(r)) >= 0
	case JustificationRef:
		return indexOf(j.Deps, PJRef(r)) >= 0
	case SubproofRef:
		return indexOf(j.SubproofDeps, r) >= 0
	}
	return false
}

func (j Justification) clone() Justification {
	j.Deps = slices.Clone(j.Deps)
	j.SubproofDeps = slices.Clone(j.SubproofDeps)
	return j
}

// normalize collapses duplicate citations, keeping the first occurrence.
func (j *Justification) normalize() {
	j.Deps = dedup(j.Deps)
	j.SubproofDeps = dedup(j.SubproofDeps)
}

func dedup[T comparable](list []T) []T {
	if len(list) < 2 {
		return list
	}
	seen := make(map[T]struct{}, len(list))
	out := list[:0]
	for _, v := range list {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// scopeOf maps every sub-proof enclosing the step to the position of the line
// in that sub-proof which holds the step: the step itself in its own
// sub-proof, the enclosing sub-proof line in each ancestor.
func (d *Document) scopeOf(step JustificationRef) map[SubproofRef]int {
	n, ok := d.steps.get(step.h)
	if !ok {
		return nil
	}
	scope := make(map[SubproofRef]int)
	var holding LineRef = step
	sp := n.owner
	for {
		node, ok := d.subproofs.get(sp.h)
		if !ok {
			return scope
		}
		scope[sp] = indexOf(node.lines, holding)
		if sp == d.root {
			return scope
		}
		holding = sp
		sp = node.parent
	}
}

// CanReferenceDep reports whether the step citing may cite dep. Premises cite
// nothing. A premise is visible from its own sub-proof and every sub-proof
// nested in it. A step or a sub-proof is visible when it lies in an enclosing
// sub-proof strictly before the line that holds the citing step, so the
// inside of a closed sub-proof is only reachable through the sub-proof itself.
func (d *Document) CanReferenceDep(citing PJRef, dep PJSRef) bool {
	step, ok := citing.(JustificationRef)
	if !ok || dep == nil {
		return false
	}
	scope := d.scopeOf(step)
	if scope == nil {
		return false
	}
	switch r := dep.(type) {
	case PremiseRef:
		n, ok := d.premises.get(r.h)
		if !ok {
			return false
		}
		_, visible := scope[n.owner]
		return visible
	case JustificationRef:
		if r == step {
			return false
		}
		n, ok := d.steps.get(r.h)
		if !ok {
			return false
		}
		return d.precedes(scope, n.owner, r)
	case SubproofRef:
		if r == d.root {
			return false
		}
		n, ok := d.subproofs.get(r.h)
		if !ok {
			return false
		}
		return d.precedes(scope, n.parent, r)
	}
	return false
}

// precedes reports whether line, held directly by owner, comes before the
// line of owner that encloses the citing step.
func (d *Document) precedes(scope map[SubproofRef]int, owner SubproofRef, line LineRef) bool {
	limit, ok := scope[owner]
	if !ok {
		return false
	}
	sp, _ := d.subproofs.get(owner.h)
	i := indexOf(sp.lines, line)
	return i >= 0 && i < limit
}
