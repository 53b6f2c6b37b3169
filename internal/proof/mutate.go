package proof

import (
	"fmt"
	"slices"

	"github.com/starford/fitch/internal/apperr"
	"github.com/starford/fitch/internal/logic"
)

// Editor edits the contents of one sub-proof. It is handed to MutateSubproof
// callbacks and is only valid for the duration of the callback.
type Editor interface {
	Ref() SubproofRef
	Premises() []PremiseRef
	Lines() []LineRef
	AddPremise(e logic.Expr) PremiseRef
	AddStep(j Justification) JustificationRef
	AddSubproof() SubproofRef
	RemoveLine(ref PJRef) error
}

type editor struct {
	d   *Document
	ref SubproofRef
}

func (ed editor) Ref() SubproofRef { return ed.ref }

func (ed editor) Premises() []PremiseRef {
	s, _ := ed.d.LookupSubproof(ed.ref)
	return s.Premises
}

func (ed editor) Lines() []LineRef {
	s, _ := ed.d.LookupSubproof(ed.ref)
	return s.Lines
}

func (ed editor) AddPremise(e logic.Expr) PremiseRef {
	n, _ := ed.d.subproofs.get(ed.ref.h)
	return ed.d.insertPremise(ed.ref, len(n.premises), e)
}

func (ed editor) AddStep(j Justification) JustificationRef {
	n, _ := ed.d.subproofs.get(ed.ref.h)
	return ed.d.insertStep(ed.ref, len(n.lines), j)
}

func (ed editor) AddSubproof() SubproofRef {
	n, _ := ed.d.subproofs.get(ed.ref.h)
	return ed.d.insertSubproof(ed.ref, len(n.lines))
}

func (ed editor) RemoveLine(ref PJRef) error {
	if owner, ok := ed.d.owner(ref); ok && owner != ed.ref {
		return fmt.Errorf("proof: %s is not in %s: %w", ref, ed.ref, apperr.ErrStructural)
	}
	return ed.d.RemoveLine(ref)
}

// AddPremise appends a premise to the root sub-proof.
func (d *Document) AddPremise(e logic.Expr) PremiseRef {
	return editor{d, d.root}.AddPremise(e)
}

// AddStep appends a justification to the root sub-proof.
func (d *Document) AddStep(j Justification) JustificationRef {
	return editor{d, d.root}.AddStep(j)
}

// AddSubproof appends an empty sub-proof to the root sub-proof.
func (d *Document) AddSubproof() SubproofRef {
	return editor{d, d.root}.AddSubproof()
}

// AddPremiseRelative inserts a premise immediately before or after ref, in
// the sub-proof that owns ref.
func (d *Document) AddPremiseRelative(e logic.Expr, ref PremiseRef, after bool) (PremiseRef, error) {
	n, ok := d.premises.get(ref.h)
	if !ok {
		return PremiseRef{}, fmt.Errorf("proof: insert premise near %s: %w", ref, apperr.ErrDanglingReference)
	}
	owner := n.owner
	sp, _ := d.subproofs.get(owner.h)
	at := indexOf(sp.premises, ref)
	if after {
		at++
	}
	return d.insertPremise(owner, at, e), nil
}

// AddStepRelative inserts a justification immediately before or after ref.
// When ref is a sub-proof the step is placed next to it in its parent; the
// root has no parent and is refused.
func (d *Document) AddStepRelative(j Justification, ref LineRef, after bool) (JustificationRef, error) {
	owner, at, err := d.insertionPoint(ref, after)
	if err != nil {
		return JustificationRef{}, err
	}
	return d.insertStep(owner, at, j), nil
}

// AddSubproofRelative inserts an empty sub-proof immediately before or after
// ref, with the same placement rules as AddStepRelative.
func (d *Document) AddSubproofRelative(ref LineRef, after bool) (SubproofRef, error) {
	owner, at, err := d.insertionPoint(ref, after)
	if err != nil {
		return SubproofRef{}, err
	}
	return d.insertSubproof(owner, at), nil
}

func (d *Document) insertionPoint(ref LineRef, after bool) (SubproofRef, int, error) {
	if ref == nil || !d.exists(ref) {
		return SubproofRef{}, 0, fmt.Errorf("proof: insert near %v: %w", ref, apperr.ErrDanglingReference)
	}
	if ref == LineRef(d.root) {
		return SubproofRef{}, 0, fmt.Errorf("proof: no insertion point around the root: %w", apperr.ErrStructural)
	}
	owner, _ := d.owner(ref)
	sp, _ := d.subproofs.get(owner.h)
	at := indexOf(sp.lines, ref)
	if after {
		at++
	}
	return owner, at, nil
}

func (d *Document) insertPremise(owner SubproofRef, at int, e logic.Expr) PremiseRef {
	ref := PremiseRef{d.premises.alloc(premiseNode{expr: e, owner: owner})}
	sp, _ := d.subproofs.get(owner.h)
	sp.premises = slices.Insert(sp.premises, at, ref)
	return ref
}

func (d *Document) insertStep(owner SubproofRef, at int, j Justification) JustificationRef {
	j = j.clone()
	j.normalize()
	ref := JustificationRef{d.steps.alloc(stepNode{just: j, owner: owner})}
	sp, _ := d.subproofs.get(owner.h)
	sp.lines = slices.Insert(sp.lines, at, LineRef(ref))
	return ref
}

func (d *Document) insertSubproof(parent SubproofRef, at int) SubproofRef {
	// alloc may grow the arena, so the parent is fetched afterwards.
	ref := SubproofRef{d.subproofs.alloc(subproofNode{parent: parent})}
	sp, _ := d.subproofs.get(parent.h)
	sp.lines = slices.Insert(sp.lines, at, LineRef(ref))
	return ref
}

// CanRemoveLine reports whether RemoveLine would succeed.
func (d *Document) CanRemoveLine(ref PJRef) bool {
	return d.checkRemoveLine(ref) == nil
}

func (d *Document) checkRemoveLine(ref PJRef) error {
	if ref == nil || !d.exists(ref) {
		return fmt.Errorf("proof: remove %v: %w", ref, apperr.ErrDanglingReference)
	}
	if _, held := d.busy[ref]; held {
		return fmt.Errorf("proof: remove %s while it is being edited: %w", ref, apperr.ErrReentrant)
	}
	owner, _ := d.owner(ref)
	sp, _ := d.subproofs.get(owner.h)
	switch ref.(type) {
	case PremiseRef:
		if len(sp.premises) <= 1 {
			return fmt.Errorf("proof: %s is the last premise of its sub-proof: %w", ref, apperr.ErrStructural)
		}
	case JustificationRef:
		if len(sp.lines) <= 1 {
			return fmt.Errorf("proof: %s is the last line of its sub-proof: %w", ref, apperr.ErrStructural)
		}
	}
	return nil
}

// RemoveLine removes a premise or justification. Removal that would leave
// the owning sub-proof without a premise or without a line is refused and
// the document is left unchanged. Citations of the removed line are purged
// from every remaining justification.
func (d *Document) RemoveLine(ref PJRef) error {
	if err := d.checkRemoveLine(ref); err != nil {
		return err
	}
	owner, _ := d.owner(ref)
	sp, _ := d.subproofs.get(owner.h)
	switch r := ref.(type) {
	case PremiseRef:
		sp.premises = slices.DeleteFunc(sp.premises, func(x PremiseRef) bool { return x == r })
		d.premises.release(r.h)
	case JustificationRef:
		sp.lines = slices.DeleteFunc(sp.lines, func(x LineRef) bool { return x == LineRef(r) })
		d.steps.release(r.h)
	}
	d.purge(map[PJSRef]struct{}{ref: {}})
	return nil
}

// RemoveSubproof removes a nested sub-proof and everything inside it and
// returns every reference that stopped resolving. The root, and a sub-proof
// that is the only line of its parent, cannot be removed.
func (d *Document) RemoveSubproof(ref SubproofRef) ([]PJSRef, error) {
	if ref == d.root {
		return nil, fmt.Errorf("proof: the root sub-proof cannot be removed: %w", apperr.ErrStructural)
	}
	n, ok := d.subproofs.get(ref.h)
	if !ok {
		return nil, fmt.Errorf("proof: remove %s: %w", ref, apperr.ErrDanglingReference)
	}
	parent, _ := d.subproofs.get(n.parent.h)
	if len(parent.lines) <= 1 {
		return nil, fmt.Errorf("proof: %s is the last line of its sub-proof: %w", ref, apperr.ErrStructural)
	}
	removed := d.subtree(ref)
	for _, r := range removed {
		if _, held := d.busy[r]; held {
			return nil, fmt.Errorf("proof: remove %s while %s is being edited: %w", ref, r, apperr.ErrReentrant)
		}
	}

	parent.lines = slices.DeleteFunc(parent.lines, func(x LineRef) bool { return x == LineRef(ref) })
	gone := make(map[PJSRef]struct{}, len(removed))
	for _, r := range removed {
		gone[r] = struct{}{}
		switch r := r.(type) {
		case PremiseRef:
			d.premises.release(r.h)
		case JustificationRef:
			d.steps.release(r.h)
		case SubproofRef:
			d.subproofs.release(r.h)
		}
	}
	d.purge(gone)
	return removed, nil
}

// subtree lists ref and every entity nested inside it, parents first.
func (d *Document) subtree(ref SubproofRef) []PJSRef {
	out := []PJSRef{ref}
	n, ok := d.subproofs.get(ref.h)
	if !ok {
		return out
	}
	for _, p := range n.premises {
		out = append(out, p)
	}
	for _, l := range n.lines {
		switch l := l.(type) {
		case JustificationRef:
			out = append(out, l)
		case SubproofRef:
			out = append(out, d.subtree(l)...)
		}
	}
	return out
}

// purge drops citations of removed entities from every live justification.
func (d *Document) purge(gone map[PJSRef]struct{}) {
	for i := range d.steps.slots {
		s := &d.steps.slots[i]
		if !s.live {
			continue
		}
		dropCitations(&s.val.just, gone)
	}
	// Steps being edited are stored back from their copies afterwards.
	for _, j := range d.editing {
		dropCitations(j, gone)
	}
}

func dropCitations(j *Justification, gone map[PJSRef]struct{}) {
	j.Deps = slices.DeleteFunc(j.Deps, func(r PJRef) bool { _, ok := gone[r]; return ok })
	j.SubproofDeps = slices.DeleteFunc(j.SubproofDeps, func(r SubproofRef) bool { _, ok := gone[r]; return ok })
}

func (d *Document) acquire(ref PJSRef) error {
	if _, held := d.busy[ref]; held {
		return fmt.Errorf("proof: %s is already being edited: %w", ref, apperr.ErrReentrant)
	}
	d.busy[ref] = struct{}{}
	return nil
}

func (d *Document) releaseRef(ref PJSRef) { delete(d.busy, ref) }

// MutatePremise gives f exclusive access to the premise's expression.
func (d *Document) MutatePremise(ref PremiseRef, f func(*logic.Expr)) error {
	n, ok := d.premises.get(ref.h)
	if !ok {
		return fmt.Errorf("proof: edit %s: %w", ref, apperr.ErrDanglingReference)
	}
	if err := d.acquire(ref); err != nil {
		return err
	}
	defer d.releaseRef(ref)

	// f may add entities and grow the arena, so it works on a copy that is
	// stored back through a fresh lookup.
	e := n.expr
	f(&e)
	n, _ = d.premises.get(ref.h)
	n.expr = e
	return nil
}

// MutateStep gives f exclusive access to the justification. Duplicate
// citations introduced by f collapse afterwards.
func (d *Document) MutateStep(ref JustificationRef, f func(*Justification)) error {
	n, ok := d.steps.get(ref.h)
	if !ok {
		return fmt.Errorf("proof: edit %s: %w", ref, apperr.ErrDanglingReference)
	}
	if err := d.acquire(ref); err != nil {
		return err
	}
	defer d.releaseRef(ref)

	j := n.just.clone()
	d.editing[ref] = &j
	defer delete(d.editing, ref)
	f(&j)
	j.normalize()
	n, _ = d.steps.get(ref.h)
	n.just = j
	return nil
}

// MutateSubproof gives f an Editor scoped to the sub-proof.
func (d *Document) MutateSubproof(ref SubproofRef, f func(Editor)) error {
	if _, ok := d.subproofs.get(ref.h); !ok {
		return fmt.Errorf("proof: edit %s: %w", ref, apperr.ErrDanglingReference)
	}
	if err := d.acquire(ref); err != nil {
		return err
	}
	defer d.releaseRef(ref)
	f(editor{d, ref})
	return nil
}

// WithMutPremise runs f on the premise's expression and returns its result.
func WithMutPremise[T any](p Proof, ref PremiseRef, f func(*logic.Expr) T) (T, error) {
	var out T
	err := p.MutatePremise(ref, func(e *logic.Expr) { out = f(e) })
	return out, err
}

// WithMutStep runs f on the justification and returns its result.
func WithMutStep[T any](p Proof, ref JustificationRef, f func(*Justification) T) (T, error) {
	var out T
	err := p.MutateStep(ref, func(j *Justification) { out = f(j) })
	return out, err
}

// WithMutSubproof runs f with an Editor for the sub-proof and returns its result.
func WithMutSubproof[T any](p Proof, ref SubproofRef, f func(Editor) T) (T, error) {
	var out T
	err := p.MutateSubproof(ref, func(ed Editor) { out = f(ed) })
	return out, err
}
