// Package proof implements natural-deduction proof documents: premises and
// justified steps organised into nested sub-proofs, addressed by stable
// generation-checked references, edited through structural mutations that
// preserve well-formedness, and verified line by line against a rule
// catalogue supplied by the caller.
//
// A Document is not safe for concurrent use. Callers own one document per
// session and serialise every call on it.
package proof

import (
	"slices"

	"github.com/starford/fitch/internal/logic"
)

// Proof is the reference-and-lookup contract of a proof document. Document is
// the arena-backed implementation; other representations can satisfy the same
// contract.
type Proof interface {
	Root() SubproofRef
	Lookup(ref PJSRef) (Entity, bool)
	LookupPremise(ref PremiseRef) (logic.Expr, bool)
	LookupStep(ref JustificationRef) (Justification, bool)
	LookupSubproof(ref SubproofRef) (Subproof, bool)
	LookupExpr(ref PJRef) (logic.Expr, bool)
	ParentOf(ref PJSRef) (SubproofRef, bool)

	AddPremise(e logic.Expr) PremiseRef
	AddPremiseRelative(e logic.Expr, ref PremiseRef, after bool) (PremiseRef, error)
	AddStep(j Justification) JustificationRef
	AddStepRelative(j Justification, ref LineRef, after bool) (JustificationRef, error)
	AddSubproof() SubproofRef
	AddSubproofRelative(ref LineRef, after bool) (SubproofRef, error)
	CanRemoveLine(ref PJRef) bool
	RemoveLine(ref PJRef) error
	RemoveSubproof(ref SubproofRef) ([]PJSRef, error)
	MutatePremise(ref PremiseRef, f func(*logic.Expr)) error
	MutateStep(ref JustificationRef, f func(*Justification)) error
	MutateSubproof(ref SubproofRef, f func(Editor)) error

	CanReferenceDep(citing PJRef, dep PJSRef) bool
	VerifyLine(ref PJRef) error
}

var _ Proof = (*Document)(nil)

// Entity is what a reference resolves to: Premise, Justification or Subproof.
type Entity interface {
	isEntity()
}

// Premise is an assumption, valid by fiat within its sub-proof.
type Premise struct {
	Expr logic.Expr
}

// Subproof is a read-only view of a sub-proof's contents.
type Subproof struct {
	Premises []PremiseRef
	Lines    []LineRef
}

func (Premise) isEntity()       {}
func (Subproof) isEntity()      {}
func (Justification) isEntity() {}

type premiseNode struct {
	expr  logic.Expr
	owner SubproofRef
}

type stepNode struct {
	just  Justification
	owner SubproofRef
}

type subproofNode struct {
	premises []PremiseRef
	lines    []LineRef
	parent   SubproofRef // zero for the root
}

// Document is an arena-backed proof document. Every entity lives in a slot of
// a per-kind arena and carries a back-pointer to its owning sub-proof, so
// ancestor queries never search the tree.
type Document struct {
	premises  arena[premiseNode]
	steps     arena[stepNode]
	subproofs arena[subproofNode]
	root      SubproofRef
	busy      map[PJSRef]struct{}
	// editing holds the working copies of steps inside MutateStep callbacks.
	editing map[JustificationRef]*Justification
}

// New returns a document whose root sub-proof is empty.
func New() *Document {
	d := &Document{
		busy:    make(map[PJSRef]struct{}),
		editing: make(map[JustificationRef]*Justification),
	}
	d.root = SubproofRef{d.subproofs.alloc(subproofNode{})}
	return d
}

// Clone returns an independent copy of d in which every ref of d resolves to
// the same entity. It must not be called from inside a mutation callback.
func (d *Document) Clone() *Document {
	return &Document{
		premises: d.premises.clone(func(n premiseNode) premiseNode {
			n.expr = logic.Clone(n.expr)
			return n
		}),
		steps: d.steps.clone(func(n stepNode) stepNode {
			n.just = n.just.clone()
			n.just.Conclusion = logic.Clone(n.just.Conclusion)
			return n
		}),
		subproofs: d.subproofs.clone(func(n subproofNode) subproofNode {
			n.premises = slices.Clone(n.premises)
			n.lines = slices.Clone(n.lines)
			return n
		}),
		root:    d.root,
		busy:    make(map[PJSRef]struct{}),
		editing: make(map[JustificationRef]*Justification),
	}
}

// NewEmpty returns the minimal valid document: one blank premise and one blank
// step justified by identity with no dependencies.
func NewEmpty(identity Rule) *Document {
	d := New()
	d.AddPremise(logic.Var{})
	d.AddStep(Justification{Conclusion: logic.Var{}, Rule: identity})
	return d
}

// Root returns the root sub-proof.
func (d *Document) Root() SubproofRef { return d.root }

// Lookup resolves any reference. Stale references yield false.
func (d *Document) Lookup(ref PJSRef) (Entity, bool) {
	switch r := ref.(type) {
	case PremiseRef:
		e, ok := d.LookupPremise(r)
		if !ok {
			return nil, false
		}
		return Premise{Expr: e}, true
	case JustificationRef:
		j, ok := d.LookupStep(r)
		if !ok {
			return nil, false
		}
		return j, true
	case SubproofRef:
		s, ok := d.LookupSubproof(r)
		if !ok {
			return nil, false
		}
		return s, true
	}
	return nil, false
}

// LookupPremise returns the premise's expression.
func (d *Document) LookupPremise(ref PremiseRef) (logic.Expr, bool) {
	n, ok := d.premises.get(ref.h)
	if !ok {
		return nil, false
	}
	return n.expr, true
}

// LookupStep returns a copy of the justification.
func (d *Document) LookupStep(ref JustificationRef) (Justification, bool) {
	n, ok := d.steps.get(ref.h)
	if !ok {
		return Justification{}, false
	}
	return n.just.clone(), true
}

// LookupSubproof returns a copy of the sub-proof's premise and line lists.
func (d *Document) LookupSubproof(ref SubproofRef) (Subproof, bool) {
	n, ok := d.subproofs.get(ref.h)
	if !ok {
		return Subproof{}, false
	}
	return Subproof{
		Premises: append([]PremiseRef(nil), n.premises...),
		Lines:    append([]LineRef(nil), n.lines...),
	}, true
}

// LookupExpr returns a premise's expression or a justification's conclusion.
func (d *Document) LookupExpr(ref PJRef) (logic.Expr, bool) {
	switch r := ref.(type) {
	case PremiseRef:
		return d.LookupPremise(r)
	case JustificationRef:
		n, ok := d.steps.get(r.h)
		if !ok {
			return nil, false
		}
		return n.just.Conclusion, true
	}
	return nil, false
}

// ParentOf returns the sub-proof containing the line addressed by ref. It
// reports false for lines of the root, for the root itself and for stale
// references.
func (d *Document) ParentOf(ref PJSRef) (SubproofRef, bool) {
	owner, ok := d.owner(ref)
	if !ok || owner == d.root {
		return SubproofRef{}, false
	}
	return owner, true
}

// owner returns the sub-proof that directly holds ref, the root included.
func (d *Document) owner(ref PJSRef) (SubproofRef, bool) {
	switch r := ref.(type) {
	case PremiseRef:
		if n, ok := d.premises.get(r.h); ok {
			return n.owner, true
		}
	case JustificationRef:
		if n, ok := d.steps.get(r.h); ok {
			return n.owner, true
		}
	case SubproofRef:
		if n, ok := d.subproofs.get(r.h); ok && r != d.root {
			return n.parent, true
		}
	}
	return SubproofRef{}, false
}

// exists reports whether ref currently resolves.
func (d *Document) exists(ref PJSRef) bool {
	switch r := ref.(type) {
	case PremiseRef:
		_, ok := d.premises.get(r.h)
		return ok
	case JustificationRef:
		_, ok := d.steps.get(r.h)
		return ok
	case SubproofRef:
		_, ok := d.subproofs.get(r.h)
		return ok
	}
	return false
}

func indexOf[T comparable](list []T, v T) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}
