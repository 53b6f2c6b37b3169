package proofservice

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/fitch/internal/apperr"
	"github.com/starford/fitch/internal/logic"
	"github.com/starford/fitch/internal/proof"
	"github.com/starford/fitch/internal/rules"
)

// Operation kinds.
const (
	OpInsert           = "insert"
	OpDelete           = "delete"
	OpSetExpr          = "set_expr"
	OpSetRule          = "set_rule"
	OpToggleDependency = "toggle_dependency"
)

// What an insert or delete acts on.
const (
	WhatLine     = "line"
	WhatSubproof = "subproof"
)

// Operation is one edit of an open document.
//
// Target and Dep address a line by reference ("j3.1"), by line number ("3"),
// or address a sub-proof by reference ("s2.1") or by its range ("4-5").
type Operation struct {
	Op     string `json:"op"`
	What   string `json:"what,omitempty"`
	Target string `json:"target"`
	After  bool   `json:"after,omitempty"`
	Text   string `json:"text,omitempty"`
	Rule   string `json:"rule,omitempty"`
	Dep    string `json:"dep,omitempty"`
}

// Validate checks the shape of the operation. Whether the addressed lines
// exist is decided when it is applied.
func (o Operation) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Op, validation.Required,
			validation.In(OpInsert, OpDelete, OpSetExpr, OpSetRule, OpToggleDependency)),
		validation.Field(&o.What,
			validation.When(o.Op == OpInsert || o.Op == OpDelete, validation.Required).Else(validation.Empty),
			validation.In(WhatLine, WhatSubproof)),
		validation.Field(&o.Target, validation.Required),
		validation.Field(&o.Rule, validation.When(o.Op == OpSetRule, validation.Required).Else(validation.Empty)),
		validation.Field(&o.Dep, validation.When(o.Op == OpToggleDependency, validation.Required).Else(validation.Empty)),
	)
}

// ApplyResult reports what an operation changed.
type ApplyResult struct {
	// Select is the line an editor should focus next, if any.
	Select   string          `json:"select,omitempty"`
	Removed  []string        `json:"removed,omitempty"`
	Document *DocumentDetail `json:"document"`
}

// Apply performs op on document id, persists the result and publishes an
// update. A refused operation leaves the document unchanged.
func (s *Service) Apply(ctx context.Context, id string, op Operation) (res *ApplyResult, err error) {
	defer func() { operationsApplied.WithLabelValues(opLabel(op.Op), outcome(err)).Inc() }()

	if err := op.Validate(); err != nil {
		return nil, fmt.Errorf("proofservice: %v: %w", err, apperr.ErrInvalidOperation)
	}
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sess.lock(); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	// Edit a copy; the session keeps the old document until the new one is
	// stored.
	work := sess.doc.Clone()
	e := &edit{doc: work, idx: proof.BuildIndex(work)}
	var out ApplyResult
	switch op.Op {
	case OpInsert:
		err = e.insert(op, &out)
	case OpDelete:
		err = e.delete(op, &out)
	case OpSetExpr:
		err = e.setExpr(op, &out)
	case OpSetRule:
		err = e.setRule(op, &out)
	case OpToggleDependency:
		err = e.toggleDependency(op, &out)
	}
	if err != nil {
		return nil, err
	}

	next := &session{id: sess.id, path: sess.path, title: sess.title, doc: work}
	if err := s.persist(next, nil, sess.content); err != nil {
		return nil, err
	}
	sess.doc, sess.content = work, next.content
	s.publish("updated", id)
	out.Document = sess.detail()
	return &out, nil
}

func opLabel(op string) string {
	switch op {
	case OpInsert, OpDelete, OpSetExpr, OpSetRule, OpToggleDependency:
		return op
	}
	return "unknown"
}

type edit struct {
	doc *proof.Document
	idx *proof.LineIndex
}

// resolve turns an address into a reference that exists in the document.
func (e *edit) resolve(addr string) (proof.PJSRef, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("proofservice: empty address: %w", apperr.ErrInvalidOperation)
	}
	switch addr[0] {
	case 'p', 'j', 's':
		ref, err := proof.ParseRef(addr)
		if err != nil {
			return nil, fmt.Errorf("proofservice: %v: %w", err, apperr.ErrInvalidOperation)
		}
		if _, ok := e.doc.Lookup(ref); !ok {
			return nil, fmt.Errorf("proofservice: %s: %w", addr, apperr.ErrDanglingReference)
		}
		return ref, nil
	}
	if a, b, ok := strings.Cut(addr, "-"); ok {
		start, err1 := strconv.Atoi(strings.TrimSpace(a))
		end, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("proofservice: malformed range %q: %w", addr, apperr.ErrInvalidOperation)
		}
		ref, ok := e.idx.SubproofAt(start, end)
		if !ok {
			return nil, fmt.Errorf("proofservice: no sub-proof spans lines %s: %w", addr, apperr.ErrNotFound)
		}
		return ref, nil
	}
	n, err := strconv.Atoi(addr)
	if err != nil {
		return nil, fmt.Errorf("proofservice: malformed address %q: %w", addr, apperr.ErrInvalidOperation)
	}
	ref, ok := e.idx.At(n)
	if !ok {
		return nil, fmt.Errorf("proofservice: line %d does not exist: %w", n, apperr.ErrNotFound)
	}
	return ref, nil
}

func (e *edit) resolveStep(addr string) (proof.JustificationRef, error) {
	ref, err := e.resolve(addr)
	if err != nil {
		return proof.JustificationRef{}, err
	}
	j, ok := ref.(proof.JustificationRef)
	if !ok {
		return proof.JustificationRef{}, fmt.Errorf("proofservice: %s is not a step: %w", addr, apperr.ErrInvalidOperation)
	}
	return j, nil
}

func (e *edit) insert(op Operation, out *ApplyResult) error {
	target, err := e.resolve(op.Target)
	if err != nil {
		return err
	}
	// Placement next to a sub-proof happens in its parent, so the root has
	// no place to put anything.
	if target == proof.PJSRef(e.doc.Root()) {
		return fmt.Errorf("proofservice: nothing can be inserted around the root: %w", apperr.ErrStructural)
	}

	switch t := target.(type) {
	case proof.PremiseRef:
		if op.What == WhatSubproof {
			return fmt.Errorf("proofservice: a sub-proof cannot be placed among premises: %w", apperr.ErrInvalidOperation)
		}
		ref, err := e.doc.AddPremiseRelative(logic.Var{}, t, op.After)
		if err != nil {
			return err
		}
		out.Select = ref.String()
	case proof.LineRef:
		if op.What == WhatLine {
			ref, err := e.doc.AddStepRelative(rules.BlankStep(), t, op.After)
			if err != nil {
				return err
			}
			out.Select = ref.String()
			return nil
		}
		sub, err := e.doc.AddSubproofRelative(t, op.After)
		if err != nil {
			return err
		}
		first, err := proof.WithMutSubproof(e.doc, sub, func(ed proof.Editor) proof.PremiseRef {
			p := ed.AddPremise(logic.Var{})
			ed.AddStep(rules.BlankStep())
			return p
		})
		if err != nil {
			return err
		}
		out.Select = first.String()
	}
	return nil
}

func (e *edit) delete(op Operation, out *ApplyResult) error {
	target, err := e.resolve(op.Target)
	if err != nil {
		return err
	}

	if op.What == WhatLine {
		pj, ok := target.(proof.PJRef)
		if !ok {
			return fmt.Errorf("proofservice: %s is a sub-proof, not a line: %w", op.Target, apperr.ErrInvalidOperation)
		}
		li, _ := e.idx.Lookup(pj)
		if err := e.doc.RemoveLine(pj); err != nil {
			return err
		}
		out.Removed = []string{pj.String()}
		out.Select = e.nearest(li.Line)
		return nil
	}

	// Deleting a sub-proof from one of its lines removes the enclosing one.
	sub, ok := target.(proof.SubproofRef)
	if !ok {
		if sub, ok = e.doc.ParentOf(target); !ok {
			return fmt.Errorf("proofservice: line %s is not inside a sub-proof: %w", op.Target, apperr.ErrStructural)
		}
	}
	start, _, _ := e.idx.Range(sub)
	removed, err := e.doc.RemoveSubproof(sub)
	if err != nil {
		return err
	}
	for _, r := range removed {
		out.Removed = append(out.Removed, r.String())
	}
	out.Select = e.nearest(start)
	return nil
}

// nearest returns the line now at n, or the last line when n is past the end.
func (e *edit) nearest(n int) string {
	e.idx = proof.BuildIndex(e.doc)
	n = min(max(n, 1), e.idx.Len())
	if ref, ok := e.idx.At(n); ok {
		return ref.String()
	}
	return ""
}

func (e *edit) setExpr(op Operation, out *ApplyResult) error {
	target, err := e.resolve(op.Target)
	if err != nil {
		return err
	}
	var expr logic.Expr = logic.Var{}
	if strings.TrimSpace(op.Text) != "" {
		if expr, err = logic.Parse(op.Text); err != nil {
			return fmt.Errorf("proofservice: %w: %w", err, apperr.ErrInvalidOperation)
		}
	}

	switch t := target.(type) {
	case proof.PremiseRef:
		err = e.doc.MutatePremise(t, func(p *logic.Expr) { *p = expr })
	case proof.JustificationRef:
		err = e.doc.MutateStep(t, func(j *proof.Justification) { j.Conclusion = expr })
	default:
		return fmt.Errorf("proofservice: %s has no expression: %w", op.Target, apperr.ErrInvalidOperation)
	}
	if err != nil {
		return err
	}
	out.Select = target.String()
	return nil
}

func (e *edit) setRule(op Operation, out *ApplyResult) error {
	step, err := e.resolveStep(op.Target)
	if err != nil {
		return err
	}
	rule, err := rules.Lookup(op.Rule)
	if err != nil {
		return err
	}
	if err := e.doc.MutateStep(step, func(j *proof.Justification) { j.Rule = rule }); err != nil {
		return err
	}
	out.Select = step.String()
	return nil
}

// toggleDependency cites dep from the target step, or withdraws the citation
// when it is already present. Withdrawing is allowed even when dep has gone
// out of scope.
func (e *edit) toggleDependency(op Operation, out *ApplyResult) error {
	step, err := e.resolveStep(op.Target)
	if err != nil {
		return err
	}
	dep, err := e.resolve(op.Dep)
	if err != nil {
		return err
	}
	j, _ := e.doc.LookupStep(step)
	if !j.HasDependency(dep) && !e.doc.CanReferenceDep(step, dep) {
		return fmt.Errorf("proofservice: %s cannot cite %s: %w", op.Target, op.Dep, apperr.ErrOutOfScope)
	}
	if err := e.doc.MutateStep(step, func(j *proof.Justification) { j.ToggleDependency(dep) }); err != nil {
		return err
	}
	out.Select = step.String()
	return nil
}
