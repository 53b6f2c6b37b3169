package rules

import (
	"fmt"

	"github.com/starford/fitch/internal/logic"
	"github.com/starford/fitch/internal/proof"
)

// Each check returns an empty string when the step is valid and the reason
// otherwise. Citation counts are verified before a check runs.

func assoc(e logic.Expr, op logic.AssocOp) (logic.Assoc, bool) {
	a, ok := e.(logic.Assoc)
	return a, ok && a.Op == op
}

func binary(e logic.Expr, op logic.BinaryOp) (logic.Binary, bool) {
	b, ok := e.(logic.Binary)
	return b, ok && b.Op == op
}

func negation(e logic.Expr) (logic.Expr, bool) {
	n, ok := e.(logic.Not)
	return n.Operand, ok
}

// sole returns the single assumption and the final conclusion of a cited
// sub-proof.
func sole(s proof.ResolvedSubproof) (premise, last logic.Expr, reason string) {
	if len(s.Premises) != 1 {
		return nil, nil, fmt.Sprintf("the cited sub-proof must have exactly 1 assumption, it has %d", len(s.Premises))
	}
	if s.Last() == nil {
		return nil, nil, "the cited sub-proof has no conclusion"
	}
	return s.Premises[0], s.Last(), ""
}

func checkReiteration(c logic.Expr, d proof.Resolved) string {
	if !logic.Equal(c, d.Lines[0]) {
		return fmt.Sprintf("expected the cited line (%s), got %s", d.Lines[0], c)
	}
	return ""
}

func checkAndIntro(c logic.Expr, d proof.Resolved) string {
	a, ok := assoc(c, logic.And)
	if !ok || !logic.SameOperands(a.Operands, d.Lines) {
		return fmt.Sprintf("expected a conjunction of the cited lines (%s), got %s", logic.AndOf(d.Lines...), c)
	}
	return ""
}

func checkAndElim(c logic.Expr, d proof.Resolved) string {
	a, ok := assoc(d.Lines[0], logic.And)
	if !ok {
		return fmt.Sprintf("the cited line must be a conjunction, got %s", d.Lines[0])
	}
	if !logic.Contains(a.Operands, c) {
		return fmt.Sprintf("%s is not a conjunct of %s", c, a)
	}
	return ""
}

func checkOrIntro(c logic.Expr, d proof.Resolved) string {
	a, ok := assoc(c, logic.Or)
	if !ok {
		return fmt.Sprintf("expected a disjunction, got %s", c)
	}
	if !logic.Contains(a.Operands, d.Lines[0]) {
		return fmt.Sprintf("the cited line %s is not a disjunct of %s", d.Lines[0], c)
	}
	return ""
}

func checkOrElim(c logic.Expr, d proof.Resolved) string {
	a, ok := assoc(d.Lines[0], logic.Or)
	if !ok {
		return fmt.Sprintf("the cited line must be a disjunction, got %s", d.Lines[0])
	}
	if len(d.Subproofs) != len(a.Operands) {
		return fmt.Sprintf("expected one sub-proof per disjunct (%d), got %d", len(a.Operands), len(d.Subproofs))
	}
	var assumed []logic.Expr
	for _, s := range d.Subproofs {
		p, last, reason := sole(s)
		if reason != "" {
			return reason
		}
		if !logic.Equal(last, c) {
			return fmt.Sprintf("every sub-proof must conclude %s, one concludes %s", c, last)
		}
		assumed = append(assumed, p)
	}
	if !logic.SameOperands(assumed, a.Operands) {
		return fmt.Sprintf("the sub-proofs must assume each disjunct of %s", a)
	}
	return ""
}

func checkImpIntro(c logic.Expr, d proof.Resolved) string {
	p, last, reason := sole(d.Subproofs[0])
	if reason != "" {
		return reason
	}
	want := logic.Imp(p, last)
	if !logic.Equal(c, want) {
		return fmt.Sprintf("expected %s, got %s", want, c)
	}
	return ""
}

func checkImpElim(c logic.Expr, d proof.Resolved) string {
	for i := range 2 {
		imp, ok := binary(d.Lines[i], logic.Implies)
		if !ok || !logic.Equal(imp.Left, d.Lines[1-i]) {
			continue
		}
		if !logic.Equal(imp.Right, c) {
			return fmt.Sprintf("expected the consequent %s, got %s", imp.Right, c)
		}
		return ""
	}
	return "expected an implication and its antecedent"
}

func checkNotIntro(c logic.Expr, d proof.Resolved) string {
	p, last, reason := sole(d.Subproofs[0])
	if reason != "" {
		return reason
	}
	if _, ok := last.(logic.Contradiction); !ok {
		return fmt.Sprintf("the cited sub-proof must conclude %s, got %s", logic.SymContradiction, last)
	}
	want := logic.NotOf(p)
	if !logic.Equal(c, want) {
		return fmt.Sprintf("expected %s, got %s", want, c)
	}
	return ""
}

func checkNotElim(c logic.Expr, d proof.Resolved) string {
	inner, ok := negation(d.Lines[0])
	if ok {
		inner, ok = negation(inner)
	}
	if !ok {
		return fmt.Sprintf("the cited line must be a double negation, got %s", d.Lines[0])
	}
	if !logic.Equal(c, inner) {
		return fmt.Sprintf("expected %s, got %s", inner, c)
	}
	return ""
}

func checkContradictionIntro(c logic.Expr, d proof.Resolved) string {
	if _, ok := c.(logic.Contradiction); !ok {
		return fmt.Sprintf("expected %s, got %s", logic.SymContradiction, c)
	}
	for i := range 2 {
		if neg, ok := negation(d.Lines[i]); ok && logic.Equal(neg, d.Lines[1-i]) {
			return ""
		}
	}
	return fmt.Sprintf("the cited lines %s and %s do not contradict each other", d.Lines[0], d.Lines[1])
}

func checkContradictionElim(_ logic.Expr, d proof.Resolved) string {
	if _, ok := d.Lines[0].(logic.Contradiction); !ok {
		return fmt.Sprintf("the cited line must be %s, got %s", logic.SymContradiction, d.Lines[0])
	}
	return ""
}

func checkBiconIntro(c logic.Expr, d proof.Resolved) string {
	b, ok := binary(c, logic.Biconditional)
	if !ok {
		return fmt.Sprintf("expected a biconditional, got %s", c)
	}
	p0, l0, reason := sole(d.Subproofs[0])
	if reason != "" {
		return reason
	}
	p1, l1, reason := sole(d.Subproofs[1])
	if reason != "" {
		return reason
	}
	forward := logic.Equal(p0, b.Left) && logic.Equal(l0, b.Right) && logic.Equal(p1, b.Right) && logic.Equal(l1, b.Left)
	backward := logic.Equal(p1, b.Left) && logic.Equal(l1, b.Right) && logic.Equal(p0, b.Right) && logic.Equal(l0, b.Left)
	if !forward && !backward {
		return fmt.Sprintf("expected sub-proofs deriving %s from %s and %s from %s", b.Right, b.Left, b.Left, b.Right)
	}
	return ""
}

func checkBiconElim(c logic.Expr, d proof.Resolved) string {
	for i := range 2 {
		b, ok := binary(d.Lines[i], logic.Biconditional)
		if !ok {
			continue
		}
		other := d.Lines[1-i]
		switch {
		case logic.Equal(other, b.Left) && logic.Equal(c, b.Right):
			return ""
		case logic.Equal(other, b.Right) && logic.Equal(c, b.Left):
			return ""
		case logic.Equal(other, b.Left):
			return fmt.Sprintf("expected %s, got %s", b.Right, c)
		case logic.Equal(other, b.Right):
			return fmt.Sprintf("expected %s, got %s", b.Left, c)
		}
	}
	return "expected a biconditional and one of its sides"
}

func checkDisjunctiveSyllogism(c logic.Expr, d proof.Resolved) string {
	for i := range 2 {
		a, ok := assoc(d.Lines[i], logic.Or)
		if !ok {
			continue
		}
		denied, ok := negation(d.Lines[1-i])
		if !ok {
			continue
		}
		var rest []logic.Expr
		removed := false
		for _, op := range a.Operands {
			if !removed && logic.Equal(op, denied) {
				removed = true
				continue
			}
			rest = append(rest, op)
		}
		if !removed {
			return fmt.Sprintf("%s is not a disjunct of %s", denied, a)
		}
		want := rest[0]
		if len(rest) > 1 {
			want = logic.OrOf(rest...)
		}
		if !logic.Equal(c, want) {
			return fmt.Sprintf("expected %s, got %s", want, c)
		}
		return ""
	}
	return "expected a disjunction and the negation of one disjunct"
}

func checkModusTollens(c logic.Expr, d proof.Resolved) string {
	for i := range 2 {
		imp, ok := binary(d.Lines[i], logic.Implies)
		if !ok {
			continue
		}
		denied, ok := negation(d.Lines[1-i])
		if !ok || !logic.Equal(denied, imp.Right) {
			continue
		}
		want := logic.NotOf(imp.Left)
		if !logic.Equal(c, want) {
			return fmt.Sprintf("expected %s, got %s", want, c)
		}
		return ""
	}
	return "expected an implication and the negation of its consequent"
}
