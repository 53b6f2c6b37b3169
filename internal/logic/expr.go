// Package logic defines propositional expressions, their printer and parser.
package logic

import "strings"

// Expr is a propositional formula. Values are treated as immutable; use Clone
// before modifying a shared tree in place.
type Expr interface {
	String() string
	isExpr()
}

// BinaryOp is a non-associative binary connective.
type BinaryOp int

const (
	Implies BinaryOp = iota
	Biconditional
)

// AssocOp is an associative n-ary connective.
type AssocOp int

const (
	And AssocOp = iota
	Or
)

// Symbols used by the printer.
const (
	SymNot           = "¬"
	SymAnd           = "∧"
	SymOr            = "∨"
	SymImplies       = "→"
	SymBiconditional = "↔"
	SymContradiction = "⊥"
	SymTautology     = "⊤"
)

func (op BinaryOp) String() string {
	if op == Biconditional {
		return SymBiconditional
	}
	return SymImplies
}

func (op AssocOp) String() string {
	if op == Or {
		return SymOr
	}
	return SymAnd
}

// Var is a propositional variable. The zero Var is the blank placeholder used
// for lines that have not been filled in yet.
type Var struct {
	Name string
}

// Contradiction is ⊥.
type Contradiction struct{}

// Tautology is ⊤.
type Tautology struct{}

// Not is a negation.
type Not struct {
	Operand Expr
}

// Binary is an implication or biconditional.
type Binary struct {
	Op          BinaryOp
	Left, Right Expr
}

// Assoc is a conjunction or disjunction of two or more operands.
type Assoc struct {
	Op       AssocOp
	Operands []Expr
}

func (Var) isExpr()           {}
func (Contradiction) isExpr() {}
func (Tautology) isExpr()     {}
func (Not) isExpr()           {}
func (Binary) isExpr()        {}
func (Assoc) isExpr()         {}

func (v Var) String() string         { return v.Name }
func (Contradiction) String() string { return SymContradiction }
func (Tautology) String() string     { return SymTautology }
func (n Not) String() string         { return SymNot + operand(n.Operand) }
func (b Binary) String() string {
	return operand(b.Left) + " " + b.Op.String() + " " + operand(b.Right)
}
func (a Assoc) String() string {
	parts := make([]string, len(a.Operands))
	for i, e := range a.Operands {
		parts[i] = operand(e)
	}
	return strings.Join(parts, " "+a.Op.String()+" ")
}

// operand prints a sub-expression, parenthesising compound forms so the
// output parses back to the same tree.
func operand(e Expr) string {
	switch e.(type) {
	case Binary, Assoc:
		return "(" + e.String() + ")"
	case nil:
		return ""
	default:
		return e.String()
	}
}

// IsBlank reports whether e is the blank placeholder.
func IsBlank(e Expr) bool {
	v, ok := e.(Var)
	return e == nil || (ok && v.Name == "")
}

// Equal reports structural equality. Operand order matters.
func Equal(a, b Expr) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Var:
		y, ok := b.(Var)
		return ok && x.Name == y.Name
	case Contradiction:
		_, ok := b.(Contradiction)
		return ok
	case Tautology:
		_, ok := b.(Tautology)
		return ok
	case Not:
		y, ok := b.(Not)
		return ok && Equal(x.Operand, y.Operand)
	case Binary:
		y, ok := b.(Binary)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case Assoc:
		y, ok := b.(Assoc)
		if !ok || x.Op != y.Op || len(x.Operands) != len(y.Operands) {
			return false
		}
		for i := range x.Operands {
			if !Equal(x.Operands[i], y.Operands[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy of e.
func Clone(e Expr) Expr {
	switch x := e.(type) {
	case Not:
		return Not{Operand: Clone(x.Operand)}
	case Binary:
		return Binary{Op: x.Op, Left: Clone(x.Left), Right: Clone(x.Right)}
	case Assoc:
		ops := make([]Expr, len(x.Operands))
		for i, o := range x.Operands {
			ops[i] = Clone(o)
		}
		return Assoc{Op: x.Op, Operands: ops}
	default:
		return e
	}
}

// SameOperands reports whether two operand lists are equal as multisets.
func SameOperands(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, x := range a {
		for i, y := range b {
			if !used[i] && Equal(x, y) {
				used[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}

// Contains reports whether list holds an expression equal to e.
func Contains(list []Expr, e Expr) bool {
	for _, x := range list {
		if Equal(x, e) {
			return true
		}
	}
	return false
}

// Builders.

func V(name string) Expr    { return Var{Name: name} }
func NotOf(e Expr) Expr     { return Not{Operand: e} }
func AndOf(es ...Expr) Expr { return Assoc{Op: And, Operands: es} }
func OrOf(es ...Expr) Expr  { return Assoc{Op: Or, Operands: es} }
func Imp(l, r Expr) Expr    { return Binary{Op: Implies, Left: l, Right: r} }
func Bicon(l, r Expr) Expr  { return Binary{Op: Biconditional, Left: l, Right: r} }
