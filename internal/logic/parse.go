package logic

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SyntaxError describes where and why parsing failed.
type SyntaxError struct {
	Pos int // byte offset into the input
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("logic: syntax error at %d: %s", e.Pos, e.Msg)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNot
	tokAnd
	tokOr
	tokImplies
	tokBicon
	tokBottom
	tokTop
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// spellings maps every accepted operator spelling to its token. Longer
// spellings must be tried first, and all of them before identifiers so that
// _|_ is not read as a name.
var spellings = []struct {
	text string
	kind tokenKind
}{
	{"<->", tokBicon},
	{"_|_", tokBottom},
	{"->", tokImplies},
	{"/\\", tokAnd},
	{"\\/", tokOr},
	{"↔", tokBicon},
	{"→", tokImplies},
	{"∧", tokAnd},
	{"∨", tokOr},
	{"¬", tokNot},
	{"⊥", tokBottom},
	{"⊤", tokTop},
	{"%", tokBicon},
	{"$", tokImplies},
	{"&", tokAnd},
	{"|", tokOr},
	{"~", tokNot},
	{"!", tokNot},
	{"^", tokBottom},
	{"(", tokLParen},
	{")", tokRParen},
}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
next:
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		for _, sp := range spellings {
			if strings.HasPrefix(input[i:], sp.text) {
				toks = append(toks, token{kind: sp.kind, text: sp.text, pos: i})
				i += len(sp.text)
				continue next
			}
		}
		if isIdentStart(r) {
			start := i
			for i < len(input) {
				r, size = utf8.DecodeRuneInString(input[i:])
				if !isIdentPart(r) {
					break
				}
				i += size
			}
			toks = append(toks, token{kind: tokIdent, text: input[start:i], pos: start})
			continue
		}
		return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", r)}
	}
	return append(toks, token{kind: tokEOF, pos: len(input)}), nil
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isIdentPart(r rune) bool {
	return r == '_' || r == '\'' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

type parser struct {
	toks []token
	pos  int
}

// Parse reads a propositional formula. Precedence from tightest to loosest:
// ¬, ∧, ∨, →, ↔; → and ↔ associate to the right.
func Parse(input string) (Expr, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.bicon()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
	return e, nil
}

// MustParse is Parse for known-good input; it panics on error.
func MustParse(input string) Expr {
	e, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return e
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) bicon() (Expr, error) {
	left, err := p.implies()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokBicon {
		return left, nil
	}
	p.advance()
	right, err := p.bicon()
	if err != nil {
		return nil, err
	}
	return Binary{Op: Biconditional, Left: left, Right: right}, nil
}

func (p *parser) implies() (Expr, error) {
	left, err := p.disjunction()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokImplies {
		return left, nil
	}
	p.advance()
	right, err := p.implies()
	if err != nil {
		return nil, err
	}
	return Binary{Op: Implies, Left: left, Right: right}, nil
}

func (p *parser) disjunction() (Expr, error) { return p.chain(Or, tokOr, p.conjunction) }

func (p *parser) conjunction() (Expr, error) { return p.chain(And, tokAnd, p.unary) }

// chain parses a run of one associative operator into a single flat node.
func (p *parser) chain(op AssocOp, kind tokenKind, operand func() (Expr, error)) (Expr, error) {
	first, err := operand()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != kind {
		return first, nil
	}
	ops := []Expr{first}
	for p.peek().kind == kind {
		p.advance()
		next, err := operand()
		if err != nil {
			return nil, err
		}
		ops = append(ops, next)
	}
	return Assoc{Op: op, Operands: ops}, nil
}

func (p *parser) unary() (Expr, error) {
	t := p.advance()
	switch t.kind {
	case tokNot:
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Not{Operand: inner}, nil
	case tokIdent:
		return Var{Name: t.text}, nil
	case tokBottom:
		return Contradiction{}, nil
	case tokTop:
		return Tautology{}, nil
	case tokLParen:
		inner, err := p.bicon()
		if err != nil {
			return nil, err
		}
		if closing := p.advance(); closing.kind != tokRParen {
			return nil, &SyntaxError{Pos: closing.pos, Msg: "expected )"}
		}
		return inner, nil
	case tokEOF:
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected end of input"}
	default:
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
}
