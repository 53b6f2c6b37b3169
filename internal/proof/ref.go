package proof

import (
	"fmt"
	"strconv"
	"strings"
)

// handle is a generation-checked arena slot address. The zero handle never
// resolves because live slots start at generation 1.
type handle struct {
	idx uint32
	gen uint32
}

func (h handle) format(kind byte) string {
	return string(kind) + strconv.FormatUint(uint64(h.idx), 10) + "." + strconv.FormatUint(uint64(h.gen), 10)
}

// PremiseRef addresses a premise.
type PremiseRef struct{ h handle }

// JustificationRef addresses a justification step.
type JustificationRef struct{ h handle }

// SubproofRef addresses a sub-proof, including the root.
type SubproofRef struct{ h handle }

// PJRef is a premise or a justification: anything a line dependency can name.
type PJRef interface {
	PJSRef
	isPJ()
}

// LineRef is a justification or a sub-proof: anything occupying a line slot.
type LineRef interface {
	PJSRef
	isLine()
}

// PJSRef is a premise, a justification, or a sub-proof.
type PJSRef interface {
	fmt.Stringer
	isPJS()
}

func (PremiseRef) isPJ()         {}
func (PremiseRef) isPJS()        {}
func (JustificationRef) isPJ()   {}
func (JustificationRef) isPJS()  {}
func (JustificationRef) isLine() {}
func (SubproofRef) isPJS()       {}
func (SubproofRef) isLine()      {}

func (r PremiseRef) String() string       { return r.h.format('p') }
func (r JustificationRef) String() string { return r.h.format('j') }
func (r SubproofRef) String() string      { return r.h.format('s') }

// IsZero reports whether r is the zero value.
func (r PremiseRef) IsZero() bool       { return r.h == handle{} }
func (r JustificationRef) IsZero() bool { return r.h == handle{} }
func (r SubproofRef) IsZero() bool      { return r.h == handle{} }

func (r PremiseRef) MarshalText() ([]byte, error)       { return []byte(r.String()), nil }
func (r JustificationRef) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
func (r SubproofRef) MarshalText() ([]byte, error)      { return []byte(r.String()), nil }

func (r *PremiseRef) UnmarshalText(b []byte) error {
	h, err := parseHandle(string(b), 'p')
	r.h = h
	return err
}

func (r *JustificationRef) UnmarshalText(b []byte) error {
	h, err := parseHandle(string(b), 'j')
	r.h = h
	return err
}

func (r *SubproofRef) UnmarshalText(b []byte) error {
	h, err := parseHandle(string(b), 's')
	r.h = h
	return err
}

// ParseRef decodes the text form produced by String (p3.1, j7.2, s2.1).
func ParseRef(s string) (PJSRef, error) {
	if s == "" {
		return nil, fmt.Errorf("proof: empty reference")
	}
	h, err := parseHandle(s, s[0])
	if err != nil {
		return nil, err
	}
	switch s[0] {
	case 'p':
		return PremiseRef{h}, nil
	case 'j':
		return JustificationRef{h}, nil
	default:
		return SubproofRef{h}, nil
	}
}

// ParsePJRef is ParseRef restricted to premises and justifications.
func ParsePJRef(s string) (PJRef, error) {
	r, err := ParseRef(s)
	if err != nil {
		return nil, err
	}
	pj, ok := r.(PJRef)
	if !ok {
		return nil, fmt.Errorf("proof: %s is not a premise or step reference", s)
	}
	return pj, nil
}

func parseHandle(s string, kind byte) (handle, error) {
	if len(s) < 2 || s[0] != kind || (kind != 'p' && kind != 'j' && kind != 's') {
		return handle{}, fmt.Errorf("proof: malformed reference %q", s)
	}
	idx, gen, ok := strings.Cut(s[1:], ".")
	if !ok {
		return handle{}, fmt.Errorf("proof: malformed reference %q", s)
	}
	i, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return handle{}, fmt.Errorf("proof: malformed reference %q: %w", s, err)
	}
	g, err := strconv.ParseUint(gen, 10, 32)
	if err != nil {
		return handle{}, fmt.Errorf("proof: malformed reference %q: %w", s, err)
	}
	return handle{idx: uint32(i), gen: uint32(g)}, nil
}
