// Package rules is the closed catalogue of natural-deduction rules that proof
// steps cite. Every rule is a pure check of a conclusion against the
// expressions its citations resolve to.
package rules

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/starford/fitch/internal/apperr"
	"github.com/starford/fitch/internal/logic"
	"github.com/starford/fitch/internal/proof"
)

// Rule identifies one entry of the catalogue.
type Rule int

const (
	Reiteration Rule = iota
	AndIntro
	AndElim
	OrIntro
	OrElim
	ImpIntro
	ImpElim
	NotIntro
	NotElim
	ContradictionIntro
	ContradictionElim
	BiconditionalIntro
	BiconditionalElim
	DisjunctiveSyllogism
	ModusTollens

	numRules
)

var _ proof.Rule = Reiteration

// Classification groups rules the way the rules menu shows them.
type Classification int

const (
	Introduction Classification = iota
	Elimination
	Inference
	Misc
)

func (c Classification) String() string {
	switch c {
	case Introduction:
		return "Introduction"
	case Elimination:
		return "Elimination"
	case Inference:
		return "Inference"
	default:
		return "Misc"
	}
}

// Any as an arity means "one or more".
const Any = -1

type entry struct {
	id        string
	name      string
	class     Classification
	lines     int
	subproofs int
	check     func(c logic.Expr, d proof.Resolved) string
}

var catalogue = [numRules]entry{
	Reiteration:          {"reiteration", "Reiteration", Misc, 1, 0, checkReiteration},
	AndIntro:             {"and_intro", "∧ Intro", Introduction, Any, 0, checkAndIntro},
	AndElim:              {"and_elim", "∧ Elim", Elimination, 1, 0, checkAndElim},
	OrIntro:              {"or_intro", "∨ Intro", Introduction, 1, 0, checkOrIntro},
	OrElim:               {"or_elim", "∨ Elim", Elimination, 1, Any, checkOrElim},
	ImpIntro:             {"imp_intro", "→ Intro", Introduction, 0, 1, checkImpIntro},
	ImpElim:              {"imp_elim", "→ Elim", Elimination, 2, 0, checkImpElim},
	NotIntro:             {"not_intro", "¬ Intro", Introduction, 0, 1, checkNotIntro},
	NotElim:              {"not_elim", "¬ Elim", Elimination, 1, 0, checkNotElim},
	ContradictionIntro:   {"contradiction_intro", "⊥ Intro", Introduction, 2, 0, checkContradictionIntro},
	ContradictionElim:    {"contradiction_elim", "⊥ Elim", Elimination, 1, 0, checkContradictionElim},
	BiconditionalIntro:   {"bicon_intro", "↔ Intro", Introduction, 0, 2, checkBiconIntro},
	BiconditionalElim:    {"bicon_elim", "↔ Elim", Elimination, 2, 0, checkBiconElim},
	DisjunctiveSyllogism: {"disjunctive_syllogism", "Disjunctive Syllogism", Inference, 2, 0, checkDisjunctiveSyllogism},
	ModusTollens:         {"modus_tollens", "Modus Tollens", Inference, 2, 0, checkModusTollens},
}

func (r Rule) entry() entry {
	if r < 0 || r >= numRules {
		return entry{id: "unknown", name: fmt.Sprintf("Rule(%d)", int(r)), class: Misc}
	}
	return catalogue[r]
}

// ID is the stable identifier used in persisted documents and the API.
func (r Rule) ID() string { return r.entry().id }

// Name is the display name.
func (r Rule) Name() string { return r.entry().name }

func (r Rule) String() string { return r.Name() }

func (r Rule) Classification() Classification { return r.entry().class }

// Arity returns how many line and sub-proof citations the rule takes; Any
// means at least one.
func (r Rule) Arity() (lines, subproofs int) {
	e := r.entry()
	return e.lines, e.subproofs
}

// Check implements proof.Rule.
func (r Rule) Check(conclusion logic.Expr, deps proof.Resolved) error {
	e := r.entry()
	if e.check == nil {
		return &MismatchError{Rule: r, Reason: "unknown rule"}
	}
	if reason := arityMismatch("line", e.lines, len(deps.Lines)); reason != "" {
		return &MismatchError{Rule: r, Reason: reason}
	}
	if reason := arityMismatch("sub-proof", e.subproofs, len(deps.Subproofs)); reason != "" {
		return &MismatchError{Rule: r, Reason: reason}
	}
	if logic.IsBlank(conclusion) {
		return &MismatchError{Rule: r, Reason: "the conclusion is empty"}
	}
	if reason := e.check(conclusion, deps); reason != "" {
		return &MismatchError{Rule: r, Reason: reason}
	}
	return nil
}

func arityMismatch(kind string, want, got int) string {
	switch {
	case want == Any && got == 0:
		return fmt.Sprintf("expected at least one cited %s", kind)
	case want != Any && want != got:
		return fmt.Sprintf("expected %s, got %d", plural(want, "cited "+kind), got)
	}
	return ""
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// MismatchError is a rule's verdict against a step.
type MismatchError struct {
	Rule   Rule
	Reason string
}

func (e *MismatchError) Error() string { return e.Rule.Name() + ": " + e.Reason }

func (e *MismatchError) Is(target error) bool { return target == apperr.ErrRuleMismatch }

// All returns the catalogue in menu order.
func All() []Rule {
	out := make([]Rule, 0, numRules)
	for r := Rule(0); r < numRules; r++ {
		out = append(out, r)
	}
	return out
}

// ByClass groups the catalogue by classification.
func ByClass() map[Classification][]Rule {
	out := make(map[Classification][]Rule)
	for _, r := range All() {
		out[r.Classification()] = append(out[r.Classification()], r)
	}
	return out
}

// Lookup resolves a rule by id or display name, ignoring case. Unknown names
// fail with a suggestion of the closest id.
func Lookup(name string) (Rule, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, r := range All() {
		if key == r.ID() || key == strings.ToLower(r.Name()) {
			return r, nil
		}
	}
	best, dist := "", -1
	for _, r := range All() {
		if d := levenshtein.ComputeDistance(key, r.ID()); dist < 0 || d < dist {
			best, dist = r.ID(), d
		}
	}
	if dist >= 0 && dist <= len(best)/2 {
		return 0, fmt.Errorf("rules: unknown rule %q, did you mean %q: %w", name, best, apperr.ErrInvalidOperation)
	}
	return 0, fmt.Errorf("rules: unknown rule %q: %w", name, apperr.ErrInvalidOperation)
}

// FromProof recovers a catalogue rule from the value stored in a step.
func FromProof(r proof.Rule) (Rule, bool) {
	rule, ok := r.(Rule)
	if !ok || rule < 0 || rule >= numRules {
		return 0, false
	}
	return rule, true
}

// NewDocument returns the minimal valid document: a blank premise and a blank
// reiteration step.
func NewDocument() *proof.Document {
	return proof.NewEmpty(Reiteration)
}

// BlankStep is the step inserted by editing operations.
func BlankStep() proof.Justification {
	return proof.Justification{Conclusion: logic.Var{}, Rule: Reiteration}
}
