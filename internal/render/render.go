// Package render lays a proof document out as numbered, indented rows and
// prints them as text.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/fitch/internal/logic"
	"github.com/starford/fitch/internal/proof"
	"github.com/starford/fitch/internal/rules"
)

// Row kinds.
const (
	KindPremise = "premise"
	KindStep    = "step"
)

// Row is one numbered line of a document with its verdict.
type Row struct {
	Ref    proof.PJRef
	Line   int
	Depth  int
	Kind   string
	Expr   string
	Rule   string // rule id, steps only
	Deps   []int
	Ranges []string
	Err    error
	// LastPremise marks the final assumption of a sub-proof, after which the
	// separator is drawn.
	LastPremise bool
}

// Badge is the citation list as displayed, e.g. "1, 2, 4-5".
func (r Row) Badge() string {
	parts := make([]string, 0, len(r.Deps)+len(r.Ranges))
	for _, d := range r.Deps {
		parts = append(parts, strconv.Itoa(d))
	}
	parts = append(parts, r.Ranges...)
	return strings.Join(parts, ", ")
}

// Verdict is the status column text.
func (r Row) Verdict() string {
	switch {
	case r.Kind == KindPremise && r.Depth == 0:
		return "Premise"
	case r.Kind == KindPremise:
		return "Assumption"
	case r.Err != nil:
		return "Error: " + r.Err.Error()
	default:
		return "Correct"
	}
}

// Rows verifies every line of d and returns them in display order.
func Rows(d proof.Proof) []Row {
	idx := proof.BuildIndex(d)
	var rows []Row
	var walk func(ref proof.SubproofRef, depth int)
	walk = func(ref proof.SubproofRef, depth int) {
		sp, ok := d.LookupSubproof(ref)
		if !ok {
			return
		}
		for i, pr := range sp.Premises {
			e, _ := d.LookupPremise(pr)
			li, _ := idx.Lookup(pr)
			rows = append(rows, Row{
				Ref:         pr,
				Line:        li.Line,
				Depth:       depth,
				Kind:        KindPremise,
				Expr:        text(e),
				LastPremise: i == len(sp.Premises)-1,
			})
		}
		for _, l := range sp.Lines {
			switch l := l.(type) {
			case proof.JustificationRef:
				rows = append(rows, stepRow(d, idx, l, depth))
			case proof.SubproofRef:
				walk(l, depth+1)
			}
		}
	}
	walk(d.Root(), 0)
	return rows
}

func stepRow(d proof.Proof, idx *proof.LineIndex, ref proof.JustificationRef, depth int) Row {
	j, _ := d.LookupStep(ref)
	li, _ := idx.Lookup(ref)
	row := Row{
		Ref:   ref,
		Line:  li.Line,
		Depth: depth,
		Kind:  KindStep,
		Expr:  text(j.Conclusion),
		Err:   d.VerifyLine(ref),
	}
	if j.Rule != nil {
		row.Rule = j.Rule.ID()
	}
	for _, dep := range j.Deps {
		if dl, ok := idx.Lookup(dep); ok {
			row.Deps = append(row.Deps, dl.Line)
		}
	}
	for _, dep := range j.SubproofDeps {
		if start, end, ok := idx.Range(dep); ok {
			row.Ranges = append(row.Ranges, fmt.Sprintf("%d-%d", start, end))
		}
	}
	return row
}

func text(e logic.Expr) string {
	if logic.IsBlank(e) {
		return ""
	}
	return e.String()
}

// RuleName returns the display name for a rule id, or the id itself.
func RuleName(id string) string {
	if id == "" {
		return ""
	}
	r, err := rules.Lookup(id)
	if err != nil {
		return id
	}
	return r.Name()
}

// Options controls Text.
type Options struct {
	Color bool
}

var (
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleNumber  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	stylePremise = lipgloss.NewStyle().Foreground(lipgloss.Color("#bac2de"))
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
)

// Text prints the document as a Fitch-style listing:
//
//	1 │ A                Premise
//	2 │ B                Premise
//	  ├──
//	3 │ A ∧ B            ∧ Intro 1, 2    Correct
func Text(w io.Writer, title string, d proof.Proof, opts Options) error {
	rows := Rows(d)
	paint := func(s lipgloss.Style, v string) string {
		if !opts.Color {
			return v
		}
		return s.Render(v)
	}

	numWidth := len(strconv.Itoa(len(rows)))
	bodyWidth := 0
	for _, r := range rows {
		bodyWidth = max(bodyWidth, lipgloss.Width(gutter(r.Depth)+r.Expr))
	}

	var sb strings.Builder
	if title != "" {
		sb.WriteString(paint(styleTitle, title))
		sb.WriteString("\n\n")
	}
	for _, r := range rows {
		body := gutter(r.Depth) + r.Expr
		body += strings.Repeat(" ", bodyWidth-lipgloss.Width(body))

		var just string
		if r.Kind == KindStep {
			just = strings.TrimSpace(RuleName(r.Rule) + " " + r.Badge())
		}
		verdict := r.Verdict()
		switch {
		case r.Kind == KindPremise:
			verdict = paint(stylePremise, verdict)
		case r.Err != nil:
			verdict = paint(styleErr, verdict)
		default:
			verdict = paint(styleOK, verdict)
		}

		line := fmt.Sprintf("%s %s  %s", paint(styleNumber, fmt.Sprintf("%*d", numWidth, r.Line)), body, just)
		sb.WriteString(strings.TrimRight(line, " "))
		sb.WriteString("  ")
		sb.WriteString(verdict)
		sb.WriteString("\n")

		if r.LastPremise {
			sb.WriteString(strings.Repeat(" ", numWidth+1))
			sb.WriteString(strings.Repeat("│ ", r.Depth))
			sb.WriteString("├──\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func gutter(depth int) string { return strings.Repeat("│ ", depth+1) }

// Failures counts steps whose verdict is an error.
func Failures(rows []Row) int {
	n := 0
	for _, r := range rows {
		if r.Err != nil {
			n++
		}
	}
	return n
}
