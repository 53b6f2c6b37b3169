package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/starford/fitch/internal/codec"
)

const demo = `title: Demo
premises: [A, B]
lines:
  - {expr: "A & B", rule: and_intro, deps: [1, 2]}
  - subproof:
      premises: [C]
      lines: [{expr: "A & B", rule: reiteration, deps: [3]}]
  - {expr: "C -> (A & B)", rule: imp_intro, subproof_deps: ["4-5"]}
  - {expr: "A | B", rule: and_intro, deps: [1, 2]}
`

func decode(t *testing.T, s string) *codec.File {
	t.Helper()
	f, err := codec.Decode([]byte(s))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return f
}

func TestRows(t *testing.T) {
	f := decode(t, demo)
	rows := Rows(f.Proof)
	if len(rows) != 7 {
		t.Fatalf("len(rows) = %d, want 7", len(rows))
	}
	if rows[3].Depth != 1 || rows[3].Verdict() != "Assumption" || !rows[3].LastPremise {
		t.Errorf("row 4 = %+v", rows[3])
	}
	if rows[1].Verdict() != "Premise" || !rows[1].LastPremise || rows[0].LastPremise {
		t.Errorf("root premises = %+v / %+v", rows[0], rows[1])
	}
	if got := rows[5].Badge(); got != "4-5" {
		t.Errorf("badge = %q", got)
	}
	if got := rows[2].Badge(); got != "1, 2" {
		t.Errorf("badge = %q", got)
	}
	if rows[5].Verdict() != "Correct" {
		t.Errorf("line 6: %s", rows[5].Verdict())
	}
	if !strings.HasPrefix(rows[6].Verdict(), "Error: ") {
		t.Errorf("line 7: %s", rows[6].Verdict())
	}
	if Failures(rows) != 1 {
		t.Errorf("Failures = %d", Failures(rows))
	}
}

func TestText(t *testing.T) {
	f := decode(t, demo)
	var buf bytes.Buffer
	if err := Text(&buf, f.Title, f.Proof, Options{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Demo\n",
		"1 │ A",
		"4 │ │ C",
		"  │ ├──",
		"∧ Intro 1, 2",
		"→ Intro 4-5",
		"Correct",
		"Error: ∧ Intro: expected a conjunction of the cited lines (A ∧ B), got A ∨ B",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestRuleName(t *testing.T) {
	if RuleName("imp_elim") != "→ Elim" {
		t.Errorf("RuleName(imp_elim) = %q", RuleName("imp_elim"))
	}
	if RuleName("nope") != "nope" || RuleName("") != "" {
		t.Error("unknown ids are shown as is")
	}
}
