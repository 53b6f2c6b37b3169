package mcpserver

// DocumentFormatContract describes the YAML proof format that LLM consumers
// should follow when creating documents.
const DocumentFormatContract = `# Fitch Document Format Contract

Every proof stored by Fitch is a YAML file with the ` + "`" + `.proof.yaml` + "`" + ` extension.

## Structure

` + "```" + `yaml
title: Human-readable title          # OPTIONAL, at most 200 characters
premises: ["A", "B"]                 # REQUIRED, at least one formula
lines:                               # REQUIRED, at least one entry
  - {expr: "A & B", rule: and_intro, deps: [1, 2]}
  - subproof:                        # a nested sub-proof
      premises: ["C"]                # its assumption(s)
      lines:
        - {expr: "A & B", rule: reiteration, deps: [3]}
  - {expr: "C -> (A & B)", rule: imp_intro, subproof_deps: ["4-5"]}
` + "```" + `

## Rules

1. **Line numbers** count every premise and step from 1, top to bottom, including
   the lines of nested sub-proofs.
2. **deps** cite single lines by number. **subproof_deps** cite whole sub-proofs by
   their "start-end" range.
3. A step may only cite lines above it that are in scope: lines of the same
   sub-proof, or of an enclosing one. A sub-proof is citable once it has closed.
4. **Formulas** use ` + "`" + `&` + "`" + ` (and), ` + "`" + `|` + "`" + ` (or), ` + "`" + `->` + "`" + ` (implies), ` + "`" + `<->` + "`" + ` (iff),
   ` + "`" + `~` + "`" + ` (not), ` + "`" + `_|_` + "`" + ` (contradiction) and parentheses. The Unicode forms
   ∧ ∨ → ↔ ¬ ⊥ are accepted too.
5. **rule** is a catalogue id or display name. Call the ` + "`" + `list_rules` + "`" + ` tool for
   the catalogue with the number of lines and sub-proofs each rule cites.
6. A sub-proof needs at least one premise and at least one line.

## Checking

Documents with incorrect steps are stored as written. Use ` + "`" + `verify_document` + "`" + `
to see which lines fail and why.
`
