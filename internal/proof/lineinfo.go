package proof

// LineInfo is the display position of a premise or step.
type LineInfo struct {
	Line  int // 1-based
	Depth int // 0 for the root
}

type span struct{ start, end int }

// LineIndex numbers every premise and step of a document depth-first, the
// premises of a sub-proof before its lines. It is derived state: rebuild it
// after every structural change.
type LineIndex struct {
	info   map[PJRef]LineInfo
	order  []PJRef
	spans  map[SubproofRef]span
	depths map[SubproofRef]int
}

// BuildIndex traverses p from its root.
func BuildIndex(p Proof) *LineIndex {
	idx := &LineIndex{
		info:   make(map[PJRef]LineInfo),
		spans:  make(map[SubproofRef]span),
		depths: make(map[SubproofRef]int),
	}
	idx.walk(p, p.Root(), 0)
	return idx
}

func (x *LineIndex) walk(p Proof, ref SubproofRef, depth int) {
	sp, ok := p.LookupSubproof(ref)
	if !ok {
		return
	}
	x.depths[ref] = depth
	start := len(x.order) + 1
	for _, pr := range sp.Premises {
		x.add(pr, depth)
	}
	for _, l := range sp.Lines {
		switch l := l.(type) {
		case JustificationRef:
			x.add(l, depth)
		case SubproofRef:
			x.walk(p, l, depth+1)
		}
	}
	x.spans[ref] = span{start: start, end: len(x.order)}
}

func (x *LineIndex) add(ref PJRef, depth int) {
	x.order = append(x.order, ref)
	x.info[ref] = LineInfo{Line: len(x.order), Depth: depth}
}

// Lookup returns the position of a premise or step.
func (x *LineIndex) Lookup(ref PJRef) (LineInfo, bool) {
	li, ok := x.info[ref]
	return li, ok
}

// At returns the premise or step on the given 1-based line.
func (x *LineIndex) At(line int) (PJRef, bool) {
	if line < 1 || line > len(x.order) {
		return nil, false
	}
	return x.order[line-1], true
}

// Refs returns every premise and step in line order.
func (x *LineIndex) Refs() []PJRef {
	return append([]PJRef(nil), x.order...)
}

// Len is the number of numbered lines.
func (x *LineIndex) Len() int { return len(x.order) }

// Range returns the first and last line inside the sub-proof, nested
// sub-proofs included. An empty sub-proof reports false.
func (x *LineIndex) Range(ref SubproofRef) (start, end int, ok bool) {
	s, ok := x.spans[ref]
	if !ok || s.end < s.start {
		return 0, 0, false
	}
	return s.start, s.end, true
}

// Depth returns the nesting depth of a sub-proof.
func (x *LineIndex) Depth(ref SubproofRef) (int, bool) {
	d, ok := x.depths[ref]
	return d, ok
}

// SubproofAt finds the non-root sub-proof spanning exactly start..end. When
// nested sub-proofs share a span the outermost wins.
func (x *LineIndex) SubproofAt(start, end int) (SubproofRef, bool) {
	var found SubproofRef
	best := -1
	for ref, s := range x.spans {
		d := x.depths[ref]
		if s.start != start || s.end != end || d == 0 {
			continue
		}
		if best < 0 || d < best {
			found, best = ref, d
		}
	}
	return found, best > 0
}
