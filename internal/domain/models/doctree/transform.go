package doctree

import "slices"

// span is a selection resolved to ordered linear points.
type span struct {
	start, end    LinearPoint
	anchor, focus LinearPoint
}

func resolve(d Document, sel *Selection) (span, bool) {
	if sel == nil {
		return span{}, false
	}
	a, aok := ToLinear(d, sel.Anchor)
	f, fok := ToLinear(d, sel.Focus)
	if !aok || !fok {
		return span{}, false
	}
	s := span{start: a, end: f, anchor: a, focus: f}
	if f.Before(a) {
		s.start, s.end = f, a
	}
	return s, true
}

// bounds returns the offsets of line i covered by s.
func (s span) bounds(i int, l line) (int, int) {
	from, to := 0, lineLen(l)
	if i == s.start.Line {
		from = s.start.Offset
	}
	if i == s.end.Line {
		to = s.end.Offset
	}
	return from, to
}

func (s span) collapsed() bool {
	return s.start == s.end
}

// remap rebuilds a selection on the transformed document.
func (s span) remap(d Document) *Selection {
	return &Selection{Anchor: FromLinear(d, s.anchor), Focus: FromLinear(d, s.focus)}
}

// IsValid reports whether both ends of sel address text in d.
func IsValid(d Document, sel *Selection) bool {
	_, ok := resolve(d, sel)
	return ok
}

// SelectLinear builds a selection from linear points.
func SelectLinear(d Document, anchor, focus LinearPoint) *Selection {
	return &Selection{Anchor: FromLinear(d, anchor), Focus: FromLinear(d, focus)}
}

// MarksAt returns the marks a character typed at p would inherit: those of
// the character before p, or of the first run at the start of a line.
func MarksAt(d Document, p Point) Marks {
	lp, ok := ToLinear(d, p)
	if !ok {
		return Marks{}
	}
	return marksBefore(flatten(d)[lp.Line].texts, lp.Offset)
}

func marksBefore(ts []Text, off int) Marks {
	if len(ts) == 0 {
		return Marks{}
	}
	pos := 0
	for _, t := range ts {
		n := runeLen(t.Text)
		if off > pos && off <= pos+n {
			return t.Marks
		}
		pos += n
	}
	return ts[0].Marks
}

// IsMarkActive reports whether every non-empty run inside the selection
// carries m. A collapsed selection reports the marks at the caret.
func IsMarkActive(d Document, sel *Selection, m Mark) bool {
	s, ok := resolve(d, sel)
	if !ok {
		return false
	}
	if s.collapsed() {
		return marksBefore(flatten(d)[s.start.Line].texts, s.start.Offset).Has(m)
	}

	lines := flatten(d)
	seen := false
	for i := s.start.Line; i <= s.end.Line; i++ {
		from, to := s.bounds(i, lines[i])
		for _, t := range sliceTexts(lines[i].texts, from, to) {
			if t.Text == "" {
				continue
			}
			if !t.Marks.Has(m) {
				return false
			}
			seen = true
		}
	}
	return seen
}

// ToggleMark clears m from the selected range when it is active there and
// sets it otherwise, splitting runs at the selection edges. Collapsed or
// missing selections leave the document unchanged.
func ToggleMark(d Document, sel *Selection, m Mark) (Document, *Selection) {
	s, ok := resolve(d, sel)
	if !ok || s.collapsed() {
		return d, sel
	}
	on := !IsMarkActive(d, sel, m)

	lines := flatten(d)
	for i := s.start.Line; i <= s.end.Line; i++ {
		from, to := s.bounds(i, lines[i])
		before, middle, after := cut(lines[i].texts, from, to)
		for j := range middle {
			middle[j].Marks = middle[j].Marks.With(m, on)
		}
		lines[i].texts = slices.Concat(before, middle, after)
	}
	out := build(lines)
	return out, s.remap(out)
}

// IsBlockActive reports whether every line touched by the selection is a
// leaf of the given kind. level is only compared for headings.
func IsBlockActive(d Document, sel *Selection, kind BlockType, level int) bool {
	s, ok := resolve(d, sel)
	if !ok {
		return false
	}
	lines := flatten(d)
	for i := s.start.Line; i <= s.end.Line; i++ {
		l := lines[i]
		if l.list != "" || l.kind != kind {
			return false
		}
		if kind == BlockHeading && l.level != level {
			return false
		}
	}
	return true
}

// IsListActive reports whether every selected line is an item of a list of
// the given type.
func IsListActive(d Document, sel *Selection, list BlockType) bool {
	s, ok := resolve(d, sel)
	if !ok {
		return false
	}
	lines := flatten(d)
	for i := s.start.Line; i <= s.end.Line; i++ {
		if lines[i].list != list {
			return false
		}
	}
	return true
}

// ToggleBlock turns the selected lines into kind (paragraph, heading or
// code), lifting them out of any list. When they already are that kind they
// revert to paragraphs.
func ToggleBlock(d Document, sel *Selection, kind BlockType, level int) (Document, *Selection) {
	s, ok := resolve(d, sel)
	if !ok {
		return d, sel
	}
	if IsBlockActive(d, sel, kind, level) {
		kind, level = BlockParagraph, 0
	}
	return setLines(d, s, func(l *line) {
		l.kind, l.level = kind, level
		l.list, l.group = "", -1
	})
}

// ToggleList wraps the selected lines in a new list of the given type, or
// unwraps them into paragraphs when they already belong to one.
func ToggleList(d Document, sel *Selection, list BlockType) (Document, *Selection) {
	s, ok := resolve(d, sel)
	if !ok || !list.IsList() {
		return d, sel
	}
	if IsListActive(d, sel, list) {
		return setLines(d, s, func(l *line) {
			l.kind, l.level = BlockParagraph, 0
			l.list, l.group = "", -1
		})
	}
	group := nextGroup(flatten(d))
	return setLines(d, s, func(l *line) {
		l.kind, l.level = BlockListItem, 0
		l.list, l.group = list, group
	})
}

// ResetToParagraph turns every selected line into a plain paragraph.
func ResetToParagraph(d Document, sel *Selection) (Document, *Selection) {
	s, ok := resolve(d, sel)
	if !ok {
		return d, sel
	}
	return setLines(d, s, func(l *line) {
		l.kind, l.level = BlockParagraph, 0
		l.list, l.group = "", -1
	})
}

func setLines(d Document, s span, fn func(*line)) (Document, *Selection) {
	lines := flatten(d)
	for i := s.start.Line; i <= s.end.Line; i++ {
		fn(&lines[i])
	}
	out := build(lines)
	return out, s.remap(out)
}

// cut splits ts into the runs before from, between from and to, and after
// to. The three slices never share backing arrays.
func cut(ts []Text, from, to int) (before, middle, after []Text) {
	split, i := splitTexts(cloneTexts(ts), from)
	split, j := splitTexts(split, to)
	return slices.Clone(split[:i]), slices.Clone(split[i:j]), slices.Clone(split[j:])
}

func sliceTexts(ts []Text, from, to int) []Text {
	_, middle, _ := cut(ts, from, to)
	return middle
}
