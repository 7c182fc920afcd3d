package doctree

import (
	"slices"
	"strings"
)

// InsertText replaces the selection with text and returns the caret after
// it. The inserted run takes marks when non-nil, otherwise the marks of the
// character before the caret. Newlines split the line as InsertBreak does.
func InsertText(d Document, sel *Selection, text string, marks *Marks) (Document, *Selection) {
	s, ok := resolve(d, sel)
	if !ok {
		return d, sel
	}
	lines, at := deleteSpan(flatten(d), s)

	for i, part := range strings.Split(text, "\n") {
		if i > 0 {
			lines, at = splitLine(lines, at)
		}
		if part == "" {
			continue
		}
		l := &lines[at.Line]
		m := marksBefore(l.texts, at.Offset)
		if marks != nil {
			m = *marks
		}
		before, _, after := cut(l.texts, at.Offset, at.Offset)
		l.texts = slices.Concat(before, []Text{{Text: part, Marks: m}}, after)
		at.Offset += runeLen(part)
	}

	out := build(lines)
	return out, Caret(FromLinear(out, at))
}

// DeleteBackward removes the selection, or the character before a collapsed
// caret. At the start of a line it lifts list items and non-paragraph blocks
// to paragraphs, and otherwise joins the line onto the previous one.
func DeleteBackward(d Document, sel *Selection) (Document, *Selection) {
	s, ok := resolve(d, sel)
	if !ok {
		return d, sel
	}
	lines := flatten(d)
	at := s.start

	switch {
	case !s.collapsed():
		lines, at = deleteSpan(lines, s)
	case at.Offset > 0:
		lines, at = deleteSpan(lines, span{start: LinearPoint{Line: at.Line, Offset: at.Offset - 1}, end: at})
	case lines[at.Line].kind != BlockParagraph || lines[at.Line].list != "":
		l := &lines[at.Line]
		l.kind, l.level, l.list, l.group = BlockParagraph, 0, "", -1
	case at.Line > 0:
		prev := at.Line - 1
		at = LinearPoint{Line: prev, Offset: lineLen(lines[prev])}
		lines[prev].texts = append(lines[prev].texts, lines[at.Line+1].texts...)
		lines = slices.Delete(lines, prev+1, prev+2)
	default:
		return d, sel
	}

	out := build(lines)
	return out, Caret(FromLinear(out, at))
}

// InsertBreak replaces the selection and splits the line at the caret. Enter
// on an empty list item leaves the list instead.
func InsertBreak(d Document, sel *Selection) (Document, *Selection) {
	s, ok := resolve(d, sel)
	if !ok {
		return d, sel
	}
	lines, at := deleteSpan(flatten(d), s)
	if l := &lines[at.Line]; l.list != "" && lineLen(*l) == 0 {
		l.kind, l.list, l.group = BlockParagraph, "", -1
	} else {
		lines, at = splitLine(lines, at)
	}
	out := build(lines)
	return out, Caret(FromLinear(out, at))
}

// splitLine breaks a line in two at at. The tail keeps list membership and
// code blocks, while heading tails become paragraphs.
func splitLine(lines []line, at LinearPoint) ([]line, LinearPoint) {
	l := lines[at.Line]
	head, _, tail := cut(l.texts, at.Offset, at.Offset)
	if len(tail) == 0 {
		tail = []Text{{Marks: marksBefore(l.texts, at.Offset)}}
	}
	next := line{kind: l.kind, list: l.list, group: l.group, texts: tail}
	if l.kind == BlockHeading {
		next.kind = BlockParagraph
	}
	lines[at.Line].texts = head
	lines = slices.Insert(lines, at.Line+1, next)
	return lines, LinearPoint{Line: at.Line + 1}
}

// deleteSpan removes the text between s.start and s.end. The first line
// keeps its block type and absorbs the remainder of the last line.
func deleteSpan(lines []line, s span) ([]line, LinearPoint) {
	if s.start == s.end {
		return lines, s.start
	}
	first, last := lines[s.start.Line], lines[s.end.Line]
	head, _, _ := cut(first.texts, s.start.Offset, s.start.Offset)
	_, _, tail := cut(last.texts, s.end.Offset, s.end.Offset)
	if len(head) == 0 && len(tail) == 0 {
		head = []Text{{Marks: marksBefore(first.texts, s.start.Offset)}}
	}
	first.texts = slices.Concat(head, tail)

	out := slices.Clone(lines[:s.start.Line])
	out = append(out, first)
	out = append(out, lines[s.end.Line+1:]...)
	return out, s.start
}
