package doctree

import (
	"strings"
	"unicode/utf8"
)

// ContentLength sums the trimmed length of every text run, so runs holding
// only whitespace count for nothing.
func ContentLength(d Document) int {
	n := 0
	for _, l := range flatten(d) {
		for _, t := range l.texts {
			n += utf8.RuneCountInString(strings.TrimSpace(t.Text))
		}
	}
	return n
}

// CurrentBlockType returns the type of the lowest block containing the
// selection anchor, defaulting to paragraph.
func CurrentBlockType(d Document, sel *Selection) BlockType {
	if sel == nil {
		return BlockParagraph
	}
	b := ancestorBlock(d, sel.Anchor.Path)
	if b == nil {
		return BlockParagraph
	}
	return b.Type()
}

// CurrentHeadingLevel returns 1..3 when the anchor sits in a heading, 0 otherwise.
func CurrentHeadingLevel(d Document, sel *Selection) int {
	if sel == nil {
		return 0
	}
	if h, ok := ancestorBlock(d, sel.Anchor.Path).(*Heading); ok {
		return h.Level
	}
	return 0
}

// IsBlockSlashOnly reports whether the anchor's block, trimmed, is exactly "/".
func IsBlockSlashOnly(d Document, sel *Selection) bool {
	text, ok := blockText(d, sel)
	return ok && strings.TrimSpace(text) == "/"
}

// IsBlockEmpty reports whether the anchor's block has no visible text.
// Without a selection it reports true.
func IsBlockEmpty(d Document, sel *Selection) bool {
	text, ok := blockText(d, sel)
	if !ok {
		return true
	}
	return strings.TrimSpace(strings.ToLower(text)) == ""
}

func blockText(d Document, sel *Selection) (string, bool) {
	if sel == nil {
		return "", false
	}
	tb, ok := ancestorBlock(d, sel.Anchor.Path).(TextBlock)
	if !ok {
		return "", false
	}
	return PlainText(tb), true
}

// BlockState is the snapshot of the anchor's block the editor recomputes on
// every selection or content change.
type BlockState struct {
	Type         BlockType `json:"type"`
	IsEmpty      bool      `json:"is_empty"`
	IsSlashOnly  bool      `json:"is_slash_only"`
	HeadingLevel int       `json:"heading_level"`
}

// CurrentBlock evaluates all block queries at once.
func CurrentBlock(d Document, sel *Selection) BlockState {
	return BlockState{
		Type:         CurrentBlockType(d, sel),
		IsEmpty:      IsBlockEmpty(d, sel),
		IsSlashOnly:  IsBlockSlashOnly(d, sel),
		HeadingLevel: CurrentHeadingLevel(d, sel),
	}
}

// CaretContext describes the characters around a collapsed caret inside its
// line. Has* is false at the line boundaries.
type CaretContext struct {
	Before    rune
	HasBefore bool
	After     rune
	HasAfter  bool
	Offset    int
}

// CaretAt returns the caret context at p.
func CaretAt(d Document, p Point) (CaretContext, bool) {
	lp, ok := ToLinear(d, p)
	if !ok {
		return CaretContext{}, false
	}
	r := []rune(lineText(flatten(d)[lp.Line]))
	cc := CaretContext{Offset: lp.Offset}
	if lp.Offset > 0 {
		cc.Before, cc.HasBefore = r[lp.Offset-1], true
	}
	if lp.Offset < len(r) {
		cc.After, cc.HasAfter = r[lp.Offset], true
	}
	return cc, true
}

// TextBetween returns the text of one line between two offsets.
func TextBetween(d Document, line, from, to int) string {
	lines := flatten(d)
	if line < 0 || line >= len(lines) {
		return ""
	}
	r := []rune(lineText(lines[line]))
	from, to = clamp(from, 0, len(r)), clamp(to, 0, len(r))
	if from >= to {
		return ""
	}
	return string(r[from:to])
}
