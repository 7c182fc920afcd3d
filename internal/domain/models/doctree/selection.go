package doctree

import "slices"

// Path addresses a node: [block, text] for leaf blocks and
// [list, item, text] inside lists.
type Path []int

// Point is a caret position: a text node path plus a rune offset into it.
type Point struct {
	Path   Path `json:"path"`
	Offset int  `json:"offset"`
}

// Equal reports whether two points address the same position.
func (p Point) Equal(o Point) bool {
	return p.Offset == o.Offset && slices.Equal(p.Path, o.Path)
}

// Selection is an anchor/focus pair. A nil *Selection means the editor has
// no active selection.
type Selection struct {
	Anchor Point `json:"anchor"`
	Focus  Point `json:"focus"`
}

// Caret returns a collapsed selection at p.
func Caret(p Point) *Selection {
	return &Selection{Anchor: p, Focus: p}
}

// IsCollapsed reports whether anchor and focus coincide.
func (s Selection) IsCollapsed() bool {
	return s.Anchor.Equal(s.Focus)
}

// Equal reports whether two selections cover the same anchor and focus.
func (s Selection) Equal(o Selection) bool {
	return s.Anchor.Equal(o.Anchor) && s.Focus.Equal(o.Focus)
}

// ancestorBlock returns the lowest block containing path, or nil.
func ancestorBlock(d Document, path Path) Block {
	if len(path) == 0 || path[0] < 0 || path[0] >= len(d) {
		return nil
	}
	switch v := d[path[0]].(type) {
	case *BulletList:
		return itemAt(v.Items, path)
	case *NumberedList:
		return itemAt(v.Items, path)
	default:
		return v
	}
}

func itemAt(items []*ListItem, path Path) Block {
	if len(path) < 2 || path[1] < 0 || path[1] >= len(items) {
		return nil
	}
	return items[path[1]]
}

// LinearPoint is a position expressed as a line (leaf block in document
// order) and a rune offset into that line's concatenated text. It survives
// splitting and merging of text runs, which Points do not.
type LinearPoint struct {
	Line   int
	Offset int
}

// Before reports whether p sorts strictly before o.
func (p LinearPoint) Before(o LinearPoint) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Offset < o.Offset
}

// ToLinear converts a Point into a LinearPoint.
func ToLinear(d Document, p Point) (LinearPoint, bool) {
	prefixes := linePrefixes(d)
	for i, prefix := range prefixes {
		if len(p.Path) != len(prefix)+1 || !slices.Equal(p.Path[:len(prefix)], prefix) {
			continue
		}
		texts := leafAt(d, prefix).Texts()
		ti := p.Path[len(prefix)]
		if ti < 0 || ti >= len(texts) {
			return LinearPoint{}, false
		}
		off := 0
		for _, t := range texts[:ti] {
			off += runeLen(t.Text)
		}
		return LinearPoint{Line: i, Offset: off + clamp(p.Offset, 0, runeLen(texts[ti].Text))}, true
	}
	return LinearPoint{}, false
}

// FromLinear converts a LinearPoint back into a Point. Offsets that fall on a
// run boundary resolve to the end of the earlier run.
func FromLinear(d Document, lp LinearPoint) Point {
	prefixes := linePrefixes(d)
	if len(prefixes) == 0 {
		return Point{Path: Path{0, 0}}
	}
	li := clamp(lp.Line, 0, len(prefixes)-1)
	prefix := prefixes[li]
	texts := leafAt(d, prefix).Texts()
	remaining := max(lp.Offset, 0)
	for ti, t := range texts {
		n := runeLen(t.Text)
		if remaining <= n || ti == len(texts)-1 {
			return Point{Path: appendPath(prefix, ti), Offset: min(remaining, n)}
		}
		remaining -= n
	}
	return Point{Path: appendPath(prefix, 0)}
}

// StartOfDocument is the caret position before the first character.
func StartOfDocument(d Document) Point {
	return FromLinear(d, LinearPoint{})
}

// EndOfDocument is the caret position after the last character.
func EndOfDocument(d Document) Point {
	prefixes := linePrefixes(d)
	if len(prefixes) == 0 {
		return Point{Path: Path{0, 0}}
	}
	last := len(prefixes) - 1
	return FromLinear(d, LinearPoint{Line: last, Offset: runeLen(PlainText(leafAt(d, prefixes[last])))})
}

func appendPath(prefix Path, i int) Path {
	out := make(Path, 0, len(prefix)+1)
	out = append(out, prefix...)
	return append(out, i)
}

// linePrefixes returns the block path of every leaf block in document order.
func linePrefixes(d Document) []Path {
	var out []Path
	for i, b := range d {
		switch v := b.(type) {
		case *BulletList:
			for j := range v.Items {
				out = append(out, Path{i, j})
			}
		case *NumberedList:
			for j := range v.Items {
				out = append(out, Path{i, j})
			}
		default:
			out = append(out, Path{i})
		}
	}
	return out
}

func leafAt(d Document, prefix Path) TextBlock {
	b := ancestorBlock(d, append(slices.Clone(prefix), 0))
	tb, _ := b.(TextBlock)
	return tb
}

func runeLen(s string) int {
	return len([]rune(s))
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
