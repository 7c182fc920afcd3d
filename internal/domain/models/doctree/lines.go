package doctree

import "fmt"

// line is a leaf block seen independently of the list that may contain it.
// Block transforms flatten a document into lines, rewrite them and rebuild.
type line struct {
	kind  BlockType // paragraph, heading, code or list-item
	level int
	list  BlockType // bullet-list or numbered-list for items, "" otherwise
	group int       // identity of the containing list, -1 outside lists
	texts []Text
}

func flatten(d Document) []line {
	var out []line
	for i, b := range d {
		switch v := b.(type) {
		case *Paragraph:
			out = append(out, line{kind: BlockParagraph, group: -1, texts: cloneTexts(v.Children)})
		case *Heading:
			out = append(out, line{kind: BlockHeading, level: v.Level, group: -1, texts: cloneTexts(v.Children)})
		case *Code:
			out = append(out, line{kind: BlockCode, group: -1, texts: cloneTexts(v.Children)})
		case *ListItem:
			out = append(out, line{kind: BlockParagraph, group: -1, texts: cloneTexts(v.Children)})
		case *BulletList:
			for _, it := range v.Items {
				out = append(out, line{kind: BlockListItem, list: BlockBulletList, group: i, texts: cloneTexts(it.Children)})
			}
		case *NumberedList:
			for _, it := range v.Items {
				out = append(out, line{kind: BlockListItem, list: BlockNumberedList, group: i, texts: cloneTexts(it.Children)})
			}
		default:
			panic(fmt.Sprintf("doctree: unhandled block %T", b))
		}
	}
	return out
}

// build regroups lines into blocks. Consecutive items sharing a list type
// and group become one list.
func build(lines []line) Document {
	out := make(Document, 0, len(lines))
	for i := 0; i < len(lines); {
		l := lines[i]
		if l.list == "" {
			out = append(out, leafBlock(l))
			i++
			continue
		}
		var items []*ListItem
		j := i
		for ; j < len(lines) && lines[j].list == l.list && lines[j].group == l.group; j++ {
			items = append(items, &ListItem{Children: mergeTexts(lines[j].texts)})
		}
		if l.list == BlockNumberedList {
			out = append(out, &NumberedList{Items: items})
		} else {
			out = append(out, &BulletList{Items: items})
		}
		i = j
	}
	if len(out) == 0 {
		return New()
	}
	return out
}

func leafBlock(l line) Block {
	texts := mergeTexts(l.texts)
	switch l.kind {
	case BlockHeading:
		return &Heading{Level: clamp(l.level, 1, MaxHeadingLevel), Children: texts}
	case BlockCode:
		return &Code{Children: texts}
	default:
		return &Paragraph{Children: texts}
	}
}

// mergeTexts drops empty runs and joins neighbours with identical marks.
// A leaf always keeps at least one run.
func mergeTexts(ts []Text) []Text {
	out := make([]Text, 0, len(ts))
	for _, t := range ts {
		if t.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Marks == t.Marks {
			out[n-1].Text += t.Text
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		var marks Marks
		if len(ts) > 0 {
			marks = ts[0].Marks
		}
		return []Text{{Marks: marks}}
	}
	return out
}

// Normalize merges adjacent equal runs and guarantees every leaf has a run.
func Normalize(d Document) Document {
	return build(flatten(d))
}

func lineText(l line) string {
	var s string
	for _, t := range l.texts {
		s += t.Text
	}
	return s
}

func lineLen(l line) int {
	n := 0
	for _, t := range l.texts {
		n += runeLen(t.Text)
	}
	return n
}

// splitTexts splits the runs of a line so that rune offset at falls on a
// run boundary, returning the index of the first run at or after at.
func splitTexts(ts []Text, at int) ([]Text, int) {
	pos := 0
	for i, t := range ts {
		n := runeLen(t.Text)
		if at == pos {
			return ts, i
		}
		if at < pos+n {
			r := []rune(t.Text)
			left := Text{Text: string(r[:at-pos]), Marks: t.Marks}
			right := Text{Text: string(r[at-pos:]), Marks: t.Marks}
			out := make([]Text, 0, len(ts)+1)
			out = append(out, ts[:i]...)
			out = append(out, left, right)
			out = append(out, ts[i+1:]...)
			return out, i + 1
		}
		pos += n
	}
	return ts, len(ts)
}

// nextGroup returns a list group id unused by lines.
func nextGroup(lines []line) int {
	g := 0
	for _, l := range lines {
		if l.group >= g {
			g = l.group + 1
		}
	}
	return g
}
